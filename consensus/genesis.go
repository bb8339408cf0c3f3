package consensus

// Genesis is the single hard-coded block every node must descend from
// (spec.md §6). Its revelation transaction is coinbase-shaped (no
// inputs) but pays no reward — height 0 predates the subsidy schedule,
// which starts paying at height 1 (BlockReward(0) == 0 too, so a miner
// reusing BlockReward for genesis would agree).
//
// GenesisPubkeyHash locks the revelation output to a hash nobody holds
// the preimage for: SHA-256 of a fixed message, not a real key. The
// output is therefore permanently unspendable, which is fine — it
// carries no value.
var genesisRevelationMessage = []byte("ledgerd genesis revelation: proof of work converges on greatest cumulative work")

// GenesisPubkeyHash is computed once at init from genesisRevelationMessage.
var GenesisPubkeyHash = SHA256(genesisRevelationMessage)

// RevelationTx is genesis's sole transaction.
func RevelationTx() Transaction {
	return Transaction{
		Inputs: nil,
		Outputs: []TxOutput{
			{Value: 0, PubkeyHash: GenesisPubkeyHash},
		},
	}
}

// Genesis constructs the genesis block. Its nonce is 0 and already
// satisfies proof of work because its target is MaxTarget (any header
// hash satisfies hash <= 0xFF..FF); no mining loop is needed, but the
// field exists for symmetry with every other header.
func Genesis() Block {
	txs := []Transaction{RevelationTx()}
	header := BlockHeader{
		Height:     0,
		Timestamp:  GenesisTimestamp,
		PrevHash:   Hash{},
		Nonce:      0,
		Target:     MaxTarget,
		MerkleRoot: MerkleRoot(txs),
	}
	return Block{Header: header, Transactions: txs}
}

// GenesisHash is the fixed header hash every node checks peers against.
func GenesisHash() Hash {
	return HeaderHash(Genesis().Header)
}

package consensus

// Hash is a 32-byte double-SHA-256 digest, compared lexicographically
// big-endian when used as a 256-bit integer (e.g. against a target).
type Hash [32]byte

// Outpoint names a single transaction output: its owning txid and
// output index.
type Outpoint struct {
	Txid Hash
	Vout uint32
}

// TxOutput is a value locked to a single public-key hash.
type TxOutput struct {
	Value      uint64
	PubkeyHash Hash
}

// TxInput spends one prior output. Pubkey is the 32-byte Ed25519 public
// key whose hash must match the spent output's PubkeyHash; Signature is
// the 64-byte Ed25519 signature over the transaction's sighash.
// AddressIndex is the spender's HD-derivation index for the key that
// produced Pubkey; it is not consulted by validation, only carried
// through encoding and hashing like every other input field.
type TxInput struct {
	Prev         Outpoint
	Pubkey       [32]byte
	Signature    [64]byte
	AddressIndex uint32
}

// Transaction is an ordered list of inputs and outputs. A coinbase
// transaction has zero inputs; any other transaction has at least one.
type Transaction struct {
	Inputs  []TxInput
	Outputs []TxOutput
}

// IsCoinbase reports whether tx has the coinbase shape (no inputs).
func (tx *Transaction) IsCoinbase() bool {
	return tx != nil && len(tx.Inputs) == 0
}

// BlockHeader is the fixed-size, hashed portion of a block.
type BlockHeader struct {
	Height     uint64
	Timestamp  int64
	PrevHash   Hash
	Nonce      uint64
	Target     Hash
	MerkleRoot Hash
}

// Block pairs a header with its ordered transaction list. The first
// transaction must be the coinbase.
type Block struct {
	Header       BlockHeader
	Transactions []Transaction
}

// UTXOEntry records everything needed to validate a spend of an
// applied output without consulting the transaction that created it.
type UTXOEntry struct {
	Value          uint64
	PubkeyHash     Hash
	CreationHeight uint64
	IsCoinbase     bool
}

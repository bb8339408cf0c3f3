package consensus

// BlockContext carries everything about the parent chain a candidate
// block is validated against, beyond the UTXO snapshot itself.
type BlockContext struct {
	ParentHash     Hash
	ParentHeight   uint64
	ExpectedTarget Hash
	// AncestorHeaders is used for median-time-past: up to
	// MedianTimeSpan headers, starting at the parent and walking
	// backward (newest first). May be shorter than MedianTimeSpan
	// early in the chain, or empty for genesis.
	AncestorHeaders []BlockHeader
	Now             int64
}

// ValidateBlockStructure performs the checks that do not require any
// chain or UTXO state: shape, size, linkage, PoW, target, timestamp,
// and Merkle root. It is split out from ApplyBlock so callers (e.g.
// the node's chain, before indexing a block) can cheaply check a
// candidate before paying for full UTXO validation.
func ValidateBlockStructure(b Block, ctx BlockContext) error {
	if len(b.Transactions) == 0 {
		return newErr(ErrMalformed, "block has no transactions")
	}
	if !b.Transactions[0].IsCoinbase() {
		return newErr(ErrInvalidCoinbase, "first transaction is not coinbase")
	}
	for _, tx := range b.Transactions[1:] {
		if tx.IsCoinbase() {
			return newErr(ErrInvalidCoinbase, "coinbase transaction outside index 0")
		}
	}
	if len(SerializeBlock(b)) > MaxBlockSize {
		return newErr(ErrMalformed, "block exceeds MaxBlockSize")
	}

	if b.Header.PrevHash != ctx.ParentHash {
		return newErr(ErrInvalidParent, "prev_hash does not match parent")
	}
	if b.Header.Height != ctx.ParentHeight+1 {
		return newErr(ErrInvalidParent, "height is not parent height + 1")
	}
	if b.Header.Target != ctx.ExpectedTarget {
		return newErr(ErrInvalidTarget, "target does not match expected retarget")
	}
	if err := ValidatePoW(b.Header); err != nil {
		return err
	}
	if err := ValidateTimestamp(b.Header, ctx.AncestorHeaders, ctx.Now); err != nil {
		return err
	}
	if got, want := MerkleRoot(b.Transactions), b.Header.MerkleRoot; got != want {
		return newErr(ErrInvalidMerkle, "merkle root mismatch")
	}
	return nil
}

// BlockApplyResult summarizes a successfully applied block.
type BlockApplyResult struct {
	Hash    Hash
	SumFees uint64
	Undo    BlockUndo
}

// ApplyBlock fully validates b against ctx and utxos (spec.md §4.7) and,
// on success, mutates utxos in place and returns the undo log needed to
// reverse the mutation. utxos is the UTXO set at the parent tip; it is
// not cloned by this function — callers that need to preserve the
// pre-apply state (e.g. speculative validation during reorg) must clone
// first.
func ApplyBlock(b Block, ctx BlockContext, utxos *UTXOSet) (*BlockApplyResult, error) {
	if err := ValidateBlockStructure(b, ctx); err != nil {
		return nil, err
	}

	height := b.Header.Height
	spentThisBlock := make(map[Outpoint]struct{})
	var undo BlockUndo
	var sumFees uint64

	for _, tx := range b.Transactions[1:] {
		for _, in := range tx.Inputs {
			if _, dup := spentThisBlock[in.Prev]; dup {
				return nil, newErr(ErrDoubleSpend, "outpoint spent twice within block")
			}
			spentThisBlock[in.Prev] = struct{}{}
		}

		fee, err := ValidateTransaction(tx, utxos, height)
		if err != nil {
			return nil, err
		}
		var overflow bool
		sumFees, overflow = addUint64(sumFees, fee)
		if overflow {
			return nil, newErr(ErrValue, "cumulative fee overflow")
		}

		txid := Txid(tx)
		if err := utxos.Apply(tx, txid, height, &undo); err != nil {
			return nil, newErr(ErrInternal, "apply of previously validated tx failed: "+err.Error())
		}
	}

	coinbase := b.Transactions[0]
	var coinbaseSum uint64
	for _, out := range coinbase.Outputs {
		var overflow bool
		coinbaseSum, overflow = addUint64(coinbaseSum, out.Value)
		if overflow {
			return nil, newErr(ErrValue, "coinbase output value overflow")
		}
	}
	maxCoinbase, overflow := addUint64(BlockReward(height), sumFees)
	if overflow {
		return nil, newErr(ErrValue, "coinbase allowance overflow")
	}
	if coinbaseSum > maxCoinbase {
		return nil, newErr(ErrInvalidCoinbase, "coinbase output sum exceeds reward plus fees")
	}

	coinbaseTxid := Txid(coinbase)
	if err := utxos.Apply(coinbase, coinbaseTxid, height, &undo); err != nil {
		return nil, newErr(ErrInternal, "apply of coinbase failed: "+err.Error())
	}

	return &BlockApplyResult{
		Hash:    HeaderHash(b.Header),
		SumFees: sumFees,
		Undo:    undo,
	}, nil
}

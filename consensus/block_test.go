package consensus

import (
	"crypto/ed25519"
	"testing"
)

func coinbaseTx(reward uint64, pubHash Hash) Transaction {
	return Transaction{Outputs: []TxOutput{{Value: reward, PubkeyHash: pubHash}}}
}

func baseContext() BlockContext {
	g := Genesis()
	return BlockContext{
		ParentHash:      GenesisHash(),
		ParentHeight:    0,
		ExpectedTarget:  MaxTarget,
		AncestorHeaders: []BlockHeader{g.Header},
		Now:             GenesisTimestamp + 100,
	}
}

func buildBlock(t *testing.T, txs []Transaction) Block {
	t.Helper()
	header := BlockHeader{
		Height:     1,
		Timestamp:  GenesisTimestamp + 1,
		PrevHash:   GenesisHash(),
		Nonce:      0,
		Target:     MaxTarget,
		MerkleRoot: MerkleRoot(txs),
	}
	return Block{Header: header, Transactions: txs}
}

func TestApplyBlockCoinbaseOnly(t *testing.T) {
	utxos := NewUTXOSet()
	cb := coinbaseTx(BlockReward(1), Hash{1})
	b := buildBlock(t, []Transaction{cb})

	result, err := ApplyBlock(b, baseContext(), utxos)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SumFees != 0 {
		t.Fatalf("sum fees = %d, want 0", result.SumFees)
	}
	entry, ok := utxos.Get(Outpoint{Txid: Txid(cb), Vout: 0})
	if !ok || entry.Value != BlockReward(1) || !entry.IsCoinbase {
		t.Fatalf("coinbase output not applied correctly: %+v ok=%v", entry, ok)
	}
}

func TestApplyBlockRejectsExtraCoinbase(t *testing.T) {
	utxos := NewUTXOSet()
	cb := coinbaseTx(BlockReward(1), Hash{1})
	second := coinbaseTx(1, Hash{2})
	b := buildBlock(t, []Transaction{cb, second})

	_, err := ApplyBlock(b, baseContext(), utxos)
	if code, ok := CodeOf(err); !ok || code != ErrInvalidCoinbase {
		t.Fatalf("expected ErrInvalidCoinbase, got %v", err)
	}
}

func TestApplyBlockRejectsCoinbaseExceedingReward(t *testing.T) {
	utxos := NewUTXOSet()
	cb := coinbaseTx(BlockReward(1)+1, Hash{1})
	b := buildBlock(t, []Transaction{cb})

	_, err := ApplyBlock(b, baseContext(), utxos)
	if code, ok := CodeOf(err); !ok || code != ErrInvalidCoinbase {
		t.Fatalf("expected ErrInvalidCoinbase, got %v", err)
	}
}

func TestApplyBlockAllowsCoinbasePlusFees(t *testing.T) {
	pub, priv := newKey(t)
	utxos := NewUTXOSet()
	prev := fundUTXO(t, utxos, 1000, SHA256(pub[:]), 0, false)

	spend := signedSpend(t, priv, pub, prev, []TxOutput{{Value: 900}})
	cb := coinbaseTx(BlockReward(1)+100, Hash{1})
	b := buildBlock(t, []Transaction{cb, spend})

	result, err := ApplyBlock(b, baseContext(), utxos)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SumFees != 100 {
		t.Fatalf("sum fees = %d, want 100", result.SumFees)
	}
}

func TestApplyBlockRejectsDoubleSpendAcrossTransactions(t *testing.T) {
	pub, priv := newKey(t)
	utxos := NewUTXOSet()
	prev := fundUTXO(t, utxos, 1000, SHA256(pub[:]), 0, false)

	spendA := signedSpend(t, priv, pub, prev, []TxOutput{{Value: 400}})

	spendB := Transaction{
		Inputs:  []TxInput{{Prev: prev, Pubkey: pub}},
		Outputs: []TxOutput{{Value: 300}},
	}
	sh := Sighash(spendB)
	sig := ed25519.Sign(priv, sh[:])
	copy(spendB.Inputs[0].Signature[:], sig)

	cb := coinbaseTx(BlockReward(1), Hash{1})
	b := buildBlock(t, []Transaction{cb, spendA, spendB})

	_, err := ApplyBlock(b, baseContext(), utxos)
	if code, ok := CodeOf(err); !ok || code != ErrDoubleSpend {
		t.Fatalf("expected ErrDoubleSpend, got %v", err)
	}
}

func TestApplyBlockRejectsWrongParent(t *testing.T) {
	utxos := NewUTXOSet()
	cb := coinbaseTx(BlockReward(1), Hash{1})
	b := buildBlock(t, []Transaction{cb})
	b.Header.PrevHash = Hash{0xAB}

	_, err := ApplyBlock(b, baseContext(), utxos)
	if code, ok := CodeOf(err); !ok || code != ErrInvalidParent {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}
}

func TestApplyBlockRejectsWrongTarget(t *testing.T) {
	utxos := NewUTXOSet()
	cb := coinbaseTx(BlockReward(1), Hash{1})
	b := buildBlock(t, []Transaction{cb})
	b.Header.Target = MinTarget

	_, err := ApplyBlock(b, baseContext(), utxos)
	if code, ok := CodeOf(err); !ok || code != ErrInvalidTarget {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestApplyBlockRejectsBadMerkleRoot(t *testing.T) {
	utxos := NewUTXOSet()
	cb := coinbaseTx(BlockReward(1), Hash{1})
	b := buildBlock(t, []Transaction{cb})
	b.Header.MerkleRoot = Hash{0xFF}

	_, err := ApplyBlock(b, baseContext(), utxos)
	if code, ok := CodeOf(err); !ok || code != ErrInvalidMerkle {
		t.Fatalf("expected ErrInvalidMerkle, got %v", err)
	}
}

func TestApplyBlockUndoRestoresUTXOSet(t *testing.T) {
	pub, priv := newKey(t)
	utxos := NewUTXOSet()
	prev := fundUTXO(t, utxos, 1000, SHA256(pub[:]), 0, false)
	before := snapshotUTXO(utxos)

	spend := signedSpend(t, priv, pub, prev, []TxOutput{{Value: 900}})
	cb := coinbaseTx(BlockReward(1)+100, Hash{1})
	b := buildBlock(t, []Transaction{cb, spend})

	result, err := ApplyBlock(b, baseContext(), utxos)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	utxos.Undo(result.Undo)
	after := snapshotUTXO(utxos)
	if len(before) != len(after) {
		t.Fatalf("undo mismatch: before=%d after=%d", len(before), len(after))
	}
	for op, e := range before {
		if got, ok := after[op]; !ok || got != e {
			t.Fatalf("entry %+v not restored: got %+v ok=%v", op, got, ok)
		}
	}
}

package consensus

import "testing"

func TestUTXOApplyAndGet(t *testing.T) {
	s := NewUTXOSet()
	tx := Transaction{Outputs: []TxOutput{{Value: 100, PubkeyHash: Hash{1}}}}
	txid := Txid(tx)
	if err := s.Apply(tx, txid, 5, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	entry, ok := s.Get(Outpoint{Txid: txid, Vout: 0})
	if !ok {
		t.Fatalf("expected created outpoint to be present")
	}
	if entry.Value != 100 || entry.CreationHeight != 5 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestUTXOApplyMissingInput(t *testing.T) {
	s := NewUTXOSet()
	tx := Transaction{Inputs: []TxInput{{Prev: Outpoint{Txid: Hash{9}, Vout: 0}}}}
	err := s.Apply(tx, Txid(tx), 1, nil)
	if code, ok := CodeOf(err); !ok || code != ErrMissingInput {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
}

// TestUndoReversesApply is testable property 6: undo(apply(S, B), B) == S.
func TestUndoReversesApply(t *testing.T) {
	s := NewUTXOSet()

	coinbase := Transaction{Outputs: []TxOutput{{Value: 5000, PubkeyHash: Hash{1}}}}
	cbTxid := Txid(coinbase)
	if err := s.Apply(coinbase, cbTxid, 0, nil); err != nil {
		t.Fatalf("seed apply: %v", err)
	}

	before := snapshotUTXO(s)

	spend := Transaction{
		Inputs:  []TxInput{{Prev: Outpoint{Txid: cbTxid, Vout: 0}}},
		Outputs: []TxOutput{{Value: 4000, PubkeyHash: Hash{2}}, {Value: 900, PubkeyHash: Hash{3}}},
	}
	var undo BlockUndo
	spendTxid := Txid(spend)
	if err := s.Apply(spend, spendTxid, 1, &undo); err != nil {
		t.Fatalf("spend apply: %v", err)
	}

	if s.Len() != 2 {
		t.Fatalf("expected 2 outputs after spend, got %d", s.Len())
	}

	s.Undo(undo)

	after := snapshotUTXO(s)
	if len(before) != len(after) {
		t.Fatalf("undo did not restore set size: before=%d after=%d", len(before), len(after))
	}
	for op, e := range before {
		got, ok := after[op]
		if !ok || got != e {
			t.Fatalf("undo did not restore entry %+v: got %+v ok=%v", op, got, ok)
		}
	}
}

func snapshotUTXO(s *UTXOSet) map[Outpoint]UTXOEntry {
	out := make(map[Outpoint]UTXOEntry)
	s.Each(func(op Outpoint, e UTXOEntry) { out[op] = e })
	return out
}

func TestUTXOCloneIsIndependent(t *testing.T) {
	s := NewUTXOSet()
	tx := Transaction{Outputs: []TxOutput{{Value: 1}}}
	txid := Txid(tx)
	s.Apply(tx, txid, 0, nil)

	clone := s.Clone()
	clone.Delete(Outpoint{Txid: txid, Vout: 0})

	if _, ok := s.Get(Outpoint{Txid: txid, Vout: 0}); !ok {
		t.Fatalf("mutating clone must not affect original")
	}
}

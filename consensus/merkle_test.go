package consensus

import "testing"

func txWithOutputValue(v uint64) Transaction {
	return Transaction{Outputs: []TxOutput{{Value: v, PubkeyHash: Hash{byte(v)}}}}
}

func TestMerkleRootEmptyIsZero(t *testing.T) {
	if got := MerkleRoot(nil); got != (Hash{}) {
		t.Fatalf("empty merkle root = %x, want zero hash", got)
	}
}

func TestMerkleRootSingleLeaf(t *testing.T) {
	tx := txWithOutputValue(1)
	root := MerkleRoot([]Transaction{tx})
	if root != Txid(tx) {
		t.Fatalf("single-leaf root = %x, want leaf hash %x", root, Txid(tx))
	}
}

func TestMerkleRootOddDuplicatesLast(t *testing.T) {
	t1, t2, t3 := txWithOutputValue(1), txWithOutputValue(2), txWithOutputValue(3)
	root := MerkleRoot([]Transaction{t1, t2, t3})

	h1, h2, h3 := Txid(t1), Txid(t2), Txid(t3)
	left := hashPair(h1, h2)
	right := hashPair(h3, h3)
	want := hashPair(left, right)
	if root != want {
		t.Fatalf("odd-length merkle root mismatch")
	}
}

func TestMerkleRootOrderSensitive(t *testing.T) {
	t1, t2 := txWithOutputValue(1), txWithOutputValue(2)
	a := MerkleRoot([]Transaction{t1, t2})
	b := MerkleRoot([]Transaction{t2, t1})
	if a == b {
		t.Fatalf("merkle root must be order-sensitive")
	}
}

func TestMerkleRootInjective(t *testing.T) {
	seen := make(map[Hash]bool)
	for v := uint64(0); v < 50; v++ {
		root := MerkleRoot([]Transaction{txWithOutputValue(v), txWithOutputValue(v + 1)})
		if seen[root] {
			t.Fatalf("collision at v=%d", v)
		}
		seen[root] = true
	}
}

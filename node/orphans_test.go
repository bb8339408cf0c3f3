package node

import (
	"testing"
	"time"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
)

func orphanBlock(parent consensus.Hash, height uint64) consensus.Block {
	txs := []consensus.Transaction{{Outputs: []consensus.TxOutput{{Value: 0, PubkeyHash: consensus.Hash{byte(height)}}}}}
	return consensus.Block{
		Header: consensus.BlockHeader{
			Height:     height,
			PrevHash:   parent,
			Target:     consensus.MaxTarget,
			MerkleRoot: consensus.MerkleRoot(txs),
		},
		Transactions: txs,
	}
}

func TestOrphanPoolAddAndTake(t *testing.T) {
	p := NewOrphanPool()
	parent := consensus.Hash{0xAA}
	b := orphanBlock(parent, 5)
	p.Add(b)

	if p.Len() != 1 {
		t.Fatalf("len = %d, want 1", p.Len())
	}
	got := p.TakeChildrenOf(parent)
	if len(got) != 1 {
		t.Fatalf("TakeChildrenOf returned %d blocks, want 1", len(got))
	}
	if p.Len() != 0 {
		t.Fatalf("pool should be drained after TakeChildrenOf")
	}
	if p.TakeChildrenOf(parent) != nil {
		t.Fatalf("second take should return nothing")
	}
}

func TestOrphanPoolExpiresByTTL(t *testing.T) {
	p := NewOrphanPool()
	now := time.Unix(0, 0)
	p.now = func() time.Time { return now }
	p.ttl = time.Minute

	parent := consensus.Hash{0xBB}
	p.Add(orphanBlock(parent, 1))

	now = now.Add(2 * time.Minute)
	if got := p.TakeChildrenOf(parent); got != nil {
		t.Fatalf("expired orphan should not be returned")
	}
	if p.Len() != 0 {
		t.Fatalf("expired orphan should have been swept")
	}
}

func TestOrphanPoolEvictsOldestAtCapacity(t *testing.T) {
	p := NewOrphanPool()
	p.maxSize = 2
	now := time.Unix(0, 0)
	p.now = func() time.Time { return now }

	p.Add(orphanBlock(consensus.Hash{1}, 1))
	now = now.Add(time.Second)
	p.Add(orphanBlock(consensus.Hash{2}, 1))
	now = now.Add(time.Second)
	p.Add(orphanBlock(consensus.Hash{3}, 1))

	if p.Len() != 2 {
		t.Fatalf("len = %d, want 2 after eviction", p.Len())
	}
	if got := p.TakeChildrenOf(consensus.Hash{1}); got != nil {
		t.Fatalf("oldest orphan should have been evicted")
	}
	if got := p.TakeChildrenOf(consensus.Hash{3}); got == nil {
		t.Fatalf("newest orphan should still be buffered")
	}
}

package node

import (
	"sync"
	"time"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
)

const (
	orphanPoolCapacity = 100
	orphanTTL          = 10 * time.Minute
)

type orphanEntry struct {
	block    consensus.Block
	received time.Time
}

// OrphanPool buffers blocks whose parent is not yet in the block index,
// keyed by the missing parent hash, per SPEC_FULL.md §9.1's resolution
// of spec.md §9's open question. It is bounded and TTL'd: a node that
// never receives the missing parent eventually forgets the orphan
// rather than growing without limit.
type OrphanPool struct {
	mu      sync.Mutex
	byPrev  map[consensus.Hash][]orphanEntry
	count   int
	now     func() time.Time
	ttl     time.Duration
	maxSize int
}

func NewOrphanPool() *OrphanPool {
	return &OrphanPool{
		byPrev:  make(map[consensus.Hash][]orphanEntry),
		now:     time.Now,
		ttl:     orphanTTL,
		maxSize: orphanPoolCapacity,
	}
}

// Add buffers b under its (missing) parent hash, evicting the oldest
// entry first if the pool is at capacity.
func (p *OrphanPool) Add(b consensus.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sweepLocked()
	if p.count >= p.maxSize {
		p.evictOldestLocked()
	}

	parent := b.Header.PrevHash
	p.byPrev[parent] = append(p.byPrev[parent], orphanEntry{block: b, received: p.now()})
	p.count++
}

// TakeChildrenOf removes and returns every buffered block whose parent
// is hash, for re-offering to block acceptance.
func (p *OrphanPool) TakeChildrenOf(hash consensus.Hash) []consensus.Block {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sweepLocked()
	entries := p.byPrev[hash]
	if len(entries) == 0 {
		return nil
	}
	delete(p.byPrev, hash)
	p.count -= len(entries)

	out := make([]consensus.Block, len(entries))
	for i, e := range entries {
		out[i] = e.block
	}
	return out
}

func (p *OrphanPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func (p *OrphanPool) sweepLocked() {
	now := p.now()
	for prev, entries := range p.byPrev {
		kept := entries[:0]
		for _, e := range entries {
			if now.Sub(e.received) < p.ttl {
				kept = append(kept, e)
			} else {
				p.count--
			}
		}
		if len(kept) == 0 {
			delete(p.byPrev, prev)
		} else {
			p.byPrev[prev] = kept
		}
	}
}

// evictOldestLocked drops the single oldest buffered orphan across all
// parent keys.
func (p *OrphanPool) evictOldestLocked() {
	var oldestPrev consensus.Hash
	oldestIdx := -1
	var oldestTime time.Time
	first := true
	for prev, entries := range p.byPrev {
		for i, e := range entries {
			if first || e.received.Before(oldestTime) {
				oldestPrev, oldestIdx, oldestTime, first = prev, i, e.received, false
			}
		}
	}
	if oldestIdx < 0 {
		return
	}
	entries := p.byPrev[oldestPrev]
	entries = append(entries[:oldestIdx], entries[oldestIdx+1:]...)
	if len(entries) == 0 {
		delete(p.byPrev, oldestPrev)
	} else {
		p.byPrev[oldestPrev] = entries
	}
	p.count--
}

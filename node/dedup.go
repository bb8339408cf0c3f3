package node

import (
	"sync"
	"time"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
)

// Deduplicator is the recent-frame cache spec.md §4.10/§5 names: every
// incoming frame is hashed and a recent-set with TTL suppresses replays
// across transports. Grounded on
// original_source/src/node/dedup.rs's MessageDeduplicator: a mutex-
// guarded map swept lazily on insert, not by a background goroutine.
type Deduplicator struct {
	mu   sync.Mutex
	seen map[consensus.Hash]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewDeduplicator(ttl time.Duration) *Deduplicator {
	return &Deduplicator{
		seen: make(map[consensus.Hash]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// CheckAndInsert reports whether data is new. A duplicate frame (seen
// within ttl) returns false and is not re-inserted.
func (d *Deduplicator) CheckAndInsert(data []byte) bool {
	hash := consensus.SHA256(data)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for h, t := range d.seen {
		if now.Sub(t) >= d.ttl {
			delete(d.seen, h)
		}
	}

	if _, dup := d.seen[hash]; dup {
		return false
	}
	d.seen[hash] = now
	return true
}

func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

package node

import (
	"math/big"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
)

// IndexEntry is spec.md §3's BlockIndexEntry: a block's header plus its
// cumulative work, keyed by header hash. The block index grows
// monotonically and never deletes entries (spec.md §3 "Lifecycle and
// ownership").
type IndexEntry struct {
	Header         consensus.BlockHeader
	Transactions   []consensus.Transaction
	CumulativeWork *big.Int
}

// BlockIndex is the hash→entry map plus the children-by-parent derived
// view spec.md §9's design note calls for: parent links are
// one-directional in the data itself, descendant lookup is computed.
// Not safe for concurrent use; callers serialize access (Chain holds
// the lock that protects this).
type BlockIndex struct {
	entries  map[consensus.Hash]*IndexEntry
	children map[consensus.Hash][]consensus.Hash
}

func NewBlockIndex() *BlockIndex {
	return &BlockIndex{
		entries:  make(map[consensus.Hash]*IndexEntry),
		children: make(map[consensus.Hash][]consensus.Hash),
	}
}

// Add inserts a new entry. It does not recompute cumulative work —
// callers (Chain) compute it from the parent entry before calling Add,
// since BlockIndex itself doesn't know which blocks are genesis.
func (idx *BlockIndex) Add(hash consensus.Hash, e *IndexEntry) {
	idx.entries[hash] = e
	parent := e.Header.PrevHash
	idx.children[parent] = append(idx.children[parent], hash)
}

func (idx *BlockIndex) Get(hash consensus.Hash) (*IndexEntry, bool) {
	e, ok := idx.entries[hash]
	return e, ok
}

func (idx *BlockIndex) Has(hash consensus.Hash) bool {
	_, ok := idx.entries[hash]
	return ok
}

func (idx *BlockIndex) Children(hash consensus.Hash) []consensus.Hash {
	return idx.children[hash]
}

func (idx *BlockIndex) Len() int {
	return len(idx.entries)
}

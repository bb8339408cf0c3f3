package node

import (
	"math/big"
	"sync"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
)

// Chain owns the block index, the active best-chain list, and the live
// UTXO set: spec.md §3's "exclusively owned by the node and mutated
// only through serialized critical sections" triple. Grounded on
// teacher node/chainstate.go's ConnectBlock/nextBlockContext pattern
// and node/store/reorg.go's disconnect-then-connect loop, rewritten
// against an in-memory undo log rather than bbolt transactions — this
// repository keeps active chain state in memory and treats
// node/store's bbolt database as the durable, rebuildable copy.
//
// Callers must hold Lock/Unlock around any sequence of reads that must
// observe a consistent tip (spec.md §5's chain lock). Mempool
// admission acquires this lock first when both locks are needed.
type Chain struct {
	mu sync.Mutex

	index        *BlockIndex
	active       []consensus.Hash
	activeHeight map[consensus.Hash]uint64
	utxos        *consensus.UTXOSet
	undo         map[consensus.Hash]consensus.BlockUndo
	orphans      *OrphanPool
	mempool      *Mempool
}

// SubmitResult summarizes the outcome of accepting a block.
type SubmitResult struct {
	Accepted         bool
	Reorged          bool
	TipHash          consensus.Hash
	TipHeight        uint64
	DisconnectedTxs  []consensus.Transaction
	ConfirmedTxs     []consensus.Transaction
	ReofferedOrphans int
}

// NewChain initializes a chain from the hard-coded genesis block
// (spec.md §6). Genesis bypasses ordinary block validation: it has no
// parent and predates the reward schedule, so its revelation
// transaction is applied to the UTXO set directly.
func NewChain(genesis consensus.Block, mempool *Mempool) (*Chain, error) {
	hash := consensus.HeaderHash(genesis.Header)
	utxos := consensus.NewUTXOSet()
	for _, tx := range genesis.Transactions {
		if err := utxos.Apply(tx, consensus.Txid(tx), genesis.Header.Height, nil); err != nil {
			return nil, err
		}
	}

	c := &Chain{
		index:        NewBlockIndex(),
		active:       []consensus.Hash{hash},
		activeHeight: map[consensus.Hash]uint64{hash: 0},
		utxos:        utxos,
		undo:         make(map[consensus.Hash]consensus.BlockUndo),
		orphans:      NewOrphanPool(),
		mempool:      mempool,
	}
	c.index.Add(hash, &IndexEntry{
		Header:         genesis.Header,
		Transactions:   genesis.Transactions,
		CumulativeWork: consensus.WorkFromTarget(genesis.Header.Target),
	})
	return c, nil
}

func (c *Chain) Lock()   { c.mu.Lock() }
func (c *Chain) Unlock() { c.mu.Unlock() }

// TipHash and TipHeight assume the caller already holds the chain lock
// when consistency across multiple calls matters.
func (c *Chain) TipHash() consensus.Hash {
	return c.active[len(c.active)-1]
}

func (c *Chain) TipHeight() uint64 {
	return c.activeHeight[c.TipHash()]
}

// UTXOSnapshot returns the live UTXO set pointer. Callers that need an
// independent copy (e.g. speculative validation) must Clone it
// themselves while still holding the chain lock.
func (c *Chain) UTXOSnapshot() *consensus.UTXOSet {
	return c.utxos
}

func (c *Chain) IndexLen() int {
	return c.index.Len()
}

// ancestorHeaders returns up to n headers ending at (and including)
// hash, walking backward through the index via prev_hash. Works for
// any indexed block, active-chain member or not, since the index keeps
// every accepted header regardless of which branch is currently best.
func (c *Chain) ancestorHeaders(hash consensus.Hash, n int) []consensus.BlockHeader {
	out := make([]consensus.BlockHeader, 0, n)
	cur := hash
	for i := 0; i < n; i++ {
		entry, ok := c.index.Get(cur)
		if !ok {
			break
		}
		out = append(out, entry.Header)
		if entry.Header.Height == 0 {
			break
		}
		cur = entry.Header.PrevHash
	}
	return out
}

// expectedTarget computes the target a block at newHeight must carry,
// given its parent. Implements spec.md §4.4 by delegating the rescale
// math to consensus.NextTarget once the lookback window is assembled.
func (c *Chain) expectedTarget(parentHash consensus.Hash, parentHeight, newHeight uint64) (consensus.Hash, error) {
	parentEntry, ok := c.index.Get(parentHash)
	if !ok {
		return consensus.Hash{}, &consensus.Error{Code: consensus.ErrInternal, Msg: "expectedTarget: unknown parent"}
	}
	if newHeight%consensus.AdjustmentInterval != 0 {
		return parentEntry.Header.Target, nil
	}
	window := c.ancestorHeaders(parentHash, consensus.AdjustmentInterval)
	if len(window) < consensus.AdjustmentInterval {
		return parentEntry.Header.Target, nil
	}
	last := window[0].Timestamp
	first := window[len(window)-1].Timestamp
	return consensus.NextTarget(newHeight, parentEntry.Header.Target, first, last)
}

// SubmitBlock validates and, if warranted, activates b. now is the
// validator's wall clock for the future-drift check.
func (c *Chain) SubmitBlock(b consensus.Block, now int64) (*SubmitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitLocked(b, now)
}

func (c *Chain) submitLocked(b consensus.Block, now int64) (*SubmitResult, error) {
	hash := consensus.HeaderHash(b.Header)
	if c.index.Has(hash) {
		return &SubmitResult{Accepted: true, TipHash: c.TipHash(), TipHeight: c.TipHeight()}, nil
	}

	parentHash := b.Header.PrevHash
	parentEntry, ok := c.index.Get(parentHash)
	if !ok {
		c.orphans.Add(b)
		return nil, &consensus.Error{Code: consensus.ErrMissingParent, Msg: "block: parent not indexed"}
	}

	expectedTarget, err := c.expectedTarget(parentHash, parentEntry.Header.Height, b.Header.Height)
	if err != nil {
		return nil, err
	}
	ancestors := c.ancestorHeaders(parentHash, consensus.MedianTimeSpan)
	ctx := consensus.BlockContext{
		ParentHash:      parentHash,
		ParentHeight:    parentEntry.Header.Height,
		ExpectedTarget:  expectedTarget,
		AncestorHeaders: ancestors,
		Now:             now,
	}
	if err := consensus.ValidateBlockStructure(b, ctx); err != nil {
		return nil, err
	}

	cumWork := new(big.Int).Add(parentEntry.CumulativeWork, consensus.WorkFromTarget(b.Header.Target))
	c.index.Add(hash, &IndexEntry{
		Header:         b.Header,
		Transactions:   b.Transactions,
		CumulativeWork: cumWork,
	})

	result, err := c.tryActivate(hash, parentHash, now)
	if err != nil {
		return nil, err
	}

	reoffered := c.orphans.TakeChildrenOf(hash)
	result.ReofferedOrphans = len(reoffered)
	for _, orphan := range reoffered {
		// Best-effort: a re-offered orphan that still fails (e.g. its
		// own parent is still missing a grandparent) is simply dropped.
		_, _ = c.submitLocked(orphan, now)
	}
	return result, nil
}

// tryActivate decides whether the newly indexed block hash should
// become, or cause a reorg to, the new tip, per spec.md §4.8.
func (c *Chain) tryActivate(hash, parentHash consensus.Hash, now int64) (*SubmitResult, error) {
	tipHash := c.TipHash()
	newEntry, _ := c.index.Get(hash)

	if parentHash == tipHash {
		return c.connect(tipHash, []consensus.Hash{hash}, now)
	}

	tipEntry, _ := c.index.Get(tipHash)
	if newEntry.CumulativeWork.Cmp(tipEntry.CumulativeWork) <= 0 {
		// Side branch that hasn't overtaken the incumbent: indexed but
		// inactive. Ties go to the incumbent (first-seen).
		return &SubmitResult{Accepted: true, TipHash: tipHash, TipHeight: c.activeHeight[tipHash]}, nil
	}

	ancestorHash, ancestorHeight, newBranch, err := c.lowestCommonAncestor(hash)
	if err != nil {
		return nil, err
	}
	return c.reorg(ancestorHash, ancestorHeight, newBranch, now)
}

// lowestCommonAncestor walks back from hash until it reaches a block
// present on the active chain, returning that ancestor and the
// ancestor-exclusive, hash-inclusive branch in ascending order.
func (c *Chain) lowestCommonAncestor(hash consensus.Hash) (consensus.Hash, uint64, []consensus.Hash, error) {
	var branch []consensus.Hash
	cur := hash
	for {
		if height, ok := c.activeHeight[cur]; ok {
			for i, j := 0, len(branch)-1; i < j; i, j = i+1, j-1 {
				branch[i], branch[j] = branch[j], branch[i]
			}
			return cur, height, branch, nil
		}
		branch = append(branch, cur)
		entry, ok := c.index.Get(cur)
		if !ok {
			return consensus.Hash{}, 0, nil, &consensus.Error{Code: consensus.ErrInternal, Msg: "reorg: broken ancestry"}
		}
		cur = entry.Header.PrevHash
	}
}

// connect extends the active chain from ancestorHash through branch
// (ascending, branch[last] is the new tip) by cloning the UTXO set,
// replaying every block, and only committing on full success.
func (c *Chain) connect(ancestorHash consensus.Hash, branch []consensus.Hash, now int64) (*SubmitResult, error) {
	return c.reorg(ancestorHash, c.activeHeight[ancestorHash], branch, now)
}

// reorg performs spec.md §4.8's rollback/replay: disconnect the active
// chain down to ancestorHeight, then connect branch on top. If replay
// of any block in branch fails, the previous active state is left
// untouched (the scratch UTXO clone is simply discarded).
func (c *Chain) reorg(ancestorHash consensus.Hash, ancestorHeight uint64, branch []consensus.Hash, now int64) (*SubmitResult, error) {
	scratch := c.utxos.Clone()

	var disconnectedBlocks []consensus.Block
	for i := len(c.active) - 1; uint64(i) > ancestorHeight; i-- {
		h := c.active[i]
		entry, _ := c.index.Get(h)
		scratch.Undo(c.undo[h])
		disconnectedBlocks = append(disconnectedBlocks, consensus.Block{Header: entry.Header, Transactions: entry.Transactions})
	}

	newUndo := make(map[consensus.Hash]consensus.BlockUndo, len(branch))
	parentHash := ancestorHash
	parentHeight := ancestorHeight
	var confirmedTxs []consensus.Transaction

	for _, h := range branch {
		entry, ok := c.index.Get(h)
		if !ok {
			return nil, &consensus.Error{Code: consensus.ErrInternal, Msg: "reorg: missing branch entry"}
		}
		expectedTarget, err := c.expectedTarget(parentHash, parentHeight, entry.Header.Height)
		if err != nil {
			return nil, err
		}
		ancestors := c.ancestorHeaders(parentHash, consensus.MedianTimeSpan)
		ctx := consensus.BlockContext{
			ParentHash:      parentHash,
			ParentHeight:    parentHeight,
			ExpectedTarget:  expectedTarget,
			AncestorHeaders: ancestors,
			Now:             now,
		}
		block := consensus.Block{Header: entry.Header, Transactions: entry.Transactions}
		result, err := consensus.ApplyBlock(block, ctx, scratch)
		if err != nil {
			return nil, err
		}
		newUndo[h] = result.Undo
		confirmedTxs = append(confirmedTxs, entry.Transactions...)
		parentHash = h
		parentHeight = entry.Header.Height
	}

	newActive := append([]consensus.Hash(nil), c.active[:ancestorHeight+1]...)
	newActive = append(newActive, branch...)
	newActiveHeight := make(map[consensus.Hash]uint64, len(newActive))
	for i, h := range newActive {
		newActiveHeight[h] = uint64(i)
	}

	c.utxos = scratch
	c.active = newActive
	c.activeHeight = newActiveHeight
	for h, u := range newUndo {
		c.undo[h] = u
	}

	var disconnectedTxs []consensus.Transaction
	for _, b := range disconnectedBlocks {
		for _, tx := range b.Transactions {
			if !tx.IsCoinbase() {
				disconnectedTxs = append(disconnectedTxs, tx)
			}
		}
	}

	if c.mempool != nil {
		c.mempool.RemoveConfirmed(confirmedTxs)
		if len(disconnectedBlocks) > 0 {
			c.mempool.ResurrectFromOrphans(disconnectedBlocks, c.utxos, c.TipHeight())
		}
	}

	return &SubmitResult{
		Accepted:        true,
		Reorged:         len(disconnectedBlocks) > 0,
		TipHash:         c.TipHash(),
		TipHeight:       c.TipHeight(),
		DisconnectedTxs: disconnectedTxs,
		ConfirmedTxs:    confirmedTxs,
	}, nil
}

package node

import (
	"math/big"
	"sort"
	"sync"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
)

// MempoolEntry is spec.md §3's MempoolEntry, one validated transaction
// awaiting confirmation.
type MempoolEntry struct {
	Transaction consensus.Transaction
	Fee         uint64
	Size        int
	ArrivalTime int64
}

// Mempool implements spec.md §4.9: admission, fee-rate eviction, and
// block templating. State is an ordered slice of entries plus a set of
// outpoints reserved by pending transactions, grounded on
// original_source/src/node/mempool.rs's shape (entries Vec +
// spent_outpoints set), reimplemented against this repo's consensus
// types with a mutex since the node driver calls in from multiple
// goroutines.
type Mempool struct {
	mu       sync.Mutex
	entries  []MempoolEntry
	reserved map[consensus.Outpoint]struct{}
	maxSize  int
	now      func() int64
}

func NewMempool(maxSize int, now func() int64) *Mempool {
	if maxSize <= 0 {
		maxSize = consensus.MaxMempoolTxs
	}
	if now == nil {
		now = func() int64 { return 0 }
	}
	return &Mempool{
		entries:  nil,
		reserved: make(map[consensus.Outpoint]struct{}),
		maxSize:  maxSize,
		now:      now,
	}
}

func (mp *Mempool) Len() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return len(mp.entries)
}

// Admit runs spec.md §4.9's admission policy against tx. utxos is the
// UTXO snapshot at the current tip; height is the current tip height.
func (mp *Mempool) Admit(tx consensus.Transaction, utxos *consensus.UTXOSet, height uint64) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if tx.IsCoinbase() {
		return &consensus.Error{Code: consensus.ErrMalformed, Msg: "mempool: coinbase rejected"}
	}

	raw := consensus.SerializeTransaction(tx)
	if len(raw) > consensus.MaxTxSize {
		return &consensus.Error{Code: consensus.ErrMalformed, Msg: "mempool: transaction exceeds size policy"}
	}

	for _, in := range tx.Inputs {
		if _, reserved := mp.reserved[in.Prev]; reserved {
			return &consensus.Error{Code: consensus.ErrDoubleSpend, Msg: "mempool: outpoint already reserved"}
		}
	}

	fee, err := consensus.ValidateTransaction(tx, utxos, height)
	if err != nil {
		return err
	}
	if fee == 0 {
		return &consensus.Error{Code: consensus.ErrInsufficientFee, Msg: "mempool: zero fee"}
	}

	entry := MempoolEntry{
		Transaction: tx,
		Fee:         fee,
		Size:        len(raw),
		ArrivalTime: mp.now(),
	}
	mp.entries = append(mp.entries, entry)
	for _, in := range tx.Inputs {
		mp.reserved[in.Prev] = struct{}{}
	}

	if len(mp.entries) > mp.maxSize {
		mp.evictLocked()
	}
	return nil
}

// feeRateLess reports whether a's fee-rate is strictly less than b's,
// using cross-multiplication (a.fee*b.size vs b.fee*a.size) to avoid
// both floating point and division (spec.md §4.9).
func feeRateLess(a, b MempoolEntry) bool {
	lhs := new(big.Int).Mul(new(big.Int).SetUint64(a.Fee), big.NewInt(int64(b.Size)))
	rhs := new(big.Int).Mul(new(big.Int).SetUint64(b.Fee), big.NewInt(int64(a.Size)))
	return lhs.Cmp(rhs) < 0
}

// evictLocked drops the single lowest fee-rate entry once the pool
// exceeds its cap, matching original_source/src/node/mempool.rs's
// sort-then-truncate policy but removing one entry at a time since
// admission only ever grows the pool by one.
func (mp *Mempool) evictLocked() {
	if len(mp.entries) == 0 {
		return
	}
	worst := 0
	for i := 1; i < len(mp.entries); i++ {
		if feeRateLess(mp.entries[i], mp.entries[worst]) {
			worst = i
		}
	}
	mp.entries = append(mp.entries[:worst], mp.entries[worst+1:]...)
	mp.rebuildReservedLocked()
}

func (mp *Mempool) rebuildReservedLocked() {
	mp.reserved = make(map[consensus.Outpoint]struct{}, len(mp.entries)*2)
	for _, e := range mp.entries {
		for _, in := range e.Transaction.Inputs {
			mp.reserved[in.Prev] = struct{}{}
		}
	}
}

// SortedForMining returns transactions in descending fee-rate order,
// subject to maxTxs and maxBytes (spec.md §4.9's policy-only template).
func (mp *Mempool) SortedForMining(maxTxs int, maxBytes int) []consensus.Transaction {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	ordered := append([]MempoolEntry(nil), mp.entries...)
	sort.Slice(ordered, func(i, j int) bool {
		return feeRateLess(ordered[j], ordered[i])
	})

	out := make([]consensus.Transaction, 0, len(ordered))
	totalBytes := 0
	for _, e := range ordered {
		if maxTxs > 0 && len(out) >= maxTxs {
			break
		}
		if maxBytes > 0 && totalBytes+e.Size > maxBytes {
			continue
		}
		out = append(out, e.Transaction)
		totalBytes += e.Size
	}
	return out
}

// RemoveConfirmed drops entries whose txid appears in confirmed.
func (mp *Mempool) RemoveConfirmed(confirmed []consensus.Transaction) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	confirmedIDs := make(map[consensus.Hash]struct{}, len(confirmed))
	for _, tx := range confirmed {
		confirmedIDs[consensus.Txid(tx)] = struct{}{}
	}
	kept := mp.entries[:0:0]
	for _, e := range mp.entries {
		if _, ok := confirmedIDs[consensus.Txid(e.Transaction)]; ok {
			continue
		}
		kept = append(kept, e)
	}
	mp.entries = kept
	mp.rebuildReservedLocked()
}

// ResurrectFromOrphans re-offers the non-coinbase transactions of
// disconnected blocks through normal admission, silently dropping any
// that now fail (spec.md §4.9).
func (mp *Mempool) ResurrectFromOrphans(blocks []consensus.Block, utxos *consensus.UTXOSet, height uint64) {
	for _, b := range blocks {
		for _, tx := range b.Transactions {
			if tx.IsCoinbase() {
				continue
			}
			_ = mp.Admit(tx, utxos, height)
		}
	}
}

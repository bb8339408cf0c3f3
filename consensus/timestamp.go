package consensus

import "sort"

// MedianTimePast returns the median timestamp of ancestors, the
// standard defense against a single colluding miner skewing chain time.
// ancestors should be the up-to-MedianTimeSpan most recent ancestor
// headers, in any order; fewer than MedianTimeSpan is fine (used early
// in a chain's life). A longer slice is cut down to its last
// MedianTimeSpan entries, which are the most recent only when the
// slice is ordered oldest first.
func MedianTimePast(ancestors []BlockHeader) int64 {
	if len(ancestors) == 0 {
		return 0
	}
	n := len(ancestors)
	if n > MedianTimeSpan {
		ancestors = ancestors[n-MedianTimeSpan:]
		n = MedianTimeSpan
	}
	ts := make([]int64, n)
	for i, h := range ancestors {
		ts[i] = h.Timestamp
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts[n/2]
}

// ValidateTimestamp enforces spec.md's two timestamp rules, resolved
// from the design notes' open question: the header must be strictly
// newer than the median of recent ancestors, and not further ahead of
// now than MaxFutureDrift. ancestors is empty for genesis, which is
// exempt from both checks.
func ValidateTimestamp(h BlockHeader, ancestors []BlockHeader, now int64) error {
	if len(ancestors) == 0 {
		return nil
	}
	if h.Timestamp <= MedianTimePast(ancestors) {
		return newErr(ErrTimestampOld, "timestamp not after median time past")
	}
	if h.Timestamp > now+MaxFutureDrift {
		return newErr(ErrTimestampFuture, "timestamp too far in the future")
	}
	return nil
}

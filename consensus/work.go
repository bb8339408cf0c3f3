package consensus

import "math/big"

var two256 = new(big.Int).Lsh(big.NewInt(1), 256)

// WorkFromTarget computes a single block's contribution to cumulative
// work: floor(2^256 / (target + 1)). Using target+1 keeps the result
// finite and well-defined at target == MaxTarget, matching the
// glossary's definition exactly.
func WorkFromTarget(target Hash) *big.Int {
	t := new(big.Int).SetBytes(target[:])
	denom := new(big.Int).Add(t, big.NewInt(1))
	return new(big.Int).Div(two256, denom)
}

// ChainWork sums WorkFromTarget over an ordered list of targets, one
// per block from genesis (or any starting point) to a chain tip.
func ChainWork(targets []Hash) *big.Int {
	total := new(big.Int)
	for _, t := range targets {
		total.Add(total, WorkFromTarget(t))
	}
	return total
}

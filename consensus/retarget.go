package consensus

import "math/big"

// NextTarget computes the target a block at height must carry, given
// its parent's target and the timestamps bounding the lookback window
// ending at the parent. height is the height of the block being
// produced (not its parent).
//
// Retargets happen only at interval boundaries (height % AdjustmentInterval
// == 0); every other height inherits parentTarget unchanged. All
// arithmetic is exact 256-bit integer math via math/big — floating
// point is forbidden here because it would round differently across
// platforms and silently fork the chain.
func NextTarget(height uint64, parentTarget Hash, windowFirstTimestamp, windowLastTimestamp int64) (Hash, error) {
	if height%AdjustmentInterval != 0 {
		return parentTarget, nil
	}

	actualTime := windowLastTimestamp - windowFirstTimestamp
	if actualTime <= 0 {
		return parentTarget, nil
	}

	expectedTime := int64(TargetBlockInterval) * int64(AdjustmentInterval)

	lowBound := expectedTime / 4
	highBound := expectedTime * 4
	if actualTime < lowBound {
		actualTime = lowBound
	}
	if actualTime > highBound {
		actualTime = highBound
	}

	oldTarget := new(big.Int).SetBytes(parentTarget[:])
	num := new(big.Int).Mul(oldTarget, big.NewInt(actualTime))
	newTarget := new(big.Int).Div(num, big.NewInt(expectedTime))

	minT := new(big.Int).SetBytes(MinTarget[:])
	maxT := new(big.Int).SetBytes(MaxTarget[:])
	if newTarget.Cmp(minT) < 0 {
		newTarget = minT
	}
	if newTarget.Cmp(maxT) > 0 {
		newTarget = maxT
	}

	return bigIntToHash(newTarget)
}

func bigIntToHash(x *big.Int) (Hash, error) {
	var out Hash
	if x.Sign() < 0 {
		return out, newErr(ErrInternal, "retarget: negative target")
	}
	b := x.Bytes()
	if len(b) > 32 {
		return out, newErr(ErrInternal, "retarget: target overflows 256 bits")
	}
	copy(out[32-len(b):], b)
	return out, nil
}

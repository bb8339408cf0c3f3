// Package consensus implements the deterministic core of the ledgerd
// node: canonical serialization, proof-of-work, difficulty retarget,
// UTXO state transition, transaction and block validation, and fork
// choice. Nothing in this package performs I/O or holds mutable shared
// state; it is a pure library consumed by the node driver.
package consensus

// Network parameters. These are non-negotiable: changing any of them
// changes which chain a node will accept and is a hard fork.
const (
	// TargetBlockInterval is the desired average seconds between blocks.
	TargetBlockInterval = 600

	// AdjustmentInterval is the number of blocks between difficulty
	// retargets. Retargets occur only at heights where height % N == 0.
	AdjustmentInterval = 2016

	// CoinbaseMaturity is the number of confirmations a coinbase output
	// must accumulate before it can be spent.
	CoinbaseMaturity = 100

	// MaxFutureDrift bounds how far into the future a block timestamp
	// may be, relative to the validator's local clock.
	MaxFutureDrift = 2 * 60 * 60

	// MedianTimeSpan is the number of ancestor headers used to compute
	// median time past.
	MedianTimeSpan = 11

	// MaxTxSize is the maximum canonical-serialized size of a single
	// transaction accepted into the mempool. It is a policy limit, not
	// a block-validity rule.
	MaxTxSize = 100_000

	// MaxBlockSize is the maximum canonical-serialized size of a block.
	MaxBlockSize = 4_000_000

	// MaxMempoolTxs bounds mempool growth; the lowest fee-rate entries
	// are evicted once this is exceeded.
	MaxMempoolTxs = 50_000

	// MaxBlockTxs and MaxBlockTxBytes bound the miner's block template.
	// These are policy limits used by Mempool.SortedForMining; a block
	// that exceeds them is still consensus-valid as long as it respects
	// MaxBlockSize.
	MaxBlockTxs     = 20_000
	MaxBlockTxBytes = 3_500_000

	// HalvingInterval is the height spacing between block reward halvings.
	HalvingInterval = 210_000

	// InitialReward is the block subsidy paid at height 1, before any
	// halving, denominated in base units.
	InitialReward = 50_0000_0000

	// GenesisTimestamp is the fixed Unix timestamp carried by the
	// hard-coded genesis block (scenario S1).
	GenesisTimestamp = 1_730_000_000
)

// MaxTarget is the easiest allowed proof-of-work target: 32 bytes of
// 0xFF, interpreted big-endian. It is also the genesis block's target.
var MaxTarget = [32]byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// MinTarget is the hardest allowed proof-of-work target, the lower
// clamp bound for retargeting.
var MinTarget = [32]byte{
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0x01,
}

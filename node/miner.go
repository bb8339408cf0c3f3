package node

import (
	"context"
	"errors"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
)

// MinerConfig configures block template assembly and the PoW search
// loop. Grounded on teacher node/miner.go's MinerConfig, trimmed of the
// witness-commitment fields the teacher's SegWit-style covenant model
// needs and this domain does not have.
type MinerConfig struct {
	PubkeyHash      consensus.Hash
	TimestampSource func() int64
	MaxTxs          int
	MaxBytes        int
}

func DefaultMinerConfig(pubkeyHash consensus.Hash) MinerConfig {
	return MinerConfig{
		PubkeyHash: pubkeyHash,
		MaxTxs:     consensus.MaxBlockTxs,
		MaxBytes:   consensus.MaxBlockTxBytes,
	}
}

// MinedBlock summarizes a block produced by the miner, separate from
// the full consensus.Block so callers that only care about headline
// numbers don't have to walk the transaction list.
type MinedBlock struct {
	Block   consensus.Block
	Hash    consensus.Hash
	Height  uint64
	TxCount int
}

// Miner assembles block templates from the mempool and searches for a
// valid nonce, then submits the result to chain. It never holds the
// chain lock across the PoW search: template data is snapshotted,
// the lock released, and only SubmitBlock (which locks internally)
// touches the chain again. Grounded on teacher node/miner.go's MineOne,
// adapted from raw-byte tx selection to this package's Mempool and
// from a witness-commitment coinbase to a single-output coinbase.
type Miner struct {
	chain   *Chain
	mempool *Mempool
	cfg     MinerConfig
}

func NewMiner(chain *Chain, mempool *Mempool, cfg MinerConfig) (*Miner, error) {
	if chain == nil {
		return nil, errors.New("nil chain")
	}
	if mempool == nil {
		return nil, errors.New("nil mempool")
	}
	if cfg.TimestampSource == nil {
		return nil, errors.New("nil timestamp source")
	}
	if cfg.MaxTxs <= 0 {
		cfg.MaxTxs = consensus.MaxBlockTxs
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = consensus.MaxBlockTxBytes
	}
	return &Miner{chain: chain, mempool: mempool, cfg: cfg}, nil
}

// template is what the chain lock's critical section produces; the PoW
// search runs against it unlocked.
type template struct {
	tipHash        consensus.Hash
	nextHeight     uint64
	expectedTarget consensus.Hash
	ancestors      []consensus.BlockHeader
	utxos          *consensus.UTXOSet
}

func (m *Miner) snapshotTemplate() (*template, error) {
	m.chain.Lock()
	defer m.chain.Unlock()

	tipHash := m.chain.TipHash()
	tipHeight := m.chain.TipHeight()
	nextHeight := tipHeight + 1
	expectedTarget, err := m.chain.expectedTarget(tipHash, tipHeight, nextHeight)
	if err != nil {
		return nil, err
	}
	ancestors := m.chain.ancestorHeaders(tipHash, consensus.MedianTimeSpan)
	return &template{
		tipHash:        tipHash,
		nextHeight:     nextHeight,
		expectedTarget: expectedTarget,
		ancestors:      ancestors,
		utxos:          m.chain.UTXOSnapshot().Clone(),
	}, nil
}

// chooseMiningTimestamp mirrors teacher node/miner.go's
// chooseValidTimestamp: prefer wall-clock time if it already satisfies
// both timestamp rules, otherwise bump just past the median.
func chooseMiningTimestamp(ancestors []consensus.BlockHeader, now int64) int64 {
	if len(ancestors) == 0 {
		return now
	}
	mtp := consensus.MedianTimePast(ancestors)
	if now > mtp && now <= mtp+consensus.MaxFutureDrift {
		return now
	}
	return mtp + 1
}

// MineOne assembles one block template from the mempool and searches
// for a valid nonce, bumping the timestamp forward (spec.md §9.2) if
// the entire 64-bit nonce space is exhausted without success — this
// never happens at devnet difficulty but keeps the loop correct in
// principle. It returns nil, nil if ctx is canceled before a block is
// found.
func (m *Miner) MineOne(ctx context.Context) (*MinedBlock, error) {
	tpl, err := m.snapshotTemplate()
	if err != nil {
		return nil, err
	}

	candidates := m.mempool.SortedForMining(m.cfg.MaxTxs, m.cfg.MaxBytes)
	included := make([]consensus.Transaction, 0, len(candidates))
	var totalFees uint64
	for _, tx := range candidates {
		fee, err := consensus.ValidateTransaction(tx, tpl.utxos, tpl.nextHeight)
		if err != nil {
			continue
		}
		if err := tpl.utxos.Apply(tx, consensus.Txid(tx), tpl.nextHeight, nil); err != nil {
			continue
		}
		included = append(included, tx)
		totalFees += fee
	}

	coinbase := consensus.Transaction{
		Outputs: []consensus.TxOutput{
			{Value: consensus.BlockReward(tpl.nextHeight) + totalFees, PubkeyHash: m.cfg.PubkeyHash},
		},
	}
	allTxs := make([]consensus.Transaction, 0, len(included)+1)
	allTxs = append(allTxs, coinbase)
	allTxs = append(allTxs, included...)
	merkleRoot := consensus.MerkleRoot(allTxs)

	timestamp := chooseMiningTimestamp(tpl.ancestors, m.cfg.TimestampSource())

	header := consensus.BlockHeader{
		Height:     tpl.nextHeight,
		Timestamp:  timestamp,
		PrevHash:   tpl.tipHash,
		Nonce:      0,
		Target:     tpl.expectedTarget,
		MerkleRoot: merkleRoot,
	}

	for {
		select {
		case <-ctx.Done():
			return nil, nil
		default:
		}

		if err := consensus.ValidatePoW(header); err == nil {
			break
		}
		header.Nonce++
		if header.Nonce == 0 {
			header.Timestamp++
			if header.Timestamp > m.cfg.TimestampSource()+consensus.MaxFutureDrift {
				return nil, errors.New("miner: exhausted nonce and timestamp space without finding a valid header")
			}
		}
	}

	block := consensus.Block{Header: header, Transactions: allTxs}
	if _, err := m.chain.SubmitBlock(block, m.cfg.TimestampSource()); err != nil {
		return nil, err
	}
	return &MinedBlock{
		Block:   block,
		Hash:    consensus.HeaderHash(header),
		Height:  header.Height,
		TxCount: len(allTxs),
	}, nil
}

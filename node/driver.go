package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
	"github.com/coachworld-cj-coin/ledgerd/log"
	"github.com/coachworld-cj-coin/ledgerd/node/p2p"
	"github.com/coachworld-cj-coin/ledgerd/node/store"
)

// DriverState is spec.md §4.10's two-state node driver.
type DriverState int

const (
	StateSyncing DriverState = iota
	StateNormal
)

func (s DriverState) String() string {
	if s == StateNormal {
		return "normal"
	}
	return "syncing"
}

// tickInterval is how often the driver's main loop wakes to evaluate
// the quiet-period and mining conditions. It is independent of the
// mining cadence itself: MineOne blocks until it finds a nonce, which
// at devnet difficulty is effectively immediate.
const tickInterval = 200 * time.Millisecond

// Driver implements spec.md §4.10: Syncing broadcasts a sync request
// and only accepts blocks; Normal periodically mines and broadcasts.
// Incoming messages are dispatched identically in both states.
// Grounded on teacher node/sync.go's SyncEngine (IBD detection via
// tip-height quiescence) composed with node/p2p_runtime.go's
// peer-manager dispatch shape, collapsed into a single driver since
// this repository has one peer-manager, not a pluggable transport
// registry.
type Driver struct {
	chain     *Chain
	mempool   *Mempool
	miner     *Miner
	transport p2p.Transport
	dedup     *Deduplicator
	cfg       Config
	now       func() int64
	store     *store.DB

	mu            sync.Mutex
	state         DriverState
	lastHeight    uint64
	lastChangedAt time.Time
}

func NewDriver(chain *Chain, mempool *Mempool, miner *Miner, transport p2p.Transport, cfg Config, now func() int64) *Driver {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Driver{
		chain:     chain,
		mempool:   mempool,
		miner:     miner,
		transport: transport,
		dedup:     NewDeduplicator(10 * time.Minute),
		cfg:       cfg,
		now:       now,
		state:     StateSyncing,
	}
}

// SetStore attaches a durable block store. Optional: a driver with no
// store still runs correctly, it just has nothing to replay from on
// the next restart beyond the periodic chain.json/utxo.json snapshot.
func (d *Driver) SetStore(db *store.DB) {
	d.store = db
}

// SetTransport attaches the transport after construction, breaking the
// construction cycle between a Transport (which needs a Handler) and a
// Driver (which needs a Transport to broadcast on): callers build the
// driver first, pass it as the transport's handler, then wire it back
// here.
func (d *Driver) SetTransport(transport p2p.Transport) {
	d.transport = transport
}

func (d *Driver) State() DriverState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Run is the driver's main loop. spec.md §5's "Cancellation" section
// notes this system has no mid-flight cancellation by design; this
// loop still honors ctx so tests and a clean shutdown path can stop
// it deterministically, per the section's own recommendation.
func (d *Driver) Run(ctx context.Context) error {
	d.enterSyncing()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *Driver) enterSyncing() {
	d.mu.Lock()
	d.state = StateSyncing
	d.lastHeight = d.chain.TipHeight()
	d.lastChangedAt = time.Now()
	d.mu.Unlock()

	log.Node.Info().Uint64("tip_height", d.lastHeight).Msg("entering syncing state")
	height := d.chain.TipHeight()
	if d.transport != nil {
		if err := d.transport.Broadcast(p2p.SyncRequestMessage(height)); err != nil {
			log.Node.Warn().Err(err).Msg("failed to broadcast sync request")
		}
	}
}

// tick evaluates the state transition and, in Normal state, mines one
// block.
func (d *Driver) tick() {
	d.chain.Lock()
	height := d.chain.TipHeight()
	d.chain.Unlock()

	d.mu.Lock()
	if height != d.lastHeight {
		d.lastHeight = height
		d.lastChangedAt = time.Now()
	}
	state := d.state
	quiet := time.Since(d.lastChangedAt) >= time.Duration(d.cfg.IBDQuietPeriodSeconds)*time.Second
	d.mu.Unlock()

	if state == StateSyncing {
		if quiet && height > 0 {
			d.mu.Lock()
			d.state = StateNormal
			d.mu.Unlock()
			log.Node.Info().Uint64("tip_height", height).Msg("leaving syncing state")
		}
		return
	}

	if d.miner == nil {
		return
	}
	mined, err := d.miner.MineOne(context.Background())
	if err != nil {
		log.Node.Error().Err(err).Msg("mining attempt failed")
		return
	}
	if mined == nil {
		return
	}
	log.Node.Info().Uint64("height", mined.Height).Int("tx_count", mined.TxCount).Msg("mined block")
	d.persistBlock(mined.Hash, mined.Block)
	if d.transport != nil {
		if err := d.transport.Broadcast(p2p.BlockMessage(mined.Block)); err != nil {
			log.Node.Warn().Err(err).Msg("failed to broadcast mined block")
		}
	}
}

// HandleMessage implements p2p.Handler, dispatching every inbound
// message identically regardless of driver state (spec.md §4.10).
// Deduplication happens here, keyed on the message's own encoding, so
// the same frame arriving over multiple transports is only processed
// once (spec.md §5's dedup cache).
func (d *Driver) HandleMessage(peerAddr string, m p2p.Message) error {
	raw, err := p2p.EncodeMessage(m)
	if err != nil {
		return nil
	}
	if !d.dedup.CheckAndInsert(append([]byte{m.Tag}, raw...)) {
		return nil
	}

	switch m.Tag {
	case p2p.TagHello:
		if m.Version != p2p.ProtocolVersion {
			log.P2P.Warn().Str("peer", peerAddr).Uint32("version", m.Version).Msg("protocol version mismatch")
			return fmt.Errorf("p2p: protocol version mismatch with %s", peerAddr)
		}
		return nil

	case p2p.TagGetAddr:
		if d.transport != nil {
			_ = d.transport.Send(peerAddr, p2p.AddrMessage(d.transport.Peers()))
		}
		return nil

	case p2p.TagAddr, p2p.TagPing, p2p.TagPong:
		return nil

	case p2p.TagSyncRequest:
		d.streamBlocksTo(peerAddr, m.FromHeight)
		return nil

	case p2p.TagBlock:
		if m.Block == nil {
			return nil
		}
		d.ingestBlock(*m.Block)
		return nil

	case p2p.TagTransaction:
		if m.Transaction == nil {
			return nil
		}
		d.ingestTransaction(*m.Transaction)
		return nil

	default:
		return nil
	}
}

func (d *Driver) ingestBlock(b consensus.Block) {
	hash := consensus.HeaderHash(b.Header)
	d.chain.Lock()
	_, err := d.chain.submitLocked(b, d.now())
	d.chain.Unlock()
	if err != nil {
		log.Chain.Debug().Err(err).Msg("block rejected")
		return
	}
	d.persistBlock(hash, b)
}

// persistBlock writes a block, its header, and its undo log (when one
// was recorded) to the durable store. Best effort: a failed write is
// logged, not fatal, since node/store is a rebuildable cache of the
// in-memory chain, never its source of truth while the process is up.
func (d *Driver) persistBlock(hash consensus.Hash, b consensus.Block) {
	if d.store == nil {
		return
	}
	if err := d.store.PutHeader(hash, b.Header); err != nil {
		log.Store.Warn().Err(err).Msg("failed to persist block header")
	}
	if err := d.store.PutBlock(hash, b); err != nil {
		log.Store.Warn().Err(err).Msg("failed to persist block body")
	}
	if entry, ok := d.chain.IndexEntryFor(hash); ok {
		idx := store.IndexEntry{
			Height:         entry.Header.Height,
			PrevHash:       entry.Header.PrevHash,
			CumulativeWork: entry.CumulativeWork,
		}
		if err := d.store.PutIndex(hash, idx); err != nil {
			log.Store.Warn().Err(err).Msg("failed to persist block index entry")
		}
	}
	if undo, ok := d.chain.UndoFor(hash); ok {
		if err := d.store.PutUndo(hash, undo); err != nil {
			log.Store.Warn().Err(err).Msg("failed to persist block undo log")
		}
	}
}

func (d *Driver) ingestTransaction(tx consensus.Transaction) {
	if d.mempool == nil {
		return
	}
	d.chain.Lock()
	utxos := d.chain.UTXOSnapshot()
	height := d.chain.TipHeight()
	d.chain.Unlock()

	if err := d.mempool.Admit(tx, utxos, height); err != nil {
		log.Mempool.Debug().Err(err).Msg("transaction rejected")
	}
}

// streamBlocksTo sends every block from fromHeight to the current tip,
// in order, per spec.md §6's SyncRequest semantics.
func (d *Driver) streamBlocksTo(peerAddr string, fromHeight uint64) {
	if d.transport == nil {
		return
	}
	d.chain.Lock()
	hashes := append([]consensus.Hash(nil), d.chain.active...)
	index := d.chain.index
	d.chain.Unlock()

	if fromHeight >= uint64(len(hashes)) {
		return
	}
	for _, h := range hashes[fromHeight:] {
		entry, ok := index.Get(h)
		if !ok {
			continue
		}
		block := consensus.Block{Header: entry.Header, Transactions: entry.Transactions}
		if err := d.transport.Send(peerAddr, p2p.BlockMessage(block)); err != nil {
			log.P2P.Debug().Err(err).Str("peer", peerAddr).Msg("failed to stream block")
			return
		}
	}
}

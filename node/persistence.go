package node

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
	"github.com/coachworld-cj-coin/ledgerd/log"
	"github.com/coachworld-cj-coin/ledgerd/node/store"
)

const (
	chainSnapshotFile = "chain.json"
	utxoSnapshotFile  = "utxo.json"
	snapshotVersion   = 1
)

// chainSnapshot is the on-disk shape of chain.json: a flat description
// of the active chain, rewritten wholesale on every save. Grounded on
// original_source/src/chain.rs, which SPEC_FULL.md's persistence
// section confirms is "a flat block list... loaded eagerly at startup
// and rewritten wholesale."
type chainSnapshot struct {
	Version     int      `json:"version"`
	TipHash     string   `json:"tip_hash"`
	Height      uint64   `json:"height"`
	ActiveChain []string `json:"active_chain"`
}

type utxoSnapshotEntry struct {
	Txid           string `json:"txid"`
	Vout           uint32 `json:"vout"`
	Value          uint64 `json:"value"`
	PubkeyHash     string `json:"pubkey_hash"`
	CreationHeight uint64 `json:"creation_height"`
	IsCoinbase     bool   `json:"is_coinbase"`
}

type utxoSnapshotFileShape struct {
	Version int                 `json:"version"`
	Entries []utxoSnapshotEntry `json:"entries"`
}

// SaveChainSnapshot writes chain.json atomically: a full rewrite, not
// an append, matching the teacher's writeFileAtomic("%s.tmp.%d")
// pattern in node/chainstate.go.
func SaveChainSnapshot(dataDir string, activeChain []consensus.Hash) error {
	if len(activeChain) == 0 {
		return fmt.Errorf("node: save chain snapshot: empty chain")
	}
	snap := chainSnapshot{
		Version:     snapshotVersion,
		TipHash:     hex.EncodeToString(activeChain[len(activeChain)-1][:]),
		Height:      uint64(len(activeChain) - 1),
		ActiveChain: make([]string, len(activeChain)),
	}
	for i, h := range activeChain {
		snap.ActiveChain[i] = hex.EncodeToString(h[:])
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("node: encode chain snapshot: %w", err)
	}
	raw = append(raw, '\n')
	return writeFileAtomic(filepath.Join(dataDir, chainSnapshotFile), raw)
}

// LoadChainSnapshot reads chain.json, returning (nil, false, nil) if
// the file has never been written.
func LoadChainSnapshot(dataDir string) ([]consensus.Hash, bool, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, chainSnapshotFile))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var snap chainSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, fmt.Errorf("node: decode chain snapshot: %w", err)
	}
	chain := make([]consensus.Hash, len(snap.ActiveChain))
	for i, s := range snap.ActiveChain {
		h, err := decodeHash(s)
		if err != nil {
			return nil, false, fmt.Errorf("node: chain snapshot entry %d: %w", i, err)
		}
		chain[i] = h
	}
	return chain, true, nil
}

// SaveUTXOSnapshot writes utxo.json, a flattened dump of the entire
// UTXO set, also a full rewrite per the teacher's Save()/Utxos map
// shape.
func SaveUTXOSnapshot(dataDir string, utxos *consensus.UTXOSet) error {
	entries := make([]utxoSnapshotEntry, 0, utxos.Len())
	utxos.Each(func(op consensus.Outpoint, e consensus.UTXOEntry) {
		entries = append(entries, utxoSnapshotEntry{
			Txid:           hex.EncodeToString(op.Txid[:]),
			Vout:           op.Vout,
			Value:          e.Value,
			PubkeyHash:     hex.EncodeToString(e.PubkeyHash[:]),
			CreationHeight: e.CreationHeight,
			IsCoinbase:     e.IsCoinbase,
		})
	})
	raw, err := json.MarshalIndent(utxoSnapshotFileShape{Version: snapshotVersion, Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("node: encode utxo snapshot: %w", err)
	}
	raw = append(raw, '\n')
	return writeFileAtomic(filepath.Join(dataDir, utxoSnapshotFile), raw)
}

// LoadUTXOSnapshot reads utxo.json, returning (nil, false, nil) if the
// file has never been written.
func LoadUTXOSnapshot(dataDir string) (*consensus.UTXOSet, bool, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, utxoSnapshotFile))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var shape utxoSnapshotFileShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, false, fmt.Errorf("node: decode utxo snapshot: %w", err)
	}
	utxos := consensus.NewUTXOSet()
	for i, e := range shape.Entries {
		txid, err := decodeHash(e.Txid)
		if err != nil {
			return nil, false, fmt.Errorf("node: utxo snapshot entry %d: %w", i, err)
		}
		pubkeyHash, err := decodeHash(e.PubkeyHash)
		if err != nil {
			return nil, false, fmt.Errorf("node: utxo snapshot entry %d: %w", i, err)
		}
		op := consensus.Outpoint{Txid: txid, Vout: e.Vout}
		utxos.Put(op, consensus.UTXOEntry{
			Value:          e.Value,
			PubkeyHash:     pubkeyHash,
			CreationHeight: e.CreationHeight,
			IsCoinbase:     e.IsCoinbase,
		})
	}
	return utxos, true, nil
}

func decodeHash(s string) (consensus.Hash, error) {
	var h consensus.Hash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("expected %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmpPath := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// ActiveChainHashes returns the full active chain as a hash slice,
// genesis first, for snapshotting.
func (c *Chain) ActiveChainHashes() []consensus.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]consensus.Hash, len(c.active))
	copy(out, c.active)
	return out
}

// UndoFor returns the undo log recorded for hash when it was last
// connected to the active chain, if any. Used by the store-backed
// persistence path to write a durable undo log alongside each block.
func (c *Chain) UndoFor(hash consensus.Hash) (consensus.BlockUndo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.undo[hash]
	return u, ok
}

// IndexEntryFor returns the indexed header/work for hash, if present.
func (c *Chain) IndexEntryFor(hash consensus.Hash) (*IndexEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Get(hash)
}

// PersistPeriodically snapshots chain.json and utxo.json every
// interval until ctx is cancelled. SPEC_FULL.md §12 calls for a
// debounced interval rather than a write after every block, so the
// mining loop is never held up waiting on disk I/O.
func PersistPeriodically(ctx context.Context, c *Chain, dataDir string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := persistOnce(c, dataDir); err != nil {
				// Persistence is recoverable state, not consensus-bearing
				// (spec.md §6): a failed snapshot is logged and retried on
				// the next tick, never fatal.
				log.Chain.Error().Err(err).Msg("periodic snapshot failed")
				continue
			}
		}
	}
}

// RestoreFromDisk rebuilds chain state after a restart: it reads
// chain.json for the last known active-chain hash list, then replays
// each block from db in order via SubmitBlock. spec.md §6's "the block
// list is authoritative, chain/UTXO state is rebuilt from it" is taken
// literally here rather than trusting utxo.json as the source of
// truth — the JSON UTXO snapshot is a write-behind convenience, the
// store's blocks are what's replayed. A missing chain.json (first run)
// or a block missing from db (truncated store) both simply stop the
// replay at whatever prefix is available; the chain is left wherever
// that got it; the rest of the network fills the difference via sync.
func RestoreFromDisk(c *Chain, db *store.DB, dataDir string, now int64) error {
	hashes, ok, err := LoadChainSnapshot(dataDir)
	if err != nil {
		return fmt.Errorf("node: restore: %w", err)
	}
	if !ok || len(hashes) <= 1 || db == nil {
		return nil
	}
	for _, h := range hashes[1:] {
		block, found, err := db.GetBlock(h)
		if err != nil {
			return fmt.Errorf("node: restore: read block %x: %w", h[:4], err)
		}
		if !found {
			log.Chain.Warn().Str("hash", hex.EncodeToString(h[:])).Msg("stopping restore: block missing from store")
			break
		}
		if _, err := c.SubmitBlock(block, now); err != nil {
			log.Chain.Warn().Err(err).Str("hash", hex.EncodeToString(h[:])).Msg("stopping restore: block rejected")
			break
		}
	}
	return nil
}

// PersistNow writes both snapshot files immediately, for use on clean
// shutdown so the last few blocks before exit aren't lost to the next
// PersistPeriodically tick that will never come.
func PersistNow(c *Chain, dataDir string) error {
	return persistOnce(c, dataDir)
}

func persistOnce(c *Chain, dataDir string) error {
	activeChain := c.ActiveChainHashes()
	if err := SaveChainSnapshot(dataDir, activeChain); err != nil {
		return err
	}
	return SaveUTXOSnapshot(dataDir, c.UTXOSnapshot())
}

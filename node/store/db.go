// Package store provides durable, non-consensus-bearing storage for
// raw blocks, their headers, block-index metadata, and per-block undo
// logs. spec.md §6's "Persistence" section is explicit that this data
// is recoverable, not authoritative: on any mismatch, the block list
// in this store wins and chain/UTXO state is rebuilt from it.
package store

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
)

var (
	bucketHeaders = []byte("headers_by_hash")
	bucketBlocks  = []byte("blocks_by_hash")
	bucketIndex   = []byte("index_by_hash")
	bucketUndo    = []byte("undo_by_hash")
)

// IndexEntry is the on-disk counterpart of node.IndexEntry, carrying
// just enough to reconstruct the in-memory BlockIndex and fork-choice
// state on restart: parent linkage and cumulative work. The header and
// transactions themselves live in the headers/blocks buckets, keyed by
// the same hash.
type IndexEntry struct {
	Height         uint64
	PrevHash       consensus.Hash
	CumulativeWork *big.Int
}

// DB wraps a single bbolt database file holding every durable
// structure for one chain. Grounded directly on teacher
// node/store/db.go, adapted to drop the DA/witness and UTXO buckets:
// this store only persists blocks, headers, index entries, and undo
// logs. The UTXO set itself is persisted separately as a periodic JSON
// snapshot (see node/persistence.go), matching spec.md §6's two-file
// shape rather than an on-disk key/value UTXO table.
type DB struct {
	db *bolt.DB
}

// Open creates or opens the bbolt file at <dataDir>/chain.db, creating
// all required buckets if missing.
func Open(dataDir string) (*DB, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("store: data dir required")
	}
	path := filepath.Join(dataDir, "chain.db")
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	d := &DB{db: bdb}
	err = bdb.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketHeaders, bucketBlocks, bucketIndex, bucketUndo} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("store: create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) PutHeader(hash consensus.Hash, header consensus.BlockHeader) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHeaders).Put(hash[:], consensus.SerializeHeader(header))
	})
}

func (d *DB) GetHeader(hash consensus.Hash) (consensus.BlockHeader, bool, error) {
	var header consensus.BlockHeader
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketHeaders).Get(hash[:])
		if v == nil {
			return nil
		}
		h, err := consensus.DeserializeHeader(v)
		if err != nil {
			return err
		}
		header = h
		found = true
		return nil
	})
	return header, found, err
}

func (d *DB) PutBlock(hash consensus.Hash, b consensus.Block) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).Put(hash[:], consensus.SerializeBlock(b))
	})
}

func (d *DB) GetBlock(hash consensus.Hash) (consensus.Block, bool, error) {
	var block consensus.Block
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlocks).Get(hash[:])
		if v == nil {
			return nil
		}
		b, err := consensus.DeserializeBlock(v)
		if err != nil {
			return err
		}
		block = b
		found = true
		return nil
	})
	return block, found, err
}

func (d *DB) PutIndex(hash consensus.Hash, e IndexEntry) error {
	b, err := encodeIndexEntry(e)
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIndex).Put(hash[:], b)
	})
}

func (d *DB) GetIndex(hash consensus.Hash) (IndexEntry, bool, error) {
	var out IndexEntry
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketIndex).Get(hash[:])
		if v == nil {
			return nil
		}
		e, err := decodeIndexEntry(v)
		if err != nil {
			return err
		}
		out = e
		found = true
		return nil
	})
	return out, found, err
}

// AllHashes returns every hash with an index entry, in bucket iteration
// order.
func (d *DB) AllHashes() ([]consensus.Hash, error) {
	var out []consensus.Hash
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIndex).ForEach(func(k, _ []byte) error {
			var h consensus.Hash
			copy(h[:], k)
			out = append(out, h)
			return nil
		})
	})
	return out, err
}

func (d *DB) PutUndo(hash consensus.Hash, undo consensus.BlockUndo) error {
	b := encodeUndo(undo)
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUndo).Put(hash[:], b)
	})
}

func (d *DB) GetUndo(hash consensus.Hash) (consensus.BlockUndo, bool, error) {
	var out consensus.BlockUndo
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketUndo).Get(hash[:])
		if v == nil {
			return nil
		}
		u, err := decodeUndo(v)
		if err != nil {
			return err
		}
		out = u
		found = true
		return nil
	})
	return out, found, err
}

// encodeIndexEntry lays out: height u64le | prev_hash 32 | work_len
// u16le | work_bytes, matching the teacher's block-index encoding.
func encodeIndexEntry(e IndexEntry) ([]byte, error) {
	if e.CumulativeWork == nil || e.CumulativeWork.Sign() < 0 {
		return nil, fmt.Errorf("store: index: cumulative work required")
	}
	work := e.CumulativeWork.Bytes()
	if len(work) > 0xffff {
		return nil, fmt.Errorf("store: index: cumulative work too large")
	}
	out := make([]byte, 8+32+2+len(work))
	binary.LittleEndian.PutUint64(out[0:8], e.Height)
	copy(out[8:40], e.PrevHash[:])
	binary.LittleEndian.PutUint16(out[40:42], uint16(len(work)))
	copy(out[42:], work)
	return out, nil
}

func decodeIndexEntry(b []byte) (IndexEntry, error) {
	if len(b) < 8+32+2 {
		return IndexEntry{}, fmt.Errorf("store: index: truncated")
	}
	height := binary.LittleEndian.Uint64(b[0:8])
	var prev consensus.Hash
	copy(prev[:], b[8:40])
	workLen := int(binary.LittleEndian.Uint16(b[40:42]))
	if 42+workLen != len(b) {
		return IndexEntry{}, fmt.Errorf("store: index: bad work length")
	}
	work := new(big.Int).SetBytes(b[42:])
	return IndexEntry{Height: height, PrevHash: prev, CumulativeWork: work}, nil
}

// encodeUndo lays out: spent_count u32le, then per spent entry
// (outpoint txid 32 | vout u32le | value u64le | pubkey_hash 32 |
// creation_height u64le | is_coinbase u8), then created_count u32le
// and each created outpoint (txid 32 | vout u32le).
func encodeUndo(u consensus.BlockUndo) []byte {
	var b []byte
	b = consensus.AppendU32LE(b, uint32(len(u.Spent)))
	for _, s := range u.Spent {
		b = append(b, s.Outpoint.Txid[:]...)
		b = consensus.AppendU32LE(b, s.Outpoint.Vout)
		b = consensus.AppendU64LE(b, s.Prior.Value)
		b = append(b, s.Prior.PubkeyHash[:]...)
		b = consensus.AppendU64LE(b, s.Prior.CreationHeight)
		if s.Prior.IsCoinbase {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	}
	b = consensus.AppendU32LE(b, uint32(len(u.Created)))
	for _, o := range u.Created {
		b = append(b, o.Txid[:]...)
		b = consensus.AppendU32LE(b, o.Vout)
	}
	return b
}

func decodeUndo(b []byte) (consensus.BlockUndo, error) {
	off := 0
	spentCount, err := consensus.ReadU32LE(b, &off)
	if err != nil {
		return consensus.BlockUndo{}, err
	}
	undo := consensus.BlockUndo{Spent: make([]consensus.UndoEntry, 0, spentCount)}
	for i := uint32(0); i < spentCount; i++ {
		if off+32+4+8+32+8+1 > len(b) {
			return consensus.BlockUndo{}, fmt.Errorf("store: undo: truncated spent entry")
		}
		var e consensus.UndoEntry
		copy(e.Outpoint.Txid[:], b[off:off+32])
		off += 32
		e.Outpoint.Vout = binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
		e.Prior.Value = binary.LittleEndian.Uint64(b[off : off+8])
		off += 8
		copy(e.Prior.PubkeyHash[:], b[off:off+32])
		off += 32
		e.Prior.CreationHeight = binary.LittleEndian.Uint64(b[off : off+8])
		off += 8
		e.Prior.IsCoinbase = b[off] != 0
		off++
		undo.Spent = append(undo.Spent, e)
	}
	createdCount, err := consensus.ReadU32LE(b, &off)
	if err != nil {
		return consensus.BlockUndo{}, err
	}
	undo.Created = make([]consensus.Outpoint, 0, createdCount)
	for i := uint32(0); i < createdCount; i++ {
		if off+32+4 > len(b) {
			return consensus.BlockUndo{}, fmt.Errorf("store: undo: truncated created entry")
		}
		var o consensus.Outpoint
		copy(o.Txid[:], b[off:off+32])
		off += 32
		o.Vout = binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
		undo.Created = append(undo.Created, o)
	}
	if off != len(b) {
		return consensus.BlockUndo{}, fmt.Errorf("store: undo: trailing bytes")
	}
	return undo, nil
}

package consensus

// UTXOSet is a mapping from outpoint to the entry describing its
// currently-unspent output. The zero value is not usable; construct
// with NewUTXOSet.
type UTXOSet struct {
	entries map[Outpoint]UTXOEntry
}

// NewUTXOSet returns an empty set.
func NewUTXOSet() *UTXOSet {
	return &UTXOSet{entries: make(map[Outpoint]UTXOEntry)}
}

// Get looks up an outpoint, reporting whether it is currently unspent.
func (s *UTXOSet) Get(op Outpoint) (UTXOEntry, bool) {
	e, ok := s.entries[op]
	return e, ok
}

// Put inserts or overwrites an entry.
func (s *UTXOSet) Put(op Outpoint, e UTXOEntry) {
	s.entries[op] = e
}

// Delete removes an outpoint.
func (s *UTXOSet) Delete(op Outpoint) {
	delete(s.entries, op)
}

// Len reports the number of unspent outputs tracked.
func (s *UTXOSet) Len() int {
	return len(s.entries)
}

// Clone returns a deep, independent copy.
func (s *UTXOSet) Clone() *UTXOSet {
	out := &UTXOSet{entries: make(map[Outpoint]UTXOEntry, len(s.entries))}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	return out
}

// Each calls fn for every entry; iteration order is unspecified.
func (s *UTXOSet) Each(fn func(Outpoint, UTXOEntry)) {
	for k, v := range s.entries {
		fn(k, v)
	}
}

// UndoEntry is an (outpoint, prior entry) pair recorded when a spend
// removes an outpoint, so the removal can be reversed during a reorg.
type UndoEntry struct {
	Outpoint Outpoint
	Prior    UTXOEntry
}

// BlockUndo records everything needed to reverse applying one block to
// a UTXOSet: the entries removed by spends (to be restored) and the
// outpoints created by its outputs (to be deleted).
type BlockUndo struct {
	Spent   []UndoEntry
	Created []Outpoint
}

// Apply mutates s according to tx: removing every spent outpoint (which
// must exist for a non-coinbase transaction) and inserting one entry per
// output at height. It appends to undo so the mutation can be reversed.
// txid is the caller-supplied transaction id, avoiding a redundant hash.
func (s *UTXOSet) Apply(tx Transaction, txid Hash, height uint64, undo *BlockUndo) error {
	isCoinbase := tx.IsCoinbase()
	for _, in := range tx.Inputs {
		prior, ok := s.Get(in.Prev)
		if !ok {
			return newErr(ErrMissingInput, "apply: spent outpoint not found")
		}
		s.Delete(in.Prev)
		if undo != nil {
			undo.Spent = append(undo.Spent, UndoEntry{Outpoint: in.Prev, Prior: prior})
		}
	}
	for i, out := range tx.Outputs {
		op := Outpoint{Txid: txid, Vout: uint32(i)}
		s.Put(op, UTXOEntry{
			Value:          out.Value,
			PubkeyHash:     out.PubkeyHash,
			CreationHeight: height,
			IsCoinbase:     isCoinbase,
		})
		if undo != nil {
			undo.Created = append(undo.Created, op)
		}
	}
	return nil
}

// Undo reverses a BlockUndo in place: restores every spent entry, then
// deletes every created outpoint. Order matters when a block spends an
// output created earlier in the same block: that output is both in
// Spent and in Created, and must end up absent.
func (s *UTXOSet) Undo(undo BlockUndo) {
	for _, e := range undo.Spent {
		s.Put(e.Outpoint, e.Prior)
	}
	for _, op := range undo.Created {
		s.Delete(op)
	}
}

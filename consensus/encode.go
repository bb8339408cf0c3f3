package consensus

import (
	"encoding/binary"
)

// This file implements the single hand-rolled little-endian encoding
// used for every consensus hash and signature. No general-purpose
// serialization format (gob, protobuf, JSON) is ever hashed: a single
// byte of deviation here changes txids, block hashes, and signatures,
// forking the chain. Serialization is consensus.

// AppendU32LE, AppendU64LE, AppendI64LE and AppendVarBytes are exported
// so node/p2p can frame its own wire payloads (Hello, Addr, ...) with
// the identical primitives used for consensus hashing, per spec.md §4.1:
// the same byte-level encoding is used regardless of transport.

func AppendU32LE(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func AppendU64LE(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func AppendI64LE(dst []byte, v int64) []byte {
	return AppendU64LE(dst, uint64(v))
}

func AppendVarBytes(dst []byte, b []byte) []byte {
	dst = AppendU32LE(dst, uint32(len(b)))
	return append(dst, b...)
}

// ReadU32LE reads a little-endian uint32 at offset *off, advancing it.
func ReadU32LE(b []byte, off *int) (uint32, error) {
	if *off+4 > len(b) {
		return 0, newErr(ErrMalformed, "read: u32 truncated")
	}
	v := binary.LittleEndian.Uint32(b[*off:])
	*off += 4
	return v, nil
}

// ReadU64LE reads a little-endian uint64 at offset *off, advancing it.
func ReadU64LE(b []byte, off *int) (uint64, error) {
	if *off+8 > len(b) {
		return 0, newErr(ErrMalformed, "read: u64 truncated")
	}
	v := binary.LittleEndian.Uint64(b[*off:])
	*off += 8
	return v, nil
}

// ReadI64LE reads a little-endian int64 at offset *off, advancing it.
func ReadI64LE(b []byte, off *int) (int64, error) {
	v, err := ReadU64LE(b, off)
	return int64(v), err
}

// ReadVarBytes reads a {u32 length, raw bytes} field at offset *off,
// advancing it past the payload.
func ReadVarBytes(b []byte, off *int) ([]byte, error) {
	n, err := ReadU32LE(b, off)
	if err != nil {
		return nil, err
	}
	if *off+int(n) > len(b) {
		return nil, newErr(ErrMalformed, "read: var bytes truncated")
	}
	out := append([]byte(nil), b[*off:*off+int(n)]...)
	*off += int(n)
	return out, nil
}

// SerializeHeader encodes a BlockHeader in canonical field order:
// height, timestamp, prev_hash, nonce, target, merkle_root.
func SerializeHeader(h BlockHeader) []byte {
	buf := make([]byte, 0, 8+8+32+8+32+32)
	buf = AppendU64LE(buf, h.Height)
	buf = AppendI64LE(buf, h.Timestamp)
	buf = append(buf, h.PrevHash[:]...)
	buf = AppendU64LE(buf, h.Nonce)
	buf = append(buf, h.Target[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	return buf
}

// DeserializeHeader decodes bytes produced by SerializeHeader.
func DeserializeHeader(b []byte) (BlockHeader, error) {
	const want = 8 + 8 + 32 + 8 + 32 + 32
	if len(b) != want {
		return BlockHeader{}, newErr(ErrMalformed, "header: wrong length")
	}
	var h BlockHeader
	off := 0
	h.Height = binary.LittleEndian.Uint64(b[off:])
	off += 8
	h.Timestamp = int64(binary.LittleEndian.Uint64(b[off:]))
	off += 8
	copy(h.PrevHash[:], b[off:off+32])
	off += 32
	h.Nonce = binary.LittleEndian.Uint64(b[off:])
	off += 8
	copy(h.Target[:], b[off:off+32])
	off += 32
	copy(h.MerkleRoot[:], b[off:off+32])
	return h, nil
}

// serializeTxOutput encodes {u64 value, pubkey_hash}.
func serializeTxOutput(o TxOutput) []byte {
	buf := make([]byte, 0, 8+32)
	buf = AppendU64LE(buf, o.Value)
	buf = append(buf, o.PubkeyHash[:]...)
	return buf
}

// serializeTxInput encodes {prev.txid, u32 vout, pubkey, signature,
// u32 address_index}. zeroSig controls whether the 64-byte signature
// field is written as-is or blanked, used by Sighash to derive the
// signed message.
func serializeTxInput(in TxInput, zeroSig bool) []byte {
	buf := make([]byte, 0, 32+4+32+64+4)
	buf = append(buf, in.Prev.Txid[:]...)
	buf = AppendU32LE(buf, in.Prev.Vout)
	buf = append(buf, in.Pubkey[:]...)
	if zeroSig {
		var zero [64]byte
		buf = append(buf, zero[:]...)
	} else {
		buf = append(buf, in.Signature[:]...)
	}
	buf = AppendU32LE(buf, in.AddressIndex)
	return buf
}

// SerializeTransaction encodes a Transaction per spec.md §4.1:
// {u32 input_count, inputs..., u32 output_count, outputs...}.
func SerializeTransaction(tx Transaction) []byte {
	return serializeTransaction(tx, false)
}

func serializeTransaction(tx Transaction, zeroSigs bool) []byte {
	buf := make([]byte, 0, 4+len(tx.Inputs)*136+4+len(tx.Outputs)*40)
	buf = AppendU32LE(buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = append(buf, serializeTxInput(in, zeroSigs)...)
	}
	buf = AppendU32LE(buf, uint32(len(tx.Outputs)))
	for _, o := range tx.Outputs {
		buf = append(buf, serializeTxOutput(o)...)
	}
	return buf
}

// DeserializeTransaction decodes bytes produced by SerializeTransaction,
// returning the transaction and the number of bytes consumed.
func DeserializeTransaction(b []byte) (Transaction, int, error) {
	if len(b) < 4 {
		return Transaction{}, 0, newErr(ErrMalformed, "tx: truncated input count")
	}
	off := 0
	inCount := binary.LittleEndian.Uint32(b[off:])
	off += 4

	var tx Transaction
	tx.Inputs = make([]TxInput, 0, inCount)
	for i := uint32(0); i < inCount; i++ {
		if off+32+4+32+64+4 > len(b) {
			return Transaction{}, 0, newErr(ErrMalformed, "tx: truncated input")
		}
		var in TxInput
		copy(in.Prev.Txid[:], b[off:off+32])
		off += 32
		in.Prev.Vout = binary.LittleEndian.Uint32(b[off:])
		off += 4
		copy(in.Pubkey[:], b[off:off+32])
		off += 32
		copy(in.Signature[:], b[off:off+64])
		off += 64
		in.AddressIndex = binary.LittleEndian.Uint32(b[off:])
		off += 4
		tx.Inputs = append(tx.Inputs, in)
	}

	if off+4 > len(b) {
		return Transaction{}, 0, newErr(ErrMalformed, "tx: truncated output count")
	}
	outCount := binary.LittleEndian.Uint32(b[off:])
	off += 4
	tx.Outputs = make([]TxOutput, 0, outCount)
	for i := uint32(0); i < outCount; i++ {
		if off+8+32 > len(b) {
			return Transaction{}, 0, newErr(ErrMalformed, "tx: truncated output")
		}
		var o TxOutput
		o.Value = binary.LittleEndian.Uint64(b[off:])
		off += 8
		copy(o.PubkeyHash[:], b[off:off+32])
		off += 32
		tx.Outputs = append(tx.Outputs, o)
	}

	return tx, off, nil
}

// SerializeBlock encodes a Block as its header followed by a
// length-prefixed transaction list.
func SerializeBlock(b Block) []byte {
	buf := SerializeHeader(b.Header)
	buf = AppendU32LE(buf, uint32(len(b.Transactions)))
	for _, tx := range b.Transactions {
		buf = append(buf, SerializeTransaction(tx)...)
	}
	return buf
}

// DeserializeBlock decodes bytes produced by SerializeBlock.
func DeserializeBlock(b []byte) (Block, error) {
	const headerLen = 8 + 8 + 32 + 8 + 32 + 32
	if len(b) < headerLen+4 {
		return Block{}, newErr(ErrMalformed, "block: truncated header")
	}
	header, err := DeserializeHeader(b[:headerLen])
	if err != nil {
		return Block{}, err
	}
	off := headerLen
	txCount := binary.LittleEndian.Uint32(b[off:])
	off += 4
	if txCount == 0 {
		return Block{}, newErr(ErrMalformed, "block: empty tx list")
	}
	txs := make([]Transaction, 0, txCount)
	for i := uint32(0); i < txCount; i++ {
		tx, n, err := DeserializeTransaction(b[off:])
		if err != nil {
			return Block{}, err
		}
		off += n
		txs = append(txs, tx)
	}
	if off != len(b) {
		return Block{}, newErr(ErrMalformed, "block: trailing bytes")
	}
	return Block{Header: header, Transactions: txs}, nil
}

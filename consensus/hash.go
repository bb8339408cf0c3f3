package consensus

import "crypto/sha256"

// SHA256 is the single-round digest used as a building block (pubkey
// hashing).
func SHA256(b []byte) Hash {
	return Hash(sha256.Sum256(b))
}

// DoubleSHA256 is sha256(sha256(b)), the digest used for txids, header
// hashes, and Merkle nodes.
func DoubleSHA256(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// HeaderHash is the block identity hash: double-SHA-256 of the header's
// canonical serialization.
func HeaderHash(h BlockHeader) Hash {
	return DoubleSHA256(SerializeHeader(h))
}

// Txid is double-SHA-256 of a transaction's canonical serialization. It
// is a pure function of tx (testable property 1).
func Txid(tx Transaction) Hash {
	return DoubleSHA256(SerializeTransaction(tx))
}

package consensus

import "bytes"

// CheckPoW reports whether hash, interpreted as a big-endian 256-bit
// integer, satisfies hash <= target.
func CheckPoW(hash Hash, target Hash) bool {
	return bytes.Compare(hash[:], target[:]) <= 0
}

// ValidatePoW verifies a header's proof of work against its own target
// field, returning ErrInvalidPow on failure.
func ValidatePoW(h BlockHeader) error {
	hash := HeaderHash(h)
	if !CheckPoW(hash, h.Target) {
		return newErr(ErrInvalidPow, "header hash exceeds target")
	}
	return nil
}

package consensus

// Sighash is the message every input of tx signs: double-SHA-256 of
// the transaction's canonical serialization with every input's 64-byte
// signature field zeroed. All inputs sign the same digest — there is
// no per-input signature hash type (spec.md §4.6 rule 5).
func Sighash(tx Transaction) Hash {
	return DoubleSHA256(serializeTransaction(tx, true))
}

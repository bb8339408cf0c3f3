package consensus

import (
	"bytes"
	"testing"
)

// FuzzTransactionRoundTrip is testable property 1: any bytes that
// DeserializeTransaction accepts must re-serialize to exactly the
// prefix that was consumed. Grounded on the teacher's
// fuzz_consensus_test.go FuzzParseTx shape, adapted from "parse
// doesn't crash" to a full round-trip check since this encoding is
// fixed-width per field rather than compact-size framed.
func FuzzTransactionRoundTrip(f *testing.F) {
	f.Add(SerializeTransaction(sampleTx()))
	f.Add(SerializeTransaction(Transaction{Outputs: []TxOutput{{Value: 1}}}))
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, b []byte) {
		tx, n, err := DeserializeTransaction(b)
		if err != nil {
			return
		}
		if n > len(b) {
			t.Fatalf("consumed %d bytes, input was only %d", n, len(b))
		}
		reenc := SerializeTransaction(tx)
		if !bytes.Equal(reenc, b[:n]) {
			t.Fatalf("re-serialization mismatch: got=%x want=%x", reenc, b[:n])
		}
	})
}

// FuzzHeaderRoundTrip is the same property for BlockHeader, whose
// encoding is fixed-length so any accepted input must be consumed
// entirely.
func FuzzHeaderRoundTrip(f *testing.F) {
	f.Add(SerializeHeader(Genesis().Header))
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, b []byte) {
		h, err := DeserializeHeader(b)
		if err != nil {
			return
		}
		reenc := SerializeHeader(h)
		if !bytes.Equal(reenc, b) {
			t.Fatalf("re-serialization mismatch: got=%x want=%x", reenc, b)
		}
	})
}

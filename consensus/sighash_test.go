package consensus

import "testing"

// TestSighashIgnoresSignatureBytes is testable property 2: the sighash
// of a transaction does not depend on what is currently sitting in the
// signature fields, so a signer can compute it before signing and a
// verifier recomputes the identical digest afterward.
func TestSighashIgnoresSignatureBytes(t *testing.T) {
	tx := sampleTx()
	before := Sighash(tx)

	tx.Inputs[0].Signature = [64]byte{1, 2, 3, 4, 5}
	after := Sighash(tx)

	if before != after {
		t.Fatalf("sighash changed after filling in a signature: %x != %x", before, after)
	}
}

func TestSighashSensitiveToOutputs(t *testing.T) {
	tx := sampleTx()
	a := Sighash(tx)
	tx.Outputs[0].Value++
	b := Sighash(tx)
	if a == b {
		t.Fatalf("sighash must change when outputs change")
	}
}

func TestSighashSensitiveToInputPrev(t *testing.T) {
	tx := sampleTx()
	a := Sighash(tx)
	tx.Inputs[0].Prev.Vout++
	b := Sighash(tx)
	if a == b {
		t.Fatalf("sighash must change when an input's outpoint changes")
	}
}

func TestSighashSensitiveToAddressIndex(t *testing.T) {
	tx := sampleTx()
	a := Sighash(tx)
	tx.Inputs[0].AddressIndex++
	b := Sighash(tx)
	if a == b {
		t.Fatalf("sighash must change when an input's address index changes")
	}
}

package consensus

import "testing"

// TestGenesisRoundTrip is scenario S1: serializing and deserializing the
// hard-coded genesis block must reproduce the exact same header hash.
func TestGenesisRoundTrip(t *testing.T) {
	g := Genesis()
	raw := SerializeBlock(g)
	got, err := DeserializeBlock(raw)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if HeaderHash(got.Header) != HeaderHash(g.Header) {
		t.Fatalf("genesis header hash changed across round trip")
	}
}

func TestGenesisIsDeterministic(t *testing.T) {
	a := GenesisHash()
	b := GenesisHash()
	if a != b {
		t.Fatalf("genesis hash not stable across calls: %x != %x", a, b)
	}
}

func TestGenesisHeightZero(t *testing.T) {
	g := Genesis()
	if g.Header.Height != 0 {
		t.Fatalf("genesis height = %d, want 0", g.Header.Height)
	}
	if g.Header.PrevHash != (Hash{}) {
		t.Fatalf("genesis prev_hash must be zero")
	}
}

func TestGenesisSatisfiesOwnPoW(t *testing.T) {
	g := Genesis()
	if err := ValidatePoW(g.Header); err != nil {
		t.Fatalf("genesis must satisfy its own target: %v", err)
	}
}

func TestGenesisMerkleRootMatchesSingleTx(t *testing.T) {
	g := Genesis()
	if len(g.Transactions) != 1 {
		t.Fatalf("genesis must carry exactly one transaction, got %d", len(g.Transactions))
	}
	if g.Header.MerkleRoot != Txid(g.Transactions[0]) {
		t.Fatalf("single-tx genesis merkle root must equal its txid")
	}
}

func TestRevelationTxUnspendableValue(t *testing.T) {
	tx := RevelationTx()
	if len(tx.Outputs) != 1 || tx.Outputs[0].Value != 0 {
		t.Fatalf("revelation tx must carry a single zero-value output, got %+v", tx.Outputs)
	}
	if tx.Outputs[0].PubkeyHash != GenesisPubkeyHash {
		t.Fatalf("revelation tx output must lock to GenesisPubkeyHash")
	}
}

package crypto

import (
	"testing"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
)

func TestGenerateKeySignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	digest := consensus.SHA256([]byte("message"))
	sig := Sign(priv, digest)
	if !Verify(pub, digest, sig) {
		t.Fatalf("verify failed for a freshly produced signature")
	}
}

func TestVerifyRejectsWrongDigest(t *testing.T) {
	pub, priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sig := Sign(priv, consensus.SHA256([]byte("message")))
	if Verify(pub, consensus.SHA256([]byte("different")), sig) {
		t.Fatalf("verify must reject a signature over a different digest")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	otherPub, _, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	digest := consensus.SHA256([]byte("message"))
	sig := Sign(priv, digest)
	if Verify(otherPub, digest, sig) {
		t.Fatalf("verify must reject a signature checked against the wrong key")
	}
}

func TestPubkeyHashDeterministic(t *testing.T) {
	pub, _, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	a := PubkeyHash(pub)
	b := PubkeyHash(pub)
	if a != b {
		t.Fatalf("pubkey hash not deterministic")
	}
}

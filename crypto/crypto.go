// Package crypto wraps the two primitives the consensus core needs
// beyond hashing: Ed25519 key generation and signature verification.
// Hashing itself lives in consensus (SHA256/DoubleSHA256) since it is
// used by serialization code that cannot import crypto without a
// cycle; this package only adds what consensus cannot derive on its
// own.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
)

// GenerateKey produces a fresh Ed25519 keypair.
func GenerateKey() (pub [32]byte, priv ed25519.PrivateKey, err error) {
	p, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return pub, nil, err
	}
	copy(pub[:], p)
	return pub, sk, nil
}

// PubkeyHash is the address form used to lock a TxOutput: SHA-256 of
// the 32-byte Ed25519 public key.
func PubkeyHash(pub [32]byte) consensus.Hash {
	return consensus.SHA256(pub[:])
}

// Sign produces the 64-byte Ed25519 signature over digest.
func Sign(priv ed25519.PrivateKey, digest consensus.Hash) [64]byte {
	sig := ed25519.Sign(priv, digest[:])
	var out [64]byte
	copy(out[:], sig)
	return out
}

// Verify reports whether sig is a valid Ed25519 signature by pub over
// digest.
func Verify(pub [32]byte, digest consensus.Hash, sig [64]byte) bool {
	return ed25519.Verify(pub[:], digest[:], sig[:])
}

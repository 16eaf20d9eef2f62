package keys

import (
	"crypto/ed25519"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/minio/sha256-simd"
)

const deriveDomain = "xdao-sas-signer-v1"

// SignerFromSeed returns the signer key for a 32-byte ed25519 seed.
func SignerFromSeed(seed []byte) (solana.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed)), nil
}

// DeriveRoleSeed deterministically derives a role-specific seed from a root
// seed.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(deriveDomain))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:"))
	_, _ = h.Write([]byte(role))
	return h.Sum(nil)[:ed25519.SeedSize], nil
}

// DeriveSignerKey derives the signer key of role under rootSeed.
func DeriveSignerKey(rootSeed []byte, role string) (solana.PrivateKey, error) {
	seed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return nil, err
	}
	return SignerFromSeed(seed)
}

package address

import (
	"github.com/gagliardetto/solana-go"
	"golang.org/x/crypto/sha3"
)

// fieldBump is appended to every hash-to-field pre-image.
const fieldBump = 0xff

// HashToField hashes parts with keccak256 and clears the top byte so the
// result, read big-endian, is below the BN254 scalar field modulus.
func HashToField(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	_, _ = h.Write([]byte{fieldBump})
	var out [32]byte
	h.Sum(out[:0])
	out[0] = 0
	return out
}

// CompressedAddress derives the compressed address for a plain attestation
// address. It returns the address and the intermediate address seed, which
// accumulator services record alongside the new address.
func CompressedAddress(plain, tree, programID solana.PublicKey) (addr [32]byte, seed [32]byte) {
	seed = HashToField(plain.Bytes())
	addr = HashToField(seed[:], tree.Bytes(), programID.Bytes())
	return addr, seed
}

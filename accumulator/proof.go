package accumulator

import "fmt"

// ProofSize is the encoded size of a CompressedProof.
const ProofSize = 32 + 64 + 32

// CompressedProof is the opaque three-part validity proof carried by
// transition payloads.
type CompressedProof struct {
	A [32]byte
	B [64]byte
	C [32]byte
}

// Bytes returns a || b || c.
func (p CompressedProof) Bytes() []byte {
	out := make([]byte, 0, ProofSize)
	out = append(out, p.A[:]...)
	out = append(out, p.B[:]...)
	return append(out, p.C[:]...)
}

// ParseProof reads a proof from exactly ProofSize bytes.
func ParseProof(b []byte) (CompressedProof, error) {
	var p CompressedProof
	if len(b) != ProofSize {
		return p, fmt.Errorf("accumulator: proof must be %d bytes, have %d", ProofSize, len(b))
	}
	copy(p.A[:], b[0:32])
	copy(p.B[:], b[32:96])
	copy(p.C[:], b[96:128])
	return p, nil
}

// ValidityProof is an optional proof. A nil Proof is valid only for
// transitions whose inputs are all proven by index and that create no
// addresses.
type ValidityProof struct {
	Proof *CompressedProof
}

func Some(p CompressedProof) ValidityProof { return ValidityProof{Proof: &p} }

func (v ValidityProof) Present() bool { return v.Proof != nil }

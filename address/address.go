// Package address derives record addresses.
//
// Credential, Schema and Attestation records live at program-derived
// addresses (PDAs): 32-byte keys found by a bump search over sha256 that are
// guaranteed to lie off the ed25519 curve, so no private key can sign for
// them. Compressed attestations live at addresses derived from the plain
// attestation's PDA and the accumulator tree.
package address

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seed prefixes. They provide domain separation between record kinds.
const (
	CredentialSeed     = "credential"
	SchemaSeed         = "schema"
	AttestationSeed    = "attestation"
	EventAuthoritySeed = "eventAuthority"
	SASSeed            = "sas"
)

// MaxSeedLen is the largest single seed component accepted by the bump search.
const MaxSeedLen = 32

var (
	ErrSeedTooLong = errors.New("address: seed component longer than 32 bytes")
	ErrNoBump      = errors.New("address: no off-curve address for seeds")
)

// Deriver derives addresses under a fixed program id. The zero value derives
// under the all-zero program id and is rarely what callers want.
type Deriver struct {
	programID solana.PublicKey
}

func NewDeriver(programID solana.PublicKey) Deriver {
	return Deriver{programID: programID}
}

func (d Deriver) ProgramID() solana.PublicKey { return d.programID }

// Derive runs the bump search over seeds. Identical seeds always give the
// identical (address, bump) pair.
func (d Deriver) Derive(seeds ...[]byte) (solana.PublicKey, uint8, error) {
	for i, s := range seeds {
		if len(s) > MaxSeedLen {
			return solana.PublicKey{}, 0, fmt.Errorf("%w: component %d has %d bytes", ErrSeedTooLong, i, len(s))
		}
	}
	addr, bump, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: %v", ErrNoBump, err)
	}
	return addr, bump, nil
}

// Credential derives ["credential", authority, name].
func (d Deriver) Credential(authority solana.PublicKey, name string) (solana.PublicKey, uint8, error) {
	return d.Derive([]byte(CredentialSeed), authority.Bytes(), []byte(name))
}

// Schema derives ["schema", credential, name, version].
func (d Deriver) Schema(credential solana.PublicKey, name string, version uint8) (solana.PublicKey, uint8, error) {
	return d.Derive([]byte(SchemaSeed), credential.Bytes(), []byte(name), []byte{version})
}

// Attestation derives ["attestation", credential, schema, nonce]. The same
// address seeds the compressed form of the attestation.
func (d Deriver) Attestation(credential, schema, nonce solana.PublicKey) (solana.PublicKey, uint8, error) {
	return d.Derive([]byte(AttestationSeed), credential.Bytes(), schema.Bytes(), nonce.Bytes())
}

// EventAuthority derives the singleton that signs emitted events.
func (d Deriver) EventAuthority() (solana.PublicKey, uint8, error) {
	return d.Derive([]byte(EventAuthoritySeed))
}

// SASAuthority derives the singleton that acts as the program's own signer.
func (d Deriver) SASAuthority() (solana.PublicKey, uint8, error) {
	return d.Derive([]byte(SASSeed))
}

// Compressed derives the compressed address of a plain attestation address
// within tree.
func (d Deriver) Compressed(plain, tree solana.PublicKey) [32]byte {
	addr, _ := CompressedAddress(plain, tree, d.programID)
	return addr
}

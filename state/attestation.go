package state

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/minio/sha256-simd"
)

// Attestation is a schema-conformant data record issued by an authorized
// signer. The same field values back both the plain record and the compressed
// commitment.
//
// TokenAccount is the zero key unless the attestation has been tokenized.
type Attestation struct {
	Nonce        solana.PublicKey
	Credential   solana.PublicKey
	Schema       solana.PublicKey
	Data         []byte
	Signer       solana.PublicKey
	Expiry       int64
	TokenAccount solana.PublicKey
}

// AttestationMinSize is the encoded size of an attestation with empty data.
const AttestationMinSize = 1 + 32 + 32 + 32 + 4 + 32 + 8 + 32

// CompressedDiscriminator is the 8-byte discriminator of compressed
// attestation leaves.
var CompressedDiscriminator = [8]byte{byte(AttestationDiscriminator)}

func (a *Attestation) size() int {
	return AttestationMinSize + len(a.Data)
}

func (a *Attestation) Encode() ([]byte, error) {
	return encode(AttestationDiscriminator, *a)
}

func DecodeAttestation(data []byte) (*Attestation, error) {
	var a Attestation
	if err := decode(AttestationDiscriminator, data, AttestationMinSize, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// IsTokenized reports whether the attestation is linked to a token account.
func (a *Attestation) IsTokenized() bool {
	return !a.TokenAccount.IsZero()
}

// Hash returns the commitment of the attestation's field values.
//
//	m1 = sha256(nonce || signer || token_account)
//	m2 = sha256(schema || credential || expiry_le)
//	h  = sha256(m1 || m2 || sha256(data)), h[0] = 0
//
// The top byte is cleared so the value is a BN254 field element.
func (a *Attestation) Hash() [32]byte {
	var buf [96]byte
	copy(buf[0:32], a.Nonce[:])
	copy(buf[32:64], a.Signer[:])
	copy(buf[64:96], a.TokenAccount[:])
	m1 := sha256.Sum256(buf[:])

	copy(buf[0:32], a.Schema[:])
	copy(buf[32:64], a.Credential[:])
	binary.LittleEndian.PutUint64(buf[64:72], uint64(a.Expiry))
	m2 := sha256.Sum256(buf[:72])

	d := sha256.Sum256(a.Data)

	copy(buf[0:32], m1[:])
	copy(buf[32:64], m2[:])
	copy(buf[64:96], d[:])
	h := sha256.Sum256(buf[:])
	h[0] = 0
	return h
}

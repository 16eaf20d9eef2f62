package keys

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var ErrBadSignature = errors.New("keys: signature does not verify")

// envelopeHeader is signer(32) || signature(64).
const envelopeHeader = 32 + 64

// Envelope is a payload signed by a signer key. Operations accept the signer
// identity only after Verify succeeds.
type Envelope struct {
	Signer    solana.PublicKey
	Signature solana.Signature
	Payload   []byte
}

// Sign signs payload with priv.
func Sign(priv solana.PrivateKey, payload []byte) (*Envelope, error) {
	sig, err := priv.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("keys: sign: %w", err)
	}
	return &Envelope{
		Signer:    priv.PublicKey(),
		Signature: sig,
		Payload:   append([]byte(nil), payload...),
	}, nil
}

// Verify checks the signature and returns the verified signer.
func (e *Envelope) Verify() (solana.PublicKey, error) {
	if e == nil || !e.Signature.Verify(e.Signer, e.Payload) {
		return solana.PublicKey{}, ErrBadSignature
	}
	return e.Signer, nil
}

// Encode returns signer || signature || payload.
func (e *Envelope) Encode() []byte {
	out := make([]byte, 0, envelopeHeader+len(e.Payload))
	out = append(out, e.Signer[:]...)
	out = append(out, e.Signature[:]...)
	return append(out, e.Payload...)
}

func ParseEnvelope(b []byte) (*Envelope, error) {
	if len(b) < envelopeHeader {
		return nil, fmt.Errorf("keys: envelope needs at least %d bytes, have %d", envelopeHeader, len(b))
	}
	e := &Envelope{Payload: append([]byte(nil), b[envelopeHeader:]...)}
	copy(e.Signer[:], b[:32])
	copy(e.Signature[:], b[32:envelopeHeader])
	return e, nil
}

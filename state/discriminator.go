// Package state holds the stored record types and their byte-exact encodings.
//
// Every record starts with a one-byte discriminator followed by a borsh body.
package state

import (
	"errors"
	"fmt"

	"github.com/near/borsh-go"
)

// Discriminator is the leading byte of every stored record.
type Discriminator uint8

const (
	CredentialDiscriminator  Discriminator = 0
	SchemaDiscriminator      Discriminator = 1
	AttestationDiscriminator Discriminator = 2
)

func (d Discriminator) String() string {
	switch d {
	case CredentialDiscriminator:
		return "credential"
	case SchemaDiscriminator:
		return "schema"
	case AttestationDiscriminator:
		return "attestation"
	}
	return fmt.Sprintf("discriminator(%d)", uint8(d))
}

var (
	ErrWrongDiscriminator = errors.New("state: wrong record discriminator")
	ErrMalformed          = errors.New("state: malformed record")
)

// Kind returns the discriminator of an encoded record.
func Kind(data []byte) (Discriminator, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrMalformed)
	}
	return Discriminator(data[0]), nil
}

func encode(d Discriminator, body any) ([]byte, error) {
	raw, err := borsh.Serialize(body)
	if err != nil {
		return nil, fmt.Errorf("state: encode %s: %w", d, err)
	}
	out := make([]byte, 0, 1+len(raw))
	out = append(out, byte(d))
	return append(out, raw...), nil
}

// decode checks the discriminator, borsh-decodes the body into v and requires
// that the body accounts for every byte.
func decode(d Discriminator, data []byte, minSize int, v interface{ size() int }) error {
	if len(data) < minSize {
		return fmt.Errorf("%w: %s needs at least %d bytes, have %d", ErrMalformed, d, minSize, len(data))
	}
	if Discriminator(data[0]) != d {
		return fmt.Errorf("%w: want %s, have %s", ErrWrongDiscriminator, d, Discriminator(data[0]))
	}
	if err := borsh.Deserialize(v, data[1:]); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, d, err)
	}
	if n := v.size(); n != len(data) {
		return fmt.Errorf("%w: %s encodes to %d bytes, have %d", ErrMalformed, d, n, len(data))
	}
	return nil
}

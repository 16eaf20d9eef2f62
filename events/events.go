// Package events encodes the events emitted by attestation transitions and
// provides sinks that collect them.
//
// An encoded event is the 8-byte event instruction tag, a one-byte event
// discriminator and a borsh body.
package events

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

// InstructionTag prefixes every encoded event.
var InstructionTag = [8]byte{0xe4, 0x45, 0xa5, 0x2e, 0x51, 0xcb, 0x9a, 0x1d}

type Discriminator uint8

const (
	CloseDiscriminator    Discriminator = 0
	CompressDiscriminator Discriminator = 1
)

func (d Discriminator) String() string {
	switch d {
	case CloseDiscriminator:
		return "close"
	case CompressDiscriminator:
		return "compress"
	}
	return fmt.Sprintf("event(%d)", uint8(d))
}

var ErrMalformed = errors.New("events: malformed event")

// Event is an emitted event.
type Event interface {
	Discriminator() Discriminator
	Encode() ([]byte, error)
}

// CloseEvent records the schema and data of a closed attestation.
type CloseEvent struct {
	Schema solana.PublicKey
	Data   []byte
}

func (*CloseEvent) Discriminator() Discriminator { return CloseDiscriminator }

func (e *CloseEvent) Encode() ([]byte, error) {
	return encode(CloseDiscriminator, *e)
}

// CompressedRecord is one attestation included in a compress batch.
type CompressedRecord struct {
	Schema solana.PublicKey
	Data   []byte
}

// CompressEvent summarizes a compress batch.
type CompressEvent struct {
	PDAsClosed bool
	Records    []CompressedRecord
}

func (*CompressEvent) Discriminator() Discriminator { return CompressDiscriminator }

func (e *CompressEvent) Encode() ([]byte, error) {
	return encode(CompressDiscriminator, *e)
}

func encode(d Discriminator, body any) ([]byte, error) {
	raw, err := borsh.Serialize(body)
	if err != nil {
		return nil, fmt.Errorf("events: encode %s: %w", d, err)
	}
	out := make([]byte, 0, len(InstructionTag)+1+len(raw))
	out = append(out, InstructionTag[:]...)
	out = append(out, byte(d))
	return append(out, raw...), nil
}

// Decode parses an encoded event.
func Decode(b []byte) (Event, error) {
	if len(b) < len(InstructionTag)+1 || !bytes.Equal(b[:len(InstructionTag)], InstructionTag[:]) {
		return nil, fmt.Errorf("%w: missing instruction tag", ErrMalformed)
	}
	d := Discriminator(b[len(InstructionTag)])
	body := b[len(InstructionTag)+1:]

	var ev Event
	switch d {
	case CloseDiscriminator:
		var e CloseEvent
		if err := borsh.Deserialize(&e, body); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, d, err)
		}
		ev = &e
	case CompressDiscriminator:
		var e CompressEvent
		if err := borsh.Deserialize(&e, body); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, d, err)
		}
		ev = &e
	default:
		return nil, fmt.Errorf("%w: unknown discriminator %d", ErrMalformed, uint8(d))
	}

	// Reject trailing bytes by re-encoding.
	again, err := ev.Encode()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(again, b) {
		return nil, fmt.Errorf("%w: %s has %d trailing bytes", ErrMalformed, d, len(b)-len(again))
	}
	return ev, nil
}

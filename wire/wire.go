// Package wire parses and builds the transition payloads of the compressed
// attestation operations.
//
// All integers are fixed-width little-endian. Parsers check the minimum
// payload size up front and then read through a bounds-checked decoder, so a
// short or inconsistent payload is always an error and never a panic.
package wire

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"xdao.co/sas/accumulator"
)

var (
	// ErrTruncated reports a payload shorter than its fixed part.
	ErrTruncated = errors.New("wire: payload truncated")
	// ErrLengthMismatch reports a data_len that disagrees with the bytes that
	// follow it.
	ErrLengthMismatch = errors.New("wire: data length mismatch")
)

// Minimum payload sizes.
const (
	CreateMinSize         = accumulator.ProofSize + 32 + 8 + 2 + 4
	CloseMinSize          = 1 + 2 + 4 + 32 + 32 + 32 + 32 + 8 + 4
	CloseWithProofMinSize = CloseMinSize + accumulator.ProofSize
	BatchMinSize          = accumulator.ProofSize + 1 + 2 + 1
)

func truncated(what string, want, have int) error {
	return fmt.Errorf("%w: %s needs at least %d bytes, have %d", ErrTruncated, what, want, have)
}

// reader wraps a bin.Decoder and keeps the first error.
type reader struct {
	dec *bin.Decoder
	err error
}

func newReader(b []byte) *reader {
	return &reader{dec: bin.NewBinDecoder(b)}
}

func (r *reader) set(err error) {
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%w: %v", ErrTruncated, err)
	}
}

func (r *reader) fixed(dst []byte) {
	if r.err != nil {
		return
	}
	b, err := r.dec.ReadNBytes(len(dst))
	r.set(err)
	copy(dst, b)
}

func (r *reader) key() solana.PublicKey {
	var k solana.PublicKey
	r.fixed(k[:])
	return k
}

func (r *reader) proof() accumulator.CompressedProof {
	var p accumulator.CompressedProof
	r.fixed(p.A[:])
	r.fixed(p.B[:])
	r.fixed(p.C[:])
	return p
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	r.set(err)
	return v
}

func (r *reader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint16(bin.LE)
	r.set(err)
	return v
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint32(bin.LE)
	r.set(err)
	return v
}

func (r *reader) i64() int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadInt64(bin.LE)
	r.set(err)
	return v
}

// data reads a u32 length and requires it to cover exactly the rest of the
// payload.
func (r *reader) data() []byte {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	if rem := r.dec.Remaining(); uint64(n) != uint64(rem) {
		r.err = fmt.Errorf("%w: data_len %d, %d bytes follow", ErrLengthMismatch, n, rem)
		return nil
	}
	b, err := r.dec.ReadNBytes(int(n))
	r.set(err)
	return append([]byte(nil), b...)
}

// writer wraps a bin.Encoder and keeps the first error.
type writer struct {
	buf bytes.Buffer
	enc *bin.Encoder
	err error
}

func newWriter(size int) *writer {
	w := &writer{}
	w.buf.Grow(size)
	w.enc = bin.NewBinEncoder(&w.buf)
	return w
}

func (w *writer) do(err error) {
	if err != nil && w.err == nil {
		w.err = err
	}
}

func (w *writer) raw(b []byte) { w.do(w.enc.WriteBytes(b, false)) }
func (w *writer) u8(v uint8)   { w.do(w.enc.WriteUint8(v)) }
func (w *writer) u16(v uint16) { w.do(w.enc.WriteUint16(v, bin.LE)) }
func (w *writer) u32(v uint32) { w.do(w.enc.WriteUint32(v, bin.LE)) }
func (w *writer) i64(v int64)  { w.do(w.enc.WriteInt64(v, bin.LE)) }

func (w *writer) data(b []byte) {
	w.u32(uint32(len(b)))
	w.raw(b)
}

func (w *writer) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, fmt.Errorf("wire: encode: %w", w.err)
	}
	return w.buf.Bytes(), nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

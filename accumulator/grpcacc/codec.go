package grpcacc

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/tchajed/marshal"

	"xdao.co/sas/accumulator"
)

// ErrMalformed reports a frame that does not decode.
var ErrMalformed = errors.New("grpcacc: malformed frame")

// reader consumes a frame and remembers the first short read, so decoders
// can read every field and check once at the end.
type reader struct {
	b   []byte
	err error
}

func (r *reader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: short %s", ErrMalformed, what)
	}
}

func (r *reader) u64(what string) uint64 {
	if r.err != nil || len(r.b) < 8 {
		r.fail(what)
		return 0
	}
	v, rest := marshal.ReadInt(r.b)
	r.b = rest
	return v
}

func (r *reader) fixed(dst []byte, what string) {
	if r.err != nil || len(r.b) < len(dst) {
		r.fail(what)
		return
	}
	v, rest := marshal.ReadBytes(r.b, uint64(len(dst)))
	copy(dst, v)
	r.b = rest
}

func (r *reader) bool(what string) bool {
	if r.err != nil || len(r.b) < 1 {
		r.fail(what)
		return false
	}
	v, rest := marshal.ReadBool(r.b)
	r.b = rest
	return v
}

func (r *reader) bytes(what string) []byte {
	n := r.u64(what + " length")
	if r.err != nil || n > uint64(len(r.b)) {
		r.fail(what)
		return nil
	}
	v, rest := marshal.ReadBytes(r.b, n)
	r.b = rest
	return append([]byte(nil), v...)
}

// count reads an element count and rejects counts the remaining frame cannot
// hold at minElem bytes per element.
func (r *reader) count(minElem int, what string) int {
	n := r.u64(what + " count")
	if r.err != nil {
		return 0
	}
	if n > uint64(len(r.b)/minElem) {
		r.fail(what)
		return 0
	}
	return int(n)
}

func (r *reader) u16(what string) uint16 {
	v := r.u64(what)
	if r.err == nil && v > 0xffff {
		r.err = fmt.Errorf("%w: %s out of range", ErrMalformed, what)
	}
	return uint16(v)
}

func (r *reader) u32(what string) uint32 {
	v := r.u64(what)
	if r.err == nil && v > 0xffffffff {
		r.err = fmt.Errorf("%w: %s out of range", ErrMalformed, what)
	}
	return uint32(v)
}

func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if len(r.b) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(r.b))
	}
	return nil
}

func (r *reader) key(what string) solana.PublicKey {
	var k solana.PublicKey
	r.fixed(k[:], what)
	return k
}

func (r *reader) proof() accumulator.CompressedProof {
	var p accumulator.CompressedProof
	r.fixed(p.A[:], "proof.a")
	r.fixed(p.B[:], "proof.b")
	r.fixed(p.C[:], "proof.c")
	return p
}

func writeProof(b []byte, p accumulator.CompressedProof) []byte {
	return marshal.WriteBytes(b, p.Bytes())
}

func encodeProofRequest(req accumulator.ProofRequest) []byte {
	b := make([]byte, 0, 32+16+len(req.NewAddresses)*32+len(req.Inputs)*64)
	b = marshal.WriteBytes(b, req.AddressTree[:])
	b = marshal.WriteInt(b, uint64(len(req.NewAddresses)))
	for _, a := range req.NewAddresses {
		b = marshal.WriteBytes(b, a[:])
	}
	b = marshal.WriteInt(b, uint64(len(req.Inputs)))
	for _, in := range req.Inputs {
		b = marshal.WriteBytes(b, in.Address[:])
		b = marshal.WriteBytes(b, in.DataHash[:])
	}
	return b
}

func decodeProofRequest(b []byte) (accumulator.ProofRequest, error) {
	r := &reader{b: b}
	var req accumulator.ProofRequest
	req.AddressTree = r.key("address tree")
	if n := r.count(32, "new addresses"); n > 0 {
		req.NewAddresses = make([][32]byte, n)
		for i := range req.NewAddresses {
			r.fixed(req.NewAddresses[i][:], "new address")
		}
	}
	if n := r.count(64, "inputs"); n > 0 {
		req.Inputs = make([]accumulator.LeafRef, n)
		for i := range req.Inputs {
			r.fixed(req.Inputs[i].Address[:], "input address")
			r.fixed(req.Inputs[i].DataHash[:], "input hash")
		}
	}
	return req, r.done()
}

func encodeProofResponse(resp *accumulator.ProofResponse) []byte {
	b := make([]byte, 0, accumulator.ProofSize+16+len(resp.LeafIndices)*8)
	b = writeProof(b, resp.Proof)
	b = marshal.WriteInt(b, uint64(resp.RootIndex))
	b = marshal.WriteInt(b, uint64(len(resp.LeafIndices)))
	for _, idx := range resp.LeafIndices {
		b = marshal.WriteInt(b, uint64(idx))
	}
	return b
}

func decodeProofResponse(b []byte) (*accumulator.ProofResponse, error) {
	r := &reader{b: b}
	resp := &accumulator.ProofResponse{}
	resp.Proof = r.proof()
	resp.RootIndex = r.u16("root index")
	if n := r.count(8, "leaf indices"); n > 0 {
		resp.LeafIndices = make([]uint32, n)
		for i := range resp.LeafIndices {
			resp.LeafIndices[i] = r.u32("leaf index")
		}
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return resp, nil
}

// Per-element minimum sizes of the transition lists.
const (
	newAddressSize = 32 + 32 + 8
	inputLeafSize  = 32 + 8 + 32 + 8 + 8 + 1
	outputLeafSize = 32 + 8 + 32 + 8
)

func encodeTransition(t accumulator.Transition) []byte {
	b := make([]byte, 0, 32+1+accumulator.ProofSize+24+
		len(t.NewAddresses)*newAddressSize+len(t.Inputs)*inputLeafSize+len(t.Outputs)*outputLeafSize)
	b = marshal.WriteBytes(b, t.AddressTree[:])
	b = marshal.WriteBool(b, t.Proof.Present())
	if t.Proof.Present() {
		b = writeProof(b, *t.Proof.Proof)
	}
	b = marshal.WriteInt(b, uint64(len(t.NewAddresses)))
	for _, a := range t.NewAddresses {
		b = marshal.WriteBytes(b, a.Seed[:])
		b = marshal.WriteBytes(b, a.Address[:])
		b = marshal.WriteInt(b, uint64(a.RootIndex))
	}
	b = marshal.WriteInt(b, uint64(len(t.Inputs)))
	for _, in := range t.Inputs {
		b = marshal.WriteBytes(b, in.Address[:])
		b = marshal.WriteBytes(b, in.Discriminator[:])
		b = marshal.WriteBytes(b, in.DataHash[:])
		b = marshal.WriteInt(b, uint64(in.LeafIndex))
		b = marshal.WriteInt(b, uint64(in.RootIndex))
		b = marshal.WriteBool(b, in.ProveByIndex)
	}
	b = marshal.WriteInt(b, uint64(len(t.Outputs)))
	for _, out := range t.Outputs {
		b = marshal.WriteBytes(b, out.Address[:])
		b = marshal.WriteBytes(b, out.Discriminator[:])
		b = marshal.WriteBytes(b, out.DataHash[:])
		b = marshal.WriteInt(b, uint64(len(out.Data)))
		b = marshal.WriteBytes(b, out.Data)
	}
	return b
}

func decodeTransition(b []byte) (accumulator.Transition, error) {
	r := &reader{b: b}
	var t accumulator.Transition
	t.AddressTree = r.key("address tree")
	if r.bool("proof flag") {
		t.Proof = accumulator.Some(r.proof())
	}
	if n := r.count(newAddressSize, "new addresses"); n > 0 {
		t.NewAddresses = make([]accumulator.NewAddress, n)
		for i := range t.NewAddresses {
			a := &t.NewAddresses[i]
			r.fixed(a.Seed[:], "seed")
			r.fixed(a.Address[:], "address")
			a.RootIndex = r.u16("root index")
		}
	}
	if n := r.count(inputLeafSize, "inputs"); n > 0 {
		t.Inputs = make([]accumulator.InputLeaf, n)
		for i := range t.Inputs {
			in := &t.Inputs[i]
			r.fixed(in.Address[:], "input address")
			r.fixed(in.Discriminator[:], "input discriminator")
			r.fixed(in.DataHash[:], "input hash")
			in.LeafIndex = r.u32("leaf index")
			in.RootIndex = r.u16("root index")
			in.ProveByIndex = r.bool("prove by index")
		}
	}
	if n := r.count(outputLeafSize, "outputs"); n > 0 {
		t.Outputs = make([]accumulator.OutputLeaf, n)
		for i := range t.Outputs {
			out := &t.Outputs[i]
			r.fixed(out.Address[:], "output address")
			r.fixed(out.Discriminator[:], "output discriminator")
			r.fixed(out.DataHash[:], "output hash")
			out.Data = r.bytes("output data")
		}
	}
	return t, r.done()
}

func encodeReceipt(rc *accumulator.Receipt) []byte {
	b := make([]byte, 0, 64+16+len(rc.LeafIndices)*8)
	b = marshal.WriteBytes(b, rc.AddressRoot[:])
	b = marshal.WriteBytes(b, rc.StateRoot[:])
	b = marshal.WriteInt(b, uint64(rc.RootIndex))
	b = marshal.WriteInt(b, uint64(len(rc.LeafIndices)))
	for _, idx := range rc.LeafIndices {
		b = marshal.WriteInt(b, uint64(idx))
	}
	return b
}

func decodeReceipt(b []byte) (*accumulator.Receipt, error) {
	r := &reader{b: b}
	rc := &accumulator.Receipt{}
	r.fixed(rc.AddressRoot[:], "address root")
	r.fixed(rc.StateRoot[:], "state root")
	rc.RootIndex = r.u16("root index")
	if n := r.count(8, "leaf indices"); n > 0 {
		rc.LeafIndices = make([]uint32, n)
		for i := range rc.LeafIndices {
			rc.LeafIndices[i] = r.u32("leaf index")
		}
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return rc, nil
}

func decodeAddress(b []byte) ([32]byte, error) {
	var a [32]byte
	if len(b) != len(a) {
		return a, fmt.Errorf("%w: address must be 32 bytes, have %d", ErrMalformed, len(b))
	}
	copy(a[:], b)
	return a, nil
}

func encodeLeaf(l *accumulator.Leaf) []byte {
	b := make([]byte, 0, 32+8+32+16+len(l.Data))
	b = marshal.WriteBytes(b, l.Address[:])
	b = marshal.WriteBytes(b, l.Discriminator[:])
	b = marshal.WriteBytes(b, l.DataHash[:])
	b = marshal.WriteInt(b, uint64(l.LeafIndex))
	b = marshal.WriteInt(b, uint64(len(l.Data)))
	return marshal.WriteBytes(b, l.Data)
}

func decodeLeaf(b []byte) (*accumulator.Leaf, error) {
	r := &reader{b: b}
	l := &accumulator.Leaf{}
	r.fixed(l.Address[:], "address")
	r.fixed(l.Discriminator[:], "discriminator")
	r.fixed(l.DataHash[:], "hash")
	l.LeafIndex = r.u32("leaf index")
	l.Data = r.bytes("data")
	if err := r.done(); err != nil {
		return nil, err
	}
	return l, nil
}

package smt

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/tchajed/marshal"
	"github.com/zeebo/blake3"

	"xdao.co/sas/accumulator"
)

const proofDomain = "xdao-sas-accumulator-proof-v1"

type roots struct {
	address [32]byte
	state   [32]byte
}

// Service is an in-memory accumulator. Proofs bind the address and state roots
// and the exact set of addresses and leaves a transition touches; a proof is
// accepted while its roots remain in the bounded root history.
type Service struct {
	mu        sync.Mutex
	tree      solana.PublicKey
	addresses *Tree
	state     *Tree
	history   []roots
	written   []bool
	seq       uint64
	nextLeaf  uint32
	log       zerolog.Logger
}

type Option func(*Service)

// WithRootHistory sets how many past roots remain provable.
func WithRootHistory(n int) Option {
	return func(s *Service) {
		if n > 0 && n <= 1<<16 {
			s.history = make([]roots, n)
			s.written = make([]bool, n)
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New returns an empty accumulator that serves addressTree.
func New(addressTree solana.PublicKey, opts ...Option) *Service {
	s := &Service{
		tree:      addressTree,
		addresses: NewTree(),
		state:     NewTree(),
		history:   make([]roots, 64),
		written:   make([]bool, 64),
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.record()
	return s
}

var _ accumulator.Service = (*Service)(nil)

func (s *Service) currentRoots() roots {
	return roots{address: s.addresses.Root(), state: s.state.Root()}
}

func (s *Service) rootIndex() uint16 {
	return uint16(s.seq % uint64(len(s.history)))
}

// Roots returns the current address and state roots and their root index.
func (s *Service) Roots() (address, state [32]byte, rootIndex uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.currentRoots()
	return r.address, r.state, s.rootIndex()
}

// Len returns the number of used addresses and live leaves.
func (s *Service) Len() (addresses, leaves int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addresses.Len(), s.state.Len()
}

func (s *Service) Prove(ctx context.Context, req accumulator.ProofRequest) (*accumulator.ProofResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.AddressTree != s.tree {
		return nil, fmt.Errorf("%w: %s", accumulator.ErrWrongTree, req.AddressTree)
	}
	if err := s.checkNewAddresses(req.NewAddresses); err != nil {
		return nil, err
	}
	indices := make([]uint32, 0, len(req.Inputs))
	for _, in := range req.Inputs {
		leaf, err := s.leaf(in.Address)
		if err != nil {
			return nil, err
		}
		if leaf.DataHash != in.DataHash {
			return nil, fmt.Errorf("%w: data hash differs at %x", accumulator.ErrLeafMismatch, in.Address)
		}
		indices = append(indices, leaf.LeafIndex)
	}

	r := s.currentRoots()
	return &accumulator.ProofResponse{
		Proof: accumulator.CompressedProof{
			A: r.address,
			B: bind(r, req.NewAddresses, req.Inputs),
			C: r.state,
		},
		RootIndex:   s.rootIndex(),
		LeafIndices: indices,
	}, nil
}

func (s *Service) Apply(ctx context.Context, t accumulator.Transition) (*accumulator.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.AddressTree != s.tree {
		return nil, fmt.Errorf("%w: %s", accumulator.ErrWrongTree, t.AddressTree)
	}
	if err := checkShape(t); err != nil {
		return nil, err
	}
	if err := s.verifyProof(t); err != nil {
		return nil, err
	}

	newAddrs := make([][32]byte, len(t.NewAddresses))
	for i, na := range t.NewAddresses {
		newAddrs[i] = na.Address
	}
	if err := s.checkNewAddresses(newAddrs); err != nil {
		return nil, err
	}
	for _, in := range t.Inputs {
		leaf, err := s.leaf(in.Address)
		if err != nil {
			return nil, err
		}
		if leaf.Discriminator != in.Discriminator || leaf.DataHash != in.DataHash {
			return nil, fmt.Errorf("%w: data hash differs at %x", accumulator.ErrLeafMismatch, in.Address)
		}
		if leaf.LeafIndex != in.LeafIndex {
			return nil, fmt.Errorf("%w: leaf index %d, stored %d", accumulator.ErrLeafMismatch, in.LeafIndex, leaf.LeafIndex)
		}
	}

	// All checks passed; nothing below can fail.
	for _, na := range t.NewAddresses {
		seed := na.Seed
		s.addresses.Put(na.Address, seed[:])
	}
	for _, in := range t.Inputs {
		s.state.Delete(in.Address)
	}
	indices := make([]uint32, 0, len(t.Outputs))
	for _, out := range t.Outputs {
		idx := s.nextLeaf
		s.nextLeaf++
		s.state.Put(out.Address, encodeLeaf(out.Discriminator, out.DataHash, idx, out.Data))
		indices = append(indices, idx)
	}
	s.seq++
	s.record()
	r := s.currentRoots()

	s.log.Debug().
		Int("new_addresses", len(t.NewAddresses)).
		Int("inputs", len(t.Inputs)).
		Int("outputs", len(t.Outputs)).
		Uint16("root_index", s.rootIndex()).
		Msg("accumulator transition applied")

	return &accumulator.Receipt{
		AddressRoot: r.address,
		StateRoot:   r.state,
		RootIndex:   s.rootIndex(),
		LeafIndices: indices,
	}, nil
}

func (s *Service) Leaf(ctx context.Context, address [32]byte) (*accumulator.Leaf, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaf(address)
}

// ProveLeaf returns a Merkle proof of address in the state tree, or of its
// absence, against the current state root.
func (s *Service) ProveLeaf(address [32]byte) (bool, []byte, *Proof, [32]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Prove(address)
}

func (s *Service) leaf(address [32]byte) (*accumulator.Leaf, error) {
	val, ok := s.state.Get(address)
	if !ok {
		return nil, fmt.Errorf("%w: %x", accumulator.ErrLeafNotFound, address)
	}
	leaf, err := decodeLeaf(address, val)
	if err != nil {
		return nil, err
	}
	return leaf, nil
}

func (s *Service) checkNewAddresses(addrs [][32]byte) error {
	seen := make(map[[32]byte]struct{}, len(addrs))
	for _, a := range addrs {
		if _, dup := seen[a]; dup {
			return fmt.Errorf("%w: %x repeated in transition", accumulator.ErrAddressExists, a)
		}
		seen[a] = struct{}{}
		if _, used := s.addresses.Get(a); used {
			return fmt.Errorf("%w: %x", accumulator.ErrAddressExists, a)
		}
	}
	return nil
}

func (s *Service) verifyProof(t accumulator.Transition) error {
	if !t.Proof.Present() {
		if len(t.NewAddresses) > 0 {
			return fmt.Errorf("%w: new addresses require a proof", accumulator.ErrInvalidProof)
		}
		for _, in := range t.Inputs {
			if !in.ProveByIndex {
				return fmt.Errorf("%w: input %x requires a proof", accumulator.ErrInvalidProof, in.Address)
			}
		}
		return nil
	}

	p := *t.Proof.Proof
	claimed := roots{address: p.A, state: p.C}
	for _, na := range t.NewAddresses {
		if err := s.checkRoot(na.RootIndex, claimed); err != nil {
			return err
		}
	}
	for _, in := range t.Inputs {
		if in.ProveByIndex {
			continue
		}
		if err := s.checkRoot(in.RootIndex, claimed); err != nil {
			return err
		}
	}

	newAddrs := make([][32]byte, len(t.NewAddresses))
	for i, na := range t.NewAddresses {
		newAddrs[i] = na.Address
	}
	refs := make([]accumulator.LeafRef, len(t.Inputs))
	for i, in := range t.Inputs {
		refs[i] = accumulator.LeafRef{Address: in.Address, DataHash: in.DataHash}
	}
	if bind(claimed, newAddrs, refs) != p.B {
		return fmt.Errorf("%w: proof does not cover this transition", accumulator.ErrInvalidProof)
	}
	return nil
}

// record stores the current roots in the slot of the current root index.
func (s *Service) record() {
	i := s.rootIndex()
	s.history[i] = s.currentRoots()
	s.written[i] = true
}

func (s *Service) checkRoot(idx uint16, claimed roots) error {
	if int(idx) >= len(s.history) {
		return fmt.Errorf("%w: root index %d outside history of %d", accumulator.ErrStaleRoot, idx, len(s.history))
	}
	if !s.written[idx] {
		return fmt.Errorf("%w: root index %d was never issued", accumulator.ErrStaleRoot, idx)
	}
	if s.history[idx] != claimed {
		return fmt.Errorf("%w: root index %d no longer holds the proven roots", accumulator.ErrStaleRoot, idx)
	}
	return nil
}

// checkShape rejects transitions that are malformed regardless of state.
func checkShape(t accumulator.Transition) error {
	touched := make(map[[32]byte]struct{}, len(t.NewAddresses)+len(t.Inputs))
	for _, na := range t.NewAddresses {
		touched[na.Address] = struct{}{}
	}
	inputs := make(map[[32]byte]struct{}, len(t.Inputs))
	for _, in := range t.Inputs {
		if _, dup := inputs[in.Address]; dup {
			return fmt.Errorf("%w: input %x repeated", accumulator.ErrInvalidTransition, in.Address)
		}
		inputs[in.Address] = struct{}{}
		touched[in.Address] = struct{}{}
	}
	outputs := make(map[[32]byte]struct{}, len(t.Outputs))
	for _, out := range t.Outputs {
		if _, ok := touched[out.Address]; !ok {
			return fmt.Errorf("%w: output %x is not created or consumed by the transition", accumulator.ErrInvalidTransition, out.Address)
		}
		if _, dup := outputs[out.Address]; dup {
			return fmt.Errorf("%w: output %x repeated", accumulator.ErrInvalidTransition, out.Address)
		}
		outputs[out.Address] = struct{}{}
	}
	if len(t.NewAddresses) == 0 && len(t.Inputs) == 0 {
		return fmt.Errorf("%w: empty transition", accumulator.ErrInvalidTransition)
	}
	return nil
}

// bind derives the 64-byte proof body from the roots and the touched set.
func bind(r roots, newAddrs [][32]byte, inputs []accumulator.LeafRef) [64]byte {
	b := make([]byte, 0, len(proofDomain)+64+16+32*len(newAddrs)+64*len(inputs))
	b = append(b, proofDomain...)
	b = append(b, r.address[:]...)
	b = append(b, r.state[:]...)
	b = marshal.WriteInt(b, uint64(len(newAddrs)))
	for _, a := range newAddrs {
		b = append(b, a[:]...)
	}
	b = marshal.WriteInt(b, uint64(len(inputs)))
	for _, in := range inputs {
		b = append(b, in.Address[:]...)
		b = append(b, in.DataHash[:]...)
	}
	h := blake3.New()
	_, _ = h.Write(b)
	var out [64]byte
	_, _ = h.Digest().Read(out[:])
	return out
}

// Leaf values in the state tree: disc(8) || data_hash(32) || leaf_index(u64) || data(u64 len || bytes).
func encodeLeaf(disc [8]byte, dataHash [32]byte, idx uint32, data []byte) []byte {
	b := make([]byte, 0, 8+32+8+8+len(data))
	b = append(b, disc[:]...)
	b = append(b, dataHash[:]...)
	b = marshal.WriteInt(b, uint64(idx))
	b = marshal.WriteInt(b, uint64(len(data)))
	return append(b, data...)
}

func decodeLeaf(address [32]byte, val []byte) (*accumulator.Leaf, error) {
	if len(val) < 8+32+8+8 {
		return nil, fmt.Errorf("smt: corrupt leaf at %x", address)
	}
	leaf := &accumulator.Leaf{Address: address}
	copy(leaf.Discriminator[:], val[0:8])
	copy(leaf.DataHash[:], val[8:40])
	idx, rest := marshal.ReadInt(val[40:])
	n, rest := marshal.ReadInt(rest)
	if uint64(len(rest)) != n {
		return nil, fmt.Errorf("smt: corrupt leaf data at %x", address)
	}
	leaf.LeafIndex = uint32(idx)
	leaf.Data = append([]byte(nil), rest...)
	return leaf, nil
}

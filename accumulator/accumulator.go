// Package accumulator defines the proof service that stores compressed
// attestations.
//
// The service keeps two sparse Merkle trees: an insert-only address tree that
// makes every compressed address usable at most once, and a state tree that
// holds the live leaves. Callers obtain a validity proof for the addresses and
// leaves they intend to touch, then submit a Transition carrying that proof.
// The service alone decides whether a proof is valid; callers forward it
// unchanged.
package accumulator

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Service is the accumulator and proof oracle.
type Service interface {
	// Prove returns a validity proof for creating req.NewAddresses and for
	// consuming req.Inputs against the current roots.
	Prove(ctx context.Context, req ProofRequest) (*ProofResponse, error)
	// Apply verifies t.Proof and applies the whole transition, or nothing.
	Apply(ctx context.Context, t Transition) (*Receipt, error)
	// Leaf returns the live leaf stored at address.
	Leaf(ctx context.Context, address [32]byte) (*Leaf, error)
}

// LeafRef names an existing leaf by address and data hash.
type LeafRef struct {
	Address  [32]byte
	DataHash [32]byte
}

type ProofRequest struct {
	AddressTree  solana.PublicKey
	NewAddresses [][32]byte
	Inputs       []LeafRef
}

type ProofResponse struct {
	Proof     CompressedProof
	RootIndex uint16
	// LeafIndices holds the leaf index of each requested input, in order.
	LeafIndices []uint32
}

// NewAddress is an address to insert into the address tree.
type NewAddress struct {
	Seed      [32]byte
	Address   [32]byte
	RootIndex uint16
}

// InputLeaf is a live leaf to nullify. With ProveByIndex the leaf is located
// by LeafIndex alone and RootIndex is ignored.
type InputLeaf struct {
	Address       [32]byte
	Discriminator [8]byte
	DataHash      [32]byte
	LeafIndex     uint32
	RootIndex     uint16
	ProveByIndex  bool
}

// OutputLeaf is a leaf to append to the state tree. Its address must be
// created or consumed by the same transition.
type OutputLeaf struct {
	Address       [32]byte
	Discriminator [8]byte
	DataHash      [32]byte
	Data          []byte
}

type Transition struct {
	AddressTree  solana.PublicKey
	Proof        ValidityProof
	NewAddresses []NewAddress
	Inputs       []InputLeaf
	Outputs      []OutputLeaf
}

type Receipt struct {
	AddressRoot [32]byte
	StateRoot   [32]byte
	RootIndex   uint16
	// LeafIndices holds the leaf index assigned to each output, in order.
	LeafIndices []uint32
}

type Leaf struct {
	Address       [32]byte
	Discriminator [8]byte
	DataHash      [32]byte
	LeafIndex     uint32
	Data          []byte
}

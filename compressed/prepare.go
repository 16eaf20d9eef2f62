package compressed

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"xdao.co/sas/accumulator"
	"xdao.co/sas/address"
	"xdao.co/sas/ledger"
	"xdao.co/sas/state"
	"xdao.co/sas/wire"
)

// The Prepare helpers build payloads the way a client would: they derive the
// addresses involved and ask the accumulator for a proof against its current
// roots. They perform no authorization.

// PrepareCreate builds a create payload for a new attestation.
func (e *Engine) PrepareCreate(ctx context.Context, credential, schema, nonce solana.PublicKey, expiry int64, data []byte) (*wire.CreatePayload, error) {
	plain, _, err := e.cfg.Deriver().Attestation(credential, schema, nonce)
	if err != nil {
		return nil, wrapError(KindAddressing, CodeInvalidAttestation, RulePlainAddress, "derive attestation address", err)
	}
	addr, _ := address.CompressedAddress(plain, e.cfg.AddressTree(), e.cfg.ProgramID())
	resp, err := e.acc.Prove(ctx, accumulator.ProofRequest{
		AddressTree:  e.cfg.AddressTree(),
		NewAddresses: [][32]byte{addr},
	})
	if err != nil {
		return nil, fromAccumulator(err)
	}
	return &wire.CreatePayload{
		Proof:            resp.Proof,
		Nonce:            nonce,
		Expiry:           expiry,
		AddressRootIndex: resp.RootIndex,
		Data:             append([]byte{}, data...),
	}, nil
}

// PrepareClose builds a close payload for the committed attestation a. With
// byIndex the payload carries no proof and the leaf is located by its index.
func (e *Engine) PrepareClose(ctx context.Context, a *state.Attestation, byIndex bool) (*wire.ClosePayload, error) {
	if a == nil {
		return nil, errors.New("compressed: nil attestation")
	}
	plain, _, err := e.cfg.Deriver().Attestation(a.Credential, a.Schema, a.Nonce)
	if err != nil {
		return nil, wrapError(KindAddressing, CodeInvalidAttestation, RulePlainAddress, "derive attestation address", err)
	}
	addr, _ := address.CompressedAddress(plain, e.cfg.AddressTree(), e.cfg.ProgramID())
	p := &wire.ClosePayload{
		Address: addr,
		Nonce:   a.Nonce,
		Schema:  a.Schema,
		Signer:  a.Signer,
		Expiry:  a.Expiry,
		Data:    append([]byte{}, a.Data...),
	}
	if byIndex {
		leaf, err := e.acc.Leaf(ctx, addr)
		if err != nil {
			return nil, fromAccumulator(err)
		}
		p.LeafIndex = leaf.LeafIndex
		return p, nil
	}
	resp, err := e.acc.Prove(ctx, accumulator.ProofRequest{
		AddressTree: e.cfg.AddressTree(),
		Inputs:      []accumulator.LeafRef{{Address: addr, DataHash: a.Hash()}},
	})
	if err != nil {
		return nil, fromAccumulator(err)
	}
	p.Proof = accumulator.Some(resp.Proof)
	p.RootIndex = resp.RootIndex
	if len(resp.LeafIndices) > 0 {
		p.LeafIndex = resp.LeafIndices[0]
	}
	return p, nil
}

// PrepareBatch builds a batch payload for the plain attestations stored at
// attestations.
func (e *Engine) PrepareBatch(ctx context.Context, rd ledger.Reader, attestations []solana.PublicKey, closeAccounts bool) (*wire.BatchPayload, error) {
	if len(attestations) == 0 || len(attestations) > 255 {
		return nil, newError(KindResource, CodeInvalidInstructionData, RuleBatchCount, "a batch holds between 1 and 255 attestations")
	}
	addrs := make([][32]byte, 0, len(attestations))
	for _, plain := range attestations {
		if _, err := e.reg.Attestation(rd, plain); err != nil {
			return nil, fromRegistry(err, CodeInvalidAttestation)
		}
		addr, _ := address.CompressedAddress(plain, e.cfg.AddressTree(), e.cfg.ProgramID())
		addrs = append(addrs, addr)
	}
	resp, err := e.acc.Prove(ctx, accumulator.ProofRequest{
		AddressTree:  e.cfg.AddressTree(),
		NewAddresses: addrs,
	})
	if err != nil {
		return nil, fromAccumulator(err)
	}
	return &wire.BatchPayload{
		Proof:            resp.Proof,
		CloseAccounts:    closeAccounts,
		AddressRootIndex: resp.RootIndex,
		NumRecords:       uint8(len(attestations)),
	}, nil
}

// ParseCreate, ParseClose and ParseBatch decode raw payloads and report
// malformed input as a Resource error.

func ParseCreate(b []byte) (*wire.CreatePayload, error) {
	p, err := wire.ParseCreate(b)
	if err != nil {
		return nil, wrapError(KindResource, CodeInvalidInstructionData, RulePayload, "create payload", err)
	}
	return p, nil
}

func ParseClose(b []byte) (*wire.ClosePayload, error) {
	p, err := wire.ParseClose(b)
	if err != nil {
		return nil, wrapError(KindResource, CodeInvalidInstructionData, RulePayload, "close payload", err)
	}
	return p, nil
}

func ParseBatch(b []byte) (*wire.BatchPayload, error) {
	p, err := wire.ParseBatch(b)
	if err != nil {
		return nil, wrapError(KindResource, CodeInvalidInstructionData, RulePayload, "batch payload", err)
	}
	return p, nil
}

// Package compressed moves attestations between plain ledger records and
// commitments held by an accumulator service.
//
// Every operation runs its checks before touching the accumulator or the
// ledger. The accumulator transition is applied last, so a rejected proof
// leaves no trace; the caller commits the ledger transaction only when the
// operation returns nil.
package compressed

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"xdao.co/sas/accumulator"
	"xdao.co/sas/address"
	"xdao.co/sas/config"
	"xdao.co/sas/events"
	"xdao.co/sas/ledger"
	"xdao.co/sas/metrics"
	"xdao.co/sas/registry"
	"xdao.co/sas/state"
	"xdao.co/sas/wire"
)

// Operation names used in logs and metrics.
const (
	OpCreate   = "create"
	OpClose    = "close"
	OpCompress = "compress"
)

// Engine runs the compressed attestation transitions against a registry and
// an accumulator. It holds no state of its own beyond its configuration.
type Engine struct {
	cfg     config.Program
	reg     *registry.Registry
	acc     accumulator.Service
	events  events.Sink
	metrics *metrics.Transitions
	log     zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithEvents sets the sink that receives close and compress events.
func WithEvents(s events.Sink) Option {
	return func(e *Engine) { e.events = s }
}

// WithMetrics records transition outcomes in m.
func WithMetrics(m *metrics.Transitions) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an engine over the registry's records and acc. The registry
// supplies the configuration and the clock.
func New(reg *registry.Registry, acc accumulator.Service, opts ...Option) *Engine {
	e := &Engine{
		cfg:    reg.Config(),
		reg:    reg,
		acc:    acc,
		events: events.Discard,
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// CreateRequest creates a compressed attestation directly.
type CreateRequest struct {
	Signer      solana.PublicKey
	Credential  solana.PublicKey
	Schema      solana.PublicKey
	AddressTree solana.PublicKey
	Payload     *wire.CreatePayload
}

// Commitment describes one attestation committed to the accumulator.
type Commitment struct {
	Plain     solana.PublicKey
	Address   [32]byte
	Seed      [32]byte
	DataHash  [32]byte
	LeafIndex uint32
	RootIndex uint16
}

// CloseRequest nullifies a compressed attestation.
type CloseRequest struct {
	Signer     solana.PublicKey
	Credential solana.PublicKey
	Payload    *wire.ClosePayload
}

// BatchRequest compresses existing plain attestations.
type BatchRequest struct {
	Signer       solana.PublicKey
	Credential   solana.PublicKey
	AddressTree  solana.PublicKey
	Payload      *wire.BatchPayload
	Attestations []solana.PublicKey
}

// BatchResult lists the new commitments in request order and how many plain
// records were closed.
type BatchResult struct {
	Commitments []Commitment
	Closed      int
}

func (e *Engine) begin(op string) (zerolog.Logger, time.Time) {
	return e.log.With().Str("op", op).Str("op_id", uuid.NewString()).Logger(), time.Now()
}

func (e *Engine) finish(log zerolog.Logger, op string, start time.Time, records int, err error) {
	e.metrics.Observe(op, start, records, err)
	if err != nil {
		log.Debug().Err(err).Str("rule_id", RuleID(err)).Msg("transition rejected")
		return
	}
	log.Info().Int("records", records).Dur("took", time.Since(start)).Msg("transition applied")
}

// Create commits a new attestation to the accumulator without a plain record.
func (e *Engine) Create(ctx context.Context, tx *ledger.Tx, req CreateRequest) (*Commitment, error) {
	log, start := e.begin(OpCreate)
	c, err := e.create(ctx, tx, req, log)
	e.finish(log, OpCreate, start, 1, err)
	return c, err
}

func (e *Engine) create(ctx context.Context, tx *ledger.Tx, req CreateRequest, log zerolog.Logger) (*Commitment, error) {
	p := req.Payload
	if p == nil {
		return nil, newError(KindResource, CodeInvalidInstructionData, RulePayload, "missing create payload")
	}
	if err := e.authorizeSigner(tx, req.Credential, req.Signer); err != nil {
		return nil, err
	}
	s, err := e.reg.Schema(tx, req.Schema)
	if err != nil {
		return nil, fromRegistry(err, CodeInvalidSchema)
	}
	if s.IsPaused {
		return nil, newError(KindSchema, CodeSchemaPaused, RuleSchemaPaused, "schema "+req.Schema.String()+" is paused")
	}
	if s.Credential != req.Credential {
		return nil, newError(KindAuthorization, CodeInvalidCredential, RuleCredentialMismatch, "schema does not belong to credential "+req.Credential.String())
	}
	if err := e.reg.CheckExpiry(p.Expiry); err != nil {
		return nil, wrapError(KindSchema, CodeInvalidAttestationData, RuleExpired, "expired attestation", err)
	}
	plain, _, err := e.cfg.Deriver().Attestation(req.Credential, req.Schema, p.Nonce)
	if err != nil {
		return nil, wrapError(KindAddressing, CodeInvalidAttestation, RulePlainAddress, "derive attestation address", err)
	}
	if err := e.checkTree(req.AddressTree); err != nil {
		return nil, err
	}
	if err := s.ValidateData(p.Data); err != nil {
		return nil, wrapError(KindSchema, CodeInvalidSchema, RuleLayout, "data does not match schema layout", err)
	}
	if err := e.checkSize(p.Data); err != nil {
		return nil, err
	}

	a := &state.Attestation{
		Nonce:      p.Nonce,
		Credential: req.Credential,
		Schema:     req.Schema,
		Data:       append([]byte{}, p.Data...),
		Signer:     req.Signer,
		Expiry:     p.Expiry,
	}
	c, out, err := e.commit(plain, a, p.AddressRootIndex)
	if err != nil {
		return nil, err
	}
	rc, err := e.acc.Apply(ctx, accumulator.Transition{
		AddressTree:  req.AddressTree,
		Proof:        accumulator.Some(p.Proof),
		NewAddresses: []accumulator.NewAddress{{Seed: c.Seed, Address: c.Address, RootIndex: p.AddressRootIndex}},
		Outputs:      []accumulator.OutputLeaf{out},
	})
	if err != nil {
		return nil, fromAccumulator(err)
	}
	c.RootIndex = rc.RootIndex
	if len(rc.LeafIndices) > 0 {
		c.LeafIndex = rc.LeafIndices[0]
	}
	log.Debug().Stringer("plain", plain).Hex("address", c.Address[:]).Uint32("leaf_index", c.LeafIndex).Msg("compressed attestation created")
	return c, nil
}

// Close nullifies the compressed attestation rebuilt from the payload and
// emits a close event. A paused schema does not block closing.
func (e *Engine) Close(ctx context.Context, tx *ledger.Tx, req CloseRequest) error {
	log, start := e.begin(OpClose)
	err := e.close(ctx, tx, req, log)
	e.finish(log, OpClose, start, 1, err)
	return err
}

func (e *Engine) close(ctx context.Context, tx *ledger.Tx, req CloseRequest, log zerolog.Logger) error {
	p := req.Payload
	if p == nil {
		return newError(KindResource, CodeInvalidInstructionData, RulePayload, "missing close payload")
	}
	if err := e.authorizeSigner(tx, req.Credential, req.Signer); err != nil {
		return err
	}
	a := &state.Attestation{
		Nonce:      p.Nonce,
		Credential: req.Credential,
		Schema:     p.Schema,
		Data:       p.Data,
		Signer:     p.Signer,
		Expiry:     p.Expiry,
	}
	if _, err := e.reg.SchemaOf(tx, req.Credential, p.Schema); err != nil {
		return fromRegistry(err, CodeInvalidSchema)
	}
	plain, _, err := e.cfg.Deriver().Attestation(req.Credential, p.Schema, p.Nonce)
	if err != nil {
		return wrapError(KindAddressing, CodeInvalidAttestation, RulePlainAddress, "derive attestation address", err)
	}
	addr, _ := address.CompressedAddress(plain, e.cfg.AddressTree(), e.cfg.ProgramID())
	if addr != p.Address {
		return newError(KindAddressing, CodeInvalidAttestation, RuleCompressedAddress, "payload address does not match the attestation")
	}
	_, err = e.acc.Apply(ctx, accumulator.Transition{
		AddressTree: e.cfg.AddressTree(),
		Proof:       p.Proof,
		Inputs: []accumulator.InputLeaf{{
			Address:       addr,
			Discriminator: state.CompressedDiscriminator,
			DataHash:      a.Hash(),
			LeafIndex:     p.LeafIndex,
			RootIndex:     p.RootIndex,
			ProveByIndex:  !p.Proof.Present(),
		}},
	})
	if err != nil {
		return fromAccumulator(err)
	}
	log.Debug().Stringer("plain", plain).Uint32("leaf_index", p.LeafIndex).Msg("compressed attestation closed")
	e.emit(log, &events.CloseEvent{Schema: p.Schema, Data: p.Data})
	return nil
}

// CompressBatch commits existing plain attestations to the accumulator in one
// transition and, when the payload asks for it, deletes the plain records.
func (e *Engine) CompressBatch(ctx context.Context, tx *ledger.Tx, req BatchRequest) (*BatchResult, error) {
	log, start := e.begin(OpCompress)
	res, err := e.compress(ctx, tx, req, log)
	e.finish(log, OpCompress, start, len(req.Attestations), err)
	return res, err
}

func (e *Engine) compress(ctx context.Context, tx *ledger.Tx, req BatchRequest, log zerolog.Logger) (*BatchResult, error) {
	p := req.Payload
	if p == nil {
		return nil, newError(KindResource, CodeInvalidInstructionData, RulePayload, "missing batch payload")
	}
	if p.NumRecords == 0 || int(p.NumRecords) != len(req.Attestations) {
		return nil, newError(KindResource, CodeInvalidInstructionData, RuleBatchCount, "num_records does not match the supplied attestations")
	}
	if err := e.authorizeSigner(tx, req.Credential, req.Signer); err != nil {
		return nil, err
	}
	seen := make(map[solana.PublicKey]struct{}, len(req.Attestations))
	for _, addr := range req.Attestations {
		if _, dup := seen[addr]; dup {
			return nil, newError(KindAddressing, CodeInvalidAttestation, RuleDuplicateAddress, "duplicate attestation "+addr.String())
		}
		seen[addr] = struct{}{}
	}
	if err := e.checkTree(req.AddressTree); err != nil {
		return nil, err
	}

	res := &BatchResult{Commitments: make([]Commitment, 0, len(req.Attestations))}
	t := accumulator.Transition{AddressTree: req.AddressTree, Proof: accumulator.Some(p.Proof)}
	records := make([]events.CompressedRecord, 0, len(req.Attestations))
	for _, plain := range req.Attestations {
		a, err := e.reg.Attestation(tx, plain)
		if err != nil {
			return nil, fromRegistry(err, CodeInvalidAttestation)
		}
		if a.Credential != req.Credential {
			return nil, newError(KindAuthorization, CodeInvalidCredential, RuleCredentialMismatch, "attestation "+plain.String()+" belongs to another credential")
		}
		if a.IsTokenized() {
			return nil, newError(KindAuthorization, CodeInvalidTokenAccount, RuleTokenized, "attestation "+plain.String()+" is tokenized")
		}
		if err := e.checkSize(a.Data); err != nil {
			return nil, err
		}
		c, out, err := e.commit(plain, a, p.AddressRootIndex)
		if err != nil {
			return nil, err
		}
		t.NewAddresses = append(t.NewAddresses, accumulator.NewAddress{Seed: c.Seed, Address: c.Address, RootIndex: p.AddressRootIndex})
		t.Outputs = append(t.Outputs, out)
		res.Commitments = append(res.Commitments, *c)
		records = append(records, events.CompressedRecord{Schema: a.Schema, Data: a.Data})
	}

	rc, err := e.acc.Apply(ctx, t)
	if err != nil {
		return nil, fromAccumulator(err)
	}
	for i := range res.Commitments {
		res.Commitments[i].RootIndex = rc.RootIndex
		if i < len(rc.LeafIndices) {
			res.Commitments[i].LeafIndex = rc.LeafIndices[i]
		}
	}
	if p.CloseAccounts {
		for _, plain := range req.Attestations {
			if err := tx.Delete(plain); err != nil {
				return nil, wrapError(KindResource, CodeInvalidAttestation, RuleLedger, "delete plain attestation", err)
			}
			res.Closed++
		}
	}
	log.Debug().Int("records", len(records)).Bool("pdas_closed", p.CloseAccounts).Msg("attestations compressed")
	e.emit(log, &events.CompressEvent{PDAsClosed: p.CloseAccounts, Records: records})
	return res, nil
}

func (e *Engine) authorizeSigner(rd ledger.Reader, credential, signer solana.PublicKey) error {
	c, err := e.reg.Credential(rd, credential)
	if err != nil {
		return fromRegistry(err, CodeInvalidCredential)
	}
	if err := c.ValidateAuthorizedSigner(signer); err != nil {
		return wrapError(KindAuthorization, CodeSignerNotAuthorized, RuleSignerNotAuthorized, "signer "+signer.String(), err)
	}
	return nil
}

func (e *Engine) checkTree(tree solana.PublicKey) error {
	if tree != e.cfg.AddressTree() {
		return newError(KindAddressing, CodeInvalidAddressTree, RuleAddressTree, "address tree "+tree.String()+" is not the configured tree")
	}
	return nil
}

func (e *Engine) checkSize(data []byte) error {
	if len(data) > e.cfg.MaxCompressedDataSize() {
		return newError(KindResource, CodeInvalidAttestationData, RuleDataSize, "attestation data exceeds the compressed size limit")
	}
	return nil
}

// commit derives the compressed address of plain and builds its output leaf.
func (e *Engine) commit(plain solana.PublicKey, a *state.Attestation, rootIndex uint16) (*Commitment, accumulator.OutputLeaf, error) {
	addr, seed := address.CompressedAddress(plain, e.cfg.AddressTree(), e.cfg.ProgramID())
	raw, err := a.Encode()
	if err != nil {
		return nil, accumulator.OutputLeaf{}, wrapError(KindResource, CodeInvalidAttestationData, RulePayload, "encode attestation", err)
	}
	c := &Commitment{Plain: plain, Address: addr, Seed: seed, DataHash: a.Hash(), RootIndex: rootIndex}
	return c, accumulator.OutputLeaf{
		Address:       addr,
		Discriminator: state.CompressedDiscriminator,
		DataHash:      c.DataHash,
		Data:          raw,
	}, nil
}

// emit hands an event to the sink. The transition is already applied, so a
// sink failure is logged rather than returned.
func (e *Engine) emit(log zerolog.Logger, ev events.Event) {
	if err := e.events.Emit(ev); err != nil {
		log.Error().Err(err).Stringer("event", ev.Discriminator()).Msg("event not recorded")
	}
}

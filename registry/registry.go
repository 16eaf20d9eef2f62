// Package registry manages credentials, schemas and plain attestations.
//
// Operations run inside a ledger.Tx and take signer identities that the
// caller has already verified. They never write before every check passes.
package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"xdao.co/sas/address"
	"xdao.co/sas/config"
	"xdao.co/sas/events"
	"xdao.co/sas/ledger"
	"xdao.co/sas/state"
)

type Registry struct {
	cfg     config.Program
	deriver address.Deriver
	events  events.Sink
	now     func() time.Time
	log     zerolog.Logger
}

type Option func(*Registry)

// WithEvents sets the sink that receives close events.
func WithEvents(s events.Sink) Option {
	return func(r *Registry) { r.events = s }
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

func New(cfg config.Program, opts ...Option) *Registry {
	r := &Registry{
		cfg:     cfg,
		deriver: cfg.Deriver(),
		events:  events.Discard,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) Config() config.Program { return r.cfg }

// Now returns the registry clock's current unix time.
func (r *Registry) Now() int64 { return r.now().Unix() }

// Credential loads the credential at addr and checks that addr is its
// derived address.
func (r *Registry) Credential(rd ledger.Reader, addr solana.PublicKey) (*state.Credential, error) {
	raw, err := rd.Get(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCredential, addr, err)
	}
	c, err := state.DecodeCredential(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCredential, addr, err)
	}
	want, _, err := r.deriver.Credential(c.Authority, c.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCredential, addr, err)
	}
	if want != addr {
		return nil, fmt.Errorf("%w: credential %s derives to %s", ErrAddressMismatch, addr, want)
	}
	return c, nil
}

// Schema loads the schema at addr and checks that addr is its derived
// address.
func (r *Registry) Schema(rd ledger.Reader, addr solana.PublicKey) (*state.Schema, error) {
	raw, err := rd.Get(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, addr, err)
	}
	s, err := state.DecodeSchema(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, addr, err)
	}
	want, _, err := r.deriver.Schema(s.Credential, s.Name, s.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, addr, err)
	}
	if want != addr {
		return nil, fmt.Errorf("%w: schema %s derives to %s", ErrAddressMismatch, addr, want)
	}
	return s, nil
}

// Attestation loads the plain attestation at addr and checks that addr is its
// derived address.
func (r *Registry) Attestation(rd ledger.Reader, addr solana.PublicKey) (*state.Attestation, error) {
	raw, err := rd.Get(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidAttestation, addr, err)
	}
	a, err := state.DecodeAttestation(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidAttestation, addr, err)
	}
	want, _, err := r.deriver.Attestation(a.Credential, a.Schema, a.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidAttestation, addr, err)
	}
	if want != addr {
		return nil, fmt.Errorf("%w: attestation %s derives to %s", ErrAddressMismatch, addr, want)
	}
	return a, nil
}

// SchemaOf loads schemaAddr and requires it to belong to credential.
func (r *Registry) SchemaOf(rd ledger.Reader, credential, schemaAddr solana.PublicKey) (*state.Schema, error) {
	s, err := r.Schema(rd, schemaAddr)
	if err != nil {
		return nil, err
	}
	if s.Credential != credential {
		return nil, fmt.Errorf("%w: schema %s belongs to %s", ErrInvalidCredential, schemaAddr, s.Credential)
	}
	return s, nil
}

// authorize loads the credential and requires authority to control it.
func (r *Registry) authorize(rd ledger.Reader, authority, credential solana.PublicKey) (*state.Credential, error) {
	c, err := r.Credential(rd, credential)
	if err != nil {
		return nil, err
	}
	if c.Authority != authority {
		return nil, fmt.Errorf("%w: %s does not control %s", ErrIncorrectAuthority, authority, credential)
	}
	return c, nil
}

func put(tx *ledger.Tx, addr solana.PublicKey, rec interface{ Encode() ([]byte, error) }) error {
	raw, err := rec.Encode()
	if err != nil {
		return err
	}
	return tx.Put(addr, raw)
}

func create(tx *ledger.Tx, addr solana.PublicKey, rec interface{ Encode() ([]byte, error) }, kind error) error {
	raw, err := rec.Encode()
	if err != nil {
		return err
	}
	if err := tx.Create(addr, raw); err != nil {
		if errors.Is(err, ledger.ErrExists) {
			return fmt.Errorf("%w: %w", kind, err)
		}
		return err
	}
	return nil
}

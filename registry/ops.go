package registry

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"xdao.co/sas/events"
	"xdao.co/sas/ledger"
	"xdao.co/sas/state"
)

// CreateCredential registers a credential controlled by authority and
// returns its address.
func (r *Registry) CreateCredential(tx *ledger.Tx, authority solana.PublicKey, name string, signers []solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := r.deriver.Credential(authority, name)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	c := &state.Credential{
		Authority:         authority,
		Name:              name,
		AuthorizedSigners: append([]solana.PublicKey{}, signers...),
	}
	if err := create(tx, addr, c, ErrInvalidCredential); err != nil {
		return solana.PublicKey{}, err
	}
	r.log.Debug().Str("op", "create_credential").Stringer("credential", addr).Int("signers", len(signers)).Msg("credential created")
	return addr, nil
}

// ChangeAuthorizedSigners replaces the signer list of credential.
func (r *Registry) ChangeAuthorizedSigners(tx *ledger.Tx, authority, credential solana.PublicKey, signers []solana.PublicKey) error {
	c, err := r.authorize(tx, authority, credential)
	if err != nil {
		return err
	}
	c.AuthorizedSigners = append([]solana.PublicKey{}, signers...)
	return put(tx, credential, c)
}

// CreateSchema declares version 1 of a schema under credential and returns
// its address.
func (r *Registry) CreateSchema(tx *ledger.Tx, authority, credential solana.PublicKey, name, description string, layout []byte, fieldNames []string) (solana.PublicKey, error) {
	if _, err := r.authorize(tx, authority, credential); err != nil {
		return solana.PublicKey{}, err
	}
	s, err := newSchema(credential, name, description, layout, fieldNames, 1)
	if err != nil {
		return solana.PublicKey{}, err
	}
	addr, _, err := r.deriver.Schema(credential, name, s.Version)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	if err := create(tx, addr, s, ErrInvalidSchema); err != nil {
		return solana.PublicKey{}, err
	}
	r.log.Debug().Str("op", "create_schema").Stringer("credential", credential).Stringer("schema", addr).Msg("schema created")
	return addr, nil
}

func newSchema(credential solana.PublicKey, name, description string, layout []byte, fieldNames []string, version uint8) (*state.Schema, error) {
	names, err := state.EncodeFieldNames(fieldNames)
	if err != nil {
		return nil, err
	}
	s := &state.Schema{
		Credential:  credential,
		Name:        name,
		Description: description,
		Layout:      append([]byte{}, layout...),
		FieldNames:  names,
		Version:     version,
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	return s, nil
}

// ChangeSchemaStatus pauses or resumes a schema.
func (r *Registry) ChangeSchemaStatus(tx *ledger.Tx, authority, credential, schema solana.PublicKey, paused bool) error {
	s, err := r.ownedSchema(tx, authority, credential, schema)
	if err != nil {
		return err
	}
	s.IsPaused = paused
	return put(tx, schema, s)
}

func (r *Registry) ChangeSchemaDescription(tx *ledger.Tx, authority, credential, schema solana.PublicKey, description string) error {
	s, err := r.ownedSchema(tx, authority, credential, schema)
	if err != nil {
		return err
	}
	s.Description = description
	return put(tx, schema, s)
}

// ChangeSchemaVersion declares a new layout as the next version of existing.
// The new record keeps the name and description and starts unpaused.
func (r *Registry) ChangeSchemaVersion(tx *ledger.Tx, authority, credential, existing solana.PublicKey, layout []byte, fieldNames []string) (solana.PublicKey, error) {
	old, err := r.ownedSchema(tx, authority, credential, existing)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if old.Version == 255 {
		return solana.PublicKey{}, fmt.Errorf("%w: schema %s has no further versions", ErrInvalidSchema, existing)
	}
	s, err := newSchema(credential, old.Name, old.Description, layout, fieldNames, old.Version+1)
	if err != nil {
		return solana.PublicKey{}, err
	}
	addr, _, err := r.deriver.Schema(credential, s.Name, s.Version)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	if err := create(tx, addr, s, ErrInvalidSchema); err != nil {
		return solana.PublicKey{}, err
	}
	r.log.Debug().Str("op", "change_schema_version").Stringer("schema", addr).Uint8("version", s.Version).Msg("schema version created")
	return addr, nil
}

func (r *Registry) ownedSchema(tx *ledger.Tx, authority, credential, schema solana.PublicKey) (*state.Schema, error) {
	if _, err := r.authorize(tx, authority, credential); err != nil {
		return nil, err
	}
	return r.SchemaOf(tx, credential, schema)
}

// CheckExpiry rejects a non-zero expiry earlier than the registry clock.
func (r *Registry) CheckExpiry(expiry int64) error {
	if expiry != 0 && expiry < r.Now() {
		return fmt.Errorf("%w: %d", ErrExpired, expiry)
	}
	return nil
}

// CreateAttestation stores a plain attestation and returns its address.
func (r *Registry) CreateAttestation(tx *ledger.Tx, signer, credential, schema, nonce solana.PublicKey, data []byte, expiry int64) (solana.PublicKey, error) {
	c, err := r.Credential(tx, credential)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if err := c.ValidateAuthorizedSigner(signer); err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", err, signer)
	}
	s, err := r.SchemaOf(tx, credential, schema)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if s.IsPaused {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrSchemaPaused, schema)
	}
	if err := r.CheckExpiry(expiry); err != nil {
		return solana.PublicKey{}, err
	}
	if err := s.ValidateData(data); err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	addr, _, err := r.deriver.Attestation(credential, schema, nonce)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %w", ErrInvalidAttestation, err)
	}
	a := &state.Attestation{
		Nonce:      nonce,
		Credential: credential,
		Schema:     schema,
		Data:       append([]byte{}, data...),
		Signer:     signer,
		Expiry:     expiry,
	}
	if err := create(tx, addr, a, ErrInvalidAttestation); err != nil {
		return solana.PublicKey{}, err
	}
	r.log.Debug().Str("op", "create_attestation").Stringer("schema", schema).Stringer("address", addr).Msg("attestation created")
	return addr, nil
}

// CloseAttestation deletes a plain attestation and emits a close event.
func (r *Registry) CloseAttestation(tx *ledger.Tx, signer, credential, attestation solana.PublicKey) error {
	c, err := r.Credential(tx, credential)
	if err != nil {
		return err
	}
	if err := c.ValidateAuthorizedSigner(signer); err != nil {
		return fmt.Errorf("%w: %s", err, signer)
	}
	a, err := r.Attestation(tx, attestation)
	if err != nil {
		return err
	}
	if a.Credential != credential {
		return fmt.Errorf("%w: attestation %s belongs to %s", ErrInvalidCredential, attestation, a.Credential)
	}
	if err := tx.Delete(attestation); err != nil {
		return err
	}
	r.log.Debug().Str("op", "close_attestation").Stringer("address", attestation).Msg("attestation closed")
	return r.events.Emit(&events.CloseEvent{Schema: a.Schema, Data: a.Data})
}

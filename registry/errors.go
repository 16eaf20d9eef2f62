package registry

import (
	"errors"

	"xdao.co/sas/state"
)

var (
	ErrIncorrectAuthority  = errors.New("registry: incorrect authority")
	ErrInvalidCredential   = errors.New("registry: invalid credential")
	ErrInvalidSchema       = errors.New("registry: invalid schema")
	ErrInvalidAttestation  = errors.New("registry: invalid attestation")
	ErrAddressMismatch     = errors.New("registry: address does not match its derivation")
	ErrSchemaPaused        = errors.New("registry: schema paused")
	ErrExpired             = errors.New("registry: expiry is in the past")
	ErrInvalidData         = errors.New("registry: attestation data does not match schema layout")
	ErrSignerNotAuthorized = state.ErrSignerNotAuthorized
)

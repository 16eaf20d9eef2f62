// Package storage is the content-addressed store that archives emitted
// events.
package storage

import (
	"errors"

	"github.com/ipfs/go-cid"
)

// CAS stores immutable objects under the CIDv1 raw sha2-256 of their bytes.
// Put is idempotent for identical bytes and fails with ErrImmutable otherwise.
// Get fails with ErrNotFound for an absent CID.
type CAS interface {
	Put(b []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

var (
	ErrNotFound    = errors.New("storage: object not found")
	ErrInvalidCID  = errors.New("storage: undefined cid")
	ErrCIDMismatch = errors.New("storage: stored bytes do not match cid")
	ErrImmutable   = errors.New("storage: object already stored with different bytes")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Package localfs keeps archived events on disk, one immutable file per CID.
package localfs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"xdao.co/sas/cidutil"
	"xdao.co/sas/storage"
)

// CAS is a filesystem-backed storage.CAS. Objects live under
// <root>/<first two CID chars>/<CID> and are written read-only.
type CAS struct {
	root string
}

var _ storage.CAS = (*CAS)(nil)

// New opens (and creates if needed) a store rooted at root.
func New(root string) (*CAS, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: %w", err)
	}
	return &CAS{root: root}, nil
}

// Put writes b to a temporary file and publishes it with a hard link, so a
// reader never observes a partial object and an existing object is never
// replaced.
func (c *CAS) Put(b []byte) (cid.Cid, error) {
	id, err := cidutil.Sum(b)
	if err != nil {
		return cid.Undef, err
	}
	path := c.pathFor(id)
	if c.Has(id) {
		return id, c.same(id, b)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cid.Undef, err
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return cid.Undef, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return cid.Undef, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return cid.Undef, err
	}
	if err := tmp.Close(); err != nil {
		return cid.Undef, err
	}
	if err := os.Chmod(tmp.Name(), 0o444); err != nil {
		return cid.Undef, err
	}

	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return id, c.same(id, b)
		}
		return cid.Undef, err
	}
	return id, nil
}

// same reports ErrImmutable unless the stored object is intact and equal to b.
// A damaged file is never repaired.
func (c *CAS) same(id cid.Cid, b []byte) error {
	existing, err := c.Get(id)
	if err != nil || !bytes.Equal(existing, b) {
		return storage.ErrImmutable
	}
	return nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := os.ReadFile(c.pathFor(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !cidutil.Matches(id, b) {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(c.pathFor(id))
	return err == nil
}

func (c *CAS) pathFor(id cid.Cid) string {
	s := id.String()
	return filepath.Join(c.root, s[:2], s)
}

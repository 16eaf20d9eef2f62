// Package fsstore is a filesystem-backed ledger.Store.
//
// Each account is one file named by its base58 key, sharded by the first two
// characters. Writes go to a temporary file that is synced and renamed into
// place, so a reader never observes a partial account.
package fsstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"

	"xdao.co/sas/ledger"
)

type Store struct {
	root string
}

var _ ledger.Store = (*Store)(nil)

// New constructs a store rooted at root. The directory will be created if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("fsstore: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Get(key solana.PublicKey) ([]byte, error) {
	b, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ledger.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *Store) Put(key solana.PublicKey, data []byte) error {
	path := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("fsstore: publish %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key solana.PublicKey) error {
	err := os.Remove(s.pathFor(key))
	if err != nil && os.IsNotExist(err) {
		return ledger.ErrNotFound
	}
	return err
}

func (s *Store) Has(key solana.PublicKey) (bool, error) {
	_, err := os.Stat(s.pathFor(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *Store) pathFor(key solana.PublicKey) string {
	k := key.String()
	return filepath.Join(s.root, k[:2], k)
}

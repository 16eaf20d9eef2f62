// Package ledgertest is a conformance suite for ledger.Store implementations.
package ledgertest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"xdao.co/sas/ledger"
)

// NewStore constructs a fresh, empty store for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) ledger.Store

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	keyA := solana.PublicKey{0xaa, 1}
	keyB := solana.PublicKey{0xbb, 2}

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []byte("credential bytes")
		if err := s.Put(keyA, want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get(keyA)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
		got[0] ^= 0xff
		again, err := s.Get(keyA)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(again, want) {
			t.Fatalf("Get returned an alias of stored bytes")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put(keyA, []byte("v1")); err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		if err := s.Put(keyA, []byte("v2")); err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		got, err := s.Get(keyA)
		if err != nil || string(got) != "v2" {
			t.Fatalf("Get after overwrite: %q, %v", got, err)
		}
	})

	t.Run("HasDeleteAndNotFound", func(t *testing.T) {
		s := newStore(t)
		if ok, err := s.Has(keyA); err != nil || ok {
			t.Fatalf("Has on empty store: %v, %v", ok, err)
		}
		if _, err := s.Get(keyA); !ledger.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}
		if err := s.Delete(keyA); !ledger.IsNotFound(err) {
			t.Fatalf("Delete missing: got err=%v want ErrNotFound", err)
		}
		if err := s.Put(keyA, []byte("x")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if ok, _ := s.Has(keyA); !ok {
			t.Fatalf("Has returned false after Put")
		}
		if err := s.Delete(keyA); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if ok, _ := s.Has(keyA); ok {
			t.Fatalf("Has returned true after Delete")
		}
	})

	t.Run("TxIsolation", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put(keyB, []byte("old")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		tx := ledger.Begin(s)
		if err := tx.Create(keyA, []byte("new")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := tx.Delete(keyB); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if got, err := tx.Get(keyA); err != nil || string(got) != "new" {
			t.Fatalf("tx does not see its own write: %q, %v", got, err)
		}
		if _, err := tx.Get(keyB); !ledger.IsNotFound(err) {
			t.Fatalf("tx does not see its own delete: %v", err)
		}
		if ok, _ := s.Has(keyA); ok {
			t.Fatalf("uncommitted write visible in store")
		}
		if ok, _ := s.Has(keyB); !ok {
			t.Fatalf("uncommitted delete visible in store")
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		if got, err := s.Get(keyA); err != nil || string(got) != "new" {
			t.Fatalf("committed write missing: %q, %v", got, err)
		}
		if ok, _ := s.Has(keyB); ok {
			t.Fatalf("committed delete not applied")
		}
		if err := tx.Commit(); !errors.Is(err, ledger.ErrTxDone) {
			t.Fatalf("second Commit: got %v want ErrTxDone", err)
		}
	})

	t.Run("CreateRejectsExisting", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put(keyA, []byte("x")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		tx := ledger.Begin(s)
		defer tx.Discard()
		if err := tx.Create(keyA, []byte("y")); !errors.Is(err, ledger.ErrExists) {
			t.Fatalf("Create existing: got %v want ErrExists", err)
		}
	})

	t.Run("RunDiscardsOnError", func(t *testing.T) {
		s := newStore(t)
		boom := errors.New("boom")
		err := ledger.Run(s, func(tx *ledger.Tx) error {
			if err := tx.Put(keyA, []byte("lost")); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Run: got %v want boom", err)
		}
		if ok, _ := s.Has(keyA); ok {
			t.Fatalf("write survived a failed Run")
		}
		if err := ledger.Run(s, func(tx *ledger.Tx) error { return tx.Put(keyA, []byte("kept")) }); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if got, _ := s.Get(keyA); string(got) != "kept" {
			t.Fatalf("write missing after successful Run: %q", got)
		}
	})
}

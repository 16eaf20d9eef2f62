package fsstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"

	"xdao.co/sas/ledger"
	"xdao.co/sas/ledger/ledgertest"
)

func TestFSStore_Conformance(t *testing.T) {
	ledgertest.RunStoreConformance(t, func(t *testing.T) ledger.Store {
		t.Helper()
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return s
	})
}

func TestFSStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	key := solana.PublicKey{1, 2, 3}
	for _, v := range []string{"a", "bb", "ccc"} {
		if err := s.Put(key, []byte(v)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	entries, err := os.ReadDir(filepath.Dir(s.pathFor(key)))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != key.String() {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestFSStore_RequiresRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

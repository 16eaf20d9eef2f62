package storage

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/sas/cidutil"
)

func TestMemoryCAS_PutGetRoundTrip(t *testing.T) {
	cas := NewMemoryCAS()
	want := []byte("close event")

	id, err := cas.Put(want)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	wantID, err := cidutil.Sum(want)
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID failed: %v", err)
	}
	if id != wantID {
		t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
	}
	if again, err := cas.Put(want); err != nil || again != id {
		t.Fatalf("Put not idempotent: %s, %v", again, err)
	}
	got, err := cas.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Get bytes mismatch")
	}
}

func TestMemoryCAS_NotFoundAndUndef(t *testing.T) {
	cas := NewMemoryCAS()
	id, err := cidutil.Sum([]byte("missing"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID failed: %v", err)
	}
	if cas.Has(id) {
		t.Fatalf("Has returned true for missing CID")
	}
	if _, err := cas.Get(id); !IsNotFound(err) {
		t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
	}
	var undef cid.Cid
	if cas.Has(undef) {
		t.Fatalf("Has should be false for undefined CID")
	}
	if _, err := cas.Get(undef); err != ErrInvalidCID {
		t.Fatalf("Get undef: got %v want ErrInvalidCID", err)
	}
}

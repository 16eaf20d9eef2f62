package keys

import (
	"bytes"
	"testing"
)

func testSeed(b byte) []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = b + byte(i)
	}
	return seed
}

func TestDeriveRoleSeedDeterministic(t *testing.T) {
	root := testSeed(0)

	a, err := DeriveRoleSeed(root, "issuer")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	b, err := DeriveRoleSeed(root, "issuer")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("expected deterministic derivation")
	}

	c, err := DeriveRoleSeed(root, "authority")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if bytes.Equal(a, c) {
		t.Fatalf("expected different roles to derive different seeds")
	}
	if len(a) != 32 {
		t.Fatalf("seed length %d", len(a))
	}
}

func TestDeriveSignerKey(t *testing.T) {
	root := testSeed(7)
	k1, err := DeriveSignerKey(root, "issuer")
	if err != nil {
		t.Fatalf("DeriveSignerKey: %v", err)
	}
	k2, err := DeriveSignerKey(root, "issuer")
	if err != nil {
		t.Fatalf("DeriveSignerKey: %v", err)
	}
	if k1.PublicKey() != k2.PublicKey() {
		t.Fatalf("expected deterministic signer")
	}
	if _, err := DeriveSignerKey(root[:31], "issuer"); err == nil {
		t.Fatalf("expected error for short root seed")
	}
	if _, err := DeriveSignerKey(root, "bad role"); err == nil {
		t.Fatalf("expected error for invalid role")
	}
}

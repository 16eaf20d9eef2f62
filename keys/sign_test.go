package keys

import (
	"errors"
	"testing"
)

func TestEnvelope_SignVerify(t *testing.T) {
	priv, err := SignerFromSeed(testSeed(1))
	if err != nil {
		t.Fatalf("SignerFromSeed: %v", err)
	}
	env, err := Sign(priv, []byte("create payload"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	signer, err := env.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if signer != priv.PublicKey() {
		t.Fatalf("unexpected signer %s", signer)
	}

	parsed, err := ParseEnvelope(env.Encode())
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if _, err := parsed.Verify(); err != nil {
		t.Fatalf("Verify after round trip: %v", err)
	}

	parsed.Payload[0] ^= 1
	if _, err := parsed.Verify(); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for tampered payload, got %v", err)
	}

	other, err := SignerFromSeed(testSeed(2))
	if err != nil {
		t.Fatalf("SignerFromSeed: %v", err)
	}
	forged := *env
	forged.Signer = other.PublicKey()
	if _, err := forged.Verify(); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for swapped signer, got %v", err)
	}

	if _, err := ParseEnvelope(make([]byte, 95)); err == nil {
		t.Fatalf("expected error for short envelope")
	}
}

func TestKeyStore_RootRoleAndList(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenKeyStore: %v", err)
	}
	root := testSeed(3)
	rootPub, err := ks.InitRoot("issuer-a", root, false)
	if err != nil {
		t.Fatalf("InitRoot: %v", err)
	}
	if _, err := ks.InitRoot("issuer-a", root, false); err == nil {
		t.Fatalf("expected error when root exists without overwrite")
	}
	rolePub, err := ks.DeriveRole("issuer-a", "signer", false)
	if err != nil {
		t.Fatalf("DeriveRole: %v", err)
	}
	want, err := DeriveSignerKey(root, "signer")
	if err != nil {
		t.Fatalf("DeriveSignerKey: %v", err)
	}
	if rolePub != want.PublicKey() {
		t.Fatalf("stored role signer does not match derivation")
	}

	priv, err := ks.Signer("issuer-a", "signer")
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}
	if priv.PublicKey() != rolePub {
		t.Fatalf("loaded signer mismatch")
	}

	list, err := ks.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Signer != rootPub || len(list[0].Roles) != 1 || list[0].Roles[0] != "signer" {
		t.Fatalf("unexpected list %+v", list)
	}

	if _, err := ks.Signer("../escape", ""); err == nil {
		t.Fatalf("expected identifier validation error")
	}
}

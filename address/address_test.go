package address

import (
	"crypto/sha256"
	"errors"
	"strings"
	"testing"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
)

var (
	testProgram = solana.MustPublicKeyFromBase58("DXaNS83fJzVYxaVzjeEQCp5p1txfU4fZPUcBR1X2p76o")
	testTree    = solana.MustPublicKeyFromBase58("amt2kaJA14v3urZbZvnc5v2np8jqvc4Z8zDep5wbtzx")
)

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func onCurve(k solana.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(k[:])
	return err == nil
}

func TestDerive_DeterministicAndOffCurve(t *testing.T) {
	d := NewDeriver(testProgram)
	a1, b1, err := d.Credential(key(1), "issuer")
	if err != nil {
		t.Fatalf("Credential: %v", err)
	}
	a2, b2, err := d.Credential(key(1), "issuer")
	if err != nil {
		t.Fatalf("Credential: %v", err)
	}
	if a1 != a2 || b1 != b2 {
		t.Fatalf("derivation not deterministic: %s/%d vs %s/%d", a1, b1, a2, b2)
	}
	if onCurve(a1) {
		t.Fatalf("derived address %s lies on the curve", a1)
	}

	// The address must be exactly the hash for the reported bump.
	h := sha256.New()
	h.Write([]byte(CredentialSeed))
	h.Write(key(1).Bytes())
	h.Write([]byte("issuer"))
	h.Write([]byte{b1})
	h.Write(testProgram.Bytes())
	h.Write([]byte("ProgramDerivedAddress"))
	if got := solana.PublicKeyFromBytes(h.Sum(nil)); got != a1 {
		t.Fatalf("address %s does not match pre-image hash %s", a1, got)
	}
}

func TestDerive_SeedSensitivity(t *testing.T) {
	d := NewDeriver(testProgram)
	base, _, err := d.Attestation(key(1), key(2), key(3))
	if err != nil {
		t.Fatalf("Attestation: %v", err)
	}
	variants := []solana.PublicKey{}
	for _, args := range [][3]solana.PublicKey{
		{key(9), key(2), key(3)},
		{key(1), key(9), key(3)},
		{key(1), key(2), key(9)},
	} {
		a, _, err := d.Attestation(args[0], args[1], args[2])
		if err != nil {
			t.Fatalf("Attestation: %v", err)
		}
		variants = append(variants, a)
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d collided with base address", i)
		}
	}

	other, _, _ := NewDeriver(key(7)).Attestation(key(1), key(2), key(3))
	if other == base {
		t.Fatalf("different program ids produced the same address")
	}

	s1, _, _ := d.Schema(key(1), "kyc", 1)
	s2, _, _ := d.Schema(key(1), "kyc", 2)
	if s1 == s2 {
		t.Fatalf("schema versions share an address")
	}
}

func TestDerive_SeedTooLong(t *testing.T) {
	d := NewDeriver(testProgram)
	_, _, err := d.Credential(key(1), strings.Repeat("n", 33))
	if !errors.Is(err, ErrSeedTooLong) {
		t.Fatalf("expected ErrSeedTooLong, got %v", err)
	}
	if _, _, err := d.Credential(key(1), strings.Repeat("n", 32)); err != nil {
		t.Fatalf("32-byte name should derive: %v", err)
	}
}

func TestSingletons(t *testing.T) {
	d := NewDeriver(testProgram)
	ev, _, err := d.EventAuthority()
	if err != nil {
		t.Fatalf("EventAuthority: %v", err)
	}
	sas, _, err := d.SASAuthority()
	if err != nil {
		t.Fatalf("SASAuthority: %v", err)
	}
	if ev == sas || onCurve(ev) || onCurve(sas) {
		t.Fatalf("unexpected singletons %s %s", ev, sas)
	}
}

func TestCompressedAddress(t *testing.T) {
	plain := key(5)
	a1, seed := CompressedAddress(plain, testTree, testProgram)
	a2, _ := CompressedAddress(plain, testTree, testProgram)
	if a1 != a2 {
		t.Fatalf("compressed derivation not deterministic")
	}
	if a1[0] != 0 || seed[0] != 0 {
		t.Fatalf("field elements must have a zero top byte: %x %x", a1, seed)
	}
	if want := HashToField(seed[:], testTree.Bytes(), testProgram.Bytes()); want != a1 {
		t.Fatalf("address is not the hash of seed, tree and program")
	}
	if other, _ := CompressedAddress(plain, key(8), testProgram); other == a1 {
		t.Fatalf("different trees produced the same address")
	}
	if d := NewDeriver(testProgram); d.Compressed(plain, testTree) != a1 {
		t.Fatalf("Deriver.Compressed disagrees with CompressedAddress")
	}
}

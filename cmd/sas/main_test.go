package main

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"

	"xdao.co/sas/config"
	"xdao.co/sas/events"
	"xdao.co/sas/state"
	"xdao.co/sas/wire"
)

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return strings.TrimSpace(out.String()), errOut.String(), code
}

func TestLayoutEncodeAndCheck(t *testing.T) {
	out, errOut, code := runCLI(t, "layout", "encode", "--layout", "u64,i8,string", "--value", "7", "--value", "-3", "--value", "hi")
	if code != 0 {
		t.Fatalf("encode exit %d: %s", code, errOut)
	}
	data, err := hex.DecodeString(out)
	if err != nil {
		t.Fatalf("decode hex: %v", err)
	}
	if len(data) != 15 {
		t.Fatalf("expected 15 bytes, got %d", len(data))
	}

	if _, errOut, code := runCLI(t, "layout", "check", "--layout", "u64,i8,string", "--data", out); code != 0 {
		t.Fatalf("check exit %d: %s", code, errOut)
	}
	if _, _, code := runCLI(t, "layout", "check", "--layout", "u64,i8,string", "--data", out[:len(out)-2]); code != 1 {
		t.Fatalf("expected truncated data to fail, got exit %d", code)
	}
	if _, _, code := runCLI(t, "layout", "check", "--layout", "u64,bogus", "--data", ""); code != 2 {
		t.Fatalf("expected unknown type to be a usage error, got exit %d", code)
	}
}

func TestLayoutEncode_Vectors(t *testing.T) {
	out, errOut, code := runCLI(t, "layout", "encode", "--layout", "vec<u16>,vec_u8,u128", "--value", "1;2", "--value", "abcd", "--value", "1")
	if code != 0 {
		t.Fatalf("encode exit %d: %s", code, errOut)
	}
	want := "02000000" + "01000200" + "02000000abcd" + "01" + strings.Repeat("00", 15)
	if out != want {
		t.Fatalf("encoded %s, want %s", out, want)
	}
}

func TestDeriveAttestationAndCompressed(t *testing.T) {
	cfg := config.Default()
	credential, schema, nonce := solana.PublicKey{1}, solana.PublicKey{2}, solana.PublicKey{3}
	want, bump, err := cfg.Deriver().Attestation(credential, schema, nonce)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	out, errOut, code := runCLI(t, "derive", "attestation",
		"--credential", credential.String(), "--schema", schema.String(), "--nonce", nonce.String())
	if code != 0 {
		t.Fatalf("derive exit %d: %s", code, errOut)
	}
	fields := strings.Split(out, "\t")
	if len(fields) != 2 || fields[0] != want.String() || fields[1] != strconv.Itoa(int(bump)) {
		t.Fatalf("unexpected output %q (want %s %d)", out, want, bump)
	}

	out, _, code = runCLI(t, "derive", "compressed", "--attestation", want.String())
	if code != 0 {
		t.Fatalf("derive compressed exit %d", code)
	}
	addr := cfg.Deriver().Compressed(want, cfg.AddressTree())
	if !strings.Contains(out, "address\t"+hex.EncodeToString(addr[:])) {
		t.Fatalf("compressed output %q missing %x", out, addr)
	}

	if _, _, code := runCLI(t, "derive", "attestation", "--credential", "not-base58"); code != 2 {
		t.Fatalf("expected usage error, got %d", code)
	}
}

func TestHash(t *testing.T) {
	a := &state.Attestation{Nonce: solana.PublicKey{9}, Credential: solana.PublicKey{1}, Schema: solana.PublicKey{2}, Data: []byte{1, 2, 3}}
	raw, err := a.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, errOut, code := runCLI(t, "hash", "--attestation", hex.EncodeToString(raw))
	if code != 0 {
		t.Fatalf("hash exit %d: %s", code, errOut)
	}
	h := a.Hash()
	if out != hex.EncodeToString(h[:]) {
		t.Fatalf("hash %s, want %x", out, h)
	}
}

func TestKeySignVerify(t *testing.T) {
	dir := t.TempDir()
	seed := strings.Repeat("11", 32)
	if _, errOut, code := runCLI(t, "key", "init", "--name", "issuer", "--seed-hex", seed, "--key-dir", dir); code != 0 {
		t.Fatalf("key init exit %d: %s", code, errOut)
	}
	if _, errOut, code := runCLI(t, "key", "derive", "--from", "issuer", "--role", "revoker", "--key-dir", dir); code != 0 {
		t.Fatalf("key derive exit %d: %s", code, errOut)
	}
	out, _, code := runCLI(t, "key", "list", "--key-dir", dir)
	if code != 0 || !strings.HasPrefix(out, "issuer\t") || !strings.Contains(out, "- revoker") {
		t.Fatalf("key list exit %d: %q", code, out)
	}

	env, errOut, code := runCLI(t, "sign", "--signer", "issuer", "--signer-role", "revoker", "--payload", "cafe", "--key-dir", dir)
	if code != 0 {
		t.Fatalf("sign exit %d: %s", code, errOut)
	}
	signer, _, code := runCLI(t, "verify", "--envelope", env)
	if code != 0 || !strings.Contains(errOut, signer) {
		t.Fatalf("verify exit %d: signer %q not reported by sign (%q)", code, signer, errOut)
	}

	tampered := env[:len(env)-1] + "f"
	if env[len(env)-1] == 'f' {
		tampered = env[:len(env)-1] + "0"
	}
	if _, _, code := runCLI(t, "verify", "--envelope", tampered); code != 1 {
		t.Fatalf("expected tampered envelope to fail, got %d", code)
	}
}

func TestPayloadCreate(t *testing.T) {
	args := []string{"payload", "create",
		"--credential", solana.PublicKey{1}.String(),
		"--schema", solana.PublicKey{2}.String(),
		"--nonce", solana.PublicKey{3}.String(),
		"--data", "0102", "--expiry", "99",
	}

	out, errOut, code := runCLI(t, args...)
	if code != 0 {
		t.Fatalf("offline create exit %d: %s", code, errOut)
	}
	raw, _ := hex.DecodeString(out)
	p, err := wire.ParseCreate(raw)
	if err != nil {
		t.Fatalf("ParseCreate: %v", err)
	}
	if p.Expiry != 99 || !bytes.Equal(p.Data, []byte{1, 2}) {
		t.Fatalf("unexpected payload %+v", p)
	}

	out, errOut, code = runCLI(t, append(args, "--backend", "smt")...)
	if code != 0 {
		t.Fatalf("smt create exit %d: %s", code, errOut)
	}
	raw, _ = hex.DecodeString(out)
	p, err = wire.ParseCreate(raw)
	if err != nil {
		t.Fatalf("ParseCreate: %v", err)
	}
	if p.Proof.B == ([64]byte{}) {
		t.Fatalf("expected a proof bound to the accumulator roots")
	}
}

func TestPayloadBatch(t *testing.T) {
	out, errOut, code := runCLI(t, "payload", "batch", "--num-records", "3", "--close-accounts", "--root-index", "5")
	if code != 0 {
		t.Fatalf("batch exit %d: %s", code, errOut)
	}
	raw, _ := hex.DecodeString(out)
	p, err := wire.ParseBatch(raw)
	if err != nil {
		t.Fatalf("ParseBatch: %v", err)
	}
	if !p.CloseAccounts || p.NumRecords != 3 || p.AddressRootIndex != 5 {
		t.Fatalf("unexpected batch %+v", p)
	}
}

func TestEventArchive(t *testing.T) {
	dir := t.TempDir()
	raw, err := (&events.CloseEvent{Schema: solana.PublicKey{4}, Data: []byte{0xab}}).Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	id, errOut, code := runCLI(t, "event", "put", "--archive-dir", dir, "--data", hex.EncodeToString(raw))
	if code != 0 {
		t.Fatalf("put exit %d: %s", code, errOut)
	}
	out, errOut, code := runCLI(t, "event", "show", "--archive-dir", dir, "--cid", id)
	if code != 0 {
		t.Fatalf("show exit %d: %s", code, errOut)
	}
	if !strings.HasPrefix(out, "close\t") || !strings.Contains(out, "data=ab") {
		t.Fatalf("unexpected event output %q", out)
	}
	if _, _, code := runCLI(t, "event", "decode", "--data", "00"); code != 1 {
		t.Fatalf("expected malformed event to fail, got %d", code)
	}
}

package main

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"xdao.co/sas/keys"
)

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "sas key: local signer keys")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sas key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  sas key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  sas key list")
}

func keyDirFlag(fs *pflag.FlagSet) *string {
	return fs.String("key-dir", "", "Key store directory (default ~/.xdao/sas/keys)")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("key init", errOut)
	var name, seedHex string
	var force bool
	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible setups)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")
	dir := keyDirFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}

	var seed []byte
	if seedHex != "" {
		var err error
		if seed, err = keys.ParseSeedHex(seedHex); err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		seed = make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	ks, err := keys.OpenKeyStore(*dir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	signer, err := ks.InitRoot(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created signer: %s\n", signer)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("key derive", errOut)
	var from, role string
	var force bool
	fs.StringVar(&from, "from", "", "Root key name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. issuer, revoker)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")
	dir := keyDirFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" || role == "" {
		fmt.Fprintln(errOut, "missing --from or --role")
		return 2
	}
	if err := keys.CheckKeyName(from); err != nil {
		fmt.Fprintf(errOut, "invalid --from: %v\n", err)
		return 2
	}
	if err := keys.CheckRole(role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}
	ks, err := keys.OpenKeyStore(*dir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	signer, err := ks.DeriveRole(from, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive role key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created role signer: %s\n", signer)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("key list", errOut)
	dir := keyDirFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := keys.OpenKeyStore(*dir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.List()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\t%s\n", e.Identifier, e.Signer)
		for _, r := range e.Roles {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return 0
}

func cmdSign(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("sign", errOut)
	var name, role, payloadHex string
	fs.StringVar(&name, "signer", "", "Stored key name")
	fs.StringVar(&role, "signer-role", "", "Optional derived role of --signer")
	fs.StringVar(&payloadHex, "payload", "", "Payload as hex")
	dir := keyDirFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --signer")
		return 2
	}
	payload, err := hexFlag("payload", payloadHex)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	ks, err := keys.OpenKeyStore(*dir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	priv, err := ks.Signer(name, role)
	if err != nil {
		fmt.Fprintf(errOut, "invalid signer: %v\n", err)
		return 2
	}
	env, err := keys.Sign(priv, payload)
	if err != nil {
		fmt.Fprintf(errOut, "sign: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "Signer: %s\n", env.Signer)
	printHex(out, env.Encode())
	return 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("verify", errOut)
	var envHex string
	fs.StringVar(&envHex, "envelope", "", "Signed envelope as hex")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw, err := hexFlag("envelope", envHex)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	env, err := keys.ParseEnvelope(raw)
	if err != nil {
		fmt.Fprintf(errOut, "invalid envelope: %v\n", err)
		return 1
	}
	signer, err := env.Verify()
	if err != nil {
		fmt.Fprintf(errOut, "invalid: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, signer)
	return 0
}

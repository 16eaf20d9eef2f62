package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"

	"xdao.co/sas/address"
	"xdao.co/sas/layout"
	"xdao.co/sas/state"
)

func cmdDerive(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: sas derive <credential|schema|attestation|compressed|authorities> ...")
		return 2
	}
	fs := newFlagSet("derive "+args[0], errOut)
	var configPath, authority, credential, schema, nonce, attestation, tree, name string
	var version uint8
	fs.StringVar(&configPath, "config", "", "Program configuration file")

	switch args[0] {
	case "credential":
		fs.StringVar(&authority, "authority", "", "Credential authority")
		fs.StringVar(&name, "name", "", "Credential name")
	case "schema":
		fs.StringVar(&credential, "credential", "", "Credential address")
		fs.StringVar(&name, "name", "", "Schema name")
		fs.Uint8Var(&version, "version", 1, "Schema version")
	case "attestation":
		fs.StringVar(&credential, "credential", "", "Credential address")
		fs.StringVar(&schema, "schema", "", "Schema address")
		fs.StringVar(&nonce, "nonce", "", "Attestation nonce")
	case "compressed":
		fs.StringVar(&attestation, "attestation", "", "Plain attestation address")
		fs.StringVar(&tree, "tree", "", "Address tree (defaults to the configured tree)")
	case "authorities":
	default:
		fmt.Fprintf(errOut, "unknown derive subcommand: %s\n", args[0])
		return 2
	}
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	cfg, err := loadProgram(configPath)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 1
	}
	d := cfg.Deriver()

	var (
		addr solana.PublicKey
		bump uint8
	)
	switch args[0] {
	case "credential":
		a, kerr := keyFlag("authority", authority)
		if kerr != nil {
			fmt.Fprintln(errOut, kerr)
			return 2
		}
		addr, bump, err = d.Credential(a, name)
	case "schema":
		c, kerr := keyFlag("credential", credential)
		if kerr != nil {
			fmt.Fprintln(errOut, kerr)
			return 2
		}
		addr, bump, err = d.Schema(c, name, version)
	case "attestation":
		keys := map[string]string{"credential": credential, "schema": schema, "nonce": nonce}
		parsed := map[string]solana.PublicKey{}
		for _, flag := range []string{"credential", "schema", "nonce"} {
			k, kerr := keyFlag(flag, keys[flag])
			if kerr != nil {
				fmt.Fprintln(errOut, kerr)
				return 2
			}
			parsed[flag] = k
		}
		addr, bump, err = d.Attestation(parsed["credential"], parsed["schema"], parsed["nonce"])
	case "compressed":
		plain, kerr := keyFlag("attestation", attestation)
		if kerr != nil {
			fmt.Fprintln(errOut, kerr)
			return 2
		}
		t := cfg.AddressTree()
		if tree != "" {
			if t, kerr = keyFlag("tree", tree); kerr != nil {
				fmt.Fprintln(errOut, kerr)
				return 2
			}
		}
		compressed, seed := address.CompressedAddress(plain, t, cfg.ProgramID())
		fmt.Fprintf(out, "address\t%s\n", hex.EncodeToString(compressed[:]))
		fmt.Fprintf(out, "seed\t%s\n", hex.EncodeToString(seed[:]))
		return 0
	case "authorities":
		fmt.Fprintf(out, "event_authority\t%s\n", cfg.EventAuthority())
		fmt.Fprintf(out, "sas_authority\t%s\n", cfg.SASAuthority())
		return 0
	}
	if err != nil {
		fmt.Fprintf(errOut, "derive: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s\t%d\n", addr, bump)
	return 0
}

func cmdHash(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("hash", errOut)
	var recordHex, types string
	fs.StringVar(&recordHex, "attestation", "", "Encoded attestation record as hex")
	fs.StringVar(&types, "layout", "", "Optional schema layout; when set the data is validated first")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw, err := hexFlag("attestation", recordHex)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	a, err := state.DecodeAttestation(raw)
	if err != nil {
		fmt.Fprintf(errOut, "invalid attestation: %v\n", err)
		return 1
	}
	if types != "" {
		lay, err := layout.ParseLayout(types)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --layout: %v\n", err)
			return 2
		}
		if err := layout.Validate(a.Data, lay); err != nil {
			fmt.Fprintf(errOut, "invalid data: %v\n", err)
			return 1
		}
	}
	h := a.Hash()
	printHex(out, h[:])
	return 0
}

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"

	"xdao.co/sas/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "layout":
		return cmdLayout(args[1:], out, errOut)
	case "derive":
		return cmdDerive(args[1:], out, errOut)
	case "hash":
		return cmdHash(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "payload":
		return cmdPayload(args[1:], out, errOut)
	case "event":
		return cmdEvent(args[1:], out, errOut)
	case "sign":
		return cmdSign(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "sas: attestation service tooling")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sas layout check --layout <types> --data <hex>")
	fmt.Fprintln(w, "  sas layout encode --layout <types> --value <v> [--value ...]")
	fmt.Fprintln(w, "  sas layout decode --layout <types> --data <hex>")
	fmt.Fprintln(w, "  sas derive credential --authority <key> --name <name>")
	fmt.Fprintln(w, "  sas derive schema --credential <key> --name <name> [--version <n>]")
	fmt.Fprintln(w, "  sas derive attestation --credential <key> --schema <key> --nonce <key>")
	fmt.Fprintln(w, "  sas derive compressed --attestation <key> [--tree <key>]")
	fmt.Fprintln(w, "  sas derive authorities")
	fmt.Fprintln(w, "  sas hash --attestation <hex record>")
	fmt.Fprintln(w, "  sas key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  sas key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  sas key list")
	fmt.Fprintln(w, "  sas payload create --credential <key> --schema <key> --nonce <key> --data <hex> [--expiry <unix>] [--backend <name>]")
	fmt.Fprintln(w, "  sas payload close --credential <key> --schema <key> --nonce <key> --signer <key> --data <hex> [--by-index] [--backend <name>]")
	fmt.Fprintln(w, "  sas payload batch --num-records <n> [--close-accounts] [--root-index <n>] [--proof <hex>]")
	fmt.Fprintln(w, "  sas event decode --data <hex>")
	fmt.Fprintln(w, "  sas event put --archive-dir <dir> --data <hex>")
	fmt.Fprintln(w, "  sas event show --archive-dir <dir> --cid <cid>")
	fmt.Fprintln(w, "  sas sign --signer <name> [--signer-role <role>] --payload <hex>")
	fmt.Fprintln(w, "  sas verify --envelope <hex>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - <types> is a comma-separated layout such as u64,i8,string")
	fmt.Fprintln(w, "  - keys are base58; binary input and output is hex")
	fmt.Fprintln(w, "  - --config <file> selects the program configuration (defaults apply otherwise)")
	fmt.Fprintln(w, "  - payload create/close without --backend emit a zero proof for offline use")
	fmt.Fprintln(w, "  - the key store lives under ~/.xdao/sas/keys (override with --key-dir)")
}

func newFlagSet(name string, errOut io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.SortFlags = false
	return fs
}

func loadProgram(path string) (config.Program, error) {
	if path == "" {
		return config.Default(), nil
	}
	f, err := config.Load(path)
	if err != nil {
		return config.Program{}, err
	}
	return f.Program()
}

// keyFlag parses a required base58 key flag.
func keyFlag(name, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("missing --%s", name)
	}
	k, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --%s: %v", name, err)
	}
	return k, nil
}

func hexFlag(name, value string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %v", name, err)
	}
	return b, nil
}

func printHex(out io.Writer, b []byte) {
	_, _ = fmt.Fprintln(out, hex.EncodeToString(b))
}

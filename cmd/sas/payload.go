package main

import (
	"context"
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"

	"xdao.co/sas/accumulator"
	"xdao.co/sas/accumulator/accregistry"
	"xdao.co/sas/address"
	"xdao.co/sas/compressed"
	"xdao.co/sas/config"
	"xdao.co/sas/registry"
	"xdao.co/sas/state"
	"xdao.co/sas/wire"

	_ "xdao.co/sas/accumulator/grpcacc"
	_ "xdao.co/sas/accumulator/smt"
)

func cmdPayload(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: sas payload <create|close|batch> ...")
		return 2
	}
	switch args[0] {
	case "create":
		return cmdPayloadCreate(args[1:], out, errOut)
	case "close":
		return cmdPayloadClose(args[1:], out, errOut)
	case "batch":
		return cmdPayloadBatch(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown payload subcommand: %s\n", args[0])
		return 2
	}
}

// proofFlags are shared by the payload builders.
type proofFlags struct {
	config    string
	backend   string
	proof     string
	rootIndex uint16
}

func (p *proofFlags) register(fs *pflag.FlagSet, withBackend bool) {
	fs.StringVar(&p.config, "config", "", "Program configuration file")
	fs.StringVar(&p.proof, "proof", "", "Validity proof as 256 hex chars (a || b || c)")
	fs.Uint16Var(&p.rootIndex, "root-index", 0, "Root index the proof was produced against")
	if withBackend {
		fs.StringVar(&p.backend, "backend", "", "Fetch the proof from this accumulator backend instead")
		accregistry.RegisterFlags(fs, accregistry.UsageCLI)
	}
}

func (p *proofFlags) parseProof() (*accumulator.CompressedProof, error) {
	if p.proof == "" {
		return nil, nil
	}
	raw, err := hexFlag("proof", p.proof)
	if err != nil {
		return nil, err
	}
	proof, err := accumulator.ParseProof(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --proof: %v", err)
	}
	return &proof, nil
}

// engine opens the selected backend and wraps it in an engine for payload
// preparation.
func (p *proofFlags) engine(cfg config.Program) (*compressed.Engine, func(), error) {
	acc, closeFn, err := accregistry.Open(p.backend, accregistry.UsageCLI, cfg)
	if err != nil {
		return nil, nil, err
	}
	done := func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}
	return compressed.New(registry.New(cfg), acc), done, nil
}

type recordFlags struct {
	credential, schema, nonce, signer string
	dataHex                           string
	expiry                            int64
}

func (r *recordFlags) register(fs *pflag.FlagSet, withSigner bool) {
	fs.StringVar(&r.credential, "credential", "", "Credential address")
	fs.StringVar(&r.schema, "schema", "", "Schema address")
	fs.StringVar(&r.nonce, "nonce", "", "Attestation nonce")
	if withSigner {
		fs.StringVar(&r.signer, "signer", "", "Signer recorded in the attestation")
	}
	fs.StringVar(&r.dataHex, "data", "", "Attestation data as hex")
	fs.Int64Var(&r.expiry, "expiry", 0, "Expiry as unix seconds (0 never expires)")
}

func (r *recordFlags) attestation(withSigner bool) (*state.Attestation, error) {
	a := &state.Attestation{Expiry: r.expiry}
	var err error
	if a.Credential, err = keyFlag("credential", r.credential); err != nil {
		return nil, err
	}
	if a.Schema, err = keyFlag("schema", r.schema); err != nil {
		return nil, err
	}
	if a.Nonce, err = keyFlag("nonce", r.nonce); err != nil {
		return nil, err
	}
	if withSigner {
		if a.Signer, err = keyFlag("signer", r.signer); err != nil {
			return nil, err
		}
	}
	if a.Data, err = hexFlag("data", r.dataHex); err != nil {
		return nil, err
	}
	return a, nil
}

func cmdPayloadCreate(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("payload create", errOut)
	var pf proofFlags
	var rf recordFlags
	rf.register(fs, false)
	pf.register(fs, true)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	a, err := rf.attestation(false)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	cfg, err := loadProgram(pf.config)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 1
	}

	var p *wire.CreatePayload
	if pf.backend != "" {
		eng, done, err := pf.engine(cfg)
		if err != nil {
			fmt.Fprintf(errOut, "accumulator: %v\n", err)
			return 1
		}
		defer done()
		p, err = eng.PrepareCreate(context.Background(), a.Credential, a.Schema, a.Nonce, a.Expiry, a.Data)
		if err != nil {
			fmt.Fprintf(errOut, "prove: %v\n", err)
			return 1
		}
	} else {
		proof, err := pf.parseProof()
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 2
		}
		p = &wire.CreatePayload{Nonce: a.Nonce, Expiry: a.Expiry, AddressRootIndex: pf.rootIndex, Data: a.Data}
		if proof != nil {
			p.Proof = *proof
		}
	}
	b, err := wire.EncodeCreate(p)
	if err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	printHex(out, b)
	return 0
}

func cmdPayloadClose(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("payload close", errOut)
	var pf proofFlags
	var rf recordFlags
	var byIndex bool
	var leafIndex uint32
	rf.register(fs, true)
	pf.register(fs, true)
	fs.BoolVar(&byIndex, "by-index", false, "Omit the proof and locate the leaf by index")
	fs.Uint32Var(&leafIndex, "leaf-index", 0, "Leaf index (offline only)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	a, err := rf.attestation(true)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	cfg, err := loadProgram(pf.config)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 1
	}

	var p *wire.ClosePayload
	if pf.backend != "" {
		eng, done, err := pf.engine(cfg)
		if err != nil {
			fmt.Fprintf(errOut, "accumulator: %v\n", err)
			return 1
		}
		defer done()
		p, err = eng.PrepareClose(context.Background(), a, byIndex)
		if err != nil {
			fmt.Fprintf(errOut, "prove: %v\n", err)
			return 1
		}
	} else {
		proof, err := pf.parseProof()
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 2
		}
		plain, _, err := cfg.Deriver().Attestation(a.Credential, a.Schema, a.Nonce)
		if err != nil {
			fmt.Fprintf(errOut, "derive: %v\n", err)
			return 1
		}
		p = &wire.ClosePayload{
			RootIndex: pf.rootIndex,
			LeafIndex: leafIndex,
			Address:   compressedAddress(plain, cfg),
			Nonce:     a.Nonce,
			Schema:    a.Schema,
			Signer:    a.Signer,
			Expiry:    a.Expiry,
			Data:      a.Data,
		}
		if proof != nil && !byIndex {
			p.Proof = accumulator.Some(*proof)
		}
	}
	b, err := wire.EncodeClose(p)
	if err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	printHex(out, b)
	return 0
}

func cmdPayloadBatch(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("payload batch", errOut)
	var pf proofFlags
	var numRecords uint8
	var closeAccounts bool
	pf.register(fs, false)
	fs.Uint8Var(&numRecords, "num-records", 0, "Number of attestations supplied with the batch")
	fs.BoolVar(&closeAccounts, "close-accounts", false, "Delete the plain records once compressed")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if numRecords == 0 {
		fmt.Fprintln(errOut, "missing --num-records")
		return 2
	}
	proof, err := pf.parseProof()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	p := &wire.BatchPayload{CloseAccounts: closeAccounts, AddressRootIndex: pf.rootIndex, NumRecords: numRecords}
	if proof != nil {
		p.Proof = *proof
	}
	b, err := wire.EncodeBatch(p)
	if err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	printHex(out, b)
	return 0
}

func compressedAddress(plain solana.PublicKey, cfg config.Program) [32]byte {
	addr, _ := address.CompressedAddress(plain, cfg.AddressTree(), cfg.ProgramID())
	return addr
}

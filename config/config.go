// Package config holds the immutable program configuration shared by the
// registry, the compressed attestation engine and the accumulator daemon.
package config

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"xdao.co/sas/address"
)

// Reference values.
const (
	DefaultProgramID             = "DXaNS83fJzVYxaVzjeEQCp5p1txfU4fZPUcBR1X2p76o"
	DefaultAddressTree           = "amt2kaJA14v3urZbZvnc5v2np8jqvc4Z8zDep5wbtzx"
	DefaultMaxCompressedDataSize = 350
	DefaultRootHistory           = 64
)

// MaxRootHistory is the largest root history a u16 root index can address.
const MaxRootHistory = 1 << 16

var ErrInvalid = errors.New("config: invalid")

// Params are the inputs to New. Zero sizes take the defaults.
type Params struct {
	ProgramID             solana.PublicKey
	AddressTree           solana.PublicKey
	MaxCompressedDataSize int
	RootHistory           int
}

// Program is the immutable program configuration. The singleton addresses are
// derived once at construction.
type Program struct {
	programID      solana.PublicKey
	addressTree    solana.PublicKey
	maxDataSize    int
	rootHistory    int
	eventAuthority solana.PublicKey
	sasAuthority   solana.PublicKey
}

func New(p Params) (Program, error) {
	if p.ProgramID.IsZero() {
		return Program{}, fmt.Errorf("%w: program id is required", ErrInvalid)
	}
	if p.AddressTree.IsZero() {
		return Program{}, fmt.Errorf("%w: address tree is required", ErrInvalid)
	}
	if p.MaxCompressedDataSize == 0 {
		p.MaxCompressedDataSize = DefaultMaxCompressedDataSize
	}
	if p.MaxCompressedDataSize < 0 {
		return Program{}, fmt.Errorf("%w: max compressed data size %d", ErrInvalid, p.MaxCompressedDataSize)
	}
	if p.RootHistory == 0 {
		p.RootHistory = DefaultRootHistory
	}
	if p.RootHistory < 1 || p.RootHistory > MaxRootHistory {
		return Program{}, fmt.Errorf("%w: root history %d out of range [1, %d]", ErrInvalid, p.RootHistory, MaxRootHistory)
	}

	d := address.NewDeriver(p.ProgramID)
	ev, _, err := d.EventAuthority()
	if err != nil {
		return Program{}, fmt.Errorf("config: derive event authority: %w", err)
	}
	sas, _, err := d.SASAuthority()
	if err != nil {
		return Program{}, fmt.Errorf("config: derive sas authority: %w", err)
	}
	return Program{
		programID:      p.ProgramID,
		addressTree:    p.AddressTree,
		maxDataSize:    p.MaxCompressedDataSize,
		rootHistory:    p.RootHistory,
		eventAuthority: ev,
		sasAuthority:   sas,
	}, nil
}

// Default returns the reference configuration.
func Default() Program {
	p, err := New(Params{
		ProgramID:   solana.MustPublicKeyFromBase58(DefaultProgramID),
		AddressTree: solana.MustPublicKeyFromBase58(DefaultAddressTree),
	})
	if err != nil {
		panic(err)
	}
	return p
}

func (p Program) ProgramID() solana.PublicKey { return p.programID }

// AddressTree is the only accumulator tree compressed attestations may use.
func (p Program) AddressTree() solana.PublicKey { return p.addressTree }

// MaxCompressedDataSize bounds the data of a compressed attestation.
func (p Program) MaxCompressedDataSize() int { return p.maxDataSize }

func (p Program) RootHistory() int { return p.rootHistory }

func (p Program) EventAuthority() solana.PublicKey { return p.eventAuthority }

func (p Program) SASAuthority() solana.PublicKey { return p.sasAuthority }

func (p Program) Deriver() address.Deriver { return address.NewDeriver(p.programID) }

package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML configuration.
//
//	program_id: DXaNS83fJzVYxaVzjeEQCp5p1txfU4fZPUcBR1X2p76o
//	address_tree: amt2kaJA14v3urZbZvnc5v2np8jqvc4Z8zDep5wbtzx
//	max_compressed_data_size: 350
//	root_history: 64
//	log:
//	  level: info
//	  format: json
//	accumulator:
//	  listen: 127.0.0.1:7450
type File struct {
	ProgramID             string          `yaml:"program_id"`
	AddressTree           string          `yaml:"address_tree"`
	MaxCompressedDataSize int             `yaml:"max_compressed_data_size"`
	RootHistory           int             `yaml:"root_history"`
	Log                   LogConfig       `yaml:"log"`
	Accumulator           AccumulatorFile `yaml:"accumulator"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AccumulatorFile struct {
	Listen      string `yaml:"listen"`
	MaxMsgBytes int    `yaml:"max_msg_bytes"`
}

// Load reads and decodes a YAML file. Unknown keys are rejected.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var out File
	if err := dec.Decode(&out); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &out, nil
}

// Program resolves the file into a Program. Empty keys take the defaults.
func (f *File) Program() (Program, error) {
	pid := strings.TrimSpace(f.ProgramID)
	if pid == "" {
		pid = DefaultProgramID
	}
	tree := strings.TrimSpace(f.AddressTree)
	if tree == "" {
		tree = DefaultAddressTree
	}
	programID, err := solana.PublicKeyFromBase58(pid)
	if err != nil {
		return Program{}, fmt.Errorf("%w: program_id: %v", ErrInvalid, err)
	}
	addressTree, err := solana.PublicKeyFromBase58(tree)
	if err != nil {
		return Program{}, fmt.Errorf("%w: address_tree: %v", ErrInvalid, err)
	}
	return New(Params{
		ProgramID:             programID,
		AddressTree:           addressTree,
		MaxCompressedDataSize: f.MaxCompressedDataSize,
		RootHistory:           f.RootHistory,
	})
}

// NewLogger builds a zerolog logger writing to w. Format is "json" (default)
// or "console".
func NewLogger(cfg LogConfig, w io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("%w: log level %q", ErrInvalid, cfg.Level)
		}
		level = l
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w}
	default:
		return zerolog.Nop(), fmt.Errorf("%w: log format %q", ErrInvalid, cfg.Format)
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

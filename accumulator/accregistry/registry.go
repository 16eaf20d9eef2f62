// Package accregistry is the registry of accumulator backends.
//
// Backend packages add themselves to Default from init(), so a binary selects
// its backends by importing them (usually as blank imports).
package accregistry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/pflag"

	"xdao.co/sas/accumulator"
	"xdao.co/sas/config"
)

// Usage is a bit set of the program kinds that accept a backend.
type Usage uint8

const (
	// UsageCLI marks backends usable from short-lived CLI programs.
	UsageCLI Usage = 1 << iota
	// UsageDaemon marks backends the accumulator daemon can serve.
	UsageDaemon
)

var (
	ErrUnknownBackend = errors.New("accregistry: unknown backend")
	ErrWrongUsage     = errors.New("accregistry: backend not supported in this binary")
)

// Closer releases a backend. It may be nil.
type Closer func() error

type Backend struct {
	Name        string
	Description string
	Usage       Usage

	// Flags adds backend-specific flags. It may be nil.
	Flags func(fs *pflag.FlagSet)

	// Open builds the service from the program configuration and the parsed
	// backend flags.
	Open func(cfg config.Program) (accumulator.Service, Closer, error)
}

func (b Backend) check() error {
	switch {
	case b.Name == "":
		return errors.New("accregistry: backend name is required")
	case b.Open == nil:
		return fmt.Errorf("accregistry: backend %q has no Open", b.Name)
	case b.Usage == 0:
		return fmt.Errorf("accregistry: backend %q has no usage", b.Name)
	}
	return nil
}

// Set is a named collection of backends. It is safe for concurrent use.
type Set struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// Default is the set backend packages register into.
var Default = &Set{}

func (s *Set) Add(b Backend) error {
	if err := b.check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backends == nil {
		s.backends = map[string]Backend{}
	}
	if _, dup := s.backends[b.Name]; dup {
		return fmt.Errorf("accregistry: backend %q already registered", b.Name)
	}
	s.backends[b.Name] = b
	return nil
}

// For returns the backends accepted under usage, ordered by name.
func (s *Set) For(usage Usage) []Backend {
	s.mu.RLock()
	out := make([]Backend, 0, len(s.backends))
	for _, b := range s.backends {
		if b.Usage&usage != 0 {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BindFlags adds the flags of every backend accepted under usage, so one
// parse pass covers whichever backend is selected.
func (s *Set) BindFlags(fs *pflag.FlagSet, usage Usage) {
	for _, b := range s.For(usage) {
		if b.Flags != nil {
			b.Flags(fs)
		}
	}
}

func (s *Set) Open(name string, usage Usage, cfg config.Program) (accumulator.Service, Closer, error) {
	s.mu.RLock()
	b, ok := s.backends[name]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownBackend, name)
	}
	if b.Usage&usage == 0 {
		return nil, nil, fmt.Errorf("%w: %q", ErrWrongUsage, name)
	}
	return b.Open(cfg)
}

// MustRegister adds b to Default and panics on a bad or duplicate backend.
func MustRegister(b Backend) {
	if err := Default.Add(b); err != nil {
		panic(err)
	}
}

func List(usage Usage) []Backend { return Default.For(usage) }

func Names(usage Usage) []string {
	var names []string
	for _, b := range Default.For(usage) {
		names = append(names, b.Name)
	}
	return names
}

func RegisterFlags(fs *pflag.FlagSet, usage Usage) { Default.BindFlags(fs, usage) }

func Open(name string, usage Usage, cfg config.Program) (accumulator.Service, Closer, error) {
	return Default.Open(name, usage, cfg)
}

// Package ledger is the keyed account store that holds credentials, schemas
// and plain attestations.
//
// Every mutation goes through a Tx. A Tx buffers its writes and publishes them
// on Commit, so an operation that fails part way leaves the store untouched.
package ledger

import (
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrNotFound = errors.New("ledger: account not found")
	ErrExists   = errors.New("ledger: account already exists")
	ErrTxDone   = errors.New("ledger: transaction already finished")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Reader is the read side shared by Store and Tx.
type Reader interface {
	Get(key solana.PublicKey) ([]byte, error)
	Has(key solana.PublicKey) (bool, error)
}

// Store is a keyed account store.
//
// Contract:
// - Get MUST return ErrNotFound when the key is absent.
// - Delete MUST return ErrNotFound when the key is absent.
// - Returned slices MUST NOT alias the store's internal state.
type Store interface {
	Get(key solana.PublicKey) ([]byte, error)
	Put(key solana.PublicKey, data []byte) error
	Delete(key solana.PublicKey) error
	Has(key solana.PublicKey) (bool, error)
}

// Write is one buffered mutation. A nil Data deletes the key.
type Write struct {
	Key  solana.PublicKey
	Data []byte
}

// Batcher is implemented by stores that can apply a set of writes atomically.
type Batcher interface {
	ApplyBatch(writes []Write) error
}

// Memory is an in-memory Store. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey][]byte
}

func NewMemory() *Memory {
	return &Memory{accounts: map[solana.PublicKey][]byte{}}
}

func (m *Memory) Get(key solana.PublicKey) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.accounts[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Put(key solana.PublicKey, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[key] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Delete(key solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[key]; !ok {
		return ErrNotFound
	}
	delete(m.accounts, key)
	return nil
}

func (m *Memory) Has(key solana.PublicKey) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[key]
	return ok, nil
}

// ApplyBatch applies writes under one lock.
func (m *Memory) ApplyBatch(writes []Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range writes {
		if w.Data == nil {
			delete(m.accounts, w.Key)
			continue
		}
		m.accounts[w.Key] = append([]byte(nil), w.Data...)
	}
	return nil
}

// Len returns the number of stored accounts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

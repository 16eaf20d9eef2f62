package ledger

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
)

// Tx is a buffered overlay over a Store. Reads see the transaction's own
// writes; nothing reaches the store before Commit.
//
// A Tx is not safe for concurrent use.
type Tx struct {
	base   Store
	writes map[solana.PublicKey][]byte
	done   bool
}

func Begin(base Store) *Tx {
	return &Tx{base: base, writes: map[solana.PublicKey][]byte{}}
}

func (tx *Tx) Get(key solana.PublicKey) ([]byte, error) {
	if tx.done {
		return nil, ErrTxDone
	}
	if b, ok := tx.writes[key]; ok {
		if b == nil {
			return nil, ErrNotFound
		}
		return append([]byte(nil), b...), nil
	}
	return tx.base.Get(key)
}

func (tx *Tx) Has(key solana.PublicKey) (bool, error) {
	if tx.done {
		return false, ErrTxDone
	}
	if b, ok := tx.writes[key]; ok {
		return b != nil, nil
	}
	return tx.base.Has(key)
}

func (tx *Tx) Put(key solana.PublicKey, data []byte) error {
	if tx.done {
		return ErrTxDone
	}
	if data == nil {
		data = []byte{}
	}
	tx.writes[key] = append([]byte{}, data...)
	return nil
}

// Create stores data under a key that must not exist yet.
func (tx *Tx) Create(key solana.PublicKey, data []byte) error {
	ok, err := tx.Has(key)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}
	return tx.Put(key, data)
}

func (tx *Tx) Delete(key solana.PublicKey) error {
	ok, err := tx.Has(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	tx.writes[key] = nil
	return nil
}

// Writes returns the buffered writes ordered by key.
func (tx *Tx) Writes() []Write {
	out := make([]Write, 0, len(tx.writes))
	for k, b := range tx.writes {
		out = append(out, Write{Key: k, Data: b})
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key[:], out[j].Key[:]) < 0 })
	return out
}

// Commit publishes the buffered writes. Stores implementing Batcher apply them
// atomically; others receive them one by one in key order.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	writes := tx.Writes()
	if b, ok := tx.base.(Batcher); ok {
		return b.ApplyBatch(writes)
	}
	for _, w := range writes {
		var err error
		if w.Data == nil {
			err = tx.base.Delete(w.Key)
			if IsNotFound(err) {
				err = nil
			}
		} else {
			err = tx.base.Put(w.Key, w.Data)
		}
		if err != nil {
			return fmt.Errorf("ledger: commit %s: %w", w.Key, err)
		}
	}
	return nil
}

// Discard drops the buffered writes. It is safe to call after Commit.
func (tx *Tx) Discard() {
	tx.done = true
	tx.writes = nil
}

// Run executes fn in a new transaction, committing on success and discarding
// on error.
func Run(store Store, fn func(tx *Tx) error) error {
	tx := Begin(store)
	if err := fn(tx); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

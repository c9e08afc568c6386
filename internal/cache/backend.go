// Package cache keeps a local copy of small JSON values: the last loaded user
// document, the device id, device selections and playback settings.
//
// The storage backend is picked once at startup. A persistent badger
// directory is preferred; when it cannot be opened the cache runs on an
// in-process map and says so in the log.
package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// ErrMiss is returned by Backend.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Backend is raw string-keyed byte storage.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Persistent() bool
	Close() error
}

// BadgerBackend stores values in an embedded badger database.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger database at path.
func OpenBadger(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

// Get returns the value for key or ErrMiss.
func (b *BadgerBackend) Get(key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	return out, err
}

// Set stores value under key.
func (b *BadgerBackend) Set(key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Delete removes key. Deleting an absent key is not an error.
func (b *BadgerBackend) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Persistent reports true.
func (b *BadgerBackend) Persistent() bool { return true }

// Close closes the database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

// MemoryBackend keeps values in a map for the life of the process.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{values: make(map[string][]byte)}
}

// Get returns a copy of the value for key or ErrMiss.
func (m *MemoryBackend) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (m *MemoryBackend) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Persistent reports false.
func (m *MemoryBackend) Persistent() bool { return false }

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }

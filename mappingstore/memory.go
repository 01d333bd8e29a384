package mappingstore

import (
	"crypto/sha256"
	"sort"
	"sync"

	"github.com/blockberries/veilberry/types"
)

// MemoryStore implements Store with in-memory storage.
// Primarily used for testing and for ephemeral ledgers.
type MemoryStore struct {
	entries map[string]types.Value
	version int64
	closed  bool
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory mapping store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]types.Value),
	}
}

var _ Store = (*MemoryStore)(nil)

// Get retrieves the value for a key in the named mapping.
func (m *MemoryStore) Get(program types.ProgramID, mapping string, key types.Value) (types.Value, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return types.Value{}, false, types.ErrStoreClosed
	}

	v, ok := m.entries[string(entryKey(program, mapping, key))]
	if !ok {
		return types.Value{}, false, nil
	}
	return v.Clone(), true, nil
}

// Set stores an entry in the working state.
func (m *MemoryStore) Set(program types.ProgramID, mapping string, key, value types.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return types.ErrStoreClosed
	}

	m.entries[string(entryKey(program, mapping, key))] = value.Clone()
	return nil
}

// Remove deletes an entry from the working state.
func (m *MemoryStore) Remove(program types.ProgramID, mapping string, key types.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return types.ErrStoreClosed
	}

	delete(m.entries, string(entryKey(program, mapping, key)))
	return nil
}

// Commit bumps the version and returns the state hash.
func (m *MemoryStore) Commit() ([]byte, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, 0, types.ErrStoreClosed
	}

	m.version++
	return m.hash(), m.version, nil
}

// RootHash returns a hash over the working state.
func (m *MemoryStore) RootHash() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.hash()
}

// Version returns the latest committed version number.
func (m *MemoryStore) Version() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.version
}

// Close closes the store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// hash computes a deterministic digest over all entries in sorted key
// order. Callers must hold the lock.
func (m *MemoryStore) hash() []byte {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	var buf []byte
	for _, k := range keys {
		h.Write([]byte(k))
		buf = m.entries[k].Encode(buf[:0])
		h.Write(buf)
	}
	return h.Sum(nil)
}

package recordstore

import (
	"sync"

	"github.com/blockberries/veilberry/types"
)

// Record states within the store.
type recordState uint8

const (
	stateUnspent recordState = iota
	statePending
	stateSpent
)

// MemoryStore implements Store with in-memory storage.
// Primarily used for testing and for ephemeral ledgers.
type MemoryStore struct {
	records map[types.RecordRef]*memoryEntry
	seq     uint64
	closed  bool
	mu      sync.Mutex
}

type memoryEntry struct {
	record *types.Record
	state  recordState
}

// NewMemoryStore creates a new in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[types.RecordRef]*memoryEntry),
	}
}

var _ Store = (*MemoryStore)(nil)

// Create assigns a fresh reference to rec and stores it unspent.
func (m *MemoryStore) Create(rec *types.Record) error {
	if err := validateCreate(rec); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return types.ErrStoreClosed
	}

	m.seq++
	rec.Ref = deriveRef(rec, m.seq)

	if _, exists := m.records[rec.Ref]; exists {
		return types.ErrRecordExists
	}
	m.records[rec.Ref] = &memoryEntry{record: rec.Clone(), state: stateUnspent}
	return nil
}

// Get retrieves a record by reference.
func (m *MemoryStore) Get(ref types.RecordRef) (*types.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, types.ErrStoreClosed
	}

	entry, exists := m.records[ref]
	if !exists {
		return nil, types.ErrRecordNotFound
	}
	return entry.record.Clone(), nil
}

// IsSpent reports whether the record has been consumed or reserved.
func (m *MemoryStore) IsSpent(ref types.RecordRef) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, types.ErrStoreClosed
	}

	entry, exists := m.records[ref]
	if !exists {
		return false, types.ErrRecordNotFound
	}
	return entry.state != stateUnspent, nil
}

// Spend atomically reserves the record for consumption.
func (m *MemoryStore) Spend(ref types.RecordRef, by types.Identity) (*Spend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, types.ErrStoreClosed
	}

	entry, exists := m.records[ref]
	if !exists {
		return nil, types.ErrRecordNotFound
	}
	if !entry.record.Owner.Equal(by) {
		return nil, types.ErrNotOwner
	}
	if entry.state != stateUnspent {
		return nil, types.ErrAlreadySpent
	}

	entry.state = statePending
	return &Spend{Record: entry.record.Clone(), store: m}, nil
}

// Close closes the store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStore) commitSpend(ref types.RecordRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.records[ref]
	if !exists {
		return types.ErrRecordNotFound
	}
	entry.state = stateSpent
	return nil
}

func (m *MemoryStore) releaseSpend(ref types.RecordRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.records[ref]
	if !exists {
		return types.ErrRecordNotFound
	}
	entry.state = stateUnspent
	return nil
}

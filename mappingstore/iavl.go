package mappingstore

import (
	"fmt"
	"sync"

	"github.com/cosmos/iavl"
	idb "github.com/cosmos/iavl/db"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/veilberry/types"
)

// IAVLStore implements Store using a cosmos/iavl merkle tree.
// Versioned commits give every ledger height a root hash that
// independent executors can compare.
type IAVLStore struct {
	tree *iavl.MutableTree
	db   idb.DB
	mu   sync.RWMutex
}

var _ Store = (*IAVLStore)(nil)

// NewIAVLStore creates a new IAVL-backed mapping store.
// path is the directory for persistent storage.
// cacheSize is the number of tree nodes to cache in memory.
func NewIAVLStore(path string, cacheSize int) (*IAVLStore, error) {
	db, err := idb.NewGoLevelDB("mappings", path)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb for iavl: %w", err)
	}

	tree := iavl.NewMutableTree(db, cacheSize, false, iavl.NewNopLogger())

	// Load the latest version if it exists
	if _, err := tree.Load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading iavl tree: %w", err)
	}

	return &IAVLStore{
		tree: tree,
		db:   db,
	}, nil
}

// NewMemoryIAVLStore creates an in-memory IAVL store for testing.
func NewMemoryIAVLStore(cacheSize int) (*IAVLStore, error) {
	db := idb.NewMemDB()
	tree := iavl.NewMutableTree(db, cacheSize, false, iavl.NewNopLogger())

	return &IAVLStore{
		tree: tree,
		db:   db,
	}, nil
}

// Get retrieves the value for a key in the named mapping.
func (s *IAVLStore) Get(program types.ProgramID, mapping string, key types.Value) (types.Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.tree.Get(entryKey(program, mapping, key))
	if err != nil {
		return types.Value{}, false, fmt.Errorf("getting entry: %w", err)
	}
	if data == nil {
		return types.Value{}, false, nil
	}

	var v types.Value
	if err := cramberry.Unmarshal(data, &v); err != nil {
		return types.Value{}, false, fmt.Errorf("unmarshaling entry: %w", err)
	}
	return v, true, nil
}

// Set stores an entry in the working tree.
func (s *IAVLStore) Set(program types.ProgramID, mapping string, key, value types.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := cramberry.Marshal(&value)
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}
	if _, err := s.tree.Set(entryKey(program, mapping, key), data); err != nil {
		return fmt.Errorf("setting entry: %w", err)
	}
	return nil
}

// Remove deletes an entry from the working tree.
func (s *IAVLStore) Remove(program types.ProgramID, mapping string, key types.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.tree.Remove(entryKey(program, mapping, key)); err != nil {
		return fmt.Errorf("removing entry: %w", err)
	}
	return nil
}

// Commit saves the current working tree as a new version.
func (s *IAVLStore) Commit() ([]byte, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, version, err := s.tree.SaveVersion()
	if err != nil {
		return nil, 0, fmt.Errorf("saving version: %w", err)
	}
	return hash, version, nil
}

// RootHash returns the root hash of the current working tree.
func (s *IAVLStore) RootHash() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.WorkingHash()
}

// Version returns the latest committed version number.
func (s *IAVLStore) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Version()
}

// Close closes the store and releases resources.
func (s *IAVLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

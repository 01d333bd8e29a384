package recordstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/veilberry/types"
)

// BadgerDBStore implements Store using BadgerDB.
// BadgerDB is optimized for SSDs and offers better write performance
// than LevelDB for certain workloads.
type BadgerDBStore struct {
	db      *badger.DB
	path    string
	cache   *lru.Cache[types.RecordRef, *storedRecord]
	pending map[types.RecordRef]bool
	seq     uint64
	closed  bool
	mu      sync.Mutex
}

var _ Store = (*BadgerDBStore)(nil)

// BadgerDBOptions contains configuration options for BadgerDB.
type BadgerDBOptions struct {
	// SyncWrites ensures durability by syncing writes to disk.
	// Default: true
	SyncWrites bool

	// ValueLogFileSize is the maximum size of a single value log file.
	// Default: 1GB
	ValueLogFileSize int64

	// MemTableSize is the size of the memtable.
	// Default: 64MB
	MemTableSize int64

	// CacheSize is the number of decoded records cached in memory.
	// Default: DefaultCacheSize
	CacheSize int

	// Logger is an optional logger for BadgerDB.
	// If nil, logging is disabled.
	Logger badger.Logger
}

// DefaultBadgerDBOptions returns sensible default options.
func DefaultBadgerDBOptions() *BadgerDBOptions {
	return &BadgerDBOptions{
		SyncWrites:       true,
		ValueLogFileSize: 1 << 30,  // 1GB
		MemTableSize:     64 << 20, // 64MB
		CacheSize:        DefaultCacheSize,
	}
}

// NewBadgerDBStore creates a new BadgerDB-backed record store.
func NewBadgerDBStore(path string) (*BadgerDBStore, error) {
	return NewBadgerDBStoreWithOptions(path, DefaultBadgerDBOptions())
}

// NewBadgerDBStoreWithOptions creates a new BadgerDB-backed record store
// with custom options.
func NewBadgerDBStoreWithOptions(path string, opts *BadgerDBOptions) (*BadgerDBStore, error) {
	if opts == nil {
		opts = DefaultBadgerDBOptions()
	}

	badgerOpts := badger.DefaultOptions(path)
	badgerOpts = badgerOpts.WithSyncWrites(opts.SyncWrites)
	badgerOpts = badgerOpts.WithValueLogFileSize(opts.ValueLogFileSize)
	badgerOpts = badgerOpts.WithMemTableSize(opts.MemTableSize)
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badgerdb: %w", err)
	}

	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[types.RecordRef, *storedRecord](cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating record cache: %w", err)
	}

	store := &BadgerDBStore{
		db:      db,
		path:    path,
		cache:   cache,
		pending: make(map[types.RecordRef]bool),
	}

	if err := store.loadMetadata(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading metadata: %w", err)
	}

	return store, nil
}

// loadMetadata loads the reference sequence from the database.
func (s *BadgerDBStore) loadMetadata() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMetaSeq)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			s.seq = binary.BigEndian.Uint64(val)
			return nil
		})
	})
}

// Create assigns a fresh reference to rec and persists it unspent.
func (s *BadgerDBStore) Create(rec *types.Record) error {
	if err := validateCreate(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}

	s.seq++
	rec.Ref = deriveRef(rec, s.seq)

	if _, err := s.loadRecord(rec.Ref); err == nil {
		return types.ErrRecordExists
	}

	stored := &storedRecord{Record: *rec.Clone()}
	data, err := cramberry.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(rec.Ref), data); err != nil {
			return err
		}
		return txn.Set(keyMetaSeq, binary.BigEndian.AppendUint64(nil, s.seq))
	})
	if err != nil {
		return fmt.Errorf("writing record: %w", err)
	}

	s.cache.Add(rec.Ref, stored)
	return nil
}

// Get retrieves a record by reference.
func (s *BadgerDBStore) Get(ref types.RecordRef) (*types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}

	stored, err := s.loadRecord(ref)
	if err != nil {
		return nil, err
	}
	return stored.Record.Clone(), nil
}

// IsSpent reports whether the record has been consumed or reserved.
func (s *BadgerDBStore) IsSpent(ref types.RecordRef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, types.ErrStoreClosed
	}

	if s.pending[ref] {
		return true, nil
	}
	stored, err := s.loadRecord(ref)
	if err != nil {
		return false, err
	}
	return stored.Spent, nil
}

// Spend atomically reserves the record for consumption.
func (s *BadgerDBStore) Spend(ref types.RecordRef, by types.Identity) (*Spend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}

	stored, err := s.loadRecord(ref)
	if err != nil {
		return nil, err
	}
	if !stored.Record.Owner.Equal(by) {
		return nil, types.ErrNotOwner
	}
	if stored.Spent || s.pending[ref] {
		return nil, types.ErrAlreadySpent
	}

	s.pending[ref] = true
	return &Spend{Record: stored.Record.Clone(), store: s}, nil
}

// Close closes the store and the underlying database.
func (s *BadgerDBStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *BadgerDBStore) commitSpend(ref types.RecordRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.loadRecord(ref)
	if err != nil {
		return err
	}
	stored.Spent = true

	data, err := cramberry.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(ref), data)
	})
	if err != nil {
		return fmt.Errorf("writing spent record: %w", err)
	}

	s.cache.Add(ref, stored)
	delete(s.pending, ref)
	return nil
}

func (s *BadgerDBStore) releaseSpend(ref types.RecordRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, ref)
	return nil
}

// loadRecord loads a record through the cache. Callers must hold the lock.
func (s *BadgerDBStore) loadRecord(ref types.RecordRef) (*storedRecord, error) {
	if stored, ok := s.cache.Get(ref); ok {
		return stored, nil
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(ref))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, types.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}

	var stored storedRecord
	if err := cramberry.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("unmarshaling record: %w", err)
	}

	s.cache.Add(ref, &stored)
	return &stored, nil
}

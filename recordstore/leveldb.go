package recordstore

import (
	"encoding/binary"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/veilberry/types"
)

// Key prefixes for LevelDB storage.
var (
	prefixRecord = []byte("R:") // R:<ref> -> stored record
	keyMetaSeq   = []byte("M:seq")
)

// DefaultCacheSize is the default number of decoded records cached in memory.
const DefaultCacheSize = 4096

// storedRecord is the persisted form of a record.
type storedRecord struct {
	Record types.Record
	Spent  bool
}

// LevelDBStore implements Store using LevelDB.
//
// Pending spends are tracked in memory only: a crash before Commit drops
// the reservation and the record reverts to unspent, which matches the
// all-or-nothing invocation contract.
type LevelDBStore struct {
	db      *leveldb.DB
	path    string
	cache   *lru.Cache[types.RecordRef, *storedRecord]
	pending map[types.RecordRef]bool
	seq     uint64
	closed  bool
	mu      sync.Mutex
}

var _ Store = (*LevelDBStore)(nil)

// NewLevelDBStore creates a new LevelDB-backed record store.
func NewLevelDBStore(path string, cacheSize int) (*LevelDBStore, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	db, err := leveldb.OpenFile(path, &opt.Options{
		NoSync: false, // Ensure durability
	})
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}

	cache, err := lru.New[types.RecordRef, *storedRecord](cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating record cache: %w", err)
	}

	store := &LevelDBStore{
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
func (s *LevelDBStore) loadMetadata() error {
	data, err := s.db.Get(keyMetaSeq, nil)
	if err == nil {
		s.seq = binary.BigEndian.Uint64(data)
	} else if err != leveldb.ErrNotFound {
		return err
	}
	return nil
}

// Create assigns a fresh reference to rec and persists it unspent.
func (s *LevelDBStore) Create(rec *types.Record) error {
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

	batch := new(leveldb.Batch)
	batch.Put(recordKey(rec.Ref), data)
	batch.Put(keyMetaSeq, binary.BigEndian.AppendUint64(nil, s.seq))
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}

	s.cache.Add(rec.Ref, stored)
	return nil
}

// Get retrieves a record by reference.
func (s *LevelDBStore) Get(ref types.RecordRef) (*types.Record, error) {
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
func (s *LevelDBStore) IsSpent(ref types.RecordRef) (bool, error) {
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
func (s *LevelDBStore) Spend(ref types.RecordRef, by types.Identity) (*Spend, error) {
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
func (s *LevelDBStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *LevelDBStore) commitSpend(ref types.RecordRef) error {
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
	if err := s.db.Put(recordKey(ref), data, nil); err != nil {
		return fmt.Errorf("writing spent record: %w", err)
	}

	s.cache.Add(ref, stored)
	delete(s.pending, ref)
	return nil
}

func (s *LevelDBStore) releaseSpend(ref types.RecordRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, ref)
	return nil
}

// loadRecord loads a record through the cache. Callers must hold the lock.
func (s *LevelDBStore) loadRecord(ref types.RecordRef) (*storedRecord, error) {
	if stored, ok := s.cache.Get(ref); ok {
		return stored, nil
	}

	data, err := s.db.Get(recordKey(ref), nil)
	if err == leveldb.ErrNotFound {
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

func recordKey(ref types.RecordRef) []byte {
	key := make([]byte, 0, len(prefixRecord)+types.RefSize)
	key = append(key, prefixRecord...)
	return append(key, ref[:]...)
}

// Package mappingstore provides the shared public key-value ledger state:
// named mappings declared per program, keyed (programID, mapping, key).
//
// Mapping state is mutated only by finalize logic; transition logic never
// sees it. Backends are versioned: Commit persists the working state and
// returns a root hash so independent executors can compare results.
package mappingstore

import (
	"github.com/blockberries/veilberry/types"
)

// Store is the interface for public mapping state storage.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the value for a key in the named mapping.
	// The boolean reports whether the entry exists.
	Get(program types.ProgramID, mapping string, key types.Value) (types.Value, bool, error)

	// Set stores an entry in the working state. Entries are created
	// implicitly on first write.
	Set(program types.ProgramID, mapping string, key, value types.Value) error

	// Remove deletes an entry from the working state.
	// Removing an absent entry is not an error.
	Remove(program types.ProgramID, mapping string, key types.Value) error

	// Commit saves the working state as a new version.
	// Returns the root hash and version number.
	Commit() (hash []byte, version int64, err error)

	// RootHash returns the root hash of the working state,
	// reflecting uncommitted changes.
	RootHash() []byte

	// Version returns the latest committed version number.
	// Returns 0 if no versions have been committed.
	Version() int64

	// Close closes the store and releases resources.
	Close() error
}

// entryKey builds the canonical storage key for a mapping entry.
// The encoding is deterministic: identical (program, mapping, key)
// triples always produce identical bytes.
func entryKey(program types.ProgramID, mapping string, key types.Value) []byte {
	buf := make([]byte, 0, len(program)+len(mapping)+32)
	buf = append(buf, "M:"...)
	buf = append(buf, program...)
	buf = append(buf, 0)
	buf = append(buf, mapping...)
	buf = append(buf, 0)
	return key.Encode(buf)
}

// Package recordstore provides the spend-once record store: creation and
// one-time consumption of owned records.
//
// Records move through three states: unspent, pending, and spent. Spend
// flips unspent -> pending atomically, so of two concurrent spends of the
// same reference exactly one succeeds and the other fails with
// ErrAlreadySpent. The executor settles the pending spend with Commit
// (pending -> spent, permanent) or Release (pending -> unspent, rollback).
// Spent records are retained, never deleted, so double-consumption is
// detected and reported rather than surfacing as a missing record.
package recordstore

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blockberries/veilberry/memory"
	"github.com/blockberries/veilberry/types"
)

// Store is the interface for record storage.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create assigns a fresh globally unique reference to rec and stores
	// it unspent. References are derived from the record contents and a
	// persisted monotonic sequence, and are never reused.
	Create(rec *types.Record) error

	// Get retrieves a record by reference, spent or not.
	// Returns a defensive copy; fails with ErrRecordNotFound if unknown.
	Get(ref types.RecordRef) (*types.Record, error)

	// IsSpent reports whether the record has been consumed.
	// A pending spend counts as spent for outside observers.
	IsSpent(ref types.RecordRef) (bool, error)

	// Spend atomically reserves the record for consumption by the given
	// identity. Fails with ErrNotOwner if by is not the record's owner,
	// with ErrAlreadySpent if the record was consumed or is reserved by
	// another in-flight invocation, and with ErrRecordNotFound if the
	// reference is unknown. On success the record is invisible to other
	// spenders until the returned handle is settled.
	Spend(ref types.RecordRef, by types.Identity) (*Spend, error)

	// Close closes the store and releases resources.
	Close() error
}

// spendSettler is the store-side half of a Spend handle.
type spendSettler interface {
	commitSpend(ref types.RecordRef) error
	releaseSpend(ref types.RecordRef) error
}

// Spend is an in-flight record consumption. It must be settled exactly
// once, with Commit or Release.
type Spend struct {
	// Record is a copy of the record being consumed.
	Record *types.Record

	store   spendSettler
	settled bool
}

// ErrSpendSettled indicates a Spend handle was settled twice.
var ErrSpendSettled = errors.New("spend already settled")

// Commit permanently marks the record spent.
func (s *Spend) Commit() error {
	if s.settled {
		return ErrSpendSettled
	}
	s.settled = true
	return s.store.commitSpend(s.Record.Ref)
}

// Release returns the record to the unspent state.
// Used to roll back an aborted invocation.
func (s *Spend) Release() error {
	if s.settled {
		return ErrSpendSettled
	}
	s.settled = true
	return s.store.releaseSpend(s.Record.Ref)
}

// refPool recycles encoding buffers for reference derivation.
var refPool = memory.SmallBytePool

// deriveRef derives a record reference from the record contents and a
// store-scoped sequence number. The sequence is monotonic and persisted,
// so references are unique for the life of the store and never reused.
func deriveRef(rec *types.Record, seq uint64) types.RecordRef {
	buf := refPool.Get()
	defer refPool.Put(buf)

	buf = append(buf, rec.Program...)
	buf = append(buf, 0)
	buf = append(buf, rec.Type...)
	buf = append(buf, 0)
	buf = append(buf, rec.Owner...)
	buf = append(buf, 0)
	for _, f := range rec.Fields {
		buf = append(buf, f.Name...)
		buf = append(buf, 0)
		buf = f.Value.Encode(buf)
	}
	buf = binary.BigEndian.AppendUint64(buf, seq)

	return types.RecordRef(sha256.Sum256(buf))
}

// validateCreate checks a record before it is admitted to the store.
func validateCreate(rec *types.Record) error {
	if rec == nil {
		return fmt.Errorf("nil record: %w", types.ErrEmptyData)
	}
	return rec.ValidateBasic()
}

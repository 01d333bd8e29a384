// Package types provides common type definitions for veilberry.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Identity is an opaque account reference used for record ownership and
// caller checks. Identities are compared only for equality; no internal
// structure is interpreted.
type Identity string

// String returns the identity as a string.
func (id Identity) String() string {
	return string(id)
}

// IsZero returns true if the identity is empty.
func (id Identity) IsZero() bool {
	return id == ""
}

// Equal returns true if the identities are equal.
func (id Identity) Equal(other Identity) bool {
	return id == other
}

// Valid reports whether the identity looks like a well-formed address
// literal. Addresses are fixed-length opaque strings with a known prefix
// (e.g. "aleo1..."); only the shape is checked, never the contents.
func (id Identity) Valid() bool {
	return len(id) == AddressLength && strings.HasPrefix(string(id), AddressPrefix)
}

// Address literal shape constants.
const (
	// AddressPrefix is the prefix of rendered address literals.
	AddressPrefix = "aleo1"

	// AddressLength is the fixed length of rendered address literals.
	AddressLength = 63
)

// ProgramID identifies a deployed ledger program (e.g. "auction.aleo").
type ProgramID string

// String returns the program ID as a string.
func (p ProgramID) String() string {
	return string(p)
}

// IsZero returns true if the program ID is empty.
func (p ProgramID) IsZero() bool {
	return p == ""
}

// RefSize is the size of a record reference in bytes.
const RefSize = 32

// RecordRef is the globally unique reference of a record, assigned at
// creation time and never reused. It doubles as the record's implicit
// uniqueness tag.
type RecordRef [RefSize]byte

// String returns the reference as a hexadecimal string.
func (r RecordRef) String() string {
	return hex.EncodeToString(r[:])
}

// Bytes returns the raw bytes of the reference.
func (r RecordRef) Bytes() []byte {
	return r[:]
}

// IsZero returns true if the reference is all zeroes.
func (r RecordRef) IsZero() bool {
	return r == RecordRef{}
}

// RecordRefFromBytes parses a reference from raw bytes.
func RecordRefFromBytes(b []byte) (RecordRef, error) {
	var ref RecordRef
	if len(b) != RefSize {
		return ref, fmt.Errorf("invalid record ref length %d: %w", len(b), ErrInvalidRef)
	}
	copy(ref[:], b)
	return ref, nil
}

// RecordRefFromHex parses a hexadecimal string into a reference.
func RecordRefFromHex(s string) (RecordRef, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return RecordRef{}, fmt.Errorf("invalid hex string: %w", err)
	}
	return RecordRefFromBytes(b)
}

// Record is an owned, typed, spend-once bundle of fields. A record is
// created as the output of exactly one transition and consumed as the
// input of at most one later transition.
type Record struct {
	// Ref is the globally unique reference, assigned by the record store.
	Ref RecordRef

	// Program is the program that declared the record type.
	Program ProgramID

	// Type is the record type name within the program schema.
	Type string

	// Owner is the identity that may spend this record.
	Owner Identity

	// Fields holds the record's named field values in declaration order.
	Fields []NamedValue
}

// Field returns the value of the named field.
func (r *Record) Field(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Fields = cloneNamedValues(r.Fields)
	return &out
}

// ValidateBasic performs basic structural validation of the record.
func (r *Record) ValidateBasic() error {
	if r.Program.IsZero() {
		return fmt.Errorf("record program is empty: %w", ErrEmptyData)
	}
	if r.Type == "" {
		return fmt.Errorf("record type is empty: %w", ErrEmptyData)
	}
	if r.Owner.IsZero() {
		return fmt.Errorf("record owner is empty: %w", ErrEmptyData)
	}
	return nil
}

func cloneNamedValues(fields []NamedValue) []NamedValue {
	if fields == nil {
		return nil
	}
	out := make([]NamedValue, len(fields))
	for i, f := range fields {
		out[i] = NamedValue{Name: f.Name, Value: f.Value.Clone()}
	}
	return out
}

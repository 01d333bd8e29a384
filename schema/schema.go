// Package schema describes the declared shape of a ledger program:
// its record types, its mappings, and its transitions with their
// optional finalize signatures. Schemas are declared once at program
// construction and never mutated.
package schema

import (
	"fmt"

	"github.com/blockberries/veilberry/types"
)

// FieldDef declares a named record or struct field.
type FieldDef struct {
	Name string
	Kind types.Kind
}

// RecordType declares an ownable record type. The owner field is
// implicit and not listed.
type RecordType struct {
	Name   string
	Fields []FieldDef
}

// MappingDef declares a named, globally shared key->value table.
// Entries are created implicitly on first write and persist for the
// life of the program.
type MappingDef struct {
	Name      string
	KeyKind   types.Kind
	ValueKind types.Kind
}

// ParamDef declares a transition or finalize parameter.
type ParamDef struct {
	Name string
	Kind types.Kind

	// Private marks parameters that stay client-side and are never
	// revealed in the transaction's public output.
	Private bool
}

// FinalizeDef declares the deferred public half of a transition.
type FinalizeDef struct {
	Params []ParamDef
}

// TransitionDef declares a transition: its parameters, the record types
// it consumes and produces, and its optional finalize call.
type TransitionDef struct {
	Name    string
	Params  []ParamDef
	Inputs  []string // record type names consumed, in order
	Outputs []string // record type names produced, in order

	// Finalize is non-nil when the transition schedules a finalize call.
	Finalize *FinalizeDef
}

// Program is the declared schema of a ledger program.
type Program struct {
	ID          types.ProgramID
	Records     []RecordType
	Mappings    []MappingDef
	Transitions []TransitionDef
}

// RecordType returns the declared record type with the given name.
func (p *Program) RecordType(name string) (*RecordType, bool) {
	for i := range p.Records {
		if p.Records[i].Name == name {
			return &p.Records[i], true
		}
	}
	return nil, false
}

// Mapping returns the declared mapping with the given name.
func (p *Program) Mapping(name string) (*MappingDef, bool) {
	for i := range p.Mappings {
		if p.Mappings[i].Name == name {
			return &p.Mappings[i], true
		}
	}
	return nil, false
}

// Transition returns the declared transition with the given name.
func (p *Program) Transition(name string) (*TransitionDef, bool) {
	for i := range p.Transitions {
		if p.Transitions[i].Name == name {
			return &p.Transitions[i], true
		}
	}
	return nil, false
}

// Validate checks the schema for structural problems: empty names,
// duplicate declarations, and references to undeclared record types.
func (p *Program) Validate() error {
	if p.ID.IsZero() {
		return fmt.Errorf("program ID is empty: %w", types.ErrEmptyData)
	}

	seenRecords := make(map[string]bool, len(p.Records))
	for _, r := range p.Records {
		if r.Name == "" {
			return fmt.Errorf("record type with empty name: %w", types.ErrEmptyData)
		}
		if seenRecords[r.Name] {
			return fmt.Errorf("duplicate record type %q", r.Name)
		}
		seenRecords[r.Name] = true
	}

	seenMappings := make(map[string]bool, len(p.Mappings))
	for _, m := range p.Mappings {
		if m.Name == "" {
			return fmt.Errorf("mapping with empty name: %w", types.ErrEmptyData)
		}
		if seenMappings[m.Name] {
			return fmt.Errorf("duplicate mapping %q", m.Name)
		}
		seenMappings[m.Name] = true
	}

	seenTransitions := make(map[string]bool, len(p.Transitions))
	for _, t := range p.Transitions {
		if t.Name == "" {
			return fmt.Errorf("transition with empty name: %w", types.ErrEmptyData)
		}
		if seenTransitions[t.Name] {
			return fmt.Errorf("duplicate transition %q", t.Name)
		}
		seenTransitions[t.Name] = true

		for _, in := range t.Inputs {
			if !seenRecords[in] {
				return fmt.Errorf("transition %q consumes undeclared record type %q", t.Name, in)
			}
		}
		for _, out := range t.Outputs {
			if !seenRecords[out] {
				return fmt.Errorf("transition %q produces undeclared record type %q", t.Name, out)
			}
		}
	}

	return nil
}

// CheckArgs verifies that args match the declared parameter kinds.
// Fails with ErrTypeMismatch on arity or kind divergence.
func CheckArgs(params []ParamDef, args []types.Value) error {
	if len(args) != len(params) {
		return fmt.Errorf("got %d arguments, want %d: %w", len(args), len(params), types.ErrTypeMismatch)
	}
	for i, p := range params {
		if args[i].Kind != p.Kind {
			return fmt.Errorf("argument %q is %s, declared %s: %w", p.Name, args[i].Kind, p.Kind, types.ErrTypeMismatch)
		}
	}
	return nil
}

// CheckRecord verifies that a record's fields match its declared type:
// same field names in declaration order, matching kinds.
func CheckRecord(rt *RecordType, rec *types.Record) error {
	if rec.Type != rt.Name {
		return fmt.Errorf("record is %q, declared %q: %w", rec.Type, rt.Name, types.ErrTypeMismatch)
	}
	if len(rec.Fields) != len(rt.Fields) {
		return fmt.Errorf("record %q has %d fields, declared %d: %w", rt.Name, len(rec.Fields), len(rt.Fields), types.ErrTypeMismatch)
	}
	for i, def := range rt.Fields {
		got := rec.Fields[i]
		if got.Name != def.Name {
			return fmt.Errorf("record %q field %d is %q, declared %q: %w", rt.Name, i, got.Name, def.Name, types.ErrTypeMismatch)
		}
		if got.Value.Kind != def.Kind {
			return fmt.Errorf("record %q field %q is %s, declared %s: %w", rt.Name, def.Name, got.Value.Kind, def.Kind, types.ErrTypeMismatch)
		}
	}
	return nil
}

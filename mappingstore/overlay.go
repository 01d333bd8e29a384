package mappingstore

import (
	"fmt"
	"sort"

	"github.com/blockberries/veilberry/schema"
	"github.com/blockberries/veilberry/types"
)

// Overlay stages the mapping mutations of one finalize execution on top
// of a base Store. Nothing reaches the base until Apply, so a failing
// finalize (e.g. overflow) leaves the public state untouched.
//
// All operations are checked against the program's declared mapping
// schemas: unknown mappings fail with ErrUnknownMapping, kind divergence
// with ErrTypeMismatch, and arithmetic leaving the declared domain with
// ErrArithmeticOverflow.
type Overlay struct {
	base    Store
	program *schema.Program
	writes  map[string]overlayWrite
}

type overlayWrite struct {
	mapping string
	key     types.Value
	value   types.Value
	removed bool
}

// NewOverlay creates an overlay for one finalize execution of the given
// program.
func NewOverlay(base Store, program *schema.Program) *Overlay {
	return &Overlay{
		base:    base,
		program: program,
		writes:  make(map[string]overlayWrite),
	}
}

// Get retrieves the value for a key, seeing staged writes first.
func (o *Overlay) Get(mapping string, key types.Value) (types.Value, bool, error) {
	if _, err := o.mappingDef(mapping, key); err != nil {
		return types.Value{}, false, err
	}

	if w, ok := o.writes[string(entryKey(o.program.ID, mapping, key))]; ok {
		if w.removed {
			return types.Value{}, false, nil
		}
		return w.value.Clone(), true, nil
	}
	return o.base.Get(o.program.ID, mapping, key)
}

// Set stages an entry write.
func (o *Overlay) Set(mapping string, key, value types.Value) error {
	def, err := o.mappingDef(mapping, key)
	if err != nil {
		return err
	}
	if value.Kind != def.ValueKind {
		return fmt.Errorf("mapping %q value is %s, declared %s: %w", mapping, value.Kind, def.ValueKind, types.ErrTypeMismatch)
	}

	o.writes[string(entryKey(o.program.ID, mapping, key))] = overlayWrite{
		mapping: mapping,
		key:     key.Clone(),
		value:   value.Clone(),
	}
	return nil
}

// Remove stages an entry removal. Removing an absent entry is not an error.
func (o *Overlay) Remove(mapping string, key types.Value) error {
	if _, err := o.mappingDef(mapping, key); err != nil {
		return err
	}

	o.writes[string(entryKey(o.program.ID, mapping, key))] = overlayWrite{
		mapping: mapping,
		key:     key.Clone(),
		removed: true,
	}
	return nil
}

// Increment stages current + delta for the entry, initializing an absent
// entry to the zero of the declared value kind. A result outside the
// declared domain fails with ErrArithmeticOverflow and stages nothing.
func (o *Overlay) Increment(mapping string, key, delta types.Value) (types.Value, error) {
	cur, err := o.currentOrZero(mapping, key, delta)
	if err != nil {
		return types.Value{}, err
	}

	next, err := cur.CheckedAdd(delta)
	if err != nil {
		return types.Value{}, fmt.Errorf("incrementing %q: %w", mapping, err)
	}
	if err := o.Set(mapping, key, next); err != nil {
		return types.Value{}, err
	}
	return next, nil
}

// Decrement stages current - delta for the entry, initializing an absent
// entry to the zero of the declared value kind. Underflow fails with
// ErrArithmeticOverflow and stages nothing.
func (o *Overlay) Decrement(mapping string, key, delta types.Value) (types.Value, error) {
	cur, err := o.currentOrZero(mapping, key, delta)
	if err != nil {
		return types.Value{}, err
	}

	next, err := cur.CheckedSub(delta)
	if err != nil {
		return types.Value{}, fmt.Errorf("decrementing %q: %w", mapping, err)
	}
	if err := o.Set(mapping, key, next); err != nil {
		return types.Value{}, err
	}
	return next, nil
}

// Len returns the number of staged writes.
func (o *Overlay) Len() int {
	return len(o.writes)
}

// Apply flushes the staged writes to the base store in sorted key order.
// The order is total and independent of map iteration, so independent
// executors applying the same finalize reach identical state.
func (o *Overlay) Apply() error {
	keys := make([]string, 0, len(o.writes))
	for k := range o.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		w := o.writes[k]
		if w.removed {
			if err := o.base.Remove(o.program.ID, w.mapping, w.key); err != nil {
				return fmt.Errorf("applying remove to %q: %w", w.mapping, err)
			}
			continue
		}
		if err := o.base.Set(o.program.ID, w.mapping, w.key, w.value); err != nil {
			return fmt.Errorf("applying set to %q: %w", w.mapping, err)
		}
	}
	return nil
}

func (o *Overlay) currentOrZero(mapping string, key, delta types.Value) (types.Value, error) {
	def, err := o.mappingDef(mapping, key)
	if err != nil {
		return types.Value{}, err
	}
	if delta.Kind != def.ValueKind {
		return types.Value{}, fmt.Errorf("mapping %q delta is %s, declared %s: %w", mapping, delta.Kind, def.ValueKind, types.ErrTypeMismatch)
	}

	cur, ok, err := o.Get(mapping, key)
	if err != nil {
		return types.Value{}, err
	}
	if !ok {
		// Absent entries initialize to zero before arithmetic.
		return types.Zero(def.ValueKind), nil
	}
	if cur.Kind != def.ValueKind {
		return types.Value{}, fmt.Errorf("mapping %q holds %s, declared %s: %w", mapping, cur.Kind, def.ValueKind, types.ErrTypeMismatch)
	}
	return cur, nil
}

func (o *Overlay) mappingDef(mapping string, key types.Value) (*schema.MappingDef, error) {
	def, ok := o.program.Mapping(mapping)
	if !ok {
		return nil, fmt.Errorf("mapping %q not declared by %s: %w", mapping, o.program.ID, types.ErrUnknownMapping)
	}
	if key.Kind != def.KeyKind {
		return nil, fmt.Errorf("mapping %q key is %s, declared %s: %w", mapping, key.Kind, def.KeyKind, types.ErrTypeMismatch)
	}
	return def, nil
}

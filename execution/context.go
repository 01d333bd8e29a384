package execution

import (
	"fmt"

	"github.com/blockberries/veilberry/mappingstore"
	"github.com/blockberries/veilberry/schema"
	"github.com/blockberries/veilberry/types"
)

// TransitionContext is the execution context of private transition
// logic. It carries the authenticated caller, the checked arguments, and
// the consumed input records. It deliberately has no mapping capability:
// public state is not visible to private logic.
type TransitionContext struct {
	caller types.Identity
	args   []types.Value
	inputs []*types.Record
	def    *schema.TransitionDef
	sch    *schema.Program

	outputs        []*types.Record
	finalizeArgs   []types.Value
	finalizeQueued bool
}

// Caller returns the identity that invoked the transition. It is
// supplied by the surrounding execution environment, never by
// caller-controlled arguments, and is stable for the whole invocation.
func (c *TransitionContext) Caller() types.Identity {
	return c.caller
}

// Arg returns the i-th transition argument.
func (c *TransitionContext) Arg(i int) types.Value {
	return c.args[i]
}

// NumArgs returns the number of arguments.
func (c *TransitionContext) NumArgs() int {
	return len(c.args)
}

// Input returns the i-th consumed input record.
func (c *TransitionContext) Input(i int) *types.Record {
	return c.inputs[i]
}

// NumInputs returns the number of consumed input records.
func (c *TransitionContext) NumInputs() int {
	return len(c.inputs)
}

// Require evaluates an authorization predicate against the caller.
// role names the semantic role being asserted (e.g. "auctioneer") and
// appears in the error message. A failing predicate aborts the whole
// invocation with ErrUnauthorizedCaller.
func (c *TransitionContext) Require(pred Predicate, role string) error {
	if !pred(c.caller) {
		return fmt.Errorf("caller %s is not %s: %w", c.caller, role, types.ErrUnauthorizedCaller)
	}
	return nil
}

// RequireCaller asserts that the caller is exactly the given identity.
func (c *TransitionContext) RequireCaller(want types.Identity) error {
	return c.Require(IsIdentity(want), want.String())
}

// Output stages an output record of the declared type, owned by owner.
// Outputs must be produced in declaration order; the record's reference
// is assigned when the invocation commits.
func (c *TransitionContext) Output(recordType string, owner types.Identity, fields ...types.NamedValue) error {
	idx := len(c.outputs)
	if idx >= len(c.def.Outputs) {
		return fmt.Errorf("transition %q declares %d outputs: %w", c.def.Name, len(c.def.Outputs), types.ErrTypeMismatch)
	}
	if c.def.Outputs[idx] != recordType {
		return fmt.Errorf("output %d of %q is %q, declared %q: %w", idx, c.def.Name, recordType, c.def.Outputs[idx], types.ErrTypeMismatch)
	}

	rt, ok := c.sch.RecordType(recordType)
	if !ok {
		return fmt.Errorf("record type %q not declared by %s: %w", recordType, c.sch.ID, types.ErrTypeMismatch)
	}

	rec := &types.Record{
		Program: c.sch.ID,
		Type:    recordType,
		Owner:   owner,
		Fields:  fields,
	}
	if err := rec.ValidateBasic(); err != nil {
		return err
	}
	if err := schema.CheckRecord(rt, rec); err != nil {
		return err
	}

	c.outputs = append(c.outputs, rec)
	return nil
}

// QueueFinalize stages the arguments for the transition's declared
// finalize call. The finalize is never executed inline; it is applied
// after the invocation is accepted. May be called at most once.
func (c *TransitionContext) QueueFinalize(args ...types.Value) error {
	if c.def.Finalize == nil {
		return fmt.Errorf("transition %q declares no finalize: %w", c.def.Name, types.ErrTypeMismatch)
	}
	if c.finalizeQueued {
		return fmt.Errorf("transition %q queued finalize twice: %w", c.def.Name, types.ErrTypeMismatch)
	}
	if err := schema.CheckArgs(c.def.Finalize.Params, args); err != nil {
		return fmt.Errorf("finalize arguments of %q: %w", c.def.Name, err)
	}

	c.finalizeArgs = args
	c.finalizeQueued = true
	return nil
}

// FinalizeContext is the execution context of public finalize logic.
// It carries the queued arguments and the staged mapping overlay, and
// nothing else: no caller, no records, no private arguments.
type FinalizeContext struct {
	args     []types.Value
	mappings *mappingstore.Overlay
}

// Arg returns the i-th finalize argument.
func (c *FinalizeContext) Arg(i int) types.Value {
	return c.args[i]
}

// NumArgs returns the number of finalize arguments.
func (c *FinalizeContext) NumArgs() int {
	return len(c.args)
}

// Get retrieves a mapping entry, seeing this finalize's staged writes.
func (c *FinalizeContext) Get(mapping string, key types.Value) (types.Value, bool, error) {
	return c.mappings.Get(mapping, key)
}

// Set stages a mapping entry write.
func (c *FinalizeContext) Set(mapping string, key, value types.Value) error {
	return c.mappings.Set(mapping, key, value)
}

// Remove stages a mapping entry removal.
func (c *FinalizeContext) Remove(mapping string, key types.Value) error {
	return c.mappings.Remove(mapping, key)
}

// Increment stages current + delta for the entry, initializing an
// absent entry to zero. Overflow is fatal for the whole transaction.
func (c *FinalizeContext) Increment(mapping string, key, delta types.Value) (types.Value, error) {
	return c.mappings.Increment(mapping, key, delta)
}

// Decrement stages current - delta for the entry, initializing an
// absent entry to zero. Underflow is fatal for the whole transaction.
func (c *FinalizeContext) Decrement(mapping string, key, delta types.Value) (types.Value, error) {
	return c.mappings.Decrement(mapping, key, delta)
}

// Package execution runs ledger programs: private transition logic over
// owned records, and deferred public finalize logic over shared mappings.
//
// The private/public split is enforced at the type level. Transition
// logic receives a TransitionContext, which exposes the caller, the
// arguments, and the consumed input records, but no mapping capability.
// Finalize logic receives a FinalizeContext, which exposes the finalize
// arguments and the mapping overlay, and nothing else. Neither context
// can be converted into the other.
package execution

import (
	"fmt"
	"sync"

	"github.com/blockberries/veilberry/schema"
	"github.com/blockberries/veilberry/types"
)

// TransitionFunc is the private, client-side logic of one transition.
// It runs purely as a function of the context's arguments and consumed
// record fields; any returned error aborts the whole invocation with no
// side effects.
type TransitionFunc func(ctx *TransitionContext) error

// FinalizeFunc is the deterministic public half of a transition. It may
// return a public value that becomes part of the transaction's public
// output. Identical arguments and identical prior mapping state must
// always yield identical new state and return value.
type FinalizeFunc func(ctx *FinalizeContext) (*types.Value, error)

// Program is a deployed ledger program: a declared schema plus the logic
// bound to each declared transition and finalize.
type Program interface {
	// Schema returns the program's declared schema.
	Schema() *schema.Program

	// TransitionLogic returns the logic for a declared transition.
	TransitionLogic(name string) (TransitionFunc, bool)

	// FinalizeLogic returns the logic for a declared finalize.
	FinalizeLogic(name string) (FinalizeFunc, bool)
}

// Registry holds the deployed programs of a ledger.
// It is safe for concurrent use.
type Registry struct {
	programs map[types.ProgramID]Program
	mu       sync.RWMutex
}

// NewRegistry creates an empty program registry.
func NewRegistry() *Registry {
	return &Registry{
		programs: make(map[types.ProgramID]Program),
	}
}

// Register validates and adds a program.
// Fails with ErrProgramExists on duplicate IDs.
func (r *Registry) Register(p Program) error {
	sch := p.Schema()
	if sch == nil {
		return fmt.Errorf("program has no schema: %w", types.ErrEmptyData)
	}
	if err := sch.Validate(); err != nil {
		return fmt.Errorf("validating program %s: %w", sch.ID, err)
	}

	// Every declared transition must have logic bound; a declared
	// finalize without logic would strand its transition.
	for _, t := range sch.Transitions {
		if _, ok := p.TransitionLogic(t.Name); !ok {
			return fmt.Errorf("program %s declares transition %q without logic", sch.ID, t.Name)
		}
		if t.Finalize != nil {
			if _, ok := p.FinalizeLogic(t.Name); !ok {
				return fmt.Errorf("program %s declares finalize for %q without logic", sch.ID, t.Name)
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.programs[sch.ID]; exists {
		return fmt.Errorf("%s: %w", sch.ID, types.ErrProgramExists)
	}
	r.programs[sch.ID] = p
	return nil
}

// Lookup returns the program with the given ID.
func (r *Registry) Lookup(id types.ProgramID) (Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.programs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, types.ErrUnknownProgram)
	}
	return p, nil
}

// Programs returns the IDs of all registered programs.
func (r *Registry) Programs() []types.ProgramID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]types.ProgramID, 0, len(r.programs))
	for id := range r.programs {
		ids = append(ids, id)
	}
	return ids
}

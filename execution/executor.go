package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blockberries/veilberry/logging"
	"github.com/blockberries/veilberry/mappingstore"
	"github.com/blockberries/veilberry/metrics"
	"github.com/blockberries/veilberry/recordstore"
	"github.com/blockberries/veilberry/schema"
	"github.com/blockberries/veilberry/tracing/otel"
	"github.com/blockberries/veilberry/types"
)

// Request is one transition invocation at the boundary of the core:
// the program, the transition, the authenticated caller, the arguments,
// and the references of the records to consume.
type Request struct {
	Program    types.ProgramID
	Transition string

	// Caller is the authenticated identity of the invoker, resolved by
	// the surrounding execution environment. It is never taken from
	// caller-supplied arguments.
	Caller types.Identity

	Args   []types.Value
	Inputs []types.RecordRef
}

// Result is the effect of a committed invocation.
type Result struct {
	// Outputs are the committed output records, references assigned.
	Outputs []*types.Record

	// FinalizeArgs are the arguments of the applied finalize call,
	// nil when the transition declares none.
	FinalizeArgs []types.Value

	// PublicReturn is the finalize's public return value, if any.
	PublicReturn *types.Value
}

// Executor runs transition invocations as atomic units: consumed
// inputs, produced outputs, and the queued finalize call all commit
// together or not at all.
type Executor struct {
	registry *Registry
	records  recordstore.Store
	mappings mappingstore.Store
	logger   *logging.Logger
	metrics  metrics.Metrics
	tracer   *otel.Tracer

	// finalizeMu serializes finalize application: mapping state is
	// shared ledger-wide, so finalize calls are applied in a single
	// global order.
	finalizeMu sync.Mutex
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMetrics sets the executor's metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithTracer sets the executor's tracer.
func WithTracer(t *otel.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// NewExecutor creates an executor over the given stores and registry.
func NewExecutor(registry *Registry, records recordstore.Store, mappings mappingstore.Store, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		records:  records,
		mappings: mappings,
		logger:   logging.NewNopLogger(),
		metrics:  metrics.NewNopMetrics(),
		tracer:   otel.NewNopTracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("executor")
	return e
}

// Unit is a prepared invocation: the transition's private computation
// has run and its effects are staged. Commit applies the queued
// finalize (if any) and makes the record effects permanent; Abort rolls
// everything back. Exactly one of the two must be called.
//
// The gap between Prepare and Commit is the proof boundary: the
// surrounding system verifies the invocation's execution proof there
// and calls Abort when verification fails.
type Unit struct {
	executor *Executor
	program  Program
	def      *schema.TransitionDef
	req      *Request

	spends       []*recordstore.Spend
	outputs      []*types.Record
	finalizeArgs []types.Value

	settled bool
	start   time.Time
}

// ErrUnitSettled indicates a Unit was committed or aborted twice.
var ErrUnitSettled = errors.New("unit already settled")

// Prepare runs the transition's private computation and stages its
// effects. On any failure nothing is left behind: staged spends are
// released and no output exists anywhere.
func (e *Executor) Prepare(ctx context.Context, req *Request) (*Unit, error) {
	start := time.Now()

	unit, err := e.prepare(ctx, req)
	if err != nil {
		e.metrics.IncTransitionsFailed(req.Program.String(), req.Transition, types.ErrorKind(err))
		e.logger.Debug("transition rejected",
			logging.Program(req.Program),
			logging.Transition(req.Transition),
			logging.Caller(req.Caller),
			logging.ErrorKind(err),
			logging.Error(err),
		)
		return nil, err
	}

	unit.start = start
	return unit, nil
}

func (e *Executor) prepare(ctx context.Context, req *Request) (*Unit, error) {
	if req.Caller.IsZero() {
		return nil, fmt.Errorf("caller identity is empty: %w", types.ErrUnauthorizedCaller)
	}

	program, err := e.registry.Lookup(req.Program)
	if err != nil {
		return nil, err
	}
	sch := program.Schema()

	def, ok := sch.Transition(req.Transition)
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", req.Program, req.Transition, types.ErrUnknownTransition)
	}
	logic, ok := program.TransitionLogic(req.Transition)
	if !ok {
		return nil, fmt.Errorf("%s/%s has no logic: %w", req.Program, req.Transition, types.ErrUnknownTransition)
	}

	if err := schema.CheckArgs(def.Params, req.Args); err != nil {
		return nil, fmt.Errorf("arguments of %q: %w", req.Transition, err)
	}
	if len(req.Inputs) != len(def.Inputs) {
		return nil, fmt.Errorf("transition %q consumes %d records, got %d: %w", req.Transition, len(def.Inputs), len(req.Inputs), types.ErrTypeMismatch)
	}

	// Consume the declared inputs. The spend is a staged reservation:
	// a failure on any input releases the ones already reserved, so a
	// rejected invocation has no effect on the record store.
	spends := make([]*recordstore.Spend, 0, len(req.Inputs))
	release := func() {
		for _, s := range spends {
			_ = s.Release()
		}
	}

	inputs := make([]*types.Record, 0, len(req.Inputs))
	for i, ref := range req.Inputs {
		spend, err := e.records.Spend(ref, req.Caller)
		if err != nil {
			release()
			return nil, fmt.Errorf("consuming input %d: %w", i, err)
		}
		spends = append(spends, spend)

		rec := spend.Record
		if rec.Program != sch.ID {
			release()
			return nil, fmt.Errorf("input %d belongs to %s, not %s: %w", i, rec.Program, sch.ID, types.ErrTypeMismatch)
		}
		rt, ok := sch.RecordType(def.Inputs[i])
		if !ok {
			release()
			return nil, fmt.Errorf("record type %q not declared: %w", def.Inputs[i], types.ErrTypeMismatch)
		}
		if err := schema.CheckRecord(rt, rec); err != nil {
			release()
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		inputs = append(inputs, rec)
	}

	tctx := &TransitionContext{
		caller: req.Caller,
		args:   req.Args,
		inputs: inputs,
		def:    def,
		sch:    sch,
	}

	_, span := e.tracer.StartTransition(ctx, req.Program, req.Transition, req.Caller)
	err = logic(tctx)
	otel.EndSpan(span, err)
	if err != nil {
		release()
		return nil, err
	}

	if len(tctx.outputs) != len(def.Outputs) {
		release()
		return nil, fmt.Errorf("transition %q produced %d of %d declared outputs: %w", req.Transition, len(tctx.outputs), len(def.Outputs), types.ErrTypeMismatch)
	}
	if def.Finalize != nil && !tctx.finalizeQueued {
		release()
		return nil, fmt.Errorf("transition %q declares a finalize call but queued none: %w", req.Transition, types.ErrTypeMismatch)
	}

	return &Unit{
		executor:     e,
		program:      program,
		def:          def,
		req:          req,
		spends:       spends,
		outputs:      tctx.outputs,
		finalizeArgs: tctx.finalizeArgs,
	}, nil
}

// Commit applies the unit: runs the queued finalize against the shared
// mapping state, marks the consumed records spent, and creates the
// output records. A finalize failure aborts the whole unit, rolling the
// staged spends back.
func (u *Unit) Commit(ctx context.Context) (*Result, error) {
	if u.settled {
		return nil, ErrUnitSettled
	}

	e := u.executor
	result := &Result{FinalizeArgs: u.finalizeArgs}

	if u.def.Finalize != nil {
		ret, err := e.applyFinalize(ctx, u)
		if err != nil {
			u.settled = true
			for _, s := range u.spends {
				_ = s.Release()
			}
			e.metrics.IncTransitionsFailed(u.req.Program.String(), u.req.Transition, types.ErrorKind(err))
			e.logger.Debug("finalize rejected, unit rolled back",
				logging.Program(u.req.Program),
				logging.Transition(u.req.Transition),
				logging.ErrorKind(err),
				logging.Error(err),
			)
			return nil, err
		}
		result.PublicReturn = ret
	}

	u.settled = true

	for _, s := range u.spends {
		if err := s.Commit(); err != nil {
			return nil, fmt.Errorf("committing spend: %w", err)
		}
	}
	for _, rec := range u.outputs {
		if err := e.records.Create(rec); err != nil {
			return nil, fmt.Errorf("creating output record: %w", err)
		}
		result.Outputs = append(result.Outputs, rec.Clone())
	}

	e.metrics.IncTransitionsExecuted(u.req.Program.String(), u.req.Transition)
	e.metrics.IncRecordsSpent(len(u.spends))
	e.metrics.IncRecordsCreated(len(u.outputs))
	e.metrics.ObserveTransitionDuration(u.req.Program.String(), u.req.Transition, time.Since(u.start))

	e.logger.Info("transition committed",
		logging.Program(u.req.Program),
		logging.Transition(u.req.Transition),
		logging.Caller(u.req.Caller),
		logging.Count(len(u.outputs)),
		logging.Duration(time.Since(u.start)),
	)

	return result, nil
}

// Abort rolls the unit back, releasing the staged spends.
// Used when the surrounding system rejects the invocation's proof.
func (u *Unit) Abort() error {
	if u.settled {
		return ErrUnitSettled
	}
	u.settled = true

	for _, s := range u.spends {
		if err := s.Release(); err != nil {
			return fmt.Errorf("releasing spend: %w", err)
		}
	}

	u.executor.logger.Debug("unit aborted",
		logging.Program(u.req.Program),
		logging.Transition(u.req.Transition),
	)
	return nil
}

// applyFinalize runs the finalize logic in a staged overlay under the
// global finalize lock and flushes the overlay on success. Nothing
// reaches the shared mapping state when the logic fails.
func (e *Executor) applyFinalize(ctx context.Context, u *Unit) (*types.Value, error) {
	logic, ok := u.program.FinalizeLogic(u.req.Transition)
	if !ok {
		return nil, fmt.Errorf("%s/%s has no finalize logic: %w", u.req.Program, u.req.Transition, types.ErrUnknownTransition)
	}

	e.finalizeMu.Lock()
	defer e.finalizeMu.Unlock()

	start := time.Now()
	fctx := &FinalizeContext{
		args:     u.finalizeArgs,
		mappings: mappingstore.NewOverlay(e.mappings, u.program.Schema()),
	}

	_, span := e.tracer.StartFinalize(ctx, u.req.Program, u.req.Transition)
	ret, err := logic(fctx)
	if err == nil {
		err = fctx.mappings.Apply()
	}
	otel.EndSpan(span, err)

	if err != nil {
		e.metrics.IncFinalizeFailed(u.req.Program.String(), types.ErrorKind(err))
		return nil, err
	}

	e.metrics.IncFinalizeApplied(u.req.Program.String())
	e.metrics.ObserveFinalizeDuration(u.req.Program.String(), time.Since(start))
	return ret, nil
}

// Execute runs Prepare and Commit as one step, for callers that treat
// proof acceptance as given (tests, local tooling, embedded ledgers).
func (e *Executor) Execute(ctx context.Context, req *Request) (*Result, error) {
	unit, err := e.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return unit.Commit(ctx)
}

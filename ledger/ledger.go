// Package ledger ties the execution core together behind one embeddable
// surface: program registration, transition invocation, record and
// mapping queries, and versioned commits of public state.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/blockberries/veilberry/execution"
	"github.com/blockberries/veilberry/logging"
	"github.com/blockberries/veilberry/mappingstore"
	"github.com/blockberries/veilberry/metrics"
	"github.com/blockberries/veilberry/recordstore"
	"github.com/blockberries/veilberry/tracing/otel"
	"github.com/blockberries/veilberry/types"
)

// Ledger is the top-level handle over the record store, the mapping
// store, and the executor. It is safe for concurrent use.
type Ledger struct {
	registry *execution.Registry
	records  recordstore.Store
	mappings mappingstore.Store
	executor *execution.Executor

	logger  *logging.Logger
	metrics metrics.Metrics

	closeMu sync.Mutex
	closed  bool
}

// Option configures a Ledger.
type Option func(*options)

type options struct {
	logger  *logging.Logger
	metrics metrics.Metrics
	tracer  *otel.Tracer
}

// WithLogger sets the ledger's logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the ledger's metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the ledger's tracer.
func WithTracer(t *otel.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// New creates a ledger over the given stores. The ledger takes ownership
// of the stores: Close closes them.
func New(records recordstore.Store, mappings mappingstore.Store, opts ...Option) *Ledger {
	o := &options{
		logger:  logging.NewNopLogger(),
		metrics: metrics.NewNopMetrics(),
		tracer:  otel.NewNopTracer(),
	}
	for _, opt := range opts {
		opt(o)
	}

	registry := execution.NewRegistry()
	executor := execution.NewExecutor(registry, records, mappings,
		execution.WithLogger(o.logger),
		execution.WithMetrics(o.metrics),
		execution.WithTracer(o.tracer),
	)

	return &Ledger{
		registry: registry,
		records:  records,
		mappings: mappings,
		executor: executor,
		logger:   o.logger.WithComponent("ledger"),
		metrics:  o.metrics,
	}
}

// RegisterProgram deploys a program. Duplicate IDs fail with
// ErrProgramExists.
func (l *Ledger) RegisterProgram(p execution.Program) error {
	if err := l.registry.Register(p); err != nil {
		return err
	}
	l.logger.Info("program registered", logging.Program(p.Schema().ID))
	return nil
}

// Programs returns the IDs of all deployed programs.
func (l *Ledger) Programs() []types.ProgramID {
	return l.registry.Programs()
}

// Execute runs one transition invocation to completion.
func (l *Ledger) Execute(ctx context.Context, req *execution.Request) (*execution.Result, error) {
	return l.executor.Execute(ctx, req)
}

// Prepare stages one transition invocation without committing it.
// The caller settles the returned unit with Commit or Abort, typically
// after verifying the invocation's execution proof.
func (l *Ledger) Prepare(ctx context.Context, req *execution.Request) (*execution.Unit, error) {
	return l.executor.Prepare(ctx, req)
}

// GetRecord retrieves a record by reference, spent or not.
func (l *Ledger) GetRecord(ref types.RecordRef) (*types.Record, error) {
	return l.records.Get(ref)
}

// IsSpent reports whether a record has been consumed.
func (l *Ledger) IsSpent(ref types.RecordRef) (bool, error) {
	return l.records.IsSpent(ref)
}

// GetMapping retrieves a public mapping entry.
func (l *Ledger) GetMapping(program types.ProgramID, mapping string, key types.Value) (types.Value, bool, error) {
	return l.mappings.Get(program, mapping, key)
}

// Commit persists the working mapping state as a new version and
// returns its root hash and version number.
func (l *Ledger) Commit() ([]byte, int64, error) {
	hash, version, err := l.mappings.Commit()
	if err != nil {
		return nil, 0, fmt.Errorf("committing mapping state: %w", err)
	}

	l.metrics.SetMappingVersion(version)
	l.logger.Info("mapping state committed",
		logging.Version(version),
		logging.RootHash(hash),
	)
	return hash, version, nil
}

// Version returns the latest committed mapping state version.
func (l *Ledger) Version() int64 {
	return l.mappings.Version()
}

// RootHash returns the root hash of the working mapping state.
func (l *Ledger) RootHash() []byte {
	return l.mappings.RootHash()
}

// Close closes the underlying stores. Safe to call more than once.
func (l *Ledger) Close() error {
	l.closeMu.Lock()
	defer l.closeMu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var firstErr error
	if err := l.records.Close(); err != nil {
		firstErr = fmt.Errorf("closing record store: %w", err)
	}
	if err := l.mappings.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing mapping store: %w", err)
	}
	return firstErr
}

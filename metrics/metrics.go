// Package metrics provides metrics collection for veilberry.
package metrics

import "time"

// Metrics is the interface for ledger metrics collection.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// Transition metrics

	IncTransitionsExecuted(program, transition string)
	IncTransitionsFailed(program, transition, errorKind string)
	ObserveTransitionDuration(program, transition string, d time.Duration)

	// Record metrics

	IncRecordsCreated(count int)
	IncRecordsSpent(count int)

	// Finalize metrics

	IncFinalizeApplied(program string)
	IncFinalizeFailed(program, errorKind string)
	ObserveFinalizeDuration(program string, d time.Duration)

	// Mapping state metrics

	SetMappingVersion(version int64)
}

package metrics

import "time"

// NopMetrics is a no-op implementation of the Metrics interface.
// Use this when metrics collection is disabled.
type NopMetrics struct{}

// NewNopMetrics creates a new NopMetrics instance.
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

var _ Metrics = (*NopMetrics)(nil)

// Transition metrics (no-op)

func (m *NopMetrics) IncTransitionsExecuted(program, transition string)                    {}
func (m *NopMetrics) IncTransitionsFailed(program, transition, errorKind string)           {}
func (m *NopMetrics) ObserveTransitionDuration(program, transition string, d time.Duration) {}

// Record metrics (no-op)

func (m *NopMetrics) IncRecordsCreated(count int) {}
func (m *NopMetrics) IncRecordsSpent(count int)   {}

// Finalize metrics (no-op)

func (m *NopMetrics) IncFinalizeApplied(program string)                        {}
func (m *NopMetrics) IncFinalizeFailed(program, errorKind string)              {}
func (m *NopMetrics) ObserveFinalizeDuration(program string, d time.Duration)  {}

// Mapping state metrics (no-op)

func (m *NopMetrics) SetMappingVersion(version int64) {}

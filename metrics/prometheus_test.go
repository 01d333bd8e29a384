package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_Collect(t *testing.T) {
	m := NewPrometheusMetrics("veilberry")

	m.IncTransitionsExecuted("auction.aleo", "place_bid")
	m.IncTransitionsExecuted("auction.aleo", "place_bid")
	m.IncTransitionsFailed("auction.aleo", "finish", "unauthorized_caller")
	m.ObserveTransitionDuration("auction.aleo", "place_bid", 5*time.Millisecond)
	m.IncRecordsCreated(3)
	m.IncRecordsSpent(2)
	m.IncFinalizeApplied("token.aleo")
	m.IncFinalizeFailed("token.aleo", "arithmetic_overflow")
	m.ObserveFinalizeDuration("token.aleo", time.Millisecond)
	m.SetMappingVersion(7)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, body, `veilberry_transitions_executed_total{program="auction.aleo",transition="place_bid"} 2`)
	assert.Contains(t, body, `veilberry_transitions_failed_total{error_kind="unauthorized_caller",program="auction.aleo",transition="finish"} 1`)
	assert.Contains(t, body, `veilberry_records_created_total 3`)
	assert.Contains(t, body, `veilberry_records_spent_total 2`)
	assert.Contains(t, body, `veilberry_finalize_applied_total{program="token.aleo"} 1`)
	assert.Contains(t, body, `veilberry_mapping_state_version 7`)
}

func TestNopMetrics(t *testing.T) {
	var m Metrics = NewNopMetrics()

	// All methods must be safe no-ops.
	m.IncTransitionsExecuted("p", "t")
	m.IncTransitionsFailed("p", "t", "k")
	m.ObserveTransitionDuration("p", "t", time.Second)
	m.IncRecordsCreated(1)
	m.IncRecordsSpent(1)
	m.IncFinalizeApplied("p")
	m.IncFinalizeFailed("p", "k")
	m.ObserveFinalizeDuration("p", time.Second)
	m.SetMappingVersion(1)
}

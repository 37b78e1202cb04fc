package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clihub/internal/domain"
)

func TestNewPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	assert.NotNil(t, m)
	assert.NotNil(t, m.execDuration)
	assert.NotNil(t, m.execTotal)
	assert.NotNil(t, m.cacheLookups)
	assert.NotNil(t, m.visibilityChanges)
	assert.NotNil(t, m.storeErrors)
}

func TestNewPrometheusMetrics_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewPrometheusMetrics(registry)
	m.ObserveExecution(domain.ExecutionMetric{
		Tool:       "eza",
		Outcome:    domain.OutcomeSuccess,
		Normalized: true,
		Duration:   10 * time.Millisecond,
	})
	m.AddInflightExecutions("eza", 1)
	m.ObserveCacheLookup(true)
	m.ObserveVisibilityChange("git", true)
	m.SetVisibleGroups(3)
	m.ObserveStoreError("cache")
	m.ObserveProcedureCall("git_status", nil)

	metrics, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		names = append(names, m.GetName())
	}

	assert.Contains(t, names, "clihub_execution_duration_seconds")
	assert.Contains(t, names, "clihub_executions_total")
	assert.Contains(t, names, "clihub_executions_inflight")
	assert.Contains(t, names, "clihub_cache_lookups_total")
	assert.Contains(t, names, "clihub_visibility_changes_total")
	assert.Contains(t, names, "clihub_visible_groups")
	assert.Contains(t, names, "clihub_store_errors_total")
	assert.Contains(t, names, "clihub_procedure_calls_total")
}

func TestObserveExecution_NormalizeFallback(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	m.ObserveExecution(domain.ExecutionMetric{Tool: "kubectl", Outcome: domain.OutcomeSuccess})
	m.ObserveExecution(domain.ExecutionMetric{Tool: "kubectl", Outcome: domain.OutcomeTimeout})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.normalizeFallbacks.WithLabelValues("kubectl")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.execTotal.WithLabelValues("kubectl", "timeout")))
}

func TestObserveProcedureCall_UsesErrorCode(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	m.ObserveProcedureCall("group_enable", domain.E(domain.CodeUnknownGroup, "enable", "", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.procedureCalls.WithLabelValues("group_enable", "UNKNOWN_GROUP")))
}

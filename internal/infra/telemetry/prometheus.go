package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"clihub/internal/domain"
)

type PrometheusMetrics struct {
	execDuration       *prometheus.HistogramVec
	execTotal          *prometheus.CounterVec
	inflight           *prometheus.GaugeVec
	cacheLookups       *prometheus.CounterVec
	visibilityChanges  *prometheus.CounterVec
	visibleGroups      prometheus.Gauge
	storeErrors        *prometheus.CounterVec
	procedureCalls     *prometheus.CounterVec
	normalizeFallbacks *prometheus.CounterVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		execDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clihub_execution_duration_seconds",
				Help:    "Wall-clock duration of subprocess executions in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool", "outcome"},
		),
		execTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clihub_executions_total",
				Help: "Total number of execution attempts by outcome",
			},
			[]string{"tool", "outcome"},
		),
		inflight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clihub_executions_inflight",
				Help: "Current number of running subprocesses",
			},
			[]string{"tool"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clihub_cache_lookups_total",
				Help: "Total number of result cache lookups",
			},
			[]string{"result"},
		),
		visibilityChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clihub_visibility_changes_total",
				Help: "Total number of group enable and disable operations",
			},
			[]string{"group", "action"},
		),
		visibleGroups: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "clihub_visible_groups",
				Help: "Number of groups enabled in the most recently changed session",
			},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clihub_store_errors_total",
				Help: "Total number of persistence store failures",
			},
			[]string{"surface"},
		),
		procedureCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clihub_procedure_calls_total",
				Help: "Total number of procedure calls received over MCP",
			},
			[]string{"procedure", "status"},
		),
		normalizeFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clihub_normalize_fallbacks_total",
				Help: "Total number of outputs returned as raw text after a parse failure",
			},
			[]string{"tool"},
		),
	}
}

func (p *PrometheusMetrics) ObserveExecution(metric domain.ExecutionMetric) {
	outcome := string(metric.Outcome)
	p.execTotal.WithLabelValues(metric.Tool, outcome).Inc()
	if metric.Outcome == domain.OutcomeInvalid {
		return
	}
	p.execDuration.WithLabelValues(metric.Tool, outcome).Observe(metric.Duration.Seconds())
	if !metric.Normalized && (metric.Outcome == domain.OutcomeSuccess || metric.Outcome == domain.OutcomeNonZeroExit) {
		p.normalizeFallbacks.WithLabelValues(metric.Tool).Inc()
	}
}

func (p *PrometheusMetrics) AddInflightExecutions(tool string, delta int) {
	p.inflight.WithLabelValues(tool).Add(float64(delta))
}

func (p *PrometheusMetrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(result).Inc()
}

func (p *PrometheusMetrics) ObserveVisibilityChange(group domain.GroupID, enabled bool) {
	action := "disable"
	if enabled {
		action = "enable"
	}
	p.visibilityChanges.WithLabelValues(string(group), action).Inc()
}

func (p *PrometheusMetrics) SetVisibleGroups(count int) {
	p.visibleGroups.Set(float64(count))
}

func (p *PrometheusMetrics) ObserveStoreError(surface string) {
	p.storeErrors.WithLabelValues(surface).Inc()
}

func (p *PrometheusMetrics) ObserveProcedureCall(procedure string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		if code, ok := domain.CodeFrom(err); ok {
			status = string(code)
		}
	}
	p.procedureCalls.WithLabelValues(procedure, status).Inc()
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)

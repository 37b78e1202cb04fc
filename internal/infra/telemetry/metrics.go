package telemetry

import (
	"clihub/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveExecution(_ domain.ExecutionMetric) {}

func (n *NoopMetrics) AddInflightExecutions(_ string, _ int) {}

func (n *NoopMetrics) ObserveCacheLookup(_ bool) {}

func (n *NoopMetrics) ObserveVisibilityChange(_ domain.GroupID, _ bool) {}

func (n *NoopMetrics) SetVisibleGroups(_ int) {}

func (n *NoopMetrics) ObserveStoreError(_ string) {}

func (n *NoopMetrics) ObserveProcedureCall(_ string, _ error) {}

var _ domain.Metrics = (*NoopMetrics)(nil)

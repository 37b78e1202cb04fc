package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

type HealthReport struct {
	Status string                 `json:"status"`
	Checks map[string]CheckReport `json:"checks,omitempty"`
}

type CheckReport struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthTracker aggregates named checks into a single report.
type HealthTracker struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	timeout time.Duration
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		checks:  make(map[string]HealthCheck),
		timeout: 2 * time.Second,
	}
}

func (h *HealthTracker) Register(name string, check HealthCheck) {
	if h == nil || name == "" || check == nil {
		return
	}
	h.mu.Lock()
	h.checks[name] = check
	h.mu.Unlock()
}

func (h *HealthTracker) Report(ctx context.Context) HealthReport {
	if h == nil {
		return HealthReport{Status: "ok"}
	}
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheck, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mu.RUnlock()
	sort.Strings(names)

	report := HealthReport{Status: "ok"}
	if len(names) == 0 {
		return report
	}
	report.Checks = make(map[string]CheckReport, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := checks[name](checkCtx)
		cancel()
		if err != nil {
			report.Status = "degraded"
			report.Checks[name] = CheckReport{Status: "error", Error: err.Error()}
			continue
		}
		report.Checks[name] = CheckReport{Status: "ok"}
	}
	return report
}

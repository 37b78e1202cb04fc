package domain

import "time"

// ExecutionOutcome labels how an execution ended.
type ExecutionOutcome string

const (
	// OutcomeSuccess indicates exit code zero.
	OutcomeSuccess ExecutionOutcome = "success"
	// OutcomeNonZeroExit indicates the process ran but reported failure.
	OutcomeNonZeroExit ExecutionOutcome = "nonzero_exit"
	// OutcomeTimeout indicates the deadline killed the process.
	OutcomeTimeout ExecutionOutcome = "timeout"
	// OutcomeSpawnFailed indicates the process never started.
	OutcomeSpawnFailed ExecutionOutcome = "spawn_failed"
	// OutcomeInvalid indicates the request was rejected before spawning.
	OutcomeInvalid ExecutionOutcome = "invalid"
	// OutcomeCacheHit indicates the result came from the cache.
	OutcomeCacheHit ExecutionOutcome = "cache_hit"
)

// ExecutionMetric captures one execution attempt.
type ExecutionMetric struct {
	Tool       string
	Outcome    ExecutionOutcome
	Normalized bool
	Duration   time.Duration
}

// Metrics records operational metrics for execution, visibility and state.
type Metrics interface {
	ObserveExecution(metric ExecutionMetric)
	AddInflightExecutions(tool string, delta int)
	ObserveCacheLookup(hit bool)
	ObserveVisibilityChange(group GroupID, enabled bool)
	SetVisibleGroups(count int)
	ObserveStoreError(surface string)
	ObserveProcedureCall(procedure string, err error)
}

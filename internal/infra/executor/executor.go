// Package executor is the single entry point for running a command-line
// tool on behalf of a procedure call.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"clihub/internal/domain"
	"clihub/internal/infra/envutil"
	"clihub/internal/infra/hashutil"
	"clihub/internal/infra/normalize"
	"clihub/internal/infra/process"
	"clihub/internal/infra/telemetry"
)

// Runner runs one subprocess. *process.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, inv process.Invocation) (process.Result, error)
	SetMaxOutputBytes(limit int64)
}

const cacheWriteSurface = "cache_write"

// Settings are the hot-reloadable execution parameters.
type Settings struct {
	DefaultTimeout  time.Duration
	MaxOutputBytes  int64
	DefaultCacheTTL time.Duration
	EnvFile         string
	PathPrepend     []string
}

type Options struct {
	Runner     Runner
	Normalizer *normalize.Normalizer
	// Cache is optional; without it every call runs.
	Cache    domain.CacheStore
	Metrics  domain.Metrics
	Logger   *zap.Logger
	Settings Settings
	// BaseEnv returns the environment children inherit. Defaults to
	// os.Environ.
	BaseEnv func() []string
}

type Facade struct {
	runner     Runner
	normalizer *normalize.Normalizer
	cache      domain.CacheStore
	metrics    domain.Metrics
	logger     *zap.Logger
	baseEnv    func() []string
	settings   atomic.Pointer[Settings]
}

func New(opts Options) *Facade {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	runner := opts.Runner
	if runner == nil {
		runner = process.NewRunner(process.Options{Logger: logger})
	}
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = normalize.New()
	}
	baseEnv := opts.BaseEnv
	if baseEnv == nil {
		baseEnv = os.Environ
	}
	f := &Facade{
		runner:     runner,
		normalizer: normalizer,
		cache:      opts.Cache,
		metrics:    metrics,
		logger:     logger.Named("executor"),
		baseEnv:    baseEnv,
	}
	f.UpdateSettings(opts.Settings)
	return f
}

// UpdateSettings swaps the execution settings for subsequent calls.
func (f *Facade) UpdateSettings(settings Settings) {
	if settings.DefaultTimeout <= 0 {
		settings.DefaultTimeout = domain.DefaultExecutionTimeout
	}
	if settings.MaxOutputBytes < 0 {
		settings.MaxOutputBytes = 0
	}
	if settings.DefaultCacheTTL < 0 {
		settings.DefaultCacheTTL = 0
	}
	settings.PathPrepend = append([]string(nil), settings.PathPrepend...)
	f.settings.Store(&settings)
	f.runner.SetMaxOutputBytes(settings.MaxOutputBytes)
}

func (f *Facade) Settings() Settings {
	return *f.settings.Load()
}

// cachedRun is the persisted form of a successful run. The structured
// value is rebuilt from stdout on a hit so it has the same shape as a
// fresh normalization.
type cachedRun struct {
	ExitCode   int           `json:"exitCode"`
	Stdout     []byte        `json:"stdout"`
	Stderr     []byte        `json:"stderr,omitempty"`
	DurationNS time.Duration `json:"durationNs"`
}

// Execute validates req, serves it from the cache when possible, and
// otherwise runs and normalizes it. A non-zero exit is returned as a
// result. On timeout the partial result is returned with the error.
func (f *Facade) Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := telemetry.LoggerWithRequest(ctx, f.logger).With(telemetry.ToolField(req.Tool))
	settings := f.Settings()

	if err := Validate(req); err != nil {
		f.metrics.ObserveExecution(domain.ExecutionMetric{Tool: req.Tool, Outcome: domain.OutcomeInvalid})
		return domain.ExecutionResult{}, err
	}
	if !f.normalizer.Supports(req.Format) {
		f.metrics.ObserveExecution(domain.ExecutionMetric{Tool: req.Tool, Outcome: domain.OutcomeInvalid})
		return domain.ExecutionResult{}, domain.E(domain.CodeInvalidRequest, "execute",
			fmt.Sprintf("unsupported output format %q", req.Format), nil)
	}

	ttl := req.CacheTTL
	if ttl == domain.UseDefaultCacheTTL {
		ttl = settings.DefaultCacheTTL
	}
	cacheKey := ""
	if ttl > 0 && f.cache != nil {
		cacheKey = hashutil.ExecutionKey(logger, req, hashutil.Environment{
			EnvFile:     settings.EnvFile,
			PathPrepend: settings.PathPrepend,
		})
	}
	if cacheKey != "" {
		result, hit, err := f.lookup(ctx, cacheKey, req)
		if err != nil {
			return domain.ExecutionResult{}, err
		}
		f.metrics.ObserveCacheLookup(hit)
		if hit {
			f.metrics.ObserveExecution(domain.ExecutionMetric{
				Tool:       req.Tool,
				Outcome:    domain.OutcomeCacheHit,
				Normalized: result.Normalized,
			})
			logger.Debug("served from cache", telemetry.EventField(telemetry.EventCacheHit))
			return result, nil
		}
	}

	env, err := envutil.Build(envutil.Layer{
		Base:        f.baseEnv(),
		DotenvFile:  settings.EnvFile,
		PathPrepend: settings.PathPrepend,
		Overrides:   req.Env,
	})
	if err != nil {
		f.metrics.ObserveExecution(domain.ExecutionMetric{Tool: req.Tool, Outcome: domain.OutcomeInvalid})
		return domain.ExecutionResult{}, domain.Wrap(domain.CodeInvalidRequest, "build environment", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = settings.DefaultTimeout
	}

	f.metrics.AddInflightExecutions(req.Tool, 1)
	raw, runErr := f.runner.Run(ctx, process.Invocation{
		Tool:    req.Tool,
		Args:    req.Args,
		Stdin:   req.Stdin,
		Env:     env,
		Dir:     req.Dir,
		Timeout: timeout,
	})
	f.metrics.AddInflightExecutions(req.Tool, -1)

	if runErr != nil {
		return f.failed(logger, req, raw, runErr)
	}

	result := f.finish(req, raw)
	if !result.Normalized {
		logger.Warn("output normalization fell back to text",
			telemetry.EventField(telemetry.EventNormalizeFailed),
			zap.String("format", string(req.Format)),
			zap.String("reason", result.NormalizeError),
		)
	}
	outcome := domain.OutcomeSuccess
	if result.ExitCode != 0 {
		outcome = domain.OutcomeNonZeroExit
	}
	f.metrics.ObserveExecution(domain.ExecutionMetric{
		Tool:       req.Tool,
		Outcome:    outcome,
		Normalized: result.Normalized,
		Duration:   result.Duration,
	})
	logger.Info("execution finished",
		telemetry.EventField(telemetry.EventExecFinish),
		telemetry.ExitCodeField(result.ExitCode),
		telemetry.DurationField(result.Duration),
		zap.Bool("truncated", result.Truncated),
	)

	if cacheKey != "" && result.ExitCode == 0 && !result.Truncated {
		f.store(ctx, logger, cacheKey, raw, ttl)
	}
	return result, nil
}

func (f *Facade) failed(logger *zap.Logger, req domain.ExecutionRequest, raw process.Result, err error) (domain.ExecutionResult, error) {
	code, _ := domain.CodeFrom(err)
	switch code {
	case domain.CodeTimeout:
		result := f.finish(req, raw)
		f.metrics.ObserveExecution(domain.ExecutionMetric{
			Tool:       req.Tool,
			Outcome:    domain.OutcomeTimeout,
			Normalized: result.Normalized,
			Duration:   result.Duration,
		})
		logger.Warn("execution timed out",
			telemetry.EventField(telemetry.EventExecTimeout),
			telemetry.DurationField(raw.Duration),
			zap.Int("stdoutBytes", len(raw.Stdout)),
		)
		return result, err
	case domain.CodeSpawnFailed:
		f.metrics.ObserveExecution(domain.ExecutionMetric{Tool: req.Tool, Outcome: domain.OutcomeSpawnFailed})
		logger.Warn("spawn failed", telemetry.EventField(telemetry.EventSpawnFailure), zap.Error(err))
		return domain.ExecutionResult{}, err
	case domain.CodeCanceled:
		logger.Debug("execution canceled", zap.Error(err))
		return f.finish(req, raw), err
	default:
		logger.Error("execution failed", zap.Error(err))
		return f.finish(req, raw), domain.Wrap(domain.CodeInternal, "execute", err)
	}
}

func (f *Facade) finish(req domain.ExecutionRequest, raw process.Result) domain.ExecutionResult {
	out := f.normalizer.Normalize(normalize.Input{
		Format: req.Format,
		Stdout: raw.Stdout,
		Hints:  req.Hints,
	})
	result := domain.ExecutionResult{
		ExitCode:   raw.ExitCode,
		Stdout:     raw.Stdout,
		Stderr:     raw.Stderr,
		Duration:   raw.Duration,
		Value:      out.Value,
		Normalized: out.Normalized,
		Summary:    out.Summary,
		Truncated:  raw.Truncated,
	}
	if out.Err != nil {
		result.NormalizeError = out.Err.Error()
	}
	return result
}

func (f *Facade) lookup(ctx context.Context, key string, req domain.ExecutionRequest) (domain.ExecutionResult, bool, error) {
	entry, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return domain.ExecutionResult{}, false, err
		}
		return domain.ExecutionResult{}, false, domain.Wrap(domain.CodeStoreUnavailable, "cache lookup", err)
	}
	if !ok {
		return domain.ExecutionResult{}, false, nil
	}
	var cached cachedRun
	if err := json.Unmarshal(entry.Value, &cached); err != nil {
		f.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return domain.ExecutionResult{}, false, nil
	}
	result := f.finish(req, process.Result{
		ExitCode: cached.ExitCode,
		Stdout:   cached.Stdout,
		Stderr:   cached.Stderr,
		Duration: cached.DurationNS,
	})
	result.Cached = true
	return result, true, nil
}

// store writes a successful run back. Failures are logged and counted
// against the cache surface; the caller already has its result.
func (f *Facade) store(ctx context.Context, logger *zap.Logger, key string, raw process.Result, ttl time.Duration) {
	payload, err := json.Marshal(cachedRun{
		ExitCode:   raw.ExitCode,
		Stdout:     raw.Stdout,
		Stderr:     raw.Stderr,
		DurationNS: raw.Duration,
	})
	if err != nil {
		logger.Warn("encode cache entry failed", zap.Error(err))
		return
	}
	if err := f.cache.Put(ctx, key, payload, ttl); err != nil {
		f.metrics.ObserveStoreError(cacheWriteSurface)
		logger.Warn("cache write failed", zap.Error(err))
	}
}

// Validate rejects requests that can never be spawned.
func Validate(req domain.ExecutionRequest) error {
	const op = "validate request"
	if strings.TrimSpace(req.Tool) == "" {
		return domain.E(domain.CodeInvalidRequest, op, "tool is required", nil)
	}
	if strings.ContainsRune(req.Tool, 0) {
		return domain.E(domain.CodeInvalidRequest, op, "tool contains a NUL byte", nil)
	}
	for i, arg := range req.Args {
		if strings.ContainsRune(arg, 0) {
			return domain.E(domain.CodeInvalidRequest, op, fmt.Sprintf("argument %d contains a NUL byte", i), nil)
		}
	}
	for key, value := range req.Env {
		if key == "" || strings.ContainsAny(key, "=\x00") {
			return domain.E(domain.CodeInvalidRequest, op, fmt.Sprintf("invalid environment key %q", key), nil)
		}
		if strings.ContainsRune(value, 0) {
			return domain.E(domain.CodeInvalidRequest, op, fmt.Sprintf("environment value for %s contains a NUL byte", key), nil)
		}
	}
	if req.Timeout < 0 {
		return domain.E(domain.CodeInvalidRequest, op, "timeout must not be negative", nil)
	}
	return nil
}

var _ domain.Executor = (*Facade)(nil)

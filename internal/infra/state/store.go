// Package state is the embedded persistence layer: a TTL result cache, an
// auth-status memo, session tasks and a scoped key/value scratch space.
package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"clihub/internal/domain"
	"clihub/internal/infra/telemetry"
)

const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"

	defaultPageSize = 64
)

var ErrStoreClosed = errors.New("state store is closed")

type Options struct {
	Driver string
	Path   string
	Logger *zap.Logger
	// Metrics receives one observation per failed operation.
	Metrics domain.Metrics
	// CompressThreshold is the cache value size in bytes above which values
	// are stored zstd-compressed. Zero uses the default; negative disables.
	CompressThreshold int
	// PageSize bounds how many tasks one list transaction reads.
	PageSize int
	Now      func() time.Time
}

// Open opens the store selected by opts.Driver at opts.Path.
func Open(opts Options) (domain.StateStore, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverBolt
	}
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = ResolveDefaultPath(driver)
	}
	switch driver {
	case DriverBolt:
		return OpenBolt(path, opts)
	case DriverSQLite:
		return OpenSQLite(path, opts)
	default:
		return nil, domain.E(domain.CodeInvalidRequest, "open state store", fmt.Sprintf("unknown driver %q", opts.Driver), nil)
	}
}

// base carries the concerns shared by both drivers.
type base struct {
	logger   *zap.Logger
	metrics  domain.Metrics
	codec    *valueCodec
	pageSize int
	now      func() time.Time
}

func newBase(opts Options, driver string) base {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return base{
		logger:   logger.Named("state").With(zap.String("driver", driver)),
		metrics:  metrics,
		codec:    newValueCodec(opts.CompressThreshold),
		pageSize: pageSize,
		now:      now,
	}
}

// fail classifies err for surface. Domain errors pass through; anything
// else is the storage engine failing and maps to StoreUnavailable.
func (b base) fail(surface, op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *domain.Error
	if errors.As(err, &domainErr) && domainErr.Code != domain.CodeStoreUnavailable {
		return err
	}
	b.metrics.ObserveStoreError(surface)
	b.logger.Warn("state operation failed",
		zap.String("surface", surface),
		zap.String("op", op),
		zap.Error(err),
	)
	return domain.Wrap(domain.CodeStoreUnavailable, op, err)
}

func notFound(op, what, id string) error {
	return domain.E(domain.CodeNotFound, op, fmt.Sprintf("%s %q not found", what, id), nil)
}

func requireKey(op, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return domain.E(domain.CodeInvalidRequest, op, name+" is required", nil)
	}
	return nil
}

func normalizeScope(scope domain.ContextScope) domain.ContextScope {
	if scope == "" {
		return domain.ScopeSession
	}
	return scope
}

func validScope(op string, scope domain.ContextScope) error {
	switch scope {
	case domain.ScopeSession, domain.ScopeProject, domain.ScopeGlobal:
		return nil
	default:
		return domain.E(domain.CodeInvalidRequest, op, fmt.Sprintf("unknown scope %q", scope), nil)
	}
}

func applyPatch(task *domain.TaskRecord, patch domain.TaskPatch) {
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Payload != nil {
		task.Payload = *patch.Payload
	}
}

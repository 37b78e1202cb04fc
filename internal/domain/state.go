package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"
)

// CacheEntry is a stored result keyed by a request fingerprint.
// A zero TTL never expires.
type CacheEntry struct {
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"storedAt"`
	TTL      time.Duration   `json:"ttl"`
}

// ExpiresAt returns the expiry instant, or the zero time for entries
// without a TTL.
func (e CacheEntry) ExpiresAt() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.StoredAt.Add(e.TTL)
}

// Expired reports whether now has reached the entry's expiry. An entry
// is live only strictly before StoredAt+TTL.
func (e CacheEntry) Expired(now time.Time) bool {
	expires := e.ExpiresAt()
	return !expires.IsZero() && !now.Before(expires)
}

// AuthStatusRecord memoizes the last known authentication state of an
// external service.
type AuthStatusRecord struct {
	Service       string            `json:"service"`
	Authenticated bool              `json:"authenticated"`
	LastChecked   time.Time         `json:"lastChecked"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Well-known task statuses. Callers may use any non-empty status.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
)

// TaskRecord is a session task tracked across calls.
type TaskRecord struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Seq       uint64    `json:"-"`
}

// TaskPatch lists the task fields to change. Nil fields are kept.
type TaskPatch struct {
	Status  *string
	Payload *string
}

// ContextScope partitions the key/value scratch space.
type ContextScope string

const (
	ScopeSession ContextScope = "session"
	ScopeProject ContextScope = "project"
	ScopeGlobal  ContextScope = "global"
)

// ParseContextScope maps a user string to a scope; empty means session.
func ParseContextScope(raw string) (ContextScope, error) {
	switch ContextScope(NormalizeName(raw)) {
	case "", ScopeSession:
		return ScopeSession, nil
	case ScopeProject:
		return ScopeProject, nil
	case ScopeGlobal:
		return ScopeGlobal, nil
	default:
		return "", E(CodeInvalidRequest, "parse context scope", fmt.Sprintf("unknown scope %q", raw), nil)
	}
}

// ContextEntry is one scratch-space value.
type ContextEntry struct {
	Scope ContextScope `json:"scope"`
	Key   string       `json:"key"`
	Value string       `json:"value"`
}

// CacheStore holds fingerprinted results. Expired entries read as absent.
type CacheStore interface {
	Get(ctx context.Context, key string) (CacheEntry, bool, error)
	Put(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Purge(ctx context.Context) (int, error)
}

// AuthStore memoizes authentication checks.
type AuthStore interface {
	GetStatus(ctx context.Context, service string) (AuthStatusRecord, bool, error)
	SetStatus(ctx context.Context, service string, authenticated bool, metadata map[string]string) (AuthStatusRecord, error)
	ListStatus(ctx context.Context) ([]AuthStatusRecord, error)
}

// TaskStore tracks session tasks in creation order.
type TaskStore interface {
	CreateTask(ctx context.Context, payload string) (TaskRecord, error)
	GetTask(ctx context.Context, id string) (TaskRecord, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (TaskRecord, error)
	ListTasks(ctx context.Context) iter.Seq2[TaskRecord, error]
	DeleteTask(ctx context.Context, id string) error
	ClearTasks(ctx context.Context) (int, error)
}

// ContextStore is a scoped key/value scratch space.
type ContextStore interface {
	SetContext(ctx context.Context, scope ContextScope, key, value string) error
	GetContext(ctx context.Context, scope ContextScope, key string) (string, bool, error)
	ListContextKeys(ctx context.Context, scope ContextScope) ([]string, error)
	DeleteContext(ctx context.Context, scope ContextScope, key string) error
	ClearContextScope(ctx context.Context, scope ContextScope) (int, error)
}

// StateStore is the embedded persistence layer shared by all sessions.
type StateStore interface {
	CacheStore
	AuthStore
	TaskStore
	ContextStore
	Ping(ctx context.Context) error
	Close() error
}

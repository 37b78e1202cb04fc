package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"clihub/internal/domain"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cache (
		key       TEXT PRIMARY KEY,
		value     BLOB NOT NULL,
		stored_at INTEGER NOT NULL,
		ttl       INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_status (
		service       TEXT PRIMARY KEY,
		authenticated INTEGER NOT NULL,
		last_checked  INTEGER NOT NULL,
		metadata_json TEXT
	);

	CREATE TABLE IF NOT EXISTS tasks (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		status     TEXT NOT NULL,
		payload    TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS context (
		scope TEXT NOT NULL,
		key   TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (scope, key)
	);
`

// SQLiteStore implements domain.StateStore on modernc.org/sqlite.
type SQLiteStore struct {
	base
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

func OpenSQLite(path string, opts Options) (*SQLiteStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("state path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, domain.Wrap(domain.CodeStoreUnavailable, "open state store", fmt.Errorf("ensure state dir: %w", err))
	}
	dsn := trimmed + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, domain.Wrap(domain.CodeStoreUnavailable, "open state store", fmt.Errorf("open state db: %w", err))
	}
	// One handle, one connection: every operation is serialized by sqlite
	// itself instead of racing for the write lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	store := &SQLiteStore{base: newBase(opts, DriverSQLite), db: db, path: trimmed}
	if err := store.createSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, domain.Wrap(domain.CodeStoreUnavailable, "open state store", err)
	}
	store.logger.Info("state store opened", zap.String("path", trimmed))
	return store, nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, versionKey).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, versionKey, schemaVersion)
		return err
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version > schemaVersion:
		return fmt.Errorf("unsupported state schema version %d", version)
	case version < schemaVersion:
		return fmt.Errorf("missing migration path from %d to %d", version, schemaVersion)
	default:
		return nil
	}
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// acquire holds the read lock for the duration of one operation so Close
// waits for in-flight work.
func (s *SQLiteStore) acquire(ctx context.Context) (func(), error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	return s.mu.RUnlock, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return s.fail("meta", "ping", err)
	}
	defer release()
	return s.fail("meta", "ping", s.db.PingContext(ctx))
}

func (s *SQLiteStore) exec(ctx context.Context, surface, op, query string, args ...any) (sql.Result, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, s.fail(surface, op, err)
	}
	defer release()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(surface, op, err)
	}
	return res, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (domain.CacheEntry, bool, error) {
	const op = "cache get"
	if err := requireKey(op, "key", key); err != nil {
		return domain.CacheEntry{}, false, err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return domain.CacheEntry{}, false, s.fail("cache", op, err)
	}
	var (
		raw      []byte
		storedAt int64
		ttl      int64
	)
	err = s.db.QueryRowContext(ctx, `SELECT value, stored_at, ttl FROM cache WHERE key = ?`, key).Scan(&raw, &storedAt, &ttl)
	release()
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, s.fail("cache", op, err)
	}
	entry := domain.CacheEntry{Key: key, StoredAt: time.Unix(0, storedAt), TTL: time.Duration(ttl)}
	if entry.Expired(s.now()) {
		if _, err := s.exec(ctx, "cache", "cache purge key", `DELETE FROM cache WHERE key = ? AND stored_at = ?`, key, storedAt); err != nil {
			return domain.CacheEntry{}, false, err
		}
		return domain.CacheEntry{}, false, nil
	}
	value, err := s.codec.decode(raw)
	if err != nil {
		return domain.CacheEntry{}, false, s.fail("cache", op, err)
	}
	entry.Value = value
	return entry, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	const op = "cache put"
	if err := requireKey(op, "key", key); err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	_, err := s.exec(ctx, "cache", op,
		`INSERT INTO cache (key, value, stored_at, ttl) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at, ttl = excluded.ttl`,
		key, s.codec.encode(value), s.now().UnixNano(), int64(ttl))
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	const op = "cache delete"
	if err := requireKey(op, "key", key); err != nil {
		return err
	}
	_, err := s.exec(ctx, "cache", op, `DELETE FROM cache WHERE key = ?`, key)
	return err
}

func (s *SQLiteStore) Purge(ctx context.Context) (int, error) {
	res, err := s.exec(ctx, "cache", "cache purge",
		`DELETE FROM cache WHERE ttl > 0 AND stored_at + ttl <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.fail("cache", "cache purge", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) GetStatus(ctx context.Context, service string) (domain.AuthStatusRecord, bool, error) {
	const op = "auth get"
	if err := requireKey(op, "service", service); err != nil {
		return domain.AuthStatusRecord{}, false, err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return domain.AuthStatusRecord{}, false, s.fail("auth", op, err)
	}
	defer release()
	row := s.db.QueryRowContext(ctx,
		`SELECT service, authenticated, last_checked, metadata_json FROM auth_status WHERE service = ?`, service)
	record, err := scanAuth(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AuthStatusRecord{}, false, nil
	}
	if err != nil {
		return domain.AuthStatusRecord{}, false, s.fail("auth", op, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) SetStatus(ctx context.Context, service string, authenticated bool, metadata map[string]string) (domain.AuthStatusRecord, error) {
	const op = "auth set"
	if err := requireKey(op, "service", service); err != nil {
		return domain.AuthStatusRecord{}, err
	}
	record := domain.AuthStatusRecord{
		Service:       service,
		Authenticated: authenticated,
		LastChecked:   s.now().UTC(),
		Metadata:      metadata,
	}
	var metaJSON sql.NullString
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return domain.AuthStatusRecord{}, s.fail("auth", op, err)
		}
		metaJSON = sql.NullString{String: string(raw), Valid: true}
	}
	_, err := s.exec(ctx, "auth", op,
		`INSERT INTO auth_status (service, authenticated, last_checked, metadata_json) VALUES (?, ?, ?, ?)
		 ON CONFLICT(service) DO UPDATE SET authenticated = excluded.authenticated,
		 last_checked = excluded.last_checked, metadata_json = excluded.metadata_json`,
		service, authenticated, record.LastChecked.UnixNano(), metaJSON)
	if err != nil {
		return domain.AuthStatusRecord{}, err
	}
	return record, nil
}

func (s *SQLiteStore) ListStatus(ctx context.Context) ([]domain.AuthStatusRecord, error) {
	const op = "auth list"
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, s.fail("auth", op, err)
	}
	defer release()
	rows, err := s.db.QueryContext(ctx,
		`SELECT service, authenticated, last_checked, metadata_json FROM auth_status ORDER BY service`)
	if err != nil {
		return nil, s.fail("auth", op, err)
	}
	defer rows.Close()
	var records []domain.AuthStatusRecord
	for rows.Next() {
		record, err := scanAuth(rows)
		if err != nil {
			return nil, s.fail("auth", op, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("auth", op, err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAuth(row scanner) (domain.AuthStatusRecord, error) {
	var (
		record      domain.AuthStatusRecord
		lastChecked int64
		metaJSON    sql.NullString
	)
	if err := row.Scan(&record.Service, &record.Authenticated, &lastChecked, &metaJSON); err != nil {
		return domain.AuthStatusRecord{}, err
	}
	record.LastChecked = time.Unix(0, lastChecked).UTC()
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &record.Metadata); err != nil {
			return domain.AuthStatusRecord{}, fmt.Errorf("decode auth metadata: %w", err)
		}
	}
	return record, nil
}

func (s *SQLiteStore) CreateTask(ctx context.Context, payload string) (domain.TaskRecord, error) {
	const op = "task create"
	id, err := uuid.NewV7()
	if err != nil {
		return domain.TaskRecord{}, s.fail("tasks", op, err)
	}
	now := s.now().UTC()
	task := domain.TaskRecord{
		ID:        id.String(),
		Status:    domain.TaskPending,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := s.exec(ctx, "tasks", op,
		`INSERT INTO tasks (id, status, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		task.ID, task.Status, task.Payload, now.UnixNano(), now.UnixNano())
	if err != nil {
		return domain.TaskRecord{}, err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return domain.TaskRecord{}, s.fail("tasks", op, err)
	}
	task.Seq = uint64(seq)
	return task, nil
}

const taskColumns = `seq, id, status, payload, created_at, updated_at`

func scanTask(row scanner) (domain.TaskRecord, error) {
	var (
		task               domain.TaskRecord
		seq                int64
		createdAt, updated int64
	)
	if err := row.Scan(&seq, &task.ID, &task.Status, &task.Payload, &createdAt, &updated); err != nil {
		return domain.TaskRecord{}, err
	}
	task.Seq = uint64(seq)
	task.CreatedAt = time.Unix(0, createdAt).UTC()
	task.UpdatedAt = time.Unix(0, updated).UTC()
	return task, nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (domain.TaskRecord, error) {
	const op = "task get"
	if err := requireKey(op, "id", id); err != nil {
		return domain.TaskRecord{}, err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return domain.TaskRecord{}, s.fail("tasks", op, err)
	}
	defer release()
	task, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TaskRecord{}, notFound(op, "task", id)
	}
	if err != nil {
		return domain.TaskRecord{}, s.fail("tasks", op, err)
	}
	return task, nil
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.TaskRecord, error) {
	const op = "task update"
	if err := requireKey(op, "id", id); err != nil {
		return domain.TaskRecord{}, err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return domain.TaskRecord{}, s.fail("tasks", op, err)
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.TaskRecord{}, s.fail("tasks", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TaskRecord{}, notFound(op, "task", id)
	}
	if err != nil {
		return domain.TaskRecord{}, s.fail("tasks", op, err)
	}
	applyPatch(&task, patch)
	task.UpdatedAt = s.now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET status = ?, payload = ?, updated_at = ? WHERE id = ?`,
		task.Status, task.Payload, task.UpdatedAt.UnixNano(), id); err != nil {
		return domain.TaskRecord{}, s.fail("tasks", op, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.TaskRecord{}, s.fail("tasks", op, err)
	}
	return task, nil
}

// ListTasks yields tasks in creation order using keyset pagination on seq.
func (s *SQLiteStore) ListTasks(ctx context.Context) iter.Seq2[domain.TaskRecord, error] {
	return func(yield func(domain.TaskRecord, error) bool) {
		var after int64
		for {
			page, err := s.taskPage(ctx, after)
			if err != nil {
				yield(domain.TaskRecord{}, s.fail("tasks", "task list", err))
				return
			}
			for _, task := range page {
				if !yield(task, nil) {
					return
				}
				after = int64(task.Seq)
			}
			if len(page) < s.pageSize {
				return
			}
		}
	}
}

func (s *SQLiteStore) taskPage(ctx context.Context, after int64) ([]domain.TaskRecord, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE seq > ? ORDER BY seq LIMIT ?`, after, s.pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	page := make([]domain.TaskRecord, 0, s.pageSize)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		page = append(page, task)
	}
	return page, rows.Err()
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	const op = "task delete"
	if err := requireKey(op, "id", id); err != nil {
		return err
	}
	_, err := s.exec(ctx, "tasks", op, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) ClearTasks(ctx context.Context) (int, error) {
	res, err := s.exec(ctx, "tasks", "task clear", `DELETE FROM tasks`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.fail("tasks", "task clear", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) SetContext(ctx context.Context, scope domain.ContextScope, key, value string) error {
	const op = "context set"
	scope = normalizeScope(scope)
	if err := validScope(op, scope); err != nil {
		return err
	}
	if err := requireKey(op, "key", key); err != nil {
		return err
	}
	_, err := s.exec(ctx, "context", op,
		`INSERT INTO context (scope, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value`,
		string(scope), key, value)
	return err
}

func (s *SQLiteStore) GetContext(ctx context.Context, scope domain.ContextScope, key string) (string, bool, error) {
	const op = "context get"
	scope = normalizeScope(scope)
	if err := validScope(op, scope); err != nil {
		return "", false, err
	}
	if err := requireKey(op, "key", key); err != nil {
		return "", false, err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return "", false, s.fail("context", op, err)
	}
	defer release()
	var value string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM context WHERE scope = ? AND key = ?`, string(scope), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.fail("context", op, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) ListContextKeys(ctx context.Context, scope domain.ContextScope) ([]string, error) {
	const op = "context list"
	scope = normalizeScope(scope)
	if err := validScope(op, scope); err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, s.fail("context", op, err)
	}
	defer release()
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM context WHERE scope = ? ORDER BY key`, string(scope))
	if err != nil {
		return nil, s.fail("context", op, err)
	}
	defer rows.Close()
	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, s.fail("context", op, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("context", op, err)
	}
	return keys, nil
}

func (s *SQLiteStore) DeleteContext(ctx context.Context, scope domain.ContextScope, key string) error {
	const op = "context delete"
	scope = normalizeScope(scope)
	if err := validScope(op, scope); err != nil {
		return err
	}
	if err := requireKey(op, "key", key); err != nil {
		return err
	}
	_, err := s.exec(ctx, "context", op, `DELETE FROM context WHERE scope = ? AND key = ?`, string(scope), key)
	return err
}

func (s *SQLiteStore) ClearContextScope(ctx context.Context, scope domain.ContextScope) (int, error) {
	const op = "context clear"
	scope = normalizeScope(scope)
	if err := validScope(op, scope); err != nil {
		return 0, err
	}
	res, err := s.exec(ctx, "context", op, `DELETE FROM context WHERE scope = ?`, string(scope))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.fail("context", op, err)
	}
	return int(n), nil
}

var _ domain.StateStore = (*SQLiteStore)(nil)

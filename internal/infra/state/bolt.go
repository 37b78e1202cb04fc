package state

import (
	"context"
	"encoding/binary"
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
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"clihub/internal/domain"
)

// BoltStore implements domain.StateStore on a single bbolt file.
type BoltStore struct {
	base
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
}

func OpenBolt(path string, opts Options) (*BoltStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("state path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, domain.Wrap(domain.CodeStoreUnavailable, "open state store", fmt.Errorf("ensure state dir: %w", err))
	}
	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, domain.Wrap(domain.CodeStoreUnavailable, "open state store", fmt.Errorf("open state db: %w", err))
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, domain.Wrap(domain.CodeStoreUnavailable, "open state store", err)
	}
	store := &BoltStore{base: newBase(opts, DriverBolt), db: db, path: trimmed}
	store.logger.Info("state store opened", zap.String("path", trimmed))
	return store, nil
}

func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *BoltStore) Ping(ctx context.Context) error {
	return s.fail("meta", "ping", s.view(ctx, func(tx *bolt.Tx) error {
		meta, err := bucket(tx, metaBucketName)
		if err != nil {
			return err
		}
		if readSchemaVersion(meta) != schemaVersion {
			return fmt.Errorf("schema version mismatch")
		}
		return nil
	}))
}

func (s *BoltStore) view(ctx context.Context, fn func(*bolt.Tx) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *BoltStore) update(ctx context.Context, fn func(*bolt.Tx) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(fn)
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return domain.E(domain.CodeCanceled, "", "", err)
	}
	return nil
}

// Cache rows are [storedAt unix nanos][ttl nanos][framed value].

func encodeCacheRow(storedAt time.Time, ttl time.Duration, framed []byte) []byte {
	row := make([]byte, 16, 16+len(framed))
	binary.BigEndian.PutUint64(row[0:8], uint64(storedAt.UnixNano()))
	binary.BigEndian.PutUint64(row[8:16], uint64(ttl))
	return append(row, framed...)
}

func decodeCacheRow(row []byte) (time.Time, time.Duration, []byte, error) {
	if len(row) < 17 {
		return time.Time{}, 0, nil, errors.New("corrupt cache row")
	}
	storedAt := time.Unix(0, int64(binary.BigEndian.Uint64(row[0:8])))
	ttl := time.Duration(binary.BigEndian.Uint64(row[8:16]))
	return storedAt, ttl, row[16:], nil
}

func (s *BoltStore) Get(ctx context.Context, key string) (domain.CacheEntry, bool, error) {
	const op = "cache get"
	if err := requireKey(op, "key", key); err != nil {
		return domain.CacheEntry{}, false, err
	}
	var (
		entry domain.CacheEntry
		found bool
		raw   []byte
	)
	err := s.view(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, cacheBucketName)
		if err != nil {
			return err
		}
		row := b.Get([]byte(key))
		if row == nil {
			return nil
		}
		storedAt, ttl, framed, err := decodeCacheRow(row)
		if err != nil {
			return err
		}
		entry = domain.CacheEntry{Key: key, StoredAt: storedAt, TTL: ttl}
		raw = append([]byte(nil), framed...)
		found = true
		return nil
	})
	if err != nil {
		return domain.CacheEntry{}, false, s.fail("cache", op, err)
	}
	if !found {
		return domain.CacheEntry{}, false, nil
	}
	if entry.Expired(s.now()) {
		if err := s.purgeExpiredKey(ctx, key, entry.StoredAt); err != nil {
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

// purgeExpiredKey deletes key only if it still holds the row stored at
// storedAt, leaving a concurrent rewrite intact.
func (s *BoltStore) purgeExpiredKey(ctx context.Context, key string, storedAt time.Time) error {
	err := s.update(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, cacheBucketName)
		if err != nil {
			return err
		}
		row := b.Get([]byte(key))
		if row == nil {
			return nil
		}
		current, _, _, err := decodeCacheRow(row)
		if err != nil || !current.Equal(storedAt) {
			return nil
		}
		return b.Delete([]byte(key))
	})
	return s.fail("cache", "cache purge key", err)
}

func (s *BoltStore) Put(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	const op = "cache put"
	if err := requireKey(op, "key", key); err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	row := encodeCacheRow(s.now(), ttl, s.codec.encode(value))
	return s.fail("cache", op, s.update(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, cacheBucketName)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), row)
	}))
}

func (s *BoltStore) Delete(ctx context.Context, key string) error {
	const op = "cache delete"
	if err := requireKey(op, "key", key); err != nil {
		return err
	}
	return s.fail("cache", op, s.update(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, cacheBucketName)
		if err != nil {
			return err
		}
		return b.Delete([]byte(key))
	}))
}

func (s *BoltStore) Purge(ctx context.Context) (int, error) {
	now := s.now()
	removed := 0
	err := s.update(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, cacheBucketName)
		if err != nil {
			return err
		}
		var expired [][]byte
		if err := b.ForEach(func(key, row []byte) error {
			storedAt, ttl, _, err := decodeCacheRow(row)
			if err != nil || (domain.CacheEntry{StoredAt: storedAt, TTL: ttl}).Expired(now) {
				expired = append(expired, append([]byte(nil), key...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, key := range expired {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		return 0, s.fail("cache", "cache purge", err)
	}
	return removed, nil
}

func (s *BoltStore) GetStatus(ctx context.Context, service string) (domain.AuthStatusRecord, bool, error) {
	const op = "auth get"
	if err := requireKey(op, "service", service); err != nil {
		return domain.AuthStatusRecord{}, false, err
	}
	var (
		record domain.AuthStatusRecord
		found  bool
	)
	err := s.view(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, authBucketName)
		if err != nil {
			return err
		}
		raw := b.Get([]byte(service))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &record)
	})
	if err != nil {
		return domain.AuthStatusRecord{}, false, s.fail("auth", op, err)
	}
	return record, found, nil
}

func (s *BoltStore) SetStatus(ctx context.Context, service string, authenticated bool, metadata map[string]string) (domain.AuthStatusRecord, error) {
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
	raw, err := json.Marshal(record)
	if err != nil {
		return domain.AuthStatusRecord{}, s.fail("auth", op, err)
	}
	err = s.update(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, authBucketName)
		if err != nil {
			return err
		}
		return b.Put([]byte(service), raw)
	})
	if err != nil {
		return domain.AuthStatusRecord{}, s.fail("auth", op, err)
	}
	return record, nil
}

func (s *BoltStore) ListStatus(ctx context.Context) ([]domain.AuthStatusRecord, error) {
	var records []domain.AuthStatusRecord
	err := s.view(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, authBucketName)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, raw []byte) error {
			var record domain.AuthStatusRecord
			if err := json.Unmarshal(raw, &record); err != nil {
				return err
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, s.fail("auth", "auth list", err)
	}
	return records, nil
}

func (s *BoltStore) CreateTask(ctx context.Context, payload string) (domain.TaskRecord, error) {
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
	err = s.update(ctx, func(tx *bolt.Tx) error {
		tasks, err := bucket(tx, tasksBucketName)
		if err != nil {
			return err
		}
		order, err := bucket(tx, taskOrderBucketName)
		if err != nil {
			return err
		}
		seq, err := order.NextSequence()
		if err != nil {
			return err
		}
		task.Seq = seq
		raw, err := encodeTask(task)
		if err != nil {
			return err
		}
		if err := tasks.Put([]byte(task.ID), raw); err != nil {
			return err
		}
		return order.Put(encodeUint64(seq), []byte(task.ID))
	})
	if err != nil {
		return domain.TaskRecord{}, s.fail("tasks", op, err)
	}
	return task, nil
}

func (s *BoltStore) GetTask(ctx context.Context, id string) (domain.TaskRecord, error) {
	const op = "task get"
	if err := requireKey(op, "id", id); err != nil {
		return domain.TaskRecord{}, err
	}
	var task domain.TaskRecord
	err := s.view(ctx, func(tx *bolt.Tx) error {
		tasks, err := bucket(tx, tasksBucketName)
		if err != nil {
			return err
		}
		raw := tasks.Get([]byte(id))
		if raw == nil {
			return notFound(op, "task", id)
		}
		task, err = decodeTask(raw)
		return err
	})
	if err != nil {
		return domain.TaskRecord{}, s.fail("tasks", op, err)
	}
	return task, nil
}

func (s *BoltStore) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.TaskRecord, error) {
	const op = "task update"
	if err := requireKey(op, "id", id); err != nil {
		return domain.TaskRecord{}, err
	}
	var task domain.TaskRecord
	err := s.update(ctx, func(tx *bolt.Tx) error {
		tasks, err := bucket(tx, tasksBucketName)
		if err != nil {
			return err
		}
		raw := tasks.Get([]byte(id))
		if raw == nil {
			return notFound(op, "task", id)
		}
		task, err = decodeTask(raw)
		if err != nil {
			return err
		}
		applyPatch(&task, patch)
		task.UpdatedAt = s.now().UTC()
		encoded, err := encodeTask(task)
		if err != nil {
			return err
		}
		return tasks.Put([]byte(id), encoded)
	})
	if err != nil {
		return domain.TaskRecord{}, s.fail("tasks", op, err)
	}
	return task, nil
}

// ListTasks yields tasks in creation order. Each page is read in its own
// transaction, so long listings do not pin the database.
func (s *BoltStore) ListTasks(ctx context.Context) iter.Seq2[domain.TaskRecord, error] {
	return func(yield func(domain.TaskRecord, error) bool) {
		var after uint64
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
				after = task.Seq
			}
			if len(page) < s.pageSize {
				return
			}
		}
	}
}

func (s *BoltStore) taskPage(ctx context.Context, after uint64) ([]domain.TaskRecord, error) {
	page := make([]domain.TaskRecord, 0, s.pageSize)
	err := s.view(ctx, func(tx *bolt.Tx) error {
		tasks, err := bucket(tx, tasksBucketName)
		if err != nil {
			return err
		}
		order, err := bucket(tx, taskOrderBucketName)
		if err != nil {
			return err
		}
		cursor := order.Cursor()
		key, id := cursor.Seek(encodeUint64(after + 1))
		for ; key != nil && len(page) < s.pageSize; key, id = cursor.Next() {
			raw := tasks.Get(id)
			if raw == nil {
				continue
			}
			task, err := decodeTask(raw)
			if err != nil {
				return err
			}
			page = append(page, task)
		}
		return nil
	})
	return page, err
}

func (s *BoltStore) DeleteTask(ctx context.Context, id string) error {
	const op = "task delete"
	if err := requireKey(op, "id", id); err != nil {
		return err
	}
	return s.fail("tasks", op, s.update(ctx, func(tx *bolt.Tx) error {
		tasks, err := bucket(tx, tasksBucketName)
		if err != nil {
			return err
		}
		order, err := bucket(tx, taskOrderBucketName)
		if err != nil {
			return err
		}
		raw := tasks.Get([]byte(id))
		if raw == nil {
			return nil
		}
		task, err := decodeTask(raw)
		if err != nil {
			return err
		}
		if err := order.Delete(encodeUint64(task.Seq)); err != nil {
			return err
		}
		return tasks.Delete([]byte(id))
	}))
}

func (s *BoltStore) ClearTasks(ctx context.Context) (int, error) {
	removed := 0
	err := s.update(ctx, func(tx *bolt.Tx) error {
		root, err := bucket(tx)
		if err != nil {
			return err
		}
		tasks, err := bucket(tx, tasksBucketName)
		if err != nil {
			return err
		}
		removed = tasks.Stats().KeyN
		for _, name := range []string{tasksBucketName, taskOrderBucketName} {
			if err := root.DeleteBucket([]byte(name)); err != nil {
				return err
			}
			if _, err := root.CreateBucket([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, s.fail("tasks", "task clear", err)
	}
	return removed, nil
}

type taskRow struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Status    string    `json:"status"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func encodeTask(task domain.TaskRecord) ([]byte, error) {
	return json.Marshal(taskRow{
		ID:        task.ID,
		Seq:       task.Seq,
		Status:    task.Status,
		Payload:   task.Payload,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	})
}

func decodeTask(raw []byte) (domain.TaskRecord, error) {
	var row taskRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return domain.TaskRecord{}, fmt.Errorf("decode task: %w", err)
	}
	return domain.TaskRecord{
		ID:        row.ID,
		Seq:       row.Seq,
		Status:    row.Status,
		Payload:   row.Payload,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *BoltStore) SetContext(ctx context.Context, scope domain.ContextScope, key, value string) error {
	const op = "context set"
	scope = normalizeScope(scope)
	if err := validScope(op, scope); err != nil {
		return err
	}
	if err := requireKey(op, "key", key); err != nil {
		return err
	}
	return s.fail("context", op, s.update(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, contextBucketName, string(scope))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	}))
}

func (s *BoltStore) GetContext(ctx context.Context, scope domain.ContextScope, key string) (string, bool, error) {
	const op = "context get"
	scope = normalizeScope(scope)
	if err := validScope(op, scope); err != nil {
		return "", false, err
	}
	if err := requireKey(op, "key", key); err != nil {
		return "", false, err
	}
	var (
		value string
		found bool
	)
	err := s.view(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, contextBucketName, string(scope))
		if err != nil {
			return err
		}
		raw := b.Get([]byte(key))
		if raw != nil {
			value, found = string(raw), true
		}
		return nil
	})
	if err != nil {
		return "", false, s.fail("context", op, err)
	}
	return value, found, nil
}

func (s *BoltStore) ListContextKeys(ctx context.Context, scope domain.ContextScope) ([]string, error) {
	const op = "context list"
	scope = normalizeScope(scope)
	if err := validScope(op, scope); err != nil {
		return nil, err
	}
	keys := []string{}
	err := s.view(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, contextBucketName, string(scope))
		if err != nil {
			return err
		}
		return b.ForEach(func(key, _ []byte) error {
			keys = append(keys, string(key))
			return nil
		})
	})
	if err != nil {
		return nil, s.fail("context", op, err)
	}
	return keys, nil
}

func (s *BoltStore) DeleteContext(ctx context.Context, scope domain.ContextScope, key string) error {
	const op = "context delete"
	scope = normalizeScope(scope)
	if err := validScope(op, scope); err != nil {
		return err
	}
	if err := requireKey(op, "key", key); err != nil {
		return err
	}
	return s.fail("context", op, s.update(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, contextBucketName, string(scope))
		if err != nil {
			return err
		}
		return b.Delete([]byte(key))
	}))
}

func (s *BoltStore) ClearContextScope(ctx context.Context, scope domain.ContextScope) (int, error) {
	const op = "context clear"
	scope = normalizeScope(scope)
	if err := validScope(op, scope); err != nil {
		return 0, err
	}
	removed := 0
	err := s.update(ctx, func(tx *bolt.Tx) error {
		contexts, err := bucket(tx, contextBucketName)
		if err != nil {
			return err
		}
		if b := contexts.Bucket([]byte(scope)); b != nil {
			removed = b.Stats().KeyN
			if err := contexts.DeleteBucket([]byte(scope)); err != nil {
				return err
			}
		}
		_, err = contexts.CreateBucket([]byte(scope))
		return err
	})
	if err != nil {
		return 0, s.fail("context", op, err)
	}
	return removed, nil
}

var _ domain.StateStore = (*BoltStore)(nil)

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clihub/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storeFactory func(t *testing.T, opts Options) domain.StateStore

func drivers() map[string]storeFactory {
	return map[string]storeFactory{
		DriverBolt: func(t *testing.T, opts Options) domain.StateStore {
			opts.Driver = DriverBolt
			opts.Path = filepath.Join(t.TempDir(), "state.db")
			store, err := Open(opts)
			require.NoError(t, err)
			return store
		},
		DriverSQLite: func(t *testing.T, opts Options) domain.StateStore {
			opts.Driver = DriverSQLite
			opts.Path = filepath.Join(t.TempDir(), "state.sqlite")
			store, err := Open(opts)
			require.NoError(t, err)
			return store
		},
	}
}

func forEachDriver(t *testing.T, fn func(t *testing.T, store domain.StateStore, clock *fakeClock)) {
	t.Helper()
	for name, factory := range drivers() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store := factory(t, Options{Now: clock.Now, PageSize: 2})
			t.Cleanup(func() { _ = store.Close() })
			fn(t, store, clock)
		})
	}
}

func TestCacheRoundTrip(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, clock *fakeClock) {
		ctx := context.Background()
		require.NoError(t, store.Put(ctx, "k1", json.RawMessage(`{"x":1}`), time.Minute))

		entry, ok, err := store.Get(ctx, "k1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"x":1}`, string(entry.Value))
		assert.Equal(t, time.Minute, entry.TTL)
		assert.True(t, entry.StoredAt.Equal(clock.Now()))

		_, ok, err = store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestCacheOverwriteReplacesValue(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		ctx := context.Background()
		require.NoError(t, store.Put(ctx, "k", json.RawMessage(`1`), 0))
		require.NoError(t, store.Put(ctx, "k", json.RawMessage(`2`), 0))

		entry, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "2", string(entry.Value))
	})
}

func TestCacheExpiredEntryIsPurgedOnRead(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, clock *fakeClock) {
		ctx := context.Background()
		require.NoError(t, store.Put(ctx, "short", json.RawMessage(`"v"`), time.Second))

		clock.Advance(2 * time.Second)
		_, ok, err := store.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)

		removed, err := store.Purge(ctx)
		require.NoError(t, err)
		assert.Zero(t, removed, "expired entry should already be gone")
	})
}

func TestCacheEntryExpiresAtExactTTL(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, clock *fakeClock) {
		ctx := context.Background()
		require.NoError(t, store.Put(ctx, "edge", json.RawMessage(`"v"`), time.Second))
		require.NoError(t, store.Put(ctx, "swept", json.RawMessage(`"v"`), time.Second))

		clock.Advance(time.Second - time.Nanosecond)
		_, ok, err := store.Get(ctx, "edge")
		require.NoError(t, err)
		assert.True(t, ok)

		clock.Advance(time.Nanosecond)
		_, ok, err = store.Get(ctx, "edge")
		require.NoError(t, err)
		assert.False(t, ok)

		removed, err := store.Purge(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
	})
}

func TestCacheZeroTTLNeverExpires(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, clock *fakeClock) {
		ctx := context.Background()
		require.NoError(t, store.Put(ctx, "forever", json.RawMessage(`true`), 0))
		clock.Advance(365 * 24 * time.Hour)

		_, ok, err := store.Get(ctx, "forever")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestCachePurgeRemovesOnlyExpired(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, clock *fakeClock) {
		ctx := context.Background()
		require.NoError(t, store.Put(ctx, "a", json.RawMessage(`1`), time.Second))
		require.NoError(t, store.Put(ctx, "b", json.RawMessage(`2`), time.Hour))
		require.NoError(t, store.Put(ctx, "c", json.RawMessage(`3`), 0))
		clock.Advance(time.Minute)

		removed, err := store.Purge(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		_, ok, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestCacheLargeValueRoundTrip(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		ctx := context.Background()
		large := `"` + strings.Repeat("abcdefgh", 4096) + `"`
		require.NoError(t, store.Put(ctx, "big", json.RawMessage(large), 0))

		entry, ok, err := store.Get(ctx, "big")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, large, string(entry.Value))
	})
}

func TestCacheDeleteIsIdempotent(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		ctx := context.Background()
		require.NoError(t, store.Put(ctx, "k", json.RawMessage(`1`), 0))
		require.NoError(t, store.Delete(ctx, "k"))
		require.NoError(t, store.Delete(ctx, "k"))

		_, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestCacheRejectsEmptyKey(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		err := store.Put(context.Background(), " ", json.RawMessage(`1`), 0)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestAuthStatusMemo(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, clock *fakeClock) {
		ctx := context.Background()
		_, ok, err := store.GetStatus(ctx, "github")
		require.NoError(t, err)
		assert.False(t, ok)

		record, err := store.SetStatus(ctx, "github", true, map[string]string{"user": "octo"})
		require.NoError(t, err)
		assert.True(t, record.LastChecked.Equal(clock.Now()))

		clock.Advance(time.Minute)
		_, err = store.SetStatus(ctx, "gitlab", false, nil)
		require.NoError(t, err)

		got, ok, err := store.GetStatus(ctx, "github")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, got.Authenticated)
		assert.Equal(t, "octo", got.Metadata["user"])

		all, err := store.ListStatus(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestTaskLifecycle(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, clock *fakeClock) {
		ctx := context.Background()
		task, err := store.CreateTask(ctx, "write tests")
		require.NoError(t, err)
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, domain.TaskPending, task.Status)

		clock.Advance(time.Second)
		status := domain.TaskInProgress
		updated, err := store.UpdateTask(ctx, task.ID, domain.TaskPatch{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, domain.TaskInProgress, updated.Status)
		assert.Equal(t, "write tests", updated.Payload)
		assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

		got, err := store.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskInProgress, got.Status)

		require.NoError(t, store.DeleteTask(ctx, task.ID))
		require.NoError(t, store.DeleteTask(ctx, task.ID))
		_, err = store.GetTask(ctx, task.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTaskUpdateUnknownIDIsNotFound(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		status := domain.TaskCompleted
		_, err := store.UpdateTask(context.Background(), "nonexistent-id", domain.TaskPatch{Status: &status})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
	})
}

func TestTaskListPreservesCreationOrderAcrossPages(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		ctx := context.Background()
		var want []string
		for i := range 5 {
			task, err := store.CreateTask(ctx, fmt.Sprintf("task-%d", i))
			require.NoError(t, err)
			want = append(want, task.ID)
		}
		require.NoError(t, store.DeleteTask(ctx, want[2]))
		want = append(want[:2], want[3:]...)

		var got []string
		for task, err := range store.ListTasks(ctx) {
			require.NoError(t, err)
			got = append(got, task.ID)
		}
		assert.Equal(t, want, got)
	})
}

func TestTaskListStopsEarly(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		ctx := context.Background()
		for i := range 4 {
			_, err := store.CreateTask(ctx, fmt.Sprintf("task-%d", i))
			require.NoError(t, err)
		}
		seen := 0
		for _, err := range store.ListTasks(ctx) {
			require.NoError(t, err)
			seen++
			if seen == 3 {
				break
			}
		}
		assert.Equal(t, 3, seen)
	})
}

func TestTaskClear(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		ctx := context.Background()
		for range 3 {
			_, err := store.CreateTask(ctx, "x")
			require.NoError(t, err)
		}
		removed, err := store.ClearTasks(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, removed)

		count := 0
		for _, err := range store.ListTasks(ctx) {
			require.NoError(t, err)
			count++
		}
		assert.Zero(t, count)

		_, err = store.CreateTask(ctx, "after clear")
		require.NoError(t, err)
	})
}

func TestContextScopes(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		ctx := context.Background()
		require.NoError(t, store.SetContext(ctx, "", "focus", "parser"))
		require.NoError(t, store.SetContext(ctx, domain.ScopeProject, "lang", "go"))
		require.NoError(t, store.SetContext(ctx, domain.ScopeProject, "build", "make"))

		value, ok, err := store.GetContext(ctx, domain.ScopeSession, "focus")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "parser", value)

		_, ok, err = store.GetContext(ctx, domain.ScopeGlobal, "focus")
		require.NoError(t, err)
		assert.False(t, ok)

		keys, err := store.ListContextKeys(ctx, domain.ScopeProject)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"build", "lang"}, keys)

		require.NoError(t, store.DeleteContext(ctx, domain.ScopeProject, "lang"))
		require.NoError(t, store.DeleteContext(ctx, domain.ScopeProject, "lang"))

		removed, err := store.ClearContextScope(ctx, domain.ScopeProject)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		keys, err = store.ListContextKeys(ctx, domain.ScopeProject)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestContextRejectsUnknownScope(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		err := store.SetContext(context.Background(), "team", "k", "v")
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		ctx := context.Background()
		require.NoError(t, store.Close())
		require.NoError(t, store.Close())

		_, _, err := store.Get(ctx, "k")
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.True(t, errors.Is(err, ErrStoreClosed))

		_, err = store.CreateTask(ctx, "x")
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

		for _, err := range store.ListTasks(ctx) {
			assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		}

		assert.ErrorIs(t, store.Ping(ctx), domain.ErrStoreUnavailable)
	})
}

func TestCanceledContextIsNotStoreFailure(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := store.Put(ctx, "k", json.RawMessage(`1`), 0)
		require.Error(t, err)
		code, ok := domain.CodeFrom(err)
		require.True(t, ok)
		assert.Equal(t, domain.CodeCanceled, code)
	})
}

func TestStoreReopenKeepsData(t *testing.T) {
	for _, driver := range []string{DriverBolt, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state-"+driver)
			store, err := Open(Options{Driver: driver, Path: path})
			require.NoError(t, err)
			task, err := store.CreateTask(context.Background(), "persist")
			require.NoError(t, err)
			require.NoError(t, store.Close())

			store, err = Open(Options{Driver: driver, Path: path})
			require.NoError(t, err)
			defer func() { require.NoError(t, store.Close()) }()
			require.NoError(t, store.Ping(context.Background()))

			got, err := store.GetTask(context.Background(), task.ID)
			require.NoError(t, err)
			assert.Equal(t, "persist", got.Payload)
		})
	}
}

func TestConcurrentCacheAccess(t *testing.T) {
	forEachDriver(t, func(t *testing.T, store domain.StateStore, _ *fakeClock) {
		ctx := context.Background()
		const workers, rounds = 8, 25
		errs := make(chan error, workers*rounds*2)
		var wg sync.WaitGroup
		for w := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range rounds {
					key := fmt.Sprintf("k%d", (w+i)%5)
					if err := store.Put(ctx, key, json.RawMessage(fmt.Sprintf("%d", i)), time.Hour); err != nil {
						errs <- err
					}
					if _, _, err := store.Get(ctx, key); err != nil {
						errs <- err
					}
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("concurrent cache access: %v", err)
		}
	})
}

func TestSQLiteUsesSingleConnection(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "state.sqlite"), Options{})
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()
	assert.Equal(t, 1, store.db.Stats().MaxOpenConnections)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Options{Driver: "redis", Path: filepath.Join(t.TempDir(), "x")})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestValueCodec(t *testing.T) {
	codec := newValueCodec(16)
	small := []byte(`{"a":1}`)
	framed := codec.encode(small)
	assert.Equal(t, encodingRaw, framed[0])
	decoded, err := codec.decode(framed)
	require.NoError(t, err)
	assert.Equal(t, small, decoded)

	large := []byte(strings.Repeat("x", 1024))
	framed = codec.encode(large)
	assert.Equal(t, encodingZstd, framed[0])
	assert.Less(t, len(framed), len(large))
	decoded, err = codec.decode(framed)
	require.NoError(t, err)
	assert.Equal(t, large, decoded)

	_, err = codec.decode([]byte{9, 1, 2})
	assert.Error(t, err)

	disabled := newValueCodec(-1)
	assert.Equal(t, encodingRaw, disabled.encode(large)[0])
}

func TestResolveDefaultPathUsesXDGStateHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "clihub", "state.db"), ResolveDefaultPath(DriverBolt))
	assert.Equal(t, filepath.Join(dir, "clihub", "state.sqlite"), ResolveDefaultPath(DriverSQLite))
}

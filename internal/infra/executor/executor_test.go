//go:build unix

package executor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clihub/internal/domain"
	"clihub/internal/infra/state"
	"clihub/internal/infra/telemetry"
)

type recordingMetrics struct {
	telemetry.NoopMetrics
	mu         sync.Mutex
	executions  []domain.ExecutionMetric
	lookups     []bool
	storeErrors []string
}

func (m *recordingMetrics) ObserveStoreError(surface string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeErrors = append(m.storeErrors, surface)
}

func (m *recordingMetrics) ObserveExecution(metric domain.ExecutionMetric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions = append(m.executions, metric)
}

func (m *recordingMetrics) ObserveCacheLookup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, hit)
}

func (m *recordingMetrics) outcomes() []domain.ExecutionOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ExecutionOutcome, 0, len(m.executions))
	for _, e := range m.executions {
		out = append(out, e.Outcome)
	}
	return out
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (domain.CacheEntry, bool, error) {
	return domain.CacheEntry{}, false, errors.New("disk on fire")
}

func (failingCache) Put(context.Context, string, json.RawMessage, time.Duration) error {
	return errors.New("disk on fire")
}

func (failingCache) Delete(context.Context, string) error { return nil }

func (failingCache) Purge(context.Context) (int, error) { return 0, nil }

// readOnlyCache misses on every read and rejects every write.
type readOnlyCache struct{ failingCache }

func (readOnlyCache) Get(context.Context, string) (domain.CacheEntry, bool, error) {
	return domain.CacheEntry{}, false, nil
}

func shell(script string) domain.ExecutionRequest {
	return domain.ExecutionRequest{Tool: "sh", Args: []string{"-c", script}}
}

func newFacade(t *testing.T, opts Options) *Facade {
	t.Helper()
	if opts.Settings.DefaultTimeout == 0 {
		opts.Settings.DefaultTimeout = 10 * time.Second
	}
	return New(opts)
}

func TestExecuteJSONFixture(t *testing.T) {
	facade := newFacade(t, Options{})
	req := shell(`printf '{"items":[1,2,3]}'`)
	req.Format = domain.FormatJSON

	result, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.True(t, result.Normalized)
	assert.Equal(t, domain.ValueData, result.Value.Kind)
	want := map[string]any{"items": []any{1.0, 2.0, 3.0}}
	if diff := cmp.Diff(want, result.Value.Data); diff != "" {
		t.Fatalf("unexpected value (-want +got):\n%s", diff)
	}
}

func TestExecuteLinesFixture(t *testing.T) {
	facade := newFacade(t, Options{})
	req := shell(`printf 'a\nb\nc\n'`)
	req.Format = domain.FormatLines

	result, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"a", "b", "c"}, result.Value.Data); diff != "" {
		t.Fatalf("unexpected value (-want +got):\n%s", diff)
	}
}

func TestExecuteSoftFailsNormalization(t *testing.T) {
	metrics := &recordingMetrics{}
	facade := newFacade(t, Options{Metrics: metrics})
	req := shell(`printf 'not json'`)
	req.Format = domain.FormatJSON

	result, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Normalized)
	assert.Equal(t, domain.ValueText, result.Value.Kind)
	assert.Equal(t, "not json", result.Value.Text)
	assert.NotEmpty(t, result.NormalizeError)
	assert.Equal(t, []domain.ExecutionOutcome{domain.OutcomeSuccess}, metrics.outcomes())
}

func TestExecuteNonZeroExitIsData(t *testing.T) {
	facade := newFacade(t, Options{})
	result, err := facade.Execute(context.Background(), shell(`echo oops >&2; exit 3`))
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.False(t, result.Success())
	assert.Equal(t, "oops\n", string(result.Stderr))
}

func TestExecuteRejectsInvalidRequests(t *testing.T) {
	cases := map[string]domain.ExecutionRequest{
		"empty tool":      {Tool: ""},
		"blank tool":      {Tool: "   "},
		"nul in tool":     {Tool: "ls\x00"},
		"nul in arg":      {Tool: "ls", Args: []string{"-l", "a\x00b"}},
		"nul in env":      {Tool: "ls", Env: map[string]string{"K": "v\x00"}},
		"bad env key":     {Tool: "ls", Env: map[string]string{"A=B": "v"}},
		"negative budget": {Tool: "ls", Timeout: -time.Second},
		"unknown format":  {Tool: "ls", Format: "xml"},
	}
	facade := newFacade(t, Options{})
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := facade.Execute(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestExecuteMissingBinaryIsSpawnFailed(t *testing.T) {
	metrics := &recordingMetrics{}
	facade := newFacade(t, Options{Metrics: metrics})

	start := time.Now()
	_, err := facade.Execute(context.Background(), domain.ExecutionRequest{Tool: "definitely-not-a-real-binary-xyz"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSpawnFailed)
	assert.ErrorIs(t, err, domain.ErrExecutableNotFound)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []domain.ExecutionOutcome{domain.OutcomeSpawnFailed}, metrics.outcomes())
}

func TestExecuteTimeoutReturnsPartialResult(t *testing.T) {
	facade := newFacade(t, Options{})
	req := shell(`echo started; sleep 30`)
	req.Timeout = 200 * time.Millisecond

	start := time.Now()
	result, err := facade.Execute(context.Background(), req)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Less(t, elapsed, 5*time.Second)
	assert.Equal(t, domain.TimeoutExitCode, result.ExitCode)
	assert.Equal(t, "started\n", string(result.Stdout))
}

func TestExecuteUsesDefaultTimeoutFromSettings(t *testing.T) {
	facade := newFacade(t, Options{})
	facade.UpdateSettings(Settings{DefaultTimeout: 150 * time.Millisecond})

	_, err := facade.Execute(context.Background(), shell(`sleep 30`))
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Equal(t, 150*time.Millisecond, facade.Settings().DefaultTimeout)
}

func TestExecuteTruncatesOutput(t *testing.T) {
	facade := newFacade(t, Options{Settings: Settings{MaxOutputBytes: 4}})
	result, err := facade.Execute(context.Background(), shell(`printf 'abcdefgh'`))
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Equal(t, "abcd", string(result.Stdout))
}

func TestExecuteEnvLayers(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FROM_FILE=file\nSHARED=file\n"), 0o644))

	facade := newFacade(t, Options{
		Settings: Settings{EnvFile: envFile},
		BaseEnv:  func() []string { return []string{"PATH=" + os.Getenv("PATH"), "SHARED=base"} },
	})
	req := shell(`printf '%s %s %s' "$FROM_FILE" "$SHARED" "$CALL"`)
	req.Env = map[string]string{"SHARED": "call", "CALL": "yes"}
	req.Dir = dir

	result, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "file call yes", string(result.Stdout))
}

func TestExecuteMissingEnvFileIsInvalidRequest(t *testing.T) {
	facade := newFacade(t, Options{Settings: Settings{EnvFile: filepath.Join(t.TempDir(), "missing.env")}})
	_, err := facade.Execute(context.Background(), shell(`true`))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func openCache(t *testing.T) domain.StateStore {
	t.Helper()
	store, err := state.Open(state.Options{Path: filepath.Join(t.TempDir(), "state.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestExecuteCachesSuccessfulRuns(t *testing.T) {
	counter := filepath.Join(t.TempDir(), "runs")
	metrics := &recordingMetrics{}
	facade := newFacade(t, Options{Cache: openCache(t), Metrics: metrics})

	req := shell(`echo run >> "` + counter + `"; printf 'a\nb\n'`)
	req.Format = domain.FormatLines
	req.CacheTTL = time.Minute

	first, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	if diff := cmp.Diff(first.Value, second.Value); diff != "" {
		t.Fatalf("cached value differs (-fresh +cached):\n%s", diff)
	}

	runs, err := os.ReadFile(counter)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(runs), "run"))
	assert.Equal(t, []bool{false, true}, metrics.lookups)
	assert.Equal(t, []domain.ExecutionOutcome{domain.OutcomeSuccess, domain.OutcomeCacheHit}, metrics.outcomes())
}

func TestExecuteDoesNotCacheFailures(t *testing.T) {
	counter := filepath.Join(t.TempDir(), "runs")
	facade := newFacade(t, Options{Cache: openCache(t)})

	req := shell(`echo run >> "` + counter + `"; exit 1`)
	req.CacheTTL = time.Minute
	for range 2 {
		result, err := facade.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, result.Cached)
	}
	runs, err := os.ReadFile(counter)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(runs), "run"))
}

func TestExecuteDefaultCacheTTL(t *testing.T) {
	facade := newFacade(t, Options{Cache: openCache(t), Settings: Settings{DefaultCacheTTL: time.Minute}})
	req := shell(`printf x`)
	req.CacheTTL = domain.UseDefaultCacheTTL

	_, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	result, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Cached)

	req.CacheTTL = 0
	result, err = facade.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Cached)
}

func TestExecuteCacheReadFailureIsStoreUnavailable(t *testing.T) {
	facade := newFacade(t, Options{Cache: failingCache{}})
	req := shell(`printf x`)
	req.CacheTTL = time.Minute

	_, err := facade.Execute(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestExecuteCacheWriteFailureIsCounted(t *testing.T) {
	metrics := &recordingMetrics{}
	facade := newFacade(t, Options{Cache: readOnlyCache{}, Metrics: metrics})
	req := shell(`printf x`)
	req.CacheTTL = time.Minute

	result, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "x", string(result.Stdout))
	assert.Equal(t, []string{cacheWriteSurface}, metrics.storeErrors)
}

func TestExecuteCacheKeyFollowsEnvironmentSettings(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GREETING=hello\n"), 0o600))

	facade := newFacade(t, Options{
		Cache:   openCache(t),
		BaseEnv: func() []string { return []string{"PATH=" + os.Getenv("PATH")} },
	})
	req := shell(`printf '%s' "${GREETING:-none}"`)
	req.CacheTTL = time.Minute

	first, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "none", string(first.Stdout))

	settings := facade.Settings()
	settings.EnvFile = envFile
	facade.UpdateSettings(settings)

	second, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.Equal(t, "hello", string(second.Stdout))

	settings.PathPrepend = []string{dir}
	facade.UpdateSettings(settings)
	third, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, third.Cached)

	again, err := facade.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, again.Cached)
}

func TestExecuteRunsConcurrently(t *testing.T) {
	facade := newFacade(t, Options{})
	start := time.Now()
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := facade.Execute(context.Background(), shell(`sleep 0.3`))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Less(t, time.Since(start), 1100*time.Millisecond)
}

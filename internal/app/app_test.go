package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"clihub/internal/domain"
	"clihub/internal/infra/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clihub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestOverrides_Apply(t *testing.T) {
	cfg := config.Default()
	jsonResponse := true
	Overrides{
		Profile:      "explore",
		Transport:    "http",
		HTTPAddr:     "127.0.0.1:0",
		HTTPToken:    "tok",
		JSONResponse: &jsonResponse,
		Isolation:    config.IsolationShared,
	}.Apply(&cfg)

	assert.Equal(t, "explore", cfg.Profile)
	assert.Equal(t, config.TransportStreamableHTTP, cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:0", cfg.Server.HTTP.Addr)
	assert.Equal(t, domain.DefaultHTTPPath, cfg.Server.HTTP.Path)
	assert.Equal(t, "tok", cfg.Server.HTTP.Token)
	assert.True(t, cfg.Server.HTTP.JSONResponse)
	assert.Equal(t, config.IsolationShared, cfg.Visibility.Isolation)

	before := config.Default()
	after := before
	Overrides{}.Apply(&after)
	assert.Equal(t, before, after)
}

func TestValidateConfig(t *testing.T) {
	path := writeConfig(t, "profile: review\n")
	summary, err := New(zap.NewNop()).ValidateConfig(context.Background(), ValidateConfig{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "review", summary.Config.Profile)
	assert.Contains(t, summary.Enabled, "git")
	assert.Positive(t, summary.Procedures)
	assert.Positive(t, summary.Groups)

	_, err = New(nil).ValidateConfig(context.Background(), ValidateConfig{ConfigPath: path, Overrides: Overrides{Profile: "nope"}})
	assert.ErrorIs(t, err, domain.ErrUnknownProfile)

	_, err = New(nil).ValidateConfig(context.Background(), ValidateConfig{Overrides: Overrides{Transport: "carrier-pigeon"}})
	assert.Error(t, err)
}

func TestInitializeApplication(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "state:\n  path: "+filepath.Join(dir, "state.db")+"\nexecution:\n  timeoutSeconds: 3\n")

	application, cleanup, err := InitializeApplication(context.Background(), ServeConfig{ConfigPath: path}, LoggingConfig{})
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, 3*time.Second, application.executor.Settings().DefaultTimeout)
	require.NotNil(t, application.watcher)
	require.NoError(t, application.store.Ping(context.Background()))
	report := application.health.Report(context.Background())
	assert.Equal(t, "ok", report.Status)
}

func TestInitializeApplication_UnknownProfile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "profile: bogus\nstate:\n  path: "+filepath.Join(dir, "state.db")+"\n")
	_, _, err := InitializeApplication(context.Background(), ServeConfig{ConfigPath: path}, LoggingConfig{})
	assert.ErrorIs(t, err, domain.ErrUnknownProfile)
}

func TestApplication_ApplyUpdate(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "state:\n  path: "+filepath.Join(dir, "state.db")+"\n")
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	application, cleanup, err := InitializeApplication(context.Background(), ServeConfig{ConfigPath: path, LogLevel: &level}, LoggingConfig{})
	require.NoError(t, err)
	defer cleanup()

	next := application.cfg
	next.Execution.Timeout = 45 * time.Second
	next.Execution.MaxOutputBytes = 1024
	next.Log.Level = "debug"
	applied, pending := config.Diff(application.cfg, next)
	application.applyUpdate(config.Update{Config: next, Revision: 2, Applied: applied, Pending: pending})

	settings := application.executor.Settings()
	assert.Equal(t, 45*time.Second, settings.DefaultTimeout)
	assert.Equal(t, int64(1024), settings.MaxOutputBytes)
	assert.Equal(t, zapcore.DebugLevel, level.Level())
}

func TestServe_HTTPStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "server:\n  transport: streamable-http\n  http:\n    addr: 127.0.0.1:0\nstate:\n  path: "+filepath.Join(dir, "state.db")+"\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(zap.NewNop()).Serve(ctx, ServeConfig{ConfigPath: path, DisableWatch: true})
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clihub/internal/domain"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clihub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader(zap.NewNop()).Load(context.Background(), "")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeTempConfig(t, `
server:
  name: hub
  transport: streamable-http
  http:
    addr: 0.0.0.0:9000
    path: /rpc
    token: s3cret
    jsonResponse: true
profile: explore
visibility:
  isolation: shared
execution:
  timeoutSeconds: 12.5
  maxOutputBytes: 65536
  envFile: .env
  ignoreFiles: false
  pathPrepend: ["/opt/bin", " "]
state:
  driver: SQLite
  path: /tmp/clihub.sqlite
cache:
  defaultTTLSeconds: 60
observability:
  metrics: true
  healthz: true
log:
  level: debug
`)
	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	want := Config{
		Server: ServerConfig{
			Name:      "hub",
			Transport: TransportStreamableHTTP,
			HTTP:      HTTPConfig{Addr: "0.0.0.0:9000", Path: "/rpc", Token: "s3cret", JSONResponse: true},
		},
		Profile:    "explore",
		Visibility: VisibilityConfig{Isolation: IsolationShared},
		Execution: ExecutionConfig{
			Timeout:        12500 * time.Millisecond,
			MaxOutputBytes: 65536,
			EnvFile:        ".env",
			PathPrepend:    []string{"/opt/bin"},
		},
		State: StateConfig{Driver: "sqlite", Path: "/tmp/clihub.sqlite"},
		Cache: CacheConfig{DefaultTTL: time.Minute},
		Observability: ObservabilityConfig{
			ListenAddress: domain.DefaultObservabilityListenAddress,
			Metrics:       true,
			Healthz:       true,
		},
		Log: LogConfig{Level: "debug"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("CLIHUB_TEST_TOKEN", "from-env")
	t.Setenv("CLIHUB_TEST_TIMEOUT", "7")
	path := writeTempConfig(t, `
server:
  http:
    token: "${CLIHUB_TEST_TOKEN}"
execution:
  timeoutSeconds: ${CLIHUB_TEST_TIMEOUT}
  envFile: ${CLIHUB_TEST_UNSET}
`)
	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Server.HTTP.Token)
	assert.Equal(t, 7*time.Second, cfg.Execution.Timeout)
	assert.Empty(t, cfg.Execution.EnvFile)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CLIHUB_LOG_LEVEL", "warn")
	t.Setenv("CLIHUB_PROFILE", "review")
	cfg, err := NewLoader(nil).Load(context.Background(), writeTempConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "review", cfg.Profile)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"transport": "server:\n  transport: grpc\n",
		"path":      "server:\n  http:\n    path: mcp\n",
		"isolation": "visibility:\n  isolation: global\n",
		"timeout":   "execution:\n  timeoutSeconds: -1\n",
		"maxOutput": "execution:\n  maxOutputBytes: -5\n",
		"driver":    "state:\n  driver: postgres\n",
		"ttl":       "cache:\n  defaultTTLSeconds: -1\n",
		"level":     "log:\n  level: loud\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader(nil).Load(context.Background(), writeTempConfig(t, doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := NewLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = NewLoader(nil).Load(context.Background(), writeTempConfig(t, "server: [unclosed"))
	require.Error(t, err)
}

func TestLoad_HTTPAlias(t *testing.T) {
	cfg, err := Parse("server:\n  transport: HTTP\n")
	require.NoError(t, err)
	assert.Equal(t, TransportStreamableHTTP, cfg.Server.Transport)
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clihub/internal/app"
)

func TestIsLocalhostAddr(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:8765": true,
		"localhost:80":   true,
		":8080":          true,
		"[::1]:9000":     true,
		"0.0.0.0:8080":   false,
		"10.1.2.3:80":    false,
		"example.com:80": false,
	}
	for addr, want := range cases {
		assert.Equal(t, want, isLocalhostAddr(addr), addr)
	}
}

func TestValidateHTTPOverrides(t *testing.T) {
	assert.NoError(t, validateHTTPOverrides(app.Overrides{}))
	assert.NoError(t, validateHTTPOverrides(app.Overrides{Transport: "streamable-http", HTTPAddr: "127.0.0.1:0"}))
	assert.Error(t, validateHTTPOverrides(app.Overrides{Transport: "grpc"}))
	assert.Error(t, validateHTTPOverrides(app.Overrides{HTTPAddr: "0.0.0.0:8080"}))
	assert.NoError(t, validateHTTPOverrides(app.Overrides{HTTPAddr: "0.0.0.0:8080", HTTPToken: "t"}))
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCommand()
	root.SetArgs(args)
	return root.Execute()
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "clihub.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("state:\n  path: "+filepath.Join(dir, "state.db")+"\n"), 0o644))

	require.NoError(t, runCLI(t, "--config", cfgPath, "validate"))
	require.NoError(t, runCLI(t, "--json", "profiles"))
	require.NoError(t, runCLI(t, "groups", "--profile", "review", "--members"))
	require.Error(t, runCLI(t, "groups", "--profile", "nope"))
	require.NoError(t, runCLI(t, "--config", cfgPath, "state", "tasks"))
	require.NoError(t, runCLI(t, "--config", cfgPath, "state", "cache-purge"))
	require.NoError(t, runCLI(t, "--config", cfgPath, "state", "context", "--scope", "global"))
	require.NoError(t, runCLI(t, "--config", cfgPath, "state", "auth"))

	err := runCLI(t, "--config", cfgPath, "state", "context", "missing")
	var exitErr exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.code)
}

package pathguard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clihub/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newGuard(t *testing.T, global string) *Guard {
	t.Helper()
	guard, err := New(Options{GlobalFile: global})
	require.NoError(t, err)
	return guard
}

func TestGuardMatchesNearestAndAncestorIgnoreFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, IgnoreFileName), "*.secret\n")
	writeFile(t, filepath.Join(root, "pkg", IgnoreFileName), "generated/\n")
	writeFile(t, filepath.Join(root, "pkg", "generated", "api.go"), "package api")
	writeFile(t, filepath.Join(root, "pkg", "keys.secret"), "x")
	writeFile(t, filepath.Join(root, "pkg", "main.go"), "package main")

	guard := newGuard(t, filepath.Join(root, "no-global"))

	assert.True(t, guard.Ignored(root, "pkg/keys.secret"))
	assert.True(t, guard.Ignored(root, "pkg/generated/api.go"))
	assert.True(t, guard.Ignored(root, "pkg/generated"))
	assert.False(t, guard.Ignored(root, "pkg/main.go"))
	assert.False(t, guard.Ignored(root, ""))
}

func TestGuardIgnoresGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "*.log\n")
	writeFile(t, filepath.Join(root, "app.log"), "x")

	guard := newGuard(t, filepath.Join(root, "no-global"))
	assert.False(t, guard.Ignored(root, "app.log"))
}

func TestGuardGlobalFile(t *testing.T) {
	root := t.TempDir()
	global := filepath.Join(root, "config", "agent", "ignore")
	writeFile(t, global, ".env\n")
	writeFile(t, filepath.Join(root, "work", ".env"), "TOKEN=1")

	guard := newGuard(t, global)
	assert.True(t, guard.Ignored(filepath.Join(root, "work"), ".env"))

	args := guard.IgnoreFileArgs(filepath.Join(root, "work"))
	assert.Equal(t, "--no-ignore", args[0])
	assert.Contains(t, args, "--ignore-file="+global)
}

func TestGuardCheckReturnsInvalidRequest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, IgnoreFileName), "private/\n")
	writeFile(t, filepath.Join(root, "private", "notes.md"), "x")

	guard := newGuard(t, filepath.Join(root, "no-global"))
	err := guard.Check(root, "private/notes.md")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.ErrorIs(t, err, domain.ErrPathIgnored)

	assert.NoError(t, guard.Check(root, "README.md"))
}

func TestGuardReloadsChangedIgnoreFile(t *testing.T) {
	root := t.TempDir()
	ignoreFile := filepath.Join(root, IgnoreFileName)
	writeFile(t, ignoreFile, "a.txt\n")
	guard := newGuard(t, filepath.Join(root, "no-global"))
	assert.True(t, guard.Ignored(root, "a.txt"))

	writeFile(t, ignoreFile, "b.txt\n")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(ignoreFile, future, future))
	assert.False(t, guard.Ignored(root, "a.txt"))
	assert.True(t, guard.Ignored(root, "b.txt"))

	require.NoError(t, os.Remove(ignoreFile))
	assert.False(t, guard.Ignored(root, "b.txt"))
}

func TestIgnoreFileArgsCollectsAncestors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, IgnoreFileName), "x\n")
	writeFile(t, filepath.Join(root, "a", "b", IgnoreFileName), "y\n")

	guard := newGuard(t, filepath.Join(root, "no-global"))
	args := guard.IgnoreFileArgs(filepath.Join(root, "a", "b"))

	realRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--no-ignore",
		"--ignore-file=" + filepath.Join(realRoot, "a", "b", IgnoreFileName),
		"--ignore-file=" + filepath.Join(realRoot, IgnoreFileName),
	}, args)
}

func TestNilGuardAllowsEverything(t *testing.T) {
	var guard *Guard
	assert.False(t, guard.Ignored("", "/etc/passwd"))
	assert.NoError(t, guard.Check("", "/etc/passwd"))
	assert.Equal(t, []string{"--no-ignore"}, guard.IgnoreFileArgs("/"))
}

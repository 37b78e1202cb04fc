package envutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePATHDeduplicates(t *testing.T) {
	sep := string(os.PathListSeparator)
	primary := strings.Join([]string{"/opt/bin", "/usr/bin"}, sep)
	fallback := strings.Join([]string{"/usr/bin", "/bin"}, sep)

	got := mergePATH(primary, fallback)
	assert.Equal(t, strings.Join([]string{"/opt/bin", "/usr/bin", "/bin"}, sep), got)
}

func TestLookupReturnsLast(t *testing.T) {
	env := []string{"PATH=/bin", "A=1", "PATH=/usr/bin"}
	assert.Equal(t, "/usr/bin", Lookup(env, "PATH"))
	assert.Equal(t, "", Lookup(env, "MISSING"))
}

func TestBuildLayersInOrder(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("GITHUB_HOST=example.com\nKUBECONFIG=/from/file\n"), 0o600))

	sep := string(os.PathListSeparator)
	env, err := Build(Layer{
		Base:        []string{"PATH=/usr/bin", "KUBECONFIG=/from/base", "HOME=/home/u"},
		DotenvFile:  dotenv,
		PathPrepend: []string{"/opt/tools"},
		Overrides:   map[string]string{"KUBECONFIG": "/from/call"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/opt/tools"+sep+"/usr/bin", Lookup(env, "PATH"))
	assert.Equal(t, "/from/call", Lookup(env, "KUBECONFIG"))
	assert.Equal(t, "example.com", Lookup(env, "GITHUB_HOST"))
	assert.Equal(t, "/home/u", Lookup(env, "HOME"))

	count := 0
	for _, entry := range env {
		if strings.HasPrefix(entry, "KUBECONFIG=") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestBuildMissingDotenv(t *testing.T) {
	_, err := Build(Layer{DotenvFile: filepath.Join(t.TempDir(), "absent.env")})
	require.Error(t, err)
}

func TestPatchPATHIfNeededNoopOffDarwin(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("login shell lookup runs on darwin")
	}
	env := []string{"PATH=/bin"}
	assert.Equal(t, env, PatchPATHIfNeeded(env))
}

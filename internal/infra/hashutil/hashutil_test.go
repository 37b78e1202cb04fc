package hashutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clihub/internal/domain"
)

func TestExecutionFingerprintStable(t *testing.T) {
	req := domain.ExecutionRequest{
		Tool: "git",
		Args: []string{"status", "--porcelain=v2"},
		Env:  map[string]string{"B": "2", "A": "1"},
	}
	first, err := ExecutionFingerprint(req, Environment{})
	require.NoError(t, err)
	assert.Len(t, first, 64)

	reordered := req
	reordered.Env = map[string]string{"A": "1", "B": "2"}
	reordered.Timeout = 5 * time.Second
	reordered.CacheTTL = time.Minute
	second, err := ExecutionFingerprint(reordered, Environment{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExecutionFingerprintDistinguishesArgs(t *testing.T) {
	a, err := ExecutionFingerprint(domain.ExecutionRequest{Tool: "echo", Args: []string{"a b"}}, Environment{})
	require.NoError(t, err)
	b, err := ExecutionFingerprint(domain.ExecutionRequest{Tool: "echo", Args: []string{"a", "b"}}, Environment{})
	require.NoError(t, err)
	c, err := ExecutionFingerprint(domain.ExecutionRequest{Tool: "echo", Args: []string{"a b"}, Stdin: []byte("x")}, Environment{})
	require.NoError(t, err)
	d, err := ExecutionFingerprint(domain.ExecutionRequest{Tool: "echo", Args: []string{"a b"}, Dir: "/tmp"}, Environment{})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestExecutionFingerprintNilAndEmptyArgsMatch(t *testing.T) {
	a, err := ExecutionFingerprint(domain.ExecutionRequest{Tool: "ls"}, Environment{})
	require.NoError(t, err)
	b, err := ExecutionFingerprint(domain.ExecutionRequest{Tool: "ls", Args: []string{}}, Environment{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExecutionKey(t *testing.T) {
	key := ExecutionKey(zap.NewNop(), domain.ExecutionRequest{Tool: "ls"}, Environment{})
	assert.Len(t, key, 64)
}

func TestExecutionFingerprintIncludesEnvironment(t *testing.T) {
	req := domain.ExecutionRequest{Tool: "git", Args: []string{"status"}}
	base, err := ExecutionFingerprint(req, Environment{})
	require.NoError(t, err)

	withFile, err := ExecutionFingerprint(req, Environment{EnvFile: "/etc/clihub/.env"})
	require.NoError(t, err)
	withPath, err := ExecutionFingerprint(req, Environment{PathPrepend: []string{"/opt/bin"}})
	require.NoError(t, err)
	otherPath, err := ExecutionFingerprint(req, Environment{PathPrepend: []string{"/usr/local/bin"}})
	require.NoError(t, err)

	assert.NotEqual(t, base, withFile)
	assert.NotEqual(t, base, withPath)
	assert.NotEqual(t, withPath, otherPath)
}

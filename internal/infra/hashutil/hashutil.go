package hashutil

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"clihub/internal/domain"
)

// fingerprintVersion is mixed into every key so a change to the encoding
// below invalidates old cache rows instead of colliding with them.
const fingerprintVersion = "clihub.exec.v2"

type envPair struct {
	Key   string `json:"k"`
	Value string `json:"v"`
}

// Environment holds the process-wide settings that shape a child's
// environment beyond the request's own overrides.
type Environment struct {
	EnvFile     string
	PathPrepend []string
}

type canonicalRequest struct {
	Version     string    `json:"version"`
	Tool        string    `json:"tool"`
	Args        []string  `json:"args"`
	Stdin       string    `json:"stdin,omitempty"`
	Dir         string    `json:"dir,omitempty"`
	Env         []envPair `json:"env,omitempty"`
	Format      string    `json:"format,omitempty"`
	EnvFile     string    `json:"env_file,omitempty"`
	PathPrepend []string  `json:"path_prepend,omitempty"`
}

// ExecutionFingerprint returns a stable BLAKE3-256 key for req run under
// env. Two requests share a key iff they would run the same command line
// with the same stdin, directory, environment and output format.
func ExecutionFingerprint(req domain.ExecutionRequest, env Environment) (string, error) {
	canonical := canonicalRequest{
		Version:     fingerprintVersion,
		Tool:        req.Tool,
		Args:        req.Args,
		Dir:         req.Dir,
		Format:      string(req.Format),
		EnvFile:     env.EnvFile,
		PathPrepend: env.PathPrepend,
	}
	if canonical.Args == nil {
		canonical.Args = []string{}
	}
	if len(req.Stdin) > 0 {
		sum := blake3.Sum256(req.Stdin)
		canonical.Stdin = hex.EncodeToString(sum[:])
	}
	if len(req.Env) > 0 {
		keys := make([]string, 0, len(req.Env))
		for key := range req.Env {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			canonical.Env = append(canonical.Env, envPair{Key: key, Value: req.Env[key]})
		}
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("encode fingerprint: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ExecutionKey is ExecutionFingerprint that logs and returns "" on failure,
// which callers treat as uncacheable.
func ExecutionKey(logger *zap.Logger, req domain.ExecutionRequest, env Environment) string {
	return hashWithLogger(logger, "execution", func() (string, error) {
		return ExecutionFingerprint(req, env)
	})
}

func hashWithLogger(logger *zap.Logger, label string, fn func() (string, error)) string {
	key, err := fn()
	if err != nil {
		if logger != nil {
			logger.Warn(fmt.Sprintf("%s hash failed", label), zap.Error(err))
		}
		return ""
	}
	return key
}

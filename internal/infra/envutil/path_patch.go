package envutil

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	skipPathPatchEnv = "CLIHUB_SKIP_PATH_PATCH"
	termEnv          = "TERM"
	shellEnv         = "SHELL"
)

type pathCacheEntry struct {
	path string
	err  error
}

var loginPathCache sync.Map

// PatchPATHIfNeeded appends the login shell PATH on macOS when the server
// was spawned by a desktop client that did not inherit a terminal
// environment.
func PatchPATHIfNeeded(env []string) []string {
	if runtime.GOOS != "darwin" {
		return env
	}
	if strings.TrimSpace(envVarValue(env, skipPathPatchEnv)) != "" {
		return env
	}
	if strings.TrimSpace(envVarValue(env, termEnv)) != "" {
		return env
	}
	shellPath := strings.TrimSpace(envVarValue(env, shellEnv))
	if shellPath == "" {
		shellPath = "/bin/zsh"
	}
	loginPath, err := loginShellPATH(shellPath)
	if err != nil || strings.TrimSpace(loginPath) == "" {
		return env
	}
	current := envVarValue(env, pathEnv)
	merged := mergePATH(loginPath, current)
	if merged == "" || merged == current {
		return env
	}
	return setEnvValue(env, pathEnv, merged)
}

func loginShellPATH(shellPath string) (string, error) {
	if cached, ok := loginPathCache.Load(shellPath); ok {
		entry := cached.(pathCacheEntry)
		return entry.path, entry.err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, shellPath, "-lc", "echo $PATH")
	cmd.Env = append(os.Environ(), "LANG=C", "LC_ALL=C")
	output, err := cmd.Output()
	path := strings.TrimSpace(string(output))
	loginPathCache.Store(shellPath, pathCacheEntry{path: path, err: err})
	return path, err
}

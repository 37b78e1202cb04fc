// Package pathguard blocks tool arguments that point at paths excluded by
// .agentignore files. Only .agentignore rules apply; .gitignore is ignored.
package pathguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gitignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"clihub/internal/domain"
)

const IgnoreFileName = ".agentignore"

type Options struct {
	// GlobalFile overrides the global ignore file. Empty resolves
	// $XDG_CONFIG_HOME/agent/ignore.
	GlobalFile string
	Logger     *zap.Logger
}

type compiled struct {
	matcher *gitignore.GitIgnore
	modTime time.Time
}

// Guard evaluates paths against the global ignore file and every
// .agentignore between the path and the filesystem root.
type Guard struct {
	logger     *zap.Logger
	globalFile string
	global     *gitignore.GitIgnore

	mu    sync.RWMutex
	cache map[string]compiled
}

func New(opts Options) (*Guard, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Guard{
		logger:     logger.Named("pathguard"),
		globalFile: strings.TrimSpace(opts.GlobalFile),
		cache:      make(map[string]compiled),
	}
	if g.globalFile == "" {
		g.globalFile = DefaultGlobalFile()
	}
	if g.globalFile != "" {
		matcher, err := gitignore.CompileIgnoreFile(g.globalFile)
		switch {
		case err == nil:
			g.global = matcher
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("parse global ignore file %s: %w", g.globalFile, err)
		}
	}
	return g, nil
}

// DefaultGlobalFile returns the global ignore file location, or "" when no
// config directory can be resolved.
func DefaultGlobalFile() string {
	dir := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "agent", "ignore")
}

// Ignored reports whether path is excluded. Relative paths resolve against
// base, or the process working directory when base is empty.
func (g *Guard) Ignored(base, path string) bool {
	if g == nil || strings.TrimSpace(path) == "" {
		return false
	}
	abs := resolve(base, path)
	isDir := false
	if info, err := os.Stat(abs); err == nil {
		isDir = info.IsDir()
	}

	if g.global != nil && g.global.MatchesPath(matchPath(strings.TrimPrefix(abs, string(filepath.Separator)), isDir)) {
		return true
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if matcher := g.load(dir); matcher != nil {
			rel, err := filepath.Rel(dir, abs)
			if err == nil && matcher.MatchesPath(matchPath(rel, isDir)) {
				return true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
	}
}

// Check returns an InvalidRequest error wrapping domain.ErrPathIgnored when
// path is excluded.
func (g *Guard) Check(base, path string) error {
	if !g.Ignored(base, path) {
		return nil
	}
	g.logger.Info("path blocked by ignore rules", zap.String("path", path))
	return &domain.Error{
		Code:    domain.CodeInvalidRequest,
		Op:      "path guard",
		Message: fmt.Sprintf("path is blocked by %s: %s", IgnoreFileName, path),
		Cause:   domain.ErrPathIgnored,
		Meta:    map[string]string{"path": path},
	}
}

// IgnoreFileArgs returns fd/rg flags that disable .gitignore handling and
// load every applicable ignore file for a search rooted at dir.
func (g *Guard) IgnoreFileArgs(dir string) []string {
	args := []string{"--no-ignore"}
	if g == nil {
		return args
	}
	if g.global != nil {
		args = append(args, "--ignore-file="+g.globalFile)
	}
	for current := resolve("", dir); ; current = filepath.Dir(current) {
		candidate := filepath.Join(current, IgnoreFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			args = append(args, "--ignore-file="+candidate)
		}
		if filepath.Dir(current) == current {
			return args
		}
	}
}

func (g *Guard) load(dir string) *gitignore.GitIgnore {
	file := filepath.Join(dir, IgnoreFileName)
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		g.mu.Lock()
		delete(g.cache, dir)
		g.mu.Unlock()
		return nil
	}

	g.mu.RLock()
	entry, ok := g.cache[dir]
	g.mu.RUnlock()
	if ok && entry.modTime.Equal(info.ModTime()) {
		return entry.matcher
	}

	matcher, err := gitignore.CompileIgnoreFile(file)
	if err != nil {
		g.logger.Warn("ignore file unreadable", zap.String("file", file), zap.Error(err))
		return nil
	}
	g.mu.Lock()
	g.cache[dir] = compiled{matcher: matcher, modTime: info.ModTime()}
	g.mu.Unlock()
	return matcher
}

func resolve(base, path string) string {
	if !filepath.IsAbs(path) {
		if base == "" {
			if wd, err := os.Getwd(); err == nil {
				base = wd
			}
		}
		path = filepath.Join(base, path)
	}
	abs := filepath.Clean(path)
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return abs
}

func matchPath(rel string, isDir bool) string {
	rel = filepath.ToSlash(rel)
	if isDir && !strings.HasSuffix(rel, "/") {
		rel += "/"
	}
	return rel
}

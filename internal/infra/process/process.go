package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"clihub/internal/domain"
	"clihub/internal/infra/telemetry"
)

const defaultWaitDelay = 500 * time.Millisecond

// Result is the raw outcome of one subprocess run.
type Result struct {
	ExitCode  int
	Stdout    []byte
	Stderr    []byte
	Duration  time.Duration
	Truncated bool
	TimedOut  bool
}

// Invocation is everything the runner needs to start a process. Env is the
// complete environment of the child.
type Invocation struct {
	Tool    string
	Args    []string
	Stdin   []byte
	Env     []string
	Dir     string
	Timeout time.Duration
}

type Options struct {
	Logger         *zap.Logger
	MaxOutputBytes int64
	WaitDelay      time.Duration
}

// Runner spawns subprocesses with independent output capture and a hard
// deadline that kills the whole process group.
type Runner struct {
	logger    *zap.Logger
	maxOutput atomic.Int64
	waitDelay time.Duration
	now       func() time.Time
}

func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	waitDelay := opts.WaitDelay
	if waitDelay <= 0 {
		waitDelay = defaultWaitDelay
	}
	r := &Runner{
		logger:    logger.Named("runner"),
		waitDelay: waitDelay,
		now:       time.Now,
	}
	r.maxOutput.Store(opts.MaxOutputBytes)
	return r
}

// SetMaxOutputBytes changes the capture limit for subsequent runs.
func (r *Runner) SetMaxOutputBytes(limit int64) {
	r.maxOutput.Store(limit)
}

// Run starts inv and waits for it. A non-zero exit is reported in Result,
// not as an error. When the deadline fires the returned error wraps
// domain.ErrTimeout and Result holds whatever output was captured.
func (r *Runner) Run(ctx context.Context, inv Invocation) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	path, err := lookPath(inv.Tool, envValue(inv.Env, "PATH"))
	if err != nil {
		return Result{}, domain.E(domain.CodeSpawnFailed, "spawn", "", classifyStartError(err)).WithMeta("tool", inv.Tool)
	}

	runCtx := ctx
	cancel := func() {}
	if inv.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
	}
	defer cancel()

	limit := r.maxOutput.Load()
	stdout := newCappedBuffer(limit)
	stderr := newCappedBuffer(limit)

	cmd := exec.CommandContext(runCtx, path, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if inv.Stdin != nil {
		cmd.Stdin = bytes.NewReader(inv.Stdin)
	}
	cmd.WaitDelay = r.waitDelay
	cleanup := setupProcessHandling(cmd)
	defer cleanup()

	started := r.now()
	if err := cmd.Start(); err != nil {
		return Result{}, domain.E(domain.CodeSpawnFailed, "spawn", "", classifyStartError(err)).WithMeta("tool", inv.Tool)
	}
	r.logger.Debug("process started",
		telemetry.EventField(telemetry.EventExecStart),
		telemetry.ToolField(inv.Tool),
		zap.Int("pid", cmd.Process.Pid),
		zap.Int("argCount", len(inv.Args)),
	)

	waitErr := cmd.Wait()
	result := Result{
		ExitCode:  exitCode(cmd, waitErr),
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Duration:  r.now().Sub(started),
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}

	switch {
	case ctx.Err() != nil:
		return result, domain.E(domain.CodeCanceled, "run", "execution canceled", ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.TimedOut = true
		result.ExitCode = domain.TimeoutExitCode
		return result, domain.E(domain.CodeTimeout, "run",
			fmt.Sprintf("%s exceeded %s", inv.Tool, inv.Timeout), nil).WithMeta("tool", inv.Tool)
	}

	if waitErr != nil && !isExitError(waitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
		return result, fmt.Errorf("wait %s: %w", inv.Tool, waitErr)
	}
	return result, nil
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// lookPath resolves tool against pathList rather than the server's own
// PATH, so per-call PATH overrides select the binary that actually runs.
func lookPath(tool, pathList string) (string, error) {
	if strings.ContainsRune(tool, os.PathSeparator) {
		return exec.LookPath(tool)
	}
	if pathList == "" {
		return exec.LookPath(tool)
	}
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			continue
		}
		candidate, err := exec.LookPath(filepath.Join(dir, tool))
		if err == nil {
			return candidate, nil
		}
		if errors.Is(err, os.ErrPermission) {
			return "", &exec.Error{Name: tool, Err: err}
		}
	}
	return "", &exec.Error{Name: tool, Err: exec.ErrNotFound}
}

func envValue(env []string, key string) string {
	prefix := key + "="
	value := ""
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			value = strings.TrimPrefix(entry, prefix)
		}
	}
	return value
}

func classifyStartError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrExecutableNotFound, err.Error())
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, err.Error())
	}
	return err
}

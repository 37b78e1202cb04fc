package config

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"clihub/internal/infra/telemetry"
)

const defaultReloadDebounce = 200 * time.Millisecond

// Update is delivered to subscribers after a reload changed the config.
type Update struct {
	Config   Config
	Revision uint64
	// Applied lists hot-reloadable keys that changed.
	Applied []string
	// Pending lists changed keys that take effect on restart.
	Pending []string
}

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	loader   *Loader
	path     string
	logger   *zap.Logger
	debounce time.Duration

	current  atomic.Pointer[Config]
	revision atomic.Uint64
	reloadMu sync.Mutex

	subsMu sync.Mutex
	subs   map[chan Update]struct{}
}

func NewWatcher(loader *Loader, path string, initial Config, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loader == nil {
		loader = NewLoader(logger)
	}
	w := &Watcher{
		loader:   loader,
		path:     path,
		logger:   logger.Named("config_watcher"),
		debounce: defaultReloadDebounce,
		subs:     make(map[chan Update]struct{}),
	}
	w.current.Store(&initial)
	w.revision.Store(1)
	return w
}

// Current returns the most recently loaded config.
func (w *Watcher) Current() Config {
	return *w.current.Load()
}

// Subscribe returns a channel of updates that is dropped when ctx ends.
// Slow subscribers miss intermediate updates.
func (w *Watcher) Subscribe(ctx context.Context) <-chan Update {
	ch := make(chan Update, 1)
	w.subsMu.Lock()
	w.subs[ch] = struct{}{}
	w.subsMu.Unlock()
	go func() {
		<-ctx.Done()
		w.subsMu.Lock()
		delete(w.subs, ch)
		w.subsMu.Unlock()
	}()
	return ch
}

// Reload loads the file and broadcasts an update when anything changed.
// An invalid file leaves the current config in place.
func (w *Watcher) Reload(ctx context.Context) error {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	next, err := w.loader.Load(ctx, w.path)
	if err != nil {
		return err
	}
	prev := w.Current()
	applied, pending := Diff(prev, next)
	if len(applied) == 0 && len(pending) == 0 {
		return nil
	}
	w.current.Store(&next)
	rev := w.revision.Add(1)
	w.logger.Info("config reloaded",
		telemetry.EventField(telemetry.EventConfigReload),
		zap.Uint64("revision", rev),
		zap.Strings("applied", applied),
		zap.Strings("pending_restart", pending),
	)
	w.broadcast(Update{Config: next, Revision: rev, Applied: applied, Pending: pending})
	return nil
}

func (w *Watcher) broadcast(update Update) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for ch := range w.subs {
		select {
		case ch <- update:
		default:
			// Replace a stale pending update with the newest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
}

// Run watches the config directory until ctx ends. Editors that replace
// the file are handled by watching the parent directory.
func (w *Watcher) Run(ctx context.Context) error {
	if w.path == "" {
		return errors.New("config watcher: no config file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-timerChan(timer):
			timer = nil
			if err := w.Reload(ctx); err != nil {
				w.logger.Warn("config reload failed", zap.Error(err))
			}
		}
	}
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}

// Diff splits changed keys into those applied live and those that need a
// restart.
func Diff(prev, next Config) (applied, pending []string) {
	if prev.Execution.Timeout != next.Execution.Timeout {
		applied = append(applied, "execution.timeoutSeconds")
	}
	if prev.Execution.MaxOutputBytes != next.Execution.MaxOutputBytes {
		applied = append(applied, "execution.maxOutputBytes")
	}
	if prev.Cache.DefaultTTL != next.Cache.DefaultTTL {
		applied = append(applied, "cache.defaultTTLSeconds")
	}
	if prev.Execution.EnvFile != next.Execution.EnvFile {
		applied = append(applied, "execution.envFile")
	}
	if !reflect.DeepEqual(prev.Execution.PathPrepend, next.Execution.PathPrepend) {
		applied = append(applied, "execution.pathPrepend")
	}
	if prev.Log != next.Log {
		applied = append(applied, "log.level")
	}

	if prev.Server != next.Server {
		pending = append(pending, "server")
	}
	if prev.Profile != next.Profile {
		pending = append(pending, "profile")
	}
	if prev.Visibility != next.Visibility {
		pending = append(pending, "visibility")
	}
	if prev.Execution.IgnoreFiles != next.Execution.IgnoreFiles || prev.Execution.GlobalIgnoreFile != next.Execution.GlobalIgnoreFile {
		pending = append(pending, "execution.ignoreFiles")
	}
	if prev.State != next.State {
		pending = append(pending, "state")
	}
	if prev.Observability != next.Observability {
		pending = append(pending, "observability")
	}
	return applied, pending
}

package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"clihub/internal/app/catalog"
	"clihub/internal/app/profile"
	"clihub/internal/domain"
	"clihub/internal/infra/config"
	"clihub/internal/infra/executor"
	"clihub/internal/infra/pathguard"
	"clihub/internal/infra/server"
	"clihub/internal/infra/state"
	"clihub/internal/infra/telemetry"
)

// NewConfig loads the config file and applies command-line overrides.
func NewConfig(ctx context.Context, serve ServeConfig, logger *zap.Logger) (config.Config, error) {
	cfg, err := config.NewLoader(logger).Load(ctx, serve.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	serve.Overrides.Apply(&cfg)
	applyLogLevel(serve.LogLevel, cfg)
	return cfg, nil
}

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())
	return registry
}

func NewMetrics(registry *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(registry)
}

func NewHealthTracker() *telemetry.HealthTracker {
	return telemetry.NewHealthTracker()
}

// NewStateStore opens the configured store. The cleanup closes it.
func NewStateStore(cfg config.Config, metrics domain.Metrics, health *telemetry.HealthTracker, logger *zap.Logger) (domain.StateStore, func(), error) {
	path := cfg.State.Path
	if path == "" {
		path = state.ResolveDefaultPath(cfg.State.Driver)
	}
	store, err := state.Open(state.Options{
		Driver:  cfg.State.Driver,
		Path:    path,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, nil, err
	}
	health.Register("state", store.Ping)
	logger.Info("state store opened", zap.String("driver", cfg.State.Driver), zap.String("path", path))
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("close state store", zap.Error(err))
		}
	}
	return store, cleanup, nil
}

// NewPathGuard returns nil when ignore-file checks are disabled.
func NewPathGuard(cfg config.Config, logger *zap.Logger) (*pathguard.Guard, error) {
	if !cfg.Execution.IgnoreFiles {
		return nil, nil
	}
	return pathguard.New(pathguard.Options{
		GlobalFile: cfg.Execution.GlobalIgnoreFile,
		Logger:     logger,
	})
}

// ExecutorSettings maps the execution config onto executor settings.
func ExecutorSettings(cfg config.Config) executor.Settings {
	return executor.Settings{
		DefaultTimeout:  cfg.Execution.Timeout,
		MaxOutputBytes:  cfg.Execution.MaxOutputBytes,
		DefaultCacheTTL: cfg.Cache.DefaultTTL,
		EnvFile:         cfg.Execution.EnvFile,
		PathPrepend:     cfg.Execution.PathPrepend,
	}
}

func NewExecutor(cfg config.Config, store domain.StateStore, metrics domain.Metrics, logger *zap.Logger) *executor.Facade {
	return executor.New(executor.Options{
		Cache:    store,
		Metrics:  metrics,
		Logger:   logger,
		Settings: ExecutorSettings(cfg),
	})
}

func NewCatalog() (*catalog.Registry, error) {
	return catalog.Default()
}

// NewInitialVisibility resolves the configured profile.
func NewInitialVisibility(cfg config.Config) (domain.VisibilitySet, error) {
	return profile.Resolve(cfg.Profile)
}

func NewHub(
	cfg config.Config,
	registry *catalog.Registry,
	exec *executor.Facade,
	store domain.StateStore,
	guard *pathguard.Guard,
	initial domain.VisibilitySet,
	metrics domain.Metrics,
	logger *zap.Logger,
) (*server.Hub, error) {
	return server.New(server.Options{
		Name:     cfg.Server.Name,
		Version:  Version,
		Registry: registry,
		Executor: exec,
		Store:    store,
		Guard:    guard,
		Profile:  initial,
		Metrics:  metrics,
		Logger:   logger,
	})
}

// NewConfigWatcher returns nil when no config file was given.
func NewConfigWatcher(serve ServeConfig, cfg config.Config, logger *zap.Logger) *config.Watcher {
	if serve.ConfigPath == "" || serve.DisableWatch {
		return nil
	}
	return config.NewWatcher(config.NewLoader(logger), serve.ConfigPath, cfg, logger)
}

func describeTransport(cfg config.Config) string {
	if cfg.Server.Transport == config.TransportStreamableHTTP {
		return fmt.Sprintf("%s %s%s", cfg.Server.Transport, cfg.Server.HTTP.Addr, cfg.Server.HTTP.Path)
	}
	return cfg.Server.Transport
}

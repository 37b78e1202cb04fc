package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"clihub/internal/domain"
	"clihub/internal/infra/config"
	"clihub/internal/infra/executor"
	"clihub/internal/infra/server"
	"clihub/internal/infra/telemetry"
)

// Application wires the serve runtime.
type Application struct {
	ctx        context.Context
	configPath string
	overrides  Overrides
	level      *zap.AtomicLevel

	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	health   *telemetry.HealthTracker
	store    domain.StateStore
	executor *executor.Facade
	hub      *server.Hub
	watcher  *config.Watcher
}

// ApplicationOptions captures dependencies and settings for Application.
type ApplicationOptions struct {
	Context     context.Context
	ServeConfig ServeConfig
	Config      config.Config
	Logger      *zap.Logger
	Registry    *prometheus.Registry
	Health      *telemetry.HealthTracker
	Store       domain.StateStore
	Executor    *executor.Facade
	Hub         *server.Hub
	Watcher     *config.Watcher
}

// NewApplication constructs the serve runtime.
func NewApplication(opts ApplicationOptions) *Application {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Application{
		ctx:        ctx,
		configPath: opts.ServeConfig.ConfigPath,
		overrides:  opts.ServeConfig.Overrides,
		level:      opts.ServeConfig.LogLevel,
		cfg:        opts.Config,
		logger:     opts.Logger,
		registry:   opts.Registry,
		health:     opts.Health,
		store:      opts.Store,
		executor:   opts.Executor,
		hub:        opts.Hub,
		watcher:    opts.Watcher,
	}
}

// Run starts the observability server and config watcher, then serves the
// configured transport until the context ends.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(a.ctx)
	defer cancel()

	a.logger.Info("configuration loaded",
		zap.String("config", a.configPath),
		telemetry.ProfileField(a.cfg.Profile),
		zap.String("transport", describeTransport(a.cfg)),
	)

	obs := a.cfg.Observability
	if obs.Metrics || obs.Healthz {
		go func() {
			err := telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
				Addr:          obs.ListenAddress,
				EnableMetrics: obs.Metrics,
				EnableHealthz: obs.Healthz,
				Health:        a.health,
				Registry:      a.registry,
			}, a.logger)
			if err != nil {
				a.logger.Warn("observability server stopped", zap.Error(err))
			}
		}()
	}

	if a.watcher != nil {
		updates := a.watcher.Subscribe(ctx)
		go a.applyUpdates(ctx, updates)
		go func() {
			if err := a.watcher.Run(ctx); err != nil {
				a.logger.Warn("config watcher stopped", zap.Error(err))
			}
		}()
	}

	switch a.cfg.Server.Transport {
	case config.TransportStdio:
		return a.hub.ServeStdio(ctx)
	case config.TransportStreamableHTTP:
		return a.hub.ServeHTTP(ctx, server.HTTPOptions{
			Addr:         a.cfg.Server.HTTP.Addr,
			Path:         a.cfg.Server.HTTP.Path,
			Token:        a.cfg.Server.HTTP.Token,
			JSONResponse: a.cfg.Server.HTTP.JSONResponse,
			Isolation:    a.cfg.Visibility.Isolation,
		})
	default:
		return fmt.Errorf("unsupported transport: %s", a.cfg.Server.Transport)
	}
}

func (a *Application) applyUpdates(ctx context.Context, updates <-chan config.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			a.applyUpdate(update)
		}
	}
}

// applyUpdate pushes hot-reloadable settings into the running executor.
func (a *Application) applyUpdate(update config.Update) {
	next := update.Config
	a.overrides.Apply(&next)
	if len(update.Applied) > 0 {
		a.executor.UpdateSettings(ExecutorSettings(next))
		applyLogLevel(a.level, next)
		a.logger.Info("execution settings updated",
			telemetry.EventField(telemetry.EventConfigReload),
			zap.Strings("keys", update.Applied),
			zap.Duration("timeout", next.Execution.Timeout),
			zap.Int64("max_output_bytes", next.Execution.MaxOutputBytes),
		)
	}
	if len(update.Pending) > 0 {
		a.logger.Warn("config changes require a restart", zap.Strings("keys", update.Pending))
	}
}

package app

import (
	"context"

	"clihub/internal/domain"
	"clihub/internal/infra/config"
	"clihub/internal/infra/state"
	"clihub/internal/infra/telemetry"
)

// OpenState opens the configured store for offline inspection. The caller
// closes it.
func (a *App) OpenState(ctx context.Context, cfg ValidateConfig) (domain.StateStore, config.Config, error) {
	logger := NewLogger(LoggingConfig{Logger: a.logger})
	loaded, err := NewConfig(ctx, ServeConfig{ConfigPath: cfg.ConfigPath, Overrides: cfg.Overrides}, logger)
	if err != nil {
		return nil, config.Config{}, err
	}
	path := loaded.State.Path
	if path == "" {
		path = state.ResolveDefaultPath(loaded.State.Driver)
	}
	store, err := state.Open(state.Options{
		Driver:  loaded.State.Driver,
		Path:    path,
		Logger:  logger,
		Metrics: telemetry.NewNoopMetrics(),
	})
	if err != nil {
		return nil, config.Config{}, err
	}
	loaded.State.Path = path
	return store, loaded, nil
}

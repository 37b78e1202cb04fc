package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"clihub/internal/app/catalog"
	"clihub/internal/app/profile"
	"clihub/internal/infra/config"
)

type App struct {
	logger *zap.Logger
	level  *zap.AtomicLevel
}

// ServeConfig describes one serve invocation.
type ServeConfig struct {
	ConfigPath string
	Overrides  Overrides
	// LogLevel, when set, follows log.level from the config.
	LogLevel     *zap.AtomicLevel
	DisableWatch bool
}

type ValidateConfig struct {
	ConfigPath string
	Overrides  Overrides
}

// Overrides are command-line values that win over the config file.
// Empty strings and nil pointers leave the file value in place.
type Overrides struct {
	Profile      string
	Transport    string
	HTTPAddr     string
	HTTPPath     string
	HTTPToken    string
	JSONResponse *bool
	Isolation    string
}

func (o Overrides) Apply(cfg *config.Config) {
	if o.Profile != "" {
		cfg.Profile = o.Profile
	}
	if o.Transport != "" {
		cfg.Server.Transport = o.Transport
		if o.Transport == "http" {
			cfg.Server.Transport = config.TransportStreamableHTTP
		}
	}
	if o.HTTPAddr != "" {
		cfg.Server.HTTP.Addr = o.HTTPAddr
	}
	if o.HTTPPath != "" {
		cfg.Server.HTTP.Path = o.HTTPPath
	}
	if o.HTTPToken != "" {
		cfg.Server.HTTP.Token = o.HTTPToken
	}
	if o.JSONResponse != nil {
		cfg.Server.HTTP.JSONResponse = *o.JSONResponse
	}
	if o.Isolation != "" {
		cfg.Visibility.Isolation = o.Isolation
	}
}

// Summary reports what a validated configuration would serve.
type Summary struct {
	Config     config.Config
	Groups     int
	Procedures int
	Enabled    []string
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

// WithLevel lets the loaded config adjust the logger's level.
func (a *App) WithLevel(level *zap.AtomicLevel) *App {
	a.level = level
	return a
}

// Serve builds the runtime and blocks until ctx ends or the transport stops.
func (a *App) Serve(ctx context.Context, cfg ServeConfig) error {
	if cfg.LogLevel == nil {
		cfg.LogLevel = a.level
	}
	application, cleanup, err := InitializeApplication(ctx, cfg, LoggingConfig{Logger: a.logger})
	if err != nil {
		return err
	}
	defer cleanup()
	err = application.Run()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ValidateConfig loads the config and checks it against the catalog and
// profiles without opening the store.
func (a *App) ValidateConfig(ctx context.Context, cfg ValidateConfig) (Summary, error) {
	logger := NewLogger(LoggingConfig{Logger: a.logger})
	loaded, err := NewConfig(ctx, ServeConfig{ConfigPath: cfg.ConfigPath, Overrides: cfg.Overrides}, logger)
	if err != nil {
		return Summary{}, err
	}
	switch loaded.Server.Transport {
	case config.TransportStdio, config.TransportStreamableHTTP:
	default:
		return Summary{}, errors.New("unsupported transport: " + loaded.Server.Transport)
	}
	registry, err := catalog.Default()
	if err != nil {
		return Summary{}, err
	}
	enabled, err := profile.Resolve(loaded.Profile)
	if err != nil {
		return Summary{}, err
	}
	names := make([]string, 0, len(enabled))
	for _, id := range enabled {
		names = append(names, string(id))
	}
	summary := Summary{
		Config:     loaded,
		Groups:     len(registry.AllGroups()),
		Procedures: registry.Len(),
		Enabled:    names,
	}
	logger.Info("configuration validated",
		zap.String("config", cfg.ConfigPath),
		zap.String("profile", loaded.Profile),
		zap.Int("groups", summary.Groups),
		zap.Int("procedures", summary.Procedures),
	)
	return summary, nil
}

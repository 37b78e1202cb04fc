package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"clihub/internal/domain"
)

// EnvPrefix namespaces environment overrides, e.g. CLIHUB_LOG_LEVEL.
const EnvPrefix = "CLIHUB"

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("server.name", def.Server.Name)
	v.SetDefault("server.transport", def.Server.Transport)
	v.SetDefault("server.http.addr", def.Server.HTTP.Addr)
	v.SetDefault("server.http.path", def.Server.HTTP.Path)
	v.SetDefault("server.http.token", "")
	v.SetDefault("server.http.jsonResponse", false)
	v.SetDefault("profile", def.Profile)
	v.SetDefault("visibility.isolation", def.Visibility.Isolation)
	v.SetDefault("execution.timeoutSeconds", int(def.Execution.Timeout/time.Second))
	v.SetDefault("execution.maxOutputBytes", def.Execution.MaxOutputBytes)
	v.SetDefault("execution.envFile", "")
	v.SetDefault("execution.ignoreFiles", def.Execution.IgnoreFiles)
	v.SetDefault("execution.globalIgnoreFile", "")
	v.SetDefault("execution.pathPrepend", []string{})
	v.SetDefault("state.driver", def.State.Driver)
	v.SetDefault("state.path", "")
	v.SetDefault("cache.defaultTTLSeconds", int(def.Cache.DefaultTTL/time.Second))
	v.SetDefault("observability.listenAddress", def.Observability.ListenAddress)
	v.SetDefault("observability.metrics", false)
	v.SetDefault("observability.healthz", false)
	v.SetDefault("log.level", def.Log.Level)
}

type rawConfig struct {
	Server        rawServer        `mapstructure:"server"`
	Profile       string           `mapstructure:"profile"`
	Visibility    rawVisibility    `mapstructure:"visibility"`
	Execution     rawExecution     `mapstructure:"execution"`
	State         rawState         `mapstructure:"state"`
	Cache         rawCache         `mapstructure:"cache"`
	Observability rawObservability `mapstructure:"observability"`
	Log           rawLog           `mapstructure:"log"`
}

type rawServer struct {
	Name      string  `mapstructure:"name"`
	Transport string  `mapstructure:"transport"`
	HTTP      rawHTTP `mapstructure:"http"`
}

type rawHTTP struct {
	Addr         string `mapstructure:"addr"`
	Path         string `mapstructure:"path"`
	Token        string `mapstructure:"token"`
	JSONResponse bool   `mapstructure:"jsonResponse"`
}

type rawVisibility struct {
	Isolation string `mapstructure:"isolation"`
}

type rawExecution struct {
	TimeoutSeconds   float64  `mapstructure:"timeoutSeconds"`
	MaxOutputBytes   int64    `mapstructure:"maxOutputBytes"`
	EnvFile          string   `mapstructure:"envFile"`
	IgnoreFiles      bool     `mapstructure:"ignoreFiles"`
	GlobalIgnoreFile string   `mapstructure:"globalIgnoreFile"`
	PathPrepend      []string `mapstructure:"pathPrepend"`
}

type rawState struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type rawCache struct {
	DefaultTTLSeconds float64 `mapstructure:"defaultTTLSeconds"`
}

type rawObservability struct {
	ListenAddress string `mapstructure:"listenAddress"`
	Metrics       bool   `mapstructure:"metrics"`
	Healthz       bool   `mapstructure:"healthz"`
}

type rawLog struct {
	Level string `mapstructure:"level"`
}

// Load reads path, expands ${VAR} references and applies defaults and
// CLIHUB_* overrides. An empty path yields the defaults.
func (l *Loader) Load(ctx context.Context, path string) (Config, error) {
	expanded := ""
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var missing []string
		expanded, missing, err = expandEnv(data)
		if err != nil {
			return Config{}, err
		}
		if len(missing) > 0 {
			l.logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
		}
	}
	cfg, err := Parse(expanded)
	if err != nil {
		return Config{}, err
	}
	return cfg, ctx.Err()
}

// Parse decodes an already expanded YAML document.
func Parse(doc string) (Config, error) {
	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(doc)); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg, errs := normalize(raw)
	if len(errs) > 0 {
		return Config{}, domain.E(domain.CodeInvalidRequest, "load config", strings.Join(errs, "; "), errors.New("invalid config"))
	}
	return cfg, nil
}

func normalize(raw rawConfig) (Config, []string) {
	var errs []string
	cfg := Config{
		Server: ServerConfig{
			Name:      strings.TrimSpace(raw.Server.Name),
			Transport: strings.ToLower(strings.TrimSpace(raw.Server.Transport)),
			HTTP: HTTPConfig{
				Addr:         strings.TrimSpace(raw.Server.HTTP.Addr),
				Path:         strings.TrimSpace(raw.Server.HTTP.Path),
				Token:        raw.Server.HTTP.Token,
				JSONResponse: raw.Server.HTTP.JSONResponse,
			},
		},
		Profile:    strings.TrimSpace(raw.Profile),
		Visibility: VisibilityConfig{Isolation: strings.ToLower(strings.TrimSpace(raw.Visibility.Isolation))},
		Execution: ExecutionConfig{
			Timeout:          seconds(raw.Execution.TimeoutSeconds),
			MaxOutputBytes:   raw.Execution.MaxOutputBytes,
			EnvFile:          strings.TrimSpace(raw.Execution.EnvFile),
			IgnoreFiles:      raw.Execution.IgnoreFiles,
			GlobalIgnoreFile: strings.TrimSpace(raw.Execution.GlobalIgnoreFile),
			PathPrepend:      nonEmpty(raw.Execution.PathPrepend),
		},
		State: StateConfig{
			Driver: strings.ToLower(strings.TrimSpace(raw.State.Driver)),
			Path:   strings.TrimSpace(raw.State.Path),
		},
		Cache: CacheConfig{DefaultTTL: seconds(raw.Cache.DefaultTTLSeconds)},
		Observability: ObservabilityConfig{
			ListenAddress: strings.TrimSpace(raw.Observability.ListenAddress),
			Metrics:       raw.Observability.Metrics,
			Healthz:       raw.Observability.Healthz,
		},
		Log: LogConfig{Level: strings.ToLower(strings.TrimSpace(raw.Log.Level))},
	}

	if cfg.Server.Name == "" {
		cfg.Server.Name = domain.DefaultServerName
	}
	switch cfg.Server.Transport {
	case TransportStdio, TransportStreamableHTTP:
	case "http":
		cfg.Server.Transport = TransportStreamableHTTP
	default:
		errs = append(errs, fmt.Sprintf("server.transport: unsupported value %q", raw.Server.Transport))
	}
	if cfg.Server.HTTP.Path == "" {
		cfg.Server.HTTP.Path = domain.DefaultHTTPPath
	}
	if !strings.HasPrefix(cfg.Server.HTTP.Path, "/") {
		errs = append(errs, fmt.Sprintf("server.http.path: must start with '/', got %q", cfg.Server.HTTP.Path))
	}
	if cfg.Server.Transport == TransportStreamableHTTP && cfg.Server.HTTP.Addr == "" {
		errs = append(errs, "server.http.addr: required for streamable-http transport")
	}
	if cfg.Profile == "" {
		cfg.Profile = domain.DefaultProfile
	}
	switch cfg.Visibility.Isolation {
	case IsolationSession, IsolationShared:
	default:
		errs = append(errs, fmt.Sprintf("visibility.isolation: unsupported value %q", raw.Visibility.Isolation))
	}
	if raw.Execution.TimeoutSeconds < 0 {
		errs = append(errs, "execution.timeoutSeconds: must be >= 0")
	}
	if cfg.Execution.Timeout == 0 {
		cfg.Execution.Timeout = domain.DefaultExecutionTimeout
	}
	if cfg.Execution.MaxOutputBytes < 0 {
		errs = append(errs, "execution.maxOutputBytes: must be >= 0")
	}
	switch cfg.State.Driver {
	case "bolt", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("state.driver: unsupported value %q", raw.State.Driver))
	}
	if raw.Cache.DefaultTTLSeconds < 0 {
		errs = append(errs, "cache.defaultTTLSeconds: must be >= 0")
	}
	if cfg.Observability.ListenAddress == "" {
		cfg.Observability.ListenAddress = domain.DefaultObservabilityListenAddress
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = domain.DefaultLogLevel
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level: %v", err))
	}
	return cfg, errs
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

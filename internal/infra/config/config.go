package config

import (
	"time"

	"clihub/internal/domain"
)

const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"

	IsolationSession = "session"
	IsolationShared  = "shared"
)

// Config is the normalized gateway configuration.
type Config struct {
	Server        ServerConfig
	Profile       string
	Visibility    VisibilityConfig
	Execution     ExecutionConfig
	State         StateConfig
	Cache         CacheConfig
	Observability ObservabilityConfig
	Log           LogConfig
}

type ServerConfig struct {
	Name      string
	Transport string
	HTTP      HTTPConfig
}

type HTTPConfig struct {
	Addr         string
	Path         string
	Token        string
	JSONResponse bool
}

type VisibilityConfig struct {
	Isolation string
}

// ExecutionConfig holds the settings the executor reads on every call.
// Timeout, MaxOutputBytes and the cache TTL are applied on reload.
type ExecutionConfig struct {
	Timeout        time.Duration
	MaxOutputBytes int64
	EnvFile        string
	IgnoreFiles    bool
	// GlobalIgnoreFile overrides $XDG_CONFIG_HOME/agent/ignore.
	GlobalIgnoreFile string
	PathPrepend      []string
}

type StateConfig struct {
	Driver string
	Path   string
}

type CacheConfig struct {
	DefaultTTL time.Duration
}

type ObservabilityConfig struct {
	ListenAddress string
	Metrics       bool
	Healthz       bool
}

type LogConfig struct {
	Level string
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Name:      domain.DefaultServerName,
			Transport: domain.DefaultTransport,
			HTTP: HTTPConfig{
				Addr: domain.DefaultHTTPAddr,
				Path: domain.DefaultHTTPPath,
			},
		},
		Profile:    domain.DefaultProfile,
		Visibility: VisibilityConfig{Isolation: IsolationSession},
		Execution: ExecutionConfig{
			Timeout:        domain.DefaultExecutionTimeout,
			MaxOutputBytes: domain.DefaultMaxOutputBytes,
			IgnoreFiles:    true,
		},
		State: StateConfig{Driver: domain.DefaultStateDriver},
		Cache: CacheConfig{DefaultTTL: domain.DefaultCacheTTL},
		Observability: ObservabilityConfig{
			ListenAddress: domain.DefaultObservabilityListenAddress,
		},
		Log: LogConfig{Level: domain.DefaultLogLevel},
	}
}

package domain

import "time"

const (
	DefaultServerName                 = "clihub"
	DefaultTransport                  = "stdio"
	DefaultHTTPAddr                   = "127.0.0.1:8765"
	DefaultHTTPPath                   = "/mcp"
	DefaultProfile                    = "full"
	DefaultExecutionTimeout           = 30 * time.Second
	DefaultCacheTTL                   = 5 * time.Minute
	DefaultStateDriver                = "bolt"
	DefaultObservabilityListenAddress = "127.0.0.1:9464"
	DefaultMaxOutputBytes             = 0
	DefaultLogLevel                   = "info"

	// TimeoutExitCode is reported for processes killed by their deadline.
	TimeoutExitCode = -1

	// UseDefaultCacheTTL asks the executor to apply its configured TTL.
	UseDefaultCacheTTL time.Duration = -1
)

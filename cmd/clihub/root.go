package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"clihub/internal/app"
)

type cliOptions struct {
	configPath   string
	logLevel     string
	profile      string
	transport    string
	httpAddr     string
	httpPath     string
	httpToken    string
	jsonResponse bool
	isolation    string
	noWatch      bool
	jsonOutput   bool

	logger *zap.Logger
	level  zap.AtomicLevel
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{
		configPath: os.Getenv("CLIHUB_CONFIG"),
		logger:     zap.NewNop(),
	}

	root := &cobra.Command{
		Use:           "clihub",
		Short:         "MCP server exposing curated command-line tools as grouped procedures",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       app.Version + " (" + app.Build + ")",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, level, err := app.BuildLogger(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logger
			opts.level = level
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", opts.configPath, "path to the YAML config file (env CLIHUB_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides log.level")
	root.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "", "session profile enabled at start (see `clihub profiles`)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")

	root.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newGroupsCmd(opts),
		newProfilesCmd(opts),
		newStateCmd(opts),
	)
	return root
}

// overrides collects the flags that were set explicitly.
func (o *cliOptions) overrides(flags *pflag.FlagSet) app.Overrides {
	var out app.Overrides
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "profile":
			out.Profile = o.profile
		case "transport":
			out.Transport = o.transport
		case "http-addr":
			out.HTTPAddr = o.httpAddr
		case "http-path":
			out.HTTPPath = o.httpPath
		case "http-token":
			out.HTTPToken = o.httpToken
		case "http-json-response":
			value := o.jsonResponse
			out.JSONResponse = &value
		case "isolation":
			out.Isolation = o.isolation
		}
	})
	return out
}

// levelOverride reports whether --log-level pinned the level, in which case
// the config file does not change it.
func (o *cliOptions) levelOverride() *zap.AtomicLevel {
	if o.logLevel != "" {
		return nil
	}
	return &o.level
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

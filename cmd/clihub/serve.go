package main

import (
	"errors"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"clihub/internal/app"
	"clihub/internal/infra/config"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio or streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			overrides := opts.overrides(cmd.Flags())
			if err := validateHTTPOverrides(overrides); err != nil {
				return err
			}
			return app.New(opts.logger).Serve(ctx, app.ServeConfig{
				ConfigPath:   opts.configPath,
				Overrides:    overrides,
				LogLevel:     opts.levelOverride(),
				DisableWatch: opts.noWatch,
			})
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", config.TransportStdio, "server transport (stdio or streamable-http)")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "", "streamable HTTP listen address")
	cmd.Flags().StringVar(&opts.httpPath, "http-path", "", "streamable HTTP endpoint path")
	cmd.Flags().StringVar(&opts.httpToken, "http-token", "", "streamable HTTP bearer token (required for non-localhost)")
	cmd.Flags().BoolVar(&opts.jsonResponse, "http-json-response", false, "use application/json responses instead of SSE")
	cmd.Flags().StringVar(&opts.isolation, "isolation", "", "visibility isolation for HTTP clients (session or shared)")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not reload the config file when it changes")
	return cmd
}

func validateHTTPOverrides(o app.Overrides) error {
	if o.Transport != "" && o.Transport != config.TransportStdio && o.Transport != config.TransportStreamableHTTP && o.Transport != "http" {
		return errors.New("unsupported transport: " + o.Transport)
	}
	if o.HTTPAddr != "" && !isLocalhostAddr(o.HTTPAddr) && strings.TrimSpace(o.HTTPToken) == "" {
		return errors.New("http token is required when binding to non-localhost address")
	}
	return nil
}

func isLocalhostAddr(addr string) bool {
	host := addr
	if strings.Contains(addr, ":") {
		if h, _, err := net.SplitHostPort(addr); err == nil {
			host = h
		}
	}
	host = strings.TrimSpace(host)
	if host == "" || host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}

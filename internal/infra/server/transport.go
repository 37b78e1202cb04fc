package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// HTTPOptions configures the streamable HTTP transport.
type HTTPOptions struct {
	Addr string
	Path string
	// Token, when set, is required as a bearer token on every request.
	Token        string
	JSONResponse bool
	// Isolation is IsolationSession (a visibility state per client) or
	// IsolationShared (one state for every client).
	Isolation string
}

// ServeStdio runs a single session over stdin and stdout until ctx ends or
// the client disconnects.
func (h *Hub) ServeStdio(ctx context.Context) error {
	session, err := h.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()
	h.logger.Info("serving stdio transport")
	return session.Server().Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler without authentication.
func (h *Hub) Handler(opts HTTPOptions) http.Handler {
	var (
		shared     *Session
		sharedErr  error
		sharedOnce sync.Once
	)
	getServer := func(*http.Request) *mcp.Server {
		if opts.Isolation == IsolationShared {
			sharedOnce.Do(func() { shared, sharedErr = h.NewSession() })
			if sharedErr != nil {
				h.logger.Error("create shared session failed", zap.Error(sharedErr))
				return nil
			}
			return shared.Server()
		}
		session, err := h.NewSession()
		if err != nil {
			h.logger.Error("create session failed", zap.Error(err))
			return nil
		}
		return session.Server()
	}
	return mcp.NewStreamableHTTPHandler(getServer, &mcp.StreamableHTTPOptions{
		JSONResponse: opts.JSONResponse,
	})
}

// ServeHTTP listens on opts.Addr and serves MCP at opts.Path until ctx ends.
func (h *Hub) ServeHTTP(ctx context.Context, opts HTTPOptions) error {
	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return err
	}
	return h.serveListener(ctx, ln, opts)
}

func (h *Hub) serveListener(ctx context.Context, ln net.Listener, opts HTTPOptions) error {
	path := opts.Path
	if path == "" {
		path = "/mcp"
	}
	mux := http.NewServeMux()
	mux.Handle(path, requireBearer(opts.Token, h.Handler(opts)))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	h.logger.Info("serving streamable HTTP transport",
		zap.String("addr", ln.Addr().String()),
		zap.String("path", path),
		zap.Bool("auth", opts.Token != ""),
		zap.String("isolation", opts.Isolation),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func requireBearer(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), []byte(token)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="clihub"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Package server exposes the procedure catalog over MCP. Each session owns
// a visibility state and an *mcp.Server whose tool list follows it.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"clihub/internal/app/catalog"
	"clihub/internal/app/visibility"
	"clihub/internal/domain"
	"clihub/internal/infra/pathguard"
	"clihub/internal/infra/telemetry"
)

// Isolation modes for HTTP sessions.
const (
	IsolationSession = "session"
	IsolationShared  = "shared"
)

type Options struct {
	Name     string
	Version  string
	Registry *catalog.Registry
	Executor domain.Executor
	Store    domain.StateStore
	// Guard is optional; without it paths are not checked.
	Guard *pathguard.Guard
	// Profile is the visibility set every new session starts with.
	Profile domain.VisibilitySet
	Metrics domain.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// Hub builds sessions that share the catalog, executor and store.
type Hub struct {
	name     string
	version  string
	registry *catalog.Registry
	executor domain.Executor
	store    domain.StateStore
	guard    *pathguard.Guard
	profile  domain.VisibilitySet
	metrics  domain.Metrics
	logger   *zap.Logger
	auth     *authGate
}

func New(opts Options) (*Hub, error) {
	if opts.Registry == nil {
		return nil, errors.New("server: registry is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("server: executor is required")
	}
	if opts.Store == nil {
		return nil, errors.New("server: state store is required")
	}
	if opts.Name == "" {
		opts.Name = domain.DefaultServerName
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewNoopMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	for _, id := range opts.Profile {
		if !opts.Registry.HasGroup(id) {
			return nil, &domain.Error{Code: domain.CodeUnknownGroup, Op: "new server", Message: "profile references unknown group " + string(id)}
		}
	}
	logger := opts.Logger.Named("server")
	return &Hub{
		name:     opts.Name,
		version:  opts.Version,
		registry: opts.Registry,
		executor: opts.Executor,
		store:    opts.Store,
		guard:    opts.Guard,
		profile:  append(domain.VisibilitySet(nil), opts.Profile...),
		metrics:  opts.Metrics,
		logger:   logger,
		auth: &authGate{
			store:    opts.Store,
			executor: opts.Executor,
			now:      opts.Now,
			logger:   logger.Named("auth"),
		},
	}, nil
}

// Session is one client's view of the catalog.
type Session struct {
	id          string
	hub         *Hub
	server      *mcp.Server
	visibility  *visibility.State
	tools       *toolRegistry
	logger      *zap.Logger
	unsubscribe func()
}

// NewSession creates an MCP server with the hub's profile applied.
func (h *Hub) NewSession() (*Session, error) {
	id := uuid.NewString()
	logger := h.logger.With(telemetry.SessionIDField(id))
	vis, err := visibility.New(h.registry, h.profile, visibility.Options{Metrics: h.metrics, Logger: logger})
	if err != nil {
		return nil, err
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    h.name,
		Version: h.version,
	}, &mcp.ServerOptions{
		HasTools:     true,
		Instructions: instructions,
	})
	s := &Session{
		id:         id,
		hub:        h,
		server:     server,
		visibility: vis,
		logger:     logger,
	}
	s.registerMetaTools()
	s.tools = newToolRegistry(server, h.registry, s.procedureHandler, logger)
	s.tools.Apply(vis.Snapshot())
	s.unsubscribe = vis.Subscribe(func(change visibility.Change) {
		s.tools.Apply(change.Set)
	})
	logger.Debug("session created", zap.Strings("groups", groupStrings(vis.Snapshot())))
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Server() *mcp.Server { return s.server }

func (s *Session) Visibility() *visibility.State { return s.visibility }

// Close detaches the session from visibility updates and drops its
// session-scoped context.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if removed, err := s.clearContext(ctx, domain.ScopeSession); err != nil {
		s.logger.Warn("clear session context failed", zap.Error(err))
	} else if removed > 0 {
		s.logger.Debug("session context cleared", zap.Int("removed", removed))
	}
}

const instructions = "Tools are grouped. Call groups_list to see groups, group_expand to inspect one, " +
	"and group_enable or group_disable to change which tools are listed."

func groupStrings(set domain.VisibilitySet) []string {
	out := make([]string, 0, len(set))
	for _, id := range set {
		out = append(out, string(id))
	}
	return out
}

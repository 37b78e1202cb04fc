package server

import (
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"clihub/internal/app/catalog"
	"clihub/internal/domain"
)

// toolRegistry keeps the server's procedure tools in step with the enabled
// groups. Meta tools are registered separately and never touched here.
type toolRegistry struct {
	server     *mcp.Server
	catalog    *catalog.Registry
	handler    func(name string) mcp.ToolHandler
	logger     *zap.Logger
	mu         sync.Mutex
	registered map[string]struct{}
}

func newToolRegistry(server *mcp.Server, cat *catalog.Registry, handler func(name string) mcp.ToolHandler, logger *zap.Logger) *toolRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &toolRegistry{
		server:     server,
		catalog:    cat,
		handler:    handler,
		logger:     logger.Named("tool_registry"),
		registered: make(map[string]struct{}),
	}
}

// Apply registers the procedures of every enabled group and removes the
// rest. The SDK notifies clients of list changes.
func (r *toolRegistry) Apply(enabled domain.VisibilitySet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]struct{})
	for _, id := range enabled {
		members, err := r.catalog.GroupMembers(id)
		if err != nil {
			r.logger.Warn("skip unknown group", zap.String("group", string(id)), zap.Error(err))
			continue
		}
		for _, name := range members {
			if _, ok := r.registered[name]; ok {
				next[name] = struct{}{}
				continue
			}
			tool, ok := r.tool(name)
			if !ok {
				continue
			}
			r.server.AddTool(tool, r.handler(name))
			next[name] = struct{}{}
		}
	}

	var remove []string
	for name := range r.registered {
		if _, ok := next[name]; !ok {
			remove = append(remove, name)
		}
	}
	if len(remove) > 0 {
		r.server.RemoveTools(remove...)
	}
	r.registered = next
}

// Registered reports whether a procedure tool is currently listed.
func (r *toolRegistry) Registered(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.registered[name]
	return ok
}

func (r *toolRegistry) tool(name string) (*mcp.Tool, bool) {
	proc, ok := r.catalog.Procedure(name)
	if !ok {
		return nil, false
	}
	schema, ok := r.catalog.InputSchema(name)
	if !ok {
		r.logger.Warn("skip tool without input schema", zap.String("tool", name))
		return nil, false
	}
	return &mcp.Tool{
		Name:        proc.Name,
		Description: proc.Description,
		InputSchema: schema,
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: proc.ReadOnly},
	}, true
}

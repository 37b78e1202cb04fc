package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"clihub/internal/app/catalog"
	"clihub/internal/domain"
)

// callState serves the in-process state procedures. Arguments have already
// passed schema validation.
func (s *Session) callState(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	store := s.hub.store
	str := func(key string) string {
		v, _ := args[key].(string)
		return v
	}
	scope := func() (domain.ContextScope, error) {
		return domain.ParseContextScope(str("scope"))
	}

	switch name {
	case catalog.ProcTaskCreate:
		task, err := store.CreateTask(ctx, str("payload"))
		if err != nil {
			return nil, err
		}
		return dataResult(task), nil

	case catalog.ProcTaskList:
		filter := str("status")
		tasks := []domain.TaskRecord{}
		for task, err := range store.ListTasks(ctx) {
			if err != nil {
				return nil, err
			}
			if filter == "" || task.Status == filter {
				tasks = append(tasks, task)
			}
		}
		return dataResult(map[string]any{"tasks": tasks, "count": len(tasks)}), nil

	case catalog.ProcTaskUpdate:
		var patch domain.TaskPatch
		if v, ok := args["status"].(string); ok {
			patch.Status = &v
		}
		if v, ok := args["payload"].(string); ok {
			patch.Payload = &v
		}
		task, err := store.UpdateTask(ctx, str("id"), patch)
		if err != nil {
			return nil, err
		}
		return dataResult(task), nil

	case catalog.ProcTaskDelete:
		if err := store.DeleteTask(ctx, str("id")); err != nil {
			return nil, err
		}
		return dataResult(map[string]any{"id": str("id"), "deleted": true}), nil

	case catalog.ProcContextGet:
		sc, err := scope()
		if err != nil {
			return nil, err
		}
		key, err := s.contextKey(sc, str("key"))
		if err != nil {
			return nil, err
		}
		value, ok, err := store.GetContext(ctx, sc, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.E(domain.CodeNotFound, "context get", fmt.Sprintf("no %s context for key %q", sc, str("key")), nil)
		}
		return dataResult(domain.ContextEntry{Scope: sc, Key: str("key"), Value: value}), nil

	case catalog.ProcContextSet:
		sc, err := scope()
		if err != nil {
			return nil, err
		}
		key, err := s.contextKey(sc, str("key"))
		if err != nil {
			return nil, err
		}
		if err := store.SetContext(ctx, sc, key, str("value")); err != nil {
			return nil, err
		}
		return dataResult(domain.ContextEntry{Scope: sc, Key: str("key"), Value: str("value")}), nil

	case catalog.ProcContextList:
		sc, err := scope()
		if err != nil {
			return nil, err
		}
		keys, err := s.contextKeys(ctx, sc)
		if err != nil {
			return nil, err
		}
		return dataResult(map[string]any{"scope": sc, "keys": keys}), nil

	case catalog.ProcContextDelete:
		sc, err := scope()
		if err != nil {
			return nil, err
		}
		key, err := s.contextKey(sc, str("key"))
		if err != nil {
			return nil, err
		}
		if err := store.DeleteContext(ctx, sc, key); err != nil {
			return nil, err
		}
		return dataResult(map[string]any{"scope": sc, "key": str("key"), "deleted": true}), nil

	case catalog.ProcContextClear:
		sc, err := scope()
		if err != nil {
			return nil, err
		}
		removed, err := s.clearContext(ctx, sc)
		if err != nil {
			return nil, err
		}
		return dataResult(map[string]any{"scope": sc, "removed": removed}), nil

	case catalog.ProcCacheGet:
		entry, ok, err := store.Get(ctx, str("key"))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.E(domain.CodeNotFound, "cache get", fmt.Sprintf("no cache entry for key %q", str("key")), nil)
		}
		out := map[string]any{"key": entry.Key, "value": entry.Value, "storedAt": entry.StoredAt}
		if expires := entry.ExpiresAt(); !expires.IsZero() {
			out["expiresAt"] = expires
		}
		return dataResult(out), nil

	case catalog.ProcCacheSet:
		raw := json.RawMessage(str("value"))
		if !json.Valid(raw) {
			return nil, domain.E(domain.CodeInvalidRequest, "cache set", "value must be a JSON document", nil)
		}
		ttl, _ := seconds(args["ttl_seconds"])
		if err := store.Put(ctx, str("key"), raw, ttl); err != nil {
			return nil, err
		}
		return dataResult(map[string]any{"key": str("key"), "ttlSeconds": int64(ttl.Seconds())}), nil

	case catalog.ProcCacheDelete:
		if err := store.Delete(ctx, str("key")); err != nil {
			return nil, err
		}
		return dataResult(map[string]any{"key": str("key"), "deleted": true}), nil

	case catalog.ProcAuthCheck:
		svc, ok := s.hub.registry.AuthService(str("service"))
		if !ok {
			names := make([]string, 0)
			for _, known := range s.hub.registry.AuthServices() {
				names = append(names, known.Name)
			}
			return nil, domain.E(domain.CodeInvalidRequest, "auth check", fmt.Sprintf("unknown service %q (known: %v)", str("service"), names), nil)
		}
		refresh, _ := args["refresh"].(bool)
		rec, err := s.hub.auth.check(ctx, svc, refresh)
		if err != nil {
			return nil, err
		}
		out := map[string]any{"status": rec}
		if !rec.Authenticated {
			out["hint"] = svc.Hint
		}
		return dataResult(out), nil

	default:
		return nil, domain.E(domain.CodeInternal, "call state procedure", "no handler for "+name, nil)
	}
}

// Session-scoped context rows are stored as "<session id>/<key>" so
// concurrent sessions sharing one store never see each other's values.
const sessionKeySep = "/"

func (s *Session) contextKey(scope domain.ContextScope, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", domain.E(domain.CodeInvalidRequest, "context", "key is required", nil)
	}
	if scope != domain.ScopeSession {
		return key, nil
	}
	return s.id + sessionKeySep + key, nil
}

// contextKeys lists keys in scope as the caller wrote them.
func (s *Session) contextKeys(ctx context.Context, scope domain.ContextScope) ([]string, error) {
	keys, err := s.hub.store.ListContextKeys(ctx, scope)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	if scope != domain.ScopeSession {
		return append(out, keys...), nil
	}
	prefix := s.id + sessionKeySep
	for _, key := range keys {
		if own, ok := strings.CutPrefix(key, prefix); ok {
			out = append(out, own)
		}
	}
	return out, nil
}

// clearContext empties scope. For the session scope only this session's
// rows are removed.
func (s *Session) clearContext(ctx context.Context, scope domain.ContextScope) (int, error) {
	if scope != domain.ScopeSession {
		return s.hub.store.ClearContextScope(ctx, scope)
	}
	keys, err := s.contextKeys(ctx, scope)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := s.hub.store.DeleteContext(ctx, scope, s.id+sessionKeySep+key); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

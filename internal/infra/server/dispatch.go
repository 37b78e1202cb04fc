package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"clihub/internal/app/catalog"
	"clihub/internal/domain"
	"clihub/internal/infra/telemetry"
)

// procedureHandler is the single dispatch path for catalog procedures.
func (s *Session) procedureHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, _ = telemetry.StartRequest(ctx, s.id, name)
		logger := telemetry.LoggerWithRequest(ctx, s.hub.logger)

		res, err := s.call(ctx, logger, name, req)
		s.hub.metrics.ObserveProcedureCall(name, err)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if code, _ := domain.CodeFrom(err); code == domain.CodeCanceled {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
		logger.Debug("procedure failed", zap.Error(err))
		return errorResult(err), nil
	}
}

// call returns a result, an error, or both when a timed-out run produced
// partial output.
func (s *Session) call(ctx context.Context, logger *zap.Logger, name string, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = "call procedure"
	if !s.visibility.IsVisible(name) {
		group, _ := s.hub.registry.GroupOf(name)
		return nil, domain.E(domain.CodeInvalidRequest, op,
			fmt.Sprintf("%s is not enabled; call group_enable with group %q first", name, group), nil)
	}
	args, err := decodeArgs(req)
	if err != nil {
		return nil, domain.E(domain.CodeInvalidRequest, op, "arguments must be a JSON object", err)
	}
	proc, ok := s.hub.registry.Procedure(name)
	if !ok {
		return nil, domain.E(domain.CodeInvalidRequest, op, "unknown procedure "+name, domain.ErrUnknownProcedure)
	}
	if proc.Builtin() {
		if err := s.hub.registry.ValidateArgs(name, args); err != nil {
			return nil, err
		}
		return s.callState(ctx, proc.Name, args)
	}
	return s.run(ctx, logger, args, proc)
}

func (s *Session) run(ctx context.Context, logger *zap.Logger, args map[string]any, proc catalog.Procedure) (*mcp.CallToolResult, error) {
	_, call, err := s.hub.registry.BuildCall(proc.Name, args)
	if err != nil {
		return nil, err
	}
	if err := s.checkPaths(call); err != nil {
		return nil, err
	}
	if proc.IgnoreFiles && s.hub.guard != nil {
		dir := call.Request.Dir
		if dir == "" {
			dir = "."
		}
		extra := s.hub.guard.IgnoreFileArgs(dir)
		call.Request.Args = slices.Insert(call.Request.Args, len(proc.Base), extra...)
	}
	if proc.Auth != "" {
		if blocked, err := s.authorize(ctx, proc.Auth); err != nil || blocked != nil {
			return blocked, err
		}
	}

	logger.Debug("dispatch", telemetry.ToolField(call.Request.Tool), zap.Strings("args", call.Request.Args))
	res, err := s.hub.executor.Execute(ctx, call.Request)
	if err != nil {
		code, _ := domain.CodeFrom(err)
		if code == domain.CodeTimeout {
			return executionResult(res, err), err
		}
		return nil, err
	}
	return executionResult(res, nil), nil
}

// checkPaths applies ignore rules to every path argument, resolving
// relative paths against the call's working directory.
func (s *Session) checkPaths(call catalog.Call) error {
	if s.hub.guard == nil {
		return nil
	}
	for _, path := range call.Paths {
		base := call.Request.Dir
		if path == call.Request.Dir {
			base = ""
		}
		if base != "" && !filepath.IsAbs(base) {
			if abs, err := filepath.Abs(base); err == nil {
				base = abs
			}
		}
		if err := s.hub.guard.Check(base, path); err != nil {
			return err
		}
	}
	return nil
}

// authorize consults the auth memo. A nil result and nil error mean the
// call may proceed.
func (s *Session) authorize(ctx context.Context, service string) (*mcp.CallToolResult, error) {
	svc, ok := s.hub.registry.AuthService(service)
	if !ok {
		return nil, domain.E(domain.CodeInternal, "authorize", "unknown auth service "+service, nil)
	}
	rec, err := s.hub.auth.check(ctx, svc, false)
	if err != nil {
		return nil, err
	}
	if rec.Authenticated {
		return nil, nil
	}
	msg := fmt.Sprintf("%s is not authenticated; %s", svc.Name, svc.Hint)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		StructuredContent: map[string]any{
			"error": errorBody{Code: "AUTH_REQUIRED", Message: msg, Meta: map[string]string{"service": svc.Name}},
			"auth":  rec,
		},
		IsError: true,
	}, nil
}

func decodeArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	args := map[string]any{}
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return args, nil
	}
	raw := json.RawMessage(req.Params.Arguments)
	if string(raw) == "null" {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	return args, nil
}

func seconds(v any) (time.Duration, bool) {
	n, ok := v.(float64)
	if !ok || n < 0 {
		return 0, false
	}
	return time.Duration(n * float64(time.Second)), true
}

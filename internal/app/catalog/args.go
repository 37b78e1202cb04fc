package catalog

import (
	"fmt"
	"maps"
	"math"
	"strconv"

	"clihub/internal/domain"
)

// Call is a procedure invocation ready for the executor.
type Call struct {
	Request domain.ExecutionRequest
	// Paths are the filesystem arguments subject to ignore rules, relative
	// to Request.Dir when not absolute.
	Paths []string
}

// BuildCall turns validated arguments into an execution request. Options
// come first in declaration order, then positionals.
func BuildCall(proc Procedure, args map[string]any) (Call, error) {
	const op = "build arguments"
	if proc.Builtin() {
		return Call{}, domain.E(domain.CodeInvalidRequest, op, fmt.Sprintf("%s runs in-process", proc.Name), nil)
	}
	req := domain.ExecutionRequest{
		Tool:     proc.Binary,
		Args:     append([]string(nil), proc.Base...),
		Format:   proc.Format,
		CacheTTL: proc.CacheTTL,
		Timeout:  proc.Timeout,
	}
	if len(proc.Hints) > 0 {
		req.Hints = maps.Clone(proc.Hints)
	}
	var (
		positionals []string
		paths       []string
	)
	for _, param := range proc.Params {
		raw, present := args[param.Name]
		if !present || raw == nil {
			raw, present = param.Default, param.Default != nil
		}
		if param.Kind == KindFlag {
			on, err := asBool(raw, present)
			if err != nil {
				return Call{}, domain.E(domain.CodeInvalidRequest, op, fmt.Sprintf("%s: %v", param.Name, err), nil)
			}
			switch {
			case on:
				req.Args = append(req.Args, param.Flag)
			case present && param.Negate != "":
				req.Args = append(req.Args, param.Negate)
			}
			continue
		}
		if !present {
			if param.Required {
				return Call{}, domain.E(domain.CodeInvalidRequest, op, fmt.Sprintf("%s is required", param.Name), nil)
			}
			continue
		}
		values, err := asStrings(raw)
		if err != nil {
			return Call{}, domain.E(domain.CodeInvalidRequest, op, fmt.Sprintf("%s: %v", param.Name, err), nil)
		}
		if param.Hint != "" && len(values) > 0 {
			if req.Hints == nil {
				req.Hints = make(map[string]string)
			}
			req.Hints[param.Hint] = values[0]
		}
		switch param.Kind {
		case KindOption:
			for _, value := range values {
				if param.Joined {
					req.Args = append(req.Args, param.Flag+value)
				} else {
					req.Args = append(req.Args, param.Flag, value)
				}
			}
		case KindPositional:
			positionals = append(positionals, values...)
		case KindPath:
			positionals = append(positionals, values...)
			paths = append(paths, values...)
		case KindWorkdir:
			if len(values) > 0 {
				req.Dir = values[0]
				paths = append(paths, values[0])
			}
		case KindStdin:
			if len(values) > 0 {
				req.Stdin = []byte(values[0])
			}
		default:
			return Call{}, domain.E(domain.CodeInternal, op, fmt.Sprintf("%s: unknown kind %q", param.Name, param.Kind), nil)
		}
	}
	if len(positionals) > 0 {
		if proc.EndOfOptions {
			req.Args = append(req.Args, "--")
		}
		req.Args = append(req.Args, positionals...)
	}
	return Call{Request: req, Paths: paths}, nil
}

func asBool(raw any, present bool) (bool, error) {
	if !present {
		return false, nil
	}
	value, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("expected boolean, got %T", raw)
	}
	return value, nil
}

func asStrings(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case bool:
		return []string{strconv.FormatBool(v)}, nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return []string{strconv.FormatInt(int64(v), 10)}, nil
		}
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case int:
		return []string{strconv.Itoa(v)}, nil
	case int64:
		return []string{strconv.FormatInt(v, 10)}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			values, err := asStrings(item)
			if err != nil {
				return nil, err
			}
			if len(values) != 1 {
				return nil, fmt.Errorf("nested arrays are not supported")
			}
			out = append(out, values[0])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"clihub/internal/domain"
)

// callOutput is the structured content of a subprocess procedure result.
type callOutput struct {
	ExitCode       int        `json:"exitCode"`
	Kind           string     `json:"kind"`
	Value          any        `json:"value"`
	Normalized     bool       `json:"normalized"`
	NormalizeError string     `json:"normalizeError,omitempty"`
	Stderr         string     `json:"stderr,omitempty"`
	DurationMs     int64      `json:"durationMs"`
	Truncated      bool       `json:"truncated,omitempty"`
	Cached         bool       `json:"cached,omitempty"`
	Error          *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// executionResult renders a run. Non-zero exits and timeouts are tool
// errors that still carry whatever output was captured.
func executionResult(res domain.ExecutionResult, err error) *mcp.CallToolResult {
	out := callOutput{
		ExitCode:       res.ExitCode,
		Kind:           string(res.Value.Kind),
		Normalized:     res.Normalized,
		NormalizeError: res.NormalizeError,
		Stderr:         text(res.Stderr),
		DurationMs:     res.Duration.Milliseconds(),
		Truncated:      res.Truncated,
		Cached:         res.Cached,
	}
	if res.Value.Kind == domain.ValueData {
		out.Value = res.Value.Data
	} else {
		out.Value = res.Value.Text
	}
	if err != nil {
		out.Error = errorFrom(err)
	}

	var b strings.Builder
	switch {
	case res.Value.Kind == domain.ValueData:
		raw, marshalErr := json.MarshalIndent(res.Value.Data, "", "  ")
		if marshalErr != nil {
			b.WriteString(text(res.Stdout))
		} else {
			b.Write(raw)
		}
	default:
		b.WriteString(res.Value.Text)
	}
	if out.Error != nil {
		appendSection(&b, fmt.Sprintf("error: %s: %s", out.Error.Code, out.Error.Message))
	} else if res.ExitCode != 0 {
		appendSection(&b, fmt.Sprintf("exit code: %d", res.ExitCode))
	}
	if res.ExitCode != 0 && out.Stderr != "" {
		appendSection(&b, "stderr:\n"+out.Stderr)
	}
	if res.Truncated {
		appendSection(&b, "output truncated")
	}

	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: b.String()}},
		StructuredContent: out,
		IsError:           err != nil || res.ExitCode != 0,
	}
}

// dataResult renders an in-process result.
func dataResult(value any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(domain.E(domain.CodeInternal, "encode result", "", err))
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(raw)}},
		StructuredContent: value,
	}
}

// errorResult reports a failure the agent can act on.
func errorResult(err error) *mcp.CallToolResult {
	body := errorFrom(err)
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: body.Code + ": " + body.Message}},
		StructuredContent: map[string]any{"error": body},
		IsError:           true,
	}
}

func errorFrom(err error) *errorBody {
	body := &errorBody{Code: string(domain.CodeInternal), Message: err.Error()}
	if code, ok := domain.CodeFrom(err); ok {
		body.Code = string(code)
	}
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		if domainErr.Message != "" {
			body.Message = domainErr.Message
		}
		body.Meta = domainErr.Meta
	}
	return body
}

func appendSection(b *strings.Builder, section string) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(section)
}

func text(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), "�")
}

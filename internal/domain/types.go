package domain

import (
	"context"
	"time"
)

// OutputFormat selects how raw stdout is turned into a structured value.
type OutputFormat string

const (
	FormatText        OutputFormat = "text"
	FormatLines       OutputFormat = "lines"
	FormatJSON        OutputFormat = "json"
	FormatJSONLines   OutputFormat = "jsonl"
	FormatYAML        OutputFormat = "yaml"
	FormatTOML        OutputFormat = "toml"
	FormatColumns     OutputFormat = "columns"
	FormatTSV         OutputFormat = "tsv"
	FormatCSV         OutputFormat = "csv"
	FormatListing     OutputFormat = "listing"
	FormatPathList    OutputFormat = "pathlist"
	FormatRanked      OutputFormat = "ranked"
	FormatDiskUsage   OutputFormat = "diskusage"
	FormatUnifiedDiff OutputFormat = "unified_diff"
	FormatFileType    OutputFormat = "filetype"
	FormatGrep        OutputFormat = "grep"
)

// ValueKind tags the variant held by a StructuredValue.
type ValueKind string

const (
	ValueText ValueKind = "text"
	ValueData ValueKind = "data"
)

// ExecutionRequest describes one subprocess invocation. It is treated as
// immutable once handed to an Executor.
type ExecutionRequest struct {
	Tool     string
	Args     []string
	Stdin    []byte
	Timeout  time.Duration
	Env      map[string]string
	Dir      string
	Format   OutputFormat
	CacheTTL time.Duration
	// Hints carries call context for tool-specific parsers, such as the
	// listed path or the fuzzy query.
	Hints map[string]string
}

// StructuredValue is either an opaque text blob or a JSON-compatible tree.
type StructuredValue struct {
	Kind ValueKind `json:"kind"`
	Text string    `json:"text,omitempty"`
	Data any       `json:"data,omitempty"`
}

// TextValue wraps raw output as an opaque value.
func TextValue(text string) StructuredValue {
	return StructuredValue{Kind: ValueText, Text: text}
}

// DataValue wraps a parsed tree.
func DataValue(data any) StructuredValue {
	return StructuredValue{Kind: ValueData, Data: data}
}

// ExecutionResult is the outcome of a process that ran to completion or
// was cut short by its deadline. A non-zero ExitCode is not an error.
type ExecutionResult struct {
	ExitCode       int             `json:"exitCode"`
	Stdout         []byte          `json:"-"`
	Stderr         []byte          `json:"-"`
	Duration       time.Duration   `json:"duration"`
	Value          StructuredValue `json:"value"`
	Normalized     bool            `json:"normalized"`
	NormalizeError string          `json:"normalizeError,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	Truncated      bool            `json:"truncated,omitempty"`
	Cached         bool            `json:"cached,omitempty"`
}

// Success reports whether the process exited cleanly.
func (r ExecutionResult) Success() bool {
	return r.ExitCode == 0
}

// Executor runs execution requests end to end.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (ExecutionResult, error)
}

// Hint keys understood by the output normalizer.
const (
	HintPath  = "path"
	HintQuery = "query"
	HintFileA = "file_a"
	HintFileB = "file_b"

	HintLayout    = "layout"
	LayoutAligned = "aligned"
)

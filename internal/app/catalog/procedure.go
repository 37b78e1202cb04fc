// Package catalog is the closed set of procedures clihub exposes, grouped
// for visibility control.
package catalog

import (
	"time"

	"clihub/internal/domain"
)

// ParamKind selects how a parameter reaches the subprocess.
type ParamKind string

const (
	// KindFlag is a boolean switch emitted as Flag when true.
	KindFlag ParamKind = "flag"
	// KindOption emits Flag followed by the value, once per array element.
	KindOption ParamKind = "option"
	// KindPositional appends the value after all options.
	KindPositional ParamKind = "positional"
	// KindPath is a positional checked against ignore rules.
	KindPath ParamKind = "path"
	// KindWorkdir sets the working directory and is checked against ignore
	// rules.
	KindWorkdir ParamKind = "workdir"
	// KindStdin feeds the value to standard input.
	KindStdin ParamKind = "stdin"
)

// ValueType is the JSON type of a parameter value.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeInteger ValueType = "integer"
	TypeBoolean ValueType = "boolean"
	TypeArray   ValueType = "array"
)

// Param declares one input of a procedure.
type Param struct {
	Name        string
	Kind        ParamKind
	Type        ValueType
	Description string
	Required    bool
	Enum        []string
	// Flag is the switch or option name, such as "-a" or "--level".
	Flag string
	// Joined emits options as one argument: Flag+value ("--level=2", "-tf").
	Joined bool
	// Default applies when the argument is absent. Flags with Default true
	// are emitted unless explicitly disabled, in which case Negate is
	// emitted if set.
	Default any
	Negate  string
	// Hint copies the value into the normalizer hint of this name.
	Hint string
}

// Procedure describes one callable tool. Procedures without a Binary are
// served in-process.
type Procedure struct {
	Name        string
	Group       domain.GroupID
	Description string
	Binary      string
	Base        []string
	Params      []Param
	Format      domain.OutputFormat
	// CacheTTL enables result caching; domain.UseDefaultCacheTTL applies
	// the configured default.
	CacheTTL time.Duration
	// Auth names the service whose login state gates the call.
	Auth string
	// Hints are static normalizer hints.
	Hints map[string]string
	// EndOfOptions inserts "--" before the first positional argument.
	EndOfOptions bool
	// Timeout overrides the configured default.
	Timeout time.Duration
	// ReadOnly marks procedures that never modify state.
	ReadOnly bool
	// IgnoreFiles marks search tools that take --ignore-file; the active
	// ignore files are passed after Base.
	IgnoreFiles bool
}

// Builtin reports whether the procedure is served in-process.
func (p Procedure) Builtin() bool {
	return p.Binary == ""
}

func (p Procedure) param(name string) (Param, bool) {
	for _, param := range p.Params {
		if param.Name == name {
			return param, true
		}
	}
	return Param{}, false
}

// AuthService describes how to probe a login state.
type AuthService struct {
	Name    string
	Binary  string
	Args    []string
	Hint    string
	MaxAge  time.Duration
	Timeout time.Duration
}

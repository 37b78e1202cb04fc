// Package normalize turns raw subprocess output into structured values.
// Every parser is best effort: a failure degrades to the raw text.
package normalize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"clihub/internal/domain"
)

// Input is the raw material for one normalization.
type Input struct {
	Format domain.OutputFormat
	Stdout []byte
	Hints  map[string]string
}

// Output is the normalized view of an execution's stdout.
type Output struct {
	Value      domain.StructuredValue
	Normalized bool
	Err        error
	Summary    string
}

// ParseFunc converts stdout into a JSON-compatible tree.
type ParseFunc func(text string, hints map[string]string) (any, error)

// Normalizer dispatches on the output format hint.
type Normalizer struct {
	parsers map[domain.OutputFormat]ParseFunc
}

func New() *Normalizer {
	n := &Normalizer{parsers: make(map[domain.OutputFormat]ParseFunc)}
	n.Register(domain.FormatLines, parseLines)
	n.Register(domain.FormatJSON, parseJSON)
	n.Register(domain.FormatJSONLines, parseJSONLines)
	n.Register(domain.FormatYAML, parseYAML)
	n.Register(domain.FormatTOML, parseTOML)
	n.Register(domain.FormatColumns, parseColumns)
	n.Register(domain.FormatTSV, parseDelimited('\t'))
	n.Register(domain.FormatCSV, parseDelimited(','))
	n.Register(domain.FormatListing, parseListing)
	n.Register(domain.FormatPathList, parsePathList)
	n.Register(domain.FormatRanked, parseRanked)
	n.Register(domain.FormatDiskUsage, parseDiskUsage)
	n.Register(domain.FormatUnifiedDiff, parseUnifiedDiff)
	n.Register(domain.FormatFileType, parseFileType)
	n.Register(domain.FormatGrep, parseGrep)
	return n
}

// Register installs or replaces the parser for format.
func (n *Normalizer) Register(format domain.OutputFormat, parse ParseFunc) {
	n.parsers[format] = parse
}

// Supports reports whether format has a parser or is plain text.
func (n *Normalizer) Supports(format domain.OutputFormat) bool {
	if format == "" || format == domain.FormatText {
		return true
	}
	_, ok := n.parsers[format]
	return ok
}

// Normalize never fails. Parse errors are reported in Output.Err with the
// value falling back to raw text and Normalized set to false.
func (n *Normalizer) Normalize(in Input) (out Output) {
	text := string(in.Stdout)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	if in.Format == "" || in.Format == domain.FormatText {
		return Output{Value: domain.TextValue(text), Normalized: true, Summary: summarizeText(text)}
	}
	parse, ok := n.parsers[in.Format]
	if !ok {
		return fallback(text, fmt.Errorf("unsupported output format %q", in.Format))
	}

	defer func() {
		if r := recover(); r != nil {
			out = fallback(text, fmt.Errorf("%s parser panicked: %v", in.Format, r))
		}
	}()

	data, err := parse(text, in.Hints)
	if err != nil {
		return fallback(text, fmt.Errorf("parse %s output: %w", in.Format, err))
	}
	return Output{
		Value:      domain.DataValue(data),
		Normalized: true,
		Summary:    summarizeData(in.Format, data),
	}
}

func fallback(text string, err error) Output {
	return Output{
		Value:      domain.TextValue(text),
		Normalized: false,
		Err:        err,
		Summary:    summarizeText(text),
	}
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func parseLines(text string, _ map[string]string) (any, error) {
	return nonEmptyLines(text), nil
}

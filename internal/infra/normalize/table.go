package normalize

import (
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode"

	"clihub/internal/domain"
)

type column struct {
	name  string
	start int
}

var alignedCell = regexp.MustCompile(`\S+(?: \S+)*`)

// parseColumns reads a table whose first row is a header, as printed by ps,
// kubectl get, podman ps and similar tools. By default cells are split on
// whitespace and the last column keeps the rest of the line. With the
// "layout" hint set to "aligned", header cells are separated by two or more
// spaces and rows are sliced at the header offsets, which suits tables
// whose values contain spaces.
func parseColumns(text string, hints map[string]string) (any, error) {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return []any{}, nil
	}
	aligned := hints[domain.HintLayout] == domain.LayoutAligned
	cols := headerColumns(lines[0], aligned)
	if len(cols) == 0 {
		return nil, errors.New("missing table header")
	}
	rows := make([]any, 0, len(lines)-1)
	for _, line := range lines[1:] {
		var values []string
		if aligned {
			values = sliceByColumns(line, cols)
		} else {
			values = splitFieldsN(line, len(cols))
			for len(values) < len(cols) {
				values = append(values, "")
			}
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col.name] = values[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func headerColumns(header string, aligned bool) []column {
	header = strings.TrimRight(header, " \t")
	var cols []column
	if aligned {
		for _, loc := range alignedCell.FindAllStringIndex(header, -1) {
			cols = append(cols, column{name: columnKey(header[loc[0]:loc[1]]), start: loc[0]})
		}
		return cols
	}
	start := -1
	for i, r := range header + " " {
		switch {
		case unicode.IsSpace(r) && start >= 0:
			cols = append(cols, column{name: columnKey(header[start:i]), start: start})
			start = -1
		case !unicode.IsSpace(r) && start < 0:
			start = i
		}
	}
	return cols
}

func columnKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Join(strings.Fields(key), "_")
	return strings.Trim(key, "%")
}

// splitFieldsN splits on whitespace into at most n fields; the last field
// keeps the remainder of the line verbatim.
func splitFieldsN(line string, n int) []string {
	out := make([]string, 0, n)
	rest := strings.TrimLeft(line, " \t")
	for len(out) < n-1 && rest != "" {
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			out = append(out, rest)
			rest = ""
			break
		}
		out = append(out, rest[:idx])
		rest = strings.TrimLeft(rest[idx:], " \t")
	}
	if rest != "" {
		out = append(out, strings.TrimRight(rest, " \t"))
	}
	return out
}

func sliceByColumns(line string, cols []column) []string {
	values := make([]string, len(cols))
	for i, col := range cols {
		if col.start >= len(line) {
			continue
		}
		end := len(line)
		if i+1 < len(cols) && cols[i+1].start < end {
			end = cols[i+1].start
		}
		values[i] = strings.TrimSpace(line[col.start:end])
	}
	return values
}

func parseDelimited(comma rune) ParseFunc {
	return func(text string, _ map[string]string) (any, error) {
		reader := csv.NewReader(strings.NewReader(text))
		reader.Comma = comma
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = comma != '\t'

		header, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return []any{}, nil
		}
		if err != nil {
			return nil, err
		}
		keys := make([]string, len(header))
		for i, cell := range header {
			keys[i] = columnKey(cell)
		}

		rows := make([]any, 0)
		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, err
			}
			row := make(map[string]any, len(keys))
			for i, key := range keys {
				if i < len(record) {
					row[key] = record[i]
				} else {
					row[key] = ""
				}
			}
			rows = append(rows, row)
		}
		return rows, nil
	}
}

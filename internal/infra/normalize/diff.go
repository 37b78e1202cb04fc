package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"clihub/internal/domain"
)

type diffLine struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	OldLine *int   `json:"old_line,omitempty"`
	NewLine *int   `json:"new_line,omitempty"`
}

type diffHunk struct {
	OldStart int        `json:"old_start"`
	OldCount int        `json:"old_count"`
	NewStart int        `json:"new_start"`
	NewCount int        `json:"new_count"`
	Lines    []diffLine `json:"lines"`
}

type diffFile struct {
	OldPath string     `json:"old_path,omitempty"`
	NewPath string     `json:"new_path,omitempty"`
	Hunks   []diffHunk `json:"hunks"`
}

// parseUnifiedDiff handles `diff -u` and `git diff` output, including
// several files per patch.
func parseUnifiedDiff(text string, hints map[string]string) (any, error) {
	var (
		files     []*diffFile
		file      *diffFile
		hunk      *diffHunk
		oldLine   int
		newLine   int
		oldRemain int
		newRemain int
	)
	current := func() *diffFile {
		if file == nil {
			file = &diffFile{OldPath: hints[domain.HintFileA], NewPath: hints[domain.HintFileB]}
			files = append(files, file)
		}
		return file
	}
	flush := func() {
		if hunk != nil {
			f := current()
			f.Hunks = append(f.Hunks, *hunk)
			hunk = nil
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if hunk != nil && (oldRemain > 0 || newRemain > 0) {
			switch {
			case strings.HasPrefix(line, "+"):
				n := newLine
				hunk.Lines = append(hunk.Lines, diffLine{Type: "add", Content: line[1:], NewLine: &n})
				newLine++
				newRemain--
			case strings.HasPrefix(line, "-"):
				o := oldLine
				hunk.Lines = append(hunk.Lines, diffLine{Type: "remove", Content: line[1:], OldLine: &o})
				oldLine++
				oldRemain--
			case strings.HasPrefix(line, " "), line == "":
				o, n := oldLine, newLine
				content := ""
				if line != "" {
					content = line[1:]
				}
				hunk.Lines = append(hunk.Lines, diffLine{Type: "context", Content: content, OldLine: &o, NewLine: &n})
				oldLine++
				newLine++
				oldRemain--
				newRemain--
			case strings.HasPrefix(line, "\\"):
				// "\ No newline at end of file"
			default:
				return nil, fmt.Errorf("unexpected line in hunk: %q", line)
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			file = nil
			current()
		case strings.HasPrefix(line, "--- "):
			flush()
			if file != nil && len(file.Hunks) > 0 {
				file = nil
			}
			current().OldPath = trimDiffPath(line[4:])
		case strings.HasPrefix(line, "+++ "):
			current().NewPath = trimDiffPath(line[4:])
		case strings.HasPrefix(line, "@@"):
			flush()
			h, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}
			hunk = &h
			oldLine, newLine = h.OldStart, h.NewStart
			oldRemain, newRemain = h.OldCount, h.NewCount
		}
	}
	flush()

	out := make([]diffFile, 0, len(files))
	additions, deletions := 0, 0
	for _, f := range files {
		if f.Hunks == nil {
			f.Hunks = []diffHunk{}
		}
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				switch l.Type {
				case "add":
					additions++
				case "remove":
					deletions++
				}
			}
		}
		out = append(out, *f)
	}
	return toJSONTree(map[string]any{
		"files":     out,
		"additions": additions,
		"deletions": deletions,
	})
}

func trimDiffPath(raw string) string {
	path, _, _ := strings.Cut(raw, "\t")
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

// parseHunkHeader reads "@@ -a,b +c,d @@ section".
func parseHunkHeader(line string) (diffHunk, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return diffHunk{}, fmt.Errorf("malformed hunk header %q", line)
	}
	oldStart, oldCount, err := parseRange(fields[1], '-')
	if err != nil {
		return diffHunk{}, err
	}
	newStart, newCount, err := parseRange(fields[2], '+')
	if err != nil {
		return diffHunk{}, err
	}
	return diffHunk{OldStart: oldStart, OldCount: oldCount, NewStart: newStart, NewCount: newCount, Lines: []diffLine{}}, nil
}

func parseRange(raw string, sign byte) (int, int, error) {
	if raw == "" || raw[0] != sign {
		return 0, 0, fmt.Errorf("malformed hunk range %q", raw)
	}
	startText, countText, hasCount := strings.Cut(raw[1:], ",")
	start, err := strconv.Atoi(startText)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed hunk range %q", raw)
	}
	count := 1
	if hasCount {
		if count, err = strconv.Atoi(countText); err != nil {
			return 0, 0, fmt.Errorf("malformed hunk range %q", raw)
		}
	}
	return start, count, nil
}

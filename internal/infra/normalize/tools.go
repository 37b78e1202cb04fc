package normalize

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"clihub/internal/domain"
)

// parseListing handles long-format directory listings (eza -l, ls -l). The
// entry name is the last whitespace-separated token.
func parseListing(text string, hints map[string]string) (any, error) {
	lines := nonEmptyLines(text)
	entries := make([]any, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		fields := strings.Fields(trimmed)
		entry := map[string]any{"name": fields[len(fields)-1]}
		if len(fields) >= 2 {
			entry["raw"] = trimmed
		}
		if strings.HasPrefix(trimmed, "d") && len(fields) >= 2 {
			entry["type"] = "directory"
		} else if len(fields) >= 2 {
			entry["type"] = "file"
		}
		entries = append(entries, entry)
	}
	return map[string]any{
		"path":    hintOr(hints, domain.HintPath, "."),
		"entries": entries,
		"count":   len(entries),
	}, nil
}

func parsePathList(text string, _ map[string]string) (any, error) {
	lines := nonEmptyLines(text)
	files := make([]any, 0, len(lines))
	for _, line := range lines {
		path := strings.TrimSpace(line)
		files = append(files, map[string]any{
			"path": path,
			"name": filepath.Base(strings.TrimRight(path, "/")),
		})
	}
	return map[string]any{
		"files": files,
		"count": len(files),
	}, nil
}

func parseRanked(text string, hints map[string]string) (any, error) {
	lines := nonEmptyLines(text)
	matches := make([]any, 0, len(lines))
	for i, line := range lines {
		matches = append(matches, map[string]any{
			"rank":  i + 1,
			"match": strings.TrimSpace(line),
		})
	}
	return map[string]any{
		"query":   hints[domain.HintQuery],
		"matches": matches,
		"count":   len(matches),
	}, nil
}

const treeGlyphs = "├└┌┬┴─│ "

// parseDiskUsage reads dust output: "  1.2G   ┌── target │████ │  60%".
func parseDiskUsage(text string, hints map[string]string) (any, error) {
	entries := make([]any, 0)
	for _, line := range nonEmptyLines(text) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Total:") {
			continue
		}
		size, rest, ok := strings.Cut(trimmed, " ")
		if !ok {
			continue
		}
		rest = strings.TrimLeft(rest, treeGlyphs)
		name := rest
		entry := map[string]any{"size": size}
		if idx := strings.Index(rest, " │"); idx >= 0 {
			name = rest[:idx]
			tail := strings.TrimSpace(rest[idx:])
			if pct := strings.LastIndex(tail, " "); pct >= 0 && strings.HasSuffix(tail, "%") {
				if value, err := strconv.ParseFloat(strings.TrimSuffix(tail[pct+1:], "%"), 64); err == nil {
					entry["percent"] = value
				}
			}
		}
		entry["name"] = strings.TrimSpace(name)
		entries = append(entries, entry)
	}
	return map[string]any{
		"path":    hintOr(hints, domain.HintPath, "."),
		"entries": entries,
		"count":   len(entries),
	}, nil
}

// parseFileType reads `file` output in either "path: description" or the
// brief form, with an optional "; charset=" suffix from --mime.
func parseFileType(text string, hints map[string]string) (any, error) {
	path := hints[domain.HintPath]
	description := strings.TrimSpace(text)
	if description == "" {
		return nil, errors.New("empty file output")
	}
	if path != "" {
		description = strings.TrimPrefix(description, path+": ")
	}
	mimeType := "unknown"
	if head, _, ok := strings.Cut(description, ";"); ok {
		mimeType = strings.TrimSpace(head)
	} else if strings.Count(description, "/") == 1 && !strings.Contains(description, " ") {
		mimeType = description
	}
	return map[string]any{
		"path":        path,
		"mime_type":   mimeType,
		"description": description,
		"category":    categorizeFileType(description),
	}, nil
}

func categorizeFileType(description string) string {
	lower := strings.ToLower(description)
	switch {
	case strings.Contains(lower, "directory"):
		return "directory"
	case strings.Contains(lower, "text"):
		return "text"
	case strings.Contains(lower, "executable"), strings.Contains(lower, "elf"):
		return "executable"
	case strings.Contains(lower, "image"):
		return "image"
	case strings.Contains(lower, "audio"):
		return "audio"
	case strings.Contains(lower, "video"):
		return "video"
	case strings.Contains(lower, "archive"), strings.Contains(lower, "compressed"),
		strings.Contains(lower, "zip"), strings.Contains(lower, "tar"):
		return "archive"
	default:
		return "other"
	}
}

// parseGrep reads "path:line:text" match lines from rg or grep -n.
// Context separators ("--") are skipped.
func parseGrep(text string, _ map[string]string) (any, error) {
	matches := make([]any, 0)
	for _, line := range nonEmptyLines(text) {
		if line == "--" {
			continue
		}
		path, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.New("line is not path:line:text")
		}
		lineNo, body, ok := strings.Cut(rest, ":")
		number, err := strconv.Atoi(lineNo)
		if !ok || err != nil {
			matches = append(matches, map[string]any{"path": path, "text": rest})
			continue
		}
		matches = append(matches, map[string]any{
			"path": path,
			"line": number,
			"text": body,
		})
	}
	return matches, nil
}

func hintOr(hints map[string]string, key, fallback string) string {
	if value := strings.TrimSpace(hints[key]); value != "" {
		return value
	}
	return fallback
}

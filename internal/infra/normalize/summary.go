package normalize

import (
	"fmt"
	"slices"
	"strings"

	"clihub/internal/domain"
)

func summarizeText(text string) string {
	lines := len(nonEmptyLines(text))
	if lines == 0 {
		return "no output"
	}
	if lines == 1 {
		return "1 line of output"
	}
	return fmt.Sprintf("%d lines of output", lines)
}

func summarizeData(format domain.OutputFormat, data any) string {
	switch v := data.(type) {
	case nil:
		return "no output"
	case []any:
		return fmt.Sprintf("%d %s", len(v), plural(itemNoun(format), len(v)))
	case []string:
		return fmt.Sprintf("%d %s", len(v), plural(itemNoun(format), len(v)))
	case map[string]any:
		switch format {
		case domain.FormatUnifiedDiff:
			files, _ := v["files"].([]any)
			return fmt.Sprintf("%d %s changed, %v insertions(+), %v deletions(-)",
				len(files), plural("file", len(files)), v["additions"], v["deletions"])
		case domain.FormatFileType:
			return fmt.Sprintf("%v: %v", v["path"], v["description"])
		}
		if count, ok := v["count"].(int); ok {
			return fmt.Sprintf("%d %s", count, plural(itemNoun(format), count))
		}
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		if len(keys) > 5 {
			return fmt.Sprintf("object with %d keys", len(keys))
		}
		return "object with keys " + strings.Join(keys, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

func itemNoun(format domain.OutputFormat) string {
	switch format {
	case domain.FormatColumns, domain.FormatTSV, domain.FormatCSV:
		return "row"
	case domain.FormatLines:
		return "line"
	case domain.FormatPathList:
		return "file"
	case domain.FormatRanked, domain.FormatGrep:
		return "match"
	case domain.FormatListing, domain.FormatDiskUsage:
		return "entry"
	default:
		return "item"
	}
}

func plural(noun string, n int) string {
	if n == 1 {
		return noun
	}
	switch {
	case strings.HasSuffix(noun, "ch"):
		return noun + "es"
	case strings.HasSuffix(noun, "y"):
		return strings.TrimSuffix(noun, "y") + "ies"
	default:
		return noun + "s"
	}
}

package output

import (
	"fmt"
	"strings"

	"github.com/temirov/dirmap/internal/types"
	"github.com/temirov/dirmap/internal/utils"
)

func pluralize(count int, singular string, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// FormatSummaryLine renders the closing summary of a report. Embedded counts, sizes and
// token estimates only appear for content scans.
func FormatSummaryLine(summary types.ScanSummary, includeContent bool) string {
	var builder strings.Builder
	builder.WriteString("Summary: ")
	builder.WriteString(pluralize(summary.Files, "file", "files"))
	builder.WriteString(", ")
	builder.WriteString(pluralize(summary.Directories, "directory", "directories"))
	fmt.Fprintf(&builder, " (%d pruned)", summary.PrunedDirectories)
	if !includeContent {
		return builder.String()
	}
	fmt.Fprintf(&builder, ", %d embedded, %s", summary.EmbeddedFiles, utils.FormatFileSize(summary.EmbeddedBytes))
	if summary.Tokens > 0 {
		fmt.Fprintf(&builder, ", %d tokens", summary.Tokens)
		if summary.Model != "" {
			fmt.Fprintf(&builder, " (%s)", summary.Model)
		}
	}
	return builder.String()
}

package commands

import (
	"sort"
	"strings"

	"github.com/temirov/dirmap/internal/utils"
)

// AllExtensionsKeyword selects every extension when it appears in an extension list.
const AllExtensionsKeyword = "all"

// DefaultContentExtensions lists the source-code extensions embedded by default in content mode.
var DefaultContentExtensions = []string{
	".py", ".js", ".jsx", ".ts", ".tsx", ".html", ".css", ".scss", ".less",
	".json", ".java", ".c", ".cpp", ".h", ".cs", ".php", ".rb", ".go",
	".rs", ".swift", ".kt", ".sql", ".xml", ".yaml", ".yml", ".sh", ".bat", ".md",
	".txt", ".ini", ".cfg", ".conf",
}

// ContentFilter decides which files have their content embedded.
type ContentFilter struct {
	allowAll   bool
	extensions map[string]struct{}
}

// NewContentFilter builds a filter from extensions. The filter admits every file when
// allowAll is set or when extensions contain AllExtensionsKeyword.
func NewContentFilter(extensions []string, allowAll bool) ContentFilter {
	filter := ContentFilter{allowAll: allowAll, extensions: make(map[string]struct{}, len(extensions))}
	for _, extension := range extensions {
		if strings.EqualFold(strings.TrimSpace(extension), AllExtensionsKeyword) {
			filter.allowAll = true
			continue
		}
		normalizedExtension := utils.NormalizeExtension(extension)
		if normalizedExtension == "" {
			continue
		}
		filter.extensions[normalizedExtension] = struct{}{}
	}
	return filter
}

// Allows reports whether content of fileName is eligible for embedding.
// Extensions compare case-insensitively.
func (filter ContentFilter) Allows(fileName string) bool {
	if filter.allowAll {
		return true
	}
	_, allowed := filter.extensions[utils.FileExtension(fileName)]
	return allowed
}

// AllowsAll reports whether the filter admits every extension.
func (filter ContentFilter) AllowsAll() bool {
	return filter.allowAll
}

// Extensions returns the sorted allowed extensions.
func (filter ContentFilter) Extensions() []string {
	extensions := make([]string, 0, len(filter.extensions))
	for extension := range filter.extensions {
		extensions = append(extensions, extension)
	}
	sort.Strings(extensions)
	return extensions
}

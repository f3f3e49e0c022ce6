package utils

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const pathSegmentSeparator = "/"

// MatchesAnyPattern reports whether relativePath matches one of the doublestar patterns.
// Patterns and paths are compared in forward-slash form. A pattern with a trailing slash
// only matches directories, a leading slash anchors the pattern to the root, and a pattern
// without any other slash also matches the base name at every depth, mirroring .gitignore
// conventions.
func MatchesAnyPattern(relativePath string, isDirectory bool, patterns []string) bool {
	slashPath := strings.TrimPrefix(filepath.ToSlash(relativePath), "./")
	baseName := path.Base(slashPath)
	for _, pattern := range patterns {
		normalizedPattern := filepath.ToSlash(strings.TrimSpace(pattern))
		if normalizedPattern == "" {
			continue
		}
		if strings.HasSuffix(normalizedPattern, pathSegmentSeparator) {
			if !isDirectory {
				continue
			}
			normalizedPattern = strings.TrimSuffix(normalizedPattern, pathSegmentSeparator)
		}
		isAnchored := strings.HasPrefix(normalizedPattern, pathSegmentSeparator)
		normalizedPattern = strings.TrimPrefix(normalizedPattern, pathSegmentSeparator)
		if matched, matchError := doublestar.Match(normalizedPattern, slashPath); matchError == nil && matched {
			return true
		}
		if isAnchored || strings.Contains(normalizedPattern, pathSegmentSeparator) {
			continue
		}
		if matched, matchError := doublestar.Match(normalizedPattern, baseName); matchError == nil && matched {
			return true
		}
	}
	return false
}

// ValidPattern reports whether pattern is a syntactically valid doublestar pattern.
func ValidPattern(pattern string) bool {
	normalizedPattern := filepath.ToSlash(strings.TrimSpace(pattern))
	normalizedPattern = strings.Trim(normalizedPattern, pathSegmentSeparator)
	return doublestar.ValidatePattern(normalizedPattern)
}

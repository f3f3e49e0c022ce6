// Package utils contains general helper functions shared by the dirmap packages.
package utils

import (
	"path/filepath"
	"strings"
)

const extensionSeparator = "."

// DeduplicatePatterns removes duplicate entries from a slice while preserving order.
// Blank entries are dropped and the first occurrence of each value is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{}, len(patterns))
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		if _, exists := encounteredPatterns[trimmedPattern]; exists {
			continue
		}
		encounteredPatterns[trimmedPattern] = struct{}{}
		result = append(result, trimmedPattern)
	}
	return result
}

// RelativePathOrSelf calculates the slash-separated path of fullPath relative to root.
// Returns "." when both resolve to the same directory and the cleaned fullPath when
// no relative form exists.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	absoluteRoot, absoluteRootError := filepath.Abs(root)
	if absoluteRootError != nil {
		return cleanPath
	}
	cleanAbsoluteRoot := filepath.Clean(absoluteRoot)
	if cleanPath == cleanAbsoluteRoot {
		return "."
	}
	relativePath, relativePathError := filepath.Rel(cleanAbsoluteRoot, cleanPath)
	if relativePathError != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// NormalizeExtension lower-cases an extension and guarantees a leading dot.
// Blank input yields an empty string.
func NormalizeExtension(extension string) string {
	trimmedExtension := strings.ToLower(strings.TrimSpace(extension))
	if trimmedExtension == "" || trimmedExtension == extensionSeparator {
		return ""
	}
	if !strings.HasPrefix(trimmedExtension, extensionSeparator) {
		trimmedExtension = extensionSeparator + trimmedExtension
	}
	return trimmedExtension
}

// FileExtension returns the normalized extension of fileName, or an empty string.
func FileExtension(fileName string) string {
	return NormalizeExtension(filepath.Ext(fileName))
}

// Package config loads dirmap configuration files and ignore files.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/dirmap/internal/utils"
)

const (
	commentPrefix      = "#"
	negationPrefix     = "!"
	segmentSeparator   = "/"
	anyDepthSegment    = "**/"
	currentDirectory   = "."
	warningCloseFormat = "Warning: failed to close %s: %v\n"
)

// LoadIgnoreFilePatterns reads an ignore file and returns its non-blank, non-comment lines.
// A missing file yields no patterns and no error.
//
// #nosec G304
func LoadIgnoreFilePatterns(ignoreFilePath string) ([]string, error) {
	fileHandle, openFileError := os.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer func() {
		if closeError := fileHandle.Close(); closeError != nil {
			fmt.Fprintf(os.Stderr, warningCloseFormat, ignoreFilePath, closeError)
		}
	}()

	var ignorePatterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) {
			continue
		}
		ignorePatterns = append(ignorePatterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return ignorePatterns, nil
}

// LoadGitignoreGlobs reads the .gitignore inside directoryPath and converts its patterns
// into doublestar globs relative to the scan root. relativeDirectory is the slash form
// of directoryPath relative to the root ("." for the root itself). Negated patterns are
// not supported and are skipped.
func LoadGitignoreGlobs(directoryPath string, relativeDirectory string) ([]string, error) {
	gitignorePatterns, loadError := LoadIgnoreFilePatterns(filepath.Join(directoryPath, utils.GitIgnoreFileName))
	if loadError != nil {
		return nil, loadError
	}
	return GitignoreGlobs(relativeDirectory, gitignorePatterns), nil
}

// GitignoreGlobs converts .gitignore lines found in relativeDirectory into doublestar globs.
// Anchored globs keep a leading slash and directory-only globs keep a trailing slash,
// matching utils.MatchesAnyPattern conventions.
func GitignoreGlobs(relativeDirectory string, gitignorePatterns []string) []string {
	prefix := ""
	if relativeDirectory != "" && relativeDirectory != currentDirectory {
		prefix = strings.TrimSuffix(filepath.ToSlash(relativeDirectory), segmentSeparator) + segmentSeparator
	}

	globs := make([]string, 0, len(gitignorePatterns))
	for _, gitignorePattern := range gitignorePatterns {
		pattern := strings.TrimSpace(gitignorePattern)
		if pattern == "" || strings.HasPrefix(pattern, commentPrefix) || strings.HasPrefix(pattern, negationPrefix) {
			continue
		}
		isDirectoryOnly := strings.HasSuffix(pattern, segmentSeparator)
		pattern = strings.TrimSuffix(pattern, segmentSeparator)
		isAnchored := strings.Contains(pattern, segmentSeparator)
		pattern = strings.TrimPrefix(pattern, segmentSeparator)
		if pattern == "" {
			continue
		}

		var glob string
		switch {
		case isAnchored:
			glob = segmentSeparator + prefix + pattern
		case prefix == "":
			glob = pattern
		default:
			glob = prefix + anyDepthSegment + pattern
		}
		if isDirectoryOnly {
			glob += segmentSeparator
		}
		globs = append(globs, glob)
	}
	return utils.DeduplicatePatterns(globs)
}

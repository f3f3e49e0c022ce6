package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/dirmap/internal/types"
)

const pathSeparators = `/\`

// ResolveRoot converts rootPath to a clean absolute path and checks that it names an
// existing directory.
func ResolveRoot(rootPath string) (types.ValidatedPath, error) {
	if strings.TrimSpace(rootPath) == "" {
		return types.ValidatedPath{}, fmt.Errorf("%w: path is empty", ErrInvalidRoot)
	}
	absolutePath, absolutePathError := filepath.Abs(rootPath)
	if absolutePathError != nil {
		return types.ValidatedPath{}, fmt.Errorf("%w: abs failed for '%s': %w", ErrInvalidRoot, rootPath, absolutePathError)
	}
	cleanPath := filepath.Clean(absolutePath)
	info, statError := os.Stat(cleanPath)
	if statError != nil {
		if os.IsNotExist(statError) {
			return types.ValidatedPath{}, fmt.Errorf("%w: the path '%s' does not exist", ErrInvalidRoot, rootPath)
		}
		return types.ValidatedPath{}, fmt.Errorf("%w: stat failed for '%s': %w", ErrInvalidRoot, rootPath, statError)
	}
	if !info.IsDir() {
		return types.ValidatedPath{}, fmt.Errorf("%w: the path '%s' is not a directory", ErrInvalidRoot, rootPath)
	}
	return types.ValidatedPath{AbsolutePath: cleanPath, IsDir: true}, nil
}

// RootLabel normalizes the base name of rootPath for use in artifact names: lower case,
// whitespace runs replaced by underscores. Filesystem roots yield types.DefaultRootLabel.
func RootLabel(rootPath string) string {
	baseName := filepath.Base(filepath.Clean(rootPath))
	if strings.Trim(baseName, pathSeparators+".") == "" || filepath.VolumeName(rootPath) == strings.TrimRight(rootPath, pathSeparators) {
		return types.DefaultRootLabel
	}
	label := strings.ToLower(strings.Join(strings.Fields(baseName), "_"))
	if label == "" {
		return types.DefaultRootLabel
	}
	return label
}

// ArtifactName renders the artifact file name for a scan of rootPath. An empty template
// selects the mode's default. Templates must not contain path separators.
func ArtifactName(rootPath string, mode string, template string) (string, error) {
	nameTemplate := strings.TrimSpace(template)
	if nameTemplate == "" {
		nameTemplate = types.DefaultTreeNameTemplate
		if mode == types.CommandContent {
			nameTemplate = types.DefaultContentNameTemplate
		}
	}
	if strings.ContainsAny(nameTemplate, pathSeparators) {
		return "", fmt.Errorf("%w: output name template '%s' must not contain path separators", ErrInvalidOptions, template)
	}

	baseName := strings.ReplaceAll(nameTemplate, types.OutputNamePlaceholder, RootLabel(rootPath))
	baseName = strings.TrimSuffix(baseName, types.ArtifactExtension)
	if strings.Trim(baseName, ".") == "" {
		return "", fmt.Errorf("%w: output name template '%s' yields an empty file name", ErrInvalidOptions, template)
	}
	return baseName + types.ArtifactExtension, nil
}

package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion     = "unknown"
	develBuildVersion  = "(devel)"
	gitExecutableName  = "git"
	gitDescribeCommand = "describe"
)

var gitDescribeArgumentSets = [][]string{
	{gitDescribeCommand, "--tags", "--exact-match"},
	{gitDescribeCommand, "--tags", "--long", "--dirty"},
}

// GetApplicationVersion reports the module version embedded by the Go toolchain.
// Development builds fall back to git describe when run inside a checkout.
func GetApplicationVersion() string {
	if buildInfo, buildInfoAvailable := debug.ReadBuildInfo(); buildInfoAvailable {
		moduleVersion := buildInfo.Main.Version
		if moduleVersion != "" && moduleVersion != develBuildVersion {
			return moduleVersion
		}
	}
	repositoryDirectory, repositoryLookupError := findRepositoryDirectory(".")
	if repositoryLookupError != nil {
		return unknownVersion
	}
	for _, describeArguments := range gitDescribeArgumentSets {
		// #nosec G204
		describeCommand := exec.Command(gitExecutableName, describeArguments...)
		describeCommand.Dir = repositoryDirectory
		describeOutput, describeError := describeCommand.Output()
		if describeError == nil && len(describeOutput) > 0 {
			return strings.TrimSpace(string(describeOutput))
		}
	}
	return unknownVersion
}

// findRepositoryDirectory walks upward from startDirectory until it finds a directory holding .git.
func findRepositoryDirectory(startDirectory string) (string, error) {
	absoluteStartDirectory, absolutePathError := filepath.Abs(startDirectory)
	if absolutePathError != nil {
		return "", fmt.Errorf("resolve %s: %w", startDirectory, absolutePathError)
	}
	for currentDirectory := absoluteStartDirectory; ; {
		fileInformation, statError := os.Stat(filepath.Join(currentDirectory, GitDirectoryName))
		if statError == nil && fileInformation.IsDir() {
			return currentDirectory, nil
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			return "", fmt.Errorf("%s not found in or above %s", GitDirectoryName, absoluteStartDirectory)
		}
		currentDirectory = parentDirectory
	}
}

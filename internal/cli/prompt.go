package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	promptMessage   = "Enter the directory path to map: "
	pathQuoteCutset = "\"'"
)

var errEmptyPromptPath = errors.New("no directory path entered")

// promptForPath reads one line from input and returns it as a path. The prompt is only
// written when interactive is set, so piped input produces clean output.
func promptForPath(input io.Reader, output io.Writer, interactive bool) (string, error) {
	if interactive {
		fmt.Fprint(output, promptMessage)
	}
	line, readError := bufio.NewReader(input).ReadString('\n')
	if readError != nil && !errors.Is(readError, io.EOF) {
		return "", fmt.Errorf("read directory path: %w", readError)
	}
	path := strings.Trim(strings.TrimSpace(line), pathQuoteCutset)
	if path == "" {
		return "", errEmptyPromptPath
	}
	return path, nil
}

func isInteractive(input io.Reader) bool {
	file, isFile := input.(*os.File)
	if !isFile {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

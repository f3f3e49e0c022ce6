package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/temirov/dirmap/internal/tokenizer"
	"github.com/temirov/dirmap/internal/utils"
)

// ErrFileRead marks a per-file read failure. It is recorded in the report and never
// aborts a scan.
var ErrFileRead = errors.New("file read failed")

// ContentStatus describes what happened to a file's content during a scan.
type ContentStatus int

const (
	// ContentNotRequested is reported in tree mode, where content is never read.
	ContentNotRequested ContentStatus = iota
	// ContentEmbedded means the content was read as UTF-8 text.
	ContentEmbedded
	// ContentSkippedExtension means the extension is outside the content filter.
	ContentSkippedExtension
	// ContentSkippedSize means the file exceeds the configured size limit.
	ContentSkippedSize
	// ContentUndecodable means the file is binary or not valid UTF-8.
	ContentUndecodable
	// ContentReadFailed means the file could not be read.
	ContentReadFailed
)

// FileContent is the outcome of inspecting one file.
type FileContent struct {
	Status    ContentStatus
	Text      string
	Extension string
	SizeBytes int64
	Limit     int64
	Err       error
	Tokens    int
	Model     string
}

type fileInspectionConfig struct {
	IncludeContent bool
	Filter         ContentFilter
	MaxFileSize    int64
	TokenCounter   tokenizer.Counter
	TokenModel     string
	Warn           func(string)
}

// inspectFile decides whether the file at path gets its content embedded. The file is
// only opened when content is requested, its extension is eligible, and its size is
// within the limit.
func inspectFile(path string, name string, sizeBytes int64, config fileInspectionConfig) FileContent {
	warn := config.Warn
	if warn == nil {
		warn = func(string) {}
	}

	result := FileContent{Extension: utils.FileExtension(name), SizeBytes: sizeBytes}
	if !config.IncludeContent {
		result.Status = ContentNotRequested
		return result
	}
	if !config.Filter.Allows(name) {
		result.Status = ContentSkippedExtension
		return result
	}
	if config.MaxFileSize > 0 && sizeBytes > config.MaxFileSize {
		result.Status = ContentSkippedSize
		result.Limit = config.MaxFileSize
		return result
	}

	// #nosec G304
	fileBytes, readError := os.ReadFile(path)
	if readError != nil {
		result.Status = ContentReadFailed
		result.Err = fmt.Errorf("%w: %w", ErrFileRead, readError)
		warn(fmt.Sprintf(WarningFileReadFormat, path, readError))
		return result
	}
	if utils.IsBinary(fileBytes) {
		result.Status = ContentUndecodable
		return result
	}

	result.Status = ContentEmbedded
	result.Text = string(fileBytes)
	result.SizeBytes = int64(len(fileBytes))

	if config.TokenCounter != nil {
		countResult, tokenError := tokenizer.CountBytes(config.TokenCounter, fileBytes)
		if tokenError != nil {
			warn(fmt.Sprintf(WarningTokenCountFormat, path, tokenError))
		} else if countResult.Counted {
			result.Tokens = countResult.Tokens
			if result.Tokens > 0 {
				result.Model = config.TokenModel
			}
		}
	}
	return result
}

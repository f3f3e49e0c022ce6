package output

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/temirov/dirmap/internal/services/stream"
	"github.com/temirov/dirmap/internal/types"
	"github.com/temirov/dirmap/internal/utils"
)

const (
	headerBanner    = "################################################################################"
	separatorLine   = "--------------------------------------------------------------------------------"
	indentUnit      = "    "
	directorySuffix = "/"

	treeBranchConnector = "├── "
	treeLastConnector   = "└── "

	treeHeaderFormat         = "# Directory Map For: %s\n"
	contentHeaderFormat      = "# Directory Content Map For: %s\n"
	generatedOnFormat        = "# Generated on: %s\n"
	filterExtensionsFormat   = "# Filter: Only content of files with these extensions is included: %s\n"
	filterAllLine            = "# Filter: Content of all files is included.\n"
	filterNoneLine           = "# Filter: No file extensions are eligible; content is omitted.\n"
	sizeLimitFormat          = "# Size limit: files larger than %d bytes are not embedded\n"
	prunedDirectoriesFormat  = "# Pruned directories: %s\n"
	excludedPatternsFormat   = "# Excluded patterns: %s\n"
	listSeparator            = ", "
	fileHeaderFormat         = "File: %s\n"
	contentLabel             = "Content:\n"
	endOfContentFormat       = "--- End of Content for %s ---\n"
	prunedMarker             = " [Content Ignored]"
	artifactMarker           = " [Report artifact: content not included]"
	emptyDirectoryNote       = "(empty directory)"
	subdirectoriesOnlyNote   = "(no files directly in this directory; see subdirectories)"
	unreadableDirectoryNote  = "(directory could not be read: %s)"
	skippedExtensionFormat   = "[Content skipped: file extension '%s' is not in the allowed list.]\n"
	skippedSizeFormat        = "[Content skipped: file size %d exceeds limit %d.]\n"
	undecodableContentLine   = "[Content: likely a binary file or not UTF-8 text. Content not displayed.]\n"
	readFailedContentFormat  = "[Content: could not read file. Error: %s]\n"
	missingExtensionSentinel = "(none)"
)

// reportRenderer writes the text artifact of one scan. The first write failure is kept
// and returned from every later Handle and Flush call.
type reportRenderer struct {
	writer         *bufio.Writer
	includeContent bool
	started        bool
	err            error
}

// NewReportRenderer returns a StreamRenderer that writes the report to writer.
func NewReportRenderer(writer io.Writer) StreamRenderer {
	return &reportRenderer{writer: bufio.NewWriter(writer)}
}

func (renderer *reportRenderer) Handle(event stream.Event) error {
	if renderer.err != nil {
		return renderer.err
	}
	switch event.Kind {
	case stream.EventKindStart:
		renderer.writeHeader(event.Start)
	case stream.EventKindDirectory:
		if event.Directory != nil && event.Directory.Phase == stream.DirectoryEnter {
			renderer.writeDirectory(event.Directory)
		}
	case stream.EventKindEntry:
		renderer.writeEntry(event.Entry)
	case stream.EventKindSummary:
		if event.Summary != nil {
			renderer.writeString("\n" + FormatSummaryLine(event.Summary.ToScanSummary(), renderer.includeContent) + "\n")
		}
	}
	return renderer.err
}

func (renderer *reportRenderer) Flush() error {
	if renderer.err != nil {
		return renderer.err
	}
	if flushError := renderer.writer.Flush(); flushError != nil {
		renderer.err = flushError
	}
	return renderer.err
}

func (renderer *reportRenderer) writeString(text string) {
	if renderer.err != nil {
		return
	}
	if _, writeError := renderer.writer.WriteString(text); writeError != nil {
		renderer.err = writeError
	}
}

func (renderer *reportRenderer) writef(format string, arguments ...any) {
	renderer.writeString(fmt.Sprintf(format, arguments...))
}

func (renderer *reportRenderer) writeHeader(start *stream.StartEvent) {
	if start == nil || renderer.started {
		return
	}
	renderer.started = true
	renderer.includeContent = start.IncludeContent

	renderer.writeString(headerBanner + "\n")
	if start.IncludeContent {
		renderer.writef(contentHeaderFormat, start.Root)
	} else {
		renderer.writef(treeHeaderFormat, start.Root)
	}
	if !start.GeneratedAt.IsZero() {
		renderer.writef(generatedOnFormat, utils.FormatTimestamp(start.GeneratedAt))
	}
	if start.IncludeContent {
		switch {
		case start.AllExtensions:
			renderer.writeString(filterAllLine)
		case len(start.Extensions) == 0:
			renderer.writeString(filterNoneLine)
		default:
			renderer.writef(filterExtensionsFormat, strings.Join(start.Extensions, listSeparator))
		}
		if start.MaxFileSize > 0 {
			renderer.writef(sizeLimitFormat, start.MaxFileSize)
		}
	}
	if len(start.PruneNames) > 0 {
		renderer.writef(prunedDirectoriesFormat, strings.Join(start.PruneNames, listSeparator))
	}
	if len(start.ExcludePatterns) > 0 {
		renderer.writef(excludedPatternsFormat, strings.Join(start.ExcludePatterns, listSeparator))
	}
	renderer.writeString(headerBanner + "\n\n")
}

func (renderer *reportRenderer) writeDirectory(directory *stream.DirectoryEvent) {
	if directory.IsRoot {
		renderer.writeString(rootDisplayName(directory.Name) + directorySuffix + "\n")
	} else {
		renderer.writeString(treePrefix(directory.Depth, directory.IsLast) + directory.Name + directorySuffix + "\n")
	}

	noteIndent := strings.Repeat(indentUnit, directory.Depth+1)
	switch directory.Note {
	case stream.DirectoryNoteEmpty:
		renderer.writeString(noteIndent + emptyDirectoryNote + "\n")
	case stream.DirectoryNoteSubdirectoriesOnly:
		renderer.writeString(noteIndent + subdirectoriesOnlyNote + "\n")
	case stream.DirectoryNoteUnreadable:
		renderer.writeString(noteIndent + fmt.Sprintf(unreadableDirectoryNote, directory.ReadError) + "\n")
	}
}

func (renderer *reportRenderer) writeEntry(entry *stream.EntryEvent) {
	if entry == nil {
		return
	}
	prefix := treePrefix(entry.Depth, entry.IsLast)
	switch entry.Type {
	case types.NodeTypePrunedDirectory:
		renderer.writeString(prefix + entry.Name + directorySuffix + prunedMarker + "\n")
	case types.NodeTypeArtifact:
		renderer.writeString(prefix + entry.Name + artifactMarker + "\n")
	default:
		renderer.writeString(prefix + entry.Name + "\n")
		if renderer.includeContent {
			renderer.writeContentBlock(entry)
		}
	}
}

func (renderer *reportRenderer) writeContentBlock(entry *stream.EntryEvent) {
	renderer.writeString(separatorLine + "\n")
	renderer.writef(fileHeaderFormat, entry.Path)
	renderer.writeString(separatorLine + "\n")

	switch entry.Status {
	case stream.ContentEmbedded:
		renderer.writeString(contentLabel)
		renderer.writeString(entry.Content)
		if entry.Content != "" && !strings.HasSuffix(entry.Content, "\n") {
			renderer.writeString("\n")
		}
		renderer.writef(endOfContentFormat, entry.Name)
	case stream.ContentSkippedExtension:
		extension := entry.Extension
		if extension == "" {
			extension = missingExtensionSentinel
		}
		renderer.writef(skippedExtensionFormat, extension)
	case stream.ContentSkippedSize:
		renderer.writef(skippedSizeFormat, entry.SizeBytes, entry.Limit)
	case stream.ContentUndecodable:
		renderer.writeString(undecodableContentLine)
	case stream.ContentReadFailed:
		renderer.writef(readFailedContentFormat, entry.Error)
	}
	renderer.writeString("\n")
}

func treePrefix(depth int, isLast bool) string {
	connector := treeBranchConnector
	if isLast {
		connector = treeLastConnector
	}
	indentDepth := depth
	if indentDepth < 0 {
		indentDepth = 0
	}
	return strings.Repeat(indentUnit, indentDepth) + connector
}

// rootDisplayName maps filesystem roots, whose base name is a separator, to the root label.
func rootDisplayName(name string) string {
	trimmed := strings.Trim(name, `/\`)
	if trimmed == "" || trimmed == "." || strings.HasSuffix(name, string(filepath.Separator)) {
		return types.DefaultRootLabel
	}
	return name
}

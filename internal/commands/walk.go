package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/temirov/dirmap/internal/config"
	"github.com/temirov/dirmap/internal/tokenizer"
	"github.com/temirov/dirmap/internal/types"
	"github.com/temirov/dirmap/internal/utils"
)

type TreeEventKind int

const (
	TreeEventEnterDir TreeEventKind = iota
	TreeEventEntry
	TreeEventLeaveDir
)

// DirectoryNote annotates a directory line with a remark about its direct children.
type DirectoryNote int

const (
	DirectoryNoteNone DirectoryNote = iota
	// DirectoryNoteEmpty marks a directory without entries other than the artifact.
	DirectoryNoteEmpty
	// DirectoryNoteSubdirectoriesOnly marks a directory whose files, if any, live deeper.
	DirectoryNoteSubdirectoriesOnly
	// DirectoryNoteUnreadable marks a directory that could not be listed.
	DirectoryNoteUnreadable
)

type TreeDirectoryEvent struct {
	Path      string
	Name      string
	Depth     int
	IsRoot    bool
	IsLast    bool
	Note      DirectoryNote
	ReadError error
	Summary   types.ScanSummary
}

// TreeEntryEvent describes a leaf line: a file, a pruned directory or the artifact itself.
type TreeEntryEvent struct {
	Path    string
	Name    string
	Type    string
	Depth   int
	IsLast  bool
	Content FileContent
}

type TreeEvent struct {
	Kind      TreeEventKind
	Directory *TreeDirectoryEvent
	Entry     *TreeEntryEvent
}

type TreeStreamOptions struct {
	Root            string
	ArtifactPath    string
	IncludeContent  bool
	PruneNames      []string
	ContentFilter   ContentFilter
	MaxFileSize     int64
	ExcludePatterns []string
	UseGitignore    bool
	TokenCounter    tokenizer.Counter
	TokenModel      string
	Warn            func(message string)
}

type treeStreamContext struct {
	options      TreeStreamOptions
	handler      func(TreeEvent) error
	pruneNames   map[string]struct{}
	artifactPath string
}

type childEntry struct {
	name      string
	path      string
	nodeType  string
	sizeBytes int64
}

// StreamTree walks options.Root depth-first and reports every line of the report to
// handler in output order. Per-entry failures are reported through options.Warn and
// rendered as placeholders; only handler errors abort the walk.
func StreamTree(options TreeStreamOptions, handler func(TreeEvent) error) (types.ScanSummary, error) {
	if handler == nil {
		return types.ScanSummary{}, fmt.Errorf("tree stream handler is nil")
	}
	if options.Root == "" {
		return types.ScanSummary{}, fmt.Errorf("tree stream root is empty")
	}

	ctx := treeStreamContext{
		options:    options,
		handler:    handler,
		pruneNames: make(map[string]struct{}, len(options.PruneNames)),
	}
	if ctx.options.Warn == nil {
		ctx.options.Warn = func(string) {}
	}
	for _, pruneName := range options.PruneNames {
		ctx.pruneNames[pruneName] = struct{}{}
	}
	if options.ArtifactPath != "" {
		ctx.artifactPath = filepath.Clean(options.ArtifactPath)
	}

	root := filepath.Clean(options.Root)
	return ctx.walkDirectory(root, root, 0, true, options.ExcludePatterns)
}

func (ctx *treeStreamContext) walkDirectory(path string, root string, depth int, isLast bool, excludePatterns []string) (types.ScanSummary, error) {
	summary := types.ScanSummary{Directories: 1}
	enterEvent := TreeDirectoryEvent{
		Path:   path,
		Name:   filepath.Base(path),
		Depth:  depth,
		IsRoot: depth == 0,
		IsLast: isLast,
	}

	directoryEntries, readError := os.ReadDir(path)
	if readError != nil {
		ctx.options.Warn(fmt.Sprintf(WarningDirectoryReadFormat, path, readError))
		enterEvent.Note = DirectoryNoteUnreadable
		enterEvent.ReadError = readError
		if err := ctx.handler(TreeEvent{Kind: TreeEventEnterDir, Directory: &enterEvent}); err != nil {
			return types.ScanSummary{}, err
		}
		return summary, ctx.leave(enterEvent, summary)
	}

	relativeDirectory := utils.RelativePathOrSelf(path, root)
	activePatterns := excludePatterns
	if ctx.options.UseGitignore {
		gitignorePatterns, loadError := config.LoadGitignoreGlobs(path, relativeDirectory)
		if loadError != nil {
			ctx.options.Warn(fmt.Sprintf(WarningIgnoreFileFormat, filepath.Join(path, utils.GitIgnoreFileName), loadError))
		}
		if len(gitignorePatterns) > 0 {
			activePatterns = append(append([]string{}, excludePatterns...), gitignorePatterns...)
		}
	}

	children := ctx.collectChildren(path, root, directoryEntries, activePatterns)

	directFiles := 0
	directDirectories := 0
	for _, child := range children {
		switch child.nodeType {
		case types.NodeTypeFile:
			directFiles++
		case types.NodeTypeDirectory, types.NodeTypePrunedDirectory:
			directDirectories++
		}
	}
	switch {
	case directFiles == 0 && directDirectories == 0:
		enterEvent.Note = DirectoryNoteEmpty
	case directFiles == 0:
		enterEvent.Note = DirectoryNoteSubdirectoriesOnly
	}

	if err := ctx.handler(TreeEvent{Kind: TreeEventEnterDir, Directory: &enterEvent}); err != nil {
		return types.ScanSummary{}, err
	}

	for childIndex, child := range children {
		childIsLast := childIndex == len(children)-1
		if child.nodeType == types.NodeTypeDirectory {
			childSummary, err := ctx.walkDirectory(child.path, root, depth+1, childIsLast, activePatterns)
			if err != nil {
				return types.ScanSummary{}, err
			}
			summary.Add(childSummary)
			continue
		}
		entrySummary, err := ctx.emitEntry(child, depth+1, childIsLast)
		if err != nil {
			return types.ScanSummary{}, err
		}
		summary.Add(entrySummary)
	}

	return summary, ctx.leave(enterEvent, summary)
}

func (ctx *treeStreamContext) leave(enterEvent TreeDirectoryEvent, summary types.ScanSummary) error {
	leaveEvent := enterEvent
	leaveEvent.Summary = summary
	return ctx.handler(TreeEvent{Kind: TreeEventLeaveDir, Directory: &leaveEvent})
}

// collectChildren classifies and sorts the entries of one directory. Excluded entries are
// dropped; the artifact is always kept so that it renders as a self-reference.
func (ctx *treeStreamContext) collectChildren(path string, root string, directoryEntries []os.DirEntry, excludePatterns []string) []childEntry {
	children := make([]childEntry, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		childPath := filepath.Join(path, directoryEntry.Name())
		if ctx.artifactPath != "" && childPath == ctx.artifactPath {
			children = append(children, childEntry{name: directoryEntry.Name(), path: childPath, nodeType: types.NodeTypeArtifact})
			continue
		}

		isDirectory := directoryEntry.IsDir()
		relativePath := utils.RelativePathOrSelf(childPath, root)
		if utils.MatchesAnyPattern(relativePath, isDirectory, excludePatterns) {
			continue
		}

		child := childEntry{name: directoryEntry.Name(), path: childPath, nodeType: types.NodeTypeFile}
		if isDirectory {
			child.nodeType = types.NodeTypeDirectory
			if _, pruned := ctx.pruneNames[directoryEntry.Name()]; pruned {
				child.nodeType = types.NodeTypePrunedDirectory
			}
		} else {
			entryInfo, infoError := directoryEntry.Info()
			if infoError != nil {
				ctx.options.Warn(fmt.Sprintf(WarningStatFormat, childPath, infoError))
			} else {
				child.sizeBytes = entryInfo.Size()
			}
		}
		children = append(children, child)
	}
	sort.Slice(children, func(left, right int) bool {
		return children[left].name < children[right].name
	})
	return children
}

func (ctx *treeStreamContext) emitEntry(child childEntry, depth int, isLast bool) (types.ScanSummary, error) {
	entryEvent := TreeEntryEvent{
		Path:   child.path,
		Name:   child.name,
		Type:   child.nodeType,
		Depth:  depth,
		IsLast: isLast,
	}

	var summary types.ScanSummary
	switch child.nodeType {
	case types.NodeTypePrunedDirectory:
		summary.PrunedDirectories = 1
	case types.NodeTypeFile:
		entryEvent.Content = inspectFile(child.path, child.name, child.sizeBytes, fileInspectionConfig{
			IncludeContent: ctx.options.IncludeContent,
			Filter:         ctx.options.ContentFilter,
			MaxFileSize:    ctx.options.MaxFileSize,
			TokenCounter:   ctx.options.TokenCounter,
			TokenModel:     ctx.options.TokenModel,
			Warn:           ctx.options.Warn,
		})
		summary.Files = 1
		switch entryEvent.Content.Status {
		case ContentEmbedded:
			summary.EmbeddedFiles = 1
			summary.EmbeddedBytes = entryEvent.Content.SizeBytes
			summary.Tokens = entryEvent.Content.Tokens
			summary.Model = entryEvent.Content.Model
		case ContentSkippedExtension, ContentSkippedSize, ContentUndecodable:
			summary.SkippedFiles = 1
		case ContentReadFailed:
			summary.UnreadableFiles = 1
		}
	}

	if err := ctx.handler(TreeEvent{Kind: TreeEventEntry, Entry: &entryEvent}); err != nil {
		return types.ScanSummary{}, err
	}
	return summary, nil
}

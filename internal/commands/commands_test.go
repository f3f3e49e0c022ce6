package commands_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/temirov/dirmap/internal/commands"
	"github.com/temirov/dirmap/internal/types"
)

const (
	artifactFileName = "project_contents.txt"
	pythonFileName   = "a.py"
	pythonContent    = "print(1)"
	binaryFileName   = "b.bin"
	prunedDirName    = "node_modules"
	danglingFileName = "dangling.py"
)

type recordedLine struct {
	kind      commands.TreeEventKind
	name      string
	path      string
	depth     int
	isLast    bool
	note      commands.DirectoryNote
	readError error
	entry     string
	content   commands.FileContent
}

type treeRecorder struct {
	lines   []recordedLine
	summary types.ScanSummary
}

func (recorder *treeRecorder) handle(event commands.TreeEvent) error {
	switch event.Kind {
	case commands.TreeEventEnterDir, commands.TreeEventLeaveDir:
		recorder.lines = append(recorder.lines, recordedLine{
			kind:      event.Kind,
			name:      event.Directory.Name,
			path:      event.Directory.Path,
			depth:     event.Directory.Depth,
			isLast:    event.Directory.IsLast,
			note:      event.Directory.Note,
			readError: event.Directory.ReadError,
		})
	case commands.TreeEventEntry:
		recorder.lines = append(recorder.lines, recordedLine{
			kind:    event.Kind,
			name:    event.Entry.Name,
			path:    event.Entry.Path,
			depth:   event.Entry.Depth,
			isLast:  event.Entry.IsLast,
			entry:   event.Entry.Type,
			content: event.Entry.Content,
		})
	}
	return nil
}

// childLines returns the lines rendered directly beneath the directory at depth.
func (recorder *treeRecorder) childLines(depth int) []recordedLine {
	var result []recordedLine
	for _, line := range recorder.lines {
		if line.kind == commands.TreeEventLeaveDir || line.depth != depth {
			continue
		}
		result = append(result, line)
	}
	return result
}

func (recorder *treeRecorder) find(testingHandle *testing.T, name string) recordedLine {
	testingHandle.Helper()
	for _, line := range recorder.lines {
		if line.name == name && line.kind != commands.TreeEventLeaveDir {
			return line
		}
	}
	testingHandle.Fatalf("line %q not found in %+v", name, recorder.lines)
	return recordedLine{}
}

func streamTree(testingHandle *testing.T, options commands.TreeStreamOptions) *treeRecorder {
	testingHandle.Helper()
	recorder := &treeRecorder{}
	summary, streamError := commands.StreamTree(options, recorder.handle)
	if streamError != nil {
		testingHandle.Fatalf("StreamTree error: %v", streamError)
	}
	recorder.summary = summary
	return recorder
}

func writeFixture(testingHandle *testing.T, root string, files map[string]string) {
	testingHandle.Helper()
	for relativePath, content := range files {
		absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
		directoryPath := filepath.Dir(absolutePath)
		if strings.HasSuffix(relativePath, "/") {
			directoryPath = absolutePath
		}
		if makeDirError := os.MkdirAll(directoryPath, 0o755); makeDirError != nil {
			testingHandle.Fatalf("mkdir %s: %v", directoryPath, makeDirError)
		}
		if strings.HasSuffix(relativePath, "/") {
			continue
		}
		if writeError := os.WriteFile(absolutePath, []byte(content), 0o644); writeError != nil {
			testingHandle.Fatalf("write %s: %v", absolutePath, writeError)
		}
	}
}

// TestStreamTreeOrdersChildrenWithSingleTerminal verifies byte-wise ordering and exactly one terminal entry per level.
func TestStreamTreeOrdersChildrenWithSingleTerminal(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, rootDirectory, map[string]string{
		"b.txt":       "b",
		"a.go":        "package a",
		"Z/inner.md":  "# inner",
		"c/d.md":      "d",
		"c/e/f.txt":   "f",
		"c/e/g.txt":   "g",
		"empty/":      "",
		"c/e/h/":      "",
		"c/e/zz.json": "{}",
	})

	recorder := streamTree(testingHandle, commands.TreeStreamOptions{Root: rootDirectory})

	var topLevelNames []string
	for _, line := range recorder.childLines(1) {
		topLevelNames = append(topLevelNames, line.name)
	}
	expectedTopLevel := []string{"Z", "a.go", "b.txt", "c", "empty"}
	if strings.Join(topLevelNames, ",") != strings.Join(expectedTopLevel, ",") {
		testingHandle.Fatalf("expected order %v, got %v", expectedTopLevel, topLevelNames)
	}

	lastByParent := map[string]int{}
	for _, line := range recorder.lines {
		if line.kind == commands.TreeEventLeaveDir || line.depth == 0 {
			continue
		}
		if line.isLast {
			lastByParent[filepath.Dir(line.path)]++
		}
	}
	for _, parent := range []string{"", "Z", "c", filepath.Join("c", "e"), "empty"} {
		parentPath := filepath.Join(rootDirectory, parent)
		expected := 1
		if parent == "empty" || parent == filepath.Join("c", "e", "h") {
			expected = 0
		}
		if lastByParent[parentPath] != expected {
			testingHandle.Fatalf("expected %d terminal entries under %s, got %d", expected, parentPath, lastByParent[parentPath])
		}
	}

	cLine := recorder.find(testingHandle, "c")
	fLine := recorder.find(testingHandle, "f.txt")
	emptyLine := recorder.find(testingHandle, "empty")
	cIndex, fIndex, emptyIndex := -1, -1, -1
	for index, line := range recorder.lines {
		switch {
		case line.path == cLine.path && line.kind == commands.TreeEventEnterDir:
			cIndex = index
		case line.path == fLine.path:
			fIndex = index
		case line.path == emptyLine.path && line.kind == commands.TreeEventEnterDir:
			emptyIndex = index
		}
	}
	if !(cIndex < fIndex && fIndex < emptyIndex) {
		testingHandle.Fatalf("expected subtree of c to complete before its next sibling")
	}

	if emptyLine.note != commands.DirectoryNoteEmpty {
		testingHandle.Fatalf("expected empty note, got %v", emptyLine.note)
	}
	if !emptyLine.isLast {
		testingHandle.Fatalf("expected last top-level directory to be terminal")
	}
	if recorder.summary.Files != 7 || recorder.summary.Directories != 6 {
		testingHandle.Fatalf("unexpected summary %+v", recorder.summary)
	}
}

// TestStreamTreeNotesDirectoriesWithoutFiles verifies the subdirectories-only note.
func TestStreamTreeNotesDirectoriesWithoutFiles(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, rootDirectory, map[string]string{
		"outer/inner/file.txt": "x",
	})

	recorder := streamTree(testingHandle, commands.TreeStreamOptions{Root: rootDirectory})
	if note := recorder.find(testingHandle, "outer").note; note != commands.DirectoryNoteSubdirectoriesOnly {
		testingHandle.Fatalf("expected subdirectories-only note for outer, got %v", note)
	}
	if note := recorder.find(testingHandle, "inner").note; note != commands.DirectoryNoteNone {
		testingHandle.Fatalf("expected no note for inner, got %v", note)
	}
}

// TestStreamTreeRendersArtifactAsSelfReference verifies the report artifact is listed but never read.
func TestStreamTreeRendersArtifactAsSelfReference(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, rootDirectory, map[string]string{
		artifactFileName:          "previous report",
		"sub/" + artifactFileName: "nested file with the same name",
		"sub/" + pythonFileName:   pythonContent,
	})
	artifactPath := filepath.Join(rootDirectory, "sub", "..", artifactFileName)

	recorder := streamTree(testingHandle, commands.TreeStreamOptions{
		Root:            rootDirectory + string(filepath.Separator),
		ArtifactPath:    artifactPath,
		IncludeContent:  true,
		ContentFilter:   commands.NewContentFilter(nil, true),
		ExcludePatterns: []string{"/" + artifactFileName},
	})

	var artifactLines, nestedLines []recordedLine
	for _, line := range recorder.lines {
		if line.name != artifactFileName {
			continue
		}
		if line.path == filepath.Join(rootDirectory, artifactFileName) {
			artifactLines = append(artifactLines, line)
		} else {
			nestedLines = append(nestedLines, line)
		}
	}
	if len(artifactLines) != 1 || artifactLines[0].entry != types.NodeTypeArtifact {
		testingHandle.Fatalf("expected one artifact entry, got %+v", artifactLines)
	}
	if artifactLines[0].content.Status != commands.ContentNotRequested || artifactLines[0].content.Text != "" {
		testingHandle.Fatalf("artifact content must never be read: %+v", artifactLines[0].content)
	}
	if len(nestedLines) != 1 || nestedLines[0].entry != types.NodeTypeFile {
		testingHandle.Fatalf("expected nested same-named file to be an ordinary file, got %+v", nestedLines)
	}
	if nestedLines[0].content.Status != commands.ContentEmbedded || nestedLines[0].content.Text != "nested file with the same name" {
		testingHandle.Fatalf("expected nested file content embedded, got %+v", nestedLines[0].content)
	}
	if recorder.summary.Files != 2 {
		testingHandle.Fatalf("artifact must not count as a file, summary %+v", recorder.summary)
	}
}

// TestStreamTreeArtifactDoesNotCountTowardEmptiness verifies a root holding only the artifact is noted as empty.
func TestStreamTreeArtifactDoesNotCountTowardEmptiness(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, rootDirectory, map[string]string{artifactFileName: ""})

	recorder := streamTree(testingHandle, commands.TreeStreamOptions{
		Root:         rootDirectory,
		ArtifactPath: filepath.Join(rootDirectory, artifactFileName),
	})
	rootLine := recorder.lines[0]
	if rootLine.kind != commands.TreeEventEnterDir || rootLine.depth != 0 || rootLine.note != commands.DirectoryNoteEmpty {
		testingHandle.Fatalf("expected empty root, got %+v", rootLine)
	}
	if artifactLine := recorder.find(testingHandle, artifactFileName); artifactLine.entry != types.NodeTypeArtifact || !artifactLine.isLast {
		testingHandle.Fatalf("expected terminal artifact entry, got %+v", artifactLine)
	}
}

// TestStreamTreePrunesNamedDirectories verifies pruned directories appear once without descendants.
func TestStreamTreePrunesNamedDirectories(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, rootDirectory, map[string]string{
		"node_modules/lib/index.js": "module.exports = 1",
		"src/node_modules/x.js":     "1",
		"src/main.js":               "main()",
	})

	recorder := streamTree(testingHandle, commands.TreeStreamOptions{
		Root:       rootDirectory,
		PruneNames: []string{prunedDirName},
	})

	prunedCount := 0
	for _, line := range recorder.lines {
		if strings.Contains(line.path, prunedDirName+string(filepath.Separator)) {
			testingHandle.Fatalf("descendant of pruned directory listed: %s", line.path)
		}
		if line.name == prunedDirName {
			if line.kind != commands.TreeEventEntry || line.entry != types.NodeTypePrunedDirectory {
				testingHandle.Fatalf("expected pruned marker entry, got %+v", line)
			}
			prunedCount++
		}
	}
	if prunedCount != 2 {
		testingHandle.Fatalf("expected two pruned markers, got %d", prunedCount)
	}
	if recorder.summary.PrunedDirectories != 2 || recorder.summary.Files != 1 {
		testingHandle.Fatalf("unexpected summary %+v", recorder.summary)
	}
}

// TestStreamTreeContentDecisions verifies embedding, extension skips, size limits, binary detection and read failures.
func TestStreamTreeContentDecisions(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, rootDirectory, map[string]string{
		pythonFileName: pythonContent,
		binaryFileName: "\x00\x01\xff",
		"big.go":       strings.Repeat("x", 64),
		"nul.txt":      "text\x00more",
		"UPPER.PY":     "print(2)\n",
	})
	danglingPath := filepath.Join(rootDirectory, danglingFileName)
	if symlinkError := os.Symlink(filepath.Join(rootDirectory, "missing.py"), danglingPath); symlinkError != nil {
		testingHandle.Skipf("symlinks unavailable: %v", symlinkError)
	}

	recorder := streamTree(testingHandle, commands.TreeStreamOptions{
		Root:           rootDirectory,
		IncludeContent: true,
		ContentFilter:  commands.NewContentFilter([]string{"py", ".GO", ".txt"}, false),
		MaxFileSize:    32,
	})

	testCases := []struct {
		name           string
		expectedStatus commands.ContentStatus
		expectedText   string
	}{
		{name: pythonFileName, expectedStatus: commands.ContentEmbedded, expectedText: pythonContent},
		{name: "UPPER.PY", expectedStatus: commands.ContentEmbedded, expectedText: "print(2)\n"},
		{name: binaryFileName, expectedStatus: commands.ContentSkippedExtension},
		{name: "big.go", expectedStatus: commands.ContentSkippedSize},
		{name: "nul.txt", expectedStatus: commands.ContentUndecodable},
		{name: danglingFileName, expectedStatus: commands.ContentReadFailed},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(t *testing.T) {
			line := recorder.find(t, testCase.name)
			if line.content.Status != testCase.expectedStatus {
				t.Fatalf("expected status %v, got %v", testCase.expectedStatus, line.content.Status)
			}
			if line.content.Text != testCase.expectedText {
				t.Fatalf("expected text %q, got %q", testCase.expectedText, line.content.Text)
			}
		})
	}

	if limit := recorder.find(testingHandle, "big.go").content.Limit; limit != 32 {
		testingHandle.Fatalf("expected limit 32, got %d", limit)
	}
	if extension := recorder.find(testingHandle, binaryFileName).content.Extension; extension != ".bin" {
		testingHandle.Fatalf("expected .bin extension, got %q", extension)
	}
	if readError := recorder.find(testingHandle, danglingFileName).content.Err; !errors.Is(readError, commands.ErrFileRead) {
		testingHandle.Fatalf("expected ErrFileRead, got %v", readError)
	}
	if recorder.summary.Files != 6 || recorder.summary.EmbeddedFiles != 2 || recorder.summary.SkippedFiles != 3 || recorder.summary.UnreadableFiles != 1 {
		testingHandle.Fatalf("unexpected summary %+v", recorder.summary)
	}
}

// TestStreamTreeListsUnreadableDirectory verifies a directory that cannot be listed is noted and the walk continues.
func TestStreamTreeListsUnreadableDirectory(testingHandle *testing.T) {
	if runtime.GOOS == "windows" {
		testingHandle.Skip("directory permissions are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		testingHandle.Skip("root can list directories without read permission")
	}
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, rootDirectory, map[string]string{
		"locked/hidden.txt": "secret",
		"open.txt":          "visible",
	})
	lockedDirectory := filepath.Join(rootDirectory, "locked")
	if chmodError := os.Chmod(lockedDirectory, 0o000); chmodError != nil {
		testingHandle.Fatalf("chmod: %v", chmodError)
	}
	testingHandle.Cleanup(func() {
		_ = os.Chmod(lockedDirectory, 0o755)
	})

	var warnings []string
	recorder := streamTree(testingHandle, commands.TreeStreamOptions{
		Root:           rootDirectory,
		IncludeContent: true,
		ContentFilter:  commands.NewContentFilter(nil, true),
		Warn: func(message string) {
			warnings = append(warnings, message)
		},
	})

	locked := recorder.find(testingHandle, "locked")
	if locked.note != commands.DirectoryNoteUnreadable {
		testingHandle.Fatalf("expected unreadable note, got %v", locked.note)
	}
	if locked.readError == nil {
		testingHandle.Fatalf("expected the read error to be reported")
	}
	for _, line := range recorder.lines {
		if line.name == "hidden.txt" {
			testingHandle.Fatalf("unreadable directory contents were listed: %+v", recorder.lines)
		}
	}
	if open := recorder.find(testingHandle, "open.txt"); open.content.Status != commands.ContentEmbedded {
		testingHandle.Fatalf("expected sibling file to be embedded, got %v", open.content.Status)
	}
	if len(warnings) == 0 {
		testingHandle.Fatalf("expected a warning for the unreadable directory")
	}
	if recorder.summary.Directories != 2 || recorder.summary.Files != 1 {
		testingHandle.Fatalf("unexpected summary %+v", recorder.summary)
	}
}

// TestStreamTreeNeverReadsInTreeMode verifies structure-only scans do not inspect content.
func TestStreamTreeNeverReadsInTreeMode(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, rootDirectory, map[string]string{pythonFileName: pythonContent})

	recorder := streamTree(testingHandle, commands.TreeStreamOptions{
		Root:          rootDirectory,
		ContentFilter: commands.NewContentFilter(nil, true),
	})
	line := recorder.find(testingHandle, pythonFileName)
	if line.content.Status != commands.ContentNotRequested || line.content.Text != "" {
		testingHandle.Fatalf("expected no content in tree mode, got %+v", line.content)
	}
}

// TestStreamTreeExcludeAndGitignore verifies exclusion patterns and optional .gitignore handling.
func TestStreamTreeExcludeAndGitignore(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, rootDirectory, map[string]string{
		".gitignore":     "secret.env\n",
		"secret.env":     "TOKEN=1",
		"debug.log":      "log",
		"keep.txt":       "keep",
		"build/out.txt":  "out",
		"src/trace.log":  "log",
		"src/secret.env": "TOKEN=2",
	})

	testCases := []struct {
		name         string
		useGitignore bool
		expectAbsent []string
		expectShown  []string
	}{
		{
			name:         "exclude patterns only",
			expectAbsent: []string{"debug.log", "trace.log", "build", "out.txt"},
			expectShown:  []string{"keep.txt", "secret.env", ".gitignore"},
		},
		{
			name:         "gitignore enabled",
			useGitignore: true,
			expectAbsent: []string{"debug.log", "trace.log", "build", "secret.env"},
			expectShown:  []string{"keep.txt", ".gitignore"},
		},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(t *testing.T) {
			recorder := streamTree(t, commands.TreeStreamOptions{
				Root:            rootDirectory,
				ExcludePatterns: []string{"*.log", "build/"},
				UseGitignore:    testCase.useGitignore,
			})
			shown := map[string]bool{}
			for _, line := range recorder.lines {
				shown[line.name] = true
			}
			for _, name := range testCase.expectAbsent {
				if shown[name] {
					t.Fatalf("expected %s to be excluded", name)
				}
			}
			for _, name := range testCase.expectShown {
				if !shown[name] {
					t.Fatalf("expected %s to be listed", name)
				}
			}
		})
	}
}

type wordCounter struct{}

func (wordCounter) Name() string { return "words" }

func (wordCounter) CountString(input string) (int, error) {
	return len(strings.Fields(input)), nil
}

// TestStreamTreeCountsTokens verifies token counts are attached to embedded files.
func TestStreamTreeCountsTokens(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, rootDirectory, map[string]string{
		"one.md": "alpha beta gamma",
		"two.md": "delta",
	})

	recorder := streamTree(testingHandle, commands.TreeStreamOptions{
		Root:           rootDirectory,
		IncludeContent: true,
		ContentFilter:  commands.NewContentFilter([]string{".md"}, false),
		TokenCounter:   wordCounter{},
		TokenModel:     "words",
	})
	if tokens := recorder.find(testingHandle, "one.md").content.Tokens; tokens != 3 {
		testingHandle.Fatalf("expected 3 tokens, got %d", tokens)
	}
	if recorder.summary.Tokens != 4 || recorder.summary.Model != "words" {
		testingHandle.Fatalf("unexpected summary %+v", recorder.summary)
	}
}

// TestStreamTreeStopsOnHandlerError verifies handler failures abort the walk.
func TestStreamTreeStopsOnHandlerError(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, rootDirectory, map[string]string{"a.txt": "a", "b.txt": "b"})

	handlerError := errors.New("sink closed")
	calls := 0
	_, streamError := commands.StreamTree(commands.TreeStreamOptions{Root: rootDirectory}, func(commands.TreeEvent) error {
		calls++
		if calls == 2 {
			return handlerError
		}
		return nil
	})
	if !errors.Is(streamError, handlerError) {
		testingHandle.Fatalf("expected handler error, got %v", streamError)
	}
	if calls != 2 {
		testingHandle.Fatalf("expected walk to stop after the failing call, got %d calls", calls)
	}
}

// TestContentFilter verifies extension normalization and the all keyword.
func TestContentFilter(testingHandle *testing.T) {
	filter := commands.NewContentFilter([]string{"GO", ".Md", " ", "."}, false)
	if !filter.Allows("main.go") || !filter.Allows("README.MD") {
		testingHandle.Fatalf("expected case-insensitive extension match")
	}
	if filter.Allows("Makefile") || filter.Allows("x.py") {
		testingHandle.Fatalf("unexpected match for ineligible files")
	}
	if strings.Join(filter.Extensions(), ",") != ".go,.md" {
		testingHandle.Fatalf("unexpected extensions %v", filter.Extensions())
	}
	if !commands.NewContentFilter([]string{"ALL"}, false).AllowsAll() {
		testingHandle.Fatalf("expected all keyword to admit every extension")
	}
}

// Package types defines the cross-package data structures used by the dirmap CLI.
package types

const (
	// CommandTree renders names only (structure-only mode).
	CommandTree = "tree"
	// CommandContent renders names followed by embedded file content (content-dump mode).
	CommandContent = "content"
)

const (
	NodeTypeFile            = "file"
	NodeTypeDirectory       = "directory"
	NodeTypePrunedDirectory = "pruned"
	NodeTypeArtifact        = "artifact"
)

const (
	// ArtifactExtension is the fixed extension of every report artifact.
	ArtifactExtension = ".txt"
	// DefaultRootLabel names artifacts of roots whose base name is empty, such as "/".
	DefaultRootLabel = "root"
	// OutputNamePlaceholder is replaced by the normalized root name in name templates.
	OutputNamePlaceholder = "{name}"
	// DefaultTreeNameTemplate is the artifact name template used in tree mode.
	DefaultTreeNameTemplate = OutputNamePlaceholder + "_map"
	// DefaultContentNameTemplate is the artifact name template used in content mode.
	DefaultContentNameTemplate = OutputNamePlaceholder + "_contents"
)

// IsSupportedMode reports whether mode names a known scan mode.
func IsSupportedMode(mode string) bool {
	switch mode {
	case CommandTree, CommandContent:
		return true
	default:
		return false
	}
}

// ValidatedPath is an absolute input path that already passed existence checks.
type ValidatedPath struct {
	AbsolutePath string
	IsDir        bool
}

// ScanSummary captures aggregate counts for one scan.
type ScanSummary struct {
	Files             int
	Directories       int
	PrunedDirectories int
	EmbeddedFiles     int
	SkippedFiles      int
	UnreadableFiles   int
	EmbeddedBytes     int64
	Tokens            int
	Model             string
}

// Add accumulates other into summary.
func (summary *ScanSummary) Add(other ScanSummary) {
	summary.Files += other.Files
	summary.Directories += other.Directories
	summary.PrunedDirectories += other.PrunedDirectories
	summary.EmbeddedFiles += other.EmbeddedFiles
	summary.SkippedFiles += other.SkippedFiles
	summary.UnreadableFiles += other.UnreadableFiles
	summary.EmbeddedBytes += other.EmbeddedBytes
	summary.Tokens += other.Tokens
	if summary.Model == "" {
		summary.Model = other.Model
	}
}

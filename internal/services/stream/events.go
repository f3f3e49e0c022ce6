package stream

import (
	"time"
)

const SchemaVersion = 1

type EventKind string

const (
	EventKindStart     EventKind = "start"
	EventKindDirectory EventKind = "directory"
	EventKindEntry     EventKind = "entry"
	EventKindSummary   EventKind = "summary"
	EventKindWarning   EventKind = "warning"
	EventKindError     EventKind = "error"
	EventKindDone      EventKind = "done"
)

type DirectoryPhase string

const (
	DirectoryEnter DirectoryPhase = "enter"
	DirectoryLeave DirectoryPhase = "leave"
)

// DirectoryNote is a remark rendered beneath a directory line.
type DirectoryNote string

const (
	DirectoryNoteNone               DirectoryNote = ""
	DirectoryNoteEmpty              DirectoryNote = "empty"
	DirectoryNoteSubdirectoriesOnly DirectoryNote = "subdirectories_only"
	DirectoryNoteUnreadable         DirectoryNote = "unreadable"
)

// ContentStatus mirrors the content decision taken for an entry.
type ContentStatus string

const (
	ContentNotRequested     ContentStatus = "not_requested"
	ContentEmbedded         ContentStatus = "embedded"
	ContentSkippedExtension ContentStatus = "skipped_extension"
	ContentSkippedSize      ContentStatus = "skipped_size"
	ContentUndecodable      ContentStatus = "undecodable"
	ContentReadFailed       ContentStatus = "read_failed"
)

type Event struct {
	Version   int       `json:"version"`
	Kind      EventKind `json:"kind"`
	Command   string    `json:"command,omitempty"`
	Path      string    `json:"path,omitempty"`
	EmittedAt time.Time `json:"emittedAt,omitempty"`

	Start     *StartEvent     `json:"start,omitempty"`
	Directory *DirectoryEvent `json:"directory,omitempty"`
	Entry     *EntryEvent     `json:"entry,omitempty"`
	Summary   *SummaryEvent   `json:"summary,omitempty"`
	Message   *LogEvent       `json:"message,omitempty"`
	Err       *ErrorEvent     `json:"error,omitempty"`
}

// StartEvent carries everything the report header needs.
type StartEvent struct {
	Root            string    `json:"root"`
	ArtifactPath    string    `json:"artifactPath"`
	IncludeContent  bool      `json:"includeContent"`
	AllExtensions   bool      `json:"allExtensions,omitempty"`
	Extensions      []string  `json:"extensions,omitempty"`
	PruneNames      []string  `json:"pruneNames,omitempty"`
	ExcludePatterns []string  `json:"excludePatterns,omitempty"`
	MaxFileSize     int64     `json:"maxFileSize,omitempty"`
	GeneratedAt     time.Time `json:"generatedAt,omitempty"`
}

type DirectoryEvent struct {
	Phase     DirectoryPhase `json:"phase"`
	Path      string         `json:"path"`
	Name      string         `json:"name,omitempty"`
	Depth     int            `json:"depth,omitempty"`
	IsRoot    bool           `json:"isRoot,omitempty"`
	IsLast    bool           `json:"isLast,omitempty"`
	Note      DirectoryNote  `json:"note,omitempty"`
	ReadError string         `json:"readError,omitempty"`
	Summary   *SummaryEvent  `json:"summary,omitempty"`
}

// EntryEvent describes a file, a pruned directory or the report artifact.
type EntryEvent struct {
	Path      string        `json:"path"`
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Depth     int           `json:"depth,omitempty"`
	IsLast    bool          `json:"isLast,omitempty"`
	Status    ContentStatus `json:"status,omitempty"`
	Content   string        `json:"content,omitempty"`
	Extension string        `json:"extension,omitempty"`
	SizeBytes int64         `json:"sizeBytes,omitempty"`
	Limit     int64         `json:"limit,omitempty"`
	Error     string        `json:"error,omitempty"`
	Tokens    int           `json:"tokens,omitempty"`
	Model     string        `json:"model,omitempty"`
}

type SummaryEvent struct {
	Files             int    `json:"files"`
	Directories       int    `json:"directories"`
	PrunedDirectories int    `json:"prunedDirectories"`
	EmbeddedFiles     int    `json:"embeddedFiles"`
	SkippedFiles      int    `json:"skippedFiles"`
	UnreadableFiles   int    `json:"unreadableFiles"`
	Bytes             int64  `json:"bytes"`
	Tokens            int    `json:"tokens,omitempty"`
	Model             string `json:"model,omitempty"`
}

type LogEvent struct {
	Level   string `json:"level,omitempty"`
	Message string `json:"message"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

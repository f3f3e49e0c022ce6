package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/temirov/dirmap/internal/commands"
	"github.com/temirov/dirmap/internal/tokenizer"
	"github.com/temirov/dirmap/internal/types"
)

// ScanOptions configures StreamScan.
type ScanOptions struct {
	Command         string
	Root            string
	ArtifactPath    string
	PruneNames      []string
	ContentFilter   commands.ContentFilter
	MaxFileSize     int64
	ExcludePatterns []string
	UseGitignore    bool
	TokenCounter    tokenizer.Counter
	TokenModel      string
	// GeneratedAt is reported in the start event; the zero value omits the timestamp.
	GeneratedAt time.Time
}

type emitter struct {
	ctx     context.Context
	out     chan<- Event
	command string
}

func newEmitter(ctx context.Context, out chan<- Event, command string) *emitter {
	if ctx == nil {
		ctx = context.Background()
	}
	return &emitter{ctx: ctx, out: out, command: command}
}

func (e *emitter) send(event Event) error {
	if e.out == nil {
		return fmt.Errorf("stream: event channel is nil")
	}
	event.Version = SchemaVersion
	if event.Command == "" {
		event.Command = e.command
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}
	select {
	case <-e.ctx.Done():
		return e.ctx.Err()
	case e.out <- event:
		return nil
	}
}

func (e *emitter) warn(path, message string) {
	trimmed := strings.TrimRight(message, "\n")
	if trimmed == "" {
		return
	}
	_ = e.send(Event{
		Kind:    EventKindWarning,
		Path:    path,
		Message: &LogEvent{Level: "warning", Message: trimmed},
	})
}

// StreamScan walks opts.Root and publishes one event per report line to out, framed by
// a start event and closing summary and done events. The channel is not closed.
func StreamScan(ctx context.Context, opts ScanOptions, out chan<- Event) error {
	if opts.Root == "" {
		return fmt.Errorf("stream: scan root path is empty")
	}
	command := opts.Command
	if command == "" {
		command = types.CommandTree
	}
	if !types.IsSupportedMode(command) {
		return fmt.Errorf("stream: unsupported command %q", command)
	}
	includeContent := command == types.CommandContent

	emitter := newEmitter(ctx, out, command)
	start := &StartEvent{
		Root:            opts.Root,
		ArtifactPath:    opts.ArtifactPath,
		IncludeContent:  includeContent,
		PruneNames:      opts.PruneNames,
		ExcludePatterns: opts.ExcludePatterns,
		MaxFileSize:     opts.MaxFileSize,
		GeneratedAt:     opts.GeneratedAt,
	}
	if includeContent {
		start.AllExtensions = opts.ContentFilter.AllowsAll()
		start.Extensions = opts.ContentFilter.Extensions()
	}
	if err := emitter.send(Event{Kind: EventKindStart, Path: opts.Root, Start: start}); err != nil {
		return err
	}

	streamOptions := commands.TreeStreamOptions{
		Root:            opts.Root,
		ArtifactPath:    opts.ArtifactPath,
		IncludeContent:  includeContent,
		PruneNames:      opts.PruneNames,
		ContentFilter:   opts.ContentFilter,
		MaxFileSize:     opts.MaxFileSize,
		ExcludePatterns: opts.ExcludePatterns,
		UseGitignore:    opts.UseGitignore,
		TokenCounter:    opts.TokenCounter,
		TokenModel:      opts.TokenModel,
		Warn: func(message string) {
			emitter.warn(opts.Root, message)
		},
	}

	handler := func(evt commands.TreeEvent) error {
		switch evt.Kind {
		case commands.TreeEventEnterDir:
			return emitter.send(Event{Kind: EventKindDirectory, Path: evt.Directory.Path, Directory: directoryEvent(DirectoryEnter, evt.Directory)})
		case commands.TreeEventLeaveDir:
			leave := directoryEvent(DirectoryLeave, evt.Directory)
			leave.Summary = summaryEvent(evt.Directory.Summary)
			return emitter.send(Event{Kind: EventKindDirectory, Path: evt.Directory.Path, Directory: leave})
		case commands.TreeEventEntry:
			return emitter.send(Event{Kind: EventKindEntry, Path: evt.Entry.Path, Entry: entryEvent(evt.Entry)})
		default:
			return nil
		}
	}

	summary, streamErr := commands.StreamTree(streamOptions, handler)
	if streamErr != nil {
		_ = emitter.send(Event{Kind: EventKindError, Path: opts.Root, Err: &ErrorEvent{Message: streamErr.Error()}})
		return streamErr
	}

	if err := emitter.send(Event{Kind: EventKindSummary, Path: opts.Root, Summary: summaryEvent(summary)}); err != nil {
		return err
	}
	return emitter.send(Event{Kind: EventKindDone, Path: opts.Root})
}

func directoryEvent(phase DirectoryPhase, dir *commands.TreeDirectoryEvent) *DirectoryEvent {
	event := &DirectoryEvent{
		Phase:  phase,
		Path:   dir.Path,
		Name:   dir.Name,
		Depth:  dir.Depth,
		IsRoot: dir.IsRoot,
		IsLast: dir.IsLast,
	}
	switch dir.Note {
	case commands.DirectoryNoteEmpty:
		event.Note = DirectoryNoteEmpty
	case commands.DirectoryNoteSubdirectoriesOnly:
		event.Note = DirectoryNoteSubdirectoriesOnly
	case commands.DirectoryNoteUnreadable:
		event.Note = DirectoryNoteUnreadable
	}
	if dir.ReadError != nil {
		event.ReadError = dir.ReadError.Error()
	}
	return event
}

func entryEvent(entry *commands.TreeEntryEvent) *EntryEvent {
	content := entry.Content
	event := &EntryEvent{
		Path:      entry.Path,
		Name:      entry.Name,
		Type:      entry.Type,
		Depth:     entry.Depth,
		IsLast:    entry.IsLast,
		Status:    contentStatus(content.Status),
		Content:   content.Text,
		Extension: content.Extension,
		SizeBytes: content.SizeBytes,
		Limit:     content.Limit,
		Tokens:    content.Tokens,
		Model:     content.Model,
	}
	if content.Err != nil {
		event.Error = content.Err.Error()
	}
	if entry.Type != types.NodeTypeFile {
		event.Status = ""
	}
	return event
}

func contentStatus(status commands.ContentStatus) ContentStatus {
	switch status {
	case commands.ContentEmbedded:
		return ContentEmbedded
	case commands.ContentSkippedExtension:
		return ContentSkippedExtension
	case commands.ContentSkippedSize:
		return ContentSkippedSize
	case commands.ContentUndecodable:
		return ContentUndecodable
	case commands.ContentReadFailed:
		return ContentReadFailed
	default:
		return ContentNotRequested
	}
}

func summaryEvent(summary types.ScanSummary) *SummaryEvent {
	return &SummaryEvent{
		Files:             summary.Files,
		Directories:       summary.Directories,
		PrunedDirectories: summary.PrunedDirectories,
		EmbeddedFiles:     summary.EmbeddedFiles,
		SkippedFiles:      summary.SkippedFiles,
		UnreadableFiles:   summary.UnreadableFiles,
		Bytes:             summary.EmbeddedBytes,
		Tokens:            summary.Tokens,
		Model:             summary.Model,
	}
}

// ToScanSummary converts a summary event back into the aggregate counters.
func (summary *SummaryEvent) ToScanSummary() types.ScanSummary {
	if summary == nil {
		return types.ScanSummary{}
	}
	return types.ScanSummary{
		Files:             summary.Files,
		Directories:       summary.Directories,
		PrunedDirectories: summary.PrunedDirectories,
		EmbeddedFiles:     summary.EmbeddedFiles,
		SkippedFiles:      summary.SkippedFiles,
		UnreadableFiles:   summary.UnreadableFiles,
		EmbeddedBytes:     summary.Bytes,
		Tokens:            summary.Tokens,
		Model:             summary.Model,
	}
}

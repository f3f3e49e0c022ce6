// Package scan produces the report artifact for one directory tree.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/dirmap/internal/commands"
	"github.com/temirov/dirmap/internal/output"
	"github.com/temirov/dirmap/internal/services/stream"
	"github.com/temirov/dirmap/internal/tokenizer"
	"github.com/temirov/dirmap/internal/types"
	"github.com/temirov/dirmap/internal/utils"
)

const (
	logFieldPath   = "path"
	logFieldReason = "reason"

	logMessageWarning   = "scan warning"
	logMessagePruned    = "pruned directory"
	logMessageArtifact  = "writing report"
	logMessageCompleted = "scan completed"
)

// Options configures one scan.
type Options struct {
	// Mode is types.CommandTree or types.CommandContent.
	Mode       string
	PruneNames []string
	// ContentExtensions defaults to commands.DefaultContentExtensions when empty.
	ContentExtensions  []string
	AllExtensions      bool
	OutputNameTemplate string
	ExcludePatterns    []string
	UseGitignore       bool
	// MaxFileSize in bytes; zero disables the limit.
	MaxFileSize      int64
	IncludeTimestamp bool
	TokenCounter     tokenizer.Counter
	TokenModel       string
	// Mirror receives a copy of every byte written to the artifact.
	Mirror   io.Writer
	Observer func(stream.Event)
	Logger   *zap.Logger
	Now      func() time.Time
}

// Result describes a completed scan.
type Result struct {
	RootPath     string
	ArtifactPath string
	Summary      types.ScanSummary
}

// Run scans rootPath and writes the report artifact inside it. Per-file problems are
// rendered into the report; only invalid input and artifact I/O failures are returned.
// A cancelled ctx stops the walk and leaves a partial artifact behind.
func Run(ctx context.Context, rootPath string, options Options) (result Result, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrUnexpected, recovered)
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := utils.LoggerOrNop(options.Logger)
	if validationError := validateOptions(options); validationError != nil {
		return Result{}, validationError
	}
	root, rootError := ResolveRoot(rootPath)
	if rootError != nil {
		return Result{}, rootError
	}
	artifactName, nameError := ArtifactName(root.AbsolutePath, options.Mode, options.OutputNameTemplate)
	if nameError != nil {
		return Result{}, nameError
	}
	artifactPath := filepath.Join(root.AbsolutePath, artifactName)
	result = Result{RootPath: root.AbsolutePath, ArtifactPath: artifactPath}
	if ctxError := ctx.Err(); ctxError != nil {
		return result, fmt.Errorf("scan of '%s' interrupted: %w", root.AbsolutePath, ctxError)
	}

	logger.Debug(logMessageArtifact, zap.String(logFieldPath, artifactPath))
	// #nosec G304
	artifactFile, createError := os.Create(artifactPath)
	if createError != nil {
		return result, fmt.Errorf("%w: could not create '%s': %w", ErrOutputWrite, artifactPath, createError)
	}
	defer func() {
		if closeError := artifactFile.Close(); closeError != nil && err == nil {
			err = fmt.Errorf("%w: could not close '%s': %w", ErrOutputWrite, artifactPath, closeError)
		}
	}()

	var sink io.Writer = artifactFile
	if options.Mirror != nil {
		sink = io.MultiWriter(artifactFile, options.Mirror)
	}
	renderer := output.NewReportRenderer(sink)

	streamOptions := buildStreamOptions(root.AbsolutePath, artifactPath, options)
	producer := func(streamCtx context.Context, events chan<- stream.Event) error {
		return stream.StreamScan(streamCtx, streamOptions, events)
	}
	consumer := func(event stream.Event) error {
		switch event.Kind {
		case stream.EventKindWarning:
			if event.Message != nil {
				logger.Debug(logMessageWarning, zap.String(logFieldPath, event.Path), zap.String(logFieldReason, event.Message.Message))
			}
		case stream.EventKindEntry:
			if event.Entry != nil && event.Entry.Type == types.NodeTypePrunedDirectory {
				logger.Debug(logMessagePruned, zap.String(logFieldPath, event.Entry.Path))
			}
		case stream.EventKindSummary:
			result.Summary = event.Summary.ToScanSummary()
		}
		if options.Observer != nil {
			options.Observer(event)
		}
		if handleError := renderer.Handle(event); handleError != nil {
			return fmt.Errorf("%w: '%s': %w", ErrOutputWrite, artifactPath, handleError)
		}
		return nil
	}

	if dispatchError := dispatchStream(ctx, producer, consumer); dispatchError != nil {
		switch {
		case errors.Is(dispatchError, ErrOutputWrite), errors.Is(dispatchError, ErrUnexpected):
			return result, dispatchError
		case ctx.Err() != nil:
			return result, fmt.Errorf("scan of '%s' interrupted: %w", root.AbsolutePath, ctx.Err())
		default:
			return result, fmt.Errorf("%w: %w", ErrUnexpected, dispatchError)
		}
	}
	if flushError := renderer.Flush(); flushError != nil {
		return result, fmt.Errorf("%w: '%s': %w", ErrOutputWrite, artifactPath, flushError)
	}

	logger.Debug(logMessageCompleted,
		zap.String(logFieldPath, root.AbsolutePath),
		zap.Int("files", result.Summary.Files),
		zap.Int("directories", result.Summary.Directories),
	)
	return result, nil
}

func validateOptions(options Options) error {
	if !types.IsSupportedMode(options.Mode) {
		return fmt.Errorf("%w: unsupported mode %q", ErrInvalidOptions, options.Mode)
	}
	if options.MaxFileSize < 0 {
		return fmt.Errorf("%w: max file size must not be negative", ErrInvalidOptions)
	}
	for _, pattern := range options.ExcludePatterns {
		if !utils.ValidPattern(pattern) {
			return fmt.Errorf("%w: invalid exclude pattern %q", ErrInvalidOptions, pattern)
		}
	}
	return nil
}

func buildStreamOptions(root string, artifactPath string, options Options) stream.ScanOptions {
	extensions := options.ContentExtensions
	if len(extensions) == 0 {
		extensions = commands.DefaultContentExtensions
	}
	streamOptions := stream.ScanOptions{
		Command:         options.Mode,
		Root:            root,
		ArtifactPath:    artifactPath,
		PruneNames:      utils.DeduplicatePatterns(options.PruneNames),
		ContentFilter:   commands.NewContentFilter(extensions, options.AllExtensions),
		MaxFileSize:     options.MaxFileSize,
		ExcludePatterns: utils.DeduplicatePatterns(options.ExcludePatterns),
		UseGitignore:    options.UseGitignore,
		TokenCounter:    options.TokenCounter,
		TokenModel:      options.TokenModel,
	}
	if options.IncludeTimestamp {
		now := options.Now
		if now == nil {
			now = time.Now
		}
		streamOptions.GeneratedAt = now()
	}
	return streamOptions
}

// dispatchStream runs produce and consume concurrently over an unbuffered channel, so
// events are consumed in exactly the order they are produced.
func dispatchStream(
	ctx context.Context,
	produce func(context.Context, chan<- stream.Event) error,
	consume func(stream.Event) error,
) error {
	group, streamCtx := errgroup.WithContext(ctx)
	events := make(chan stream.Event)

	group.Go(func() (err error) {
		defer recoverAsError(&err)
		defer close(events)
		return produce(streamCtx, events)
	})

	group.Go(func() (err error) {
		defer recoverAsError(&err)
		for {
			select {
			case <-streamCtx.Done():
				return streamCtx.Err()
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := consume(event); err != nil {
					return err
				}
			}
		}
	})

	return group.Wait()
}

// recoverAsError converts a panic in a dispatch goroutine into ErrUnexpected.
func recoverAsError(err *error) {
	if recovered := recover(); recovered != nil {
		*err = fmt.Errorf("%w: %v", ErrUnexpected, recovered)
	}
}

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/dirmap/internal/config"
	"github.com/temirov/dirmap/internal/metrics"
	"github.com/temirov/dirmap/internal/scan"
	"github.com/temirov/dirmap/internal/services/clipboard"
	"github.com/temirov/dirmap/internal/services/stream"
	"github.com/temirov/dirmap/internal/tokenizer"
	"github.com/temirov/dirmap/internal/types"
	"github.com/temirov/dirmap/internal/utils"
)

const (
	pruneFlagName         = "prune"
	pruneShorthand        = "p"
	excludeFlagName       = "exclude"
	excludeShorthand      = "e"
	extensionsFlagName    = "ext"
	allExtensionsFlagName = "all-extensions"
	outputNameFlagName    = "output-name"
	outputNameShorthand   = "o"
	timestampFlagName     = "timestamp"
	maxSizeFlagName       = "max-size"
	gitignoreFlagName     = "gitignore"
	tokensFlagName        = "tokens"
	modelFlagName         = "model"
	copyFlagName          = "copy"
	metricsFileFlagName   = "metrics-file"
	configFlagName        = "config"
	verboseFlagName       = "verbose"
	verboseShorthand      = "v"
	globalFlagName        = "global"
	forceFlagName         = "force"
	versionFlagName       = "version"

	versionTemplate      = "dirmap version: %s\n"
	rootUse              = "dirmap"
	rootShortDescription = "dirmap writes a directory map report"
	rootLongDescription  = `dirmap walks a directory tree and writes a single text report inside it.
The tree command lists folders and files; the content command also embeds the text of
eligible files. Without a path argument dirmap asks for one on standard input.`
	treeUse                 = "tree [path]"
	contentUse              = "content [path]"
	initUse                 = "init"
	treeAlias               = "t"
	contentAlias            = "c"
	treeShortDescription    = "write a structure-only directory map (" + treeAlias + ")"
	contentShortDescription = "write a directory map with file contents (" + contentAlias + ")"
	initShortDescription    = "write a default configuration file"
	treeUsageExample        = `  # Map the current project, listing node_modules without descending into it
  dirmap tree --prune node_modules .

  # Ask for the directory interactively
  dirmap t`
	contentUsageExample = `  # Embed Go and Markdown sources, skipping files above 64 KiB
  dirmap content --ext .go,.md --max-size 65536 ./service

  # Embed every text file and copy the report to the clipboard
  dirmap c --all-extensions --copy .`

	pruneFlagDescription         = "directory name to list without descending into it (repeatable)"
	excludeFlagDescription       = "glob pattern of entries to omit from the report (repeatable)"
	extensionsFlagDescription    = "file extensions whose content is embedded; \"all\" selects every file"
	allExtensionsFlagDescription = "embed the content of files with any extension"
	outputNameFlagDescription    = "report name template; {name} expands to the directory name"
	timestampFlagDescription     = "include the generation time in the report header"
	maxSizeFlagDescription       = "skip embedding files larger than this many bytes (0 disables the limit)"
	gitignoreFlagDescription     = "omit entries matched by .gitignore files"
	tokensFlagDescription        = "estimate tokens of embedded content"
	modelFlagDescription         = "tokenizer model used for token estimates"
	copyFlagDescription          = "copy the report text to the clipboard"
	metricsFileFlagDescription   = "write scan metrics in prometheus text format to this file"
	configFlagDescription        = "configuration file to use instead of ./" + utils.ConfigFileName
	verboseFlagDescription       = "log debug details, including skipped and unreadable entries"
	globalFlagDescription        = "write the configuration under the home directory"
	forceFlagDescription         = "overwrite an existing configuration file"
	versionFlagDescription       = "display application version"

	successMappedFormat      = "Successfully mapped directory '%s'.\n"
	successOutputFormat      = "Output saved to: %s\n"
	initWrittenFormat        = "Configuration written to: %s\n"
	clipboardFailedMessage   = "clipboard copy failed"
	metricsFailedMessage     = "metrics export failed"
	tokenizerFailedMessage   = "token counting disabled"
	configurationErrorFormat = "load configuration: %w"
)

// application bundles the collaborators shared by all subcommands.
type application struct {
	logger      *zap.Logger
	level       zap.AtomicLevel
	input       io.Reader
	copier      clipboard.Copier
	newCounter  func(tokenizer.Config) (tokenizer.Counter, string, error)
	now         func() time.Time
	interactive func(io.Reader) bool
	version     func() string

	configPath string
	verbose    bool
}

// Execute runs the dirmap application. SIGINT and SIGTERM cancel a running scan.
func Execute(logger *zap.Logger, level zap.AtomicLevel) error {
	app := newApplication(logger, level, os.Stdin)
	rootCommand := createRootCommand(app)
	rootCommand.SetArgs(expandToggleArguments(rootCommand, os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCommand.ExecuteContext(ctx)
}

func newApplication(logger *zap.Logger, level zap.AtomicLevel, input io.Reader) *application {
	return &application{
		logger:      utils.LoggerOrNop(logger),
		level:       level,
		input:       input,
		copier:      clipboard.NewService(),
		newCounter:  tokenizer.NewCounter,
		now:         time.Now,
		interactive: isInteractive,
		version:     utils.GetApplicationVersion,
	}
}

// createRootCommand builds the root Cobra command. The version is only resolved when
// --version is requested.
func createRootCommand(app *application) *cobra.Command {
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, app.version())
				return nil
			}
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if app.verbose {
				app.level.SetLevel(zap.DebugLevel)
			}
		},
	}
	rootCommand.Flags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&app.configPath, configFlagName, "", configFlagDescription)
	rootCommand.PersistentFlags().BoolVarP(&app.verbose, verboseFlagName, verboseShorthand, false, verboseFlagDescription)
	rootCommand.AddCommand(
		createScanCommand(app, types.CommandTree),
		createScanCommand(app, types.CommandContent),
		createInitCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// scanFlags stores the flag values of the tree and content commands.
type scanFlags struct {
	prune         []string
	exclude       []string
	extensions    []string
	allExtensions bool
	outputName    string
	timestamp     bool
	maxSize       int64
	gitignore     bool
	tokens        bool
	model         string
	copy          bool
	metricsFile   string
}

func createScanCommand(app *application, mode string) *cobra.Command {
	var flags scanFlags

	scanCommand := &cobra.Command{
		Use:     treeUse,
		Aliases: []string{treeAlias},
		Short:   treeShortDescription,
		Example: treeUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return app.runScan(command, mode, flags, arguments)
		},
	}
	if mode == types.CommandContent {
		scanCommand.Use = contentUse
		scanCommand.Aliases = []string{contentAlias}
		scanCommand.Short = contentShortDescription
		scanCommand.Example = contentUsageExample
	}

	flagSet := scanCommand.Flags()
	flagSet.StringSliceVarP(&flags.prune, pruneFlagName, pruneShorthand, nil, pruneFlagDescription)
	flagSet.StringArrayVarP(&flags.exclude, excludeFlagName, excludeShorthand, nil, excludeFlagDescription)
	flagSet.StringVarP(&flags.outputName, outputNameFlagName, outputNameShorthand, "", outputNameFlagDescription)
	registerToggleFlag(flagSet, &flags.timestamp, timestampFlagName, true, timestampFlagDescription)
	registerToggleFlag(flagSet, &flags.gitignore, gitignoreFlagName, false, gitignoreFlagDescription)
	registerToggleFlag(flagSet, &flags.copy, copyFlagName, false, copyFlagDescription)
	flagSet.StringVar(&flags.metricsFile, metricsFileFlagName, "", metricsFileFlagDescription)
	if mode == types.CommandContent {
		flagSet.StringSliceVar(&flags.extensions, extensionsFlagName, nil, extensionsFlagDescription)
		registerToggleFlag(flagSet, &flags.allExtensions, allExtensionsFlagName, false, allExtensionsFlagDescription)
		flagSet.Int64Var(&flags.maxSize, maxSizeFlagName, 0, maxSizeFlagDescription)
		registerToggleFlag(flagSet, &flags.tokens, tokensFlagName, false, tokensFlagDescription)
		flagSet.StringVar(&flags.model, modelFlagName, tokenizer.DefaultModel, modelFlagDescription)
	}
	return scanCommand
}

func createInitCommand() *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, err := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if err != nil {
				return err
			}
			fmt.Fprintf(command.OutOrStdout(), initWrittenFormat, path)
			return nil
		},
	}
	initCommand.Flags().BoolVar(&global, globalFlagName, false, globalFlagDescription)
	initCommand.Flags().BoolVar(&force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

// scanSettings is the outcome of layering flags over configuration over defaults.
type scanSettings struct {
	options     scan.Options
	tokens      bool
	model       string
	copy        bool
	metricsFile string
}

func resolveScanSettings(command *cobra.Command, mode string, flags scanFlags, section config.ScanCommandConfiguration) scanSettings {
	changed := command.Flags().Changed
	settings := scanSettings{
		options: scan.Options{
			Mode:               mode,
			PruneNames:         section.Prune,
			ExcludePatterns:    section.Exclude,
			ContentExtensions:  section.Extensions,
			OutputNameTemplate: section.OutputName,
			IncludeTimestamp:   true,
		},
		model:       tokenizer.DefaultModel,
		metricsFile: section.MetricsFile,
	}
	options := &settings.options

	if changed(pruneFlagName) {
		options.PruneNames = flags.prune
	}
	if changed(excludeFlagName) {
		options.ExcludePatterns = flags.exclude
	}
	if changed(outputNameFlagName) {
		options.OutputNameTemplate = flags.outputName
	}
	options.IncludeTimestamp = layeredBool(changed(timestampFlagName), flags.timestamp, section.Timestamp, true)
	options.UseGitignore = layeredBool(changed(gitignoreFlagName), flags.gitignore, section.UseGitignore, false)
	settings.copy = layeredBool(changed(copyFlagName), flags.copy, section.Clipboard, false)
	if changed(metricsFileFlagName) {
		settings.metricsFile = flags.metricsFile
	}

	if mode != types.CommandContent {
		return settings
	}
	if changed(extensionsFlagName) {
		options.ContentExtensions = flags.extensions
	}
	options.AllExtensions = layeredBool(changed(allExtensionsFlagName), flags.allExtensions, section.AllExtensions, false)
	if section.MaxFileSize != nil {
		options.MaxFileSize = *section.MaxFileSize
	}
	if changed(maxSizeFlagName) {
		options.MaxFileSize = flags.maxSize
	}
	settings.tokens = layeredBool(changed(tokensFlagName), flags.tokens, section.Tokens.Enabled, false)
	if section.Tokens.Model != "" {
		settings.model = section.Tokens.Model
	}
	if changed(modelFlagName) {
		settings.model = flags.model
	}
	return settings
}

// layeredBool returns the flag value when it was set explicitly, else the configured
// value, else fallback.
func layeredBool(flagChanged bool, flagValue bool, configured *bool, fallback bool) bool {
	if flagChanged {
		return flagValue
	}
	if configured != nil {
		return *configured
	}
	return fallback
}

func (app *application) runScan(command *cobra.Command, mode string, flags scanFlags, arguments []string) error {
	applicationConfig, configError := config.LoadApplicationConfiguration(config.LoadOptions{ExplicitFilePath: app.configPath})
	if configError != nil {
		return fmt.Errorf(configurationErrorFormat, configError)
	}
	settings := resolveScanSettings(command, mode, flags, applicationConfig.ForCommand(mode))

	var rootPath string
	if len(arguments) > 0 {
		rootPath = arguments[0]
	} else {
		promptedPath, promptError := promptForPath(app.input, command.OutOrStdout(), app.interactive(app.input))
		if promptError != nil {
			return fmt.Errorf("%w: %w", scan.ErrInvalidRoot, promptError)
		}
		rootPath = promptedPath
	}

	options := settings.options
	options.Logger = app.logger
	options.Now = app.now
	if settings.tokens {
		counter, model, counterError := app.newCounter(tokenizer.Config{Model: settings.model})
		if counterError != nil {
			app.logger.Warn(tokenizerFailedMessage, zap.Error(counterError))
		} else {
			options.TokenCounter = counter
			options.TokenModel = model
		}
	}

	var mirror bytes.Buffer
	if settings.copy {
		options.Mirror = &mirror
	}
	var recorder *metrics.Recorder
	if settings.metricsFile != "" {
		recorder = metrics.NewRecorder()
		options.Observer = func(event stream.Event) {
			recorder.Observe(event)
		}
	}

	startedAt := app.now()
	result, scanError := scan.Run(command.Context(), rootPath, options)
	if scanError != nil {
		return scanError
	}

	output := command.OutOrStdout()
	fmt.Fprintf(output, successMappedFormat, result.RootPath)
	fmt.Fprintf(output, successOutputFormat, result.ArtifactPath)

	if settings.copy {
		if copyError := app.copier.Copy(mirror.String()); copyError != nil {
			app.logger.Warn(clipboardFailedMessage, zap.Error(copyError))
		}
	}
	if recorder != nil {
		recorder.ObserveDuration(mode, app.now().Sub(startedAt))
		if metricsError := recorder.WriteTextfile(settings.metricsFile); metricsError != nil {
			app.logger.Warn(metricsFailedMessage, zap.Error(metricsError))
		}
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/dirmap/internal/types"
	"github.com/temirov/dirmap/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds command-specific configuration defaults.
type ApplicationConfiguration struct {
	Tree    ScanCommandConfiguration `mapstructure:"tree"`
	Content ScanCommandConfiguration `mapstructure:"content"`
}

// ScanCommandConfiguration defines options shared by the tree and content commands.
// Pointer fields distinguish an unset key from an explicit false or zero.
type ScanCommandConfiguration struct {
	Prune         []string           `mapstructure:"prune"`
	Exclude       []string           `mapstructure:"exclude"`
	Extensions    []string           `mapstructure:"extensions"`
	AllExtensions *bool              `mapstructure:"all_extensions"`
	OutputName    string             `mapstructure:"output_name"`
	Timestamp     *bool              `mapstructure:"timestamp"`
	MaxFileSize   *int64             `mapstructure:"max_file_size"`
	UseGitignore  *bool              `mapstructure:"use_gitignore"`
	Tokens        TokenConfiguration `mapstructure:"tokens"`
	Clipboard     *bool              `mapstructure:"clipboard"`
	MetricsFile   string             `mapstructure:"metrics_file"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// ForCommand returns the configuration section for commandName.
func (config ApplicationConfiguration) ForCommand(commandName string) ScanCommandConfiguration {
	if commandName == types.CommandContent {
		return config.Content
	}
	return config.Tree
}

// LoadApplicationConfiguration loads configuration from the global file and then the
// local (or explicit) file, with local values overriding global ones.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, homeError := os.UserHomeDir(); homeError == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadError := loadConfigurationFromPath(globalPath, false)
		if loadError != nil {
			return ApplicationConfiguration{}, loadError
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadError := loadConfigurationFromPath(localPath, options.ExplicitFilePath != "")
	if loadError != nil {
		return ApplicationConfiguration{}, loadError
	}
	merged = merged.Merge(localConfig)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.ConfigFileName)
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath
	}
	return filepath.Join(workingDirectory, explicitPath)
}

// loadConfigurationFromPath decodes the file at path. A missing file is only an error
// when the path was requested explicitly.
func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	info, statError := os.Stat(path)
	if statError != nil {
		if os.IsNotExist(statError) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statError)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readError := reader.ReadInConfig(); readError != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readError)
	}
	var config ApplicationConfiguration
	if decodeError := reader.Unmarshal(&config); decodeError != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeError)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Tree = result.Tree.merge(override.Tree)
	result.Content = result.Content.merge(override.Content)
	return result
}

func (config ScanCommandConfiguration) merge(override ScanCommandConfiguration) ScanCommandConfiguration {
	result := config
	if len(override.Prune) > 0 {
		result.Prune = utils.DeduplicatePatterns(override.Prune)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = utils.DeduplicatePatterns(override.Exclude)
	}
	if len(override.Extensions) > 0 {
		result.Extensions = utils.DeduplicatePatterns(override.Extensions)
	}
	if override.AllExtensions != nil {
		result.AllExtensions = cloneBool(override.AllExtensions)
	}
	if override.OutputName != "" {
		result.OutputName = override.OutputName
	}
	if override.Timestamp != nil {
		result.Timestamp = cloneBool(override.Timestamp)
	}
	if override.MaxFileSize != nil {
		cloned := *override.MaxFileSize
		result.MaxFileSize = &cloned
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	result.Tokens = result.Tokens.merge(override.Tokens)
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	if override.MetricsFile != "" {
		result.MetricsFile = override.MetricsFile
	}
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

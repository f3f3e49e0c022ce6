package commands

const (
	// WarningFileReadFormat reports a file that could not be read.
	WarningFileReadFormat = "unable to read %s: %v"
	// WarningDirectoryReadFormat reports a directory that could not be listed.
	WarningDirectoryReadFormat = "unable to list %s: %v"
	// WarningStatFormat reports an entry whose metadata could not be read.
	WarningStatFormat = "unable to stat %s: %v"
	// WarningTokenCountFormat reports a token counting failure.
	WarningTokenCountFormat = "failed to count tokens for %s: %v"
	// WarningIgnoreFileFormat reports an unreadable .gitignore file.
	WarningIgnoreFileFormat = "unable to load %s: %v"
)

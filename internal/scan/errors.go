package scan

import "errors"

var (
	// ErrInvalidRoot reports a root path that does not exist or is not a directory.
	ErrInvalidRoot = errors.New("invalid root directory")
	// ErrInvalidOptions reports unusable scan options such as a malformed name template.
	ErrInvalidOptions = errors.New("invalid scan options")
	// ErrOutputWrite reports a failure to create, write, flush or close the artifact.
	ErrOutputWrite = errors.New("unable to write report")
	// ErrUnexpected reports any other failure, including recovered panics.
	ErrUnexpected = errors.New("unexpected scan failure")
)

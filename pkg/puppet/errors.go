package puppet

import "errors"

var (
	// ErrConfigQuery is returned when the agent's own configuration cannot
	// be retrieved or parsed.
	ErrConfigQuery = errors.New("cannot query agent configuration")

	// ErrMissingManifest is returned when an apply invocation is built
	// without a manifest path.
	ErrMissingManifest = errors.New("apply requires a manifest path")

	// ErrProcessExecution is returned when a facts command exits non-zero.
	ErrProcessExecution = errors.New("command execution failed")

	// ErrFileAccess is returned when an agent state file cannot be read or
	// written.
	ErrFileAccess = errors.New("cannot access agent state file")

	// ErrDocumentParse is returned when the last-run summary is not valid
	// YAML.
	ErrDocumentParse = errors.New("cannot parse run summary document")
)

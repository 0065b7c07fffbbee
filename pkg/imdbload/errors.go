package imdbload

import (
	"errors"
	"strings"
)

// Sentinel errors for the failure classes callers may want to tell apart.
//
//	summary, err := svc.Run(ctx, cfg)
//	if errors.Is(err, imdbload.ErrSourceMissing) {
//	    // a TSV dump was not found
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSourceMissing indicates a source file for an entity loader does not exist.
	ErrSourceMissing = errors.New("source file not found")

	// ErrMissingColumn indicates a required header column is absent from a source file.
	ErrMissingColumn = errors.New("required column missing")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrUnknownEntity indicates an entity name that no loader handles.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrLoadFailed wraps any failure that aborted a load run.
	ErrLoadFailed = errors.New("load failed")
)

var usagePatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"required flag",
	"invalid argument",
}

// ExitCodeForError maps an error to a process exit code. The taxonomy is
// deliberately coarse: anything that is not a CLI usage error is a failure.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	msg := err.Error()
	for _, p := range usagePatterns {
		if strings.Contains(msg, p) {
			return ExitUsageError
		}
	}
	return ExitFailure
}

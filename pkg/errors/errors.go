package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMalformedInput = errors.New("malformed input")
	ErrResource       = errors.New("resource unavailable")
	ErrNoCorpus       = errors.New("no usable documents in corpus")
	ErrNoQueries      = errors.New("no usable queries")
	ErrInvariant      = errors.New("internal invariant violated")
)

// ScanError wraps a sentinel with the identifier of the input it concerns,
// so skipped documents and queries can be reported by ID.
type ScanError struct {
	Err     error
	InputID string
	Message string
}

func (e *ScanError) Error() string {
	if e.InputID != "" {
		return fmt.Sprintf("%s: %s: %s", e.Err.Error(), e.InputID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

func New(sentinel error, inputID string, message string) *ScanError {
	return &ScanError{
		Err:     sentinel,
		InputID: inputID,
		Message: message,
	}
}

func Newf(sentinel error, inputID string, format string, args ...any) *ScanError {
	return &ScanError{
		Err:     sentinel,
		InputID: inputID,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsFatal reports whether err must abort the run before or during scanning.
// Malformed-input and per-document resource errors are recoverable; config
// errors, an empty corpus, and invariant violations are not.
func IsFatal(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrNoCorpus),
		errors.Is(err, ErrNoQueries),
		errors.Is(err, ErrInvariant):
		return true
	default:
		return false
	}
}

// ExitCode maps an error to a process exit code for the CLI binaries.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidConfig):
		return 2
	case errors.Is(err, ErrNoCorpus), errors.Is(err, ErrNoQueries):
		return 3
	case errors.Is(err, ErrInvariant):
		return 4
	default:
		return 1
	}
}

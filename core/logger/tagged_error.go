package logger

import (
	"errors"
	"fmt"
)

// Process exit codes of the semlayer CLI
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitConfig   = 2
	ExitAuth     = 3
	ExitUpstream = 4
)

// TaggedError carries the logger tag the top-level CLI logs the error under
// and, optionally, the exit code it ends the process with.
type TaggedError struct {
	tag  string
	code int
	err  error
}

func (e *TaggedError) Error() string {
	if e == nil || e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *TaggedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Tag returns the associated logger tag.
func (e *TaggedError) Tag() string {
	if e == nil {
		return ""
	}
	return e.tag
}

// WithTag wraps err with a logger tag. If err is nil, nil is returned.
func WithTag(tag string, err error) error {
	if err == nil {
		return nil
	}
	return &TaggedError{tag: tag, err: err}
}

// Tagf formats a new error and tags it.
func Tagf(tag, format string, args ...any) error {
	return WithTag(tag, fmt.Errorf(format, args...))
}

// WithExitCode sets the exit code of err, keeping its tag
func WithExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &TaggedError{tag: ErrorTag(err), code: code, err: err}
}

// ErrorTag returns the outermost non-empty tag in the error chain.
func ErrorTag(err error) string {
	for err != nil {
		var tagged *TaggedError
		if !errors.As(err, &tagged) {
			return ""
		}
		if tagged.tag != "" {
			return tagged.tag
		}
		err = tagged.err
	}
	return ""
}

// ExitCode returns the outermost exit code set in the error chain,
// ExitFailure when none is set and ExitOK for a nil error.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	for err != nil {
		var tagged *TaggedError
		if !errors.As(err, &tagged) {
			break
		}
		if tagged.code != 0 {
			return tagged.code
		}
		err = tagged.err
	}
	return ExitFailure
}

package tex2pdf

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for library operations.
var (
	ErrEmptySource    = errors.New("LaTeX source cannot be empty")
	ErrInvalidCommand = errors.New("invalid compiler command")
	ErrBuildReused    = errors.New("build has already been generated")

	// Work directory and input errors. These are I/O failures and are
	// never retried.
	ErrWorkDir     = errors.New("work directory operation failed")
	ErrWriteSource = errors.New("failed to write LaTeX source")

	// Compiler process errors.
	ErrSpawn            = errors.New("failed to start LaTeX compiler")
	ErrCompilerNotFound = errors.New("LaTeX compiler not found")
	ErrCompileTimeout   = errors.New("LaTeX compilation timed out")

	// Build outcome errors, carried by *BuildError.
	ErrBuildFailed  = errors.New("LaTeX compilation failed")
	ErrBuildUnknown = errors.New("LaTeX compilation failed for unknown reasons")

	// ErrDecode means the compiler reported success but its output could
	// not be read as a PDF.
	ErrDecode = errors.New("failed to decode PDF")
)

// BuildError describes a compilation that did not produce a PDF.
type BuildError struct {
	Message string
	// LogPath is the compiler log while it exists on disk. It is empty
	// when no log was written, and Generator.Generate clears it once the
	// work directory has been removed.
	LogPath string
	// Log is the log content. Generator.Generate fills it before removing
	// the work directory.
	Log      []byte
	ExitCode int
	Err      error
}

func (e *BuildError) Error() string {
	return e.Message
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// newKnownFailure reports a build that left a log but no PDF.
func newKnownFailure(logPath string) *BuildError {
	return &BuildError{
		Message: fmt.Sprintf("compilation failed: see %s for details", logPath),
		LogPath: logPath,
		Err:     ErrBuildFailed,
	}
}

// newUnknownFailure reports a build that left neither PDF nor log.
func newUnknownFailure() *BuildError {
	return &BuildError{
		Message: "compilation failed for unknown reasons",
		Err:     ErrBuildUnknown,
	}
}

// newCompilerNotFound reports a missing executable. The spawn diagnostic
// was still appended to the log, so the path is kept.
func newCompilerNotFound(command, logPath string, cause error) *BuildError {
	return &BuildError{
		Message:  fmt.Sprintf("LaTeX compiler %q not found", command),
		LogPath:  logPath,
		ExitCode: -1,
		Err:      fmt.Errorf("%w: %w", ErrCompilerNotFound, cause),
	}
}

// detachLog drops the path of a log whose directory was removed.
func (e *BuildError) detachLog() {
	if e.LogPath == "" {
		return
	}
	e.Message = strings.ReplaceAll(e.Message, e.LogPath, "the build log")
	e.LogPath = ""
}

// AsBuildError returns the *BuildError in err's chain, if any.
func AsBuildError(err error) (*BuildError, bool) {
	var be *BuildError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

package tex2pdf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/icef/go-tex2pdf/internal/fileutil"
	"github.com/icef/go-tex2pdf/internal/logfields"
)

const sourceFilePerm = 0o600

// Build is a single compilation. It owns one work directory from Generate
// until Cleanup; a Build cannot be generated twice.
type Build struct {
	gen    *Generator
	source string
	config BuildConfig

	mu   sync.Mutex
	used bool
	dir  *WorkDir
}

// Config returns the merged configuration the build runs with.
func (b *Build) Config() BuildConfig { return b.config.Merge(BuildConfig{}) }

// Dir returns the work directory path, or "" before Generate created it.
func (b *Build) Dir() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dir == nil {
		return ""
	}
	return b.dir.Path()
}

// ID returns the work directory name, or "" before Generate created it.
func (b *Build) ID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dir == nil {
		return ""
	}
	return b.dir.Name()
}

// LogPath returns where the compiler log is (or would be) written.
func (b *Build) LogPath() string {
	dir := b.Dir()
	if dir == "" {
		return ""
	}
	return Invocation{Dir: dir, Input: inputFile}.LogPath()
}

// ReadLog returns the compiler log. It fails once Cleanup has run.
func (b *Build) ReadLog() ([]byte, error) {
	path := b.LogPath()
	if path == "" {
		return nil, fmt.Errorf("%w: build has no work directory", ErrWorkDir)
	}
	return os.ReadFile(path) // #nosec G304 -- path is inside our work directory
}

// Cleanup removes the work directory. It is idempotent, and calling it
// before Generate prevents the build from running.
func (b *Build) Cleanup() error {
	b.mu.Lock()
	b.used = true
	dir := b.dir
	b.mu.Unlock()
	return dir.Destroy()
}

// Generate compiles the source and decodes the resulting PDF.
//
// Failures are reported as:
//   - ErrEmptySource, ErrInvalidCommand, ErrBuildReused for bad input
//   - ErrWorkDir or ErrWriteSource for filesystem failures
//   - *BuildError wrapping ErrBuildFailed, ErrBuildUnknown,
//     ErrCompilerNotFound or ErrCompileTimeout
//   - ErrDecode when a PDF was produced but cannot be parsed
//   - the context's error when ctx was canceled
func (b *Build) Generate(ctx context.Context) (*Document, error) {
	b.mu.Lock()
	if b.used {
		b.mu.Unlock()
		return nil, ErrBuildReused
	}
	b.used = true
	b.mu.Unlock()

	start := time.Now()
	doc, outcome, err := b.generate(ctx)
	elapsed := time.Since(start)
	b.gen.recorder.ObserveBuild(outcome, elapsed)

	logger := b.gen.logger.With(logfields.BuildID(b.ID()), logfields.Status(outcome), logfields.Duration(elapsed))
	if err != nil {
		logger.Warn("build failed", logfields.Error(err))
		return nil, err
	}
	logger.Info("build succeeded", logfields.Pages(doc.PageCount()), logfields.Bytes(doc.Size()))
	return doc, nil
}

func (b *Build) generate(ctx context.Context) (*Document, string, error) {
	if strings.TrimSpace(b.source) == "" {
		return nil, OutcomeError, ErrEmptySource
	}
	if err := b.config.Validate(); err != nil {
		return nil, OutcomeError, err
	}

	if b.gen.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, b.gen.timeout, ErrCompileTimeout)
		defer cancel()
	}

	wd, err := CreateWorkDir(b.gen.baseDir)
	if err != nil {
		return nil, OutcomeError, err
	}
	b.mu.Lock()
	b.dir = wd
	b.mu.Unlock()

	if err := os.WriteFile(wd.File(inputFile), []byte(b.source), sourceFilePerm); err != nil {
		return nil, OutcomeError, fmt.Errorf("%w: %w", ErrWriteSource, err)
	}

	inv := Invocation{Dir: wd.Path(), Input: inputFile, Config: b.config}
	code, runErr := b.run(ctx, inv)
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, interruptedOutcome(ctx), b.interrupted(ctx, inv)
		}
		if isNotFound(runErr, b.config.Command) {
			return nil, OutcomeNotFound, newCompilerNotFound(b.config.Command, existingPath(inv.LogPath()), runErr)
		}
	}

	result := Classify(inv.Dir, inv.Input)
	if result.Status != StatusSuccess {
		be, _ := AsBuildError(result.Err())
		be.ExitCode = code
		if runErr != nil {
			be.Err = fmt.Errorf("%w: %w", be.Err, runErr)
		}
		if result.Status == StatusKnownFailure {
			return nil, OutcomeFailed, be
		}
		return nil, OutcomeUnknown, be
	}

	doc, err := DecodeFile(result.PDFPath)
	if err != nil {
		return nil, OutcomeDecodeError, err
	}
	b.gen.recorder.ObservePages(doc.PageCount())
	return doc, OutcomeSuccess, nil
}

// run invokes the runner, holding a pool slot when one is configured.
func (b *Build) run(ctx context.Context, inv Invocation) (int, error) {
	if p := b.gen.pool; p != nil {
		if err := p.Acquire(ctx); err != nil {
			return -1, err
		}
		defer p.Release()
	}
	return b.gen.runner.Run(ctx, inv)
}

// interrupted builds the error for a build stopped by its context.
// Deadlines become a *BuildError so the partial log stays reachable;
// cancellation by the caller is returned as the context error.
func (b *Build) interrupted(ctx context.Context, inv Invocation) error {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("compilation canceled: %w", ctx.Err())
	}
	msg := "compilation timed out"
	if errors.Is(context.Cause(ctx), ErrCompileTimeout) {
		msg = fmt.Sprintf("compilation timed out after %s", b.gen.timeout)
	}
	return &BuildError{
		Message:  msg,
		LogPath:  existingPath(inv.LogPath()),
		ExitCode: -1,
		Err:      fmt.Errorf("%w: %w", ErrCompileTimeout, ctx.Err()),
	}
}

// isNotFound reports a compiler missing from PATH, or an explicit command
// path that does not exist. Other missing files (the log, the work
// directory) are not a missing compiler.
func isNotFound(err error, command string) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		return false
	}
	return pathErr.Path == command && errors.Is(pathErr.Err, fs.ErrNotExist)
}

func interruptedOutcome(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	return OutcomeCanceled
}

func existingPath(path string) string {
	if fileutil.FileExists(path) {
		return path
	}
	return ""
}

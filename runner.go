package tex2pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/icef/go-tex2pdf/internal/fileutil"
	"github.com/icef/go-tex2pdf/internal/logfields"
	"github.com/icef/go-tex2pdf/internal/process"
)

const (
	logFilePerm = 0o600

	// DefaultWaitDelay bounds how long Wait blocks for the compiler's
	// descendants after the compiler itself has been killed.
	DefaultWaitDelay = 5 * time.Second
)

// Invocation is one request to compile Input inside Dir.
type Invocation struct {
	Dir    string // working directory of the compiler
	Input  string // file name relative to Dir, e.g. "input.tex"
	Config BuildConfig
}

// LogPath returns the log the compiler output is appended to.
func (inv Invocation) LogPath() string {
	return filepath.Join(inv.Dir, fileutil.ReplaceExt(inv.Input, ".log"))
}

// Runner runs the compiler for an invocation and reports the exit status
// of the final pass. A non-zero status is not an error: the output files
// decide the outcome.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (int, error)
}

// ExecRunner runs the compiler as a child process.
//
// Output of every pass is appended to the invocation's log file. The child
// gets its own process group, and cancelling ctx kills the whole group.
type ExecRunner struct {
	WaitDelay time.Duration // zero means DefaultWaitDelay
	Logger    *slog.Logger
	Recorder  Recorder
}

// Compile-time interface implementation check.
var _ Runner = (*ExecRunner)(nil)

// Run executes the optional draft pass and the final pass, blocking until
// the final pass exits. Spawn failures are written to the log before being
// returned wrapped in ErrSpawn.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (int, error) {
	logFile, err := os.OpenFile(inv.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
	if err != nil {
		return -1, fmt.Errorf("%w: opening log: %w", ErrSpawn, err)
	}
	defer logFile.Close()

	if inv.Config.ParseTwice {
		// The draft pass only produces auxiliary files; its status is
		// discarded.
		if _, err := r.pass(ctx, inv, logFile, true); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrSpawn) {
				return -1, err
			}
		}
	}

	return r.pass(ctx, inv, logFile, false)
}

func (r *ExecRunner) pass(ctx context.Context, inv Invocation, logFile *os.File, draft bool) (int, error) {
	passName := logfields.PassFinal
	if draft {
		passName = logfields.PassDraft
	}

	args := inv.Config.CommandArgs(inv.Input, draft)
	cmd := exec.CommandContext(ctx, inv.Config.Command, args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if len(inv.Config.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Config.Env...)
	}
	process.Isolate(cmd)
	cmd.Cancel = func() error {
		_ = process.KillGroup(cmd.Process.Pid)
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = r.waitDelay()

	logger := r.logger().With(logfields.Pass(passName), logfields.WorkDir(inv.Dir))
	logger.Debug("starting compiler", logfields.Command(inv.Config.Command), logfields.Args(args))

	start := time.Now()
	if err := cmd.Start(); err != nil {
		appendSpawnFailure(logFile, cmd, err)
		logger.Warn("compiler failed to start", logfields.Error(err))
		return -1, fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(start)
	r.recorder().ObservePass(passName, elapsed)

	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Warn("compiler killed", logfields.Duration(elapsed), logfields.Error(ctxErr))
		return -1, ctxErr
	}

	code := cmd.ProcessState.ExitCode()
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return code, fmt.Errorf("waiting for compiler: %w", waitErr)
	}

	logger.Debug("compiler exited", logfields.ExitCode(code), logfields.Duration(elapsed))
	return code, nil
}

// appendSpawnFailure writes "<message>:\n<trace>" to the log so that a
// missing executable is diagnosable from the log alone.
func appendSpawnFailure(w io.Writer, cmd *exec.Cmd, err error) {
	var trace strings.Builder
	fmt.Fprintf(&trace, "command: %s\n", strings.Join(cmd.Args, " "))
	fmt.Fprintf(&trace, "dir: %s\n", cmd.Dir)
	trace.Write(debug.Stack())
	_, _ = fmt.Fprintf(w, "%v:\n%s\n", err, trace.String())
}

func (r *ExecRunner) waitDelay() time.Duration {
	if r.WaitDelay > 0 {
		return r.WaitDelay
	}
	return DefaultWaitDelay
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return discardLogger
}

func (r *ExecRunner) recorder() Recorder {
	if r.Recorder != nil {
		return r.Recorder
	}
	return noopRecorder{}
}

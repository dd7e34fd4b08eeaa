package tex2pdf

import (
	"log/slog"
	"time"
)

// Option configures a Generator.
type Option func(*Generator)

// defaultTimeout bounds a whole build, both passes included.
const defaultTimeout = 2 * time.Minute

// defaultBaseDirName is created under os.TempDir when no base is set.
const defaultBaseDirName = "tex2pdf"

// WithTimeout sets the build timeout. On expiry the compiler's process
// group is killed.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("tex2pdf: WithTimeout duration must be positive")
	}
	return func(g *Generator) {
		g.timeout = d
	}
}

// WithBaseDir sets the directory under which work directories are created.
func WithBaseDir(dir string) Option {
	return func(g *Generator) {
		g.baseDir = dir
	}
}

// WithBuildConfig merges cfg over DefaultBuildConfig to form the
// generator's defaults. Per-build configs are merged over the result.
func WithBuildConfig(cfg BuildConfig) Option {
	return func(g *Generator) {
		g.config = g.config.Merge(cfg)
	}
}

// WithKeepWorkDir makes Generator.Generate leave work directories in place
// so the sources, logs and auxiliary files can be inspected.
func WithKeepWorkDir(keep bool) Option {
	return func(g *Generator) {
		g.keepWorkDir = keep
	}
}

// WithPool shares a compiler slot pool between generators, bounding the
// number of compiler processes running at once.
func WithPool(p *Pool) Option {
	return func(g *Generator) {
		g.pool = p
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.recorder = r
		}
	}
}

// WithEscaper replaces LaTeXEscaper as the text escaper.
func WithEscaper(e Escaper) Option {
	return func(g *Generator) {
		if e != nil {
			g.escaper = e
		}
	}
}

// WithRunner replaces the process runner. Intended for tests and for
// running the compiler somewhere other than a local child process.
func WithRunner(r Runner) Option {
	return func(g *Generator) {
		if r != nil {
			g.runner = r
		}
	}
}

// Build outcome labels passed to Recorder.ObserveBuild.
const (
	OutcomeSuccess     = "success"
	OutcomeFailed      = "failed"
	OutcomeUnknown     = "unknown"
	OutcomeNotFound    = "compiler_not_found"
	OutcomeTimeout     = "timeout"
	OutcomeCanceled    = "canceled"
	OutcomeDecodeError = "decode_error"
	OutcomeError       = "error"
)

// Recorder receives build metrics. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveBuild(outcome string, d time.Duration)
	ObservePass(pass string, d time.Duration)
	ObservePages(n int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveBuild(string, time.Duration) {}
func (noopRecorder) ObservePass(string, time.Duration)  {}
func (noopRecorder) ObservePages(int)                   {}

var discardLogger = slog.New(slog.DiscardHandler)

package tex2pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"text/template"
	"time"
)

func TestNewGenerator(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		gen, err := NewGenerator()
		if err != nil {
			t.Fatalf("NewGenerator() error = %v", err)
		}
		if want := filepath.Join(os.TempDir(), "tex2pdf"); gen.BaseDir() != want {
			t.Errorf("BaseDir() = %q, want %q", gen.BaseDir(), want)
		}
		if gen.timeout != defaultTimeout {
			t.Errorf("timeout = %v, want %v", gen.timeout, defaultTimeout)
		}
		if _, ok := gen.runner.(*ExecRunner); !ok {
			t.Errorf("runner = %T, want *ExecRunner", gen.runner)
		}
		if gen.Config().Command != DefaultCommand {
			t.Errorf("Command = %q, want %q", gen.Config().Command, DefaultCommand)
		}
	})

	t.Run("invalid build config", func(t *testing.T) {
		t.Parallel()

		_, err := NewGenerator(WithBuildConfig(BuildConfig{Env: []string{"NOVALUE"}}))
		if !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("NewGenerator() error = %v, want ErrInvalidCommand", err)
		}
	})

	t.Run("nil options are ignored", func(t *testing.T) {
		t.Parallel()

		gen, err := NewGenerator(WithLogger(nil), WithRecorder(nil), WithEscaper(nil), WithRunner(nil))
		if err != nil {
			t.Fatal(err)
		}
		if gen.logger == nil || gen.recorder == nil || gen.escaper == nil || gen.runner == nil {
			t.Error("nil option replaced a default")
		}
	})
}

func TestWithTimeout_PanicsOnNonPositive(t *testing.T) {
	t.Parallel()

	for _, d := range []time.Duration{0, -time.Second} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("WithTimeout(%v) did not panic", d)
				}
			}()
			WithTimeout(d)
		}()
	}
}

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		runner    *stubRunner
		source    string
		wantPages int
		wantErr   error
		wantLog   string
	}{
		{
			name:      "success",
			runner:    writesPDF(3),
			source:    `\documentclass{article}\begin{document}Hi\end{document}`,
			wantPages: 3,
		},
		{
			name:    "known failure carries log",
			runner:  writesLogOnly(),
			source:  `\begin{itemize}`,
			wantErr: ErrBuildFailed,
			wantLog: "Environment itemize undefined",
		},
		{
			name: "unknown failure",
			runner: &stubRunner{fn: func(context.Context, Invocation) (int, error) {
				return 1, nil
			}},
			source:  "x",
			wantErr: ErrBuildUnknown,
		},
		{
			name: "pdf present despite non-zero exit",
			runner: &stubRunner{fn: func(ctx context.Context, inv Invocation) (int, error) {
				_, err := writesPDF(1).Run(ctx, inv)
				return 1, err
			}},
			source:    "x",
			wantPages: 1,
		},
		{
			name: "unreadable pdf",
			runner: &stubRunner{fn: func(_ context.Context, inv Invocation) (int, error) {
				return 0, os.WriteFile(filepath.Join(inv.Dir, "input.pdf"), nil, 0o600)
			}},
			source:  "x",
			wantErr: ErrDecode,
		},
		{
			name:    "empty source",
			runner:  writesPDF(1),
			source:  " \n\t",
			wantErr: ErrEmptySource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen, base := newTestGenerator(t, WithRunner(tt.runner))
			doc, err := gen.Generate(context.Background(), tt.source, nil)

			if left := dirEntries(t, base); len(left) != 0 {
				t.Errorf("work directories left behind: %v", left)
			}

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Generate() error = %v, want %v", err, tt.wantErr)
				}
				if doc != nil {
					t.Error("Generate() returned a document with an error")
				}
				if tt.wantLog != "" {
					be, ok := AsBuildError(err)
					if !ok {
						t.Fatalf("error %T is not *BuildError", err)
					}
					if !strings.Contains(string(be.Log), tt.wantLog) {
						t.Errorf("BuildError.Log = %q, want %q", be.Log, tt.wantLog)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if doc.PageCount() != tt.wantPages {
				t.Errorf("PageCount() = %d, want %d", doc.PageCount(), tt.wantPages)
			}
		})
	}
}

func TestGenerator_GenerateEmptySourceSkipsRunner(t *testing.T) {
	t.Parallel()

	runner := writesPDF(1)
	gen, _ := newTestGenerator(t, WithRunner(runner))
	if _, err := gen.Generate(context.Background(), "", nil); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("error = %v, want ErrEmptySource", err)
	}
	if runner.callCount() != 0 {
		t.Errorf("runner called %d times, want 0", runner.callCount())
	}
}

func TestGenerator_BuildConfigReachesRunner(t *testing.T) {
	t.Parallel()

	runner := writesPDF(1)
	gen, _ := newTestGenerator(t,
		WithRunner(runner),
		WithBuildConfig(BuildConfig{ParseTwice: true}),
	)

	if _, err := gen.Generate(context.Background(), "x", &BuildConfig{Command: "xelatex"}); err != nil {
		t.Fatal(err)
	}
	inv := runner.calls[0]
	if inv.Input != "input.tex" {
		t.Errorf("Input = %q, want input.tex", inv.Input)
	}
	if inv.Config.Command != "xelatex" || !inv.Config.ParseTwice {
		t.Errorf("Config = %+v, want xelatex with ParseTwice", inv.Config)
	}
	if len(inv.Config.Arguments) != 1 || inv.Config.Arguments[0] != "-halt-on-error" {
		t.Errorf("Arguments = %v, want defaults kept", inv.Config.Arguments)
	}
}

func TestGenerator_KeepWorkDir(t *testing.T) {
	t.Parallel()

	gen, base := newTestGenerator(t, WithRunner(writesLogOnly()), WithKeepWorkDir(true))

	_, err := gen.Generate(context.Background(), "x", nil)
	be, ok := AsBuildError(err)
	if !ok {
		t.Fatalf("error = %v, want *BuildError", err)
	}
	if _, statErr := os.Stat(be.LogPath); statErr != nil {
		t.Errorf("log removed despite WithKeepWorkDir: %v", statErr)
	}
	if left := dirEntries(t, base); len(left) != 1 {
		t.Errorf("base entries = %v, want one kept directory", left)
	}
}

func TestGenerator_KnownFailureDetachesRemovedLog(t *testing.T) {
	t.Parallel()

	gen, base := newTestGenerator(t, WithRunner(writesLogOnly()))

	_, err := gen.Generate(context.Background(), "x", nil)
	if !errors.Is(err, ErrBuildFailed) {
		t.Fatalf("error = %v, want ErrBuildFailed", err)
	}
	be, ok := AsBuildError(err)
	if !ok {
		t.Fatalf("error %T is not *BuildError", err)
	}
	if be.LogPath != "" {
		t.Errorf("LogPath = %q, want empty once the work directory is removed", be.LogPath)
	}
	if !strings.Contains(string(be.Log), "Environment itemize undefined") {
		t.Errorf("Log = %q, want the compiler log", be.Log)
	}
	if got, want := be.Error(), "compilation failed: see the build log for details"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if left := dirEntries(t, base); len(left) != 0 {
		t.Errorf("work directories left behind: %v", left)
	}
}

func TestGenerator_Timeout(t *testing.T) {
	t.Parallel()

	blocking := &stubRunner{fn: func(ctx context.Context, inv Invocation) (int, error) {
		_ = os.WriteFile(inv.LogPath(), []byte("partial output\n"), 0o600)
		<-ctx.Done()
		return -1, ctx.Err()
	}}
	gen, base := newTestGenerator(t, WithRunner(blocking), WithTimeout(50*time.Millisecond))

	_, err := gen.Generate(context.Background(), "x", nil)
	if !errors.Is(err, ErrCompileTimeout) {
		t.Fatalf("error = %v, want ErrCompileTimeout", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded in chain", err)
	}
	be, ok := AsBuildError(err)
	if !ok {
		t.Fatalf("error %T is not *BuildError", err)
	}
	if be.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", be.ExitCode)
	}
	if string(be.Log) != "partial output\n" {
		t.Errorf("Log = %q, want partial output", be.Log)
	}
	if left := dirEntries(t, base); len(left) != 0 {
		t.Errorf("work directories left behind: %v", left)
	}
}

func TestGenerator_Canceled(t *testing.T) {
	t.Parallel()

	blocking := &stubRunner{fn: func(ctx context.Context, _ Invocation) (int, error) {
		<-ctx.Done()
		return -1, ctx.Err()
	}}
	gen, _ := newTestGenerator(t, WithRunner(blocking))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, "x", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrCompileTimeout) {
		t.Error("cancellation reported as timeout")
	}
	if _, ok := AsBuildError(err); ok {
		t.Error("cancellation reported as *BuildError")
	}
}

func TestGenerator_CompilerNotFound(t *testing.T) {
	t.Parallel()

	gen, _ := newTestGenerator(t, WithBuildConfig(BuildConfig{Command: "tex2pdf-missing-compiler-for-tests"}))

	_, err := gen.Generate(context.Background(), "x", nil)
	if !errors.Is(err, ErrCompilerNotFound) {
		t.Fatalf("error = %v, want ErrCompilerNotFound", err)
	}
	if !errors.Is(err, ErrSpawn) {
		t.Errorf("error = %v, want ErrSpawn in chain", err)
	}
	be, ok := AsBuildError(err)
	if !ok {
		t.Fatalf("error %T is not *BuildError", err)
	}
	if !strings.Contains(string(be.Log), "executable file not found") {
		t.Errorf("Log = %q, want spawn diagnostic", be.Log)
	}
}

func TestGenerator_RecordsOutcomes(t *testing.T) {
	t.Parallel()

	rec := &recordingRecorder{}
	ok, _ := newTestGenerator(t, WithRunner(writesPDF(4)), WithRecorder(rec))
	bad, _ := newTestGenerator(t, WithRunner(writesLogOnly()), WithRecorder(rec))

	if _, err := ok.Generate(context.Background(), "x", nil); err != nil {
		t.Fatal(err)
	}
	_, _ = bad.Generate(context.Background(), "x", nil)
	_, _ = bad.Generate(context.Background(), "", nil)

	want := []string{OutcomeSuccess, OutcomeFailed, OutcomeError}
	if strings.Join(rec.outcomes, ",") != strings.Join(want, ",") {
		t.Errorf("outcomes = %v, want %v", rec.outcomes, want)
	}
	if len(rec.pages) != 1 || rec.pages[0] != 4 {
		t.Errorf("pages = %v, want [4]", rec.pages)
	}
}

func TestGenerator_PoolBoundsCompilers(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	inner := writesPDF(1)
	runner := &stubRunner{fn: func(ctx context.Context, inv Invocation) (int, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return inner.Run(ctx, inv)
	}}

	pool := NewPool(1)
	gen, _ := newTestGenerator(t, WithRunner(runner), WithPool(pool))

	errs := make(chan error, 5)
	for range 5 {
		go func() {
			_, err := gen.Generate(context.Background(), "x", nil)
			errs <- err
		}()
	}
	for range 5 {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
	if peak.Load() != 1 {
		t.Errorf("peak concurrent compilers = %d, want 1", peak.Load())
	}
	if pool.InUse() != 0 {
		t.Errorf("pool slots still held: %d", pool.InUse())
	}
}

func TestGenerator_GenerateTemplate(t *testing.T) {
	t.Parallel()

	var source string
	runner := &stubRunner{fn: func(ctx context.Context, inv Invocation) (int, error) {
		data, err := os.ReadFile(filepath.Join(inv.Dir, inv.Input))
		if err != nil {
			return -1, err
		}
		source = string(data)
		return writesPDF(1).Run(ctx, inv)
	}}
	gen, _ := newTestGenerator(t, WithRunner(runner))

	tmpl := template.Must(template.New("invoice").Funcs(gen.FuncMap()).Parse(
		`\section{ {{- latex .Title -}} }`))

	if _, err := gen.GenerateTemplate(context.Background(), tmpl, map[string]string{"Title": "R&D costs: 100%"}, nil); err != nil {
		t.Fatalf("GenerateTemplate() error = %v", err)
	}
	if want := `\section{R\&D costs: 100\%}`; source != want {
		t.Errorf("rendered source = %q, want %q", source, want)
	}

	t.Run("template error skips compiler", func(t *testing.T) {
		before := runner.callCount()
		broken := template.Must(template.New("broken").Parse(`{{ .Missing.Field }}`))
		_, err := gen.GenerateTemplate(context.Background(), broken, struct{}{}, nil)
		if err == nil {
			t.Fatal("GenerateTemplate() with failing template succeeded")
		}
		if runner.callCount() != before {
			t.Error("runner called after template error")
		}
	})
}

func TestGenerator_EndToEndWithHelperCompiler(t *testing.T) {
	t.Parallel()

	t.Run("warnings with a pdf still succeed", func(t *testing.T) {
		t.Parallel()

		gen, base := newTestGenerator(t, WithBuildConfig(helperConfig("pdf-warn:4")))
		doc, err := gen.Generate(context.Background(), "x", nil)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if doc.PageCount() != 4 {
			t.Errorf("PageCount() = %d, want 4", doc.PageCount())
		}
		if left := dirEntries(t, base); len(left) != 0 {
			t.Errorf("work directories left behind: %v", left)
		}
	})

	t.Run("tex error is a known failure", func(t *testing.T) {
		t.Parallel()

		gen, _ := newTestGenerator(t, WithBuildConfig(helperConfig("fail")))
		_, err := gen.Generate(context.Background(), "x", nil)
		be, ok := AsBuildError(err)
		if !ok || !errors.Is(err, ErrBuildFailed) {
			t.Fatalf("error = %v, want known failure", err)
		}
		if be.ExitCode != 1 {
			t.Errorf("ExitCode = %d, want 1", be.ExitCode)
		}
		if !strings.Contains(string(be.Log), "! Undefined control sequence.") {
			t.Errorf("Log = %q", be.Log)
		}
	})

	t.Run("timeout kills the compiler", func(t *testing.T) {
		t.Parallel()

		gen, _ := newTestGenerator(t,
			WithBuildConfig(helperConfig("sleep")),
			WithTimeout(300*time.Millisecond),
		)
		start := time.Now()
		_, err := gen.Generate(context.Background(), "x", nil)
		if !errors.Is(err, ErrCompileTimeout) {
			t.Fatalf("error = %v, want ErrCompileTimeout", err)
		}
		if elapsed := time.Since(start); elapsed > 20*time.Second {
			t.Errorf("Generate() took %v", elapsed)
		}
	})
}

func TestGenerator_CompilerPathMissing(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "bin", "pdflatex")
	gen, _ := newTestGenerator(t, WithBuildConfig(BuildConfig{Command: missing}))

	_, err := gen.Generate(context.Background(), "x", nil)
	if !errors.Is(err, ErrCompilerNotFound) {
		t.Fatalf("error = %v, want ErrCompilerNotFound", err)
	}
}

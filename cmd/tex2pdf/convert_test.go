package main

// Notes:
// - mergeFlags: we test that set flags override config values and unset
//   flags leave them alone, including the nil / empty slice distinction for
//   compiler arguments.
// - resolveTimeoutWithEnv: we test duration parsing, validation, and priority.
// - buildConfigFrom / newGenerator: we test that config reaches the library.
// End-to-end runs live in main_test.go.

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/icef/go-tex2pdf"
	"github.com/icef/go-tex2pdf/internal/config"
)

// ---------------------------------------------------------------------------
// TestMergeFlags - CLI flags over config
// ---------------------------------------------------------------------------

func TestMergeFlags(t *testing.T) {
	t.Parallel()

	baseConfig := func() *config.Config {
		cfg := config.DefaultConfig()
		cfg.Compiler.Command = "lualatex"
		cfg.Compiler.Arguments = []string{"-halt-on-error"}
		cfg.Compiler.Env = []string{"TEXINPUTS=./styles:"}
		cfg.WorkDir.Base = "/srv/tex"
		cfg.Workers = 2
		return cfg
	}

	tests := []struct {
		name  string
		flags convertFlags
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name:  "no flags keeps config",
			flags: convertFlags{},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Compiler.Command != "lualatex" {
					t.Errorf("Command = %q, want lualatex", cfg.Compiler.Command)
				}
				if !slices.Equal(cfg.Compiler.Arguments, []string{"-halt-on-error"}) {
					t.Errorf("Arguments = %v", cfg.Compiler.Arguments)
				}
				if cfg.WorkDir.Base != "/srv/tex" || cfg.Workers != 2 {
					t.Errorf("WorkDir.Base = %q, Workers = %d", cfg.WorkDir.Base, cfg.Workers)
				}
			},
		},
		{
			name:  "command overrides",
			flags: convertFlags{compiler: compilerFlags{command: "xelatex"}},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Compiler.Command != "xelatex" {
					t.Errorf("Command = %q, want xelatex", cfg.Compiler.Command)
				}
			},
		},
		{
			name:  "args replace",
			flags: convertFlags{compiler: compilerFlags{args: []string{"-file-line-error"}}},
			check: func(t *testing.T, cfg *config.Config) {
				if !slices.Equal(cfg.Compiler.Arguments, []string{"-file-line-error"}) {
					t.Errorf("Arguments = %v, want [-file-line-error]", cfg.Compiler.Arguments)
				}
			},
		},
		{
			name:  "no default args clears",
			flags: convertFlags{compiler: compilerFlags{noDefaultArgs: true}},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Compiler.Arguments == nil || len(cfg.Compiler.Arguments) != 0 {
					t.Errorf("Arguments = %#v, want empty non-nil", cfg.Compiler.Arguments)
				}
			},
		},
		{
			name:  "explicit args win over no default args",
			flags: convertFlags{compiler: compilerFlags{args: []string{"-draftmode"}, noDefaultArgs: true}},
			check: func(t *testing.T, cfg *config.Config) {
				if !slices.Equal(cfg.Compiler.Arguments, []string{"-draftmode"}) {
					t.Errorf("Arguments = %v, want [-draftmode]", cfg.Compiler.Arguments)
				}
			},
		},
		{
			name:  "env appends",
			flags: convertFlags{compiler: compilerFlags{env: []string{"SOURCE_DATE_EPOCH=0"}}},
			check: func(t *testing.T, cfg *config.Config) {
				want := []string{"TEXINPUTS=./styles:", "SOURCE_DATE_EPOCH=0"}
				if !slices.Equal(cfg.Compiler.Env, want) {
					t.Errorf("Env = %v, want %v", cfg.Compiler.Env, want)
				}
			},
		},
		{
			name: "operational flags",
			flags: convertFlags{
				common:          commonFlags{logLevel: "debug", logFormat: "json"},
				compiler:        compilerFlags{parseTwice: true},
				workDir:         workDirFlags{base: "/tmp/other", keep: true},
				workers:         6,
				metricsTextfile: "tex.prom",
			},
			check: func(t *testing.T, cfg *config.Config) {
				if !cfg.Compiler.ParseTwice || !cfg.WorkDir.Keep {
					t.Errorf("ParseTwice = %v, Keep = %v, want both true", cfg.Compiler.ParseTwice, cfg.WorkDir.Keep)
				}
				if cfg.WorkDir.Base != "/tmp/other" || cfg.Workers != 6 {
					t.Errorf("WorkDir.Base = %q, Workers = %d", cfg.WorkDir.Base, cfg.Workers)
				}
				if cfg.Metrics.Textfile != "tex.prom" {
					t.Errorf("Metrics.Textfile = %q", cfg.Metrics.Textfile)
				}
				if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
					t.Errorf("Log = %+v", cfg.Log)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := baseConfig()
			mergeFlags(&tt.flags, cfg)
			tt.check(t, cfg)
		})
	}
}

func TestMergeFlags_DoesNotAliasFlagArgs(t *testing.T) {
	t.Parallel()

	flags := convertFlags{compiler: compilerFlags{args: []string{"-a"}}}
	cfg := config.DefaultConfig()
	mergeFlags(&flags, cfg)

	cfg.Compiler.Arguments[0] = "-changed"
	if flags.compiler.args[0] != "-a" {
		t.Error("config arguments must not share the flag slice")
	}
}

// ---------------------------------------------------------------------------
// TestResolveTimeoutWithEnv - Timeout priority
// ---------------------------------------------------------------------------

func TestResolveTimeoutWithEnv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flag    string
		env     time.Duration
		cfg     string
		want    time.Duration
		wantErr bool
	}{
		{"nothing set", "", 0, "", 0, false},
		{"flag wins", "30s", time.Minute, "5m", 30 * time.Second, false},
		{"env over config", "", time.Minute, "5m", time.Minute, false},
		{"config fallback", "", 0, "5m", 5 * time.Minute, false},
		{"invalid flag", "soon", 0, "", 0, true},
		{"zero flag", "0s", 0, "", 0, true},
		{"negative flag", "-1s", 0, "", 0, true},
		{"invalid config", "", 0, "later", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolveTimeoutWithEnv(tt.flag, tt.env, tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTimeout) {
					t.Errorf("error = %v, want ErrInvalidTimeout", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveTimeoutWithEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestResolveInputPath / TestResolveOutputDir
// ---------------------------------------------------------------------------

func TestResolveInputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		cfg     *config.Config
		want    string
		wantErr error
	}{
		{
			name: "args takes precedence over config",
			args: []string{"report.tex"},
			cfg:  &config.Config{Input: config.InputConfig{DefaultDir: "./default/"}},
			want: "report.tex",
		},
		{
			name: "config fallback when no args",
			args: []string{},
			cfg:  &config.Config{Input: config.InputConfig{DefaultDir: "./default/"}},
			want: "./default/",
		},
		{
			name:    "error when no args and no config",
			args:    []string{},
			cfg:     &config.Config{},
			wantErr: ErrNoInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolveInputPath(tt.args, tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveInputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveOutputDir(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Output: config.OutputConfig{DefaultDir: "./default/"}}
	if got := resolveOutputDir("./out/", cfg); got != "./out/" {
		t.Errorf("flag should win, got %q", got)
	}
	if got := resolveOutputDir("", cfg); got != "./default/" {
		t.Errorf("config fallback, got %q", got)
	}
	if got := resolveOutputDir("", &config.Config{}); got != "" {
		t.Errorf("empty when unset, got %q", got)
	}
}

// ---------------------------------------------------------------------------
// TestNewGenerator - Config reaches the library
// ---------------------------------------------------------------------------

func TestNewGenerator(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Compiler.Command = "xelatex"
	cfg.Compiler.ParseTwice = true
	cfg.Compiler.Env = []string{"TEXINPUTS=./styles:"}
	cfg.WorkDir.Base = t.TempDir()

	logger, err := newLogger(&strings.Builder{}, "", "", false)
	if err != nil {
		t.Fatal(err)
	}
	s := &settings{cfg: cfg, timeout: 30 * time.Second, logger: logger}

	gen, err := newGenerator(s, nil, tex2pdf.NewPool(1))
	if err != nil {
		t.Fatalf("newGenerator() error = %v", err)
	}

	got := gen.Config()
	if got.Command != "xelatex" || !got.ParseTwice {
		t.Errorf("Config() = %+v, want xelatex with ParseTwice", got)
	}
	if !slices.Equal(got.Arguments, []string{"-halt-on-error"}) {
		t.Errorf("Arguments = %v, want default [-halt-on-error]", got.Arguments)
	}
	if !slices.Equal(got.Env, []string{"TEXINPUTS=./styles:"}) {
		t.Errorf("Env = %v", got.Env)
	}
	if gen.BaseDir() != cfg.WorkDir.Base {
		t.Errorf("BaseDir() = %q, want %q", gen.BaseDir(), cfg.WorkDir.Base)
	}
}

// ---------------------------------------------------------------------------
// TestBatchError - Summary error unwraps to the first failure
// ---------------------------------------------------------------------------

func TestBatchError(t *testing.T) {
	t.Parallel()

	err := error(&batchError{failed: 3, first: tex2pdf.ErrCompileTimeout})

	if got := err.Error(); got != "3 conversion(s) failed" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, tex2pdf.ErrCompileTimeout) {
		t.Error("batchError should unwrap to its first failure")
	}
}

package tex2pdf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/icef/go-tex2pdf/internal/logfields"
)

// inputFile is the name of the source file inside every work directory.
const inputFile = "input.tex"

// Generator compiles LaTeX source into PDF documents.
// A Generator is safe for concurrent use; every build gets its own work
// directory.
type Generator struct {
	baseDir     string
	timeout     time.Duration
	config      BuildConfig
	keepWorkDir bool
	logger      *slog.Logger
	recorder    Recorder
	escaper     Escaper
	runner      Runner
	pool        *Pool
}

// NewGenerator creates a Generator with default configuration: pdflatex
// -halt-on-error, a single pass, a two minute timeout and work directories
// under $TMPDIR/tex2pdf.
// Returns error if the resulting compiler configuration is unusable.
func NewGenerator(opts ...Option) (*Generator, error) {
	g := &Generator{
		timeout:  defaultTimeout,
		config:   DefaultBuildConfig(),
		logger:   discardLogger,
		recorder: noopRecorder{},
		escaper:  LaTeXEscaper{},
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.baseDir == "" {
		g.baseDir = filepath.Join(os.TempDir(), defaultBaseDirName)
	}
	if err := g.config.Validate(); err != nil {
		return nil, err
	}
	if g.runner == nil {
		g.runner = &ExecRunner{Logger: g.logger, Recorder: g.recorder}
	}

	return g, nil
}

// BaseDir returns the directory work directories are created in.
func (g *Generator) BaseDir() string { return g.baseDir }

// Config returns the generator's default build configuration.
func (g *Generator) Config() BuildConfig { return g.config.Merge(BuildConfig{}) }

// NewBuild prepares a build of source. cfg, when non-nil, is merged over
// the generator defaults. Nothing touches the filesystem until
// Build.Generate; the caller must call Build.Cleanup afterwards.
func (g *Generator) NewBuild(source string, cfg *BuildConfig) *Build {
	config := g.config
	if cfg != nil {
		config = config.Merge(*cfg)
	} else {
		config = config.Merge(BuildConfig{})
	}
	return &Build{gen: g, source: source, config: config}
}

// Generate compiles source and returns the decoded PDF. The work directory
// is removed before Generate returns, on every path, unless the generator
// was created with WithKeepWorkDir. On a *BuildError the log content is
// copied into BuildError.Log first and LogPath is cleared with the
// directory.
func (g *Generator) Generate(ctx context.Context, source string, cfg *BuildConfig) (*Document, error) {
	var failure *BuildError
	b := g.NewBuild(source, cfg)
	defer func() {
		if g.keepWorkDir {
			if dir := b.Dir(); dir != "" {
				g.logger.Info("keeping work directory", logfields.WorkDir(dir))
			}
			return
		}
		if err := b.Cleanup(); err != nil {
			g.logger.Warn("work directory cleanup failed", logfields.WorkDir(b.Dir()), logfields.Error(err))
			return
		}
		if failure != nil {
			failure.detachLog()
		}
	}()

	doc, err := b.Generate(ctx)
	if err != nil {
		if be, ok := AsBuildError(err); ok {
			failure = be
			if be.LogPath != "" && be.Log == nil {
				if data, readErr := os.ReadFile(be.LogPath); readErr == nil {
					be.Log = data
				}
			}
		}
		return nil, err
	}
	return doc, nil
}

// Escape escapes text with the configured Escaper.
func (g *Generator) Escape(text string) string {
	return g.escaper.Escape(text)
}

// FuncMap exposes the escaper to text/template as "latex":
//
//	\section{ {{- latex .Title -}} }
func (g *Generator) FuncMap() template.FuncMap {
	return template.FuncMap{
		"latex": g.Escape,
	}
}

// GenerateTemplate executes tmpl with data and compiles the result. Values
// are not escaped implicitly; templates call the "latex" function from
// FuncMap on untrusted input.
func (g *Generator) GenerateTemplate(ctx context.Context, tmpl *template.Template, data any, cfg *BuildConfig) (*Document, error) {
	var src strings.Builder
	if err := tmpl.Execute(&src, data); err != nil {
		return nil, fmt.Errorf("rendering template %s: %w", tmpl.Name(), err)
	}
	return g.Generate(ctx, src.String(), cfg)
}

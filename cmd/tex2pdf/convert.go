package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/icef/go-tex2pdf"
	"github.com/icef/go-tex2pdf/internal/config"
	"github.com/icef/go-tex2pdf/internal/fileutil"
	"github.com/icef/go-tex2pdf/internal/hints"
	"github.com/icef/go-tex2pdf/internal/logfields"
	"github.com/icef/go-tex2pdf/internal/metrics"
)

// ErrInvalidTimeout is returned for a malformed --timeout value.
var ErrInvalidTimeout = errors.New("invalid timeout")

// maxStdinSize bounds LaTeX source read from standard input.
const maxStdinSize = 32 << 20

// settings is the resolved configuration for one CLI run.
type settings struct {
	cfg     *config.Config
	timeout time.Duration
	logger  *slog.Logger
}

// batchError reports failed conversions. It unwraps to the first failure
// so the exit code reflects its category.
type batchError struct {
	failed int
	first  error
}

func (e *batchError) Error() string { return fmt.Sprintf("%d conversion(s) failed", e.failed) }
func (e *batchError) Unwrap() error { return e.first }

// runConvertCmd parses flags and runs the convert command.
func runConvertCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseConvertFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		printConvertUsage(env.Stdout)
		return nil
	}
	if err != nil {
		return err
	}
	return runConvert(ctx, positional, flags, env)
}

// runConvert orchestrates the conversion process.
func runConvert(ctx context.Context, positionalArgs []string, flags *convertFlags, env *Environment) error {
	// Validate worker count early
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	s, err := loadSettings(flags, env)
	if err != nil {
		return err
	}

	if len(positionalArgs) > 0 && positionalArgs[0] == stdinPath {
		return convertStdin(ctx, flags, s, env)
	}

	// Resolve input path
	inputPath, err := resolveInputPath(positionalArgs, s.cfg)
	if err != nil {
		return err
	}

	// Discover files to convert
	files, err := discoverFiles(inputPath, resolveOutputDir(flags.output, s.cfg))
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w in %s", ErrNoSources, inputPath)
	}

	var recorder *metrics.PrometheusRecorder
	if s.cfg.Metrics.Textfile != "" {
		recorder = metrics.NewPrometheusRecorder(nil)
	}

	pool := tex2pdf.NewPool(tex2pdf.ResolvePoolSize(s.cfg.Workers))
	gen, err := newGenerator(s, recorder, pool)
	if err != nil {
		return err
	}
	if flags.common.verbose {
		fmt.Fprintf(env.Stderr, "Compilers: %d\n", pool.Size())
	}

	var progress io.Writer
	if len(files) > 1 && !flags.common.quiet && !flags.common.verbose {
		progress = env.Stderr
	}

	results := convertBatch(ctx, gen, files, batchOptions{workers: pool.Size(), progress: progress})
	summary := printResultsWithWriter(results, reportOptionsFor(flags, s.cfg, gen), env)

	if recorder != nil {
		if err := recorder.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
			s.logger.Warn("writing metrics textfile failed", logfields.Output(s.cfg.Metrics.Textfile), logfields.Error(err))
		}
	}

	if summary.Failed > 0 {
		return &batchError{failed: summary.Failed, first: summary.FirstErr}
	}
	return nil
}

// convertStdin compiles source read from standard input. Without --output,
// or with "-o -", the PDF goes to standard output.
func convertStdin(ctx context.Context, flags *convertFlags, s *settings, env *Environment) error {
	data, err := io.ReadAll(io.LimitReader(env.Stdin, maxStdinSize+1))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadSource, err)
	}
	if len(data) > maxStdinSize {
		return fmt.Errorf("%w: standard input exceeds %d bytes", ErrReadSource, maxStdinSize)
	}

	gen, err := newGenerator(s, nil, nil)
	if err != nil {
		return err
	}

	doc, err := gen.Generate(ctx, string(data), nil)
	if err != nil {
		printFailure(env.Stderr, "<stdin>", err, reportOptionsFor(flags, s.cfg, gen))
		return &batchError{failed: 1, first: err}
	}

	if flags.output == "" || flags.output == stdinPath {
		if _, err := doc.WriteTo(env.Stdout); err != nil {
			return fmt.Errorf("%w: %w", ErrWritePDF, err)
		}
		return nil
	}
	if err := fileutil.WriteFileAtomic(flags.output, doc.Bytes(), filePermissions); err != nil {
		return fmt.Errorf("%w: %w%s", ErrWritePDF, err, hints.ForOutputDirectory())
	}
	if !flags.common.quiet {
		fmt.Fprintf(env.Stderr, "Created %s\n", flags.output)
	}
	return nil
}

// loadSettings resolves configuration with precedence
// CLI flags > environment > config file > defaults.
func loadSettings(flags *convertFlags, env *Environment) (*settings, error) {
	if err := loadEnvFile(flags.common.envFile); err != nil {
		return nil, err
	}
	envCfg := loadEnvConfig()
	if !flags.common.quiet {
		warnUnknownEnvVars(env.Stderr)
	}

	// Load configuration
	cfg := config.DefaultConfig()
	configName := flags.common.config
	if configName == "" {
		configName = envCfg.ConfigPath
	}
	if configName != "" {
		var err error
		cfg, err = config.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) && !fileutil.IsFilePath(configName) {
				return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(config.SearchPaths(configName)))
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	applyEnvConfig(envCfg, cfg)
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout, err := resolveTimeoutWithEnv(flags.compiler.timeout, envCfg.Timeout, cfg.Compiler.Timeout)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(env.Stderr, cfg.Log.Level, cfg.Log.Format, flags.common.verbose)
	if err != nil {
		return nil, err
	}

	return &settings{cfg: cfg, timeout: timeout, logger: logger}, nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(flags *convertFlags, cfg *config.Config) {
	// Compiler flags
	if flags.compiler.command != "" {
		cfg.Compiler.Command = flags.compiler.command
	}
	switch {
	case len(flags.compiler.args) > 0:
		cfg.Compiler.Arguments = append([]string{}, flags.compiler.args...)
	case flags.compiler.noDefaultArgs:
		cfg.Compiler.Arguments = []string{}
	}
	if flags.compiler.parseTwice {
		cfg.Compiler.ParseTwice = true
	}
	// Environment entries add to the configured ones.
	if len(flags.compiler.env) > 0 {
		cfg.Compiler.Env = append(cfg.Compiler.Env, flags.compiler.env...)
	}

	// Work directory flags
	if flags.workDir.base != "" {
		cfg.WorkDir.Base = flags.workDir.base
	}
	if flags.workDir.keep {
		cfg.WorkDir.Keep = true
	}

	// Run flags
	if flags.workers > 0 {
		cfg.Workers = flags.workers
	}
	if flags.metricsTextfile != "" {
		cfg.Metrics.Textfile = flags.metricsTextfile
	}
	if flags.common.logLevel != "" {
		cfg.Log.Level = flags.common.logLevel
	}
	if flags.common.logFormat != "" {
		cfg.Log.Format = flags.common.logFormat
	}
}

// resolveTimeoutWithEnv determines the build timeout.
// Priority: flag > env > config > 0 (generator default).
func resolveTimeoutWithEnv(flagValue string, envValue time.Duration, configValue string) (time.Duration, error) {
	if flagValue != "" {
		d, err := time.ParseDuration(flagValue)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimeout, flagValue, err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("%w: must be positive, got %s", ErrInvalidTimeout, d)
		}
		return d, nil
	}
	if envValue > 0 {
		return envValue, nil
	}
	if configValue != "" {
		d, err := time.ParseDuration(configValue)
		if err != nil || d <= 0 {
			return 0, fmt.Errorf("%w: config value %q", ErrInvalidTimeout, configValue)
		}
		return d, nil
	}
	return 0, nil
}

// buildConfigFrom maps the compiler section onto a BuildConfig override.
func buildConfigFrom(cfg *config.Config) tex2pdf.BuildConfig {
	return tex2pdf.BuildConfig{
		Command:    cfg.Compiler.Command,
		Arguments:  cfg.Compiler.Arguments,
		ParseTwice: cfg.Compiler.ParseTwice,
		Env:        cfg.Compiler.Env,
	}
}

// newGenerator creates the generator for a CLI run. recorder and pool are
// optional.
func newGenerator(s *settings, recorder *metrics.PrometheusRecorder, pool *tex2pdf.Pool) (*tex2pdf.Generator, error) {
	opts := []tex2pdf.Option{
		tex2pdf.WithBuildConfig(buildConfigFrom(s.cfg)),
		tex2pdf.WithLogger(s.logger),
		tex2pdf.WithKeepWorkDir(s.cfg.WorkDir.Keep),
	}
	if s.cfg.WorkDir.Base != "" {
		opts = append(opts, tex2pdf.WithBaseDir(s.cfg.WorkDir.Base))
	}
	if s.timeout > 0 {
		opts = append(opts, tex2pdf.WithTimeout(s.timeout))
	}
	if recorder != nil {
		opts = append(opts, tex2pdf.WithRecorder(recorder))
	}
	if pool != nil {
		opts = append(opts, tex2pdf.WithPool(pool))
	}
	return tex2pdf.NewGenerator(opts...)
}

func reportOptionsFor(flags *convertFlags, cfg *config.Config, gen *tex2pdf.Generator) reportOptions {
	return reportOptions{
		quiet:    flags.common.quiet,
		verbose:  flags.common.verbose,
		keepLogs: cfg.WorkDir.Keep,
		command:  gen.Config().Command,
		baseDir:  gen.BaseDir(),
	}
}

// resolveInputPath determines the input path from args or config.
func resolveInputPath(args []string, cfg *config.Config) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.Input.DefaultDir != "" {
		return cfg.Input.DefaultDir, nil
	}
	return "", ErrNoInput
}

// resolveOutputDir determines the output directory from flag or config.
func resolveOutputDir(flagOutput string, cfg *config.Config) string {
	if flagOutput != "" {
		return flagOutput
	}
	return cfg.Output.DefaultDir
}

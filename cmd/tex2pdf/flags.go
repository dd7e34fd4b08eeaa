package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"
)

// ErrUsage wraps flag parsing errors.
var ErrUsage = errors.New("invalid usage")

// defaultDebounce groups the burst of events an editor save produces.
const defaultDebounce = 300 * time.Millisecond

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	envFile   string
	quiet     bool
	verbose   bool
	logLevel  string
	logFormat string
}

// compilerFlags holds flags mapped onto tex2pdf.BuildConfig.
type compilerFlags struct {
	command       string
	args          []string
	noDefaultArgs bool
	parseTwice    bool
	timeout       string
	env           []string
}

// workDirFlags holds build directory flags.
type workDirFlags struct {
	base string
	keep bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common          commonFlags
	compiler        compilerFlags
	workDir         workDirFlags
	output          string
	workers         int
	metricsTextfile string
}

// watchFlags adds the debounce interval to the convert flags.
type watchFlags struct {
	convertFlags
	debounce time.Duration
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.envFile, "env-file", "", "load TEX2PDF_* variables from a dotenv file")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed timing")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json")
}

// addCompilerFlags adds compiler flags to a FlagSet.
func addCompilerFlags(fs *flag.FlagSet, f *compilerFlags) {
	fs.StringVar(&f.command, "command", "", "compiler executable (default pdflatex)")
	fs.StringArrayVar(&f.args, "arg", nil, "compiler argument, repeatable (replaces the defaults)")
	fs.BoolVar(&f.noDefaultArgs, "no-default-args", false, "drop the default -halt-on-error")
	fs.BoolVar(&f.parseTwice, "parse-twice", false, "run a -draftmode pass first (references, TOC)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "build timeout (e.g., 30s, 2m)")
	fs.StringArrayVar(&f.env, "env", nil, "KEY=VALUE for the compiler environment, repeatable")
}

// addWorkDirFlags adds work directory flags to a FlagSet.
func addWorkDirFlags(fs *flag.FlagSet, f *workDirFlags) {
	fs.StringVar(&f.base, "workdir-base", "", "directory for build directories (default $TMPDIR/tex2pdf)")
	fs.BoolVar(&f.keep, "keep-workdir", false, "keep build directories for debugging")
}

// addConvertFlags registers every convert flag on fs.
func addConvertFlags(fs *flag.FlagSet, f *convertFlags) {
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory (- for stdout)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel compilers (0 = auto)")
	fs.StringVar(&f.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file")

	addCommonFlags(fs, &f.common)
	addCompilerFlags(fs, &f.compiler)
	addWorkDirFlags(fs, &f.workDir)
}

// addWatchFlags registers the convert flags plus --debounce on fs.
func addWatchFlags(fs *flag.FlagSet, f *watchFlags) {
	addConvertFlags(fs, &f.convertFlags)
	fs.DurationVar(&f.debounce, "debounce", defaultDebounce, "wait for changes to settle before rebuilding")
}

// newFlagSet returns a FlagSet that reports errors instead of printing.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	return fs
}

// parseError wraps pflag errors. flag.ErrHelp passes through unchanged.
func parseError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUsage, err)
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string) (*convertFlags, []string, error) {
	fs := newFlagSet("convert")
	f := &convertFlags{}
	addConvertFlags(fs, f)

	if err := fs.Parse(args); err != nil {
		return nil, nil, parseError(err)
	}
	return f, fs.Args(), nil
}

// parseWatchFlags parses watch command flags and returns positional args.
func parseWatchFlags(args []string) (*watchFlags, []string, error) {
	fs := newFlagSet("watch")
	f := &watchFlags{}
	addWatchFlags(fs, f)

	if err := fs.Parse(args); err != nil {
		return nil, nil, parseError(err)
	}
	if f.debounce <= 0 {
		return nil, nil, fmt.Errorf("%w: --debounce must be positive", ErrUsage)
	}
	return f, fs.Args(), nil
}

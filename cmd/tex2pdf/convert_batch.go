package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/icef/go-tex2pdf"
	"github.com/icef/go-tex2pdf/internal/fileutil"
	"github.com/icef/go-tex2pdf/internal/hints"
	"github.com/icef/go-tex2pdf/internal/texlog"
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Sentinel errors for batch operations.
var (
	ErrNoInput    = errors.New("no input specified")
	ErrReadSource = errors.New("failed to read LaTeX source")
	ErrWritePDF   = errors.New("failed to write PDF file")
)

// progressTemplate matches the bar style used by batch tools.
const progressTemplate = `{{ bar . " " "━" "━" " " " "}} {{counters .}} {{rtime .}}`

// Converter is the compilation service used by the CLI.
type Converter interface {
	Generate(ctx context.Context, source string, cfg *tex2pdf.BuildConfig) (*tex2pdf.Document, error)
}

// Compile-time interface implementation check.
var _ Converter = (*tex2pdf.Generator)(nil)

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	InputPath  string
	OutputPath string
	Pages      int
	Err        error
	Duration   time.Duration
}

// batchOptions controls convertBatch.
type batchOptions struct {
	workers  int
	progress io.Writer // nil disables the progress bar
}

// convertBatch processes files concurrently. Concurrency of the compilers
// themselves is bounded by the generator's pool; workers only bounds how
// many sources are read and held in memory at once.
func convertBatch(ctx context.Context, conv Converter, files []FileToConvert, opts batchOptions) []ConversionResult {
	if len(files) == 0 {
		return nil
	}

	concurrency := max(min(opts.workers, len(files)), 1)

	var bar *pb.ProgressBar
	if opts.progress != nil {
		bar = pb.New(len(files)).
			SetTemplateString(progressTemplate).
			SetWriter(opts.progress).
			Start()
		defer bar.Finish()
	}

	results := make([]ConversionResult, len(files))
	var wg sync.WaitGroup
	jobs := make(chan int, len(files))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = ConversionResult{
						InputPath: files[idx].InputPath,
						Err:       ctx.Err(),
					}
				} else {
					results[idx] = convertFile(ctx, conv, files[idx])
				}
				if bar != nil {
					bar.Increment()
				}
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// convertFile compiles a single file and writes the PDF atomically.
func convertFile(ctx context.Context, conv Converter, f FileToConvert) ConversionResult {
	start := time.Now()
	result := ConversionResult{
		InputPath:  f.InputPath,
		OutputPath: f.OutputPath,
	}
	fail := func(err error) ConversionResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	content, err := os.ReadFile(f.InputPath) // #nosec G304 -- discovered path
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrReadSource, err))
	}

	outDir := filepath.Dir(f.OutputPath)
	if err := os.MkdirAll(outDir, dirPermissions); err != nil {
		return fail(fmt.Errorf("%w: creating output directory: %w", ErrWritePDF, err))
	}

	doc, err := conv.Generate(ctx, string(content), nil)
	if err != nil {
		return fail(err)
	}

	if err := fileutil.WriteFileAtomic(f.OutputPath, doc.Bytes(), filePermissions); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrWritePDF, err))
	}

	result.Pages = doc.PageCount()
	result.Duration = time.Since(start)
	return result
}

// ResultSummary holds the count of succeeded and failed conversions.
type ResultSummary struct {
	Succeeded int
	Failed    int
	FirstErr  error
}

// countResults tallies succeeded and failed conversions.
func countResults(results []ConversionResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			if summary.FirstErr == nil {
				summary.FirstErr = r.Err
			}
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// reportOptions controls how results are printed.
type reportOptions struct {
	quiet    bool
	verbose  bool
	keepLogs bool   // log paths in errors are still on disk
	command  string // compiler named in not-found hints
	baseDir  string // work directory base named in hints
}

// printResultsWithWriter outputs conversion results using the provided writers.
func printResultsWithWriter(results []ConversionResult, opts reportOptions, env *Environment) ResultSummary {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			printFailure(env.Stderr, r.InputPath, r.Err, opts)
			continue
		}

		if opts.quiet {
			continue
		}

		if opts.verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d pages, %v)\n", r.InputPath, r.OutputPath, r.Pages, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !opts.quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary
}

// printFailure reports one failed input with a hint and, unless quiet,
// the relevant part of the compiler log.
func printFailure(w io.Writer, input string, err error, opts reportOptions) {
	fmt.Fprintf(w, "FAILED %s: %v%s\n", input, err, hintFor(err, opts))
	if opts.quiet {
		return
	}
	if excerpt := logExcerpt(err); excerpt != "" {
		fmt.Fprintln(w, indent(excerpt, "    "))
	}
}

// hintFor returns an actionable hint for a conversion error.
func hintFor(err error, opts reportOptions) string {
	switch {
	case errors.Is(err, tex2pdf.ErrCompilerNotFound):
		command := opts.command
		if command == "" {
			command = tex2pdf.DefaultCommand
		}
		return hints.ForCompilerNotFound(command)
	case errors.Is(err, tex2pdf.ErrCompileTimeout):
		return hints.ForTimeout()
	case errors.Is(err, tex2pdf.ErrBuildFailed):
		var logPath string
		if be, ok := tex2pdf.AsBuildError(err); ok {
			logPath = be.LogPath
		}
		return hints.ForBuildFailed(logPath, opts.keepLogs)
	case errors.Is(err, tex2pdf.ErrWorkDir):
		return hints.ForWorkDirBase(opts.baseDir)
	case errors.Is(err, ErrWritePDF):
		return hints.ForOutputDirectory()
	}
	return ""
}

// logExcerpt returns the interesting part of a failed build's log.
func logExcerpt(err error) string {
	be, ok := tex2pdf.AsBuildError(err)
	if !ok || len(be.Log) == 0 || errors.Is(err, tex2pdf.ErrCompilerNotFound) {
		return ""
	}
	return texlog.Excerpt(be.Log, texlog.DefaultExcerptLines)
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// Package tex2pdf compiles LaTeX source into PDF documents by running an
// external compiler (pdflatex by default) as a child process.
//
// # Quick Start
//
// Create a generator and compile a document:
//
//	gen, err := tex2pdf.NewGenerator()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	doc, err := gen.Generate(ctx, source, nil)
//	if err != nil {
//	    if be, ok := tex2pdf.AsBuildError(err); ok {
//	        os.Stderr.Write(be.Log)
//	    }
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d pages\n", doc.PageCount())
//	os.WriteFile("output.pdf", doc.Bytes(), 0o644)
//
// # Build Lifecycle
//
// Every build runs in its own work directory under the generator's base
// directory:
//
//  1. a uniquely named directory is created (<pid>-<counter>-<random>)
//  2. the source is written to input.tex
//  3. the compiler runs with that directory as its working directory,
//     stdout and stderr appended to input.log
//  4. input.pdf present means success, whatever the exit status;
//     otherwise input.log present means a known failure
//  5. the PDF is decoded to count its pages
//
// Generator.Generate removes the directory before returning. Callers that
// need the files afterwards use NewBuild and call Cleanup themselves:
//
//	b := gen.NewBuild(source, nil)
//	defer b.Cleanup()
//	doc, err := b.Generate(ctx)
//	if err != nil {
//	    log, _ := b.ReadLog()
//	    ...
//	}
//
// # Configuration
//
// Use functional options to customize the generator:
//
//	gen, err := tex2pdf.NewGenerator(
//	    tex2pdf.WithTimeout(5 * time.Minute),
//	    tex2pdf.WithBaseDir("/var/tmp/tex2pdf"),
//	    tex2pdf.WithBuildConfig(tex2pdf.BuildConfig{ParseTwice: true}),
//	)
//
// Per-build settings are merged over the generator defaults:
//
//	doc, err := gen.Generate(ctx, source, &tex2pdf.BuildConfig{
//	    Command:   "xelatex",
//	    Arguments: []string{"-halt-on-error", "-file-line-error"},
//	})
//
// The compiler is always invoked as
//
//	<command> <arguments> [-draftmode] -shell-escape -interaction batchmode input.tex
//
// # Escaping
//
// Text interpolated into LaTeX must be escaped. The generator carries an
// Escaper (LaTeXEscaper unless WithEscaper says otherwise) and exposes it
// to text/template through FuncMap:
//
//	tmpl := template.Must(template.New("letter").Funcs(gen.FuncMap()).Parse(src))
//	doc, err := gen.GenerateTemplate(ctx, tmpl, data, nil)
//
// # Timeouts and Cancellation
//
// Builds are bounded by the generator timeout and by ctx. When either
// ends, the compiler's whole process group is killed, including helpers
// started through -shell-escape.
//
// # Parallel Processing
//
// A Generator may be used from many goroutines. Share a Pool to bound the
// number of compiler processes:
//
//	pool := tex2pdf.NewPool(tex2pdf.ResolvePoolSize(0))
//	gen, err := tex2pdf.NewGenerator(tex2pdf.WithPool(pool))
//
// # Errors
//
// Failures wrap sentinel errors and can be tested with errors.Is:
//
//   - ErrWorkDir, ErrWriteSource: filesystem failures
//   - ErrBuildFailed: the compiler wrote a log but no PDF
//   - ErrBuildUnknown: neither PDF nor log
//   - ErrCompilerNotFound: the command is not on PATH
//   - ErrCompileTimeout: the timeout expired
//   - ErrDecode: the PDF could not be parsed
//
// Build failures are *BuildError values carrying the log path.
package tex2pdf

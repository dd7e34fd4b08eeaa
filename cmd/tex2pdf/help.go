package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Compile LaTeX files to PDF")
	fmt.Fprintln(w, "  watch      Recompile LaTeX files when they change")
	fmt.Fprintln(w, "  escape     Escape text for use in LaTeX source")
	fmt.Fprintln(w, "  doctor     Check the TeX installation and environment")
	fmt.Fprintln(w, "  completion Generate shell completion script")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "'tex2pdf report.tex' is shorthand for 'tex2pdf convert report.tex'.")
	fmt.Fprintln(w, "Run 'tex2pdf help <command>' for details on a specific command.")
}

// printBuildFlags prints the flags shared by convert and watch.
func printBuildFlags(w io.Writer) {
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file or directory")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --env-file <path>     Load TEX2PDF_* variables from a dotenv file")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel compilers (0 = auto)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compiler:")
	fmt.Fprintln(w, "      --command <name>      Compiler executable (default pdflatex)")
	fmt.Fprintln(w, "      --arg <s>             Compiler argument, repeatable (replaces -halt-on-error)")
	fmt.Fprintln(w, "      --no-default-args     Run the compiler without -halt-on-error")
	fmt.Fprintln(w, "      --parse-twice         Run a -draftmode pass first (references, TOC)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Build timeout (e.g., 30s, 2m; default 2m)")
	fmt.Fprintln(w, "      --env <KEY=VALUE>     Compiler environment entry, repeatable")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Build Directories:")
	fmt.Fprintln(w, "      --workdir-base <dir>  Base for build directories (default $TMPDIR/tex2pdf)")
	fmt.Fprintln(w, "      --keep-workdir        Keep build directories and logs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show detailed timing")
	fmt.Fprintln(w, "      --log-level <s>       Log level: debug, info, warn, error")
	fmt.Fprintln(w, "      --log-format <s>      Log format: text, json")
	fmt.Fprintln(w, "      --metrics-textfile <path>")
	fmt.Fprintln(w, "                            Write Prometheus metrics after the run")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf convert <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compile LaTeX files to PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    .tex file, directory, or - for standard input")
	fmt.Fprintln(w, "           (optional if config has input.defaultDir)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Directories are searched recursively for files containing \\documentclass.")
	fmt.Fprintln(w, "With - the PDF is written to standard output unless -o names a file.")
	fmt.Fprintln(w)
	printBuildFlags(w)
}

// printWatchUsage prints usage for the watch command.
func printWatchUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf watch <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compile LaTeX files, then recompile whenever a file below the input changes.")
	fmt.Fprintln(w, "Stop with Ctrl+C.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    .tex file or directory (optional if config has input.defaultDir)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Watch:")
	fmt.Fprintln(w, "      --debounce <d>        Wait for changes to settle (default 300ms)")
	fmt.Fprintln(w)
	printBuildFlags(w)
}

// printEscapeUsage prints usage for the escape command.
func printEscapeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf escape [text...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print text with LaTeX special characters escaped.")
	fmt.Fprintln(w, "Without arguments, standard input is escaped.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -n, --no-newline          Do not print the trailing newline")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check the TeX installation and environment.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                Print results as JSON")
	fmt.Fprintln(w, "      --command <name>      Compiler to check (default pdflatex)")
	fmt.Fprintln(w, "      --workdir-base <dir>  Build directory base to check")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) error {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return nil
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "watch":
		printWatchUsage(env.Stdout)
	case "escape":
		printEscapeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: tex2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: tex2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		printUsage(env.Stderr)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	return nil
}

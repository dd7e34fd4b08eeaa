package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ErrUnknownCommand is returned for an unrecognized first argument.
var ErrUnknownCommand = errors.New("unknown command")

// commands lists the subcommands in help order.
var commands = []string{"convert", "watch", "escape", "doctor", "completion", "version", "help"}

func main() {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	// Pool sizing reads GOMAXPROCS, so this must run before any command.
	if slices.Contains(os.Args, "--verbose") || slices.Contains(os.Args, "-v") {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	os.Exit(runMain(os.Args, DefaultEnv()))
}

// runMain dispatches args (program name first) and returns the exit code.
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	cmd, rest := args[1], args[2:]
	if cmd == "-h" || cmd == "--help" {
		cmd = "help"
	}

	// "tex2pdf report.tex" and "tex2pdf -o out/ dir" are shorthand for convert.
	if !isCommand(cmd) && (looksLikeTeX(cmd) || strings.HasPrefix(cmd, "-")) {
		cmd, rest = "convert", args[1:]
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	var err error
	switch cmd {
	case "convert":
		err = runConvertCmd(ctx, rest, env)
	case "watch":
		err = runWatchCmd(ctx, rest, env)
	case "escape":
		err = runEscapeCmd(rest, env)
	case "doctor":
		return runDoctorCmd(ctx, rest, env)
	case "completion":
		err = runCompletion(rest, env)
	case "version":
		fmt.Fprintf(env.Stdout, "tex2pdf %s\n", Version)
		return ExitSuccess
	case "help":
		err = runHelp(rest, env)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
		fmt.Fprintln(env.Stderr, err)
		printUsage(env.Stderr)
		return ExitUsage
	}

	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// isCommand reports whether s names a subcommand. Matching is case sensitive.
func isCommand(s string) bool {
	return slices.Contains(commands, s)
}

// looksLikeTeX reports whether s has a LaTeX source extension.
func looksLikeTeX(s string) bool {
	return slices.Contains(texExtensions, strings.ToLower(filepath.Ext(s)))
}

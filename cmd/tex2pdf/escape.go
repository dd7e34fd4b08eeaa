package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/icef/go-tex2pdf"
)

// maxEscapeInput bounds text read from standard input by the escape command.
const maxEscapeInput = 8 << 20

// runEscapeCmd prints its arguments, or standard input when there are none,
// with LaTeX special characters escaped.
func runEscapeCmd(args []string, env *Environment) error {
	fs := newFlagSet("escape")
	var noNewline bool
	fs.BoolVarP(&noNewline, "no-newline", "n", false, "do not print the trailing newline")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printEscapeUsage(env.Stdout)
			return nil
		}
		return parseError(err)
	}

	var escaper tex2pdf.LaTeXEscaper

	if fs.NArg() > 0 {
		out := escaper.Escape(strings.Join(fs.Args(), " "))
		if !noNewline {
			out += "\n"
		}
		_, err := io.WriteString(env.Stdout, out)
		return err
	}

	data, err := io.ReadAll(io.LimitReader(env.Stdin, maxEscapeInput+1))
	if err != nil {
		return fmt.Errorf("reading standard input: %w", err)
	}
	if len(data) > maxEscapeInput {
		return fmt.Errorf("%w: standard input exceeds %d bytes", ErrUsage, maxEscapeInput)
	}
	_, err = io.WriteString(env.Stdout, escaper.Escape(string(data)))
	return err
}

package tex2pdf

import "strings"

// Escaper turns arbitrary text into LaTeX that typesets it literally.
// Templates producing LaTeX source apply it to every interpolated value.
type Escaper interface {
	Escape(text string) string
}

// EscaperFunc adapts a plain function to Escaper.
type EscaperFunc func(string) string

func (f EscaperFunc) Escape(text string) string { return f(text) }

// latexReplacer is immutable and safe for concurrent use.
var latexReplacer = strings.NewReplacer(
	// Delimiters with a direct escaped form.
	`{`, `\{`,
	`}`, `\}`,
	`_`, `\_`,
	`$`, `\$`,
	`&`, `\&`,
	`%`, `\%`,
	`#`, `\#`,
	// Characters that need a named glyph.
	`\`, `\textbackslash{}`,
	`^`, `\textasciicircum{}`,
	`~`, `\textasciitilde{}`,
	`|`, `\textbar{}`,
	`<`, `\textless{}`,
	`>`, `\textgreater{}`,
)

// LaTeXEscaper escapes the characters that are special to LaTeX
// ({ } _ $ & % # \ ^ ~ | < >) and leaves everything else untouched.
type LaTeXEscaper struct{}

// Compile-time interface implementation check.
var _ Escaper = LaTeXEscaper{}

func (LaTeXEscaper) Escape(text string) string {
	return latexReplacer.Replace(text)
}

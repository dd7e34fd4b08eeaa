package texlog

// Notes:
// - Fixtures are trimmed copies of real pdflatex batchmode logs.

import (
	"strings"
	"testing"
)

const undefinedControlSequence = `This is pdfTeX, Version 3.141592653-2.6-1.40.25 (TeX Live 2023) (preloaded format=pdflatex)
 \write18 enabled.
entering extended mode
(./input.tex
LaTeX2e <2022-11-01> patch level 1
(/usr/share/texlive/texmf-dist/tex/latex/base/article.cls
Document Class: article 2022/07/02 v1.4n Standard LaTeX document class
)
! Undefined control sequence.
l.4 \foo
        {bar}
Here is how much of TeX's memory you used:
 1 string
`

const missingEnd = `(./input.tex
! LaTeX Error: \begin{itemize} on input line 3 ended by \end{document}.

See the LaTeX manual or LaTeX Companion for explanation.
Type  H <return>  for immediate help.
 ...

l.5 \end{document}

! Emergency stop.
`

// ---------------------------------------------------------------------------
// TestFirstError
// ---------------------------------------------------------------------------

func TestFirstError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		log      string
		wantOK   bool
		wantMsg  string
		wantLine int
	}{
		{"undefined control sequence", undefinedControlSequence, true, "Undefined control sequence.", 4},
		{"environment mismatch", missingEnd, true, `LaTeX Error: \begin{itemize} on input line 3 ended by \end{document}.`, 5},
		{"no error", "(./input.tex)\nOutput written on input.pdf (1 page, 1234 bytes).\n", false, "", 0},
		{"empty", "", false, "", 0},
		{"error without line marker", "! I can't find file `missing.tex'.\n", true, "I can't find file `missing.tex'.", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, ok := FirstError([]byte(tt.log))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if d.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", d.Message, tt.wantMsg)
			}
			if d.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", d.Line, tt.wantLine)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExcerpt
// ---------------------------------------------------------------------------

func TestExcerpt_ErrorBlock(t *testing.T) {
	t.Parallel()

	got := Excerpt([]byte(undefinedControlSequence), 12)
	want := "! Undefined control sequence.\nl.4 \\foo\n        {bar}"
	if got != want {
		t.Errorf("Excerpt() =\n%s\nwant\n%s", got, want)
	}
}

func TestExcerpt_BoundedByMaxLines(t *testing.T) {
	t.Parallel()

	got := Excerpt([]byte(missingEnd), 3)
	if n := len(strings.Split(got, "\n")); n != 3 {
		t.Errorf("Excerpt() has %d lines, want 3:\n%s", n, got)
	}
	if !strings.HasPrefix(got, "! LaTeX Error:") {
		t.Errorf("Excerpt() should start at the error line, got:\n%s", got)
	}
}

func TestExcerpt_TailWhenNoError(t *testing.T) {
	t.Parallel()

	log := "line one\n\nline two\nline three\n\n"
	got := Excerpt([]byte(log), 2)
	if got != "line two\nline three" {
		t.Errorf("Excerpt() = %q, want last two non-empty lines", got)
	}
}

func TestExcerpt_DefaultSize(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("noise\n")
	}
	got := Excerpt([]byte(b.String()), 0)
	if n := len(strings.Split(got, "\n")); n != DefaultExcerptLines {
		t.Errorf("Excerpt() has %d lines, want %d", n, DefaultExcerptLines)
	}
}

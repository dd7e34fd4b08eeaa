package tex2pdf

import (
	"path/filepath"

	"github.com/icef/go-tex2pdf/internal/fileutil"
)

// ResultStatus is the outcome category of a compiler run.
type ResultStatus int

const (
	StatusSuccess ResultStatus = iota + 1
	StatusKnownFailure
	StatusUnknownFailure
)

func (s ResultStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusKnownFailure:
		return "known_failure"
	case StatusUnknownFailure:
		return "unknown_failure"
	default:
		return "invalid"
	}
}

// BuildResult is what a work directory looks like after the compiler ran.
// PDFPath is set only on success, LogPath only on a known failure.
type BuildResult struct {
	Status  ResultStatus
	PDFPath string
	LogPath string
	Message string
}

// Classify inspects dir after compiling input.
//
// The PDF's presence is the only success signal: pdflatex may exit
// non-zero on recoverable errors and still write a usable document.
// Without a PDF, a log means the compiler ran and explained itself.
func Classify(dir, input string) BuildResult {
	pdfPath := filepath.Join(dir, fileutil.ReplaceExt(input, ".pdf"))
	if fileutil.FileExists(pdfPath) {
		return BuildResult{Status: StatusSuccess, PDFPath: pdfPath}
	}

	logPath := filepath.Join(dir, fileutil.ReplaceExt(input, ".log"))
	if fileutil.FileExists(logPath) {
		fe := newKnownFailure(logPath)
		return BuildResult{Status: StatusKnownFailure, LogPath: logPath, Message: fe.Message}
	}

	return BuildResult{Status: StatusUnknownFailure, Message: newUnknownFailure().Message}
}

// Err returns nil for a success and the matching *BuildError otherwise.
func (r BuildResult) Err() error {
	switch r.Status {
	case StatusSuccess:
		return nil
	case StatusKnownFailure:
		return newKnownFailure(r.LogPath)
	default:
		return newUnknownFailure()
	}
}

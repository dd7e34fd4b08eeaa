package main

import (
	"errors"
	"os"

	"github.com/icef/go-tex2pdf"
	"github.com/icef/go-tex2pdf/internal/config"
)

// Exit codes for the tex2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Successful conversion
	ExitGeneral  = 1 // General/unexpected error
	ExitUsage    = 2 // Invalid flags, config, or validation
	ExitIO       = 3 // File not found, permission denied
	ExitCompiler = 4 // Compiler missing, failed, or timed out
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Compiler errors (exit 4). Checked first: a missing compiler also
	// matches os.ErrNotExist.
	if errors.Is(err, tex2pdf.ErrCompilerNotFound) ||
		errors.Is(err, tex2pdf.ErrSpawn) ||
		errors.Is(err, tex2pdf.ErrBuildFailed) ||
		errors.Is(err, tex2pdf.ErrBuildUnknown) ||
		errors.Is(err, tex2pdf.ErrCompileTimeout) ||
		errors.Is(err, tex2pdf.ErrDecode) {
		return ExitCompiler
	}

	// A bad --env-file is a usage error even when the file is missing.
	if errors.Is(err, ErrEnvFile) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, tex2pdf.ErrWorkDir) ||
		errors.Is(err, tex2pdf.ErrWriteSource) ||
		errors.Is(err, ErrReadSource) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrNoSources) ||
		errors.Is(err, ErrWatch) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, tex2pdf.ErrEmptySource) ||
		errors.Is(err, tex2pdf.ErrInvalidCommand) ||
		errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrUnsupportedShell) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidTimeout) {
		return ExitUsage
	}

	return ExitGeneral
}

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/icef/go-tex2pdf"
)

// Sentinel errors for input discovery.
var (
	ErrInvalidExtension   = errors.New("file must have .tex, .latex or .ltx extension")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrNoSources          = errors.New("no LaTeX documents found")
)

// texExtensions are the source extensions accepted as input.
var texExtensions = []string{".tex", ".latex", ".ltx"}

// stdinPath selects standard input (and, without --output, standard output).
const stdinPath = "-"

// documentMarker identifies a standalone document. Directory walks skip
// files without it: those are fragments pulled in with \input or \include.
var documentMarker = []byte(`\documentclass`)

// FileToConvert represents a single file to process.
type FileToConvert struct {
	InputPath  string
	OutputPath string
}

// discoverFiles finds the documents to compile. A file argument is always
// compiled; a directory is walked for standalone documents.
func discoverFiles(inputPath, outputDir string) ([]FileToConvert, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if err := validateTeXExtension(inputPath); err != nil {
			return nil, err
		}
		outPath := resolveOutputPath(inputPath, outputDir, "")
		return []FileToConvert{{InputPath: inputPath, OutputPath: outPath}}, nil
	}

	var files []FileToConvert
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != inputPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasTeXExtension(path) {
			return nil
		}
		standalone, err := isStandaloneDocument(path)
		if err != nil || !standalone {
			return err
		}
		outPath := resolveOutputPath(path, outputDir, inputPath)
		files = append(files, FileToConvert{InputPath: path, OutputPath: outPath})
		return nil
	})

	return files, err
}

// isStandaloneDocument reports whether the file declares a document class.
func isStandaloneDocument(path string) (bool, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- discovered path
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrReadSource, err)
	}
	return bytes.Contains(data, documentMarker), nil
}

// resolveOutputPath determines the PDF output path for a source file.
func resolveOutputPath(inputPath, outputDir, baseInputDir string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), ext)

	if outputDir == "" {
		return filepath.Join(filepath.Dir(inputPath), base+".pdf")
	}

	if strings.HasSuffix(outputDir, ".pdf") || outputDir == stdinPath {
		return outputDir
	}

	if baseInputDir != "" {
		relPath, err := filepath.Rel(baseInputDir, inputPath)
		if err == nil {
			relDir := filepath.Dir(relPath)
			return filepath.Join(outputDir, relDir, base+".pdf")
		}
	}

	return filepath.Join(outputDir, base+".pdf")
}

func hasTeXExtension(path string) bool {
	return slices.Contains(texExtensions, strings.ToLower(filepath.Ext(path)))
}

// validateTeXExtension checks that the file has a LaTeX source extension.
func validateTeXExtension(path string) error {
	if !hasTeXExtension(path) {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, filepath.Ext(path))
	}
	return nil
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > tex2pdf.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, tex2pdf.MaxPoolSize)
	}
	return nil
}

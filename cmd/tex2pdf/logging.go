package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// newLogger builds the stderr logger from config values. Empty level is
// warn and empty format is text. Verbose lowers the level to at least info.
func newLogger(w io.Writer, level, format string, verbose bool) (*slog.Logger, error) {
	lvl := slog.LevelWarn
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("%w: log level %q", ErrUsage, level)
		}
	}
	if verbose {
		lvl = min(lvl, slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: log format %q", ErrUsage, format)
	}
}

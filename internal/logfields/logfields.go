// Package logfields holds the canonical slog attribute keys used by the
// generator and the CLI, so log queries do not drift between packages.
package logfields

import (
	"log/slog"
	"time"
)

const (
	KeyBuildID    = "build_id"
	KeyWorkDir    = "work_dir"
	KeyCommand    = "command"
	KeyArgs       = "args"
	KeyPass       = "pass"
	KeyExitCode   = "exit_code"
	KeyStatus     = "status"
	KeyDurationMS = "duration_ms"
	KeyPages      = "pages"
	KeyBytes      = "bytes"
	KeyInput      = "input"
	KeyOutput     = "output"
	KeyLogPath    = "log_path"
	KeyError      = "error"
)

// Pass names used with Pass.
const (
	PassDraft = "draft"
	PassFinal = "final"
)

func BuildID(id string) slog.Attr   { return slog.String(KeyBuildID, id) }
func WorkDir(path string) slog.Attr { return slog.String(KeyWorkDir, path) }
func Command(name string) slog.Attr { return slog.String(KeyCommand, name) }
func Args(args []string) slog.Attr  { return slog.Any(KeyArgs, args) }
func Pass(name string) slog.Attr    { return slog.String(KeyPass, name) }
func ExitCode(code int) slog.Attr   { return slog.Int(KeyExitCode, code) }
func Status(s string) slog.Attr     { return slog.String(KeyStatus, s) }
func Pages(n int) slog.Attr         { return slog.Int(KeyPages, n) }
func Bytes(n int) slog.Attr         { return slog.Int(KeyBytes, n) }
func Input(path string) slog.Attr   { return slog.String(KeyInput, path) }
func Output(path string) slog.Attr  { return slog.String(KeyOutput, path) }
func LogPath(path string) slog.Attr { return slog.String(KeyLogPath, path) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

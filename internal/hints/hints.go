// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/icef/go-tex2pdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForCompilerNotFound returns hints for a compiler missing from PATH.
func ForCompilerNotFound(command string) string {
	var hints []string

	if IsInContainer() {
		hints = append(hints, command+" is missing from the image: install texlive-latex-base or start from a texlive/texlive image")
	} else {
		hints = append(hints, "install TeX Live or MiKTeX and make sure "+command+" is on PATH")
	}

	if os.Getenv("TEX2PDF_COMMAND") == "" {
		hints = append(hints, "use --command or TEX2PDF_COMMAND to select another engine")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeout for slow builds.
func ForTimeout() string {
	return format("large documents and --parse-twice builds may need a longer --timeout")
}

// ForBuildFailed points at the full compiler log. When the work directory
// was removed the log is gone, so it suggests keeping it instead.
func ForBuildFailed(logPath string, kept bool) string {
	if kept && logPath != "" {
		return format("full log: " + logPath)
	}
	return format("rerun with --keep-workdir to inspect the full compiler log")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-tex2pdf/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-tex2pdf") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForWorkDirBase returns hints when build directories cannot be created.
func ForWorkDirBase(base string) string {
	return format("check that " + base + " is writable or set --workdir-base")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}

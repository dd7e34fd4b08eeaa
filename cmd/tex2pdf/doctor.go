package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/icef/go-tex2pdf"
	"github.com/icef/go-tex2pdf/internal/fileutil"
)

// versionTimeout bounds the "<compiler> --version" probe.
const versionTimeout = 10 * time.Second

// engines are the TeX engines doctor reports on besides the configured one.
var engines = []string{"pdflatex", "xelatex", "lualatex"}

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string       `json:"status"` // "ready", "warnings", "errors"
	Compiler compilerInfo `json:"compiler"`
	Engines  []engineInfo `json:"engines"`
	Env      envInfo      `json:"environment"`
	System   systemInfo   `json:"system"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// compilerInfo holds detection results for the configured compiler.
type compilerInfo struct {
	Command string `json:"command"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// engineInfo records whether an engine is on PATH.
type engineInfo struct {
	Name  string `json:"name"`
	Found bool   `json:"found"`
	Path  string `json:"path,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// systemInfo holds system check results.
type systemInfo struct {
	WorkDirBase     string `json:"workdir_base"`
	WorkDirWritable bool   `json:"workdir_writable"`
}

// compilerVersion runs "<path> --version" and returns the first line.
// Replaced in tests.
var compilerVersion = func(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output() // #nosec G204 -- path comes from LookPath
	if err != nil {
		return "", err
	}
	line, _, _ := bytes.Cut(out, []byte("\n"))
	return string(bytes.TrimSpace(line)), nil
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	fs := newFlagSet("doctor")
	var (
		jsonOutput bool
		command    string
		base       string
	)
	fs.BoolVar(&jsonOutput, "json", false, "print results as JSON")
	fs.StringVar(&command, "command", "", "compiler to check (default $TEX2PDF_COMMAND or pdflatex)")
	fs.StringVar(&base, "workdir-base", "", "build directory base to check (default $TEX2PDF_WORKDIR_BASE or $TMPDIR/tex2pdf)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printDoctorUsage(env.Stdout)
			return ExitSuccess
		}
		fmt.Fprintln(env.Stderr, parseError(err))
		return ExitUsage
	}

	if command == "" {
		command = os.Getenv("TEX2PDF_COMMAND")
	}
	if base == "" {
		base = os.Getenv("TEX2PDF_WORKDIR_BASE")
	}

	result := runDoctor(ctx, env, command, base)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, env *Environment, command, base string) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	checkCompiler(ctx, env, command, result)
	checkEngines(env, result)
	checkEnvironment(result)
	checkSystem(command, base, result)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkCompiler locates the configured compiler and asks it for its version.
func checkCompiler(ctx context.Context, env *Environment, command string, result *doctorResult) {
	if command == "" {
		command = tex2pdf.DefaultCommand
	}
	result.Compiler.Command = command

	path, err := env.LookPath(command)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s not found on PATH. Install TeX Live or MiKTeX, or set TEX2PDF_COMMAND", command))
		return
	}
	result.Compiler.Found = true
	result.Compiler.Path = path

	version, err := compilerVersion(ctx, path)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get %s version: %v", command, err))
		return
	}
	result.Compiler.Version = version
}

// checkEngines reports which of the common engines are installed.
func checkEngines(env *Environment, result *doctorResult) {
	for _, name := range engines {
		info := engineInfo{Name: name}
		if path, err := env.LookPath(name); err == nil {
			info.Found = true
			info.Path = path
		}
		result.Engines = append(result.Engines, info)
	}
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	// Detect container (multi-signal approach)
	result.Env.Container, result.Env.ContainerHint = isContainer()

	// Detect CI environments
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && !result.Compiler.Found {
		result.Warnings = append(result.Warnings,
			"Container/CI detected without a TeX engine. Use a texlive/texlive image or install texlive-latex-base")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	// Explicit override (highest priority)
	if os.Getenv("TEX2PDF_CONTAINER") == "1" {
		return true, "TEX2PDF_CONTAINER=1"
	}
	// Docker
	if fileutil.FileExists("/.dockerenv") {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn / general container indicator
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	// Kubernetes
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies that build directories can be created under base.
func checkSystem(command, base string, result *doctorResult) {
	opts := []tex2pdf.Option{}
	if base != "" {
		opts = append(opts, tex2pdf.WithBaseDir(base))
	}
	if command != "" {
		opts = append(opts, tex2pdf.WithBuildConfig(tex2pdf.BuildConfig{Command: command}))
	}
	gen, err := tex2pdf.NewGenerator(opts...)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return
	}

	result.System.WorkDirBase = gen.BaseDir()
	if err := fileutil.DirWritable(gen.BaseDir()); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Build directory base not writable: %s (%v)", gen.BaseDir(), err))
		return
	}
	result.System.WorkDirWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "tex2pdf doctor")
	fmt.Fprintln(w)

	// Compiler section
	fmt.Fprintln(w, "Compiler")
	if r.Compiler.Found {
		fmt.Fprintf(w, "  [OK] %s found at %s\n", r.Compiler.Command, r.Compiler.Path)
		if r.Compiler.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Compiler.Version)
		}
	} else {
		fmt.Fprintf(w, "  [ERROR] %s not found\n", r.Compiler.Command)
	}
	for _, e := range r.Engines {
		if e.Found {
			fmt.Fprintf(w, "  [OK] %s: %s\n", e.Name, e.Path)
		} else {
			fmt.Fprintf(w, "  [--] %s: not installed\n", e.Name)
		}
	}
	fmt.Fprintln(w)

	// Environment section
	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	// System section
	fmt.Fprintln(w, "System")
	if r.System.WorkDirWritable {
		fmt.Fprintf(w, "  [OK] Build directory base: %s\n", r.System.WorkDirBase)
	} else {
		fmt.Fprintf(w, "  [ERROR] Build directory base: not writable %s\n", r.System.WorkDirBase)
	}
	fmt.Fprintln(w)

	// Warnings
	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	// Errors
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	// Final status
	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to compile")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

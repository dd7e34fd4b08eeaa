package tex2pdf

import (
	"fmt"
	"slices"
	"strings"
)

// Compiler defaults.
const (
	DefaultCommand = "pdflatex"
	draftFlag      = "-draftmode"
)

// fixedFlags are always passed: shell escape for packages such as minted
// and svg, batch mode so TeX never waits for terminal input.
var fixedFlags = []string{"-shell-escape", "-interaction", "batchmode"}

// BuildConfig describes how the compiler is invoked.
type BuildConfig struct {
	Command    string   // executable name or path
	Arguments  []string // placed before the fixed flags
	ParseTwice bool     // run a -draftmode pass before the real one
	Env        []string // KEY=VALUE entries appended to the process environment
}

// DefaultBuildConfig returns pdflatex with -halt-on-error and a single pass.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		Command:   DefaultCommand,
		Arguments: []string{"-halt-on-error"},
	}
}

// Merge applies the fields set in override on top of c, key by key.
// A nil Arguments or Env keeps c's value while an empty non-nil slice
// clears it. ParseTwice can only be switched on by an override.
// The result shares no slices with c or override.
func (c BuildConfig) Merge(override BuildConfig) BuildConfig {
	out := BuildConfig{
		Command:    c.Command,
		Arguments:  slices.Clone(c.Arguments),
		ParseTwice: c.ParseTwice || override.ParseTwice,
		Env:        slices.Clone(c.Env),
	}
	if override.Command != "" {
		out.Command = override.Command
	}
	if override.Arguments != nil {
		out.Arguments = append([]string{}, override.Arguments...)
	}
	if override.Env != nil {
		out.Env = append([]string{}, override.Env...)
	}
	return out
}

// Validate rejects configurations that cannot start a process.
func (c BuildConfig) Validate() error {
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("%w: command is empty", ErrInvalidCommand)
	}
	if strings.ContainsRune(c.Command, 0) {
		return fmt.Errorf("%w: command contains NUL", ErrInvalidCommand)
	}
	for i, kv := range c.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			return fmt.Errorf("%w: env[%d] %q is not KEY=VALUE", ErrInvalidCommand, i, kv)
		}
	}
	return nil
}

// CommandArgs builds the argument vector for one compiler pass:
// configured arguments, -draftmode for the draft pass, the fixed flags,
// then the input file name.
func (c BuildConfig) CommandArgs(input string, draft bool) []string {
	args := make([]string, 0, len(c.Arguments)+len(fixedFlags)+2)
	args = append(args, c.Arguments...)
	if draft {
		args = append(args, draftFlag)
	}
	args = append(args, fixedFlags...)
	return append(args, input)
}

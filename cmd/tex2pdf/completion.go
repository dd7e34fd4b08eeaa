package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash       Shell = "bash"
	ShellZsh        Shell = "zsh"
	ShellFish       Shell = "fish"
	ShellPowerShell Shell = "powershell"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagType represents the completion type for a flag.
type flagType int

const (
	flagString flagType = iota // default
	flagBool
	flagInt
	flagEnum // has predefined values
	flagFile // file with glob pattern
	flagDir  // directory
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long     string   // --output
	Short    string   // -o (empty if none)
	Type     flagType // completion type
	Desc     string   // help text
	Values   []string // for enum flags
	FileGlob string   // for file flags
}

// commandDef describes a command for completion.
type commandDef struct {
	Name        string
	Desc        string
	Flags       []flagDef
	Args        []string // fixed positional values (completion shells, help topics)
	TakesFiles  bool     // accepts file arguments
	FilePattern string   // glob for file arguments (e.g., "*.tex")
}

// completionMeta holds completion-specific metadata for flags.
// Flag names, types, and descriptions come from the FlagSet.
type completionMeta struct {
	Values   []string // enum values
	FileGlob string   // file glob pattern
	IsDir    bool     // directory completion
}

// flagCompletionMeta maps flag names to their completion metadata.
var flagCompletionMeta = map[string]completionMeta{
	// Enum flags
	"command":    {Values: []string{"pdflatex", "xelatex", "lualatex"}},
	"log-level":  {Values: []string{"debug", "info", "warn", "error"}},
	"log-format": {Values: []string{"text", "json"}},

	// File flags with glob patterns
	"config":           {FileGlob: "*.yaml,*.yml"},
	"env-file":         {FileGlob: "*.env,.env*"},
	"metrics-textfile": {FileGlob: "*.prom"},

	// Directory flags
	"output":       {IsDir: true},
	"workdir-base": {IsDir: true},
}

// buildConvertFlagSet creates a FlagSet with all convert command flags.
func buildConvertFlagSet() *flag.FlagSet {
	fs := newFlagSet("convert")
	addConvertFlags(fs, &convertFlags{})
	return fs
}

// buildWatchFlagSet creates a FlagSet with all watch command flags.
func buildWatchFlagSet() *flag.FlagSet {
	fs := newFlagSet("watch")
	addWatchFlags(fs, &watchFlags{})
	return fs
}

// extractFlagsFromFlagSet extracts flag definitions from a pflag.FlagSet.
// Enriches with completion metadata from flagCompletionMeta.
func extractFlagsFromFlagSet(fs *flag.FlagSet) []flagDef {
	var flags []flagDef

	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{
			Long:  f.Name,
			Short: f.Shorthand,
			Desc:  f.Usage,
		}

		switch f.Value.Type() {
		case "bool":
			fd.Type = flagBool
		case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
			fd.Type = flagInt
		default:
			fd.Type = flagString
		}

		if meta, ok := flagCompletionMeta[f.Name]; ok {
			switch {
			case len(meta.Values) > 0:
				fd.Type = flagEnum
				fd.Values = meta.Values
			case meta.FileGlob != "":
				fd.Type = flagFile
				fd.FileGlob = meta.FileGlob
			case meta.IsDir:
				fd.Type = flagDir
			}
		}

		flags = append(flags, fd)
	})

	return flags
}

// doctorFlags lists the doctor flags, which are parsed inline.
var doctorFlags = []flagDef{
	{Long: "json", Type: flagBool, Desc: "print results as JSON"},
	{Long: "command", Type: flagEnum, Desc: "compiler to check", Values: flagCompletionMeta["command"].Values},
	{Long: "workdir-base", Type: flagDir, Desc: "build directory base to check"},
}

// getCommands returns the command registry for completion.
// Flags are extracted from the actual FlagSets.
func getCommands() []commandDef {
	texPattern := "*.tex,*.latex,*.ltx"

	return []commandDef{
		{
			Name:        "convert",
			Desc:        "Compile LaTeX files to PDF",
			Flags:       extractFlagsFromFlagSet(buildConvertFlagSet()),
			TakesFiles:  true,
			FilePattern: texPattern,
		},
		{
			Name:        "watch",
			Desc:        "Recompile LaTeX files when they change",
			Flags:       extractFlagsFromFlagSet(buildWatchFlagSet()),
			TakesFiles:  true,
			FilePattern: texPattern,
		},
		{
			Name:  "escape",
			Desc:  "Escape text for use in LaTeX source",
			Flags: []flagDef{{Long: "no-newline", Short: "n", Type: flagBool, Desc: "do not print the trailing newline"}},
		},
		{
			Name:  "doctor",
			Desc:  "Check the TeX installation and environment",
			Flags: doctorFlags,
		},
		{
			Name: "version",
			Desc: "Show version information",
		},
		{
			Name: "help",
			Desc: "Show help for a command",
			Args: commands,
		},
		{
			Name: "completion",
			Desc: "Generate shell completion script",
			Args: []string{string(ShellBash), string(ShellZsh), string(ShellFish), string(ShellPowerShell)},
		},
	}
}

// GenerateCompletion writes shell completion script to w.
// Returns error if shell is unsupported or write fails.
func GenerateCompletion(w io.Writer, shell Shell) error {
	cmds := getCommands()
	switch shell {
	case ShellBash:
		return generateBash(w, cmds)
	case ShellZsh:
		return generateZsh(w, cmds)
	case ShellFish:
		return generateFish(w, cmds)
	case ShellPowerShell:
		return generatePowerShell(w, cmds)
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish, powershell)", ErrUnsupportedShell, shell)
	}
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}
	return GenerateCompletion(env.Stdout, Shell(args[0]))
}

// ---------------------------------------------------------------------------
// Shell generators
// ---------------------------------------------------------------------------

func commandNames(cmds []commandDef) []string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	return names
}

// flagWords returns "--long" and "-s" spellings of every flag.
func flagWords(flags []flagDef) []string {
	var words []string
	for _, f := range flags {
		words = append(words, "--"+f.Long)
		if f.Short != "" {
			words = append(words, "-"+f.Short)
		}
	}
	return words
}

// globs splits a comma separated glob list.
func globs(pattern string) []string {
	if pattern == "" {
		return nil
	}
	return strings.Split(pattern, ",")
}

// bashExtGlob turns "*.tex,*.ltx" into "@(tex|ltx)" for compgen -X.
func bashExtGlob(pattern string) string {
	var exts []string
	for _, g := range globs(pattern) {
		if ext, ok := strings.CutPrefix(g, "*."); ok {
			exts = append(exts, ext)
		}
	}
	if len(exts) == 0 {
		return ""
	}
	return "@(" + strings.Join(exts, "|") + ")"
}

func generateBash(w io.Writer, cmds []commandDef) error {
	var b strings.Builder

	b.WriteString("# bash completion for tex2pdf\n")
	b.WriteString("_tex2pdf() {\n")
	b.WriteString("    local cur prev cmd\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n")
	b.WriteString("    cmd=\"${COMP_WORDS[1]}\"\n\n")
	b.WriteString("    if [[ ${COMP_CWORD} -eq 1 ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(commandNames(cmds), " "))
	b.WriteString("        [[ ${#COMPREPLY[@]} -eq 0 ]] && COMPREPLY=($(compgen -f -X '!*.@(tex|latex|ltx)' -- \"$cur\") $(compgen -d -- \"$cur\"))\n")
	b.WriteString("        return\n")
	b.WriteString("    fi\n\n")
	b.WriteString("    case \"$cmd\" in\n")

	for _, c := range cmds {
		fmt.Fprintf(&b, "    %s)\n", c.Name)

		// Flag values
		var valueCases []string
		for _, f := range c.Flags {
			spell := "--" + f.Long
			if f.Short != "" {
				spell += "|-" + f.Short
			}
			switch f.Type {
			case flagEnum:
				valueCases = append(valueCases, fmt.Sprintf("            %s) COMPREPLY=($(compgen -W %q -- \"$cur\")); return ;;", spell, strings.Join(f.Values, " ")))
			case flagFile:
				valueCases = append(valueCases, fmt.Sprintf("            %s) COMPREPLY=($(compgen -f -- \"$cur\")); return ;;", spell))
			case flagDir:
				valueCases = append(valueCases, fmt.Sprintf("            %s) COMPREPLY=($(compgen -d -- \"$cur\")); return ;;", spell))
			case flagString, flagInt:
				valueCases = append(valueCases, fmt.Sprintf("            %s) return ;;", spell))
			}
		}
		if len(valueCases) > 0 {
			b.WriteString("        case \"$prev\" in\n")
			b.WriteString(strings.Join(valueCases, "\n"))
			b.WriteString("\n        esac\n")
		}

		if words := flagWords(c.Flags); len(words) > 0 {
			b.WriteString("        if [[ \"$cur\" == -* ]]; then\n")
			fmt.Fprintf(&b, "            COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(words, " "))
			b.WriteString("            return\n")
			b.WriteString("        fi\n")
		}
		switch {
		case len(c.Args) > 0:
			fmt.Fprintf(&b, "        COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(c.Args, " "))
		case c.TakesFiles:
			fmt.Fprintf(&b, "        COMPREPLY=($(compgen -f -X '!*.%s' -- \"$cur\") $(compgen -d -- \"$cur\"))\n", bashExtGlob(c.FilePattern))
		}
		b.WriteString("        ;;\n")
	}

	b.WriteString("    esac\n")
	b.WriteString("}\n")
	b.WriteString("complete -o filenames -F _tex2pdf tex2pdf\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// zshEscape escapes characters special inside a zsh _arguments spec.
func zshEscape(s string) string {
	return strings.NewReplacer(`[`, `\[`, `]`, `\]`, `:`, `\:`, `'`, `'\''`).Replace(s)
}

func zshAction(f flagDef) string {
	switch f.Type {
	case flagEnum:
		return ":value:(" + strings.Join(f.Values, " ") + ")"
	case flagFile:
		var parts []string
		for _, g := range globs(f.FileGlob) {
			parts = append(parts, "-g '"+g+"'")
		}
		return ":file:_files " + strings.Join(parts, " ")
	case flagDir:
		return ":directory:_files -/"
	case flagString, flagInt:
		return ":value: "
	}
	return ""
}

func generateZsh(w io.Writer, cmds []commandDef) error {
	var b strings.Builder

	b.WriteString("#compdef tex2pdf\n\n")
	b.WriteString("_tex2pdf() {\n")
	b.WriteString("    local -a commands\n")
	b.WriteString("    commands=(\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        '%s:%s'\n", c.Name, zshEscape(c.Desc))
	}
	b.WriteString("    )\n\n")
	b.WriteString("    if (( CURRENT == 2 )); then\n")
	b.WriteString("        _describe 'command' commands\n")
	b.WriteString("        _files -g '*.(tex|latex|ltx)'\n")
	b.WriteString("        return\n")
	b.WriteString("    fi\n\n")
	b.WriteString("    local cmd=${words[2]}\n")
	b.WriteString("    shift words\n")
	b.WriteString("    (( CURRENT-- ))\n\n")
	b.WriteString("    case $cmd in\n")

	for _, c := range cmds {
		fmt.Fprintf(&b, "    %s)\n", c.Name)
		b.WriteString("        _arguments -s \\\n")
		for _, f := range c.Flags {
			argSpec := "--" + f.Long + "[" + zshEscape(f.Desc) + "]" + zshAction(f)
			if f.Short != "" {
				fmt.Fprintf(&b, "            '(-%s --%s)'{-%s,--%s}'[%s]%s' \\\n", f.Short, f.Long, f.Short, f.Long, zshEscape(f.Desc), zshAction(f))
			} else {
				fmt.Fprintf(&b, "            '%s' \\\n", argSpec)
			}
		}
		switch {
		case len(c.Args) > 0:
			fmt.Fprintf(&b, "            '1:argument:(%s)'\n", strings.Join(c.Args, " "))
		case c.TakesFiles:
			fmt.Fprintf(&b, "            '*:file:_files -g \"*.(%s)\"'\n", strings.TrimPrefix(strings.TrimSuffix(bashExtGlob(c.FilePattern), ")"), "@("))
		default:
			b.WriteString("            ''\n")
		}
		b.WriteString("        ;;\n")
	}

	b.WriteString("    esac\n")
	b.WriteString("}\n\n")
	b.WriteString("_tex2pdf \"$@\"\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func fishQuote(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `'`, `\'`) + "'"
}

func generateFish(w io.Writer, cmds []commandDef) error {
	var b strings.Builder

	b.WriteString("# fish completion for tex2pdf\n")
	b.WriteString("complete -c tex2pdf -f\n")
	fmt.Fprintf(&b, "set -l tex2pdf_commands %s\n\n", strings.Join(commandNames(cmds), " "))

	for _, c := range cmds {
		fmt.Fprintf(&b, "complete -c tex2pdf -n \"not __fish_seen_subcommand_from $tex2pdf_commands\" -a %s -d %s\n", c.Name, fishQuote(c.Desc))
	}
	b.WriteString("\n")

	for _, c := range cmds {
		cond := fmt.Sprintf("-n \"__fish_seen_subcommand_from %s\"", c.Name)
		for _, f := range c.Flags {
			line := fmt.Sprintf("complete -c tex2pdf %s -l %s", cond, f.Long)
			if f.Short != "" {
				line += " -s " + f.Short
			}
			switch f.Type {
			case flagEnum:
				line += " -x -a " + fishQuote(strings.Join(f.Values, " "))
			case flagFile:
				line += " -r -F"
			case flagDir:
				line += " -x -a '(__fish_complete_directories)'"
			case flagString, flagInt:
				line += " -x"
			}
			line += " -d " + fishQuote(f.Desc)
			b.WriteString(line + "\n")
		}
		switch {
		case len(c.Args) > 0:
			fmt.Fprintf(&b, "complete -c tex2pdf %s -a %s\n", cond, fishQuote(strings.Join(c.Args, " ")))
		case c.TakesFiles:
			fmt.Fprintf(&b, "complete -c tex2pdf %s -F\n", cond)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func generatePowerShell(w io.Writer, cmds []commandDef) error {
	var b strings.Builder

	b.WriteString("# PowerShell completion for tex2pdf\n")
	b.WriteString("Register-ArgumentCompleter -Native -CommandName tex2pdf -ScriptBlock {\n")
	b.WriteString("    param($wordToComplete, $commandAst, $cursorPosition)\n\n")
	b.WriteString("    $words = @{\n")

	names := commandNames(cmds)
	sort.Strings(names)
	byName := make(map[string]commandDef, len(cmds))
	for _, c := range cmds {
		byName[c.Name] = c
	}
	for _, name := range names {
		c := byName[name]
		candidates := append(flagWords(c.Flags), c.Args...)
		for _, f := range c.Flags {
			candidates = append(candidates, f.Values...)
		}
		quoted := make([]string, len(candidates))
		for i, word := range candidates {
			quoted[i] = "'" + word + "'"
		}
		fmt.Fprintf(&b, "        '%s' = @(%s)\n", name, strings.Join(quoted, ", "))
	}
	b.WriteString("    }\n\n")
	b.WriteString("    $elements = $commandAst.CommandElements\n")
	b.WriteString("    if ($elements.Count -le 2 -and $wordToComplete -ne '') {\n")
	b.WriteString("        $candidates = $words.Keys\n")
	b.WriteString("    } elseif ($elements.Count -le 1) {\n")
	b.WriteString("        $candidates = $words.Keys\n")
	b.WriteString("    } else {\n")
	b.WriteString("        $candidates = $words[$elements[1].ToString()]\n")
	b.WriteString("    }\n")
	b.WriteString("    $candidates | Where-Object { $_ -like \"$wordToComplete*\" } | ForEach-Object {\n")
	b.WriteString("        [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w, "  powershell  PowerShell completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Bash:")
	fmt.Fprintln(w, "    # Add to ~/.bashrc:")
	fmt.Fprintln(w, "    eval \"$(tex2pdf completion bash)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Zsh:")
	fmt.Fprintln(w, "    # Add to ~/.zshrc (before compinit):")
	fmt.Fprintln(w, "    eval \"$(tex2pdf completion zsh)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Fish:")
	fmt.Fprintln(w, "    tex2pdf completion fish > ~/.config/fish/completions/tex2pdf.fish")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  PowerShell:")
	fmt.Fprintln(w, "    # Add to $PROFILE:")
	fmt.Fprintln(w, "    tex2pdf completion powershell | Out-String | Invoke-Expression")
}

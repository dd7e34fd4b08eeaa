package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/icef/go-tex2pdf/internal/config"
)

// ErrEnvFile is returned when --env-file cannot be loaded.
var ErrEnvFile = errors.New("failed to load env file")

// envPrefix marks the variables read by tex2pdf.
const envPrefix = "TEX2PDF_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string        // TEX2PDF_CONFIG: config file name or path
	Command    string        // TEX2PDF_COMMAND: compiler executable
	Timeout    time.Duration // TEX2PDF_TIMEOUT: build timeout

	// Tier 2 - Compiler and I/O
	Arguments  []string // TEX2PDF_ARGS: whitespace separated compiler arguments
	ParseTwice bool     // TEX2PDF_PARSE_TWICE: run a draft pass first
	InputDir   string   // TEX2PDF_INPUT_DIR: default input directory
	OutputDir  string   // TEX2PDF_OUTPUT_DIR: default output directory
	Workers    int      // TEX2PDF_WORKERS: parallel compilers

	// Tier 3 - Operations
	WorkDirBase     string // TEX2PDF_WORKDIR_BASE: build directory base
	KeepWorkDir     bool   // TEX2PDF_KEEP_WORKDIR: keep build directories
	LogLevel        string // TEX2PDF_LOG_LEVEL: debug, info, warn, error
	LogFormat       string // TEX2PDF_LOG_FORMAT: text, json
	MetricsTextfile string // TEX2PDF_METRICS_TEXTFILE: Prometheus textfile path
}

// knownEnvVars lists valid TEX2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"TEX2PDF_CONFIG":  true,
	"TEX2PDF_COMMAND": true,
	"TEX2PDF_TIMEOUT": true,
	// Tier 2 - Compiler and I/O
	"TEX2PDF_ARGS":        true,
	"TEX2PDF_PARSE_TWICE": true,
	"TEX2PDF_INPUT_DIR":   true,
	"TEX2PDF_OUTPUT_DIR":  true,
	"TEX2PDF_WORKERS":     true,
	// Tier 3 - Operations
	"TEX2PDF_WORKDIR_BASE":     true,
	"TEX2PDF_KEEP_WORKDIR":     true,
	"TEX2PDF_LOG_LEVEL":        true,
	"TEX2PDF_LOG_FORMAT":       true,
	"TEX2PDF_METRICS_TEXTFILE": true,
	// Read by doctor
	"TEX2PDF_CONTAINER": true,
}

// loadEnvFile loads a dotenv file into the process environment. Variables
// already set in the environment win over the file.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEnvFile, path, err)
	}
	return nil
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers, booleans and durations are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		// Tier 1
		ConfigPath: os.Getenv("TEX2PDF_CONFIG"),
		Command:    os.Getenv("TEX2PDF_COMMAND"),
		// Tier 2
		Arguments: strings.Fields(os.Getenv("TEX2PDF_ARGS")),
		InputDir:  os.Getenv("TEX2PDF_INPUT_DIR"),
		OutputDir: os.Getenv("TEX2PDF_OUTPUT_DIR"),
		// Tier 3
		WorkDirBase:     os.Getenv("TEX2PDF_WORKDIR_BASE"),
		LogLevel:        os.Getenv("TEX2PDF_LOG_LEVEL"),
		LogFormat:       os.Getenv("TEX2PDF_LOG_FORMAT"),
		MetricsTextfile: os.Getenv("TEX2PDF_METRICS_TEXTFILE"),
	}

	if timeout := os.Getenv("TEX2PDF_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if workers := os.Getenv("TEX2PDF_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}
	cfg.ParseTwice = envBool("TEX2PDF_PARSE_TWICE")
	cfg.KeepWorkDir = envBool("TEX2PDF_KEEP_WORKDIR")

	return cfg
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}

// warnUnknownEnvVars logs warnings for unrecognized TEX2PDF_* variables.
// Helps catch typos like TEX2PDF_COMAND instead of TEX2PDF_COMMAND.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name, _, _ := strings.Cut(env, "=")
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Only sets values if the env var is set AND the config value is empty/zero.
// This ensures: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags, timeout in resolveTimeoutWithEnv)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	// Compiler
	if env.Command != "" && cfg.Compiler.Command == "" {
		cfg.Compiler.Command = env.Command
	}
	if len(env.Arguments) > 0 && cfg.Compiler.Arguments == nil {
		cfg.Compiler.Arguments = env.Arguments
	}
	if env.ParseTwice {
		cfg.Compiler.ParseTwice = true
	}

	// I/O
	if env.InputDir != "" && cfg.Input.DefaultDir == "" {
		cfg.Input.DefaultDir = env.InputDir
	}
	if env.OutputDir != "" && cfg.Output.DefaultDir == "" {
		cfg.Output.DefaultDir = env.OutputDir
	}
	if env.Workers > 0 && cfg.Workers == 0 {
		cfg.Workers = env.Workers
	}

	// Operations
	if env.WorkDirBase != "" && cfg.WorkDir.Base == "" {
		cfg.WorkDir.Base = env.WorkDirBase
	}
	if env.KeepWorkDir {
		cfg.WorkDir.Keep = true
	}
	if env.LogLevel != "" && (cfg.Log.Level == "" || cfg.Log.Level == config.DefaultConfig().Log.Level) {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" && (cfg.Log.Format == "" || cfg.Log.Format == config.DefaultConfig().Log.Format) {
		cfg.Log.Format = env.LogFormat
	}
	if env.MetricsTextfile != "" && cfg.Metrics.Textfile == "" {
		cfg.Metrics.Textfile = env.MetricsTextfile
	}
}

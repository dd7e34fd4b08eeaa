package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/icef/go-tex2pdf/internal/fileutil"
	"github.com/icef/go-tex2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field limits. The command line of a compiler is bounded by ARG_MAX anyway;
// these keep a shared config file from carrying surprises.
const (
	MaxCommandLength  = 256
	MaxArgumentLength = 512
	MaxArguments      = 32
	MaxEnvEntries     = 32
	MaxPathLength     = 4096
	MaxWorkers        = 32
)

// Config holds all configuration for the tex2pdf CLI.
type Config struct {
	Compiler CompilerConfig `yaml:"compiler"`
	WorkDir  WorkDirConfig  `yaml:"workDir"`
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Workers  int            `yaml:"workers"` // 0 = auto
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// CompilerConfig mirrors tex2pdf.BuildConfig plus the per-build timeout.
type CompilerConfig struct {
	Command    string   `yaml:"command"`    // empty = pdflatex
	Arguments  []string `yaml:"arguments"`  // nil = [-halt-on-error]; [] clears
	ParseTwice bool     `yaml:"parseTwice"` // draft pass before the real one
	Timeout    string   `yaml:"timeout"`    // Go duration, empty = generator default
	Env        []string `yaml:"env"`        // KEY=VALUE added to the compiler environment; quote values ending in ":"
}

// WorkDirConfig controls where builds run.
type WorkDirConfig struct {
	Base string `yaml:"base"` // empty = $TMPDIR/tex2pdf
	Keep bool   `yaml:"keep"` // keep build directories for debugging
}

// InputConfig defines input source options.
type InputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // Default input directory (empty = must specify)
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // Default output directory (empty = same as source)
}

// LogConfig selects the slog handler used on stderr.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (empty = warn)
	Format string `yaml:"format"` // text, json (empty = text)
}

// MetricsConfig defines Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // empty = disabled
}

// TimeoutDuration parses Compiler.Timeout. Empty yields 0.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Compiler.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Compiler.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: compiler.timeout %q: %v", ErrInvalidValue, c.Compiler.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: compiler.timeout must be positive, got %s", ErrInvalidValue, d)
	}
	return d, nil
}

// Validate checks field lengths and enumerations.
func (c *Config) Validate() error {
	if err := validateFieldLength("compiler.command", c.Compiler.Command, MaxCommandLength); err != nil {
		return err
	}
	if len(c.Compiler.Arguments) > MaxArguments {
		return fmt.Errorf("%w: compiler.arguments (%d entries, max %d)", ErrFieldTooLong, len(c.Compiler.Arguments), MaxArguments)
	}
	for i, arg := range c.Compiler.Arguments {
		if err := validateFieldLength(fmt.Sprintf("compiler.arguments[%d]", i), arg, MaxArgumentLength); err != nil {
			return err
		}
	}
	if len(c.Compiler.Env) > MaxEnvEntries {
		return fmt.Errorf("%w: compiler.env (%d entries, max %d)", ErrFieldTooLong, len(c.Compiler.Env), MaxEnvEntries)
	}
	for i, kv := range c.Compiler.Env {
		if !strings.Contains(kv, "=") || strings.HasPrefix(kv, "=") {
			return fmt.Errorf("%w: compiler.env[%d] %q is not KEY=VALUE", ErrInvalidValue, i, kv)
		}
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}

	for name, value := range map[string]string{
		"workDir.base":      c.WorkDir.Base,
		"input.defaultDir":  c.Input.DefaultDir,
		"output.defaultDir": c.Output.DefaultDir,
		"metrics.textfile":  c.Metrics.Textfile,
	} {
		if err := validateFieldLength(name, value, MaxPathLength); err != nil {
			return err
		}
	}

	if c.Workers < 0 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: workers %d (must be 0..%d)", ErrInvalidValue, c.Workers, MaxWorkers)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q (want debug, info, warn or error)", ErrInvalidValue, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (want text or json)", ErrInvalidValue, c.Log.Format)
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns a configuration that defers every compiler setting
// to the generator defaults.
func DefaultConfig() *Config {
	return &Config{
		Compiler: CompilerConfig{},
		WorkDir:  WorkDirConfig{Keep: false},
		Log:      LogConfig{Level: "warn", Format: "text"},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.ReadFileStrict(configPath, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SearchPaths lists the candidate files for a config name in lookup order:
// current directory first, then ~/.config/go-tex2pdf/, .yaml before .yml.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, "go-tex2pdf", name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing file from SearchPaths.
func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}

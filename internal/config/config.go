// Package config loads autodoc settings. Values are layered: built-in
// defaults, then a YAML file, then AUTODOC_* environment variables; command
// flags are applied last by the caller.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jward/autodoc/internal/graph"
	"github.com/jward/autodoc/internal/logging"
)

// Config is the complete autodoc configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`
	DB       string `yaml:"db"`
	Listen   string `yaml:"listen"`
	Docs     Docs   `yaml:"docs"`
	Limits   Limits `yaml:"limits"`
}

// Docs controls doc-comment rendering.
type Docs struct {
	// Abbreviations that end with a period without ending a summary sentence.
	Abbreviations []string `yaml:"abbreviations"`
	// Highlight enables syntax highlighting of fenced code blocks.
	Highlight bool `yaml:"highlight"`
	// DetectLanguage guesses the language of untagged code blocks.
	DetectLanguage bool `yaml:"detect_language"`
}

// Limits bounds the memory a single module may use.
type Limits struct {
	MaxArchiveBytes int64 `yaml:"max_archive_bytes"`
	MaxFiles        int   `yaml:"max_files"`
}

// DefaultAbbreviations are the summary abbreviation exceptions used when the
// configuration does not name any.
var DefaultAbbreviations = graph.DefaultAbbreviations

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		DB:       ".autodoc/index.db",
		Listen:   ":8080",
		Docs: Docs{
			Abbreviations: append([]string(nil), DefaultAbbreviations...),
			Highlight:     true,
		},
		Limits: Limits{
			MaxArchiveBytes: 64 << 20,
			MaxFiles:        10000,
		},
	}
}

// Load builds the configuration. An explicit path must exist; otherwise the
// nearest project file above workDir is used when one is found.
func Load(ctx context.Context, explicit, workDir string) (*Config, error) {
	cfg := Default()

	path := explicit
	if path == "" {
		found, err := FindProjectConfig(ctx, workDir)
		if err != nil {
			return nil, err
		}
		path = found
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		logging.FromContext(ctx).Debug("config loaded", logging.FieldConfig, path)
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Validate rejects unknown log levels and non-positive limits.
func (c *Config) Validate() error {
	var problems []string
	if !logging.ValidLevel(c.LogLevel) {
		problems = append(problems, fmt.Sprintf("log_level: unknown level %q", c.LogLevel))
	}
	if c.Limits.MaxArchiveBytes <= 0 {
		problems = append(problems, "limits.max_archive_bytes: must be positive")
	}
	if c.Limits.MaxFiles <= 0 {
		problems = append(problems, "limits.max_files: must be positive")
	}
	for _, a := range c.Docs.Abbreviations {
		if !strings.HasSuffix(a, ".") {
			problems = append(problems, fmt.Sprintf("docs.abbreviations: %q does not end with a period", a))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

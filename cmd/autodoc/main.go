package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/autodoc"
	"github.com/jward/autodoc/internal/config"
	"github.com/jward/autodoc/internal/highlight"
	"github.com/jward/autodoc/internal/logging"
	"github.com/jward/autodoc/internal/markdown"
)

var (
	flagConfig   string
	flagDB       string
	flagFormat   string
	flagLogLevel string
)

// cfg is the configuration loaded by the root command's pre-run.
var cfg *config.Config

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "autodoc",
	Short:         "Documentation extraction for Zig source archives",
	Long:          "autodoc builds a declaration graph from a Zig source archive, renders doc comments to HTML and serves the result from a SQLite index or over HTTP.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return loadConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: nearest .autodoc.yml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .autodoc/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scriptCmd)
}

// loadConfig layers defaults, the config file and the environment, then
// applies command-line flags.
func loadConfig(cmd *cobra.Command) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	c, err := config.Load(cmd.Context(), flagConfig, cwd)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		if !logging.ValidLevel(flagLogLevel) {
			return fmt.Errorf("invalid log level %q", flagLogLevel)
		}
		c.LogLevel = flagLogLevel
	}
	if flagDB != "" {
		c.DB = flagDB
	}
	logging.SetLevel(c.LogLevel)
	cfg = c
	return nil
}

// commandContext returns the command's context carrying the default logger.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithLogger(ctx, logging.Default())
}

// newSession creates a Session configured from cfg.
func newSession() *autodoc.Session {
	return autodoc.NewSession(autodoc.WithConfig(cfg))
}

// newHighlighter returns the configured code block highlighter, or nil.
func newHighlighter() markdown.Highlighter {
	if !cfg.Docs.Highlight {
		return nil
	}
	return highlight.New(highlight.WithDetection(cfg.Docs.DetectLanguage))
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the configured database path. Relative paths are
// taken from the repository root.
func resolveDBPath(repoRoot string) string {
	if filepath.IsAbs(cfg.DB) {
		return cfg.DB
	}
	return filepath.Join(repoRoot, cfg.DB)
}

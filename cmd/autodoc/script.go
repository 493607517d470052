package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/autodoc/internal/runtime"
	"github.com/jward/autodoc/scripts"
)

var scriptCmd = &cobra.Command{
	Use:   "script <file.risor|name> <archive|dir>",
	Short: "Run a Risor script against a module",
	Long: `Builds a module and runs a Risor script with the module bound to its
globals: root_decl, children, child, doc, summary, resolve, decl_path,
source, render_markdown and log. Imports resolve next to the script.

A name without a path runs a bundled report: outline or undocumented.`,
	Args: cobra.ExactArgs(2),
	RunE: runScript,
}

func init() {
	scriptCmd.Flags().StringVar(&flagRoot, "root", "", "root source file inside the archive")
	_ = scriptCmd.MarkFlagRequired("root")
}

// scriptLocation returns the runtime options and script path for arg. Files
// on disk take precedence over bundled scripts.
func scriptLocation(arg string) ([]runtime.RuntimeOption, string, string, error) {
	if _, err := os.Stat(arg); err == nil {
		return nil, filepath.Dir(arg), filepath.Base(arg), nil
	}
	name := strings.TrimSuffix(arg, ".risor") + ".risor"
	if _, err := fs.Stat(scripts.FS, name); err != nil {
		return nil, "", "", fmt.Errorf("script not found: %s", arg)
	}
	return []runtime.RuntimeOption{runtime.WithRuntimeFS(scripts.FS)}, "", name, nil
}

func runScript(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	opts, dir, path, err := scriptLocation(args[0])
	if err != nil {
		return outputError(cmd, "script", err)
	}

	s := newSession()
	m, err := buildModule(ctx, s, args[1], flagRoot)
	if err != nil {
		return outputError(cmd, "script", err)
	}
	g, err := s.Graph(m)
	if err != nil {
		return outputError(cmd, "script", err)
	}

	opts = append(opts, runtime.WithHighlighter(newHighlighter()))
	rt := runtime.NewRuntime(g, dir, opts...)
	if err := rt.RunScript(ctx, path, nil); err != nil {
		return outputError(cmd, "script", err)
	}
	return nil
}

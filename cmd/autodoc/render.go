package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/autodoc/internal/markdown"
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render markdown to HTML",
	Long:  "Renders a markdown file, or standard input when no file is given, with the same engine used for doc comments.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return outputError(cmd, "render", fmt.Errorf("opening %s: %w", args[0], err))
		}
		defer f.Close()
		in = f
	}

	html, err := renderMarkdown(in, newHighlighter())
	if err != nil {
		return outputError(cmd, "render", err)
	}
	return outputResult(cmd, CLIResult{Command: "render", Results: CLIHTML{HTML: html}})
}

// renderMarkdown feeds in to the parser one line at a time.
func renderMarkdown(in io.Reader, h markdown.Highlighter) (string, error) {
	p := markdown.NewParser()
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		p.Feed(strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading markdown: %w", err)
	}
	r := markdown.Renderer{Highlighter: h}
	return r.Render(p.Finish()), nil
}

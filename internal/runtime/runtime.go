// Package runtime embeds a Risor VM so documentation can be queried and
// post-processed by scripts. Host functions expose a built module's
// declaration graph and the markdown renderer.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/autodoc/internal/graph"
	"github.com/jward/autodoc/internal/logging"
	"github.com/jward/autodoc/internal/markdown"
)

// Runtime embeds a Risor VM and provides module host functions to scripts.
type Runtime struct {
	module     *graph.Module
	scriptsDir string
	fsys       fs.FS
	renderer   markdown.Renderer
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithHighlighter sets the highlighter used by render_markdown.
func WithHighlighter(h markdown.Highlighter) RuntimeOption {
	return func(r *Runtime) {
		r.renderer.Highlighter = h
	}
}

// NewRuntime creates a Runtime over module m and a scripts directory. m may
// be nil, in which case only the module-independent globals are available.
func NewRuntime(m *graph.Module, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		module:     m,
		scriptsDir: scriptsDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	logger := logging.FromContext(ctx).With(logging.FieldScript, label)
	globals := r.buildGlobals(logger, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	logger.Debug("running script")
	_, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(logger *log.Logger, extra map[string]any) map[string]any {
	globals := map[string]any{
		"render_markdown": makeRenderMarkdownFn(&r.renderer),
		"log":             mustProxy(&logObject{logger: logger}),
	}

	if r.module != nil {
		m := r.module
		globals["root_decl"] = makeRootDeclFn(m)
		globals["children"] = makeChildrenFn(m)
		globals["child"] = makeChildFn(m)
		globals["doc"] = makeDocFn(m)
		globals["summary"] = makeSummaryFn(m)
		globals["resolve"] = makeResolveFn(m)
		globals["decl_path"] = makeDeclPathFn(m)
		globals["source"] = makeSourceFn(m)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

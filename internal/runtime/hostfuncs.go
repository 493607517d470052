package runtime

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/risor-io/risor/object"

	"github.com/jward/autodoc/internal/graph"
	"github.com/jward/autodoc/internal/markdown"
)

// declArg converts args[i] to a declaration handle of m.
func declArg(m *graph.Module, fn string, arg object.Object) (graph.DeclIndex, *object.Error) {
	i, ok := arg.(*object.Int)
	if !ok {
		return 0, object.Errorf("%s: decl must be an int, got %s", fn, arg.Type())
	}
	d := graph.DeclIndex(i.Value())
	if i.Value() < 0 || !m.HasDecl(d) {
		return 0, object.Errorf("%s: invalid decl %d", fn, i.Value())
	}
	return d, nil
}

// makeRootDeclFn creates the "root_decl" host function.
//
// root_decl() → int
func makeRootDeclFn(m *graph.Module) *object.Builtin {
	return object.NewBuiltin("root_decl", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("root_decl", 0, len(args))
		}
		d, ok := m.RootDecl(m.RootFile())
		if !ok {
			return object.Nil
		}
		return object.NewInt(int64(d))
	})
}

// makeChildrenFn creates the "children" host function.
//
// children(decl) → [{index, kind, name, summary}]
func makeChildrenFn(m *graph.Module) *object.Builtin {
	return object.NewBuiltin("children", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("children", 1, len(args))
		}
		d, errObj := declArg(m, "children", args[0])
		if errObj != nil {
			return errObj
		}
		var results []object.Object
		for _, c := range m.Children(d) {
			results = append(results, object.NewMap(map[string]object.Object{
				"index":   object.NewInt(int64(c)),
				"kind":    object.NewString(m.Category(c).String()),
				"name":    object.NewString(m.Name(c)),
				"summary": object.NewString(m.DocText(c, true)),
			}))
		}
		return object.NewList(results)
	})
}

// makeChildFn creates the "child" host function.
//
// child(decl, name) → int or nil
func makeChildFn(m *graph.Module) *object.Builtin {
	return object.NewBuiltin("child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("child", 2, len(args))
		}
		d, errObj := declArg(m, "child", args[0])
		if errObj != nil {
			return errObj
		}
		name, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("child: name must be a string, got %s", args[1].Type())
		}
		c, found := m.Lookup(d, name.Value())
		if !found {
			return object.Nil
		}
		return object.NewInt(int64(c))
	})
}

// makeDocFn creates the "doc" host function.
//
// doc(decl) → string (HTML)
func makeDocFn(m *graph.Module) *object.Builtin {
	return declStringFn(m, "doc", func(d graph.DeclIndex) string { return m.DocText(d, false) })
}

// makeSummaryFn creates the "summary" host function.
//
// summary(decl) → string (inline HTML)
func makeSummaryFn(m *graph.Module) *object.Builtin {
	return declStringFn(m, "summary", func(d graph.DeclIndex) string { return m.DocText(d, true) })
}

// makeDeclPathFn creates the "decl_path" host function.
//
// decl_path(decl) → string
func makeDeclPathFn(m *graph.Module) *object.Builtin {
	return declStringFn(m, "decl_path", m.Path)
}

func declStringFn(m *graph.Module, name string, fn func(graph.DeclIndex) string) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		d, errObj := declArg(m, name, args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewString(fn(d))
	})
}

// makeResolveFn creates the "resolve" host function.
//
// resolve(decl) → int
func makeResolveFn(m *graph.Module) *object.Builtin {
	return object.NewBuiltin("resolve", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("resolve", 1, len(args))
		}
		d, errObj := declArg(m, "resolve", args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewInt(int64(m.ResolveAliasChain(d)))
	})
}

// makeSourceFn creates the "source" host function.
//
// source(file) → string
func makeSourceFn(m *graph.Module) *object.Builtin {
	return object.NewBuiltin("source", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("source", 1, len(args))
		}
		i, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("source: file must be an int, got %s", args[0].Type())
		}
		f := graph.FileIndex(i.Value())
		if i.Value() < 0 || !m.HasFile(f) {
			return object.Errorf("source: invalid file %d", i.Value())
		}
		return object.NewString(string(m.Source(f)))
	})
}

// makeRenderMarkdownFn creates the "render_markdown" host function.
//
// render_markdown(text) → string (HTML)
func makeRenderMarkdownFn(r *markdown.Renderer) *object.Builtin {
	return object.NewBuiltin("render_markdown", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("render_markdown", 1, len(args))
		}
		text, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("render_markdown: text must be a string, got %s", args[0].Type())
		}
		return object.NewString(r.Render(markdown.Parse(text.Value())))
	})
}

// logObject provides log.Debug/Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *log.Logger
}

func (l *logObject) Debug(msg string) { l.logger.Debug(msg) }

func (l *logObject) Info(msg string) { l.logger.Info(msg) }

func (l *logObject) Warn(msg string) { l.logger.Warn(msg) }

func (l *logObject) Error(msg string) { l.logger.Error(msg) }

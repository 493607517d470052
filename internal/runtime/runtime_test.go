package runtime

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/autodoc/internal/archive"
	"github.com/jward/autodoc/internal/graph"
	"github.com/jward/autodoc/internal/logging"
)

const zigTestSource = `//! Geometry helpers.

/// A point in the plane. Immutable.
pub const Point = struct {
    x: i32,
    y: i32,

    /// Manhattan length.
    pub fn len(self: Point) i32 {
        return self.x + self.y;
    }
};

/// Adds two numbers. Returns their sum.
pub fn add(a: i32, b: i32) i32 {
    return a + b;
}

pub const P = Point;
`

func buildTestModule(t *testing.T) *graph.Module {
	t.Helper()
	set, err := archive.New("geo.zig", []archive.Record{{Path: "geo.zig", Data: []byte(zigTestSource)}})
	require.NoError(t, err)
	m, err := graph.Build(context.Background(), set)
	require.NoError(t, err)
	return m
}

// --- Module host function tests ---

func TestRunSource_Children(t *testing.T) {
	rt := NewRuntime(buildTestModule(t), "")

	script := `
root := root_decl()
assert(root == 0, 'expected root 0, got {root}')

kids := children(root)
assert(len(kids) == 3, 'expected 3 children, got {len(kids)}')
assert(kids[0]["name"] == "P")
assert(kids[0]["kind"] == "container", 'alias kind should be resolved')
assert(kids[1]["name"] == "Point")
assert(kids[1]["summary"] == "A point in the plane.")
assert(kids[2]["name"] == "add")
assert(kids[2]["kind"] == "function")
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestRunSource_ChildAndResolve(t *testing.T) {
	rt := NewRuntime(buildTestModule(t), "")

	script := `
root := root_decl()
point := child(root, "Point")
assert(point != nil)
assert(child(root, "nope") == nil)
assert(child(root, "") == nil)

alias := child(root, "P")
assert(resolve(alias) == point, 'expected alias to resolve to Point')
assert(resolve(point) == point)

l := child(point, "len")
assert(decl_path(l) == "Point.len", 'got {decl_path(l)}')
assert(summary(l) == "Manhattan length.")
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestRunSource_DocAndSource(t *testing.T) {
	rt := NewRuntime(buildTestModule(t), "")

	script := `
root := root_decl()
add := child(root, "add")
html := doc(add)
assert(html == "<p>Adds two numbers. Returns their sum.</p>\n", 'got {html}')
assert(summary(add) == "Adds two numbers.")
assert(summary(root) == "Geometry helpers.")
assert(source(0) == expected_source)
`
	err := rt.RunSource(context.Background(), script, map[string]any{
		"expected_source": zigTestSource,
	})
	require.NoError(t, err)
}

func TestRunSource_InvalidHandles(t *testing.T) {
	rt := NewRuntime(buildTestModule(t), "")
	ctx := context.Background()

	for _, script := range []string{
		`children(999)`,
		`children("x")`,
		`child(0, 1)`,
		`doc(-1)`,
		`source(5)`,
		`root_decl(1)`,
	} {
		err := rt.RunSource(ctx, script, nil)
		assert.Error(t, err, script)
	}
}

func TestRunSource_WithoutModule(t *testing.T) {
	rt := NewRuntime(nil, "")

	script := `
html := render_markdown("# Title\n\nSome text & more.")
assert(html == "<h1>Title</h1>\n<p>Some text &amp; more.</p>\n", 'got {html}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	err := rt.RunSource(context.Background(), `root_decl()`, nil)
	assert.Error(t, err, "module functions are absent without a module")
}

type markHighlighter struct{}

func (markHighlighter) Highlight(lang string, code []byte) (string, bool) {
	return "<mark>" + lang + "</mark>", true
}

func TestRunSource_RenderMarkdownHighlighter(t *testing.T) {
	rt := NewRuntime(nil, "", WithHighlighter(markHighlighter{}))

	script := "html := render_markdown(\"```go\\nx\\n```\")\n" +
		"assert(html == \"<pre><code class=\\\"language-go\\\"><mark>go</mark></code></pre>\\n\", 'got {html}')\n"
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_LogUsesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), logging.NewWithWriter(&buf, "debug"))

	rt := NewRuntime(nil, "")
	require.NoError(t, rt.RunSource(ctx, `log.Info("hello from script")`, nil))
	assert.Contains(t, buf.String(), "hello from script")
	assert.Contains(t, buf.String(), "<inline>")
}

// --- Script loading tests ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()

	scriptPath := filepath.Join(dir, "test.risor")
	require.NoError(t, os.WriteFile(scriptPath, []byte(`result := 1 + 1`), 0644))

	rt := NewRuntime(nil, dir)
	require.NoError(t, rt.RunScript(context.Background(), "test.risor", nil))
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(nil, t.TempDir())
	err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	assert.Error(t, err)
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rt := NewRuntime(nil, dir)
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"reports/summary.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("reports/summary.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	got, err = rt.LoadScript("/reports/summary.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got, "leading separators are stripped")

	_, err = rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

// --- Import tests ---

func TestImport_FSImporter(t *testing.T) {
	mapFS := fstest.MapFS{
		"fmt_helpers.risor": &fstest.MapFile{Data: []byte(`
func bullet(name) {
	return "- " + name
}
`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	script := `
import fmt_helpers

msg := fmt_helpers.bullet("add")
assert(msg == "- add", 'expected "- add", got ' + msg)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	mapFS := fstest.MapFS{
		"names.risor": &fstest.MapFile{Data: []byte(`
func child_names(decl) {
	result := []
	for _, c := range children(decl) {
		result.append(c["name"])
	}
	return result
}
`)},
	}

	rt := NewRuntime(buildTestModule(t), "", WithRuntimeFS(mapFS))

	script := `
import names
got := names.child_names(root_decl())
assert(len(got) == 3, 'expected 3 names, got {len(got)}')
assert(got[1] == "Point")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(nil, dir)

	script := `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

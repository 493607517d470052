package graph

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/autodoc/internal/archive"
	"github.com/jward/autodoc/internal/syntax"
)

func buildModule(t *testing.T, root string, files map[string]string, opts ...BuildOption) *Module {
	t.Helper()
	var records []archive.Record
	for path, src := range files {
		records = append(records, archive.Record{Path: path, Data: []byte(src)})
	}
	slices.SortFunc(records, func(a, b archive.Record) int { return strings.Compare(a.Path, b.Path) })
	set, err := archive.New(root, records)
	require.NoError(t, err)
	m, err := Build(context.Background(), set, opts...)
	require.NoError(t, err)
	return m
}

func childNames(m *Module, d DeclIndex) []string {
	var names []string
	for _, c := range m.Children(d) {
		names = append(names, m.Name(c))
	}
	return names
}

// initOf returns the initializer node of value declaration d.
func initOf(t *testing.T, m *Module, d DeclIndex) syntax.NodeIndex {
	t.Helper()
	init, ok := m.initializer(d)
	require.True(t, ok, "decl %d has no initializer", d)
	return init
}

func TestBuild_RootIsDeclZero(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "src/main.zig", map[string]string{
		"src/a.zig":    "pub const a = 1;",
		"src/main.zig": "pub const main = 1;",
	})

	f := m.RootFile()
	assert.Equal(t, "src/main.zig", m.File(f).Path)
	d, ok := m.RootDecl(f)
	require.True(t, ok)
	assert.Equal(t, DeclIndex(0), d)
	assert.Equal(t, d, m.Parent(d), "file roots are self-parented")
	assert.True(t, m.IsFileRoot(d))
	assert.True(t, m.IsPublic(d))
	assert.Equal(t, []string{"main"}, childNames(m, d))
}

func TestBuild_Extraction(t *testing.T) {
	t.Parallel()
	src := `
const hidden = 1;
pub const zeta = 2;
pub fn alpha() void {}
pub const Point = struct {
    x: i32,
    y: i32,
    pub fn len(self: Point) i32 { return self.x; }
    fn private() void {}
};
pub const ns = struct {
    pub const inner = 3;
};
usingnamespace @import("other.zig");
test "skipped" {}
comptime {}
pub extern fn ext(x: c_int) c_int;
`
	m := buildModule(t, "main.zig", map[string]string{"main.zig": src})
	root, _ := m.RootDecl(m.RootFile())

	assert.Equal(t, KindNamespace, m.Kind(root))
	assert.Equal(t, []string{"Point", "alpha", "ext", "ns", "zeta"}, childNames(m, root))

	point, ok := m.Lookup(root, "Point")
	require.True(t, ok)
	assert.Equal(t, KindContainer, m.Kind(point))
	assert.Equal(t, []string{"len"}, childNames(m, point))

	ns, _ := m.Lookup(root, "ns")
	assert.Equal(t, KindNamespace, m.Kind(ns))
	inner, ok := m.Lookup(ns, "inner")
	require.True(t, ok)
	assert.Equal(t, KindValue, m.Kind(inner))
	assert.Equal(t, "ns.inner", m.Path(inner))
	assert.Equal(t, ns, m.Parent(inner))

	alpha, _ := m.Lookup(root, "alpha")
	assert.Equal(t, KindFunction, m.Kind(alpha))
	ext, _ := m.Lookup(root, "ext")
	assert.Equal(t, KindFunction, m.Kind(ext))

	_, ok = m.Lookup(root, "hidden")
	assert.False(t, ok, "non-pub decls are not extracted")
}

func TestBuild_RootWithFieldsIsContainer(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "Point.zig", map[string]string{"Point.zig": "x: i32,\ny: i32,\n"})
	root, _ := m.RootDecl(m.RootFile())
	assert.Equal(t, KindContainer, m.Kind(root))
	assert.Empty(t, m.Children(root))
}

func TestBuild_NoPublicDecls(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "main.zig", map[string]string{"main.zig": "const a = 1;\nfn b() void {}\n"})
	root, _ := m.RootDecl(m.RootFile())
	assert.Empty(t, m.Children(root))
	assert.Equal(t, 1, m.DeclCount())
}

func TestBuild_InvalidFile(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "main.zig", map[string]string{
		"main.zig":   "const bad = @import(\"bad.zig\");\npub const ok = bad.x;\n",
		"bad.zig":    "pub const x = 1\npub const y = 2;\n",
		"stable.zig": "pub const s = 1;",
	})

	var bad FileIndex
	for f := FileIndex(0); int(f) < m.FileCount(); f++ {
		if m.File(f).Path == "bad.zig" {
			bad = f
		}
	}
	assert.Equal(t, FileInvalid, m.File(bad).Status)
	_, ok := m.RootDecl(bad)
	assert.False(t, ok)
	assert.Equal(t, "pub const x = 1\npub const y = 2;\n", string(m.Source(bad)), "source stays retrievable")

	root, _ := m.RootDecl(m.RootFile())
	okDecl, _ := m.Lookup(root, "ok")
	assert.Equal(t, okDecl, m.ResolveAliasChain(okDecl), "imports of invalid files do not resolve")
}

func TestBuild_Limits(t *testing.T) {
	t.Parallel()
	set, err := archive.New("a.zig", []archive.Record{
		{Path: "a.zig", Data: []byte("")},
		{Path: "b.zig", Data: []byte("")},
	})
	require.NoError(t, err)

	_, err = Build(context.Background(), set, WithMaxFiles(1))
	assert.ErrorIs(t, err, ErrTooManyFiles)

	_, err = Build(context.Background(), set, WithMaxFiles(2))
	assert.NoError(t, err)

	set.Root = "missing.zig"
	_, err = Build(context.Background(), set)
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func TestChildren_SortedByteOrder(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "main.zig", map[string]string{"main.zig": `
pub const b = 1;
pub const B = 1;
pub const a = 1;
pub const _x = 1;
pub const ab = 1;
pub const @"z z" = 1;
`})
	root, _ := m.RootDecl(m.RootFile())
	names := childNames(m, root)
	assert.Equal(t, []string{"B", "_x", "a", "ab", "b", "z z"}, names)
	assert.True(t, slices.IsSorted(names))

	for _, name := range names {
		d, ok := m.Lookup(root, name)
		require.True(t, ok, name)
		assert.Equal(t, name, m.Name(d))
	}
	_, ok := m.Lookup(root, "c")
	assert.False(t, ok)
}

func TestLookup_UnnamedNeverMatches(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "main.zig", map[string]string{"main.zig": "pub const a = 1;"})
	root, _ := m.RootDecl(m.RootFile())
	d, ok := m.Lookup(root, "")
	assert.False(t, ok)
	assert.Equal(t, NoDecl, d)
}

func TestBuild_ParsesUnimportedFiles(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "main.zig", map[string]string{
		"main.zig":  "pub const a = 1;",
		"extra.zig": "pub const b = 2;",
	})
	for f := FileIndex(0); int(f) < m.FileCount(); f++ {
		if m.File(f).Path != "extra.zig" {
			continue
		}
		assert.Equal(t, FileParsed, m.File(f).Status)
		root, ok := m.RootDecl(f)
		require.True(t, ok)
		assert.Equal(t, []string{"b"}, childNames(m, root))
		return
	}
	t.Fatal("extra.zig not in module")
}

func TestLookupRun(t *testing.T) {
	t.Parallel()
	names := []string{"", "B", "a", "ab"}
	nameOf := func(d DeclIndex) string { return names[d] }
	run := []DeclIndex{0, 1, 2, 3}

	for i, name := range names[1:] {
		d, ok := LookupRun(run, nameOf, name)
		require.True(t, ok, name)
		assert.Equal(t, DeclIndex(i+1), d)
	}
	_, ok := LookupRun(run, nameOf, "")
	assert.False(t, ok)
	_, ok = LookupRun(run, nameOf, "b")
	assert.False(t, ok)
	_, ok = LookupRun(nil, nameOf, "a")
	assert.False(t, ok)
}

func TestResolveInScope(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "main.zig", map[string]string{"main.zig": `
pub const top = 1;
pub const Outer = struct {
    pub const mid = 2;
    pub const Inner = struct {
        pub const deep = 3;
    };
};
`})
	root, _ := m.RootDecl(m.RootFile())
	outer, _ := m.Lookup(root, "Outer")
	inner, _ := m.Lookup(outer, "Inner")

	for _, name := range []string{"deep", "mid", "top", "Outer"} {
		d, ok := m.ResolveInScope(inner, name)
		require.True(t, ok, name)
		assert.Equal(t, name, m.Name(d))
	}
	_, ok := m.ResolveInScope(inner, "nope")
	assert.False(t, ok)
	_, ok = m.ResolveInScope(root, "deep")
	assert.False(t, ok, "scope walks only go outward")
}

func TestResolveExpression_ImportsAndFieldAccess(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "src/main.zig", map[string]string{
		"src/main.zig": `
const std = @import("std/std.zig");
pub const Allocator = std.mem.Allocator;
pub const Direct = @import("std/mem.zig").Allocator;
pub const Missing = std.mem.Nope;
`,
		"src/std/std.zig": `pub const mem = @import("mem.zig");`,
		"src/std/mem.zig": `pub const Allocator = struct { ptr: usize, };`,
	})
	root, _ := m.RootDecl(m.RootFile())

	alias, _ := m.Lookup(root, "Allocator")
	target, ok := m.ResolveExpression(alias, initOf(t, m, alias))
	require.True(t, ok)
	assert.Equal(t, "Allocator", m.Name(target))
	assert.Equal(t, "src/std/mem.zig", m.File(m.FileOf(target)).Path)
	assert.Equal(t, KindContainer, m.Kind(target))

	assert.Equal(t, target, m.ResolveAliasChain(alias))
	assert.Equal(t, KindValue, m.Kind(alias))
	assert.Equal(t, KindContainer, m.Category(alias))

	direct, _ := m.Lookup(root, "Direct")
	assert.Equal(t, target, m.ResolveAliasChain(direct))

	missing, _ := m.Lookup(root, "Missing")
	_, ok = m.ResolveExpression(missing, initOf(t, m, missing))
	assert.False(t, ok)
	assert.Equal(t, missing, m.ResolveAliasChain(missing))
}

func TestResolveAliasChain(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "main.zig", map[string]string{"main.zig": `
pub const A = B;
pub const B = C;
pub const C = struct {};
pub const X = Y;
pub const Y = X;
pub const Self = Self;
pub const Lit = 42;
pub const Deep = Deep.field;
`})
	root, _ := m.RootDecl(m.RootFile())
	get := func(name string) DeclIndex {
		d, ok := m.Lookup(root, name)
		require.True(t, ok, name)
		return d
	}

	assert.Equal(t, get("C"), m.ResolveAliasChain(get("A")))
	assert.Equal(t, get("X"), m.ResolveAliasChain(get("X")), "cycles return the start")
	assert.Equal(t, get("Y"), m.ResolveAliasChain(get("Y")))
	assert.Equal(t, get("Self"), m.ResolveAliasChain(get("Self")))
	assert.Equal(t, get("Lit"), m.ResolveAliasChain(get("Lit")))
	assert.Equal(t, get("Deep"), m.ResolveAliasChain(get("Deep")))

	for d := DeclIndex(0); int(d) < m.DeclCount(); d++ {
		once := m.ResolveAliasChain(d)
		assert.Equal(t, once, m.ResolveAliasChain(once), "idempotent for %s", m.Path(d))
	}
}

func TestResolvePartial(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "main.zig", map[string]string{
		"main.zig": `
const lib = @import("lib.zig");
pub const Full = lib.Thing.inner;
pub const Half = lib.Thing.nope.more;
pub const Unknown = nothing.at.all;
pub const Weird = foo().bar;
`,
		"lib.zig": "pub const Thing = struct { pub const inner = 1; };",
	})
	root, _ := m.RootDecl(m.RootFile())

	full, _ := m.Lookup(root, "Full")
	p := m.ResolvePartial(full, initOf(t, m, full))
	assert.True(t, p.Complete())
	assert.Equal(t, "Thing.inner", m.Path(p.Decl))

	half, _ := m.Lookup(root, "Half")
	p = m.ResolvePartial(half, initOf(t, m, half))
	assert.False(t, p.Complete())
	assert.Equal(t, "Thing", m.Path(p.Decl))
	assert.Equal(t, []string{"nope", "more"}, p.Tail)

	unknown, _ := m.Lookup(root, "Unknown")
	p = m.ResolvePartial(unknown, initOf(t, m, unknown))
	assert.Equal(t, NoDecl, p.Decl)
	assert.Equal(t, []string{"at", "all"}, p.Tail)
	assert.False(t, p.Unsupported)

	weird, _ := m.Lookup(root, "Weird")
	p = m.ResolvePartial(weird, initOf(t, m, weird))
	assert.True(t, p.Unsupported)
	assert.Equal(t, []string{"bar"}, p.Tail)
}

func TestDocText(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "main.zig", map[string]string{"main.zig": `//! The main module.
//! Second line.

/// Adds two numbers. Returns their sum.
///
/// ` + "```" + `
/// add(1, 2) == 3
/// ` + "```" + `
pub fn add(a: i32, b: i32) i32 {
    return a + b;
}

/// e.g. see below.
pub const example = 1;

/// Uses <angle> & "quotes".
pub const escaped = 1;

// plain comment
pub const undocumented = 1;
`})
	root, _ := m.RootDecl(m.RootFile())

	assert.Equal(t, "<p>The main module.\nSecond line.</p>\n", m.DocText(root, false))
	assert.Equal(t, "The main module.", m.DocText(root, true))

	add, _ := m.Lookup(root, "add")
	assert.Equal(t, "Adds two numbers.", m.DocText(add, true))
	assert.Equal(t,
		"<p>Adds two numbers. Returns their sum.</p>\n<pre><code>add(1, 2) == 3\n</code></pre>\n",
		m.DocText(add, false))

	example, _ := m.Lookup(root, "example")
	assert.Equal(t, "e.g. see below.", m.DocText(example, true))

	escaped, _ := m.Lookup(root, "escaped")
	assert.Equal(t, "Uses &lt;angle&gt; &amp; &quot;quotes&quot;.", m.DocText(escaped, true))

	undocumented, _ := m.Lookup(root, "undocumented")
	assert.Equal(t, "", m.DocText(undocumented, false))
	assert.Equal(t, "", m.DocText(undocumented, true))
}

func TestSummary(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"Adds two numbers. Returns their sum.", "Adds two numbers."},
		{"e.g. see below.", "e.g. see below."},
		{"Compare a vs. b. Then stop.", "Compare a vs. b."},
		{"Version 1.2 is out. Yes.", "Version 1.2 is out."},
		{"No period at all", "No period at all"},
		{"Ends here.", "Ends here."},
		{"Ends on a\nline break.\nNext.", "Ends on a\nline break."},
		{"Toe.g. counts as a sentence end. x", "Toe.g."},
		{"E.g. uppercase works. x", "E.g. uppercase works."},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Summary(tt.in, DefaultAbbreviations), tt.in)
	}

	assert.Equal(t, "Foo bar.", Summary("Foo bar. Baz.", nil))
	assert.Equal(t, "Foo bar. Baz.", Summary("Foo bar. Baz.", []string{"bar."}))
}

func TestWithAbbreviations(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "main.zig", map[string]string{"main.zig": "/// Approx. ten. More.\npub const a = 1;\n"},
		WithAbbreviations([]string{"approx."}))
	root, _ := m.RootDecl(m.RootFile())
	a, _ := m.Lookup(root, "a")
	assert.Equal(t, "Approx. ten.", m.DocText(a, true))
}

type fakeHighlighter struct{}

func (fakeHighlighter) Highlight(lang string, code []byte) (string, bool) {
	return "[" + lang + "]", true
}

func TestWithHighlighter(t *testing.T) {
	t.Parallel()
	m := buildModule(t, "main.zig", map[string]string{"main.zig": "/// ```zig\n/// x\n/// ```\npub const a = 1;\n"},
		WithHighlighter(fakeHighlighter{}))
	root, _ := m.RootDecl(m.RootFile())
	a, _ := m.Lookup(root, "a")
	assert.Equal(t, "<pre><code class=\"language-zig\">[zig]</code></pre>\n", m.DocText(a, false))
}

func TestRunAt(t *testing.T) {
	t.Parallel()
	words := []uint32{0, 2, 7, 9, 0}
	assert.Nil(t, RunAt(words, 0))
	assert.Equal(t, []DeclIndex{7, 9}, RunAt(words, 1))
	assert.Nil(t, RunAt(words, 4))
	assert.Nil(t, RunAt(words, 99))
}

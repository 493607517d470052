package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `//! Sample module.
//! Second line.

const std = @import("std.zig");

/// A point in space.
pub const Point = struct {
    x: f32,
    y: f32 = 0,

    /// Length of the vector.
    pub fn len(self: Point) f32 {
        return @sqrt(self.x * self.x + self.y * self.y);
    }
};

pub const Color = enum(u8) { red, green, blue };

/// Adds two numbers.
pub fn add(a: i32, b: i32) i32 {
    return a + b;
}

pub extern "c" fn puts(s: [*:0]const u8) c_int;

pub const Alias = std.mem.Allocator;
pub const name: []const u8 = "sample";
pub usingnamespace @import("other.zig");

test "add" {
    try std.testing.expect(add(1, 2) == 3);
}
`

func parseOK(t *testing.T, src string) *Tree {
	t.Helper()
	tree := Parse([]byte(src))
	require.Empty(t, tree.Errors(), "unexpected syntax errors")
	return tree
}

func memberNames(tree *Tree, n NodeIndex) []string {
	var names []string
	for _, m := range tree.Members(n) {
		if name, ok := tree.DeclName(m); ok {
			names = append(names, name)
		}
	}
	return names
}

func TestParse_TopLevelMembers(t *testing.T) {
	tree := parseOK(t, sampleSource)

	members := tree.Members(tree.Root())
	require.Len(t, members, 9)

	var tags []NodeTag
	for _, m := range members {
		tags = append(tags, tree.Tag(m))
	}
	assert.Equal(t, []NodeTag{
		NodeVarDecl, NodeVarDecl, NodeVarDecl, NodeFnDecl, NodeFnProto,
		NodeVarDecl, NodeVarDecl, NodeUsingnamespace, NodeTestDecl,
	}, tags)
	assert.Equal(t, []string{"std", "Point", "Color", "add", "puts", "Alias", "name"}, memberNames(tree, tree.Root()))
}

func TestParse_ContainerMembers(t *testing.T) {
	tree := parseOK(t, sampleSource)

	point := tree.Members(tree.Root())[1]
	vd, ok := tree.FullVarDecl(point)
	require.True(t, ok)
	require.Equal(t, NodeContainerDecl, tree.Tag(vd.Init))
	assert.True(t, tree.HasFields(vd.Init))
	assert.Equal(t, []string{"x", "y", "len"}, memberNames(tree, vd.Init))

	color := tree.Members(tree.Root())[2]
	vd, ok = tree.FullVarDecl(color)
	require.True(t, ok)
	require.Equal(t, NodeContainerDecl, tree.Tag(vd.Init))
	assert.Equal(t, "enum", tree.TokenSlice(tree.MainToken(vd.Init)))
	assert.Equal(t, []string{"red", "green", "blue"}, memberNames(tree, vd.Init))
}

func TestParse_PubPrecedesFirstToken(t *testing.T) {
	tree := parseOK(t, sampleSource)
	members := tree.Members(tree.Root())

	std := members[0]
	assert.Equal(t, TokenKeywordConst, tree.TokenTag(tree.FirstToken(std)))
	assert.NotEqual(t, TokenKeywordPub, tree.TokenTag(tree.FirstToken(std)-1))

	puts := members[4]
	assert.Equal(t, TokenKeywordExtern, tree.TokenTag(tree.FirstToken(puts)))
	assert.Equal(t, TokenKeywordPub, tree.TokenTag(tree.FirstToken(puts)-1))
}

func TestParse_ImportAndFieldAccess(t *testing.T) {
	tree := parseOK(t, sampleSource)
	members := tree.Members(tree.Root())

	vd, _ := tree.FullVarDecl(members[0])
	path, ok := tree.IsImport(vd.Init)
	require.True(t, ok)
	assert.Equal(t, "std.zig", path)

	vd, _ = tree.FullVarDecl(members[5])
	require.Equal(t, NodeFieldAccess, tree.Tag(vd.Init))
	assert.Equal(t, "Allocator", tree.FieldName(vd.Init))
	inner := NodeIndex(tree.Node(vd.Init).Lhs)
	require.Equal(t, NodeFieldAccess, tree.Tag(inner))
	assert.Equal(t, "mem", tree.FieldName(inner))
	base := NodeIndex(tree.Node(inner).Lhs)
	require.Equal(t, NodeIdentifier, tree.Tag(base))
	assert.Equal(t, "std", tree.IdentifierName(base))

	vd, _ = tree.FullVarDecl(members[6])
	assert.Equal(t, NodeOther, tree.Tag(vd.Type))
	assert.Equal(t, "[]const u8", tree.NodeSource(vd.Type))
	assert.Equal(t, NodeStringLiteral, tree.Tag(vd.Init))
}

func TestParse_ComplexInitializerIsOpaque(t *testing.T) {
	tree := parseOK(t, `pub const x = foo(1) catch unreachable;
pub const y = if (a) struct {} else b;
`)
	for _, m := range tree.Members(tree.Root()) {
		vd, ok := tree.FullVarDecl(m)
		require.True(t, ok)
		assert.Equal(t, NodeOther, tree.Tag(vd.Init))
	}
}

func TestParse_DocCommentsAreTokens(t *testing.T) {
	tree := parseOK(t, sampleSource)
	assert.Equal(t, TokenContainerDocComment, tree.TokenTag(0))
	assert.Equal(t, TokenContainerDocComment, tree.TokenTag(1))

	add := tree.Members(tree.Root())[3]
	first := tree.FirstToken(add)
	require.Equal(t, TokenKeywordPub, tree.TokenTag(first-1))
	assert.Equal(t, TokenDocComment, tree.TokenTag(first-2))
	assert.Equal(t, "/// Adds two numbers.", tree.TokenSlice(first-2))
}

func TestParse_FunctionReturningErrorSet(t *testing.T) {
	tree := parseOK(t, `pub fn f() error{Oops}!void {
    return error.Oops;
}
pub fn g() void {}
`)
	members := tree.Members(tree.Root())
	require.Len(t, members, 2)
	assert.Equal(t, NodeFnDecl, tree.Tag(members[0]))
	assert.Equal(t, NodeFnDecl, tree.Tag(members[1]))
}

func TestParse_QuotedIdentifier(t *testing.T) {
	tree := parseOK(t, `pub const @"weird name" = 1;`)
	assert.Equal(t, []string{"weird name"}, memberNames(tree, tree.Root()))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing semicolon", "pub const x = 1\npub const y = 2;"},
		{"unbalanced brace", "pub fn f() void {"},
		{"unterminated string", "pub const s = \"abc\n;"},
		{"invalid character", "pub const x = 1; $"},
		{"missing name", "pub const = 4;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Parse([]byte(tt.src))
			assert.NotEmpty(t, tree.Errors())
		})
	}
}

func TestParse_ErrorLine(t *testing.T) {
	tree := Parse([]byte("pub const a = 1;\n\npub const = 2;\n"))
	require.NotEmpty(t, tree.Errors())
	assert.Equal(t, 3, tree.Errors()[0].Line)
	assert.Contains(t, tree.Errors()[0].Error(), "line 3")
}

func TestParse_Empty(t *testing.T) {
	tree := parseOK(t, "")
	assert.Empty(t, tree.Members(tree.Root()))
	assert.Equal(t, TokenEOF, tree.TokenTag(0))
}

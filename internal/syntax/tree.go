// Package syntax tokenizes and parses Zig-style source files into a compact
// node arena. It only understands the declaration-level structure that
// documentation extraction needs; expression shapes it does not model are
// kept as opaque NodeOther spans.
package syntax

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// NodeTag classifies a node.
type NodeTag uint8

const (
	NodeRoot NodeTag = iota
	NodeVarDecl
	NodeFnDecl
	NodeFnProto
	NodeContainerDecl
	NodeContainerField
	NodeUsingnamespace
	NodeTestDecl
	NodeComptime
	NodeIdentifier
	NodeFieldAccess
	NodeBuiltinCall
	NodeStringLiteral
	NodeNumberLiteral
	NodeCall
	NodeOther
)

var nodeTagNames = [...]string{
	NodeRoot:           "root",
	NodeVarDecl:        "var_decl",
	NodeFnDecl:         "fn_decl",
	NodeFnProto:        "fn_proto",
	NodeContainerDecl:  "container_decl",
	NodeContainerField: "container_field",
	NodeUsingnamespace: "usingnamespace",
	NodeTestDecl:       "test_decl",
	NodeComptime:       "comptime",
	NodeIdentifier:     "identifier",
	NodeFieldAccess:    "field_access",
	NodeBuiltinCall:    "builtin_call",
	NodeStringLiteral:  "string_literal",
	NodeNumberLiteral:  "number_literal",
	NodeCall:           "call",
	NodeOther:          "other",
}

func (t NodeTag) String() string {
	if int(t) < len(nodeTagNames) {
		return nodeTagNames[t]
	}
	return fmt.Sprintf("NodeTag(%d)", t)
}

// NodeIndex addresses a node in the tree. Index 0 is always the root, which
// can never be a sub-node, so 0 doubles as "no node" in optional slots.
type NodeIndex uint32

// NoNode marks an absent optional child.
const NoNode NodeIndex = 0

// Node is a fixed-size arena entry. The meaning of Lhs and Rhs depends on Tag:
//
//	root, container_decl: Lhs = extra offset of the member run
//	var_decl:             Lhs = type node, Rhs = init node
//	container_field:      Lhs = type node, Rhs = default value node
//	usingnamespace:       Lhs = expression
//	field_access:         Lhs = object node; MainToken = field name
//	builtin_call:         Lhs = extra offset of the argument run
//	call:                 Lhs = callee node, Rhs = extra offset of the argument run
type Node struct {
	Tag        NodeTag
	MainToken  TokenIndex
	FirstToken TokenIndex
	LastToken  TokenIndex
	Lhs        uint32
	Rhs        uint32
}

// Tree is the parsed form of one file. It is immutable after Parse returns.
type Tree struct {
	source []byte
	tokens []Token
	nodes  []Node
	extra  []uint32
	errors []Error
}

// VarDecl is the full view of a var_decl node.
type VarDecl struct {
	MutToken  TokenIndex
	NameToken TokenIndex
	Type      NodeIndex
	Init      NodeIndex
}

// FnProto is the full view of a fn_decl or fn_proto node.
type FnProto struct {
	FnToken   TokenIndex
	NameToken TokenIndex
	HasName   bool
	HasBody   bool
}

// ContainerDecl is the full view of a container_decl node.
type ContainerDecl struct {
	KindToken TokenIndex
	Members   []NodeIndex
}

// Source returns the bytes the tree was parsed from.
func (t *Tree) Source() []byte { return t.source }

// Errors returns the syntax errors found while parsing.
func (t *Tree) Errors() []Error { return t.errors }

// Root returns the root node index.
func (t *Tree) Root() NodeIndex { return 0 }

// NodeCount returns the number of nodes in the arena.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// TokenCount returns the number of tokens, including the trailing EOF.
func (t *Tree) TokenCount() int { return len(t.tokens) }

// Node returns the raw arena entry for n.
func (t *Tree) Node(n NodeIndex) Node { return t.nodes[n] }

// Tag returns the tag of n.
func (t *Tree) Tag(n NodeIndex) NodeTag { return t.nodes[n].Tag }

// FirstToken returns the first token of n, not counting a leading pub.
func (t *Tree) FirstToken(n NodeIndex) TokenIndex { return t.nodes[n].FirstToken }

// LastToken returns the last token of n.
func (t *Tree) LastToken(n NodeIndex) TokenIndex { return t.nodes[n].LastToken }

// MainToken returns the token that identifies n.
func (t *Tree) MainToken(n NodeIndex) TokenIndex { return t.nodes[n].MainToken }

// TokenTag returns the tag of token i.
func (t *Tree) TokenTag(i TokenIndex) TokenTag { return t.tokens[i].Tag }

// TokenSlice returns the source text of token i.
func (t *Tree) TokenSlice(i TokenIndex) string {
	tok := t.tokens[i]
	return string(t.source[tok.Start:tok.End])
}

// TokenStart returns the byte offset of token i.
func (t *Tree) TokenStart(i TokenIndex) int { return int(t.tokens[i].Start) }

// NodeSource returns the source text spanned by n.
func (t *Tree) NodeSource(n NodeIndex) string {
	node := t.nodes[n]
	start := t.tokens[node.FirstToken].Start
	end := t.tokens[node.LastToken].End
	return string(t.source[start:end])
}

// Line returns the 1-based line number of token i.
func (t *Tree) Line(i TokenIndex) int {
	return bytes.Count(t.source[:t.tokens[i].Start], []byte{'\n'}) + 1
}

func (t *Tree) run(offset uint32) []NodeIndex {
	n := t.extra[offset]
	out := make([]NodeIndex, n)
	for i := range out {
		out[i] = NodeIndex(t.extra[offset+1+uint32(i)])
	}
	return out
}

// Members returns the members of a root or container_decl node and nil for
// every other tag.
func (t *Tree) Members(n NodeIndex) []NodeIndex {
	switch t.nodes[n].Tag {
	case NodeRoot, NodeContainerDecl:
		return t.run(t.nodes[n].Lhs)
	}
	return nil
}

// FullVarDecl returns the var_decl view of n.
func (t *Tree) FullVarDecl(n NodeIndex) (VarDecl, bool) {
	node := t.nodes[n]
	if node.Tag != NodeVarDecl {
		return VarDecl{}, false
	}
	return VarDecl{
		MutToken:  node.MainToken,
		NameToken: node.MainToken + 1,
		Type:      NodeIndex(node.Lhs),
		Init:      NodeIndex(node.Rhs),
	}, true
}

// FullFnProto returns the function view of n.
func (t *Tree) FullFnProto(n NodeIndex) (FnProto, bool) {
	node := t.nodes[n]
	if node.Tag != NodeFnDecl && node.Tag != NodeFnProto {
		return FnProto{}, false
	}
	name := node.MainToken + 1
	return FnProto{
		FnToken:   node.MainToken,
		NameToken: name,
		HasName:   t.tokens[name].Tag == TokenIdentifier,
		HasBody:   node.Tag == NodeFnDecl,
	}, true
}

// FullContainerDecl returns the container view of n.
func (t *Tree) FullContainerDecl(n NodeIndex) (ContainerDecl, bool) {
	node := t.nodes[n]
	if node.Tag != NodeContainerDecl {
		return ContainerDecl{}, false
	}
	return ContainerDecl{KindToken: node.MainToken, Members: t.run(node.Lhs)}, true
}

// BuiltinCallParams returns the argument nodes of a builtin_call.
func (t *Tree) BuiltinCallParams(n NodeIndex) []NodeIndex {
	if t.nodes[n].Tag != NodeBuiltinCall {
		return nil
	}
	return t.run(t.nodes[n].Lhs)
}

// CallParams returns the argument nodes of a call.
func (t *Tree) CallParams(n NodeIndex) []NodeIndex {
	if t.nodes[n].Tag != NodeCall {
		return nil
	}
	return t.run(t.nodes[n].Rhs)
}

// DeclName returns the declared name of a var_decl, named function, or
// container_field node.
func (t *Tree) DeclName(n NodeIndex) (string, bool) {
	node := t.nodes[n]
	switch node.Tag {
	case NodeVarDecl:
		return t.identifierName(node.MainToken + 1), true
	case NodeFnDecl, NodeFnProto:
		fn, _ := t.FullFnProto(n)
		if !fn.HasName {
			return "", false
		}
		return t.identifierName(fn.NameToken), true
	case NodeContainerField:
		return t.identifierName(node.MainToken), true
	}
	return "", false
}

// identifierName returns the name of an identifier token, unquoting the
// @"..." form.
func (t *Tree) identifierName(i TokenIndex) string {
	s := t.TokenSlice(i)
	if strings.HasPrefix(s, `@"`) {
		if v, err := strconv.Unquote(s[1:]); err == nil {
			return v
		}
		return s[2 : len(s)-1]
	}
	return s
}

// IdentifierName returns the referenced name of an identifier node.
func (t *Tree) IdentifierName(n NodeIndex) string {
	return t.identifierName(t.nodes[n].MainToken)
}

// FieldName returns the field name of a field_access node.
func (t *Tree) FieldName(n NodeIndex) string {
	return t.identifierName(t.nodes[n].MainToken)
}

// StringLiteralValue decodes the string literal token i.
func (t *Tree) StringLiteralValue(i TokenIndex) (string, error) {
	s := t.TokenSlice(i)
	v, err := strconv.Unquote(s)
	if err != nil {
		// Zig escapes (\x, \u{...}) are a superset of what Go accepts;
		// paths rarely use them, so fall back to the raw body.
		if len(s) >= 2 {
			return s[1 : len(s)-1], nil
		}
		return "", fmt.Errorf("invalid string literal %s", s)
	}
	return v, nil
}

// IsImport reports whether n is an @import call with a single string
// literal argument and returns the imported path.
func (t *Tree) IsImport(n NodeIndex) (string, bool) {
	node := t.nodes[n]
	if node.Tag != NodeBuiltinCall || t.TokenSlice(node.MainToken) != "@import" {
		return "", false
	}
	params := t.BuiltinCallParams(n)
	if len(params) != 1 || t.nodes[params[0]].Tag != NodeStringLiteral {
		return "", false
	}
	v, err := t.StringLiteralValue(t.nodes[params[0]].MainToken)
	if err != nil {
		return "", false
	}
	return v, true
}

// HasFields reports whether any direct member of a root or container node is
// a field.
func (t *Tree) HasFields(n NodeIndex) bool {
	for _, m := range t.Members(n) {
		if t.nodes[m].Tag == NodeContainerField {
			return true
		}
	}
	return false
}

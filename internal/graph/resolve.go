package graph

import (
	"slices"
	"strings"

	"github.com/jward/autodoc/internal/syntax"
)

// maxResolveDepth bounds the nesting of expression resolution so that
// self-referential aliases terminate.
const maxResolveDepth = 64

// Lookup returns the child of d named name. The empty name never matches.
func (m *Module) Lookup(d DeclIndex, name string) (DeclIndex, bool) {
	return LookupRun(m.Children(d), m.Name, name)
}

// compareNames orders children runs. Build sorts with it and LookupRun
// searches with it.
func compareNames(a, b string) int { return strings.Compare(a, b) }

// LookupRun binary-searches a children run for name, reading names through
// nameOf. The empty name never matches.
func LookupRun(children []DeclIndex, nameOf func(DeclIndex) string, name string) (DeclIndex, bool) {
	if name == "" {
		return NoDecl, false
	}
	i, found := slices.BinarySearchFunc(children, name, func(c DeclIndex, name string) int {
		return compareNames(nameOf(c), name)
	})
	if !found {
		return NoDecl, false
	}
	return children[i], true
}

// ResolveInScope looks name up in d and then in each enclosing declaration up
// to the file root.
func (m *Module) ResolveInScope(d DeclIndex, name string) (DeclIndex, bool) {
	cur := d
	for {
		if r, ok := m.Lookup(cur, name); ok {
			return r, true
		}
		parent := m.decls[cur].Parent
		if parent == cur {
			return NoDecl, false
		}
		cur = parent
	}
}

// ResolveExpression resolves the expression node n, which must belong to the
// file of d, to the declaration it denotes. Identifiers, @import calls and
// field accesses are supported; the result is chased through aliases.
func (m *Module) ResolveExpression(d DeclIndex, n syntax.NodeIndex) (DeclIndex, bool) {
	r, ok := m.step(d, n, 0)
	if !ok {
		return NoDecl, false
	}
	return m.chase(r, 0), true
}

// ResolveAliasChain follows value declarations whose initializer resolves to
// another declaration and returns the last one reached. A cycle returns d.
func (m *Module) ResolveAliasChain(d DeclIndex) DeclIndex {
	return m.chase(d, 0)
}

// chase follows aliases from d. Every hop is resolved at the same depth, so
// chasing the result again is a no-op.
func (m *Module) chase(d DeclIndex, depth int) DeclIndex {
	seen := map[DeclIndex]bool{d: true}
	cur := d
	for {
		init, ok := m.initializer(cur)
		if !ok {
			return cur
		}
		next, ok := m.step(cur, init, depth)
		if !ok {
			return cur
		}
		if seen[next] {
			return d
		}
		seen[next] = true
		cur = next
	}
}

// initializer returns the init expression of a value declaration.
func (m *Module) initializer(d DeclIndex) (syntax.NodeIndex, bool) {
	decl := m.decls[d]
	if decl.Kind != KindValue || decl.Parent == d {
		return syntax.NoNode, false
	}
	vd, ok := m.files[decl.File].Tree.FullVarDecl(decl.Node)
	if !ok || vd.Init == syntax.NoNode {
		return syntax.NoNode, false
	}
	return vd.Init, true
}

// step resolves n in the scope of d without chasing the result.
func (m *Module) step(d DeclIndex, n syntax.NodeIndex, depth int) (DeclIndex, bool) {
	if depth > maxResolveDepth {
		return NoDecl, false
	}
	file := &m.files[m.decls[d].File]
	tree := file.Tree
	switch tree.Tag(n) {
	case syntax.NodeIdentifier:
		name := tree.IdentifierName(n)
		if r, ok := m.ResolveInScope(d, name); ok {
			return r, true
		}
		if scope, init, ok := m.privateAlias(d, name); ok {
			return m.step(scope, init, depth+1)
		}
	case syntax.NodeBuiltinCall:
		if target, ok := file.Imports[n]; ok {
			return m.RootDecl(target)
		}
	case syntax.NodeFieldAccess:
		lhs, ok := m.step(d, syntax.NodeIndex(tree.Node(n).Lhs), depth+1)
		if !ok {
			return NoDecl, false
		}
		return m.Lookup(m.chase(lhs, depth+1), tree.FieldName(n))
	}
	return NoDecl, false
}

// privateAlias finds a non-public const or var named name in the containers
// enclosing d and returns the container declaration and the initializer.
// Private declarations have no decl of their own, so imports such as
// `const std = @import("std.zig");` are only reachable through the syntax.
func (m *Module) privateAlias(d DeclIndex, name string) (DeclIndex, syntax.NodeIndex, bool) {
	cur := d
	for {
		if container, ok := m.containerNode(cur); ok {
			tree := m.files[m.decls[cur].File].Tree
			for _, member := range tree.Members(container) {
				if tree.Tag(member) != syntax.NodeVarDecl || isPub(tree, member) {
					continue
				}
				if n, _ := tree.DeclName(member); n != name {
					continue
				}
				if vd, _ := tree.FullVarDecl(member); vd.Init != syntax.NoNode {
					return cur, vd.Init, true
				}
			}
		}
		parent := m.decls[cur].Parent
		if parent == cur {
			return NoDecl, syntax.NoNode, false
		}
		cur = parent
	}
}

// containerNode returns the syntax node holding the members of d.
func (m *Module) containerNode(d DeclIndex) (syntax.NodeIndex, bool) {
	decl := m.decls[d]
	tree := m.files[decl.File].Tree
	if decl.Parent == d {
		return tree.Root(), true
	}
	if decl.Kind != KindNamespace && decl.Kind != KindContainer {
		return syntax.NoNode, false
	}
	vd, ok := tree.FullVarDecl(decl.Node)
	if !ok || vd.Init == syntax.NoNode || tree.Tag(vd.Init) != syntax.NodeContainerDecl {
		return syntax.NoNode, false
	}
	return vd.Init, true
}

// Partial is the outcome of resolving a dotted expression as far as
// possible.
type Partial struct {
	// Decl is the deepest declaration reached, or NoDecl when not even the
	// base of the expression resolved.
	Decl DeclIndex
	// Tail holds the field names left unresolved after Decl, in order.
	Tail []string
	// Unsupported is set when the base of the expression is neither an
	// identifier nor an @import call.
	Unsupported bool
}

// Complete reports whether the whole expression resolved.
func (p Partial) Complete() bool {
	return p.Decl != NoDecl && len(p.Tail) == 0 && !p.Unsupported
}

// ResolvePartial resolves a chain of field accesses over an identifier or
// @import base, stopping at the first name that does not resolve.
func (m *Module) ResolvePartial(d DeclIndex, n syntax.NodeIndex) Partial {
	tree := m.files[m.decls[d].File].Tree
	var names []string
	base := n
	for tree.Tag(base) == syntax.NodeFieldAccess {
		names = append(names, tree.FieldName(base))
		base = syntax.NodeIndex(tree.Node(base).Lhs)
	}
	slices.Reverse(names)

	switch tree.Tag(base) {
	case syntax.NodeIdentifier, syntax.NodeBuiltinCall:
	default:
		return Partial{Decl: NoDecl, Tail: names, Unsupported: true}
	}
	cur, ok := m.step(d, base, 0)
	if !ok {
		return Partial{Decl: NoDecl, Tail: names}
	}
	cur = m.chase(cur, 0)
	for i, name := range names {
		next, ok := m.Lookup(cur, name)
		if !ok {
			return Partial{Decl: cur, Tail: names[i:]}
		}
		cur = m.chase(next, 0)
	}
	return Partial{Decl: cur}
}

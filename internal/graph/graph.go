// Package graph builds the declaration graph of a module from its parsed
// source files and answers queries over it: children, lookup, scope and
// alias resolution, and rendered documentation.
//
// Files, declarations and child lists live in three append-only tables
// addressed by integer handles. A Module is immutable once Build returns and
// is safe for concurrent readers.
package graph

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/jward/autodoc/internal/markdown"
	"github.com/jward/autodoc/internal/syntax"
)

// FileIndex addresses a file in a module.
type FileIndex uint32

// DeclIndex addresses a declaration in a module. Decl 0 is the root
// declaration of the module's root file.
type DeclIndex uint32

// NoDecl is the absent declaration.
const NoDecl = ^DeclIndex(0)

// ExtraIndex addresses a length-prefixed run in the extra buffer. Index 0 is
// the empty run.
type ExtraIndex uint32

// FileStatus tracks how far a file got through extraction.
type FileStatus uint8

const (
	FileInvalid FileStatus = iota
	FileSourceAvailable
	FileParsed
)

func (s FileStatus) String() string {
	switch s {
	case FileInvalid:
		return "invalid"
	case FileSourceAvailable:
		return "source_available"
	case FileParsed:
		return "parsed"
	}
	return fmt.Sprintf("FileStatus(%d)", s)
}

// Kind classifies a declaration.
type Kind uint8

const (
	KindNamespace Kind = iota
	KindContainer
	KindFunction
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindNamespace:
		return "namespace"
	case KindContainer:
		return "container"
	case KindFunction:
		return "function"
	case KindValue:
		return "value"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := KindNamespace; k <= KindValue; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// File is one source file of a module.
type File struct {
	Status   FileStatus
	Path     string
	Source   []byte
	Tree     *syntax.Tree
	RootDecl DeclIndex
	Imports  map[syntax.NodeIndex]FileIndex
}

// Decl is one documentable declaration. A file root declaration is its own
// parent.
type Decl struct {
	File     FileIndex
	Parent   DeclIndex
	Node     syntax.NodeIndex
	Kind     Kind
	Children ExtraIndex
}

// Module is a built declaration graph.
type Module struct {
	root  FileIndex
	files []File
	decls []Decl
	names []string
	extra []uint32

	abbreviations []string
	renderer      markdown.Renderer
}

// RunAt returns the declarations stored in the run at off of words. The
// result aliases words and must not be modified.
func RunAt(words []uint32, off ExtraIndex) []DeclIndex {
	if off == 0 || int(off) >= len(words) {
		return nil
	}
	n := words[off]
	if n == 0 {
		return nil
	}
	run := words[off+1 : uint32(off)+1+n : uint32(off)+1+n]
	return unsafe.Slice((*DeclIndex)(unsafe.Pointer(&run[0])), len(run))
}

// RootFile returns the module's root file.
func (m *Module) RootFile() FileIndex { return m.root }

// FileCount returns the number of files.
func (m *Module) FileCount() int { return len(m.files) }

// DeclCount returns the number of declarations.
func (m *Module) DeclCount() int { return len(m.decls) }

// File returns file f.
func (m *Module) File(f FileIndex) File { return m.files[f] }

// HasFile reports whether f is a valid file handle.
func (m *Module) HasFile(f FileIndex) bool { return int(f) < len(m.files) }

// HasDecl reports whether d is a valid declaration handle.
func (m *Module) HasDecl(d DeclIndex) bool { return int(d) < len(m.decls) }

// Decl returns declaration d.
func (m *Module) Decl(d DeclIndex) Decl { return m.decls[d] }

// Extra returns the module's extra buffer. It must not be modified.
func (m *Module) Extra() []uint32 { return m.extra }

// Source returns the bytes of file f.
func (m *Module) Source(f FileIndex) []byte { return m.files[f].Source }

// RootDecl returns the root declaration of file f. Files that were not
// parsed have none.
func (m *Module) RootDecl(f FileIndex) (DeclIndex, bool) {
	d := m.files[f].RootDecl
	return d, d != NoDecl
}

// Name returns the declared name of d. File roots and unnamed declarations
// have the empty name.
func (m *Module) Name(d DeclIndex) string { return m.names[d] }

// Kind returns the syntactic kind of d.
func (m *Module) Kind(d DeclIndex) Kind { return m.decls[d].Kind }

// Category returns the kind of the declaration d is an alias of.
func (m *Module) Category(d DeclIndex) Kind {
	return m.decls[m.ResolveAliasChain(d)].Kind
}

// FileOf returns the file declaring d.
func (m *Module) FileOf(d DeclIndex) FileIndex { return m.decls[d].File }

// Parent returns the parent of d. A file root is its own parent.
func (m *Module) Parent(d DeclIndex) DeclIndex { return m.decls[d].Parent }

// IsFileRoot reports whether d is the root declaration of its file.
func (m *Module) IsFileRoot(d DeclIndex) bool { return m.decls[d].Parent == d }

// Path returns the dotted path of d from its file root. File roots have the
// empty path.
func (m *Module) Path(d DeclIndex) string {
	var parts []string
	for !m.IsFileRoot(d) {
		parts = append(parts, m.names[d])
		d = m.decls[d].Parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// Children returns the children of d in name order. The result aliases the
// module and must not be modified.
func (m *Module) Children(d DeclIndex) []DeclIndex {
	return RunAt(m.extra, m.decls[d].Children)
}

// IsPublic reports whether d is visible outside its file: file roots always
// are, other declarations when preceded by pub.
func (m *Module) IsPublic(d DeclIndex) bool {
	decl := m.decls[d]
	if decl.Parent == d {
		return true
	}
	return isPub(m.files[decl.File].Tree, decl.Node)
}

func isPub(tree *syntax.Tree, n syntax.NodeIndex) bool {
	first := tree.FirstToken(n)
	return first > 0 && tree.TokenTag(first-1) == syntax.TokenKeywordPub
}

package autodoc

import "github.com/jward/autodoc/internal/graph"

// Kind classifies a declaration. It is an alias of the graph package's kind
// so callers never convert.
type Kind = graph.Kind

const (
	KindNamespace = graph.KindNamespace
	KindContainer = graph.KindContainer
	KindFunction  = graph.KindFunction
	KindValue     = graph.KindValue
)

// ModuleID identifies a module within a Session. IDs are never reused.
type ModuleID uint32

// File is a handle to a file of a module.
type File struct {
	Module ModuleID
	Index  graph.FileIndex
}

// Decl is a handle to a declaration of a module.
type Decl struct {
	Module ModuleID
	Index  graph.DeclIndex
}

// NoDecl is returned by lookups that find nothing.
var NoDecl = Decl{Index: graph.NoDecl}

// Found reports whether d refers to a declaration.
func (d Decl) Found() bool { return d.Index != graph.NoDecl }

// Child describes one child declaration. Kind is the kind after alias
// resolution and Summary is inline HTML.
type Child struct {
	Decl    Decl
	Kind    Kind
	Name    string
	Summary string
}

// DeclInfo describes a declaration.
type DeclInfo struct {
	Decl     Decl
	File     File
	Parent   Decl
	Name     string
	Path     string
	Kind     Kind
	Category Kind
	Public   bool
}

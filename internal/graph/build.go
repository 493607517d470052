package graph

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/jward/autodoc/internal/archive"
	"github.com/jward/autodoc/internal/logging"
	"github.com/jward/autodoc/internal/markdown"
	"github.com/jward/autodoc/internal/syntax"
)

var (
	// ErrRootNotFound is returned when the source set does not contain its
	// root file.
	ErrRootNotFound = errors.New("root file not found")
	// ErrTooManyFiles is returned when the source set exceeds the file limit.
	ErrTooManyFiles = errors.New("too many files")
)

// DefaultAbbreviations are the words whose trailing period does not end a
// summary sentence.
var DefaultAbbreviations = []string{"e.g.", "i.e.", "etc.", "vs.", "cf."}

type buildOptions struct {
	maxFiles      int
	abbreviations []string
	highlighter   markdown.Highlighter
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithMaxFiles rejects source sets with more than n files. Zero means no
// limit.
func WithMaxFiles(n int) BuildOption {
	return func(o *buildOptions) { o.maxFiles = n }
}

// WithAbbreviations replaces the abbreviations recognized by summary
// extraction.
func WithAbbreviations(words []string) BuildOption {
	return func(o *buildOptions) { o.abbreviations = slices.Clone(words) }
}

// WithHighlighter sets the highlighter used when rendering code blocks in
// documentation.
func WithHighlighter(h markdown.Highlighter) BuildOption {
	return func(o *buildOptions) { o.highlighter = h }
}

// builder holds the growing tables while a module is extracted.
type builder struct {
	set   *archive.SourceSet
	files []File
	decls []Decl
	names []string
	extra []uint32
}

// Build parses every file of set and extracts the declaration graph. The root
// file is processed first so its root declaration is decl 0. Files that fail
// to parse are kept with status FileInvalid and contribute no declarations.
func Build(ctx context.Context, set *archive.SourceSet, opts ...BuildOption) (*Module, error) {
	o := buildOptions{abbreviations: DefaultAbbreviations}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxFiles > 0 && set.Len() > o.maxFiles {
		return nil, fmt.Errorf("%w: %d files, limit %d", ErrTooManyFiles, set.Len(), o.maxFiles)
	}
	rootIdx, ok := set.Lookup(set.Root)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, set.Root)
	}

	b := &builder{
		set:   set,
		files: make([]File, len(set.Records)),
		extra: []uint32{0},
	}
	for i, rec := range set.Records {
		b.files[i] = File{
			Status:   FileSourceAvailable,
			Path:     rec.Path,
			Source:   rec.Data,
			RootDecl: NoDecl,
		}
	}

	order := make([]int, 0, len(b.files))
	order = append(order, rootIdx)
	for i := range b.files {
		if i != rootIdx {
			order = append(order, i)
		}
	}

	log := logging.FromContext(ctx)
	invalid := 0
	for _, i := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !b.process(FileIndex(i)) {
			invalid++
			log.Debug("file failed to parse",
				logging.FieldPath, b.files[i].Path,
				logging.FieldError, b.files[i].Tree.Errors()[0].Error())
		}
	}

	log.Debug("module built",
		logging.FieldRoot, set.Root,
		logging.FieldFiles, len(b.files),
		logging.FieldInvalid, invalid,
		logging.FieldDecls, len(b.decls))

	return &Module{
		root:          FileIndex(rootIdx),
		files:         b.files,
		decls:         b.decls,
		names:         b.names,
		extra:         b.extra,
		abbreviations: o.abbreviations,
		renderer:      markdown.Renderer{Highlighter: o.highlighter},
	}, nil
}

// process parses file f and extracts its declarations. It reports false when
// the file is invalid.
func (b *builder) process(f FileIndex) bool {
	file := &b.files[f]
	if !strings.HasSuffix(file.Path, archive.Extension) {
		return true
	}
	tree := syntax.Parse(file.Source)
	file.Tree = tree
	if len(tree.Errors()) > 0 {
		file.Status = FileInvalid
		return false
	}
	file.Imports = b.imports(file.Path, tree)

	kind := KindNamespace
	if tree.HasFields(tree.Root()) {
		kind = KindContainer
	}
	root := b.addDecl(Decl{File: f, Node: tree.Root(), Kind: kind}, "")
	b.decls[root].Parent = root
	file.RootDecl = root
	b.decls[root].Children = b.members(f, tree, tree.Root(), root)
	file.Status = FileParsed
	return true
}

// imports maps every @import node of tree whose target is in the source set
// to the target file. Targets are relative to the importing file.
func (b *builder) imports(from string, tree *syntax.Tree) map[syntax.NodeIndex]FileIndex {
	var out map[syntax.NodeIndex]FileIndex
	for n := 0; n < tree.NodeCount(); n++ {
		target, ok := tree.IsImport(syntax.NodeIndex(n))
		if !ok {
			continue
		}
		idx, ok := b.set.Lookup(path.Join(path.Dir(from), target))
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[syntax.NodeIndex]FileIndex)
		}
		out[syntax.NodeIndex(n)] = FileIndex(idx)
	}
	return out
}

// members adds a declaration for every public const, var and function member
// of container and returns the name-sorted run of them.
func (b *builder) members(f FileIndex, tree *syntax.Tree, container syntax.NodeIndex, parent DeclIndex) ExtraIndex {
	var children []DeclIndex
	for _, m := range tree.Members(container) {
		if !isPub(tree, m) {
			continue
		}
		switch tree.Tag(m) {
		case syntax.NodeVarDecl:
			vd, _ := tree.FullVarDecl(m)
			name, _ := tree.DeclName(m)
			kind := KindValue
			isContainer := vd.Init != syntax.NoNode && tree.Tag(vd.Init) == syntax.NodeContainerDecl
			if isContainer {
				kind = KindNamespace
				if tree.HasFields(vd.Init) {
					kind = KindContainer
				}
			}
			d := b.addDecl(Decl{File: f, Parent: parent, Node: m, Kind: kind}, name)
			if isContainer {
				b.decls[d].Children = b.members(f, tree, vd.Init, d)
			}
			children = append(children, d)
		case syntax.NodeFnDecl, syntax.NodeFnProto:
			name, _ := tree.DeclName(m)
			children = append(children, b.addDecl(Decl{File: f, Parent: parent, Node: m, Kind: KindFunction}, name))
		}
	}
	return b.run(children)
}

func (b *builder) addDecl(d Decl, name string) DeclIndex {
	b.decls = append(b.decls, d)
	b.names = append(b.names, name)
	return DeclIndex(len(b.decls) - 1)
}

// run sorts children by name in byte order and appends them as a
// length-prefixed run. Equal names keep source order.
func (b *builder) run(children []DeclIndex) ExtraIndex {
	if len(children) == 0 {
		return 0
	}
	slices.SortStableFunc(children, func(x, y DeclIndex) int {
		return compareNames(b.names[x], b.names[y])
	})
	off := ExtraIndex(len(b.extra))
	b.extra = append(b.extra, uint32(len(children)))
	for _, c := range children {
		b.extra = append(b.extra, uint32(c))
	}
	return off
}

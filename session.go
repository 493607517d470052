package autodoc

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jward/autodoc/internal/archive"
	"github.com/jward/autodoc/internal/config"
	"github.com/jward/autodoc/internal/graph"
	"github.com/jward/autodoc/internal/highlight"
	"github.com/jward/autodoc/internal/logging"
	"github.com/jward/autodoc/internal/markdown"
)

// Session owns a registry of built modules and the scratch buffer that
// DeclChildren results live in. A Session is not safe for concurrent use.
type Session struct {
	modules map[ModuleID]*graph.Module
	roots   map[ModuleID]string
	next    ModuleID
	scratch []Child

	maxArchiveBytes int64
	maxFiles        int
	abbreviations   []string
	highlighter     markdown.Highlighter
}

// Option configures a Session.
type Option func(*Session)

// WithLimits sets the archive size and file count budgets. Exceeding either
// fails CreateModule with ErrOutOfMemory. Zero disables a limit.
func WithLimits(maxArchiveBytes int64, maxFiles int) Option {
	return func(s *Session) {
		s.maxArchiveBytes = maxArchiveBytes
		s.maxFiles = maxFiles
	}
}

// WithAbbreviations sets the words whose trailing period does not end a
// summary sentence.
func WithAbbreviations(words []string) Option {
	return func(s *Session) {
		s.abbreviations = slices.Clone(words)
	}
}

// WithHighlighter sets the code block highlighter used in rendered docs.
func WithHighlighter(h markdown.Highlighter) Option {
	return func(s *Session) {
		s.highlighter = h
	}
}

// WithConfig applies the limits and documentation settings of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Session) {
		s.maxArchiveBytes = cfg.Limits.MaxArchiveBytes
		s.maxFiles = cfg.Limits.MaxFiles
		s.abbreviations = slices.Clone(cfg.Docs.Abbreviations)
		s.highlighter = nil
		if cfg.Docs.Highlight {
			s.highlighter = highlight.New(highlight.WithDetection(cfg.Docs.DetectLanguage))
		}
	}
}

// NewSession creates an empty Session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		modules:       make(map[ModuleID]*graph.Module),
		roots:         make(map[ModuleID]string),
		next:          1,
		abbreviations: graph.DefaultAbbreviations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateModule reads an archive, builds the declaration graph rooted at
// rootPath and registers it. Nothing is registered on error.
func (s *Session) CreateModule(ctx context.Context, rootPath string, data []byte) (ModuleID, error) {
	if s.maxArchiveBytes > 0 && int64(len(data)) > s.maxArchiveBytes {
		return 0, fmt.Errorf("%w: archive is %d bytes, limit %d", ErrOutOfMemory, len(data), s.maxArchiveBytes)
	}
	set, err := archive.Read(ctx, data, rootPath)
	switch {
	case errors.Is(err, archive.ErrNotFound):
		return 0, fmt.Errorf("%w: %s", ErrInvalidRootPath, rootPath)
	case errors.Is(err, archive.ErrInvalidArchive):
		return 0, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	case err != nil:
		return 0, fmt.Errorf("autodoc: create module: %w", err)
	}
	return s.register(ctx, set)
}

// CreateModuleFromSet builds and registers a module from an already
// assembled source set.
func (s *Session) CreateModuleFromSet(ctx context.Context, set *archive.SourceSet) (ModuleID, error) {
	if s.maxArchiveBytes > 0 && int64(set.Size()) > s.maxArchiveBytes {
		return 0, fmt.Errorf("%w: sources are %d bytes, limit %d", ErrOutOfMemory, set.Size(), s.maxArchiveBytes)
	}
	return s.register(ctx, set)
}

func (s *Session) register(ctx context.Context, set *archive.SourceSet) (ModuleID, error) {
	m, err := graph.Build(ctx, set,
		graph.WithMaxFiles(s.maxFiles),
		graph.WithAbbreviations(s.abbreviations),
		graph.WithHighlighter(s.highlighter),
	)
	switch {
	case errors.Is(err, graph.ErrTooManyFiles):
		return 0, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	case errors.Is(err, graph.ErrRootNotFound):
		return 0, fmt.Errorf("%w: %s", ErrInvalidRootPath, set.Root)
	case err != nil:
		return 0, fmt.Errorf("autodoc: create module: %w", err)
	}

	id := s.next
	s.next++
	s.modules[id] = m
	s.roots[id] = set.Root
	logging.FromContext(ctx).Debug("module registered",
		logging.FieldModule, id,
		logging.FieldRoot, set.Root,
		logging.FieldFiles, m.FileCount(),
		logging.FieldDecls, m.DeclCount())
	return id, nil
}

// CloseModule releases a module. Its handles become invalid.
func (s *Session) CloseModule(m ModuleID) error {
	if _, ok := s.modules[m]; !ok {
		return fmt.Errorf("%w: module %d", ErrInvalidHandle, m)
	}
	delete(s.modules, m)
	delete(s.roots, m)
	return nil
}

// Modules returns the IDs of all registered modules in creation order.
func (s *Session) Modules() []ModuleID {
	ids := make([]ModuleID, 0, len(s.modules))
	for id := range s.modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Graph returns the built graph of module m.
func (s *Session) Graph(m ModuleID) (*graph.Module, error) {
	g, ok := s.modules[m]
	if !ok {
		return nil, fmt.Errorf("%w: module %d", ErrInvalidHandle, m)
	}
	return g, nil
}

// Root returns the root path module m was created with.
func (s *Session) Root(m ModuleID) (string, error) {
	if _, err := s.Graph(m); err != nil {
		return "", err
	}
	return s.roots[m], nil
}

// RootFile returns the root file of module m.
func (s *Session) RootFile(m ModuleID) (File, error) {
	g, err := s.Graph(m)
	if err != nil {
		return File{}, err
	}
	return File{Module: m, Index: g.RootFile()}, nil
}

// RootDecl returns the root declaration of file f. Files that failed to
// parse have none and report ErrInvalidFile.
func (s *Session) RootDecl(m ModuleID, f File) (Decl, error) {
	g, err := s.file(m, f)
	if err != nil {
		return Decl{}, err
	}
	d, ok := g.RootDecl(f.Index)
	if !ok {
		return Decl{}, fmt.Errorf("%w: %s has no declarations", ErrInvalidFile, g.File(f.Index).Path)
	}
	return Decl{Module: m, Index: d}, nil
}

// FileSource returns the bytes of file f.
func (s *Session) FileSource(m ModuleID, f File) ([]byte, error) {
	g, err := s.file(m, f)
	if err != nil {
		return nil, err
	}
	return g.Source(f.Index), nil
}

// FilePath returns the archive path of file f.
func (s *Session) FilePath(m ModuleID, f File) (string, error) {
	g, err := s.file(m, f)
	if err != nil {
		return "", err
	}
	return g.File(f.Index).Path, nil
}

// DeclChildren describes the children of d in name order. The result
// aliases the session's scratch buffer and is valid until the next call.
func (s *Session) DeclChildren(m ModuleID, d Decl) ([]Child, error) {
	g, err := s.decl(m, d)
	if err != nil {
		return nil, err
	}
	s.scratch = s.scratch[:0]
	for _, c := range g.Children(d.Index) {
		s.scratch = append(s.scratch, Child{
			Decl:    Decl{Module: m, Index: c},
			Kind:    g.Category(c),
			Name:    g.Name(c),
			Summary: g.DocText(c, true),
		})
	}
	return s.scratch, nil
}

// DeclChild returns the child of d named name, or NoDecl.
func (s *Session) DeclChild(m ModuleID, d Decl, name string) (Decl, error) {
	g, err := s.decl(m, d)
	if err != nil {
		return Decl{}, err
	}
	c, ok := g.Lookup(d.Index, name)
	if !ok {
		return NoDecl, nil
	}
	return Decl{Module: m, Index: c}, nil
}

// DeclDoc returns the rendered HTML documentation of d.
func (s *Session) DeclDoc(m ModuleID, d Decl) (string, error) {
	g, err := s.decl(m, d)
	if err != nil {
		return "", err
	}
	return g.DocText(d.Index, false), nil
}

// ResolveAlias follows d through value aliases to the declaration it names.
func (s *Session) ResolveAlias(m ModuleID, d Decl) (Decl, error) {
	g, err := s.decl(m, d)
	if err != nil {
		return Decl{}, err
	}
	return Decl{Module: m, Index: g.ResolveAliasChain(d.Index)}, nil
}

// DeclInfo describes d.
func (s *Session) DeclInfo(m ModuleID, d Decl) (DeclInfo, error) {
	g, err := s.decl(m, d)
	if err != nil {
		return DeclInfo{}, err
	}
	return DeclInfo{
		Decl:     d,
		File:     File{Module: m, Index: g.FileOf(d.Index)},
		Parent:   Decl{Module: m, Index: g.Parent(d.Index)},
		Name:     g.Name(d.Index),
		Path:     g.Path(d.Index),
		Kind:     g.Kind(d.Index),
		Category: g.Category(d.Index),
		Public:   g.IsPublic(d.Index),
	}, nil
}

func (s *Session) file(m ModuleID, f File) (*graph.Module, error) {
	g, err := s.Graph(m)
	if err != nil {
		return nil, err
	}
	if f.Module != m {
		return nil, fmt.Errorf("%w: file of module %d used with module %d", ErrInvalidHandle, f.Module, m)
	}
	if !g.HasFile(f.Index) {
		return nil, fmt.Errorf("%w: file %d", ErrInvalidFile, f.Index)
	}
	return g, nil
}

func (s *Session) decl(m ModuleID, d Decl) (*graph.Module, error) {
	g, err := s.Graph(m)
	if err != nil {
		return nil, err
	}
	if d.Module != m || !g.HasDecl(d.Index) {
		return nil, fmt.Errorf("%w: decl %d of module %d used with module %d", ErrInvalidHandle, d.Index, d.Module, m)
	}
	return g, nil
}

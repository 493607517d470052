package store

import (
	"fmt"

	"github.com/jward/autodoc/internal/graph"
)

// Snapshot is the persisted declaration tree of one module, read back with
// its extra buffer so child runs are traversed exactly as in the live
// module.
type Snapshot struct {
	Module *Module
	decls  []snapshotDecl
	extra  []uint32
}

type snapshotDecl struct {
	parent   graph.DeclIndex
	children graph.ExtraIndex
	kind     graph.Kind
	name     string
}

// LoadSnapshot reads the decl table and extra buffer of a module.
func (s *Store) LoadSnapshot(moduleID int64) (*Snapshot, error) {
	mod, err := s.ModuleByID(moduleID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if mod == nil {
		return nil, fmt.Errorf("load snapshot: module %d: %w", moduleID, ErrNotFound)
	}

	var blob []byte
	if err := s.db.QueryRow("SELECT words FROM extra WHERE module_id = ?", moduleID).Scan(&blob); err != nil {
		return nil, fmt.Errorf("load snapshot: extra: %w", err)
	}
	extra, err := decodeWords(blob)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	rows, err := s.db.Query(
		"SELECT idx, parent, children, kind, name FROM decls WHERE module_id = ? ORDER BY idx", moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: decls: %w", err)
	}
	defer rows.Close()
	snap := &Snapshot{Module: mod, extra: extra, decls: make([]snapshotDecl, 0, mod.DeclCount)}
	for rows.Next() {
		var (
			idx, parent, children int64
			kind, name            string
		)
		if err := rows.Scan(&idx, &parent, &children, &kind, &name); err != nil {
			return nil, fmt.Errorf("load snapshot: scan decl: %w", err)
		}
		if idx != int64(len(snap.decls)) {
			return nil, fmt.Errorf("load snapshot: decl %d out of sequence", idx)
		}
		k, ok := graph.ParseKind(kind)
		if !ok {
			return nil, fmt.Errorf("load snapshot: decl %d: unknown kind %q", idx, kind)
		}
		if children < 0 || (children != 0 && children >= int64(len(extra))) {
			return nil, fmt.Errorf("load snapshot: decl %d: children offset %d out of range", idx, children)
		}
		snap.decls = append(snap.decls, snapshotDecl{
			parent:   graph.DeclIndex(parent),
			children: graph.ExtraIndex(children),
			kind:     k,
			name:     name,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if err := snap.checkRuns(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// Len returns the number of declarations.
func (s *Snapshot) Len() int { return len(s.decls) }

// Name returns the name of d.
func (s *Snapshot) Name(d graph.DeclIndex) string { return s.decls[d].name }

// Kind returns the kind of d.
func (s *Snapshot) Kind(d graph.DeclIndex) graph.Kind { return s.decls[d].kind }

// Parent returns the parent of d.
func (s *Snapshot) Parent(d graph.DeclIndex) graph.DeclIndex { return s.decls[d].parent }

// Children returns the children of d in name order.
func (s *Snapshot) Children(d graph.DeclIndex) []graph.DeclIndex {
	return graph.RunAt(s.extra, s.decls[d].children)
}

// Lookup returns the child of d named name. The empty name never matches.
func (s *Snapshot) Lookup(d graph.DeclIndex, name string) (graph.DeclIndex, bool) {
	return graph.LookupRun(s.Children(d), s.Name, name)
}

// checkRuns verifies that every children run fits in the extra buffer and
// names only loaded decls.
func (s *Snapshot) checkRuns() error {
	for i, d := range s.decls {
		if d.children == 0 {
			continue
		}
		n := int64(s.extra[d.children])
		if int64(d.children)+1+n > int64(len(s.extra)) {
			return fmt.Errorf("decl %d: children run of %d at %d overruns %d words", i, n, d.children, len(s.extra))
		}
		for _, c := range graph.RunAt(s.extra, d.children) {
			if int(c) >= len(s.decls) {
				return fmt.Errorf("decl %d: child %d out of range", i, c)
			}
		}
	}
	return nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jward/autodoc/internal/graph"
)

// SaveModule inserts a built module within a single transaction and returns
// the new module ID. Each declaration's summary and documentation are
// rendered once here so queries never need the source tree.
//
// Insert order respects FK dependencies:
//  1. Module row
//  2. Files
//  3. Decls
//  4. Extra buffer
func (s *Store) SaveModule(root string, m *graph.Module) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("save module: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO modules (root, hash, root_file, file_count, decl_count, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		root, ComputeModuleHash(root, m), int(m.RootFile()), m.FileCount(), m.DeclCount(),
		time.Now().UTC().Truncate(time.Second),
	)
	if err != nil {
		return 0, fmt.Errorf("save module: insert module: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save module: last insert id: %w", err)
	}

	for f := graph.FileIndex(0); int(f) < m.FileCount(); f++ {
		if err := insertFileTx(tx, id, m, f); err != nil {
			return 0, fmt.Errorf("save module: file %q: %w", m.File(f).Path, err)
		}
	}

	stmt, err := tx.Prepare(
		`INSERT INTO decls (module_id, idx, file_idx, parent, node, kind, category, children,
			name, path, public, summary, doc)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("save module: prepare decls: %w", err)
	}
	defer stmt.Close()
	for d := graph.DeclIndex(0); int(d) < m.DeclCount(); d++ {
		decl := m.Decl(d)
		_, err := stmt.Exec(
			id, int64(d), int(decl.File), int64(decl.Parent), int64(decl.Node),
			decl.Kind.String(), m.Category(d).String(), int64(decl.Children),
			m.Name(d), m.Path(d), m.IsPublic(d), m.DocText(d, true), m.DocText(d, false),
		)
		if err != nil {
			return 0, fmt.Errorf("save module: decl %d: %w", d, err)
		}
	}

	if _, err := tx.Exec("INSERT INTO extra (module_id, words) VALUES (?, ?)", id, encodeWords(m.Extra())); err != nil {
		return 0, fmt.Errorf("save module: extra: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save module: commit: %w", err)
	}
	return id, nil
}

func insertFileTx(tx *sql.Tx, moduleID int64, m *graph.Module, f graph.FileIndex) error {
	file := m.File(f)
	var rootDecl *int64
	if d, ok := m.RootDecl(f); ok {
		v := int64(d)
		rootDecl = &v
	}
	source := file.Source
	if source == nil {
		source = []byte{}
	}
	_, err := tx.Exec(
		"INSERT INTO files (module_id, idx, path, status, root_decl, source) VALUES (?, ?, ?, ?, ?, ?)",
		moduleID, int(f), file.Path, file.Status.String(), rootDecl, source,
	)
	return err
}

// DeleteModule removes a module and, through cascading foreign keys, its
// files, decls and extra buffer.
func (s *Store) DeleteModule(id int64) error {
	res, err := s.db.Exec("DELETE FROM modules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete module %d: %w", id, ErrNotFound)
	}
	return nil
}

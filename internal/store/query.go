package store

import (
	"database/sql"
	"fmt"
)

// --- Module operations ---

const moduleCols = "id, root, hash, root_file, file_count, decl_count, indexed_at"

func scanModule(scanner interface{ Scan(...any) error }) (*Module, error) {
	m := &Module{}
	if err := scanner.Scan(&m.ID, &m.Root, &m.Hash, &m.RootFile, &m.FileCount, &m.DeclCount, &m.IndexedAt); err != nil {
		return nil, err
	}
	return m, nil
}

// ModuleByID returns the module with the given ID, or nil if absent.
func (s *Store) ModuleByID(id int64) (*Module, error) {
	m, err := scanModule(s.db.QueryRow("SELECT "+moduleCols+" FROM modules WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("module by id: %w", err)
	}
	return m, nil
}

// ModuleByHash returns the most recently indexed module with the given
// hash, or nil if none.
func (s *Store) ModuleByHash(hash string) (*Module, error) {
	m, err := scanModule(s.db.QueryRow(
		"SELECT "+moduleCols+" FROM modules WHERE hash = ? ORDER BY id DESC LIMIT 1", hash,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("module by hash: %w", err)
	}
	return m, nil
}

// ListModules returns every stored module ordered by ID.
func (s *Store) ListModules() ([]*Module, error) {
	rows, err := s.db.Query("SELECT " + moduleCols + " FROM modules ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()
	var modules []*Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// --- File operations ---

const fileCols = "module_id, idx, path, status, root_decl"

// FileRows returns the files of a module in index order.
func (s *Store) FileRows(moduleID int64) ([]*File, error) {
	rows, err := s.db.Query("SELECT "+fileCols+" FROM files WHERE module_id = ? ORDER BY idx", moduleID)
	if err != nil {
		return nil, fmt.Errorf("file rows: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ModuleID, &f.Index, &f.Path, &f.Status, &f.RootDecl); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// FileByPath returns the file of a module at path, or nil if absent.
func (s *Store) FileByPath(moduleID int64, path string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT "+fileCols+" FROM files WHERE module_id = ? AND path = ?", moduleID, path,
	).Scan(&f.ModuleID, &f.Index, &f.Path, &f.Status, &f.RootDecl)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// FileSource returns the stored bytes of file idx. The second result is
// false when the file does not exist.
func (s *Store) FileSource(moduleID int64, idx int) ([]byte, bool, error) {
	var src []byte
	err := s.db.QueryRow("SELECT source FROM files WHERE module_id = ? AND idx = ?", moduleID, idx).Scan(&src)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("file source: %w", err)
	}
	return src, true, nil
}

// --- Decl operations ---

const declCols = `module_id, idx, file_idx, parent, node, kind, category, children,
	name, path, public, summary, doc`

func scanDecl(scanner interface{ Scan(...any) error }) (*Decl, error) {
	d := &Decl{}
	err := scanner.Scan(
		&d.ModuleID, &d.Index, &d.File, &d.Parent, &d.Node, &d.Kind, &d.Category, &d.Children,
		&d.Name, &d.Path, &d.Public, &d.Summary, &d.Doc,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DeclRow returns one declaration, or nil if absent.
func (s *Store) DeclRow(moduleID, idx int64) (*Decl, error) {
	d, err := scanDecl(s.db.QueryRow("SELECT "+declCols+" FROM decls WHERE module_id = ? AND idx = ?", moduleID, idx))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decl row: %w", err)
	}
	return d, nil
}

// ChildRows returns the children of a declaration in lookup order: names
// compared bytewise, ties in declaration order.
func (s *Store) ChildRows(moduleID, idx int64) ([]*Decl, error) {
	rows, err := s.db.Query(
		"SELECT "+declCols+` FROM decls
		 WHERE module_id = ? AND parent = ? AND idx != parent
		 ORDER BY name COLLATE BINARY, idx`,
		moduleID, idx,
	)
	if err != nil {
		return nil, fmt.Errorf("child rows: %w", err)
	}
	defer rows.Close()
	var decls []*Decl
	for rows.Next() {
		d, err := scanDecl(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decl: %w", err)
		}
		decls = append(decls, d)
	}
	return decls, rows.Err()
}

// ChildRow returns the child of a declaration named name, or nil if absent.
func (s *Store) ChildRow(moduleID, idx int64, name string) (*Decl, error) {
	if name == "" {
		return nil, nil
	}
	d, err := scanDecl(s.db.QueryRow(
		"SELECT "+declCols+` FROM decls
		 WHERE module_id = ? AND parent = ? AND idx != parent AND name = ?
		 ORDER BY idx LIMIT 1`,
		moduleID, idx, name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("child row: %w", err)
	}
	return d, nil
}

package store

import "time"

type Module struct {
	ID        int64
	Root      string
	Hash      string
	RootFile  int
	FileCount int
	DeclCount int
	IndexedAt time.Time
}

type File struct {
	ModuleID int64
	Index    int
	Path     string
	Status   string
	RootDecl *int64
}

// Decl is one persisted declaration. Summary and Doc hold rendered HTML.
type Decl struct {
	ModuleID int64
	Index    int64
	File     int
	Parent   int64
	Node     int64
	Kind     string
	Category string
	Children int64
	Name     string
	Path     string
	Public   bool
	Summary  string
	Doc      string
}

// Package archive turns archive bytes or a directory tree into a SourceSet:
// the ordered source files of one module plus the path of its root file.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/mholt/archives"

	"github.com/jward/autodoc/internal/logging"
)

// Extension is the suffix of source files kept in a SourceSet.
const Extension = ".zig"

var (
	// ErrInvalidArchive is returned when the bytes are not a readable archive.
	ErrInvalidArchive = errors.New("archive: invalid archive")
	// ErrNotFound is returned when the root path is absent from the archive.
	ErrNotFound = errors.New("archive: root path not found")
)

// Record is one source file.
type Record struct {
	Path string
	Data []byte
}

// SourceSet is the ordered set of source files of a module.
type SourceSet struct {
	Root    string
	Records []Record
	index   map[string]int
}

// New builds a SourceSet from records in order. Paths are cleaned, files
// without the source extension and duplicate paths are dropped. Returns
// ErrNotFound if root is not among the kept records.
func New(root string, records []Record) (*SourceSet, error) {
	s := &SourceSet{Root: Clean(root), index: make(map[string]int)}
	for _, r := range records {
		s.add(r.Path, r.Data)
	}
	if _, ok := s.index[s.Root]; !ok || s.Root == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, root)
	}
	return s, nil
}

func (s *SourceSet) add(name string, data []byte) {
	p := Clean(name)
	if p == "" || !strings.HasSuffix(p, Extension) {
		return
	}
	if _, dup := s.index[p]; dup {
		return
	}
	s.index[p] = len(s.Records)
	s.Records = append(s.Records, Record{Path: p, Data: data})
}

// Lookup returns the position of path in Records.
func (s *SourceSet) Lookup(p string) (int, bool) {
	i, ok := s.index[p]
	return i, ok
}

// Len returns the number of records.
func (s *SourceSet) Len() int { return len(s.Records) }

// Size returns the total number of source bytes.
func (s *SourceSet) Size() int {
	n := 0
	for _, r := range s.Records {
		n += len(r.Data)
	}
	return n
}

// Clean normalizes an archive member name to a slash-separated relative
// path. Names that escape the archive root clean to "".
func Clean(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	p := path.Clean(strings.TrimLeft(name, "/"))
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return ""
	}
	return p
}

// Read identifies the archive format of data, extracts its source files in
// archive order and returns them as a SourceSet rooted at root.
func Read(ctx context.Context, data []byte, root string) (*SourceSet, error) {
	format, stream, err := archives.Identify(ctx, "", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	ex, ok := format.(archives.Extractor)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an archive format", ErrInvalidArchive, format.Extension())
	}

	var records []Record
	err = ex.Extract(ctx, stream, func(ctx context.Context, info archives.FileInfo) error {
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		if !strings.HasSuffix(info.NameInArchive, Extension) {
			return nil
		}
		rc, err := info.Open()
		if err != nil {
			return fmt.Errorf("opening %s: %w", info.NameInArchive, err)
		}
		defer rc.Close()
		body, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("reading %s: %w", info.NameInArchive, err)
		}
		records = append(records, Record{Path: info.NameInArchive, Data: body})
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	set, err := New(root, records)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("archive read",
		logging.FieldRoot, set.Root,
		logging.FieldFiles, set.Len(),
		logging.FieldBytes, set.Size())
	return set, nil
}

// FromFS walks fsys in lexical order and returns its source files as a
// SourceSet rooted at root.
func FromFS(fsys fs.FS, root string) (*SourceSet, error) {
	var records []Record
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(p, Extension) {
			return nil
		}
		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		records = append(records, Record{Path: p, Data: body})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("archive: walking source tree: %w", err)
	}
	return New(root, records)
}

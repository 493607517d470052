package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/mholt/archives"
)

// Pack writes the records of s as an uncompressed tar archive that Read
// accepts.
func Pack(ctx context.Context, w io.Writer, s *SourceSet) error {
	files := make([]archives.FileInfo, 0, len(s.Records))
	for _, r := range s.Records {
		info := memInfo{name: path.Base(r.Path), size: int64(len(r.Data))}
		data := r.Data
		files = append(files, archives.FileInfo{
			FileInfo:      info,
			NameInArchive: r.Path,
			Open: func() (fs.File, error) {
				return &memFile{Reader: bytes.NewReader(data), info: info}, nil
			},
		})
	}
	if err := (archives.Tar{}).Archive(ctx, w, files); err != nil {
		return fmt.Errorf("archive: packing: %w", err)
	}
	return nil
}

type memInfo struct {
	name string
	size int64
}

func (m memInfo) Name() string       { return m.name }
func (m memInfo) Size() int64        { return m.size }
func (m memInfo) Mode() fs.FileMode  { return 0o644 }
func (m memInfo) ModTime() time.Time { return time.Unix(0, 0) }
func (m memInfo) IsDir() bool        { return false }
func (m memInfo) Sys() any           { return nil }

type memFile struct {
	*bytes.Reader
	info memInfo
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *memFile) Close() error               { return nil }

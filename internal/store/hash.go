package store

import (
	"crypto/sha256"
	"fmt"

	"github.com/jward/autodoc/internal/graph"
)

// ComputeModuleHash computes a deterministic hash over a module's root path
// and the path and bytes of every file. Two builds of the same archive hash
// equally regardless of when they were indexed.
func ComputeModuleHash(root string, m *graph.Module) string {
	h := sha256.New()
	fmt.Fprintf(h, "root:%s\n", root)
	for f := graph.FileIndex(0); int(f) < m.FileCount(); f++ {
		file := m.File(f)
		fmt.Fprintf(h, "file:%s:%d\n", file.Path, len(file.Source))
		h.Write(file.Source)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/autodoc/internal/archive"
	"github.com/jward/autodoc/internal/graph"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

const testRoot = `//! Root docs.

const util = @import("util.zig");

/// The answer. Always 42.
pub const answer = 42;
pub const b = 1;
pub const B = 2;
pub const Shape = struct {
    w: u32,
    /// Area of the shape.
    pub fn area(self: Shape) u32 { return self.w; }
};
pub const Helper = util.Helper;
`

const testUtil = `pub const Helper = struct { pub const x = 1; };`

func buildTestModule(t *testing.T) *graph.Module {
	t.Helper()
	set, err := archive.New("main.zig", []archive.Record{
		{Path: "main.zig", Data: []byte(testRoot)},
		{Path: "util.zig", Data: []byte(testUtil)},
		{Path: "broken.zig", Data: []byte("pub const = ;")},
	})
	require.NoError(t, err)
	m, err := graph.Build(context.Background(), set)
	require.NoError(t, err)
	return m
}

func saveTestModule(t *testing.T, s *Store) (int64, *graph.Module) {
	t.Helper()
	m := buildTestModule(t)
	id, err := s.SaveModule("main.zig", m)
	require.NoError(t, err)
	require.Positive(t, id)
	return id, m
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"modules", "files", "decls", "extra"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

// =============================================================================
// Module operations
// =============================================================================

func TestSaveModule_ModuleRow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id, m := saveTestModule(t, s)

	got, err := s.ModuleByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "main.zig", got.Root)
	assert.Equal(t, m.FileCount(), got.FileCount)
	assert.Equal(t, m.DeclCount(), got.DeclCount)
	assert.Equal(t, int(m.RootFile()), got.RootFile)
	assert.Equal(t, ComputeModuleHash("main.zig", m), got.Hash)
	assert.False(t, got.IndexedAt.IsZero())

	byHash, err := s.ModuleByHash(got.Hash)
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, id, byHash.ID)

	missing, err := s.ModuleByID(id + 100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestComputeModuleHash_Deterministic(t *testing.T) {
	t.Parallel()
	a := buildTestModule(t)
	b := buildTestModule(t)
	assert.Equal(t, ComputeModuleHash("main.zig", a), ComputeModuleHash("main.zig", b))
	assert.NotEqual(t, ComputeModuleHash("main.zig", a), ComputeModuleHash("util.zig", a))
}

func TestListAndDeleteModules(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	first, _ := saveTestModule(t, s)
	second, _ := saveTestModule(t, s)

	modules, err := s.ListModules()
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, first, modules[0].ID)
	assert.Equal(t, second, modules[1].ID)

	require.NoError(t, s.DeleteModule(first))
	assert.ErrorIs(t, s.DeleteModule(first), ErrNotFound)

	modules, err = s.ListModules()
	require.NoError(t, err)
	require.Len(t, modules, 1)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM decls WHERE module_id = ?", first).Scan(&n))
	assert.Zero(t, n, "decls cascade with their module")
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM files WHERE module_id = ?", first).Scan(&n))
	assert.Zero(t, n, "files cascade with their module")
}

// =============================================================================
// File operations
// =============================================================================

func TestFileRows(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id, m := saveTestModule(t, s)

	files, err := s.FileRows(id)
	require.NoError(t, err)
	require.Len(t, files, m.FileCount())

	broken, err := s.FileByPath(id, "broken.zig")
	require.NoError(t, err)
	require.NotNil(t, broken)
	assert.Equal(t, "invalid", broken.Status)
	assert.Nil(t, broken.RootDecl)

	main, err := s.FileByPath(id, "main.zig")
	require.NoError(t, err)
	require.NotNil(t, main)
	assert.Equal(t, "parsed", main.Status)
	require.NotNil(t, main.RootDecl)
	assert.Equal(t, int64(0), *main.RootDecl)

	missing, err := s.FileByPath(id, "nope.zig")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFileSource(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id, _ := saveTestModule(t, s)

	broken, err := s.FileByPath(id, "broken.zig")
	require.NoError(t, err)
	src, ok, err := s.FileSource(id, broken.Index)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pub const = ;", string(src), "invalid files keep their source")

	_, ok, err = s.FileSource(id, 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// Decl operations
// =============================================================================

func TestDeclRow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id, m := saveTestModule(t, s)

	root, err := s.DeclRow(id, 0)
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, int64(0), root.Parent)
	assert.True(t, root.Public)
	assert.Equal(t, "Root docs.", root.Summary)
	assert.Equal(t, "<p>Root docs.</p>\n", root.Doc)

	answer, ok := m.Lookup(0, "answer")
	require.True(t, ok)
	row, err := s.DeclRow(id, int64(answer))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "answer", row.Name)
	assert.Equal(t, "answer", row.Path)
	assert.Equal(t, "value", row.Kind)
	assert.Equal(t, "The answer.", row.Summary)
	assert.Equal(t, "<p>The answer. Always 42.</p>\n", row.Doc)

	helper, ok := m.Lookup(0, "Helper")
	require.True(t, ok)
	row, err = s.DeclRow(id, int64(helper))
	require.NoError(t, err)
	assert.Equal(t, "value", row.Kind)
	assert.Equal(t, "namespace", row.Category)

	missing, err := s.DeclRow(id, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestChildRows_MatchLiveOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id, m := saveTestModule(t, s)

	rows, err := s.ChildRows(id, 0)
	require.NoError(t, err)
	var got []string
	for _, r := range rows {
		got = append(got, r.Name)
	}
	var want []string
	for _, c := range m.Children(0) {
		want = append(want, m.Name(c))
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"B", "Helper", "Shape", "answer", "b"}, got)

	shape, err := s.ChildRow(id, 0, "Shape")
	require.NoError(t, err)
	require.NotNil(t, shape)
	assert.Equal(t, "container", shape.Kind)

	area, err := s.ChildRow(id, shape.Index, "area")
	require.NoError(t, err)
	require.NotNil(t, area)
	assert.Equal(t, "Shape.area", area.Path)
	assert.Equal(t, "Area of the shape.", area.Summary)

	none, err := s.ChildRow(id, 0, "")
	require.NoError(t, err)
	assert.Nil(t, none)
}

// =============================================================================
// Snapshot
// =============================================================================

func TestLoadSnapshot_MatchesLiveModule(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id, m := saveTestModule(t, s)

	snap, err := s.LoadSnapshot(id)
	require.NoError(t, err)
	require.Equal(t, m.DeclCount(), snap.Len())
	assert.Equal(t, id, snap.Module.ID)

	for d := graph.DeclIndex(0); int(d) < m.DeclCount(); d++ {
		assert.Equal(t, m.Children(d), snap.Children(d), "children of %d", d)
		assert.Equal(t, m.Name(d), snap.Name(d))
		assert.Equal(t, m.Kind(d), snap.Kind(d))
		assert.Equal(t, m.Parent(d), snap.Parent(d))
		for _, c := range m.Children(d) {
			got, ok := snap.Lookup(d, m.Name(c))
			require.True(t, ok)
			assert.Equal(t, c, got)
		}
	}

	_, ok := snap.Lookup(0, "")
	assert.False(t, ok)
	_, ok = snap.Lookup(0, "zzz")
	assert.False(t, ok)
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.LoadSnapshot(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadSnapshot_CorruptRuns(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		corrupt func(words []uint32, off int64) []uint32
		wantErr string
	}{
		{"truncated run", func(words []uint32, off int64) []uint32 {
			return words[:off+1]
		}, "overruns"},
		{"child out of range", func(words []uint32, off int64) []uint32 {
			words[off+1] = 9999
			return words
		}, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestStore(t)
			id, _ := saveTestModule(t, s)

			var off int64
			require.NoError(t, s.db.QueryRow("SELECT MAX(children) FROM decls WHERE module_id = ?", id).Scan(&off))
			require.NotZero(t, off)
			var blob []byte
			require.NoError(t, s.db.QueryRow("SELECT words FROM extra WHERE module_id = ?", id).Scan(&blob))
			words, err := decodeWords(blob)
			require.NoError(t, err)

			_, err = s.db.Exec("UPDATE extra SET words = ? WHERE module_id = ?", encodeWords(tt.corrupt(words, off)), id)
			require.NoError(t, err)

			_, err = s.LoadSnapshot(id)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWords_RoundTrip(t *testing.T) {
	t.Parallel()
	words := []uint32{0, 2, 1, 0xdeadbeef}
	got, err := decodeWords(encodeWords(words))
	require.NoError(t, err)
	assert.Equal(t, words, got)

	_, err = decodeWords([]byte{1, 2, 3})
	assert.Error(t, err)
}

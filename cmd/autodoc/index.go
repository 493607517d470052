package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/autodoc"
	"github.com/jward/autodoc/internal/archive"
	"github.com/jward/autodoc/internal/logging"
	"github.com/jward/autodoc/internal/store"
)

var flagRoot string

var indexCmd = &cobra.Command{
	Use:   "index <archive|dir>",
	Short: "Build a module and save it to the index",
	Long:  "Reads a source archive or directory, builds the declaration graph rooted at --root, renders every doc comment and writes the result to the SQLite database. Modules already indexed with identical sources are not written again.",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&flagRoot, "root", "", "root source file inside the archive")
	_ = indexCmd.MarkFlagRequired("root")
}

// buildModule creates a module in s from an archive file or a directory.
func buildModule(ctx context.Context, s *autodoc.Session, input, root string) (autodoc.ModuleID, error) {
	info, err := os.Stat(input)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", autodoc.ErrInvalidArchive, err)
	}
	if !info.IsDir() {
		data, err := os.ReadFile(input)
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", input, err)
		}
		return s.CreateModule(ctx, root, data)
	}

	set, err := archive.FromFS(os.DirFS(input), root)
	if errors.Is(err, archive.ErrNotFound) {
		return 0, fmt.Errorf("%w: %s", autodoc.ErrInvalidRootPath, root)
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", input, err)
	}
	return s.CreateModuleFromSet(ctx, set)
}

// openStore opens the database at the configured path, creating it when
// create is set.
func openStore(create bool) (*store.Store, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if create {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, "", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
		}
	} else if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, "", fmt.Errorf("database not found: %s (run 'autodoc index' first)", dbPath)
	}

	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, "", err
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, "", err
	}
	return st, dbPath, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := commandContext(cmd)

	s := newSession()
	m, err := buildModule(ctx, s, args[0], flagRoot)
	if err != nil {
		return outputError(cmd, "index", err)
	}
	g, err := s.Graph(m)
	if err != nil {
		return outputError(cmd, "index", err)
	}
	root, err := s.Root(m)
	if err != nil {
		return outputError(cmd, "index", err)
	}

	st, dbPath, err := openStore(true)
	if err != nil {
		return outputError(cmd, "index", err)
	}
	defer st.Close()

	cached := true
	row, err := st.ModuleByHash(store.ComputeModuleHash(root, g))
	if err != nil {
		return outputError(cmd, "index", err)
	}
	if row == nil {
		cached = false
		id, err := st.SaveModule(root, g)
		if err != nil {
			return outputError(cmd, "index", err)
		}
		if row, err = st.ModuleByID(id); err != nil {
			return outputError(cmd, "index", err)
		}
	}

	logging.FromContext(ctx).Info("indexed",
		logging.FieldModule, row.ID,
		logging.FieldRoot, root,
		logging.FieldFiles, row.FileCount,
		logging.FieldDecls, row.DeclCount,
		logging.FieldDB, dbPath,
		logging.FieldDuration, time.Since(start).Round(time.Millisecond))

	result := moduleToCLI(row)
	result.Cached = cached
	return outputResult(cmd, CLIResult{Command: "index", Results: result})
}

func moduleToCLI(m *store.Module) CLIModule {
	return CLIModule{
		ID:        m.ID,
		Root:      m.Root,
		Hash:      m.Hash,
		Files:     m.FileCount,
		Decls:     m.DeclCount,
		IndexedAt: m.IndexedAt.Format(time.RFC3339),
	}
}

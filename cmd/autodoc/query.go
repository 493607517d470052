package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/autodoc"
	"github.com/jward/autodoc/internal/graph"
	"github.com/jward/autodoc/internal/store"
)

var flagModule int64

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the documentation index",
	Long: `Run queries against indexed modules without rebuilding them.

A <decl> argument is either a declaration index or a dotted path from the
module's root declaration, such as "mem.Allocator". "." names the root.`,
}

func init() {
	queryCmd.PersistentFlags().Int64Var(&flagModule, "module", 0, "module ID (default: most recently indexed)")

	queryCmd.AddCommand(modulesCmd)
	queryCmd.AddCommand(childrenCmd)
	queryCmd.AddCommand(childCmd)
	queryCmd.AddCommand(docCmd)
	queryCmd.AddCommand(sourceCmd)
}

// --- Helpers ---

// selectModule returns the module named by --module, or the most recently
// indexed one.
func selectModule(st *store.Store) (*store.Module, error) {
	if flagModule != 0 {
		m, err := st.ModuleByID(flagModule)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("%w: module %d", autodoc.ErrNotFound, flagModule)
		}
		return m, nil
	}
	mods, err := st.ListModules()
	if err != nil {
		return nil, err
	}
	if len(mods) == 0 {
		return nil, fmt.Errorf("%w: no modules indexed", autodoc.ErrNotFound)
	}
	return mods[len(mods)-1], nil
}

// resolveDeclArg converts a <decl> argument to a declaration index. Dotted
// paths are walked through the module's persisted child runs.
func resolveDeclArg(st *store.Store, m *store.Module, arg string) (int64, error) {
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: decl %d", autodoc.ErrInvalidHandle, n)
		}
		return n, nil
	}
	if arg == "." {
		return 0, nil
	}

	snap, err := st.LoadSnapshot(m.ID)
	if err != nil {
		return 0, err
	}
	if snap.Len() == 0 {
		return 0, fmt.Errorf("%w: module %d has no declarations", autodoc.ErrNotFound, m.ID)
	}
	d := graph.DeclIndex(0)
	for _, name := range strings.Split(arg, ".") {
		next, ok := snap.Lookup(d, name)
		if !ok {
			return 0, fmt.Errorf("%w: no declaration %q", autodoc.ErrNotFound, arg)
		}
		d = next
	}
	return int64(d), nil
}

// declRow loads one declaration or reports it as an invalid handle.
func declRow(st *store.Store, moduleID, idx int64) (*store.Decl, error) {
	d, err := st.DeclRow(moduleID, idx)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: decl %d", autodoc.ErrInvalidHandle, idx)
	}
	return d, nil
}

// openQuery opens the store and resolves the selected module.
func openQuery() (*store.Store, *store.Module, error) {
	st, _, err := openStore(false)
	if err != nil {
		return nil, nil, err
	}
	m, err := selectModule(st)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, m, nil
}

func declToCLI(d *store.Decl) CLIDecl {
	return CLIDecl{
		Index:    d.Index,
		Name:     d.Name,
		Path:     d.Path,
		Kind:     d.Kind,
		Category: d.Category,
		Summary:  d.Summary,
	}
}

// --- Commands ---

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List indexed modules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore(false)
		if err != nil {
			return outputError(cmd, "modules", err)
		}
		defer st.Close()
		mods, err := st.ListModules()
		if err != nil {
			return outputError(cmd, "modules", err)
		}
		out := make([]CLIModule, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleToCLI(m))
		}
		return outputResult(cmd, CLIResult{Command: "modules", Results: out})
	},
}

var childrenCmd = &cobra.Command{
	Use:   "children <decl>",
	Short: "List the public children of a declaration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, m, err := openQuery()
		if err != nil {
			return outputError(cmd, "children", err)
		}
		defer st.Close()
		idx, err := resolveDeclArg(st, m, args[0])
		if err != nil {
			return outputError(cmd, "children", err)
		}
		if _, err := declRow(st, m.ID, idx); err != nil {
			return outputError(cmd, "children", err)
		}
		rows, err := st.ChildRows(m.ID, idx)
		if err != nil {
			return outputError(cmd, "children", err)
		}
		out := make([]CLIDecl, 0, len(rows))
		for _, r := range rows {
			out = append(out, declToCLI(r))
		}
		return outputResult(cmd, CLIResult{Command: "children", Results: out})
	},
}

var childCmd = &cobra.Command{
	Use:   "child <decl> <name>",
	Short: "Look up a child of a declaration by name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, m, err := openQuery()
		if err != nil {
			return outputError(cmd, "child", err)
		}
		defer st.Close()
		idx, err := resolveDeclArg(st, m, args[0])
		if err != nil {
			return outputError(cmd, "child", err)
		}
		if _, err := declRow(st, m.ID, idx); err != nil {
			return outputError(cmd, "child", err)
		}
		row, err := st.ChildRow(m.ID, idx, args[1])
		if err != nil {
			return outputError(cmd, "child", err)
		}
		if row == nil {
			return outputError(cmd, "child", fmt.Errorf("%w: no child %q", autodoc.ErrNotFound, args[1]))
		}
		return outputResult(cmd, CLIResult{Command: "child", Results: declToCLI(row)})
	},
}

var docCmd = &cobra.Command{
	Use:   "doc <decl>",
	Short: "Print the rendered documentation of a declaration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, m, err := openQuery()
		if err != nil {
			return outputError(cmd, "doc", err)
		}
		defer st.Close()
		idx, err := resolveDeclArg(st, m, args[0])
		if err != nil {
			return outputError(cmd, "doc", err)
		}
		row, err := declRow(st, m.ID, idx)
		if err != nil {
			return outputError(cmd, "doc", err)
		}
		return outputResult(cmd, CLIResult{Command: "doc", Results: CLIDoc{Index: row.Index, Path: row.Path, HTML: row.Doc}})
	},
}

var sourceCmd = &cobra.Command{
	Use:   "source <file>",
	Short: "Print a stored source file by index or path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, m, err := openQuery()
		if err != nil {
			return outputError(cmd, "source", err)
		}
		defer st.Close()

		idx, err := strconv.Atoi(args[0])
		if err != nil {
			f, err := st.FileByPath(m.ID, args[0])
			if err != nil {
				return outputError(cmd, "source", err)
			}
			if f == nil {
				return outputError(cmd, "source", fmt.Errorf("%w: file %q", autodoc.ErrInvalidFile, args[0]))
			}
			idx = f.Index
		}
		src, ok, err := st.FileSource(m.ID, idx)
		if err != nil {
			return outputError(cmd, "source", err)
		}
		if !ok {
			return outputError(cmd, "source", fmt.Errorf("%w: file %d", autodoc.ErrInvalidFile, idx))
		}
		path := args[0]
		if files, err := st.FileRows(m.ID); err == nil && idx >= 0 && idx < len(files) {
			path = files[idx].Path
		}
		return outputResult(cmd, CLIResult{Command: "source", Results: CLISource{Index: idx, Path: path, Source: string(src)}})
	},
}

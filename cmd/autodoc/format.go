package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jward/autodoc"
)

// formatModulesText formats CLIModule results as aligned columns.
func formatModulesText(w io.Writer, mods []CLIModule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROOT\tFILES\tDECLS\tINDEXED")
	for _, m := range mods {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", m.ID, m.Root, m.Files, m.Decls, m.IndexedAt)
	}
	tw.Flush()
}

// formatDeclsText formats CLIDecl results as aligned columns.
func formatDeclsText(w io.Writer, decls []CLIDecl) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tKIND\tSUMMARY")
	for _, d := range decls {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.Index, d.Name, d.Category, d.Summary)
	}
	tw.Flush()
}

// outputResult marshals a CLIResult to the command's output in the
// selected format.
func outputResult(cmd *cobra.Command, result CLIResult) error {
	w := cmd.OutOrStdout()
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(cmd *cobra.Command, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
		Code:    autodoc.CodeOf(err).String(),
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIModule:
		formatModulesText(w, v)
	case CLIModule:
		formatModulesText(w, []CLIModule{v})
	case []CLIDecl:
		formatDeclsText(w, v)
	case CLIDecl:
		formatDeclsText(w, []CLIDecl{v})
	case CLIDoc:
		fmt.Fprint(w, v.HTML)
	case CLISource:
		fmt.Fprint(w, v.Source)
	case CLIHTML:
		fmt.Fprint(w, v.HTML)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

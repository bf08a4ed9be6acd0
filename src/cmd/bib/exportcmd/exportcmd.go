// Package exportcmd implements "bib export-bib".
package exportcmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bibentry/src/internal/library"
)

// Opener returns the configured library.
type Opener func() (*library.Library, error)

// New returns an export command that renders the YAML library as BibTeX.
// Without --output the library's own mirror file is rebuilt; "-" writes to
// stdout.
func New(open Opener) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-bib",
		Short: "Export all YAML citations to a consolidated BibTeX file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := open()
			if err != nil {
				return err
			}
			switch out {
			case "":
				path, err := lib.RebuildBibTeX()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
				return err
			case "-":
				entries, err := lib.Entries()
				if err != nil {
					return err
				}
				return library.WriteBibTeX(cmd.OutOrStdout(), entries)
			}
			entries, err := lib.Entries()
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := library.WriteBibTeX(&buf, entries); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d entries)\n", out, len(entries))
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output bib file path, or - for stdout (default <library>/library.bib)")
	return cmd
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bibentry/src/internal/fetcher"
	"bibentry/src/internal/prefs"
)

// accepts describes the identifiers each bundled fetcher recognizes.
var accepts = map[string]string{
	"DOI":     "10.NNNN/suffix, doi: or doi.org URL",
	"ISBN":    "ISBN-10 or ISBN-13",
	"RFC":     "RFC NNNN",
	"YOUTUBE": "youtube.com or youtu.be URL",
	"URL":     "http(s) URL",
}

func newFetchersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetchers",
		Short: "List the identifier fetchers in guessing order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p, err := prefs.NewFileStore(cfg.Paths.StateFile).Load()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			fs := buildRegistry(cfg).List()
			if len(fs) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No fetchers enabled.")
				return err
			}
			selected := ""
			if !p.IDLookupGuessing {
				selected = p.LastFetcher
				if _, ok := fetcher.Find(fs, selected); !ok {
					selected = fs[0].Name()
				}
			}
			rows := make([][]string, 0, len(fs))
			for i, f := range fs {
				mark := ""
				if f.Name() == selected {
					mark = "*"
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), f.Name(), accepts[f.Name()], mark})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"#", "Name", "Accepts", "Selected"}, rows, []columnAlignment{alignRight}))
			mode := "guessing from the identifier"
			if !p.IDLookupGuessing {
				mode = "using the selected fetcher"
			}
			_, err = fmt.Fprintf(out, "Lookups are %s.\n", mode)
			return err
		},
	}
}

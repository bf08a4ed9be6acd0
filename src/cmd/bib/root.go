package main

import (
	"github.com/spf13/cobra"

	"bibentry/src/cmd/bib/exportcmd"
	"bibentry/src/cmd/bib/newcmd"
)

// newRootCommand returns the command tree and the cleanup to run after it,
// whether or not the command succeeded.
func newRootCommand() (*cobra.Command, func() error) {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "bib",
		Short:         "Bibliography store CLI (APA7 + annotated YAML)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newcmd.New(ctx.openSession).Command())
	rootCmd.AddCommand(exportcmd.New(ctx.library))
	rootCmd.AddCommand(newFetchersCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())
	return rootCmd, ctx.close
}

package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "kakashi",
		Short:        "Generate instruction-following examples with a completion API",
		SilenceUsage: true,
	}

	root.AddCommand(newGenerateCmd())

	return root
}

package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "httpfixture",
		Short:        "A small HTTP/1.1 fixture server and client",
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newRequestCmd())

	return root
}

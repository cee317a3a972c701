package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "flrouter",
		Short:         "flrouter: brokerless client-side request router",
		Long:          "flrouter routes requests across a pool of interchangeable servers, tracks their liveness with heartbeats, and fails over transparently within a global deadline.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRequestCmd(),
		newServeCmd(),
	)

	return rootCmd
}

package cmd

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the flrouter version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("flrouter %s\n", version)
		},
	}
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sensorsim",
		Short:        "Simulated sensor fleet writing readings to a record sink",
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newSampleCmd())

	return root
}

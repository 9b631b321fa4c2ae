package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/quoteboard/cmd/quoteboard/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quoteboard",
		Short: "Password-gated quote board",
		Long:  `quoteboard serves a small quote board with screenshot uploads, password gates and a movable admin area.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewSettingsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

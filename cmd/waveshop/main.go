package main

import (
	"os"

	"github.com/spf13/cobra"

	"waveshop/internal/interfaces/cli/migrate"
	"waveshop/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "waveshop",
		Short: "Waveshop - subscription shop with multi-provider payments",
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

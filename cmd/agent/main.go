package main

import (
	"os"

	"github.com/spf13/cobra"
)

var baseURL string

func main() {
	rootCmd := &cobra.Command{
		Use:   "agent",
		Short: "CLI client for the research agent API",
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "http://localhost:3000/api", "API base URL")

	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newInteractiveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

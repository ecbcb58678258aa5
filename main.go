package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cluster-dashboard",
		Short: "Student cluster dashboard backed by an external clustering service",
		Long: `Serves the cluster dashboard API: official, playground and pairwise
clustering runs with per-cluster labels, narratives and spreadsheet export.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(inspectCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/pvolkov/tome/internal/api"
	"github.com/pvolkov/tome/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "tome",
	Short: "Case file segmentation pipeline for scanned legal volumes",
	Long: `Tome splits scanned case file volumes (PDF binders) into their individual
procedural documents using a vision LLM to detect document boundaries.

The pipeline includes:
  - Per-page rendering and classification with rolling context
  - Boundary detection with inventory (opis) page collapsing
  - Versioned extraction runs with full history per volume
  - Live progress streaming over SSE`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.tome/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "tome home directory (default: ~/.tome)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

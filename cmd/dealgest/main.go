package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dealgest",
		Short: "Extract deal facts from M&A disclosure reports",
		Long: `dealgest parses M&A disclosure reports, chunks them by section, indexes the
chunks, asks an LLM for the deal facts and classifies the financial tables.

Configuration is read from the environment and an optional .env file:
  LLM_API_KEY      chat and embedding API key (required for run)
  DATABASE_URL     Postgres with pgvector (vector search, postgres store)
  FACT_STORE       postgres | pathstore | memory (default: postgres)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(chunkCmd())
	root.AddCommand(tablesCmd())
	root.AddCommand(migrateCmd())
	return root
}

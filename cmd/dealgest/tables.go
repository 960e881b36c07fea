package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgallion1/dealgest/internal/chunker"
	"github.com/dgallion1/dealgest/internal/config"
	"github.com/dgallion1/dealgest/internal/tables"
)

func tablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables <file>",
		Short: "Merge, classify and export the tables of a report",
		Long: `Extract the tables of one report, join tables that continue across pages,
classify them as financial statements, fundraising tables or other, and
write one CSV per table plus index.csv under <out>/<doc_id>/.`,
		Args: cobra.ExactArgs(1),
		RunE: runTables,
	}
	cmd.Flags().String("out", "", "Output directory (default OUTPUT_DIR/tables)")
	cmd.Flags().Float64("threshold", tables.DefaultSimilarity, "Header similarity needed to merge repeated headers")
	return cmd
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = filepath.Join(cfg.OutputDir, "tables")
	}
	threshold, _ := cmd.Flags().GetFloat64("threshold")

	doc, err := parseFile(args[0], parserOptions(cfg), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if len(doc.Tables) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no tables found")
		return nil
	}

	chunks := chunker.Assemble(doc.ID, doc.Pages, chunker.Config{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap})
	merged, groups := tables.MergeCrossPage(doc.Tables, threshold)
	enriched := tables.Enrich(merged, chunks)

	if _, err := tables.ExportCSV(out, doc.ID, enriched); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tPAGE\tTYPE\tCONFIDENCE\tTITLE")
	for _, t := range enriched {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", t.ID, t.PageRange(), t.Classification.Type, t.Classification.Confidence, t.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	counts := tables.CountByType(enriched)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d tables (%d found, %d merge groups): %d financial_report, %d fundraising, %d other\nwritten to %s/%s\n",
		len(enriched), len(doc.Tables), len(groups),
		counts[tables.TypeFinancialReport], counts[tables.TypeFundraising], counts[tables.TypeOther],
		out, doc.ID)
	return nil
}

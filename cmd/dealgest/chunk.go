package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/dealgest/internal/chunker"
	"github.com/dgallion1/dealgest/internal/config"
	"github.com/dgallion1/dealgest/internal/doctree"
	"github.com/dgallion1/dealgest/internal/parser"
)

func chunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Print the section-aware chunks of a report as JSONL",
		Args:  cobra.ExactArgs(1),
		RunE:  runChunk,
	}
	cmd.Flags().Int("size", 0, "Chunk size in characters (default CHUNK_SIZE)")
	cmd.Flags().Int("overlap", 0, "Chunk overlap in characters; 0 disables overlap (default CHUNK_OVERLAP)")
	return cmd
}

func runChunk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	chunkCfg := chunker.Config{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap}
	if n, _ := cmd.Flags().GetInt("size"); n > 0 {
		chunkCfg.ChunkSize = n
	}
	if cmd.Flags().Changed("overlap") {
		chunkCfg.ChunkOverlap, _ = cmd.Flags().GetInt("overlap")
	}

	doc, err := parseFile(args[0], parserOptions(cfg), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	chunks := chunker.Assemble(doc.ID, doc.Pages, chunkCfg)
	return chunker.WriteJSONL(cmd.OutOrStdout(), chunks)
}

// parseFile reads and parses one input file. Parser warnings go to warn.
func parseFile(path string, opts parser.Options, warn io.Writer) (*doctree.Document, error) {
	p, err := parser.ForFileWith(path, opts)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := p.Parse(bytes.NewReader(data), filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, w := range doc.Warnings {
		fmt.Fprintf(warn, "warning: %s: %s\n", path, w)
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("parse %s: no extractable content", path)
	}
	return doc, nil
}

func parserOptions(cfg *config.Config) parser.Options {
	return parser.Options{
		PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
		PDFTables:            cfg.PDFTables,
	}
}

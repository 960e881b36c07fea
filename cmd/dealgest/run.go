package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/dealgest/internal/app"
	"github.com/dgallion1/dealgest/internal/config"
	"github.com/dgallion1/dealgest/internal/pipeline"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Process a report or a directory of reports",
		Long: `Run the full pipeline on one file or every supported file in a directory.
Documents whose stored record is success or partial are skipped unless
--no-resume is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}
	cmd.Flags().Bool("no-resume", false, "Reprocess documents that already have a record")
	cmd.Flags().Bool("no-migrate", false, "Skip database migrations")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := app.NewLogger(cfg, cmd.ErrOrStderr())

	noResume, _ := cmd.Flags().GetBool("no-resume")
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")

	files, err := pipeline.CollectInputs(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.Options{Migrate: !noMigrate})
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info("batch starting", "files", len(files), "resume", !noResume)
	stats, err := a.Orchestrator.RunBatch(ctx, files, !noResume)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(stats); encErr != nil {
		return encErr
	}
	return err
}

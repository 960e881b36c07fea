package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dgallion1/dealgest/internal/app"
	"github.com/dgallion1/dealgest/internal/config"
	"github.com/dgallion1/dealgest/internal/store"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			return store.Migrate(cfg.DatabaseURL, app.NewLogger(cfg, cmd.ErrOrStderr()))
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/config"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger, err := internal.BuildLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if _, ok := store.(migrator); !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s backend has no schema to migrate\n", cfg.DBType)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.DBType)
	return nil
}

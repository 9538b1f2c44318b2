package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/kolscout/internal/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates the Postgres tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if rt.cfg.DB.Backend != "postgres" {
				return errors.New("migrate requires db.backend=postgres")
			}
			store, err := postgres.New(cmd.Context(), postgres.Config{
				DSN:             rt.cfg.DB.DSN,
				MaxConns:        rt.cfg.DB.MaxConns,
				MinConns:        rt.cfg.DB.MinConns,
				MaxConnLifetime: time.Duration(rt.cfg.DB.MaxConnLifetime) * time.Minute,
			})
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer store.Close()
			if err := store.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			rt.logger.Info("schema is up to date", zap.String("backend", rt.cfg.DB.Backend))
			return nil
		},
	}
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docchat/docchat/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded schema migrations to the configured Postgres database.

Already applied versions are skipped. The vector column width comes from
embeddings.dimensions.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if cfg.Database.Driver != "postgres" {
		return errors.New("migrate requires the postgres database driver")
	}

	applied, err := db.Migrate(cmd.Context(), cfg.Database.ConnectionString, cfg.Embeddings.Dimensions)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(applied) == 0 {
		fmt.Fprintln(out, "Database is up to date")
		return nil
	}
	for _, v := range applied {
		fmt.Fprintf(out, "Applied %s\n", v)
	}
	return nil
}

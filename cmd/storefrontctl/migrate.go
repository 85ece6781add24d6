package main

import (
	"fmt"
	"strings"

	"gpt-storefront/database"
	"gpt-storefront/internal/domain/catalog"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			if err := database.Migrate(e.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables\n", len(database.Models()))
			return nil
		},
	}
}

func seedModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-models",
		Short: "Sync gpt_models with the built-in catalog",
		Long: `Sync gpt_models with the built-in catalog.

Products missing from the table are created, changed ones updated, and
models no longer sold are deactivated. Existing grants are untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			report, err := e.store.SyncModels(cmd.Context(), catalog.All())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "catalog %s\n", catalog.Version)
			fmt.Fprintf(out, "  created:     %s\n", listOrNone(report.Created))
			fmt.Fprintf(out, "  updated:     %s\n", listOrNone(report.Updated))
			fmt.Fprintf(out, "  deactivated: %s\n", listOrNone(report.Deactivated))
			return nil
		},
	}
}

func listOrNone(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}

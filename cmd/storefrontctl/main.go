// Command storefrontctl is the operator CLI: schema migration, catalog sync,
// and manual reconciliation of payments that did not complete fulfillment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Operator tools for the GPT storefront",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedModelsCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(fulfillCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"

	"github.com/spf13/cobra"
)

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the built-in product catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCatalog(cmd.OutOrStdout(), catalog.All())
		},
	}
}

func printCatalog(out io.Writer, products []catalog.Product) error {
	fmt.Fprintf(out, "catalog %s\n", catalog.Version)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tPLAN\tTOOL URL")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\n",
			p.ID, p.Name, billing.FormatMinor(p.PriceMinor), strings.ToUpper(p.Currency), p.Plan, p.ToolURL)
	}
	return tw.Flush()
}

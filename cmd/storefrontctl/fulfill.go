package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gpt-storefront/internal/domain/billing"

	"github.com/spf13/cobra"
)

func fulfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fulfill",
		Short: "Inspect and retry payments whose access grant is still owed",
	}
	cmd.AddCommand(fulfillListCmd())
	cmd.AddCommand(fulfillRetryCmd())
	return cmd
}

func fulfillListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open fulfillment issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			issues, err := e.store.ListFulfillment(cmd.Context(), !all)
			if err != nil {
				return err
			}
			return printIssues(cmd.OutOrStdout(), issues)
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include resolved issues")
	return cmd
}

func fulfillRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry [issue-id]",
		Short: "Write the missing access grant for a fulfillment issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			outcome, err := e.reconciler().RetryFulfillment(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("retry %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], outcome)
			return nil
		},
	}
}

func printIssues(out io.Writer, issues []billing.FulfillmentIssue) error {
	if len(issues) == 0 {
		fmt.Fprintln(out, "no fulfillment issues")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPAYMENT INTENT\tUSER\tPRODUCT\tATTEMPTS\tSTATE\tLAST ERROR")
	for _, f := range issues {
		state := "open"
		if !f.Open() {
			state = "resolved " + f.ResolvedAt.Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			f.ID, f.StripePaymentID, f.UserID, f.ProductID, f.Attempts, state, f.LastError)
	}
	return tw.Flush()
}

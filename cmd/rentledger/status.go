package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status <invoice>",
		Short: "Show the resolved balance and aging of one invoice",
		Long: `Show the balance, status and aging of one invoice or bill. The argument is
an invoice ID (inv_...) or number (INV-...). Status is derived from the
payment history as of --today.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inv, err := c.findInvoice(ctx, args[0])
			if err != nil {
				return err
			}
			rec, err := c.ledger.ResolveInvoice(ctx, inv.ID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Number\t%s\n", inv.Number)
			fmt.Fprintf(w, "Direction\t%s\n", inv.Direction)
			fmt.Fprintf(w, "Due\t%s\n", inv.DueDate.Format(time.DateOnly))
			fmt.Fprintf(w, "Status\t%s\n", rec.Balance.Status)
			fmt.Fprintf(w, "Amount\t%s\n", inv.Amount)
			fmt.Fprintf(w, "Paid\t%s\n", rec.Balance.Paid)
			fmt.Fprintf(w, "Remaining\t%s\n", rec.Balance.Remaining)
			if inv.SecurityDepositCharge.IsPositive() {
				fmt.Fprintf(w, "Deposit remaining\t%s\n", rec.Balance.DepositRemaining)
			}
			switch {
			case rec.Aging.Excluded:
				fmt.Fprintf(w, "Aging\t-\n")
			case rec.Aging.Overdue:
				fmt.Fprintf(w, "Aging\t%s (%d days overdue)\n", rec.Aging.Bucket, rec.Aging.DaysOverdue)
			default:
				fmt.Fprintf(w, "Aging\t%s\n", rec.Aging.Bucket)
			}
			return w.Flush()
		},
	}
}

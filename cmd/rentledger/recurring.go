package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newRecurringCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Work with recurring invoice templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Generate every recurring invoice due by --today",
		Long: `Generate the invoices of every active template whose next due date is on
or before --today and advance the templates. Missed periods are caught up,
at most --max-catch-up per template. A period that already has an invoice
is skipped, so running twice generates nothing new.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.ledger.RunRecurring(cmd.Context())
			if res == nil {
				return err
			}
			// Committed steps stay committed even when a later one fails.
			if res.Advanced > 0 {
				c.dirty = true
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if len(res.Generated) > 0 {
				fmt.Fprintf(w, "Number\tPeriod\tDue\tAmount\tDescription\n")
			}
			for _, inv := range res.Generated {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					inv.Number, inv.Period, inv.DueDate.Format(time.DateOnly), inv.Amount, inv.Description)
			}
			if flushErr := w.Flush(); flushErr != nil {
				return flushErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d, advanced %d, failed %d\n",
				len(res.Generated), res.Advanced, res.Failed)
			return err
		},
	})
	return cmd
}

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xraph/rentledger/allocation"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/types"
)

func newAllocateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Apply a collection or disbursement to invoices",
		Long: `Apply money to open invoices. Amounts are in major units of the invoice
currency (1200.50). Nothing is written when an amount exceeds what is owed.`,
	}

	split := &cobra.Command{
		Use:   "split <invoice>",
		Short: "Split one payment between rent and security deposit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inv, err := c.findInvoice(ctx, args[0])
			if err != nil {
				return err
			}
			req := allocation.SplitRequest{}
			if req.Rent, err = moneyFlag(cmd, "rent", inv.Currency()); err != nil {
				return err
			}
			if req.Deposit, err = moneyFlag(cmd, "deposit", inv.Currency()); err != nil {
				return err
			}
			readPaymentFlags(cmd, &req.AccountID, &req.Reference)

			plan, err := c.ledger.AllocateSplit(ctx, inv.ID, req)
			if err != nil {
				return err
			}
			c.dirty = true
			return printPlan(cmd, plan)
		},
	}
	split.Flags().String("rent", "0", "amount applied to rent")
	split.Flags().String("deposit", "0", "amount applied to the security deposit")
	addPaymentFlags(split)

	batch := &cobra.Command{
		Use:   "batch <invoice>...",
		Short: "Spread one total over several invoices, oldest first",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ids := make([]id.InvoiceID, 0, len(args))
			var currency string
			for _, ref := range args {
				inv, err := c.findInvoice(ctx, ref)
				if err != nil {
					return err
				}
				if currency == "" {
					currency = inv.Currency()
				}
				ids = append(ids, inv.ID)
			}
			req := allocation.BatchRequest{}
			var err error
			if req.Total, err = moneyFlag(cmd, "total", currency); err != nil {
				return err
			}
			readPaymentFlags(cmd, &req.AccountID, &req.Reference)

			if preview, _ := cmd.Flags().GetBool("preview"); preview {
				plan, err := c.ledger.PreviewBatch(ctx, ids, req)
				if err != nil {
					return err
				}
				return printPlan(cmd, plan)
			}
			plan, err := c.ledger.AllocateBatch(ctx, ids, req)
			if err != nil {
				return err
			}
			c.dirty = true
			return printPlan(cmd, plan)
		},
	}
	batch.Flags().String("total", "", "total amount collected")
	batch.Flags().Bool("preview", false, "show the plan without applying it")
	_ = batch.MarkFlagRequired("total") //nolint:errcheck // flag exists
	addPaymentFlags(batch)

	cmd.AddCommand(split, batch)
	return cmd
}

func addPaymentFlags(cmd *cobra.Command) {
	cmd.Flags().String("account", "", "cash or bank account ID")
	cmd.Flags().String("reference", "", "receipt or transfer reference")
}

func readPaymentFlags(cmd *cobra.Command, account, reference *string) {
	*account, _ = cmd.Flags().GetString("account")
	*reference, _ = cmd.Flags().GetString("reference")
}

func moneyFlag(cmd *cobra.Command, name, currency string) (types.Money, error) {
	raw, _ := cmd.Flags().GetString(name)
	m, err := types.ParseMoney(raw, currency)
	if err != nil {
		return types.Money{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return m, nil
}

func printPlan(cmd *cobra.Command, plan *allocation.Plan) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Invoice\tRent\tDeposit\tApplied\tRemaining\n")
	for _, a := range plan.Allocations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.Number, a.Rent, a.Deposit, a.Applied, a.RemainingAfter)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "batch %s applied %s", plan.BatchID, plan.Applied)
	if plan.Unallocated.IsPositive() {
		fmt.Fprintf(cmd.OutOrStdout(), ", %s unallocated", plan.Unallocated)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/rentledger"
	"github.com/xraph/rentledger/invoice"
)

func newAgingCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aging",
		Short: "Summarize outstanding balances by days overdue",
		Long: `Summarize outstanding balances per aging bucket as of --today. Paid
invoices and drafts are left out. All selected invoices must share one
currency; narrow the selection with --currency when they do not.`,
		Example: `  rentledger aging --direction payable
  rentledger aging --building harbour-view --currency kes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			summary, err := c.ledger.AgingReport(cmd.Context(), f)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(w, "Bucket\tCount\tOutstanding\t\n")
			for _, row := range summary.Rows {
				fmt.Fprintf(w, "%s\t%d\t%s\t\n", row.Bucket, row.Count, row.Total)
			}
			fmt.Fprintf(w, "Total\t%d\t%s\t\n", summary.Count, summary.Total)
			fmt.Fprintf(w, "Overdue\t\t%s\t\n", summary.Overdue)
			return w.Flush()
		},
	}
	addFilterFlags(cmd)
	return cmd
}

// addFilterFlags registers the record selection flags shared by reports.
func addFilterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("direction", "", "receivable or payable")
	f.String("currency", "", "only invoices in this currency")
	f.String("building", "", "building ID")
	f.String("property", "", "property ID")
	f.String("contact", "", "contact ID")
	f.String("owner", "", "owner contact ID")
	f.StringSlice("status", nil, "statuses (unpaid, overdue, partially_paid, paid, draft)")
	f.StringSlice("type", nil, "invoice types")
	f.String("search", "", "case-insensitive text search")
	f.String("from", "", "issued on or after (YYYY-MM-DD)")
	f.String("to", "", "issued on or before (YYYY-MM-DD)")
}

func filterFromFlags(cmd *cobra.Command) (rentledger.Filter, error) {
	flags := cmd.Flags()
	str := func(name string) string {
		v, _ := flags.GetString(name) //nolint:errcheck // registered in addFilterFlags
		return v
	}

	f := rentledger.Filter{
		Direction:  invoice.Direction(str("direction")),
		Currency:   strings.ToLower(str("currency")),
		BuildingID: str("building"),
		PropertyID: str("property"),
		ContactID:  str("contact"),
		OwnerID:    str("owner"),
		Search:     str("search"),
	}

	statuses, _ := flags.GetStringSlice("status") //nolint:errcheck // registered in addFilterFlags
	for _, s := range statuses {
		f.Statuses = append(f.Statuses, invoice.Status(s))
	}
	types, _ := flags.GetStringSlice("type") //nolint:errcheck // registered in addFilterFlags
	for _, t := range types {
		f.Types = append(f.Types, invoice.Type(t))
	}

	var err error
	if f.Start, err = parseDateFlag("from", str("from")); err != nil {
		return f, err
	}
	if f.End, err = parseDateFlag("to", str("to")); err != nil {
		return f, err
	}
	return f, nil
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q, use YYYY-MM-DD: %w", name, value, err)
	}
	return t, nil
}

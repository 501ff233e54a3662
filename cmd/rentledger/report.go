package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xraph/rentledger"
	"github.com/xraph/rentledger/aggregate"
)

func newReportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Group outstanding balances into a hierarchy",
		Long: `Group the selected invoices level by level (building, property, contact,
owner, project, unit, type, status or aging) and print outstanding and
overdue totals for every group. Invoices missing a level's key are
collected under "Unassigned", listed last.

Each --sort entry orders one level, outermost first: name or outstanding,
prefixed with "-" for descending.`,
		Example: `  rentledger report --levels building,property,contact
  rentledger report --levels owner --sort=-outstanding --records`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			levels, _ := cmd.Flags().GetStringSlice("levels")
			rawSorts, _ := cmd.Flags().GetStringSlice("sort")
			withRecords, _ := cmd.Flags().GetBool("records")

			sorts, err := parseSorts(rawSorts)
			if err != nil {
				return err
			}
			root, err := c.ledger.Report(cmd.Context(), f, levels, sorts)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Group\tCount\tOutstanding\tOverdue\n")
			for _, child := range root.Children {
				printNode(w, child, 0, withRecords)
			}
			fmt.Fprintf(w, "Total\t%d\t%s\t%s\n", root.Count, root.Outstanding, root.Overdue)
			return w.Flush()
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().StringSlice("levels", []string{"building", "property"}, "grouping levels, outermost first")
	cmd.Flags().StringSlice("sort", nil, "per-level ordering, e.g. -outstanding")
	cmd.Flags().Bool("records", false, "list the invoices under each leaf group")
	return cmd
}

func parseSorts(raw []string) ([]rentledger.SortSpec, error) {
	specs := make([]rentledger.SortSpec, 0, len(raw))
	for _, s := range raw {
		spec, ok := aggregate.ParseSortSpec(strings.ToLower(strings.TrimSpace(s)))
		if !ok {
			return nil, fmt.Errorf("invalid sort %q: use name, outstanding, -name or -outstanding", s)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func printNode(w io.Writer, n *aggregate.Node, depth int, withRecords bool) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s\t%d\t%s\t%s\n", indent, n.Name, n.Count, n.Outstanding, n.Overdue)
	for _, child := range n.Children {
		printNode(w, child, depth+1, withRecords)
	}
	if !withRecords {
		return
	}
	for _, r := range n.Records {
		fmt.Fprintf(w, "%s  %s (%s)\t\t%s\t\n", indent, r.Invoice.Number, r.Balance.Status, r.Balance.Remaining)
	}
}

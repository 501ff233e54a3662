package rentledger

import (
	"context"
	"strings"

	"github.com/xraph/rentledger/aggregate"
	"github.com/xraph/rentledger/aging"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/query"
	"github.com/xraph/rentledger/types"
)

// ──────────────────────────────────────────────────
// Queries and Reports
// ──────────────────────────────────────────────────

// Records returns every invoice and bill matching f, each annotated with its
// derived status, balance and aging as of today.
func (l *Ledger) Records(ctx context.Context, f query.Filter) ([]*aggregate.Record, error) {
	s, err := l.loadSnapshot(ctx, false)
	if err != nil {
		return nil, err
	}
	return query.Apply(l.records(s), query.Compile(f, s.index)), nil
}

// Payments returns the payments linked to invoices matching f. The status
// filter is ignored so a payment stays visible after it changes the status
// of the invoice it settled. Reversed payments are included.
func (l *Ledger) Payments(ctx context.Context, f query.Filter) ([]*payment.Payment, error) {
	s, err := l.loadSnapshot(ctx, true)
	if err != nil {
		return nil, err
	}
	return query.Payments(l.records(s), s.payments, f, s.index), nil
}

// AgingReport totals the outstanding balances of records matching f per
// aging bucket. The matched records must share one currency; set
// f.Currency when the ledger holds several.
func (l *Ledger) AgingReport(ctx context.Context, f query.Filter) (aging.Summary, error) {
	records, err := l.Records(ctx, f)
	if err != nil {
		return aging.Summary{}, err
	}
	currency, err := singleCurrency(records, f.Currency)
	if err != nil {
		return aging.Summary{}, err
	}

	entries := make([]aging.Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, aging.Entry{Remaining: r.Balance.Remaining, Result: r.Aging})
	}
	return l.aging.Summarize(currency, entries), nil
}

// Report groups records matching f into a tree with one level per entry of
// levels (for example "building", "property", "contact") and sorts each
// level by the matching entry of sorts. Records without a key at some level
// are grouped under "Unassigned", which always sorts last.
func (l *Ledger) Report(ctx context.Context, f query.Filter, levels []string, sorts []aggregate.SortSpec) (*aggregate.Node, error) {
	s, err := l.loadSnapshot(ctx, false)
	if err != nil {
		return nil, err
	}

	lv := make([]aggregate.Level, 0, len(levels))
	for _, name := range levels {
		level, ok := aggregate.LevelByName(s.index, strings.TrimSpace(name))
		if !ok {
			return nil, types.Invalid("levels", "unknown grouping level %q", name)
		}
		lv = append(lv, level)
	}

	records := query.Apply(l.records(s), query.Compile(f, s.index))
	currency, err := singleCurrency(records, f.Currency)
	if err != nil {
		return nil, err
	}

	opts := []aggregate.Option{aggregate.WithCurrency(currency)}
	if l.parallelReports {
		opts = append(opts, aggregate.WithParallel())
	}
	root := aggregate.Build(records, lv, opts...)
	// Collators are not safe for concurrent use.
	aggregate.NewSorter(l.collation).Sort(root, sorts)
	return root, nil
}

// singleCurrency returns the one currency shared by records, or want when
// set.
func singleCurrency(records []*aggregate.Record, want string) (string, error) {
	if want != "" {
		return strings.ToLower(want), nil
	}
	var cur string
	for _, r := range records {
		c := r.Invoice.Currency()
		switch {
		case cur == "":
			cur = c
		case c != cur:
			return "", types.Invalid("currency", "records span %s and %s; filter by currency", cur, c)
		}
	}
	return cur, nil
}

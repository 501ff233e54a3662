package rentledger_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/rentledger"
	"github.com/xraph/rentledger/allocation"
	"github.com/xraph/rentledger/category"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/store/memory"
	"github.com/xraph/rentledger/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()
		ctx := context.Background()

		// The host owns categories and entities; the ledger only reads them
		for _, c := range []*category.Category{
			{ID: "rent", Name: "Rental Income", Kind: category.KindRentalIncome},
			{ID: "deposit", Name: "Security Deposit", Kind: category.KindSecurityDeposit},
		} {
			if err := store.PutCategory(ctx, c); err != nil {
				t.Fatal(err)
			}
		}
		if err := store.PutEntity(ctx, &directory.Entity{Kind: directory.KindProperty, ID: "flat-1a", Name: "Flat 1A"}); err != nil {
			t.Fatal(err)
		}

		// Initialize Ledger
		l := rentledger.New(store,
			rentledger.WithLogger(slog.Default()),
			rentledger.WithRecurringInterval(time.Hour),
		)

		// Start the engine
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer l.Stop()

		// Issue a rent invoice with a deposit component
		inv := &invoice.Invoice{
			Type:                  invoice.TypeRental,
			Amount:                types.USD(150000), // $1,500.00
			SecurityDepositCharge: types.USD(50000),  // $500.00 of it is deposit
			IssueDate:             time.Now(),
			DueDate:               time.Now().AddDate(0, 0, 7),
			PropertyID:            "flat-1a",
			ContactID:             "tenant-1",
		}
		if err := l.CreateInvoice(ctx, inv); err != nil {
			t.Fatal(err)
		}

		// Collect rent and deposit in one receipt
		p, err := l.AllocateSplit(ctx, inv.ID, allocation.SplitRequest{
			Rent:    types.USD(100000),
			Deposit: types.USD(20000),
		})
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("Batch %s applied %s\n", p.BatchID, p.Applied)

		// Status and balance are derived on every read
		rec, err := l.ResolveInvoice(ctx, inv.ID)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("Invoice %s is %s with %s remaining\n", inv.Number, rec.Balance.Status, rec.Balance.Remaining)

		// Memorize the invoice so next month's is generated automatically
		if _, err := l.Memorize(ctx, inv.ID, rentledger.MemorizeOptions{}); err != nil {
			t.Fatal(err)
		}

		// Bulk collections go to the oldest invoices first
		if _, err := l.AllocateBatch(ctx, []id.InvoiceID{inv.ID}, allocation.BatchRequest{
			Total: types.USD(10000),
		}); err != nil {
			t.Fatal(err)
		}

		// Aging and hierarchy reports
		summary, err := l.AgingReport(ctx, rentledger.Filter{})
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("Outstanding: %s\n", summary.Total)

		root, err := l.Report(ctx, rentledger.Filter{}, []string{"property", "contact"}, []rentledger.SortSpec{
			{Field: "outstanding", Descending: true},
		})
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("Groups: %d\n", len(root.Children))
	})

	// Test Money type examples
	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.USD(150000) // $1,500.00
		_ = types.KES(250000) // KSh2,500.00
		_ = types.Zero("usd") // $0.00

		// Arithmetic
		m1 := types.USD(100)
		m2 := types.USD(200)
		_ = m1.Add(m2)              // $3.00
		_ = m2.Subtract(m1)         // $1.00
		_ = m1.Min(m2)              // $1.00
		_ = m1.Negate().ClampZero() // $0.00

		// Comparison
		if m1.LessThan(m2) {
			// m1 is less than m2
		}

		// Formatting
		_ = m1.String()      // "$1.00"
		_ = m1.FormatMajor() // "1.00"
	})
}

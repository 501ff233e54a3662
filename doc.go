// Package rentledger is a receivables and payables engine for property and
// rental management.
//
// Rentledger is designed as a library, not a service. Import it into the Go
// application that owns your tenants, properties and buildings. It provides:
//
//   - Invoice and bill status derived from payment history, never stored
//   - Aging buckets for outstanding balances (0-30, 31-60, 61-90, 90+)
//   - Hierarchical rollups such as building → property → tenant
//   - Split rent/deposit collections and oldest-first bulk allocation
//   - Recurring invoice generation with month-end clamping and catch-up
//   - Plugin hooks for audit trails and metrics
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/rentledger"
//	    "github.com/xraph/rentledger/store/postgres"
//	)
//
//	l := rentledger.New(postgres.New(db),
//	    rentledger.WithRecurringInterval(time.Hour),
//	)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// An invoice (receivable) or bill (payable) carries an amount, optionally
// split into a security-deposit charge and service charges. Payments link to
// one invoice and carry a category kind that routes them to the rent or the
// deposit sub-ledger. Paid, remaining and status are recomputed from the
// payments on every read:
//
//	rec, err := l.ResolveInvoice(ctx, invID)
//	fmt.Println(rec.Balance.Status, rec.Balance.Remaining)
//
// A split collection records rent and deposit parts of one receipt:
//
//	plan, err := l.AllocateSplit(ctx, invID, allocation.SplitRequest{
//	    Rent:    rentledger.USD(100000),
//	    Deposit: rentledger.USD(50000),
//	})
//
// A bulk collection is applied to the oldest due invoices first:
//
//	plan, err := l.AllocateBatch(ctx, ids, allocation.BatchRequest{Total: rentledger.USD(150000)})
//
// Reports group the filtered records into a tree:
//
//	root, err := l.Report(ctx, rentledger.Filter{OwnerID: ownerID},
//	    []string{"building", "property", "contact"}, nil)
//
// # Money
//
// Amounts are integers in the smallest currency unit (cents for USD). Balance
// comparisons allow a rounding tolerance, 0.01 of the major unit by default
// (see WithTolerance), so a balance within one cent counts as settled.
//
// # Host Entities
//
// Contacts, properties, buildings, projects and units belong to the host.
// The ledger resolves them through the store's directory methods and never
// fails on a dangling reference: reports group such records under
// "Unassigned" and label them "Unknown Property" and the like.
//
// # TypeID
//
// Ledger records use TypeIDs:
//
//	inv_01h455vb4pex5vsknk084sn02q   // Invoice or bill ID
//	pay_01h455vb4pex5vsknk084sn02q   // Payment ID
//	bat_01h455vb4pex5vsknk084sn02q   // Allocation batch ID
//	rtpl_01h455vb4pex5vsknk084sn02q  // Recurring template ID
package rentledger

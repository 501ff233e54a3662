package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rentledger/category"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/recurring"
	"github.com/xraph/rentledger/types"
)

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// fixture writes a small ledger: one overdue rental with a partial payment,
// one rental not yet due and a monthly template due on 2026-03-01.
func fixture(t *testing.T) string {
	t.Helper()

	overdue := &invoice.Invoice{
		ID:                    id.NewInvoiceID(),
		Number:                "INV-1",
		Direction:             invoice.Receivable,
		Type:                  invoice.TypeRental,
		Amount:                types.USD(100000),
		PaidAmount:            types.USD(30000),
		SecurityDepositCharge: types.USD(20000),
		IssueDate:             date("2026-01-01"),
		DueDate:               date("2026-01-05"),
		ContactID:             "tenant-1",
		PropertyID:            "unit-4b",
	}
	current := &invoice.Invoice{
		ID:         id.NewInvoiceID(),
		Number:     "INV-2",
		Direction:  invoice.Receivable,
		Type:       invoice.TypeRental,
		Amount:     types.USD(50000),
		PaidAmount: types.USD(0),
		IssueDate:  date("2026-03-01"),
		DueDate:    date("2026-03-20"),
		ContactID:  "tenant-2",
	}

	snap := &snapshot{
		Categories: []*category.Category{
			{ID: "rent", Name: "Rental income", Kind: category.KindRentalIncome},
			{ID: "deposit", Name: "Security deposits", Kind: category.KindSecurityDeposit},
		},
		Entities: []*directory.Entity{
			{Kind: directory.KindBuilding, ID: "harbour", Name: "Harbour View"},
			{Kind: directory.KindProperty, ID: "unit-4b", Name: "Unit 4B", BuildingID: "harbour"},
		},
		Invoices: []*invoice.Invoice{overdue, current},
		Payments: []*payment.Payment{{
			ID:           id.NewPaymentID(),
			Type:         payment.TypeIncome,
			Amount:       types.USD(30000),
			Date:         date("2026-01-10"),
			InvoiceID:    overdue.ID,
			CategoryID:   "rent",
			CategoryKind: category.KindRentalIncome,
		}},
		Templates: []*recurring.Template{{
			ID:          id.NewTemplateID(),
			Direction:   invoice.Receivable,
			Type:        invoice.TypeRental,
			Amount:      types.USD(80000),
			ContactID:   "tenant-3",
			DayOfMonth:  1,
			NextDueDate: date("2026-03-01"),
			Frequency:   recurring.FrequencyMonthly,
			Active:      true,
		}},
	}

	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, writeSnapshot(path, snap))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--today", "2026-03-15"))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatus(t *testing.T) {
	path := fixture(t)

	out, err := run(t, "status", "inv-1", "--snapshot", path)
	require.NoError(t, err)
	assert.Contains(t, out, "INV-1")
	assert.Contains(t, out, "partially_paid")
	assert.Contains(t, out, "$700.00")
	assert.Contains(t, out, "61-90 (69 days overdue)")
}

func TestStatusUnknownInvoice(t *testing.T) {
	path := fixture(t)

	_, err := run(t, "status", "INV-404", "--snapshot", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INV-404")
}

func TestAging(t *testing.T) {
	path := fixture(t)

	out, err := run(t, "aging", "--snapshot", path)
	require.NoError(t, err)
	assert.Contains(t, out, "61-90")
	assert.Contains(t, out, "$1200.00")
	assert.Contains(t, out, "$700.00")
}

func TestReportGroupsByBuilding(t *testing.T) {
	path := fixture(t)

	out, err := run(t, "report", "--levels", "building", "--snapshot", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Harbour View")
	assert.Contains(t, out, "Unassigned")
	assert.Less(t, bytes.Index([]byte(out), []byte("Harbour View")), bytes.Index([]byte(out), []byte("Unassigned")))
}

func TestReportRejectsBadSort(t *testing.T) {
	path := fixture(t)

	_, err := run(t, "report", "--sort", "size", "--snapshot", path)
	require.Error(t, err)
}

func TestRecurringRunWritesSnapshot(t *testing.T) {
	path := fixture(t)

	out, err := run(t, "recurring", "run", "--write", "--snapshot", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2026-03")
	assert.Contains(t, out, "generated 1, advanced 1, failed 0")

	snap, err := readSnapshot(path)
	require.NoError(t, err)
	assert.Len(t, snap.Invoices, 3)
	require.Len(t, snap.Templates, 1)
	assert.True(t, snap.Templates[0].NextDueDate.Equal(date("2026-04-01")))

	// The period already has its invoice.
	out, err = run(t, "recurring", "run", "--write", "--snapshot", path)
	require.NoError(t, err)
	assert.Contains(t, out, "generated 0, advanced 0, failed 0")
}

func TestRecurringRunDryRun(t *testing.T) {
	path := fixture(t)

	_, err := run(t, "recurring", "run", "--snapshot", path)
	require.NoError(t, err)

	snap, err := readSnapshot(path)
	require.NoError(t, err)
	assert.Len(t, snap.Invoices, 2)
}

func TestAllocateSplit(t *testing.T) {
	path := fixture(t)

	out, err := run(t, "allocate", "split", "INV-1", "--rent", "500", "--deposit", "200", "--write", "--snapshot", path)
	require.NoError(t, err)
	assert.Contains(t, out, "applied $700.00")

	snap, err := readSnapshot(path)
	require.NoError(t, err)
	assert.Len(t, snap.Payments, 3)

	out, err = run(t, "status", "INV-1", "--snapshot", path)
	require.NoError(t, err)
	assert.Contains(t, out, "paid")
	assert.Contains(t, out, "$0.00")
}

func TestAllocateSplitRejectsOverpayment(t *testing.T) {
	path := fixture(t)

	_, err := run(t, "allocate", "split", "INV-1", "--rent", "900", "--write", "--snapshot", path)
	require.Error(t, err)

	snap, err := readSnapshot(path)
	require.NoError(t, err)
	assert.Len(t, snap.Payments, 1)
}

func TestAllocateBatchPreview(t *testing.T) {
	path := fixture(t)

	out, err := run(t, "allocate", "batch", "INV-2", "INV-1", "--total", "1500", "--preview", "--snapshot", path)
	require.NoError(t, err)
	assert.Contains(t, out, "applied $1200.00, $300.00 unallocated")

	snap, err := readSnapshot(path)
	require.NoError(t, err)
	assert.Len(t, snap.Payments, 1)
}

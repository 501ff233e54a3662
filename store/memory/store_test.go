package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rentledger"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/recurring"
	"github.com/xraph/rentledger/types"
)

func newInvoice(number string, issue time.Time) *invoice.Invoice {
	return &invoice.Invoice{
		ID:        id.NewInvoiceID(),
		Number:    number,
		Direction: invoice.Receivable,
		Type:      invoice.TypeRental,
		Amount:    types.USD(100000),
		IssueDate: issue,
		DueDate:   issue,
		ContactID: "t1",
	}
}

func newPayment(invID id.InvoiceID, batch id.BatchID, cents int64) *payment.Payment {
	return &payment.Payment{
		ID:        id.NewPaymentID(),
		Type:      payment.TypeIncome,
		Amount:    types.USD(cents),
		Date:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		InvoiceID: invID,
		BatchID:   batch,
	}
}

func TestInvoiceCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := New()
	inv := newInvoice("INV-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.CreateInvoice(ctx, inv))

	inv.Number = "changed"
	got, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-1", got.Number)

	got.Number = "also changed"
	again, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-1", again.Number)
}

func TestInvoiceNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetInvoice(ctx, id.NewInvoiceID())
	assert.ErrorIs(t, err, rentledger.ErrInvoiceNotFound)
	assert.ErrorIs(t, s.DeleteInvoice(ctx, id.NewInvoiceID()), rentledger.ErrInvoiceNotFound)
	assert.ErrorIs(t, s.SetPaidAmount(ctx, id.NewInvoiceID(), types.USD(1)), rentledger.ErrInvoiceNotFound)
}

func TestListInvoicesOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	s := New()
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	for _, inv := range []*invoice.Invoice{
		newInvoice("INV-3", day(3)),
		newInvoice("INV-1", day(1)),
		newInvoice("INV-2", day(1)),
	} {
		require.NoError(t, s.CreateInvoice(ctx, inv))
	}

	all, err := s.ListInvoices(ctx, invoice.ListOpts{})
	require.NoError(t, err)
	var numbers []string
	for _, inv := range all {
		numbers = append(numbers, inv.Number)
	}
	assert.Equal(t, []string{"INV-1", "INV-2", "INV-3"}, numbers)

	page, err := s.ListInvoices(ctx, invoice.ListOpts{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "INV-2", page[0].Number)

	past, err := s.ListInvoices(ctx, invoice.ListOpts{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestCreatePaymentsIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	invID := id.NewInvoiceID()
	existing := newPayment(invID, id.Nil, 100)
	require.NoError(t, s.CreatePayments(ctx, []*payment.Payment{existing}))

	batch := []*payment.Payment{newPayment(invID, id.NewBatchID(), 200), existing}
	err := s.CreatePayments(ctx, batch)
	require.ErrorIs(t, err, rentledger.ErrAlreadyExists)

	list, err := s.ListPayments(ctx, payment.ListOpts{InvoiceID: invID})
	require.NoError(t, err)
	assert.Len(t, list, 1, "the first payment of the rejected batch must not be stored")
}

func TestListPaymentsMatchesBills(t *testing.T) {
	ctx := context.Background()
	s := New()
	billID := id.NewInvoiceID()
	p := newPayment(id.Nil, id.Nil, 500)
	p.Type = payment.TypeExpense
	p.BillID = billID
	require.NoError(t, s.CreatePayments(ctx, []*payment.Payment{p}))

	list, err := s.ListPayments(ctx, payment.ListOpts{InvoiceID: billID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestReversal(t *testing.T) {
	ctx := context.Background()
	s := New()
	invID := id.NewInvoiceID()
	batch := id.NewBatchID()
	a := newPayment(invID, batch, 100)
	b := newPayment(invID, batch, 200)
	single := newPayment(invID, id.Nil, 300)
	require.NoError(t, s.CreatePayments(ctx, []*payment.Payment{a, b, single}))

	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.ReversePayment(ctx, single.ID, at))
	assert.ErrorIs(t, s.ReversePayment(ctx, single.ID, at), rentledger.ErrPaymentReversed)

	n, err := s.ReverseBatch(ctx, batch, at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.ReverseBatch(ctx, batch, at)
	require.NoError(t, err)
	assert.Zero(t, n)

	active, err := s.ListPayments(ctx, payment.ListOpts{InvoiceID: invID})
	require.NoError(t, err)
	assert.Empty(t, active)

	history, err := s.ListPayments(ctx, payment.ListOpts{InvoiceID: invID, IncludeReversed: true})
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestAdvanceTemplate(t *testing.T) {
	ctx := context.Background()
	s := New()
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	tpl := &recurring.Template{
		ID:          id.NewTemplateID(),
		Direction:   invoice.Receivable,
		Type:        invoice.TypeRental,
		Amount:      types.USD(100000),
		PropertyID:  "p1",
		ContactID:   "t1",
		NextDueDate: due,
		Frequency:   recurring.FrequencyMonthly,
		Active:      true,
	}
	require.NoError(t, s.CreateTemplate(ctx, tpl))

	next := *tpl
	next.NextDueDate = due.AddDate(0, 1, 0)
	inv := newInvoice("INV-1", due)
	require.NoError(t, s.AdvanceTemplate(ctx, inv, &next, due))

	// A second worker holding the old date loses.
	stale := *tpl
	stale.NextDueDate = due.AddDate(0, 1, 0)
	err := s.AdvanceTemplate(ctx, newInvoice("INV-2", due), &stale, due)
	require.ErrorIs(t, err, rentledger.ErrConflict)

	invoices, err := s.ListInvoices(ctx, invoice.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, invoices, 1)

	due2, err := s.ListTemplates(ctx, recurring.ListOpts{ActiveOnly: true, DueBefore: due.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Empty(t, due2)
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.PutEntity(ctx, &directory.Entity{Kind: directory.KindProperty, ID: "p1", Name: "Flat 1A"}))

	e, err := s.ResolveEntity(ctx, directory.KindProperty, "p1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "Flat 1A", e.Name)

	missing, err := s.ResolveEntity(ctx, directory.KindProperty, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, s.PutEntity(ctx, &directory.Entity{Kind: directory.KindUnit}))
}

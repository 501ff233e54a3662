package rentledger

import (
	"context"
	"fmt"

	"github.com/xraph/rentledger/aggregate"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/numbering"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/types"
)

// ──────────────────────────────────────────────────
// Invoices and Bills
// ──────────────────────────────────────────────────

// CreateInvoice validates and stores an invoice or bill. A missing ID or
// number is assigned; the cached paid amount starts at zero.
func (l *Ledger) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	if inv.ID.IsNil() {
		inv.ID = id.NewInvoiceID()
	}
	if inv.Direction == "" {
		inv.Direction = invoice.Receivable
	}
	if inv.Number == "" {
		inv.Number = l.numberer.Next(numbering.PrefixFor(inv.Direction))
	}
	if err := inv.Validate(); err != nil {
		return err
	}
	inv.Timestamps = types.NewTimestamps()
	inv.PaidAmount = types.Zero(inv.Currency())

	if err := l.store.CreateInvoice(ctx, inv); err != nil {
		return err
	}

	l.plugins.EmitInvoiceCreated(ctx, inv)
	return nil
}

// GetInvoice retrieves an invoice or bill by ID.
func (l *Ledger) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return l.store.GetInvoice(ctx, invID)
}

// ResolveInvoice returns an invoice with its balance and aging as of today.
func (l *Ledger) ResolveInvoice(ctx context.Context, invID id.InvoiceID) (*aggregate.Record, error) {
	inv, err := l.store.GetInvoice(ctx, invID)
	if err != nil {
		return nil, err
	}
	payments, err := l.store.ListPayments(ctx, payment.ListOpts{InvoiceID: invID})
	if err != nil {
		return nil, err
	}
	return l.record(inv, payments, l.today()), nil
}

// UpdateInvoice replaces the editable fields of an invoice. The new amount
// must still cover what has been paid.
func (l *Ledger) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	unlock := l.lockInvoices(inv.ID)
	defer unlock()

	existing, err := l.store.GetInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	if err := inv.Validate(); err != nil {
		return err
	}
	if inv.Currency() != existing.Currency() {
		return types.Invalid("amount", "currency cannot change from %s to %s", existing.Currency(), inv.Currency())
	}
	if inv.Direction != existing.Direction {
		return types.Invalid("direction", "direction cannot change")
	}

	payments, err := l.store.ListPayments(ctx, payment.ListOpts{InvoiceID: inv.ID})
	if err != nil {
		return err
	}
	b := l.resolver.Resolve(inv, payments, l.today())
	if !l.resolver.WithinCap(b.Paid, inv.Amount) {
		return types.Reject(ErrInvalidAmount, "amount", "amount %s is below the %s already paid on %s", inv.Amount, b.Paid, existing.Number)
	}

	inv.CreatedAt = existing.CreatedAt
	inv.Touch()
	inv.PaidAmount = b.Paid
	return l.store.UpdateInvoice(ctx, inv)
}

// DeleteInvoice removes an invoice or bill. It is refused while any payment
// still counts toward it; reverse or delete those payments first.
func (l *Ledger) DeleteInvoice(ctx context.Context, invID id.InvoiceID) error {
	unlock := l.lockInvoices(invID)
	defer unlock()

	inv, err := l.store.GetInvoice(ctx, invID)
	if err != nil {
		return err
	}
	payments, err := l.store.ListPayments(ctx, payment.ListOpts{InvoiceID: invID})
	if err != nil {
		return err
	}
	b := l.resolver.Resolve(inv, payments, l.today())
	if b.Paid.IsPositive() {
		return fmt.Errorf("%w: %s paid on %s", ErrInvoiceHasPayments, b.Paid, inv.Number)
	}

	if err := l.store.DeleteInvoice(ctx, invID); err != nil {
		return err
	}

	l.logger.Info("invoice deleted",
		"invoice_id", invID.String(),
		"number", inv.Number,
	)
	l.plugins.EmitInvoiceDeleted(ctx, inv)
	return nil
}

// refreshPaid recomputes the cached paid amount of each invoice. The cache
// is advisory, so failures are logged and never undo a committed mutation.
func (l *Ledger) refreshPaid(ctx context.Context, ids []id.InvoiceID) {
	for _, invID := range ids {
		inv, err := l.store.GetInvoice(ctx, invID)
		if err != nil {
			l.logger.Warn("refresh paid amount: load invoice",
				"invoice_id", invID.String(),
				"error", err,
			)
			continue
		}
		payments, err := l.store.ListPayments(ctx, payment.ListOpts{InvoiceID: invID})
		if err != nil {
			l.logger.Warn("refresh paid amount: load payments",
				"invoice_id", invID.String(),
				"error", err,
			)
			continue
		}
		b := l.resolver.Resolve(inv, payments, l.today())
		if err := l.store.SetPaidAmount(ctx, invID, b.Paid); err != nil {
			l.logger.Warn("refresh paid amount",
				"invoice_id", invID.String(),
				"error", err,
			)
		}
	}
}

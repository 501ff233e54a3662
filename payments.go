package rentledger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/xraph/rentledger/allocation"
	"github.com/xraph/rentledger/balance"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/types"
)

// ──────────────────────────────────────────────────
// Payment Allocation
// ──────────────────────────────────────────────────

// AllocateSplit records one collection on an invoice, split between its rent
// and security-deposit sub-ledgers. Each non-zero part becomes a payment in
// one batch. Nothing is stored when the request is rejected.
func (l *Ledger) AllocateSplit(ctx context.Context, invID id.InvoiceID, req allocation.SplitRequest) (*allocation.Plan, error) {
	unlock := l.lockInvoices(invID)
	defer unlock()

	today := l.today()
	if req.Date.IsZero() {
		req.Date = today
	}

	target, err := l.loadTarget(ctx, invID, today)
	if err != nil {
		return nil, err
	}
	engine, err := l.engine(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := engine.Split(target.Invoice, target.Balance, req)
	if err != nil {
		l.rejectAllocation(ctx, []id.InvoiceID{invID}, err)
		return nil, err
	}
	if err := l.commitPlan(ctx, plan, []allocation.Target{target}, today); err != nil {
		return nil, err
	}
	return plan, nil
}

// AllocateBatch spreads one collected total over several invoices, oldest
// due date first. Every payment shares the plan's BatchID; what cannot be
// placed is reported as Plan.Unallocated and not stored.
func (l *Ledger) AllocateBatch(ctx context.Context, invoiceIDs []id.InvoiceID, req allocation.BatchRequest) (*allocation.Plan, error) {
	ids := uniqueIDs(invoiceIDs)
	if len(ids) == 0 {
		err := types.Reject(ErrNothingToAllocate, "invoices", "no invoices selected")
		l.rejectAllocation(ctx, nil, err)
		return nil, err
	}

	unlock := l.lockInvoices(ids...)
	defer unlock()

	today := l.today()
	if req.Date.IsZero() {
		req.Date = today
	}

	targets := make([]allocation.Target, 0, len(ids))
	for _, invID := range ids {
		t, err := l.loadTarget(ctx, invID, today)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	engine, err := l.engine(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := engine.Waterfall(targets, req)
	if err != nil {
		l.rejectAllocation(ctx, ids, err)
		return nil, err
	}
	if err := l.commitPlan(ctx, plan, targets, today); err != nil {
		return nil, err
	}
	return plan, nil
}

// PreviewBatch plans a batch allocation without storing it.
func (l *Ledger) PreviewBatch(ctx context.Context, invoiceIDs []id.InvoiceID, req allocation.BatchRequest) (*allocation.Plan, error) {
	today := l.today()
	if req.Date.IsZero() {
		req.Date = today
	}
	var targets []allocation.Target
	for _, invID := range uniqueIDs(invoiceIDs) {
		t, err := l.loadTarget(ctx, invID, today)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	engine, err := l.engine(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Waterfall(targets, req)
}

func (l *Ledger) loadTarget(ctx context.Context, invID id.InvoiceID, today time.Time) (allocation.Target, error) {
	inv, err := l.store.GetInvoice(ctx, invID)
	if err != nil {
		return allocation.Target{}, err
	}
	payments, err := l.store.ListPayments(ctx, payment.ListOpts{InvoiceID: invID})
	if err != nil {
		return allocation.Target{}, err
	}
	return allocation.Target{Invoice: inv, Balance: l.resolver.Resolve(inv, payments, today)}, nil
}

func (l *Ledger) engine(ctx context.Context) (*allocation.Engine, error) {
	cats, err := l.categories(ctx)
	if err != nil {
		return nil, err
	}
	return allocation.New(l.resolver, cats), nil
}

// commitPlan stores every payment of plan in one call, then refreshes the
// paid cache and fires hooks for invoices the plan settled.
func (l *Ledger) commitPlan(ctx context.Context, plan *allocation.Plan, targets []allocation.Target, today time.Time) error {
	if err := l.store.CreatePayments(ctx, plan.Payments); err != nil {
		return fmt.Errorf("commit batch %s: %w", plan.BatchID, err)
	}

	touched := plan.InvoiceIDs()
	for _, t := range targets {
		if !slices.Contains(touched, t.Invoice.ID) {
			continue
		}
		after := l.resolver.Resolve(t.Invoice, plan.Payments, today)
		paid := t.Balance.Paid.Add(after.Paid)
		if err := l.store.SetPaidAmount(ctx, t.Invoice.ID, paid); err != nil {
			l.logger.Warn("refresh paid amount",
				"invoice_id", t.Invoice.ID.String(),
				"error", err,
			)
		}
		if t.Balance.Status != invoice.StatusPaid && l.settled(t.Invoice, paid) {
			t.Invoice.PaidAmount = paid
			l.plugins.EmitInvoicePaid(ctx, t.Invoice)
		}
	}

	l.logger.Info("payments applied",
		"batch_id", plan.BatchID.String(),
		"payments", len(plan.Payments),
		"applied", plan.Applied.String(),
		"unallocated", plan.Unallocated.String(),
	)
	l.plugins.EmitPaymentsApplied(ctx, plan.BatchID, plan.Payments)
	return nil
}

// settled reports whether paid leaves at most ε of inv unpaid.
func (l *Ledger) settled(inv *invoice.Invoice, paid types.Money) bool {
	return inv.Amount.Subtract(paid).Amount <= l.resolver.Epsilon(inv.Currency())
}

func (l *Ledger) rejectAllocation(ctx context.Context, ids []id.InvoiceID, err error) {
	l.logger.Warn("allocation rejected",
		"invoices", len(ids),
		"error", err,
	)
	l.plugins.EmitAllocationRejected(ctx, ids, err)
}

func uniqueIDs(ids []id.InvoiceID) []id.InvoiceID {
	seen := make(map[string]struct{}, len(ids))
	out := make([]id.InvoiceID, 0, len(ids))
	for _, invID := range ids {
		if invID.IsNil() {
			continue
		}
		if _, ok := seen[invID.String()]; ok {
			continue
		}
		seen[invID.String()] = struct{}{}
		out = append(out, invID)
	}
	return out
}

// ──────────────────────────────────────────────────
// Payment History and Reversal
// ──────────────────────────────────────────────────

// GetPayment retrieves a payment by ID.
func (l *Ledger) GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error) {
	return l.store.GetPayment(ctx, payID)
}

// PaymentHistory lists payments, reversed ones included when requested.
func (l *Ledger) PaymentHistory(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	return l.store.ListPayments(ctx, opts)
}

// RecordPayment stores a single payment, optionally linked to an invoice.
// A linked payment is capped at the remaining balance of the invoice and of
// the rent or deposit sub-ledger it posts to, and is tagged with the
// category that sub-ledger resolves to.
func (l *Ledger) RecordPayment(ctx context.Context, p *payment.Payment) error {
	if !p.Amount.IsPositive() {
		return types.Reject(ErrInvalidAmount, "amount", "must be positive, got %s", p.Amount)
	}
	if p.ID.IsNil() {
		p.ID = id.NewPaymentID()
	}
	if p.Date.IsZero() {
		p.Date = l.today()
	}
	p.Timestamps = types.NewTimestamps()

	target := p.Target()
	if target.IsNil() {
		if p.Type == "" {
			p.Type = payment.TypeIncome
		}
		return l.store.CreatePayments(ctx, []*payment.Payment{p})
	}

	unlock := l.lockInvoices(target)
	defer unlock()

	t, err := l.loadTarget(ctx, target, l.today())
	if err != nil {
		return err
	}
	if p.Amount.Currency != t.Invoice.Currency() {
		return types.Invalid("currency", "payment is in %s, invoice %s is in %s", p.Amount.Currency, t.Invoice.Number, t.Invoice.Currency())
	}
	p.Type = balance.PaymentTypeFor(t.Invoice.Direction)
	engine, err := l.engine(ctx)
	if err != nil {
		return err
	}
	if err := engine.Tag(t.Invoice, t.Balance, p); err != nil {
		l.rejectAllocation(ctx, []id.InvoiceID{target}, err)
		return err
	}

	if err := l.store.CreatePayments(ctx, []*payment.Payment{p}); err != nil {
		return err
	}
	l.refreshPaid(ctx, []id.InvoiceID{target})
	l.plugins.EmitPaymentsApplied(ctx, p.BatchID, []*payment.Payment{p})
	if t.Balance.Status != invoice.StatusPaid && l.settled(t.Invoice, t.Balance.Paid.Add(p.Amount)) {
		l.plugins.EmitInvoicePaid(ctx, t.Invoice)
	}
	return nil
}

// ReversePayment marks a payment reversed. It stops counting toward its
// invoice, whose status is re-derived on the next read.
func (l *Ledger) ReversePayment(ctx context.Context, payID id.PaymentID) error {
	p, err := l.store.GetPayment(ctx, payID)
	if err != nil {
		return err
	}
	target := p.Target()
	if !target.IsNil() {
		unlock := l.lockInvoices(target)
		defer unlock()
		// Reload under the lock; a concurrent reversal may have won.
		if p, err = l.store.GetPayment(ctx, payID); err != nil {
			return err
		}
	}
	if !p.Active() {
		return fmt.Errorf("%w: %s", ErrPaymentReversed, payID)
	}

	at := l.today()
	if err := l.store.ReversePayment(ctx, payID, at); err != nil {
		return err
	}
	p.ReversedAt = &at

	if !target.IsNil() {
		l.refreshPaid(ctx, []id.InvoiceID{target})
	}
	l.logger.Info("payment reversed",
		"payment_id", payID.String(),
		"amount", p.Amount.String(),
	)
	l.plugins.EmitPaymentsReversed(ctx, []*payment.Payment{p})
	return nil
}

// ReverseBatch reverses every active payment of a batch in one store call.
func (l *Ledger) ReverseBatch(ctx context.Context, batchID id.BatchID) ([]*payment.Payment, error) {
	payments, err := l.store.ListPayments(ctx, payment.ListOpts{BatchID: batchID})
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}

	targets := make([]id.InvoiceID, 0, len(payments))
	for _, p := range payments {
		if t := p.Target(); !t.IsNil() {
			targets = append(targets, t)
		}
	}
	targets = uniqueIDs(targets)
	unlock := l.lockInvoices(targets...)
	defer unlock()

	at := l.today()
	n, err := l.store.ReverseBatch(ctx, batchID, at)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: batch %s", ErrPaymentReversed, batchID)
	}
	for _, p := range payments {
		p.ReversedAt = &at
	}

	l.refreshPaid(ctx, targets)
	l.logger.Info("batch reversed",
		"batch_id", batchID.String(),
		"payments", n,
	)
	l.plugins.EmitPaymentsReversed(ctx, payments)
	return payments, nil
}

// DeletePayment removes a payment outright. Prefer ReversePayment when the
// history must be kept.
func (l *Ledger) DeletePayment(ctx context.Context, payID id.PaymentID) error {
	p, err := l.store.GetPayment(ctx, payID)
	if err != nil {
		return err
	}
	target := p.Target()
	if !target.IsNil() {
		unlock := l.lockInvoices(target)
		defer unlock()
	}

	if err := l.store.DeletePayment(ctx, payID); err != nil {
		return err
	}
	if !target.IsNil() {
		l.refreshPaid(ctx, []id.InvoiceID{target})
	}
	l.logger.Info("payment deleted",
		"payment_id", payID.String(),
	)
	return nil
}

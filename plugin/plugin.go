// Package plugin provides an extensible plugin system for rentledger.
// Plugins hook into ledger events (payments applied or reversed, invoices
// generated by the scheduler, rejected allocations) to add audit trails,
// metrics or notifications without touching the engine.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/recurring"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated is called after an invoice or bill is created by hand.
type OnInvoiceCreated interface {
	Plugin
	OnInvoiceCreated(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoiceDeleted is called after an invoice or bill is deleted.
type OnInvoiceDeleted interface {
	Plugin
	OnInvoiceDeleted(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoicePaid is called when a payment brings an invoice to Paid.
type OnInvoicePaid interface {
	Plugin
	OnInvoicePaid(ctx context.Context, inv *invoice.Invoice) error
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentsApplied is called after an allocation commits. All payments
// share batchID.
type OnPaymentsApplied interface {
	Plugin
	OnPaymentsApplied(ctx context.Context, batchID id.BatchID, payments []*payment.Payment) error
}

// OnPaymentsReversed is called after payments are reversed.
type OnPaymentsReversed interface {
	Plugin
	OnPaymentsReversed(ctx context.Context, payments []*payment.Payment) error
}

// OnAllocationRejected is called when an allocation is refused. Nothing was
// written.
type OnAllocationRejected interface {
	Plugin
	OnAllocationRejected(ctx context.Context, invoiceIDs []id.InvoiceID, reason error) error
}

// ──────────────────────────────────────────────────
// Recurring hooks
// ──────────────────────────────────────────────────

// OnTemplateMemorized is called when an invoice pattern is memorized.
type OnTemplateMemorized interface {
	Plugin
	OnTemplateMemorized(ctx context.Context, t *recurring.Template) error
}

// OnInvoiceGenerated is called when the scheduler creates an invoice.
type OnInvoiceGenerated interface {
	Plugin
	OnInvoiceGenerated(ctx context.Context, inv *invoice.Invoice, t *recurring.Template) error
}

// OnTemplateAdvanced is called after a template's next due date moves.
type OnTemplateAdvanced interface {
	Plugin
	OnTemplateAdvanced(ctx context.Context, t *recurring.Template, previousDue time.Time) error
}

// OnScheduleChecked is called after every recurring check.
type OnScheduleChecked interface {
	Plugin
	OnScheduleChecked(ctx context.Context, generated, advanced, failed int, elapsed time.Duration) error
}

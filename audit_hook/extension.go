// Package audithook bridges rentledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/plugin"
	"github.com/xraph/rentledger/recurring"
	"github.com/xraph/rentledger/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnInvoiceCreated     = (*Extension)(nil)
	_ plugin.OnInvoiceDeleted     = (*Extension)(nil)
	_ plugin.OnInvoicePaid        = (*Extension)(nil)
	_ plugin.OnPaymentsApplied    = (*Extension)(nil)
	_ plugin.OnPaymentsReversed   = (*Extension)(nil)
	_ plugin.OnAllocationRejected = (*Extension)(nil)
	_ plugin.OnTemplateMemorized  = (*Extension)(nil)
	_ plugin.OnInvoiceGenerated   = (*Extension)(nil)
	_ plugin.OnTemplateAdvanced   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (e *Extension) OnInvoiceCreated(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoiceCreated, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryBilling, nil,
		invoiceAttrs(inv)...,
	)
}

// OnInvoiceDeleted implements plugin.OnInvoiceDeleted.
func (e *Extension) OnInvoiceDeleted(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoiceDeleted, SeverityWarning, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryBilling, nil,
		invoiceAttrs(inv)...,
	)
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (e *Extension) OnInvoicePaid(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoicePaid, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryPayment, nil,
		invoiceAttrs(inv)...,
	)
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentsApplied implements plugin.OnPaymentsApplied.
func (e *Extension) OnPaymentsApplied(ctx context.Context, batchID id.BatchID, payments []*payment.Payment) error {
	return e.record(ctx, ActionPaymentsApplied, SeverityInfo, OutcomeSuccess,
		ResourceBatch, batchID.String(), CategoryPayment, nil,
		"payments", len(payments),
		"total", total(payments).String(),
	)
}

// OnPaymentsReversed implements plugin.OnPaymentsReversed.
func (e *Extension) OnPaymentsReversed(ctx context.Context, payments []*payment.Payment) error {
	var batch string
	if len(payments) > 0 {
		batch = payments[0].BatchID.String()
	}
	return e.record(ctx, ActionPaymentsReversed, SeverityWarning, OutcomeSuccess,
		ResourceBatch, batch, CategoryPayment, nil,
		"payments", len(payments),
		"total", total(payments).String(),
	)
}

// OnAllocationRejected implements plugin.OnAllocationRejected.
func (e *Extension) OnAllocationRejected(ctx context.Context, invoiceIDs []id.InvoiceID, reason error) error {
	ids := make([]string, len(invoiceIDs))
	for i, invID := range invoiceIDs {
		ids[i] = invID.String()
	}
	var resourceID string
	if len(ids) == 1 {
		resourceID = ids[0]
	}
	return e.record(ctx, ActionAllocationRejected, SeverityWarning, OutcomeFailure,
		ResourceInvoice, resourceID, CategoryPayment, reason,
		"invoice_ids", ids,
	)
}

// ──────────────────────────────────────────────────
// Recurring hooks
// ──────────────────────────────────────────────────

// OnTemplateMemorized implements plugin.OnTemplateMemorized.
func (e *Extension) OnTemplateMemorized(ctx context.Context, t *recurring.Template) error {
	return e.record(ctx, ActionTemplateMemorized, SeverityInfo, OutcomeSuccess,
		ResourceTemplate, t.ID.String(), CategoryScheduling, nil,
		"amount", t.Amount.String(),
		"next_due_date", t.NextDueDate.Format(time.DateOnly),
		"property_id", t.PropertyID,
	)
}

// OnInvoiceGenerated implements plugin.OnInvoiceGenerated.
func (e *Extension) OnInvoiceGenerated(ctx context.Context, inv *invoice.Invoice, t *recurring.Template) error {
	return e.record(ctx, ActionInvoiceGenerated, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryScheduling, nil,
		append(invoiceAttrs(inv), "template_id", t.ID.String(), "period", inv.Period)...,
	)
}

// OnTemplateAdvanced implements plugin.OnTemplateAdvanced.
func (e *Extension) OnTemplateAdvanced(ctx context.Context, t *recurring.Template, previousDue time.Time) error {
	return e.record(ctx, ActionTemplateAdvanced, SeverityInfo, OutcomeSuccess,
		ResourceTemplate, t.ID.String(), CategoryScheduling, nil,
		"previous_due_date", previousDue.Format(time.DateOnly),
		"next_due_date", t.NextDueDate.Format(time.DateOnly),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func invoiceAttrs(inv *invoice.Invoice) []any {
	return []any{
		"number", inv.Number,
		"direction", string(inv.Direction),
		"amount", inv.Amount.String(),
		"property_id", inv.PropertyID,
		"contact_id", inv.ContactID,
	}
}

func total(payments []*payment.Payment) types.Money {
	var sum types.Money
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

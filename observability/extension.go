// Package observability provides a metrics extension for rentledger that
// records event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/plugin"
	"github.com/xraph/rentledger/recurring"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceCreated     = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceDeleted     = (*MetricsExtension)(nil)
	_ plugin.OnInvoicePaid        = (*MetricsExtension)(nil)
	_ plugin.OnPaymentsApplied    = (*MetricsExtension)(nil)
	_ plugin.OnPaymentsReversed   = (*MetricsExtension)(nil)
	_ plugin.OnAllocationRejected = (*MetricsExtension)(nil)
	_ plugin.OnTemplateMemorized  = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceGenerated   = (*MetricsExtension)(nil)
	_ plugin.OnTemplateAdvanced   = (*MetricsExtension)(nil)
	_ plugin.OnScheduleChecked    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger-wide metrics.
// Register it as a ledger plugin to track collections and scheduling.
type MetricsExtension struct {
	factory MetricFactory

	// Invoice metrics
	InvoiceCreated Counter
	InvoiceDeleted Counter
	InvoicePaid    Counter
	InvoiceAmount  Histogram

	// Payment metrics
	PaymentsApplied     Counter
	PaymentsReversed    Counter
	AllocationBatchSize Histogram
	AllocationAmount    Histogram
	AllocationRejected  Counter

	// Recurring metrics
	TemplateMemorized Counter
	InvoiceGenerated  Counter
	TemplateAdvanced  Counter
	ScheduleFailures  Counter
	ScheduleLatency   Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		InvoiceCreated: factory.Counter("rentledger.invoice.created"),
		InvoiceDeleted: factory.Counter("rentledger.invoice.deleted"),
		InvoicePaid:    factory.Counter("rentledger.invoice.paid"),
		InvoiceAmount:  factory.Histogram("rentledger.invoice.amount"),

		PaymentsApplied:     factory.Counter("rentledger.payments.applied"),
		PaymentsReversed:    factory.Counter("rentledger.payments.reversed"),
		AllocationBatchSize: factory.Histogram("rentledger.allocation.batch.size"),
		AllocationAmount:    factory.Histogram("rentledger.allocation.amount"),
		AllocationRejected:  factory.Counter("rentledger.allocation.rejected"),

		TemplateMemorized: factory.Counter("rentledger.template.memorized"),
		InvoiceGenerated:  factory.Counter("rentledger.invoice.generated"),
		TemplateAdvanced:  factory.Counter("rentledger.template.advanced"),
		ScheduleFailures:  factory.Counter("rentledger.schedule.failures"),
		ScheduleLatency:   factory.Histogram("rentledger.schedule.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (m *MetricsExtension) OnInvoiceCreated(_ context.Context, inv *invoice.Invoice) error {
	m.InvoiceCreated.Inc()
	m.InvoiceAmount.Observe(inv.Amount.Decimal().InexactFloat64())
	return nil
}

// OnInvoiceDeleted implements plugin.OnInvoiceDeleted.
func (m *MetricsExtension) OnInvoiceDeleted(_ context.Context, _ *invoice.Invoice) error {
	m.InvoiceDeleted.Inc()
	return nil
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (m *MetricsExtension) OnInvoicePaid(_ context.Context, _ *invoice.Invoice) error {
	m.InvoicePaid.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentsApplied implements plugin.OnPaymentsApplied.
func (m *MetricsExtension) OnPaymentsApplied(_ context.Context, _ id.BatchID, payments []*payment.Payment) error {
	count := float64(len(payments))
	m.PaymentsApplied.Add(count)
	m.AllocationBatchSize.Observe(count)
	for _, p := range payments {
		m.AllocationAmount.Observe(p.Amount.Decimal().InexactFloat64())
	}
	return nil
}

// OnPaymentsReversed implements plugin.OnPaymentsReversed.
func (m *MetricsExtension) OnPaymentsReversed(_ context.Context, payments []*payment.Payment) error {
	m.PaymentsReversed.Add(float64(len(payments)))
	return nil
}

// OnAllocationRejected implements plugin.OnAllocationRejected.
func (m *MetricsExtension) OnAllocationRejected(_ context.Context, _ []id.InvoiceID, _ error) error {
	m.AllocationRejected.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Recurring hooks
// ──────────────────────────────────────────────────

// OnTemplateMemorized implements plugin.OnTemplateMemorized.
func (m *MetricsExtension) OnTemplateMemorized(_ context.Context, _ *recurring.Template) error {
	m.TemplateMemorized.Inc()
	return nil
}

// OnInvoiceGenerated implements plugin.OnInvoiceGenerated.
func (m *MetricsExtension) OnInvoiceGenerated(_ context.Context, _ *invoice.Invoice, _ *recurring.Template) error {
	m.InvoiceGenerated.Inc()
	return nil
}

// OnTemplateAdvanced implements plugin.OnTemplateAdvanced.
func (m *MetricsExtension) OnTemplateAdvanced(_ context.Context, _ *recurring.Template, _ time.Time) error {
	m.TemplateAdvanced.Inc()
	return nil
}

// OnScheduleChecked implements plugin.OnScheduleChecked.
func (m *MetricsExtension) OnScheduleChecked(_ context.Context, _, _, failed int, elapsed time.Duration) error {
	if failed > 0 {
		m.ScheduleFailures.Add(float64(failed))
	}
	m.ScheduleLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

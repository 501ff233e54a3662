package audithook

// Action constants for audit events.
const (
	// Invoice actions
	ActionInvoiceCreated   = "invoice.created"
	ActionInvoiceDeleted   = "invoice.deleted"
	ActionInvoicePaid      = "invoice.paid"
	ActionInvoiceGenerated = "invoice.generated"

	// Payment actions
	ActionPaymentsApplied    = "payments.applied"
	ActionPaymentsReversed   = "payments.reversed"
	ActionAllocationRejected = "allocation.rejected"

	// Recurring actions
	ActionTemplateMemorized = "template.memorized"
	ActionTemplateAdvanced  = "template.advanced"
)

// Resource constants for audit events.
const (
	ResourceInvoice  = "invoice"
	ResourceBatch    = "batch"
	ResourceTemplate = "template"
)

// Category constants for audit events.
const (
	CategoryBilling    = "billing"
	CategoryPayment    = "payment"
	CategoryScheduling = "scheduling"
)

// Severity levels for audit events.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

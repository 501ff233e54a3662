package rentledger

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/numbering"
	"github.com/xraph/rentledger/recurring"
	"github.com/xraph/rentledger/schedule"
	"github.com/xraph/rentledger/types"
)

// ──────────────────────────────────────────────────
// Recurring Templates
// ──────────────────────────────────────────────────

// MemorizeOptions configures a template created from an existing invoice.
type MemorizeOptions struct {
	Frequency recurring.Frequency
	// DayOfMonth defaults to the invoice's issue day.
	DayOfMonth int
	// DueAfterDays defaults to the invoice's issue-to-due gap.
	DueAfterDays *int
	// NextDueDate defaults to one period after the invoice's issue date.
	NextDueDate         time.Time
	EndDate             *time.Time
	DescriptionTemplate string
	NumberPrefix        string
}

// CreateTemplate validates and stores a recurring template.
func (l *Ledger) CreateTemplate(ctx context.Context, t *recurring.Template) error {
	if t.ID.IsNil() {
		t.ID = id.NewTemplateID()
	}
	if t.Direction == "" {
		t.Direction = invoice.Receivable
	}
	if err := t.Validate(); err != nil {
		return err
	}
	t.Timestamps = types.NewTimestamps()

	if err := l.store.CreateTemplate(ctx, t); err != nil {
		return err
	}

	l.plugins.EmitTemplateMemorized(ctx, t)
	return nil
}

// Memorize turns an invoice into an active recurring template. The invoice
// itself covers the current period, so generation starts one period later.
func (l *Ledger) Memorize(ctx context.Context, invID id.InvoiceID, opts MemorizeOptions) (*recurring.Template, error) {
	inv, err := l.store.GetInvoice(ctx, invID)
	if err != nil {
		return nil, err
	}
	if opts.Frequency == "" {
		opts.Frequency = recurring.FrequencyMonthly
	}

	day := opts.DayOfMonth
	if day == 0 {
		day = inv.IssueDate.Day()
	}
	dueAfter := types.DaysBetween(inv.IssueDate, inv.DueDate)
	if opts.DueAfterDays != nil {
		dueAfter = *opts.DueAfterDays
	}
	next := opts.NextDueDate
	if next.IsZero() {
		next = schedule.Advance(types.Date(inv.IssueDate), opts.Frequency, day)
	}

	t := &recurring.Template{
		Direction:             inv.Direction,
		Type:                  inv.Type,
		Amount:                inv.Amount,
		AgreementID:           inv.AgreementID,
		PropertyID:            inv.PropertyID,
		ContactID:             inv.ContactID,
		BuildingID:            inv.BuildingID,
		ProjectID:             inv.ProjectID,
		UnitID:                inv.UnitID,
		CategoryID:            inv.CategoryID,
		SecurityDepositCharge: inv.SecurityDepositCharge,
		ServiceCharges:        inv.ServiceCharges,
		DayOfMonth:            day,
		NextDueDate:           next,
		Frequency:             opts.Frequency,
		DueAfterDays:          dueAfter,
		EndDate:               opts.EndDate,
		Active:                true,
		DescriptionTemplate:   opts.DescriptionTemplate,
		NumberPrefix:          opts.NumberPrefix,
	}
	if err := l.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTemplate retrieves a recurring template by ID.
func (l *Ledger) GetTemplate(ctx context.Context, tplID id.TemplateID) (*recurring.Template, error) {
	return l.store.GetTemplate(ctx, tplID)
}

// ListTemplates lists recurring templates.
func (l *Ledger) ListTemplates(ctx context.Context, opts recurring.ListOpts) ([]*recurring.Template, error) {
	return l.store.ListTemplates(ctx, opts)
}

// SetTemplateActive pauses or resumes a template.
func (l *Ledger) SetTemplateActive(ctx context.Context, tplID id.TemplateID, active bool) error {
	t, err := l.store.GetTemplate(ctx, tplID)
	if err != nil {
		return err
	}
	if t.Active == active {
		return nil
	}
	t.Active = active
	t.Touch()
	return l.store.UpdateTemplate(ctx, t)
}

// Unmemorize deletes a template. Invoices it generated are kept.
func (l *Ledger) Unmemorize(ctx context.Context, tplID id.TemplateID) error {
	return l.store.DeleteTemplate(ctx, tplID)
}

// ──────────────────────────────────────────────────
// Recurring Generation
// ──────────────────────────────────────────────────

// RecurringResult summarizes one recurring run.
type RecurringResult struct {
	Generated []*invoice.Invoice `json:"generated"`
	// Advanced counts committed steps, including those that only moved the
	// date because the period already had an invoice.
	Advanced int           `json:"advanced"`
	Failed   int           `json:"failed"`
	Elapsed  time.Duration `json:"elapsed"`
}

// RunRecurring generates the invoices of every due template and advances
// their next due date. Missed periods are caught up, at most maxCatchUp per
// template. A period that already has an invoice for the template's scope is
// skipped but still advanced, so running twice on one day creates nothing
// new. Per-template failures are collected into a MultiError; steps already
// committed stay committed.
func (l *Ledger) RunRecurring(ctx context.Context) (*RecurringResult, error) {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	start := time.Now()
	today := l.today()
	res := &RecurringResult{}

	templates, err := l.store.ListTemplates(ctx, recurring.ListOpts{
		ActiveOnly: true,
		DueBefore:  types.Date(today).AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	invoices, err := l.store.ListInvoices(ctx, invoice.ListOpts{})
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}

	ix := schedule.NewIndex(invoices)
	planner := schedule.NewPlanner(l.numberer, numbering.PrefixFor)

	var errs MultiError
	for _, t := range templates {
		if err := ctx.Err(); err != nil {
			errs.Add(err)
			break
		}
		for _, step := range planner.PlanCatchUp(t, ix, today, l.maxCatchUp) {
			if err := l.store.AdvanceTemplate(ctx, step.Invoice, step.Template, step.Expected); err != nil {
				res.Failed++
				errs.Add(fmt.Errorf("template %s period %s: %w", t.ID, step.Period, err))
				l.logger.Warn("recurring step failed",
					"template_id", t.ID.String(),
					"period", step.Period,
					"error", err,
				)
				break
			}

			res.Advanced++
			if step.Invoice != nil {
				res.Generated = append(res.Generated, step.Invoice)
				l.plugins.EmitInvoiceGenerated(ctx, step.Invoice, step.Template)
			}
			l.plugins.EmitTemplateAdvanced(ctx, step.Template, step.Expected)
		}
	}

	res.Elapsed = time.Since(start)
	l.plugins.EmitScheduleChecked(ctx, len(res.Generated), res.Advanced, res.Failed, res.Elapsed)
	if res.Advanced > 0 || res.Failed > 0 {
		l.logger.Info("recurring run complete",
			"templates", len(templates),
			"generated", len(res.Generated),
			"advanced", res.Advanced,
			"failed", res.Failed,
			"elapsed_ms", res.Elapsed.Milliseconds(),
		)
	}
	return res, errs.ErrOrNil()
}

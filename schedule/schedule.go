// Package schedule decides which recurring templates are due and plans the
// invoice each one generates. Planning is pure; the caller commits every
// step (invoice creation plus date advance) as one atomic store call.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/recurring"
	"github.com/xraph/rentledger/types"
)

// Due reports whether t should generate an invoice on today.
func Due(t *recurring.Template, today time.Time) bool {
	if !t.Active || t.NextDueDate.IsZero() {
		return false
	}
	next := types.Date(t.NextDueDate)
	if next.After(types.Date(today)) {
		return false
	}
	return t.EndDate == nil || !next.After(types.Date(*t.EndDate))
}

// PeriodKey names the billing period containing date: "2026-10" (monthly),
// "2026-Q4" (quarterly), "2026" (yearly) or "2026-W42" (weekly, ISO week).
func PeriodKey(freq recurring.Frequency, date time.Time) string {
	switch freq {
	case recurring.FrequencyWeekly:
		y, w := date.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case recurring.FrequencyQuarterly:
		return fmt.Sprintf("%04d-Q%d", date.Year(), (int(date.Month())-1)/3+1)
	case recurring.FrequencyYearly:
		return fmt.Sprintf("%04d", date.Year())
	case recurring.FrequencyMonthly:
	}
	return fmt.Sprintf("%04d-%02d", date.Year(), int(date.Month()))
}

// Advance moves date forward by one frequency unit. Month-based frequencies
// land on dayOfMonth (or date's own day when zero), clamped to the last day
// of short months, so Jan 31 → Feb 28 → Mar 31.
func Advance(date time.Time, freq recurring.Frequency, dayOfMonth int) time.Time {
	switch freq {
	case recurring.FrequencyWeekly:
		return date.AddDate(0, 0, 7)
	case recurring.FrequencyQuarterly:
		return addMonths(date, 3, dayOfMonth)
	case recurring.FrequencyYearly:
		return addMonths(date, 12, dayOfMonth)
	case recurring.FrequencyMonthly:
	}
	return addMonths(date, 1, dayOfMonth)
}

func addMonths(date time.Time, months, dayOfMonth int) time.Time {
	if dayOfMonth <= 0 {
		dayOfMonth = date.Day()
	}
	// Day 1 avoids time.AddDate's overflow into the following month.
	first := time.Date(date.Year(), date.Month(), 1, date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
	first = first.AddDate(0, months, 0)
	day := min(dayOfMonth, daysIn(first.Year(), first.Month()))
	return first.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Describe substitutes {Month} ("October 2026"), {Year} and {Period} in a
// description template. An empty template yields "<Type> - <Month>".
func Describe(tmpl string, typ invoice.Type, due time.Time, period string) string {
	month := due.Format("January 2006")
	if tmpl == "" {
		return typeLabel(typ) + " - " + month
	}
	return strings.NewReplacer(
		"{Month}", month,
		"{Year}", due.Format("2006"),
		"{Period}", period,
	).Replace(tmpl)
}

func typeLabel(t invoice.Type) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(string(t), "_", " "))
}

// Numberer issues invoice numbers.
type Numberer interface {
	Next(prefix string) string
}

// Step is one planned generation: the invoice to create (nil when the period
// already has one) and the template as it should be stored afterwards.
type Step struct {
	Period string
	// Expected is the template's NextDueDate before the step. Stores use it
	// to refuse a step that another worker already committed.
	Expected time.Time
	Invoice  *invoice.Invoice
	Template *recurring.Template
}

// Planner builds steps for due templates.
type Planner struct {
	numberer Numberer
	prefix   func(invoice.Direction) string
}

// NewPlanner returns a Planner. prefix picks the number prefix for templates
// without their own NumberPrefix.
func NewPlanner(n Numberer, prefix func(invoice.Direction) string) *Planner {
	return &Planner{numberer: n, prefix: prefix}
}

// Plan returns the next step for t, or false when t is not due. The index is
// updated with the planned invoice so catch-up runs see it.
func (p *Planner) Plan(t *recurring.Template, ix *Index, today time.Time) (Step, bool) {
	if !Due(t, today) {
		return Step{}, false
	}

	next := *t
	due := t.NextDueDate
	period := PeriodKey(t.Frequency, due)
	step := Step{Period: period, Expected: t.NextDueDate, Template: &next}

	if !ix.Exists(t, period) {
		step.Invoice = p.invoiceFor(t, due, period)
		ix.Add(step.Invoice)
		next.GeneratedCount++
	}

	ran := today
	next.LastRunAt = &ran
	next.NextDueDate = Advance(due, t.Frequency, t.DayOfMonth)
	next.Touch()
	return step, true
}

// PlanCatchUp plans consecutive steps until t is no longer due or limit
// steps have been planned. Each step's Expected equals the previous step's
// new NextDueDate, so steps must be committed in order.
func (p *Planner) PlanCatchUp(t *recurring.Template, ix *Index, today time.Time, limit int) []Step {
	var steps []Step
	cur := t
	for limit <= 0 || len(steps) < limit {
		step, ok := p.Plan(cur, ix, today)
		if !ok {
			break
		}
		steps = append(steps, step)
		cur = step.Template
	}
	return steps
}

func (p *Planner) invoiceFor(t *recurring.Template, due time.Time, period string) *invoice.Invoice {
	prefix := t.NumberPrefix
	if prefix == "" && p.prefix != nil {
		prefix = p.prefix(t.Direction)
	}
	var number string
	if p.numberer != nil {
		number = p.numberer.Next(prefix)
	}

	issue := types.Date(due)
	return &invoice.Invoice{
		Timestamps:            types.NewTimestamps(),
		ID:                    id.NewInvoiceID(),
		Number:                number,
		Direction:             t.Direction,
		Type:                  t.Type,
		Amount:                t.Amount,
		PaidAmount:            types.Zero(t.Amount.Currency),
		SecurityDepositCharge: t.SecurityDepositCharge,
		ServiceCharges:        t.ServiceCharges,
		IssueDate:             issue,
		DueDate:               issue.AddDate(0, 0, max(t.DueAfterDays, 0)),
		Description:           Describe(t.DescriptionTemplate, t.Type, due, period),
		ContactID:             t.ContactID,
		PropertyID:            t.PropertyID,
		BuildingID:            t.BuildingID,
		ProjectID:             t.ProjectID,
		UnitID:                t.UnitID,
		AgreementID:           t.AgreementID,
		CategoryID:            t.CategoryID,
		TemplateID:            t.ID,
		Period:                period,
	}
}

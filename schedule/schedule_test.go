package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/recurring"
	"github.com/xraph/rentledger/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type counter struct{ n int }

func (c *counter) Next(prefix string) string {
	c.n++
	return fmt.Sprintf("%s-%03d", prefix, c.n)
}

func monthly(next time.Time) *recurring.Template {
	return &recurring.Template{
		ID:                  id.NewTemplateID(),
		Direction:           invoice.Receivable,
		Type:                invoice.TypeRental,
		Amount:              types.USD(100000),
		PropertyID:          "p1",
		ContactID:           "t1",
		DayOfMonth:          next.Day(),
		NextDueDate:         next,
		Frequency:           recurring.FrequencyMonthly,
		DueAfterDays:        5,
		Active:              true,
		DescriptionTemplate: "Rent for {Month}",
	}
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		freq recurring.Frequency
		dom  int
		want time.Time
	}{
		{"monthly into 30-day month", date(2026, 3, 31), recurring.FrequencyMonthly, 31, date(2026, 4, 30)},
		{"monthly into february", date(2026, 1, 31), recurring.FrequencyMonthly, 31, date(2026, 2, 28)},
		{"monthly restores day after clamp", date(2026, 2, 28), recurring.FrequencyMonthly, 31, date(2026, 3, 31)},
		{"leap february", date(2028, 1, 30), recurring.FrequencyMonthly, 30, date(2028, 2, 29)},
		{"monthly mid month", date(2026, 5, 15), recurring.FrequencyMonthly, 15, date(2026, 6, 15)},
		{"zero day keeps date day", date(2026, 5, 10), recurring.FrequencyMonthly, 0, date(2026, 6, 10)},
		{"december rolls year", date(2026, 12, 31), recurring.FrequencyMonthly, 31, date(2027, 1, 31)},
		{"quarterly", date(2026, 11, 30), recurring.FrequencyQuarterly, 30, date(2027, 2, 28)},
		{"yearly leap day", date(2028, 2, 29), recurring.FrequencyYearly, 29, date(2029, 2, 28)},
		{"weekly", date(2026, 12, 29), recurring.FrequencyWeekly, 0, date(2027, 1, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Advance(tt.from, tt.freq, tt.dom))
		})
	}
}

func TestPeriodKey(t *testing.T) {
	d := date(2026, 10, 16)
	assert.Equal(t, "2026-10", PeriodKey(recurring.FrequencyMonthly, d))
	assert.Equal(t, "2026-Q4", PeriodKey(recurring.FrequencyQuarterly, d))
	assert.Equal(t, "2026", PeriodKey(recurring.FrequencyYearly, d))
	assert.Equal(t, "2026-W42", PeriodKey(recurring.FrequencyWeekly, d))
}

func TestDue(t *testing.T) {
	today := date(2026, 3, 15)
	tpl := monthly(today)
	assert.True(t, Due(tpl, today))
	assert.True(t, Due(tpl, today.Add(13*time.Hour)))

	tpl.NextDueDate = today.AddDate(0, 0, 1)
	assert.False(t, Due(tpl, today))

	tpl.NextDueDate = today
	tpl.Active = false
	assert.False(t, Due(tpl, today))

	tpl.Active = true
	end := today.AddDate(0, 0, -1)
	tpl.EndDate = &end
	assert.False(t, Due(tpl, today))
}

func TestDescribe(t *testing.T) {
	d := date(2026, 10, 1)
	assert.Equal(t, "Rent for October 2026", Describe("Rent for {Month}", invoice.TypeRental, d, "2026-10"))
	assert.Equal(t, "Service 2026 (2026-10)", Describe("Service {Year} ({Period})", invoice.TypeServiceCharge, d, "2026-10"))
	assert.Equal(t, "Security Deposit - October 2026", Describe("", invoice.TypeSecurityDeposit, d, "2026-10"))
}

func TestPlanMonthEndClamp(t *testing.T) {
	today := date(2026, 3, 31)
	tpl := monthly(today)
	p := NewPlanner(&counter{}, func(invoice.Direction) string { return "INV" })

	step, ok := p.Plan(tpl, NewIndex(nil), today)
	require.True(t, ok)
	require.NotNil(t, step.Invoice)

	assert.Equal(t, date(2026, 4, 30), step.Template.NextDueDate)
	assert.Equal(t, 31, step.Template.DayOfMonth)
	assert.Equal(t, today, step.Expected)
	assert.Equal(t, today, tpl.NextDueDate, "input template must not change")

	inv := step.Invoice
	assert.Equal(t, "INV-001", inv.Number)
	assert.Equal(t, "2026-03", inv.Period)
	assert.Equal(t, tpl.ID, inv.TemplateID)
	assert.Equal(t, "Rent for March 2026", inv.Description)
	assert.Equal(t, date(2026, 4, 5), inv.DueDate)
	assert.Equal(t, types.USD(100000), inv.Amount)
	assert.NoError(t, inv.Validate())
}

func TestPlanIsIdempotentPerPeriod(t *testing.T) {
	today := date(2026, 3, 1)
	tpl := monthly(today)
	p := NewPlanner(&counter{}, nil)
	ix := NewIndex(nil)

	first, ok := p.Plan(tpl, ix, today)
	require.True(t, ok)
	require.NotNil(t, first.Invoice)

	// Same template state again: the period is taken, so no second invoice.
	second, ok := p.Plan(tpl, ix, today)
	require.True(t, ok)
	assert.Nil(t, second.Invoice)
	assert.Equal(t, first.Template.NextDueDate, second.Template.NextDueDate)
}

func TestPlanMatchesHandMadeInvoice(t *testing.T) {
	today := date(2026, 3, 1)
	tpl := monthly(today)
	tpl.AgreementID = "agr-1"
	existing := &invoice.Invoice{
		ID:          id.NewInvoiceID(),
		Type:        invoice.TypeRental,
		AgreementID: "agr-1",
		IssueDate:   date(2026, 3, 1),
		DueDate:     date(2026, 3, 5),
	}

	step, ok := NewPlanner(&counter{}, nil).Plan(tpl, NewIndex([]*invoice.Invoice{existing}), today)
	require.True(t, ok)
	assert.Nil(t, step.Invoice)
	assert.Equal(t, date(2026, 4, 1), step.Template.NextDueDate)
}

func TestPlanIgnoresDueDateInNextPeriod(t *testing.T) {
	today := date(2026, 3, 15)
	tpl := monthly(today)
	// Net-30 invoice for February, due in March.
	february := &invoice.Invoice{
		ID:         id.NewInvoiceID(),
		Type:       invoice.TypeRental,
		PropertyID: "p1",
		ContactID:  "t1",
		IssueDate:  date(2026, 2, 15),
		DueDate:    date(2026, 3, 17),
	}

	step, ok := NewPlanner(&counter{}, nil).Plan(tpl, NewIndex([]*invoice.Invoice{february}), today)
	require.True(t, ok)
	require.NotNil(t, step.Invoice)
	assert.Equal(t, "2026-03", step.Period)
}

func TestPlanOtherScopeDoesNotMatch(t *testing.T) {
	today := date(2026, 3, 1)
	tpl := monthly(today)
	other := &invoice.Invoice{
		ID:         id.NewInvoiceID(),
		Type:       invoice.TypeRental,
		PropertyID: "p1",
		ContactID:  "t2",
		Period:     "2026-03",
	}
	step, ok := NewPlanner(&counter{}, nil).Plan(tpl, NewIndex([]*invoice.Invoice{other}), today)
	require.True(t, ok)
	assert.NotNil(t, step.Invoice)
}

func TestPlanCatchUp(t *testing.T) {
	today := date(2026, 6, 10)
	tpl := monthly(date(2026, 2, 10))
	p := NewPlanner(&counter{}, nil)

	steps := p.PlanCatchUp(tpl, NewIndex(nil), today, 12)
	require.Len(t, steps, 5)
	for i, s := range steps {
		assert.Equal(t, fmt.Sprintf("2026-%02d", i+2), s.Period)
		if i > 0 {
			assert.Equal(t, steps[i-1].Template.NextDueDate, s.Expected)
		}
	}
	assert.Equal(t, date(2026, 7, 10), steps[4].Template.NextDueDate)
	assert.Equal(t, 5, steps[4].Template.GeneratedCount)

	limited := p.PlanCatchUp(tpl, NewIndex(nil), today, 2)
	assert.Len(t, limited, 2)
}

func TestPlanNotDue(t *testing.T) {
	today := date(2026, 3, 1)
	_, ok := NewPlanner(nil, nil).Plan(monthly(today.AddDate(0, 0, 1)), NewIndex(nil), today)
	assert.False(t, ok)
}

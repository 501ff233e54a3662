// Package recurring models memorized invoice patterns that the scheduler
// turns into new invoices each period.
package recurring

import (
	"time"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/types"
)

type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// Template is a recurring invoice rule. Scope is AgreementID when set,
// otherwise PropertyID plus ContactID.
type Template struct {
	types.Timestamps
	ID        id.TemplateID     `json:"id"`
	Direction invoice.Direction `json:"direction"`
	Type      invoice.Type      `json:"type"`
	Amount    types.Money       `json:"amount"`

	AgreementID string `json:"agreement_id,omitempty"`
	PropertyID  string `json:"property_id,omitempty"`
	ContactID   string `json:"contact_id"`
	BuildingID  string `json:"building_id,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	UnitID      string `json:"unit_id,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`

	SecurityDepositCharge types.Money `json:"security_deposit_charge"`
	ServiceCharges        types.Money `json:"service_charges"`

	DayOfMonth          int        `json:"day_of_month"`
	NextDueDate         time.Time  `json:"next_due_date"`
	Frequency           Frequency  `json:"frequency"`
	DueAfterDays        int        `json:"due_after_days"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	Active              bool       `json:"active"`
	DescriptionTemplate string     `json:"description_template,omitempty"`
	NumberPrefix        string     `json:"number_prefix,omitempty"`

	GeneratedCount int        `json:"generated_count"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
}

// Validate checks the rule is usable by the scheduler.
func (t *Template) Validate() error {
	if !t.Frequency.Valid() {
		return types.Invalid("frequency", "unknown frequency %q", t.Frequency)
	}
	if !t.Amount.IsPositive() {
		return types.Invalid("amount", "must be positive, got %s", t.Amount)
	}
	if t.DayOfMonth < 0 || t.DayOfMonth > 31 {
		return types.Invalid("day_of_month", "must be 0 (use the due date's day) or between 1 and 31, got %d", t.DayOfMonth)
	}
	if t.AgreementID == "" && (t.PropertyID == "" || t.ContactID == "") {
		return types.Invalid("scope", "agreement or property and contact required")
	}
	if t.NextDueDate.IsZero() {
		return types.Invalid("next_due_date", "is required")
	}
	if !t.Type.Valid() {
		return types.Invalid("type", "unknown invoice type %q", t.Type)
	}
	return nil
}

package invoice

import (
	"time"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/types"
)

// Direction separates receivables (invoices) from payables (bills).
type Direction string

const (
	Receivable Direction = "receivable"
	Payable    Direction = "payable"
)

type Type string

const (
	TypeRental          Type = "rental"
	TypeSecurityDeposit Type = "security_deposit"
	TypeServiceCharge   Type = "service_charge"
	TypeInstallment     Type = "installment"
	TypeExpense         Type = "expense"
)

// Valid reports whether t is a known invoice type.
func (t Type) Valid() bool {
	switch t {
	case TypeRental, TypeSecurityDeposit, TypeServiceCharge, TypeInstallment, TypeExpense:
		return true
	}
	return false
}

// Status is derived from the payment history and is never persisted.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusUnpaid        Status = "unpaid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusOverdue       Status = "overdue"
)

// Invoice is a receivable invoice or, with Direction Payable, a bill.
type Invoice struct {
	types.Timestamps
	ID        id.InvoiceID `json:"id"`
	Number    string       `json:"number"`
	Direction Direction    `json:"direction"`
	Type      Type         `json:"type"`
	Draft     bool         `json:"draft,omitempty"`

	Amount                types.Money `json:"amount"`
	PaidAmount            types.Money `json:"paid_amount"`
	SecurityDepositCharge types.Money `json:"security_deposit_charge"`
	ServiceCharges        types.Money `json:"service_charges"`

	IssueDate   time.Time `json:"issue_date"`
	DueDate     time.Time `json:"due_date"`
	Description string    `json:"description,omitempty"`

	ContactID   string `json:"contact_id"`
	PropertyID  string `json:"property_id,omitempty"`
	BuildingID  string `json:"building_id,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	UnitID      string `json:"unit_id,omitempty"`
	AgreementID string `json:"agreement_id,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`

	TemplateID id.TemplateID     `json:"template_id,omitempty"`
	Period     string            `json:"period,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Currency returns the invoice currency.
func (inv *Invoice) Currency() string { return inv.Amount.Currency }

// DepositDue is the part of Amount owed to the security-deposit sub-ledger.
// A security-deposit invoice without an explicit charge is all deposit.
func (inv *Invoice) DepositDue() types.Money {
	if inv.SecurityDepositCharge.IsPositive() {
		return inv.SecurityDepositCharge
	}
	if inv.Type == TypeSecurityDeposit {
		return inv.Amount
	}
	return types.Zero(inv.Currency())
}

// RentDue is everything on the invoice that is not deposit, service charges
// included.
func (inv *Invoice) RentDue() types.Money {
	return inv.Amount.Subtract(inv.DepositDue()).ClampZero()
}

// Validate checks amounts and date ordering.
func (inv *Invoice) Validate() error {
	if inv.Amount.Currency == "" {
		return types.Invalid("amount", "currency is required")
	}
	if inv.Amount.IsNegative() {
		return types.Reject(types.ErrInvalidAmount, "amount", "must not be negative, got %s", inv.Amount)
	}
	if inv.SecurityDepositCharge.IsNegative() || inv.ServiceCharges.IsNegative() {
		return types.Reject(types.ErrInvalidAmount, "sub_amounts", "must not be negative")
	}
	if !inv.Type.Valid() {
		return types.Invalid("type", "unknown invoice type %q", inv.Type)
	}
	subs := types.Zero(inv.Currency()).Add(inv.SecurityDepositCharge).Add(inv.ServiceCharges)
	if subs.GreaterThan(inv.Amount) {
		return types.Invalid("sub_amounts", "deposit %s plus service charges %s exceed amount %s",
			inv.SecurityDepositCharge, inv.ServiceCharges, inv.Amount)
	}
	if inv.DueDate.Before(types.Date(inv.IssueDate)) {
		return types.Reject(types.ErrInvalidDates, "due_date", "due date %s is before issue date %s",
			inv.DueDate.Format(time.DateOnly), inv.IssueDate.Format(time.DateOnly))
	}
	if inv.Direction != Receivable && inv.Direction != Payable {
		return types.Invalid("direction", "must be receivable or payable")
	}
	return nil
}

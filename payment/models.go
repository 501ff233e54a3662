package payment

import (
	"time"

	"github.com/xraph/rentledger/category"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/types"
)

type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// Payment is a money movement, optionally linked to an invoice or a bill.
// Amount is positive when collected (income) or paid out (expense).
type Payment struct {
	types.Timestamps
	ID           id.PaymentID  `json:"id"`
	Type         Type          `json:"type"`
	Amount       types.Money   `json:"amount"`
	Date         time.Time     `json:"date"`
	AccountID    string        `json:"account_id"`
	InvoiceID    id.InvoiceID  `json:"invoice_id,omitempty"`
	BillID       id.InvoiceID  `json:"bill_id,omitempty"`
	BatchID      id.BatchID    `json:"batch_id,omitempty"`
	CategoryID   string        `json:"category_id"`
	CategoryKind category.Kind `json:"category_kind"`
	Reference    string        `json:"reference,omitempty"`
	Description  string        `json:"description,omitempty"`
	ReversedAt   *time.Time    `json:"reversed_at,omitempty"`
}

// Target returns the invoice or bill this payment counts toward, or Nil.
func (p *Payment) Target() id.InvoiceID {
	if !p.InvoiceID.IsNil() {
		return p.InvoiceID
	}
	return p.BillID
}

// Active reports whether the payment still counts toward a balance.
func (p *Payment) Active() bool { return p.ReversedAt == nil }

// IsDeposit reports whether the payment belongs to the security-deposit sub-ledger.
func (p *Payment) IsDeposit() bool { return p.CategoryKind == category.KindSecurityDeposit }

// Package balance derives paid, remaining and status for invoices and bills
// from their linked payments. Nothing here is stored; results are recomputed
// after every payment mutation.
package balance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/types"
)

// DefaultTolerance absorbs rounding when comparing balances: 0.01 of the
// currency's major unit.
var DefaultTolerance = decimal.New(1, -2)

// Balance is the resolved state of one invoice.
type Balance struct {
	Paid             types.Money    `json:"paid"`
	Remaining        types.Money    `json:"remaining"`
	Status           invoice.Status `json:"status"`
	RentPaid         types.Money    `json:"rent_paid"`
	DepositPaid      types.Money    `json:"deposit_paid"`
	RentRemaining    types.Money    `json:"rent_remaining"`
	DepositRemaining types.Money    `json:"deposit_remaining"`
}

// Resolver computes balances with a fixed rounding tolerance.
type Resolver struct {
	tolerance decimal.Decimal
}

// NewResolver returns a Resolver. A zero or negative tolerance falls back to
// DefaultTolerance.
func NewResolver(tolerance decimal.Decimal) *Resolver {
	if !tolerance.IsPositive() {
		tolerance = DefaultTolerance
	}
	return &Resolver{tolerance: tolerance}
}

// Tolerance returns the configured tolerance in major units.
func (r *Resolver) Tolerance() decimal.Decimal { return r.tolerance }

// Epsilon returns the tolerance in minor units of currency.
func (r *Resolver) Epsilon(currency string) int64 {
	return types.MinorUnits(r.tolerance, currency)
}

// PaymentTypeFor returns the payment type that settles invoices of direction d.
func PaymentTypeFor(d invoice.Direction) payment.Type {
	if d == invoice.Payable {
		return payment.TypeExpense
	}
	return payment.TypeIncome
}

// Counts reports whether p counts toward inv's balance: linked to it, not
// reversed, and of the matching direction.
func Counts(inv *invoice.Invoice, p *payment.Payment) bool {
	return p.Active() &&
		p.Target() == inv.ID &&
		p.Type == PaymentTypeFor(inv.Direction)
}

// Resolve computes the balance of inv from payments. Payments that are not
// linked to inv are ignored, so callers may pass a superset.
func (r *Resolver) Resolve(inv *invoice.Invoice, payments []*payment.Payment, today time.Time) Balance {
	cur := inv.Currency()
	rentPaid := types.Zero(cur)
	depositPaid := types.Zero(cur)
	for _, p := range payments {
		if !Counts(inv, p) {
			continue
		}
		if p.IsDeposit() {
			depositPaid = depositPaid.Add(p.Amount)
		} else {
			rentPaid = rentPaid.Add(p.Amount)
		}
	}

	paid := rentPaid.Add(depositPaid)
	b := Balance{
		Paid:             paid,
		Remaining:        inv.Amount.Subtract(paid).ClampZero(),
		RentPaid:         rentPaid,
		DepositPaid:      depositPaid,
		RentRemaining:    inv.RentDue().Subtract(rentPaid).ClampZero(),
		DepositRemaining: inv.DepositDue().Subtract(depositPaid).ClampZero(),
	}
	b.Status = r.status(inv, b, today)
	return b
}

func (r *Resolver) status(inv *invoice.Invoice, b Balance, today time.Time) invoice.Status {
	eps := r.Epsilon(inv.Currency())
	paidNothing := b.Paid.Amount <= eps

	switch {
	case b.Remaining.Amount <= eps && !(inv.Draft && paidNothing && inv.Amount.Amount > eps):
		return invoice.StatusPaid
	case !paidNothing:
		return invoice.StatusPartiallyPaid
	case inv.Draft:
		return invoice.StatusDraft
	case types.Date(inv.DueDate).Before(types.Date(today)):
		return invoice.StatusOverdue
	default:
		return invoice.StatusUnpaid
	}
}

// ResolveAll resolves every invoice, indexing payments by target once.
func (r *Resolver) ResolveAll(invoices []*invoice.Invoice, payments []*payment.Payment, today time.Time) map[string]Balance {
	byTarget := GroupPayments(payments)
	out := make(map[string]Balance, len(invoices))
	for _, inv := range invoices {
		out[inv.ID.String()] = r.Resolve(inv, byTarget[inv.ID.String()], today)
	}
	return out
}

// GroupPayments indexes active payments by the invoice or bill they target.
func GroupPayments(payments []*payment.Payment) map[string][]*payment.Payment {
	out := make(map[string][]*payment.Payment)
	for _, p := range payments {
		if !p.Active() {
			continue
		}
		t := p.Target()
		if t.IsNil() {
			continue
		}
		out[t.String()] = append(out[t.String()], p)
	}
	return out
}

// WithinCap reports whether amount ≤ limit + ε.
func (r *Resolver) WithinCap(amount, limit types.Money) bool {
	return amount.Amount <= limit.Amount+r.Epsilon(limit.Currency)
}

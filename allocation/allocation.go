// Package allocation plans how collected money is applied to open invoices
// and bills. It builds payment records but never stores them: the caller
// commits a Plan atomically and re-resolves the touched invoices.
package allocation

import (
	"errors"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/xraph/rentledger/balance"
	"github.com/xraph/rentledger/category"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/types"
)

var (
	// ErrInvalidAmount classifies non-positive or negative requested amounts.
	ErrInvalidAmount = types.ErrInvalidAmount
	// ErrAmountExceedsRemaining classifies requests above a remaining cap.
	ErrAmountExceedsRemaining = errors.New("rentledger: amount exceeds remaining balance")
	// ErrNothingToAllocate is returned when no selected invoice is open.
	ErrNothingToAllocate = errors.New("rentledger: nothing to allocate")
)

// Target is an open invoice together with its current balance.
type Target struct {
	Invoice *invoice.Invoice
	Balance balance.Balance
}

// SplitRequest divides one collection between the rent and deposit
// sub-ledgers of a single invoice.
type SplitRequest struct {
	Rent        types.Money
	Deposit     types.Money
	Date        time.Time
	AccountID   string
	Reference   string
	Description string
}

// BatchRequest spreads one collected total over several invoices.
type BatchRequest struct {
	Total       types.Money
	Date        time.Time
	AccountID   string
	Reference   string
	Description string
}

// Allocation records what a plan applies to one invoice.
type Allocation struct {
	InvoiceID      id.InvoiceID `json:"invoice_id"`
	Number         string       `json:"number"`
	Rent           types.Money  `json:"rent"`
	Deposit        types.Money  `json:"deposit"`
	Applied        types.Money  `json:"applied"`
	RemainingAfter types.Money  `json:"remaining_after"`
}

// Plan is the set of payments one allocation action creates. All payments
// share BatchID so they can be reversed as a unit.
type Plan struct {
	BatchID     id.BatchID         `json:"batch_id"`
	Payments    []*payment.Payment `json:"payments"`
	Allocations []Allocation       `json:"allocations"`
	Applied     types.Money        `json:"applied"`
	Unallocated types.Money        `json:"unallocated"`
}

// InvoiceIDs returns the IDs of every invoice the plan touches.
func (p *Plan) InvoiceIDs() []id.InvoiceID {
	out := make([]id.InvoiceID, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		out = append(out, a.InvoiceID)
	}
	return out
}

// Engine plans allocations against a category snapshot.
type Engine struct {
	resolver   *balance.Resolver
	categories *category.Resolver
}

// New returns an Engine.
func New(resolver *balance.Resolver, categories *category.Resolver) *Engine {
	if resolver == nil {
		resolver = balance.NewResolver(balance.DefaultTolerance)
	}
	if categories == nil {
		categories = category.NewResolver(nil)
	}
	return &Engine{resolver: resolver, categories: categories}
}

// Split plans a rent/deposit split payment on one invoice. Each non-zero
// component becomes its own payment, tagged with its sub-ledger category.
func (e *Engine) Split(inv *invoice.Invoice, bal balance.Balance, req SplitRequest) (*Plan, error) {
	cur := inv.Currency()
	rent, err := normalize(req.Rent, cur, "rent")
	if err != nil {
		return nil, err
	}
	deposit, err := normalize(req.Deposit, cur, "deposit")
	if err != nil {
		return nil, err
	}

	if rent.IsNegative() || deposit.IsNegative() {
		return nil, types.Reject(ErrInvalidAmount, "amount", "rent %s and deposit %s must not be negative", rent, deposit)
	}
	total := rent.Add(deposit)
	if !total.IsPositive() {
		return nil, types.Reject(ErrInvalidAmount, "amount", "rent plus deposit must be positive, got %s", total)
	}
	if !e.resolver.WithinCap(rent, bal.RentRemaining) {
		return nil, types.Reject(ErrAmountExceedsRemaining, "rent",
			"rent payment %s exceeds rent remaining %s on invoice %s", rent, bal.RentRemaining, inv.Number)
	}
	if !e.resolver.WithinCap(deposit, bal.DepositRemaining) {
		return nil, types.Reject(ErrAmountExceedsRemaining, "deposit",
			"deposit payment %s exceeds deposit remaining %s on invoice %s", deposit, bal.DepositRemaining, inv.Number)
	}

	plan := &Plan{BatchID: id.NewBatchID(), Applied: total, Unallocated: types.Zero(cur)}
	meta := paymentMeta{date: req.Date, accountID: req.AccountID, reference: req.Reference, description: req.Description}
	if err := e.apply(plan, inv, rent, deposit, meta); err != nil {
		return nil, err
	}
	plan.Allocations[0].RemainingAfter = bal.Remaining.Subtract(total).ClampZero()
	return plan, nil
}

// Waterfall applies req.Total to targets oldest due date first, ties broken
// by invoice number. Each invoice takes up to its remaining balance, filling
// the rent bucket before the deposit bucket. A total smaller than the amount
// due is allowed; what cannot be placed is reported as Unallocated.
func (e *Engine) Waterfall(targets []Target, req BatchRequest) (*Plan, error) {
	if !req.Total.IsPositive() {
		return nil, types.Reject(ErrInvalidAmount, "total", "batch total must be positive, got %s", req.Total)
	}
	if len(targets) == 0 {
		return nil, types.Reject(ErrNothingToAllocate, "invoices", "no invoices selected")
	}
	cur := req.Total.Currency
	dir := targets[0].Invoice.Direction
	for _, t := range targets {
		if t.Invoice.Currency() != cur {
			return nil, types.Invalid("currency", "invoice %s is in %s, batch is in %s", t.Invoice.Number, t.Invoice.Currency(), cur)
		}
		if t.Invoice.Direction != dir {
			return nil, types.Invalid("direction", "batch mixes receivables and payables")
		}
	}

	ordered := append([]Target(nil), targets...)
	SortOldestFirst(ordered)

	plan := &Plan{BatchID: id.NewBatchID(), Applied: types.Zero(cur)}
	meta := paymentMeta{date: req.Date, accountID: req.AccountID, reference: req.Reference, description: req.Description}
	left := req.Total
	for _, t := range ordered {
		if !left.IsPositive() {
			break
		}
		if t.Balance.Status == invoice.StatusPaid || !t.Balance.Remaining.IsPositive() {
			continue
		}
		apply := left.Min(t.Balance.Remaining)
		rent := apply.Min(t.Balance.RentRemaining)
		// RentRemaining + DepositRemaining ≥ Remaining, so the two buckets
		// always absorb apply.
		deposit := apply.Subtract(rent).Min(t.Balance.DepositRemaining)

		if err := e.apply(plan, t.Invoice, rent, deposit, meta); err != nil {
			return nil, err
		}
		last := &plan.Allocations[len(plan.Allocations)-1]
		last.RemainingAfter = t.Balance.Remaining.Subtract(apply)
		plan.Applied = plan.Applied.Add(apply)
		left = left.Subtract(apply)
	}

	if len(plan.Payments) == 0 {
		return nil, types.Reject(ErrNothingToAllocate, "invoices", "selected invoices have no outstanding balance")
	}
	plan.Unallocated = left
	return plan, nil
}

// SortOldestFirst orders targets by due date, then invoice number, then ID.
// Numbers compare digit runs by value, so INV-9 precedes INV-10.
func SortOldestFirst(targets []Target) {
	numbers := collate.New(language.Und, collate.Numeric)
	sort.SliceStable(targets, func(i, j int) bool {
		a, b := targets[i].Invoice, targets[j].Invoice
		da, db := types.Date(a.DueDate), types.Date(b.DueDate)
		if !da.Equal(db) {
			return da.Before(db)
		}
		if c := numbers.CompareString(a.Number, b.Number); c != 0 {
			return c < 0
		}
		return a.ID.String() < b.ID.String()
	})
}

// Tag checks a single payment linked to inv against the sub-ledger it posts
// to and sets its category. A category chosen by the caller decides the
// sub-ledger; otherwise CategoryKind selects deposit or rent and the usual
// fallback chain picks the category.
func (e *Engine) Tag(inv *invoice.Invoice, bal balance.Balance, p *payment.Payment) error {
	var cat *category.Category
	switch c, ok := e.categories.ByID(p.CategoryID); {
	case ok:
		cat = c
	case p.CategoryID != "":
		return types.Invalid("category_id", "unknown category %q", p.CategoryID)
	case p.CategoryKind == category.KindSecurityDeposit:
		var err error
		if cat, err = e.DepositCategory(inv); err != nil {
			return err
		}
	default:
		var err error
		if cat, err = e.RentCategory(inv); err != nil {
			return err
		}
	}

	if !e.resolver.WithinCap(p.Amount, bal.Remaining) {
		return types.Reject(ErrAmountExceedsRemaining, "amount",
			"payment %s exceeds remaining %s on invoice %s", p.Amount, bal.Remaining, inv.Number)
	}
	component, limit := "rent", bal.RentRemaining
	if cat.Kind == category.KindSecurityDeposit {
		component, limit = "deposit", bal.DepositRemaining
	}
	if !e.resolver.WithinCap(p.Amount, limit) {
		return types.Reject(ErrAmountExceedsRemaining, component,
			"%s payment %s exceeds %s remaining %s on invoice %s", component, p.Amount, component, limit, inv.Number)
	}

	p.CategoryID = cat.ID
	p.CategoryKind = cat.Kind
	return nil
}

type paymentMeta struct {
	date        time.Time
	accountID   string
	reference   string
	description string
}

// apply resolves categories for both components and appends their payments.
// Categories are resolved before anything is appended so a configuration
// error leaves the plan untouched.
func (e *Engine) apply(plan *Plan, inv *invoice.Invoice, rent, deposit types.Money, meta paymentMeta) error {
	var rentCat, depositCat *category.Category
	var err error
	if rent.IsPositive() {
		if rentCat, err = e.RentCategory(inv); err != nil {
			return err
		}
	}
	if deposit.IsPositive() {
		if depositCat, err = e.DepositCategory(inv); err != nil {
			return err
		}
	}

	if rentCat != nil {
		plan.Payments = append(plan.Payments, newPayment(plan.BatchID, inv, rent, rentCat, meta))
	}
	if depositCat != nil {
		plan.Payments = append(plan.Payments, newPayment(plan.BatchID, inv, deposit, depositCat, meta))
	}
	plan.Allocations = append(plan.Allocations, Allocation{
		InvoiceID: inv.ID,
		Number:    inv.Number,
		Rent:      rent,
		Deposit:   deposit,
		Applied:   rent.Add(deposit),
	})
	return nil
}

func newPayment(batchID id.BatchID, inv *invoice.Invoice, amount types.Money, cat *category.Category, meta paymentMeta) *payment.Payment {
	p := &payment.Payment{
		Timestamps:   types.NewTimestamps(),
		ID:           id.NewPaymentID(),
		Type:         balance.PaymentTypeFor(inv.Direction),
		Amount:       amount,
		Date:         meta.date,
		AccountID:    meta.accountID,
		BatchID:      batchID,
		CategoryID:   cat.ID,
		CategoryKind: cat.Kind,
		Reference:    meta.reference,
		Description:  meta.description,
	}
	if inv.Direction == invoice.Payable {
		p.BillID = inv.ID
	} else {
		p.InvoiceID = inv.ID
	}
	return p
}

func normalize(m types.Money, currency, field string) (types.Money, error) {
	if m.Currency != "" && m.Currency != currency {
		return types.Money{}, types.Invalid(field, "currency %s does not match invoice currency %s", m.Currency, currency)
	}
	return types.Money{Amount: m.Amount, Currency: currency}, nil
}

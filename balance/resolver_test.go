package balance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/rentledger/category"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/types"
)

var today = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

func rentInvoice(amount int64, due time.Time) *invoice.Invoice {
	return &invoice.Invoice{
		ID:        id.NewInvoiceID(),
		Direction: invoice.Receivable,
		Type:      invoice.TypeRental,
		Amount:    types.USD(amount),
		IssueDate: due.AddDate(0, 0, -5),
		DueDate:   due,
	}
}

func pay(inv *invoice.Invoice, amount int64, kind category.Kind) *payment.Payment {
	return &payment.Payment{
		ID:           id.NewPaymentID(),
		Type:         PaymentTypeFor(inv.Direction),
		Amount:       types.USD(amount),
		InvoiceID:    inv.ID,
		CategoryKind: kind,
	}
}

func TestResolveStatus(t *testing.T) {
	r := NewResolver(decimal.Zero)
	past := today.AddDate(0, 0, -10)
	future := today.AddDate(0, 0, 10)

	tests := []struct {
		name      string
		inv       *invoice.Invoice
		paid      []int64
		status    invoice.Status
		remaining int64
	}{
		{"overdue unpaid", rentInvoice(100000, past), nil, invoice.StatusOverdue, 100000},
		{"unpaid not yet due", rentInvoice(100000, future), nil, invoice.StatusUnpaid, 100000},
		{"due today is not overdue", rentInvoice(100000, types.Date(today)), nil, invoice.StatusUnpaid, 100000},
		{"partial", rentInvoice(100000, past), []int64{40000}, invoice.StatusPartiallyPaid, 60000},
		{"paid in two parts", rentInvoice(100000, past), []int64{60000, 40000}, invoice.StatusPaid, 0},
		{"within tolerance", rentInvoice(100000, past), []int64{99999}, invoice.StatusPaid, 1},
		{"paid below tolerance", rentInvoice(100000, past), []int64{1}, invoice.StatusOverdue, 99999},
		{"overpaid clamps", rentInvoice(100000, past), []int64{120000}, invoice.StatusPaid, 0},
		{"zero amount", rentInvoice(0, past), nil, invoice.StatusPaid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ps []*payment.Payment
			for _, a := range tt.paid {
				ps = append(ps, pay(tt.inv, a, category.KindRentalIncome))
			}
			b := r.Resolve(tt.inv, ps, today)
			if b.Status != tt.status {
				t.Errorf("Status: got %s, want %s", b.Status, tt.status)
			}
			if b.Remaining.Amount != tt.remaining {
				t.Errorf("Remaining: got %d, want %d", b.Remaining.Amount, tt.remaining)
			}
		})
	}
}

func TestResolveDraft(t *testing.T) {
	r := NewResolver(DefaultTolerance)
	inv := rentInvoice(50000, today.AddDate(0, 0, -3))
	inv.Draft = true

	if got := r.Resolve(inv, nil, today).Status; got != invoice.StatusDraft {
		t.Errorf("unpaid draft: got %s, want draft", got)
	}
	p := pay(inv, 10000, category.KindRentalIncome)
	if got := r.Resolve(inv, []*payment.Payment{p}, today).Status; got != invoice.StatusPartiallyPaid {
		t.Errorf("draft with payment: got %s, want partially_paid", got)
	}
}

func TestResolveIgnoresUnrelatedPayments(t *testing.T) {
	r := NewResolver(DefaultTolerance)
	inv := rentInvoice(100000, today)
	other := rentInvoice(100000, today)

	reversedAt := today
	reversed := pay(inv, 100000, category.KindRentalIncome)
	reversed.ReversedAt = &reversedAt
	wrongDirection := pay(inv, 100000, category.KindRentalIncome)
	wrongDirection.Type = payment.TypeExpense

	ps := []*payment.Payment{
		pay(other, 100000, category.KindRentalIncome),
		reversed,
		wrongDirection,
	}
	b := r.Resolve(inv, ps, today)
	if !b.Paid.IsZero() {
		t.Errorf("Paid: got %s, want zero", b.Paid)
	}
	if b.Status != invoice.StatusUnpaid {
		t.Errorf("Status: got %s, want unpaid", b.Status)
	}
}

func TestResolveSubLedgers(t *testing.T) {
	r := NewResolver(DefaultTolerance)
	inv := rentInvoice(150000, today)
	inv.SecurityDepositCharge = types.USD(50000)

	b := r.Resolve(inv, []*payment.Payment{
		pay(inv, 30000, category.KindRentalIncome),
		pay(inv, 50000, category.KindSecurityDeposit),
	}, today)

	checks := []struct {
		name string
		got  types.Money
		want types.Money
	}{
		{"RentPaid", b.RentPaid, types.USD(30000)},
		{"DepositPaid", b.DepositPaid, types.USD(50000)},
		{"RentRemaining", b.RentRemaining, types.USD(70000)},
		{"DepositRemaining", b.DepositRemaining, types.USD(0)},
		{"Remaining", b.Remaining, types.USD(70000)},
	}
	for _, c := range checks {
		if !c.got.Equal(c.want) {
			t.Errorf("%s: got %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestResolvePayable(t *testing.T) {
	r := NewResolver(DefaultTolerance)
	bill := rentInvoice(20000, today)
	bill.Direction = invoice.Payable
	bill.Type = invoice.TypeExpense

	p := &payment.Payment{
		ID:     id.NewPaymentID(),
		Type:   payment.TypeExpense,
		Amount: types.USD(20000),
		BillID: bill.ID,
	}
	if got := r.Resolve(bill, []*payment.Payment{p}, today).Status; got != invoice.StatusPaid {
		t.Errorf("bill: got %s, want paid", got)
	}
}

func TestResolveReversalRoundTrip(t *testing.T) {
	r := NewResolver(DefaultTolerance)
	inv := rentInvoice(100000, today.AddDate(0, 0, -1))
	before := r.Resolve(inv, nil, today)

	p := pay(inv, 100000, category.KindRentalIncome)
	if got := r.Resolve(inv, []*payment.Payment{p}, today).Status; got != invoice.StatusPaid {
		t.Fatalf("after payment: got %s, want paid", got)
	}

	at := today
	p.ReversedAt = &at
	after := r.Resolve(inv, []*payment.Payment{p}, today)
	if after != before {
		t.Errorf("after reversal: got %+v, want %+v", after, before)
	}
}

func TestEpsilon(t *testing.T) {
	r := NewResolver(DefaultTolerance)
	tests := []struct {
		currency string
		want     int64
	}{
		{"usd", 1},
		{"jpy", 0},
		{"kwd", 10},
	}
	for _, tt := range tests {
		if got := r.Epsilon(tt.currency); got != tt.want {
			t.Errorf("Epsilon(%s): got %d, want %d", tt.currency, got, tt.want)
		}
	}
	if !r.WithinCap(types.USD(10001), types.USD(10000)) {
		t.Error("WithinCap should allow one cent over")
	}
	if r.WithinCap(types.USD(10002), types.USD(10000)) {
		t.Error("WithinCap should reject two cents over")
	}
}

func TestResolveAll(t *testing.T) {
	r := NewResolver(DefaultTolerance)
	a := rentInvoice(10000, today)
	b := rentInvoice(20000, today)
	out := r.ResolveAll([]*invoice.Invoice{a, b}, []*payment.Payment{
		pay(a, 10000, category.KindRentalIncome),
		pay(b, 5000, category.KindRentalIncome),
	}, today)

	if out[a.ID.String()].Status != invoice.StatusPaid {
		t.Errorf("a: got %s, want paid", out[a.ID.String()].Status)
	}
	if out[b.ID.String()].Remaining.Amount != 15000 {
		t.Errorf("b remaining: got %d, want 15000", out[b.ID.String()].Remaining.Amount)
	}
}

package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/rentledger/aggregate"
	"github.com/xraph/rentledger/balance"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/types"
)

func fixture() (*directory.Index, []*aggregate.Record) {
	ix := directory.NewIndex([]*directory.Entity{
		{Kind: directory.KindBuilding, ID: "b1", Name: "Harbour View"},
		{Kind: directory.KindProperty, ID: "p1", Name: "Flat 1A", BuildingID: "b1", OwnerID: "o1"},
		{Kind: directory.KindProperty, ID: "p2", Name: "Cottage"},
		{Kind: directory.KindContact, ID: "t1", Name: "Zoë Müller"},
		{Kind: directory.KindContact, ID: "t2", Name: "Sam Lee"},
	})
	mk := func(number string, typ invoice.Type, prop, contact string, status invoice.Status, issue time.Time) *aggregate.Record {
		return &aggregate.Record{
			Invoice: &invoice.Invoice{
				ID:          id.NewInvoiceID(),
				Number:      number,
				Direction:   invoice.Receivable,
				Type:        typ,
				Amount:      types.USD(1000),
				PropertyID:  prop,
				ContactID:   contact,
				IssueDate:   issue,
				Description: "Monthly rent",
			},
			Balance: balance.Balance{Status: status},
		}
	}
	jan := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	return ix, []*aggregate.Record{
		mk("INV-001", invoice.TypeRental, "p1", "t1", invoice.StatusPaid, jan),
		mk("INV-002", invoice.TypeRental, "p1", "t1", invoice.StatusOverdue, feb),
		mk("INV-003", invoice.TypeServiceCharge, "p2", "t2", invoice.StatusUnpaid, feb),
		mk("INV-004", invoice.TypeSecurityDeposit, "ghost", "t2", invoice.StatusPartiallyPaid, jan),
	}
}

func numbers(records []*aggregate.Record) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.Invoice.Number)
	}
	return out
}

func TestCompile(t *testing.T) {
	ix, records := fixture()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty matches all", Filter{}, []string{"INV-001", "INV-002", "INV-003", "INV-004"}},
		{"status", Filter{Statuses: []invoice.Status{invoice.StatusOverdue, invoice.StatusUnpaid}}, []string{"INV-002", "INV-003"}},
		{"type", Filter{Types: []invoice.Type{invoice.TypeSecurityDeposit}}, []string{"INV-004"}},
		{"building via property", Filter{BuildingID: "b1"}, []string{"INV-001", "INV-002"}},
		{"owner via property", Filter{OwnerID: "o1"}, []string{"INV-001", "INV-002"}},
		{"tenant", Filter{ContactID: "t2"}, []string{"INV-003", "INV-004"}},
		{"property", Filter{PropertyID: "p2"}, []string{"INV-003"}},
		{"currency", Filter{Currency: "USD"}, []string{"INV-001", "INV-002", "INV-003", "INV-004"}},
		{"other currency", Filter{Currency: "eur"}, nil},
		{"date range inclusive", Filter{
			Start: time.Date(2026, 2, 5, 18, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC),
		}, []string{"INV-002", "INV-003"}},
		{"open-ended start", Filter{End: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)}, []string{"INV-001", "INV-004"}},
		{"search number", Filter{Search: "inv-003"}, []string{"INV-003"}},
		{"search contact folds case", Filter{Search: "ZOË"}, []string{"INV-001", "INV-002"}},
		{"search building name", Filter{Search: "harbour"}, []string{"INV-001", "INV-002"}},
		{"search description", Filter{Search: "monthly"}, []string{"INV-001", "INV-002", "INV-003", "INV-004"}},
		{"search dangling property label", Filter{Search: "unknown property"}, []string{"INV-004"}},
		{"AND", Filter{ContactID: "t1", Statuses: []invoice.Status{invoice.StatusPaid}}, []string{"INV-001"}},
		{"no match", Filter{Search: "nothing like this"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := numbers(Apply(records, Compile(tt.filter, ix)))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithoutStatus(t *testing.T) {
	f := Filter{ContactID: "t1", Statuses: []invoice.Status{invoice.StatusOverdue}}
	g := f.WithoutStatus()
	assert.Nil(t, g.Statuses)
	assert.Equal(t, "t1", g.ContactID)
	assert.Len(t, f.Statuses, 1)
}

func TestPaymentsIgnoreStatus(t *testing.T) {
	ix, records := fixture()
	paid := records[0]
	other := records[2]
	ps := []*payment.Payment{
		{ID: id.NewPaymentID(), InvoiceID: paid.Invoice.ID, Amount: types.USD(1000)},
		{ID: id.NewPaymentID(), InvoiceID: other.Invoice.ID, Amount: types.USD(10)},
		{ID: id.NewPaymentID(), Amount: types.USD(5)},
	}

	// The paid invoice is filtered out of the list, but its payment stays
	// visible because the payment view drops the status filter.
	f := Filter{ContactID: "t1", Statuses: []invoice.Status{invoice.StatusOverdue}}
	assert.Equal(t, []string{"INV-002"}, numbers(Apply(records, Compile(f, ix))))

	got := Payments(records, ps, f, ix)
	assert.Len(t, got, 1)
	assert.Equal(t, paid.Invoice.ID, got[0].InvoiceID)
}

package schedule

import (
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/recurring"
)

// Index groups existing invoices by recurring scope so each due template
// checks only its own candidates for an invoice in the current period.
type Index struct {
	byScope map[string][]*invoice.Invoice
}

// NewIndex indexes invoices by agreement+type and by property+contact+type.
func NewIndex(invoices []*invoice.Invoice) *Index {
	ix := &Index{byScope: make(map[string][]*invoice.Invoice)}
	for _, inv := range invoices {
		ix.Add(inv)
	}
	return ix
}

// Add indexes inv under every scope it belongs to.
func (ix *Index) Add(inv *invoice.Invoice) {
	if inv == nil {
		return
	}
	if inv.AgreementID != "" {
		k := agreementKey(inv.AgreementID, inv.Type)
		ix.byScope[k] = append(ix.byScope[k], inv)
	}
	if inv.PropertyID != "" && inv.ContactID != "" {
		k := partyKey(inv.PropertyID, inv.ContactID, inv.Type)
		ix.byScope[k] = append(ix.byScope[k], inv)
	}
}

// Exists reports whether an invoice in t's scope already covers period.
// Invoices created by hand carry no period; their issue date decides, the
// same anchor generated invoices take from the template's next due date.
func (ix *Index) Exists(t *recurring.Template, period string) bool {
	var k string
	if t.AgreementID != "" {
		k = agreementKey(t.AgreementID, t.Type)
	} else {
		k = partyKey(t.PropertyID, t.ContactID, t.Type)
	}
	for _, inv := range ix.byScope[k] {
		p := inv.Period
		if p == "" {
			p = PeriodKey(t.Frequency, inv.IssueDate)
		}
		if p == period {
			return true
		}
	}
	return false
}

func agreementKey(agreementID string, t invoice.Type) string {
	return "a\x00" + agreementID + "\x00" + string(t)
}

func partyKey(propertyID, contactID string, t invoice.Type) string {
	return "p\x00" + propertyID + "\x00" + contactID + "\x00" + string(t)
}

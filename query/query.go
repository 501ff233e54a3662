// Package query composes the filters applied to invoices before they are
// listed or aggregated.
package query

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/xraph/rentledger/aggregate"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/types"
)

// Filter selects records. Zero fields match everything; set fields combine
// with AND.
type Filter struct {
	Statuses  []invoice.Status  `json:"statuses,omitempty"`
	Types     []invoice.Type    `json:"types,omitempty"`
	Direction invoice.Direction `json:"direction,omitempty"`
	Currency  string            `json:"currency,omitempty"`

	BuildingID string `json:"building_id,omitempty"`
	OwnerID    string `json:"owner_id,omitempty"`
	ContactID  string `json:"contact_id,omitempty"`
	PropertyID string `json:"property_id,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
	UnitID     string `json:"unit_id,omitempty"`

	// Search matches case-insensitively against the invoice number, the
	// contact, property and building names and the description.
	Search string `json:"search,omitempty"`

	// Start and End bound IssueDate, inclusive, at day granularity.
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// WithoutStatus returns a copy of f with the status filter removed.
func (f Filter) WithoutStatus() Filter {
	f.Statuses = nil
	return f
}

// Predicate reports whether a record passes a filter.
type Predicate func(r *aggregate.Record) bool

// And combines predicates. The empty conjunction matches everything.
func And(preds ...Predicate) Predicate {
	return func(r *aggregate.Record) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Compile turns f into a predicate. Scope fields resolve through ix, so a
// building filter also matches invoices whose property sits in the building.
func Compile(f Filter, ix *directory.Index) Predicate {
	var preds []Predicate

	if len(f.Statuses) > 0 {
		statuses := slices.Clone(f.Statuses)
		preds = append(preds, func(r *aggregate.Record) bool {
			return slices.Contains(statuses, r.Balance.Status)
		})
	}
	if len(f.Types) > 0 {
		kinds := slices.Clone(f.Types)
		preds = append(preds, func(r *aggregate.Record) bool {
			return slices.Contains(kinds, r.Invoice.Type)
		})
	}
	if f.Direction != "" {
		preds = append(preds, func(r *aggregate.Record) bool {
			return r.Invoice.Direction == f.Direction
		})
	}
	if f.Currency != "" {
		cur := strings.ToLower(f.Currency)
		preds = append(preds, func(r *aggregate.Record) bool {
			return r.Invoice.Currency() == cur
		})
	}
	if f.BuildingID != "" {
		preds = append(preds, func(r *aggregate.Record) bool {
			return ix.BuildingFor(r.Invoice.BuildingID, r.Invoice.PropertyID) == f.BuildingID
		})
	}
	if f.OwnerID != "" {
		preds = append(preds, func(r *aggregate.Record) bool {
			return ix.OwnerFor(r.Invoice.PropertyID) == f.OwnerID
		})
	}
	if f.ContactID != "" {
		preds = append(preds, func(r *aggregate.Record) bool {
			return r.Invoice.ContactID == f.ContactID
		})
	}
	if f.PropertyID != "" {
		preds = append(preds, func(r *aggregate.Record) bool {
			return r.Invoice.PropertyID == f.PropertyID
		})
	}
	if f.ProjectID != "" {
		preds = append(preds, func(r *aggregate.Record) bool {
			return ix.ProjectFor(r.Invoice.ProjectID, r.Invoice.UnitID) == f.ProjectID
		})
	}
	if f.UnitID != "" {
		preds = append(preds, func(r *aggregate.Record) bool {
			return r.Invoice.UnitID == f.UnitID
		})
	}
	if !f.Start.IsZero() || !f.End.IsZero() {
		preds = append(preds, dateRange(f.Start, f.End))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		preds = append(preds, search(q, ix))
	}
	return And(preds...)
}

func dateRange(start, end time.Time) Predicate {
	if !start.IsZero() {
		start = types.Date(start)
	}
	if !end.IsZero() {
		end = types.Date(end)
	}
	return func(r *aggregate.Record) bool {
		d := types.Date(r.Invoice.IssueDate)
		if !start.IsZero() && d.Before(start) {
			return false
		}
		return end.IsZero() || !d.After(end)
	}
}

func search(q string, ix *directory.Index) Predicate {
	needle := cases.Fold().String(q)
	return func(r *aggregate.Record) bool {
		// Folders are stateful, so each record gets a fresh one.
		fold := cases.Fold()
		inv := r.Invoice
		fields := [...]string{
			inv.Number,
			inv.Description,
			ix.Name(directory.KindContact, inv.ContactID),
			ix.Name(directory.KindProperty, inv.PropertyID),
			ix.Name(directory.KindBuilding, ix.BuildingFor(inv.BuildingID, inv.PropertyID)),
		}
		for _, s := range fields {
			if s != "" && strings.Contains(fold.String(s), needle) {
				return true
			}
		}
		return false
	}
}

// Apply returns the records matching pred, in input order.
func Apply(records []*aggregate.Record, pred Predicate) []*aggregate.Record {
	var out []*aggregate.Record
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// Payments returns the payments linked to invoices that pass every filter
// except status. Payment history stays visible after the invoice it settled
// changes status. Reversed payments are included; callers that only want
// live payments filter on Payment.Active.
func Payments(records []*aggregate.Record, payments []*payment.Payment, f Filter, ix *directory.Index) []*payment.Payment {
	pred := Compile(f.WithoutStatus(), ix)
	visible := make(map[string]struct{})
	for _, r := range records {
		if pred(r) {
			visible[r.Invoice.ID.String()] = struct{}{}
		}
	}
	var out []*payment.Payment
	for _, p := range payments {
		t := p.Target()
		if t.IsNil() {
			continue
		}
		if _, ok := visible[t.String()]; ok {
			out = append(out, p)
		}
	}
	return out
}

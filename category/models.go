// Package category models the host's flat category taxonomy as a closed set
// of kinds, so sub-ledger dispatch is a switch over Kind rather than a
// string lookup by display name.
package category

import "context"

// Kind is the closed set of category kinds the ledger understands.
type Kind string

const (
	KindRentalIncome    Kind = "rental_income"
	KindSecurityDeposit Kind = "security_deposit"
	KindServiceCharge   Kind = "service_charge"
	KindInstallment     Kind = "installment"
	KindOtherIncome     Kind = "other_income"
	KindExpense         Kind = "expense"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRentalIncome, KindSecurityDeposit, KindServiceCharge,
		KindInstallment, KindOtherIncome, KindExpense:
		return true
	}
	return false
}

// Category is a host-supplied ledger category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

type Store interface {
	PutCategory(ctx context.Context, c *Category) error
	ListCategories(ctx context.Context) ([]*Category, error)
}

// Resolver answers ID and kind lookups over a category snapshot.
type Resolver struct {
	byID   map[string]*Category
	byKind map[Kind]*Category
}

// NewResolver indexes cats. When several categories share a kind, the first
// one wins.
func NewResolver(cats []*Category) *Resolver {
	r := &Resolver{
		byID:   make(map[string]*Category, len(cats)),
		byKind: make(map[Kind]*Category),
	}
	for _, c := range cats {
		if c == nil {
			continue
		}
		r.byID[c.ID] = c
		if _, ok := r.byKind[c.Kind]; !ok && c.Kind.Valid() {
			r.byKind[c.Kind] = c
		}
	}
	return r
}

// ByID returns the category with the given ID.
func (r *Resolver) ByID(id string) (*Category, bool) {
	if id == "" {
		return nil, false
	}
	c, ok := r.byID[id]
	return c, ok
}

// ByKind returns the first category registered for k.
func (r *Resolver) ByKind(k Kind) (*Category, bool) {
	c, ok := r.byKind[k]
	return c, ok
}

package allocation

import (
	"fmt"

	"github.com/xraph/rentledger/category"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/types"
)

// RentCategory resolves the category for the non-deposit part of a payment:
// the invoice's own category, then the default for its type, then the
// generic income or expense category. The deposit kind is never returned,
// so the rent part of a security-deposit invoice falls through to generic.
func (e *Engine) RentCategory(inv *invoice.Invoice) (*category.Category, error) {
	if c, ok := e.categories.ByID(inv.CategoryID); ok && c.Kind != category.KindSecurityDeposit {
		return c, nil
	}
	if k, ok := TypeDefault(inv.Type); ok && k != category.KindSecurityDeposit {
		if c, ok := e.categories.ByKind(k); ok {
			return c, nil
		}
	}
	if c, ok := e.categories.ByKind(Generic(inv.Direction)); ok {
		return c, nil
	}
	return nil, unresolved(inv, "rent")
}

// DepositCategory resolves the security-deposit category for a payment.
func (e *Engine) DepositCategory(inv *invoice.Invoice) (*category.Category, error) {
	if c, ok := e.categories.ByID(inv.CategoryID); ok && c.Kind == category.KindSecurityDeposit {
		return c, nil
	}
	if c, ok := e.categories.ByKind(category.KindSecurityDeposit); ok {
		return c, nil
	}
	return nil, unresolved(inv, "deposit")
}

// TypeDefault maps an invoice type to its default category kind.
func TypeDefault(t invoice.Type) (category.Kind, bool) {
	switch t {
	case invoice.TypeRental:
		return category.KindRentalIncome, true
	case invoice.TypeSecurityDeposit:
		return category.KindSecurityDeposit, true
	case invoice.TypeServiceCharge:
		return category.KindServiceCharge, true
	case invoice.TypeInstallment:
		return category.KindInstallment, true
	case invoice.TypeExpense:
		return category.KindExpense, true
	}
	return "", false
}

// Generic is the last-resort category kind for a direction.
func Generic(d invoice.Direction) category.Kind {
	switch d {
	case invoice.Payable:
		return category.KindExpense
	case invoice.Receivable:
		return category.KindRentalIncome
	}
	return category.KindRentalIncome
}

func unresolved(inv *invoice.Invoice, component string) error {
	return types.ConfigError{
		Component: "allocation",
		Message: fmt.Sprintf("no category resolvable for %s payment on invoice %s (type %s, category %q)",
			component, inv.Number, inv.Type, inv.CategoryID),
		Err: types.ErrCategoryUnresolved,
	}
}

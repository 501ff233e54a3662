package invoice

import (
	"context"
	"time"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/types"
)

type Store interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, invID id.InvoiceID) (*Invoice, error)
	ListInvoices(ctx context.Context, opts ListOpts) ([]*Invoice, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	DeleteInvoice(ctx context.Context, invID id.InvoiceID) error

	// SetPaidAmount refreshes the cached paid total without touching other
	// fields.
	SetPaidAmount(ctx context.Context, invID id.InvoiceID, paid types.Money) error
}

type ListOpts struct {
	Direction  Direction
	Type       Type
	ContactID  string
	PropertyID string
	TemplateID id.TemplateID
	Start      time.Time
	End        time.Time
	Limit      int
	Offset     int
}

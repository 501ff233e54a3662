package payment

import (
	"context"
	"time"

	"github.com/xraph/rentledger/id"
)

// Store persists payments. CreatePayments and ReverseBatch apply all rows or
// none.
type Store interface {
	CreatePayments(ctx context.Context, payments []*Payment) error
	GetPayment(ctx context.Context, payID id.PaymentID) (*Payment, error)
	ListPayments(ctx context.Context, opts ListOpts) ([]*Payment, error)
	ReversePayment(ctx context.Context, payID id.PaymentID, at time.Time) error
	ReverseBatch(ctx context.Context, batchID id.BatchID, at time.Time) (int64, error)
	DeletePayment(ctx context.Context, payID id.PaymentID) error
}

type ListOpts struct {
	// InvoiceID matches payments linked to the invoice or bill with this ID.
	InvoiceID       id.InvoiceID
	BatchID         id.BatchID
	AccountID       string
	IncludeReversed bool
	Start           time.Time
	End             time.Time
	Limit           int
	Offset          int
}

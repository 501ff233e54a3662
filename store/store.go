// Package store defines the persistence boundary of the ledger.
package store

import (
	"context"
	"time"

	"github.com/xraph/rentledger/category"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/recurring"
	"github.com/xraph/rentledger/types"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// Store is the unified storage interface for all rentledger records and the
// host entities they reference. Methods are declared explicitly rather than
// by embedding the per-package interfaces so every backend is checked
// against one list.
type Store interface {
	// Invoice methods
	CreateInvoice(ctx context.Context, inv *invoice.Invoice) error
	GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error)
	ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error
	DeleteInvoice(ctx context.Context, invID id.InvoiceID) error
	SetPaidAmount(ctx context.Context, invID id.InvoiceID, paid types.Money) error

	// Payment methods
	CreatePayments(ctx context.Context, payments []*payment.Payment) error
	GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error)
	ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error)
	ReversePayment(ctx context.Context, payID id.PaymentID, at time.Time) error
	ReverseBatch(ctx context.Context, batchID id.BatchID, at time.Time) (int64, error)
	DeletePayment(ctx context.Context, payID id.PaymentID) error

	// Recurring template methods
	CreateTemplate(ctx context.Context, t *recurring.Template) error
	GetTemplate(ctx context.Context, tplID id.TemplateID) (*recurring.Template, error)
	ListTemplates(ctx context.Context, opts recurring.ListOpts) ([]*recurring.Template, error)
	UpdateTemplate(ctx context.Context, t *recurring.Template) error
	DeleteTemplate(ctx context.Context, tplID id.TemplateID) error
	AdvanceTemplate(ctx context.Context, inv *invoice.Invoice, t *recurring.Template, expectedNextDue time.Time) error

	// Directory methods
	PutEntity(ctx context.Context, e *directory.Entity) error
	ResolveEntity(ctx context.Context, kind directory.Kind, entityID string) (*directory.Entity, error)
	ListEntities(ctx context.Context, kind directory.Kind) ([]*directory.Entity, error)

	// Category methods
	PutCategory(ctx context.Context, c *category.Category) error
	ListCategories(ctx context.Context) ([]*category.Category, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

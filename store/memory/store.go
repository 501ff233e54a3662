// Package memory is an in-process store for tests, the CLI and small
// deployments. Records are copied on the way in and out, so callers never
// share state with the store.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/xraph/rentledger"
	"github.com/xraph/rentledger/category"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/recurring"
	"github.com/xraph/rentledger/store"
	"github.com/xraph/rentledger/types"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Invoice and bill storage
	invoices map[string]*invoice.Invoice

	// Payment storage
	payments map[string]*payment.Payment

	// Recurring template storage
	templates map[string]*recurring.Template

	// Host entities, keyed by kind then ID
	entities map[directory.Kind]map[string]*directory.Entity

	// Category storage
	categories map[string]*category.Category
}

func New() *Store {
	return &Store{
		invoices:   make(map[string]*invoice.Invoice),
		payments:   make(map[string]*payment.Payment),
		templates:  make(map[string]*recurring.Template),
		entities:   make(map[directory.Kind]map[string]*directory.Entity),
		categories: make(map[string]*category.Category),
	}
}

// Invoice Store implementation
func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[inv.ID.String()]; exists {
		return rentledger.ErrAlreadyExists
	}
	s.invoices[inv.ID.String()] = cloneInvoice(inv)
	return nil
}

func (s *Store) GetInvoice(_ context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inv, ok := s.invoices[invID.String()]; ok {
		return cloneInvoice(inv), nil
	}
	return nil, rentledger.ErrInvoiceNotFound
}

func (s *Store) ListInvoices(_ context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*invoice.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		if opts.Direction != "" && inv.Direction != opts.Direction {
			continue
		}
		if opts.Type != "" && inv.Type != opts.Type {
			continue
		}
		if opts.ContactID != "" && inv.ContactID != opts.ContactID {
			continue
		}
		if opts.PropertyID != "" && inv.PropertyID != opts.PropertyID {
			continue
		}
		if !opts.TemplateID.IsNil() && inv.TemplateID != opts.TemplateID {
			continue
		}
		if !opts.Start.IsZero() && inv.IssueDate.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && inv.IssueDate.After(opts.End) {
			continue
		}
		result = append(result, cloneInvoice(inv))
	}

	slices.SortFunc(result, func(a, b *invoice.Invoice) int {
		if c := a.IssueDate.Compare(b.IssueDate); c != 0 {
			return c
		}
		return cmp.Compare(a.Number, b.Number)
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[inv.ID.String()]; !exists {
		return rentledger.ErrInvoiceNotFound
	}
	s.invoices[inv.ID.String()] = cloneInvoice(inv)
	return nil
}

func (s *Store) DeleteInvoice(_ context.Context, invID id.InvoiceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[invID.String()]; !exists {
		return rentledger.ErrInvoiceNotFound
	}
	delete(s.invoices, invID.String())
	return nil
}

func (s *Store) SetPaidAmount(_ context.Context, invID id.InvoiceID, paid types.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, exists := s.invoices[invID.String()]
	if !exists {
		return rentledger.ErrInvoiceNotFound
	}
	inv.PaidAmount = paid
	inv.Touch()
	return nil
}

// Payment Store implementation
func (s *Store) CreatePayments(_ context.Context, payments []*payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check the whole batch before writing any of it.
	seen := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		key := p.ID.String()
		if _, exists := s.payments[key]; exists {
			return fmt.Errorf("%w: payment %s", rentledger.ErrAlreadyExists, key)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: payment %s repeated in batch", rentledger.ErrAlreadyExists, key)
		}
		seen[key] = struct{}{}
	}
	for _, p := range payments {
		s.payments[p.ID.String()] = clonePayment(p)
	}
	return nil
}

func (s *Store) GetPayment(_ context.Context, payID id.PaymentID) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.payments[payID.String()]; ok {
		return clonePayment(p), nil
	}
	return nil, rentledger.ErrPaymentNotFound
}

func (s *Store) ListPayments(_ context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payment.Payment, 0)
	for _, p := range s.payments {
		if !opts.IncludeReversed && !p.Active() {
			continue
		}
		if !opts.InvoiceID.IsNil() && p.InvoiceID != opts.InvoiceID && p.BillID != opts.InvoiceID {
			continue
		}
		if !opts.BatchID.IsNil() && p.BatchID != opts.BatchID {
			continue
		}
		if opts.AccountID != "" && p.AccountID != opts.AccountID {
			continue
		}
		if !opts.Start.IsZero() && p.Date.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && p.Date.After(opts.End) {
			continue
		}
		result = append(result, clonePayment(p))
	}

	slices.SortFunc(result, func(a, b *payment.Payment) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ReversePayment(_ context.Context, payID id.PaymentID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.payments[payID.String()]
	if !exists {
		return rentledger.ErrPaymentNotFound
	}
	if !p.Active() {
		return rentledger.ErrPaymentReversed
	}
	p.ReversedAt = &at
	p.Touch()
	return nil
}

func (s *Store) ReverseBatch(_ context.Context, batchID id.BatchID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, p := range s.payments {
		if p.BatchID == batchID && p.Active() {
			reversedAt := at
			p.ReversedAt = &reversedAt
			p.Touch()
			n++
		}
	}
	return n, nil
}

func (s *Store) DeletePayment(_ context.Context, payID id.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[payID.String()]; !exists {
		return rentledger.ErrPaymentNotFound
	}
	delete(s.payments, payID.String())
	return nil
}

// Recurring template Store implementation
func (s *Store) CreateTemplate(_ context.Context, t *recurring.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[t.ID.String()]; exists {
		return rentledger.ErrAlreadyExists
	}
	s.templates[t.ID.String()] = cloneTemplate(t)
	return nil
}

func (s *Store) GetTemplate(_ context.Context, tplID id.TemplateID) (*recurring.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.templates[tplID.String()]; ok {
		return cloneTemplate(t), nil
	}
	return nil, rentledger.ErrTemplateNotFound
}

func (s *Store) ListTemplates(_ context.Context, opts recurring.ListOpts) ([]*recurring.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*recurring.Template, 0, len(s.templates))
	for _, t := range s.templates {
		if opts.ActiveOnly && !t.Active {
			continue
		}
		if !opts.DueBefore.IsZero() && !t.NextDueDate.Before(opts.DueBefore) {
			continue
		}
		result = append(result, cloneTemplate(t))
	}

	slices.SortFunc(result, func(a, b *recurring.Template) int {
		if c := a.NextDueDate.Compare(b.NextDueDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateTemplate(_ context.Context, t *recurring.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[t.ID.String()]; !exists {
		return rentledger.ErrTemplateNotFound
	}
	s.templates[t.ID.String()] = cloneTemplate(t)
	return nil
}

func (s *Store) DeleteTemplate(_ context.Context, tplID id.TemplateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[tplID.String()]; !exists {
		return rentledger.ErrTemplateNotFound
	}
	delete(s.templates, tplID.String())
	return nil
}

func (s *Store) AdvanceTemplate(_ context.Context, inv *invoice.Invoice, t *recurring.Template, expectedNextDue time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.templates[t.ID.String()]
	if !exists {
		return rentledger.ErrTemplateNotFound
	}
	if !current.NextDueDate.Equal(expectedNextDue) {
		return fmt.Errorf("%w: template %s next due %s, expected %s", rentledger.ErrConflict, t.ID,
			current.NextDueDate.Format(time.DateOnly), expectedNextDue.Format(time.DateOnly))
	}
	if inv != nil {
		if _, dup := s.invoices[inv.ID.String()]; dup {
			return rentledger.ErrAlreadyExists
		}
		s.invoices[inv.ID.String()] = cloneInvoice(inv)
	}
	s.templates[t.ID.String()] = cloneTemplate(t)
	return nil
}

// Directory Store implementation
func (s *Store) PutEntity(_ context.Context, e *directory.Entity) error {
	if e.ID == "" {
		return types.Invalid("id", "entity id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.entities[e.Kind]
	if !ok {
		m = make(map[string]*directory.Entity)
		s.entities[e.Kind] = m
	}
	cp := *e
	m[e.ID] = &cp
	return nil
}

func (s *Store) ResolveEntity(_ context.Context, kind directory.Kind, entityID string) (*directory.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entities[kind][entityID]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) ListEntities(_ context.Context, kind directory.Kind) ([]*directory.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*directory.Entity, 0, len(s.entities[kind]))
	for _, e := range s.entities[kind] {
		cp := *e
		result = append(result, &cp)
	}
	slices.SortFunc(result, func(a, b *directory.Entity) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

// Category Store implementation
func (s *Store) PutCategory(_ context.Context, c *category.Category) error {
	if c.ID == "" {
		return types.Invalid("id", "category id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]*category.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*category.Category, 0, len(s.categories))
	for _, c := range s.categories {
		cp := *c
		result = append(result, &cp)
	}
	// Stable order keeps the first-of-kind category deterministic.
	slices.SortFunc(result, func(a, b *category.Category) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// Helper functions
func paginate[T any](items []T, offset, limit int) []T {
	start := min(max(offset, 0), len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}

func cloneInvoice(inv *invoice.Invoice) *invoice.Invoice {
	cp := *inv
	cp.Metadata = maps.Clone(inv.Metadata)
	return &cp
}

func clonePayment(p *payment.Payment) *payment.Payment {
	cp := *p
	if p.ReversedAt != nil {
		at := *p.ReversedAt
		cp.ReversedAt = &at
	}
	return &cp
}

func cloneTemplate(t *recurring.Template) *recurring.Template {
	cp := *t
	if t.EndDate != nil {
		end := *t.EndDate
		cp.EndDate = &end
	}
	if t.LastRunAt != nil {
		last := *t.LastRunAt
		cp.LastRunAt = &last
	}
	return &cp
}

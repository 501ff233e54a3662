package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xraph/rentledger/category"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/recurring"
	"github.com/xraph/rentledger/store"
)

// snapshot is the on-disk form of a whole ledger.
type snapshot struct {
	Categories []*category.Category  `json:"categories"`
	Entities   []*directory.Entity   `json:"entities"`
	Invoices   []*invoice.Invoice    `json:"invoices"`
	Payments   []*payment.Payment    `json:"payments"`
	Templates  []*recurring.Template `json:"templates"`
}

// readSnapshot decodes path. A missing file is an empty ledger.
func readSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}
	snap := &snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, nil
}

// writeSnapshot replaces path atomically.
func writeSnapshot(path string, snap *snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rentledger-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error wins
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// load writes the snapshot into s. Records without an ID get one.
func (snap *snapshot) load(ctx context.Context, s store.Store) error {
	for _, c := range snap.Categories {
		if err := s.PutCategory(ctx, c); err != nil {
			return fmt.Errorf("category %s: %w", c.ID, err)
		}
	}
	for _, e := range snap.Entities {
		if err := s.PutEntity(ctx, e); err != nil {
			return fmt.Errorf("%s %s: %w", e.Kind, e.ID, err)
		}
	}
	for _, inv := range snap.Invoices {
		if inv.ID.IsNil() {
			inv.ID = id.NewInvoiceID()
		}
		if err := s.CreateInvoice(ctx, inv); err != nil {
			return fmt.Errorf("invoice %s: %w", inv.Number, err)
		}
	}
	for _, p := range snap.Payments {
		if p.ID.IsNil() {
			p.ID = id.NewPaymentID()
		}
	}
	if err := s.CreatePayments(ctx, snap.Payments); err != nil {
		return fmt.Errorf("payments: %w", err)
	}
	for _, t := range snap.Templates {
		if t.ID.IsNil() {
			t.ID = id.NewTemplateID()
		}
		if err := s.CreateTemplate(ctx, t); err != nil {
			return fmt.Errorf("template %s: %w", t.ID, err)
		}
	}
	return nil
}

// dump reads every record back out of s.
func dump(ctx context.Context, s store.Store) (*snapshot, error) {
	snap := &snapshot{}
	var err error
	if snap.Categories, err = s.ListCategories(ctx); err != nil {
		return nil, err
	}
	for _, k := range directory.Kinds {
		list, err := s.ListEntities(ctx, k)
		if err != nil {
			return nil, err
		}
		snap.Entities = append(snap.Entities, list...)
	}
	if snap.Invoices, err = s.ListInvoices(ctx, invoice.ListOpts{}); err != nil {
		return nil, err
	}
	if snap.Payments, err = s.ListPayments(ctx, payment.ListOpts{IncludeReversed: true}); err != nil {
		return nil, err
	}
	if snap.Templates, err = s.ListTemplates(ctx, recurring.ListOpts{}); err != nil {
		return nil, err
	}
	return snap, nil
}

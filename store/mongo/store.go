package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/rentledger"
	"github.com/xraph/rentledger/category"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/recurring"
	ledgerstore "github.com/xraph/rentledger/store"
	"github.com/xraph/rentledger/types"
)

// Collection name constants.
const (
	colInvoices   = "rentledger_invoices"
	colPayments   = "rentledger_payments"
	colTemplates  = "rentledger_templates"
	colEntities   = "rentledger_entities"
	colCategories = "rentledger_categories"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all rentledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("%w: mongo: %s indexes: %w", rentledger.ErrMigrationFailed, col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	_, err := s.mdb.NewInsert(toInvoiceModel(inv)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: invoice %s", rentledger.ErrAlreadyExists, inv.ID)
		}
		return fmt.Errorf("rentledger/mongo: create invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	var m invoiceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": invID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rentledger.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("rentledger/mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(&m)
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel

	filter := bson.M{}
	if opts.Direction != "" {
		filter["direction"] = string(opts.Direction)
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	if opts.ContactID != "" {
		filter["contact_id"] = opts.ContactID
	}
	if opts.PropertyID != "" {
		filter["property_id"] = opts.PropertyID
	}
	if !opts.TemplateID.IsNil() {
		filter["template_id"] = opts.TemplateID.String()
	}
	if r := dateRange(opts.Start, opts.End); r != nil {
		filter["issue_date"] = r
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "issue_date", Value: 1}, {Key: "number", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rentledger/mongo: list invoices: %w", err)
	}

	result := make([]*invoice.Invoice, len(models))
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = inv
	}
	return result, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rentledger/mongo: update invoice: %w", err)
	}
	if res.MatchedCount() == 0 {
		return rentledger.ErrInvoiceNotFound
	}
	return nil
}

func (s *Store) DeleteInvoice(ctx context.Context, invID id.InvoiceID) error {
	res, err := s.mdb.NewDelete((*invoiceModel)(nil)).
		Filter(bson.M{"_id": invID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rentledger/mongo: delete invoice: %w", err)
	}
	if res.DeletedCount() == 0 {
		return rentledger.ErrInvoiceNotFound
	}
	return nil
}

func (s *Store) SetPaidAmount(ctx context.Context, invID id.InvoiceID, paid types.Money) error {
	res, err := s.mdb.NewUpdate((*invoiceModel)(nil)).
		Filter(bson.M{"_id": invID.String()}).
		Set("paid_amount_cents", paid.Amount).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rentledger/mongo: set paid amount: %w", err)
	}
	if res.MatchedCount() == 0 {
		return rentledger.ErrInvoiceNotFound
	}
	return nil
}

// ==================== Payment Store ====================

// CreatePayments inserts the batch one document at a time. When an insert
// fails, the documents already written for this batch are removed again.
func (s *Store) CreatePayments(ctx context.Context, payments []*payment.Payment) error {
	if len(payments) == 0 {
		return nil
	}

	ids := make([]string, len(payments))
	for i, p := range payments {
		ids[i] = p.ID.String()
	}
	existing, err := s.mdb.Collection(colPayments).CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return fmt.Errorf("rentledger/mongo: create payments: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("%w: %d payment(s) in batch", rentledger.ErrAlreadyExists, existing)
	}

	for i, p := range payments {
		if _, err := s.mdb.NewInsert(toPaymentModel(p)).Exec(ctx); err != nil {
			if i > 0 {
				_, rbErr := s.mdb.NewDelete((*paymentModel)(nil)).
					Filter(bson.M{"_id": bson.M{"$in": ids[:i]}}).
					Exec(ctx)
				err = errors.Join(err, rbErr)
			}
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: payment %s: %w", rentledger.ErrAlreadyExists, p.ID, err)
			}
			return fmt.Errorf("rentledger/mongo: create payment: %w", err)
		}
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error) {
	var m paymentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": payID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rentledger.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("rentledger/mongo: get payment: %w", err)
	}
	return fromPaymentModel(&m)
}

func (s *Store) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel

	filter := bson.M{}
	if !opts.IncludeReversed {
		filter["reversed_at"] = nil
	}
	if !opts.InvoiceID.IsNil() {
		ref := opts.InvoiceID.String()
		filter["$or"] = bson.A{bson.M{"invoice_id": ref}, bson.M{"bill_id": ref}}
	}
	if !opts.BatchID.IsNil() {
		filter["batch_id"] = opts.BatchID.String()
	}
	if opts.AccountID != "" {
		filter["account_id"] = opts.AccountID
	}
	if r := dateRange(opts.Start, opts.End); r != nil {
		filter["date"] = r
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rentledger/mongo: list payments: %w", err)
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) ReversePayment(ctx context.Context, payID id.PaymentID, at time.Time) error {
	res, err := s.mdb.NewUpdate((*paymentModel)(nil)).
		Filter(bson.M{"_id": payID.String(), "reversed_at": nil}).
		Set("reversed_at", at).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rentledger/mongo: reverse payment: %w", err)
	}
	if res.MatchedCount() > 0 {
		return nil
	}
	if _, err := s.GetPayment(ctx, payID); err != nil {
		return err
	}
	return rentledger.ErrPaymentReversed
}

func (s *Store) ReverseBatch(ctx context.Context, batchID id.BatchID, at time.Time) (int64, error) {
	res, err := s.mdb.Collection(colPayments).UpdateMany(ctx,
		bson.M{"batch_id": batchID.String(), "reversed_at": nil},
		bson.M{"$set": bson.M{"reversed_at": at, "updated_at": now()}},
	)
	if err != nil {
		return 0, fmt.Errorf("rentledger/mongo: reverse batch: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *Store) DeletePayment(ctx context.Context, payID id.PaymentID) error {
	res, err := s.mdb.NewDelete((*paymentModel)(nil)).
		Filter(bson.M{"_id": payID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rentledger/mongo: delete payment: %w", err)
	}
	if res.DeletedCount() == 0 {
		return rentledger.ErrPaymentNotFound
	}
	return nil
}

// ==================== Recurring Template Store ====================

func (s *Store) CreateTemplate(ctx context.Context, t *recurring.Template) error {
	_, err := s.mdb.NewInsert(toTemplateModel(t)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: template %s", rentledger.ErrAlreadyExists, t.ID)
		}
		return fmt.Errorf("rentledger/mongo: create template: %w", err)
	}
	return nil
}

func (s *Store) GetTemplate(ctx context.Context, tplID id.TemplateID) (*recurring.Template, error) {
	var m templateModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tplID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rentledger.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("rentledger/mongo: get template: %w", err)
	}
	return fromTemplateModel(&m)
}

func (s *Store) ListTemplates(ctx context.Context, opts recurring.ListOpts) ([]*recurring.Template, error) {
	var models []templateModel

	filter := bson.M{}
	if opts.ActiveOnly {
		filter["active"] = true
	}
	if !opts.DueBefore.IsZero() {
		filter["next_due_date"] = bson.M{"$lt": opts.DueBefore}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "next_due_date", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rentledger/mongo: list templates: %w", err)
	}

	result := make([]*recurring.Template, len(models))
	for i := range models {
		t, err := fromTemplateModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, t *recurring.Template) error {
	m := toTemplateModel(t)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rentledger/mongo: update template: %w", err)
	}
	if res.MatchedCount() == 0 {
		return rentledger.ErrTemplateNotFound
	}
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, tplID id.TemplateID) error {
	res, err := s.mdb.NewDelete((*templateModel)(nil)).
		Filter(bson.M{"_id": tplID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rentledger/mongo: delete template: %w", err)
	}
	if res.DeletedCount() == 0 {
		return rentledger.ErrTemplateNotFound
	}
	return nil
}

// AdvanceTemplate moves the template forward only while its next due date
// still equals expectedNextDue, then inserts the generated invoice. A failed
// insert puts the template back.
func (s *Store) AdvanceTemplate(ctx context.Context, inv *invoice.Invoice, t *recurring.Template, expectedNextDue time.Time) error {
	res, err := s.mdb.NewUpdate((*templateModel)(nil)).
		Filter(bson.M{"_id": t.ID.String(), "next_due_date": expectedNextDue}).
		Set("next_due_date", t.NextDueDate).
		Set("generated_count", t.GeneratedCount).
		Set("last_run_at", t.LastRunAt).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rentledger/mongo: advance template: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, err := s.GetTemplate(ctx, t.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: template %s expected next due %s", rentledger.ErrConflict, t.ID,
			expectedNextDue.Format(time.DateOnly))
	}

	if inv == nil {
		return nil
	}
	if _, err := s.mdb.NewInsert(toInvoiceModel(inv)).Exec(ctx); err != nil {
		_, rbErr := s.mdb.NewUpdate((*templateModel)(nil)).
			Filter(bson.M{"_id": t.ID.String(), "next_due_date": t.NextDueDate}).
			Set("next_due_date", expectedNextDue).
			Set("generated_count", t.GeneratedCount-1).
			Exec(ctx)
		return errors.Join(fmt.Errorf("rentledger/mongo: insert generated invoice: %w", err), rbErr)
	}
	return nil
}

// ==================== Directory Store ====================

func (s *Store) PutEntity(ctx context.Context, e *directory.Entity) error {
	if e.ID == "" {
		return types.Invalid("id", "entity id is required")
	}
	m := toEntityModel(e)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Key}).
		SetUpdate(bson.M{"$set": bson.M{
			"kind":        m.Kind,
			"entity_id":   m.ID,
			"name":        m.Name,
			"role":        m.Role,
			"building_id": m.BuildingID,
			"owner_id":    m.OwnerID,
			"project_id":  m.ProjectID,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rentledger/mongo: put entity: %w", err)
	}
	return nil
}

func (s *Store) ResolveEntity(ctx context.Context, kind directory.Kind, entityID string) (*directory.Entity, error) {
	var m entityModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": entityKey(kind, entityID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("rentledger/mongo: resolve entity: %w", err)
	}
	return fromEntityModel(&m), nil
}

func (s *Store) ListEntities(ctx context.Context, kind directory.Kind) ([]*directory.Entity, error) {
	var models []entityModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"kind": string(kind)}).
		Sort(bson.D{{Key: "entity_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rentledger/mongo: list entities: %w", err)
	}

	result := make([]*directory.Entity, len(models))
	for i := range models {
		result[i] = fromEntityModel(&models[i])
	}
	return result, nil
}

// ==================== Category Store ====================

func (s *Store) PutCategory(ctx context.Context, c *category.Category) error {
	if c.ID == "" {
		return types.Invalid("id", "category id is required")
	}
	m := toCategoryModel(c)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{"name": m.Name, "kind": m.Kind}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rentledger/mongo: put category: %w", err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]*category.Category, error) {
	var models []categoryModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rentledger/mongo: list categories: %w", err)
	}

	result := make([]*category.Category, len(models))
	for i := range models {
		result[i] = fromCategoryModel(&models[i])
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// dateRange builds an inclusive range filter, or nil when both ends are open.
func dateRange(start, end time.Time) bson.M {
	if start.IsZero() && end.IsZero() {
		return nil
	}
	r := bson.M{}
	if !start.IsZero() {
		r["$gte"] = start
	}
	if !end.IsZero() {
		r["$lte"] = end
	}
	return r
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all rentledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colInvoices: {
			{Keys: bson.D{{Key: "issue_date", Value: 1}, {Key: "number", Value: 1}}},
			{Keys: bson.D{{Key: "due_date", Value: 1}}},
			{Keys: bson.D{{Key: "contact_id", Value: 1}}},
			{Keys: bson.D{{Key: "property_id", Value: 1}}},
			{Keys: bson.D{{Key: "template_id", Value: 1}, {Key: "period", Value: 1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "invoice_id", Value: 1}}},
			{Keys: bson.D{{Key: "bill_id", Value: 1}}},
			{Keys: bson.D{{Key: "batch_id", Value: 1}, {Key: "reversed_at", Value: 1}}},
			{Keys: bson.D{{Key: "date", Value: 1}}},
		},
		colTemplates: {
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "next_due_date", Value: 1}}},
		},
		colEntities: {
			{
				Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "entity_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colCategories: {},
	}
}

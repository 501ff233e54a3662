package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

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

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("rentledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: sqlite: %w", rentledger.ErrMigrationFailed, err)
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
	_, err := s.sdb.NewInsert(toInvoiceModel(inv)).Exec(ctx)
	return err
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", invID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, rentledger.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromInvoiceModel(m)
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel
	q := s.sdb.NewSelect(&models)

	if opts.Direction != "" {
		q = q.Where("direction = ?", string(opts.Direction))
	}
	if opts.Type != "" {
		q = q.Where("type = ?", string(opts.Type))
	}
	if opts.ContactID != "" {
		q = q.Where("contact_id = ?", opts.ContactID)
	}
	if opts.PropertyID != "" {
		q = q.Where("property_id = ?", opts.PropertyID)
	}
	if !opts.TemplateID.IsNil() {
		q = q.Where("template_id = ?", opts.TemplateID.String())
	}
	if !opts.Start.IsZero() {
		q = q.Where("issue_date >= ?", opts.Start)
	}
	if !opts.End.IsZero() {
		q = q.Where("issue_date <= ?", opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("issue_date ASC, number ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	return affected(res, err, rentledger.ErrInvoiceNotFound)
}

func (s *Store) DeleteInvoice(ctx context.Context, invID id.InvoiceID) error {
	res, err := s.sdb.NewDelete((*invoiceModel)(nil)).
		Where("id = ?", invID.String()).
		Exec(ctx)
	return affected(res, err, rentledger.ErrInvoiceNotFound)
}

func (s *Store) SetPaidAmount(ctx context.Context, invID id.InvoiceID, paid types.Money) error {
	res, err := s.sdb.NewUpdate((*invoiceModel)(nil)).
		Set("paid_amount_cents = ?", paid.Amount).
		Set("updated_at = ?", now()).
		Where("id = ?", invID.String()).
		Exec(ctx)
	return affected(res, err, rentledger.ErrInvoiceNotFound)
}

// ==================== Payment Store ====================

// CreatePayments inserts the batch as one multi-row statement, so either
// every payment is stored or none is.
func (s *Store) CreatePayments(ctx context.Context, payments []*payment.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	models := make([]paymentModel, len(payments))
	for i, p := range payments {
		models[i] = *toPaymentModel(p)
	}
	_, err := s.sdb.NewInsert(&models).Exec(ctx)
	return err
}

func (s *Store) GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error) {
	m := new(paymentModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", payID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, rentledger.ErrPaymentNotFound
		}
		return nil, err
	}
	return fromPaymentModel(m)
}

func (s *Store) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel
	q := s.sdb.NewSelect(&models)

	if !opts.IncludeReversed {
		q = q.Where("reversed_at IS NULL")
	}
	if !opts.InvoiceID.IsNil() {
		q = q.Where("(invoice_id = ? OR bill_id = ?)", opts.InvoiceID.String(), opts.InvoiceID.String())
	}
	if !opts.BatchID.IsNil() {
		q = q.Where("batch_id = ?", opts.BatchID.String())
	}
	if opts.AccountID != "" {
		q = q.Where("account_id = ?", opts.AccountID)
	}
	if !opts.Start.IsZero() {
		q = q.Where("date >= ?", opts.Start)
	}
	if !opts.End.IsZero() {
		q = q.Where("date <= ?", opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("date ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.sdb.NewUpdate((*paymentModel)(nil)).
		Set("reversed_at = ?", at).
		Set("updated_at = ?", now()).
		Where("id = ?", payID.String()).
		Where("reversed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	// Nothing updated: the payment is missing or already reversed.
	if _, err := s.GetPayment(ctx, payID); err != nil {
		return err
	}
	return rentledger.ErrPaymentReversed
}

func (s *Store) ReverseBatch(ctx context.Context, batchID id.BatchID, at time.Time) (int64, error) {
	res, err := s.sdb.NewUpdate((*paymentModel)(nil)).
		Set("reversed_at = ?", at).
		Set("updated_at = ?", now()).
		Where("batch_id = ?", batchID.String()).
		Where("reversed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeletePayment(ctx context.Context, payID id.PaymentID) error {
	res, err := s.sdb.NewDelete((*paymentModel)(nil)).
		Where("id = ?", payID.String()).
		Exec(ctx)
	return affected(res, err, rentledger.ErrPaymentNotFound)
}

// ==================== Recurring Template Store ====================

func (s *Store) CreateTemplate(ctx context.Context, t *recurring.Template) error {
	_, err := s.sdb.NewInsert(toTemplateModel(t)).Exec(ctx)
	return err
}

func (s *Store) GetTemplate(ctx context.Context, tplID id.TemplateID) (*recurring.Template, error) {
	m := new(templateModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", tplID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, rentledger.ErrTemplateNotFound
		}
		return nil, err
	}
	return fromTemplateModel(m)
}

func (s *Store) ListTemplates(ctx context.Context, opts recurring.ListOpts) ([]*recurring.Template, error) {
	var models []templateModel
	q := s.sdb.NewSelect(&models)

	if opts.ActiveOnly {
		q = q.Where("active = 1")
	}
	if !opts.DueBefore.IsZero() {
		q = q.Where("next_due_date < ?", opts.DueBefore)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("next_due_date ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	return affected(res, err, rentledger.ErrTemplateNotFound)
}

func (s *Store) DeleteTemplate(ctx context.Context, tplID id.TemplateID) error {
	res, err := s.sdb.NewDelete((*templateModel)(nil)).
		Where("id = ?", tplID.String()).
		Exec(ctx)
	return affected(res, err, rentledger.ErrTemplateNotFound)
}

// AdvanceTemplate claims the step with a conditional update on the expected
// next due date, then inserts the generated invoice. A failed insert rolls
// the template back to expectedNextDue so the period is retried.
func (s *Store) AdvanceTemplate(ctx context.Context, inv *invoice.Invoice, t *recurring.Template, expectedNextDue time.Time) error {
	res, err := s.sdb.NewUpdate((*templateModel)(nil)).
		Set("next_due_date = ?", t.NextDueDate).
		Set("generated_count = ?", t.GeneratedCount).
		Set("last_run_at = ?", t.LastRunAt).
		Set("updated_at = ?", now()).
		Where("id = ?", t.ID.String()).
		Where("next_due_date = ?", expectedNextDue).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetTemplate(ctx, t.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: template %s expected next due %s", rentledger.ErrConflict, t.ID,
			expectedNextDue.Format(time.DateOnly))
	}

	if inv == nil {
		return nil
	}
	if _, err := s.sdb.NewInsert(toInvoiceModel(inv)).Exec(ctx); err != nil {
		_, rbErr := s.sdb.NewUpdate((*templateModel)(nil)).
			Set("next_due_date = ?", expectedNextDue).
			Set("generated_count = generated_count - 1").
			Where("id = ?", t.ID.String()).
			Where("next_due_date = ?", t.NextDueDate).
			Exec(ctx)
		return errors.Join(fmt.Errorf("insert generated invoice: %w", err), rbErr)
	}
	return nil
}

// ==================== Directory Store ====================

func (s *Store) PutEntity(ctx context.Context, e *directory.Entity) error {
	if e.ID == "" {
		return types.Invalid("id", "entity id is required")
	}
	_, err := s.sdb.NewInsert(toEntityModel(e)).
		OnConflict("(kind, id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("role = EXCLUDED.role").
		Set("building_id = EXCLUDED.building_id").
		Set("owner_id = EXCLUDED.owner_id").
		Set("project_id = EXCLUDED.project_id").
		Exec(ctx)
	return err
}

func (s *Store) ResolveEntity(ctx context.Context, kind directory.Kind, entityID string) (*directory.Entity, error) {
	m := new(entityModel)
	err := s.sdb.NewSelect(m).
		Where("kind = ?", string(kind)).
		Where("id = ?", entityID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return fromEntityModel(m), nil
}

func (s *Store) ListEntities(ctx context.Context, kind directory.Kind) ([]*directory.Entity, error) {
	var models []entityModel
	err := s.sdb.NewSelect(&models).
		Where("kind = ?", string(kind)).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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
	_, err := s.sdb.NewInsert(toCategoryModel(c)).
		OnConflict("(id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("kind = EXCLUDED.kind").
		Exec(ctx)
	return err
}

func (s *Store) ListCategories(ctx context.Context) ([]*category.Category, error) {
	var models []categoryModel
	if err := s.sdb.NewSelect(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
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

// affected maps a zero-row write to notFound.
func affected(res sql.Result, err, notFound error) error {
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

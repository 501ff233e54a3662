package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
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

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("rentledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: postgres: %w", rentledger.ErrMigrationFailed, err)
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
	_, err := s.pg.NewInsert(toInvoiceModel(inv)).Exec(ctx)
	return err
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", invID.String()).
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
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Direction != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("direction = $%d", argIdx), string(opts.Direction))
	}
	if opts.Type != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("type = $%d", argIdx), string(opts.Type))
	}
	if opts.ContactID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("contact_id = $%d", argIdx), opts.ContactID)
	}
	if opts.PropertyID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("property_id = $%d", argIdx), opts.PropertyID)
	}
	if !opts.TemplateID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("template_id = $%d", argIdx), opts.TemplateID.String())
	}
	if !opts.Start.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("issue_date >= $%d", argIdx), opts.Start)
	}
	if !opts.End.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("issue_date <= $%d", argIdx), opts.End)
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
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	return affected(res, err, rentledger.ErrInvoiceNotFound)
}

func (s *Store) DeleteInvoice(ctx context.Context, invID id.InvoiceID) error {
	res, err := s.pg.NewDelete((*invoiceModel)(nil)).
		Where("id = $1", invID.String()).
		Exec(ctx)
	return affected(res, err, rentledger.ErrInvoiceNotFound)
}

func (s *Store) SetPaidAmount(ctx context.Context, invID id.InvoiceID, paid types.Money) error {
	res, err := s.pg.NewUpdate((*invoiceModel)(nil)).
		Set("paid_amount_cents = $1", paid.Amount).
		Set("updated_at = $2", now()).
		Where("id = $3", invID.String()).
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
	_, err := s.pg.NewInsert(&models).Exec(ctx)
	return err
}

func (s *Store) GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error) {
	m := new(paymentModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", payID.String()).
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
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.IncludeReversed {
		q = q.Where("reversed_at IS NULL")
	}
	if !opts.InvoiceID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("(invoice_id = $%d OR bill_id = $%d)", argIdx, argIdx), opts.InvoiceID.String())
	}
	if !opts.BatchID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("batch_id = $%d", argIdx), opts.BatchID.String())
	}
	if opts.AccountID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("account_id = $%d", argIdx), opts.AccountID)
	}
	if !opts.Start.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("date >= $%d", argIdx), opts.Start)
	}
	if !opts.End.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("date <= $%d", argIdx), opts.End)
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
	res, err := s.pg.NewUpdate((*paymentModel)(nil)).
		Set("reversed_at = $1", at).
		Set("updated_at = $2", now()).
		Where("id = $3", payID.String()).
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
	res, err := s.pg.NewUpdate((*paymentModel)(nil)).
		Set("reversed_at = $1", at).
		Set("updated_at = $2", now()).
		Where("batch_id = $3", batchID.String()).
		Where("reversed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeletePayment(ctx context.Context, payID id.PaymentID) error {
	res, err := s.pg.NewDelete((*paymentModel)(nil)).
		Where("id = $1", payID.String()).
		Exec(ctx)
	return affected(res, err, rentledger.ErrPaymentNotFound)
}

// ==================== Recurring Template Store ====================

func (s *Store) CreateTemplate(ctx context.Context, t *recurring.Template) error {
	_, err := s.pg.NewInsert(toTemplateModel(t)).Exec(ctx)
	return err
}

func (s *Store) GetTemplate(ctx context.Context, tplID id.TemplateID) (*recurring.Template, error) {
	m := new(templateModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", tplID.String()).
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
	q := s.pg.NewSelect(&models)

	if opts.ActiveOnly {
		q = q.Where("active = TRUE")
	}
	if !opts.DueBefore.IsZero() {
		q = q.Where("next_due_date < $1", opts.DueBefore)
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
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	return affected(res, err, rentledger.ErrTemplateNotFound)
}

func (s *Store) DeleteTemplate(ctx context.Context, tplID id.TemplateID) error {
	res, err := s.pg.NewDelete((*templateModel)(nil)).
		Where("id = $1", tplID.String()).
		Exec(ctx)
	return affected(res, err, rentledger.ErrTemplateNotFound)
}

// AdvanceTemplate claims the step with a conditional update on the expected
// next due date, then inserts the generated invoice. A failed insert rolls
// the template back to expectedNextDue so the period is retried.
func (s *Store) AdvanceTemplate(ctx context.Context, inv *invoice.Invoice, t *recurring.Template, expectedNextDue time.Time) error {
	res, err := s.pg.NewUpdate((*templateModel)(nil)).
		Set("next_due_date = $1", t.NextDueDate).
		Set("generated_count = $2", t.GeneratedCount).
		Set("last_run_at = $3", t.LastRunAt).
		Set("updated_at = $4", now()).
		Where("id = $5", t.ID.String()).
		Where("next_due_date = $6", expectedNextDue).
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
	if _, err := s.pg.NewInsert(toInvoiceModel(inv)).Exec(ctx); err != nil {
		_, rbErr := s.pg.NewUpdate((*templateModel)(nil)).
			Set("next_due_date = $1", expectedNextDue).
			Set("generated_count = generated_count - 1").
			Where("id = $2", t.ID.String()).
			Where("next_due_date = $3", t.NextDueDate).
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
	_, err := s.pg.NewInsert(toEntityModel(e)).
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
	err := s.pg.NewSelect(m).
		Where("kind = $1", string(kind)).
		Where("id = $2", entityID).
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
	err := s.pg.NewSelect(&models).
		Where("kind = $1", string(kind)).
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
	_, err := s.pg.NewInsert(toCategoryModel(c)).
		OnConflict("(id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("kind = EXCLUDED.kind").
		Exec(ctx)
	return err
}

func (s *Store) ListCategories(ctx context.Context) ([]*category.Category, error) {
	var models []categoryModel
	if err := s.pg.NewSelect(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
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

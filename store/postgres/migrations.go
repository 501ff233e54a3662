package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the rentledger store.
var Migrations = migrate.NewGroup("rentledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_rentledger_invoices",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rentledger_invoices (
    id                    TEXT PRIMARY KEY,
    number                TEXT NOT NULL DEFAULT '',
    direction             TEXT NOT NULL DEFAULT 'receivable',
    type                  TEXT NOT NULL DEFAULT 'rental',
    draft                 BOOLEAN NOT NULL DEFAULT FALSE,
    currency              TEXT NOT NULL DEFAULT '',
    amount_cents          BIGINT NOT NULL DEFAULT 0,
    paid_amount_cents     BIGINT NOT NULL DEFAULT 0,
    deposit_charge_cents  BIGINT NOT NULL DEFAULT 0,
    service_charges_cents BIGINT NOT NULL DEFAULT 0,
    issue_date            TIMESTAMPTZ NOT NULL,
    due_date              TIMESTAMPTZ NOT NULL,
    description           TEXT NOT NULL DEFAULT '',
    contact_id            TEXT NOT NULL DEFAULT '',
    property_id           TEXT NOT NULL DEFAULT '',
    building_id           TEXT NOT NULL DEFAULT '',
    project_id            TEXT NOT NULL DEFAULT '',
    unit_id               TEXT NOT NULL DEFAULT '',
    agreement_id          TEXT NOT NULL DEFAULT '',
    category_id           TEXT NOT NULL DEFAULT '',
    template_id           TEXT NOT NULL DEFAULT '',
    period                TEXT NOT NULL DEFAULT '',
    metadata              JSONB NOT NULL DEFAULT '{}',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (amount_cents >= 0),
    CHECK (due_date >= issue_date)
);

CREATE INDEX IF NOT EXISTS idx_rentledger_invoices_due ON rentledger_invoices (due_date);
CREATE INDEX IF NOT EXISTS idx_rentledger_invoices_contact ON rentledger_invoices (contact_id);
CREATE INDEX IF NOT EXISTS idx_rentledger_invoices_property ON rentledger_invoices (property_id);
CREATE INDEX IF NOT EXISTS idx_rentledger_invoices_template ON rentledger_invoices (template_id, period);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rentledger_invoices`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rentledger_payments",
			Version: "20260301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rentledger_payments (
    id            TEXT PRIMARY KEY,
    type          TEXT NOT NULL DEFAULT 'income',
    amount_cents  BIGINT NOT NULL DEFAULT 0,
    currency      TEXT NOT NULL DEFAULT '',
    date          TIMESTAMPTZ NOT NULL,
    account_id    TEXT NOT NULL DEFAULT '',
    invoice_id    TEXT NOT NULL DEFAULT '',
    bill_id       TEXT NOT NULL DEFAULT '',
    batch_id      TEXT NOT NULL DEFAULT '',
    category_id   TEXT NOT NULL DEFAULT '',
    category_kind TEXT NOT NULL DEFAULT '',
    reference     TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    reversed_at   TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (amount_cents > 0)
);

CREATE INDEX IF NOT EXISTS idx_rentledger_payments_invoice ON rentledger_payments (invoice_id) WHERE invoice_id != '';
CREATE INDEX IF NOT EXISTS idx_rentledger_payments_bill ON rentledger_payments (bill_id) WHERE bill_id != '';
CREATE INDEX IF NOT EXISTS idx_rentledger_payments_batch ON rentledger_payments (batch_id) WHERE batch_id != '';
CREATE INDEX IF NOT EXISTS idx_rentledger_payments_date ON rentledger_payments (date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rentledger_payments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rentledger_templates",
			Version: "20260301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rentledger_templates (
    id                    TEXT PRIMARY KEY,
    direction             TEXT NOT NULL DEFAULT 'receivable',
    type                  TEXT NOT NULL DEFAULT 'rental',
    currency              TEXT NOT NULL DEFAULT '',
    amount_cents          BIGINT NOT NULL DEFAULT 0,
    deposit_charge_cents  BIGINT NOT NULL DEFAULT 0,
    service_charges_cents BIGINT NOT NULL DEFAULT 0,
    agreement_id          TEXT NOT NULL DEFAULT '',
    property_id           TEXT NOT NULL DEFAULT '',
    contact_id            TEXT NOT NULL DEFAULT '',
    building_id           TEXT NOT NULL DEFAULT '',
    project_id            TEXT NOT NULL DEFAULT '',
    unit_id               TEXT NOT NULL DEFAULT '',
    category_id           TEXT NOT NULL DEFAULT '',
    day_of_month          INT NOT NULL DEFAULT 0,
    next_due_date         TIMESTAMPTZ NOT NULL,
    frequency             TEXT NOT NULL DEFAULT 'monthly',
    due_after_days        INT NOT NULL DEFAULT 0,
    end_date              TIMESTAMPTZ,
    active                BOOLEAN NOT NULL DEFAULT TRUE,
    description_template  TEXT NOT NULL DEFAULT '',
    number_prefix         TEXT NOT NULL DEFAULT '',
    generated_count       INT NOT NULL DEFAULT 0,
    last_run_at           TIMESTAMPTZ,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rentledger_templates_due ON rentledger_templates (next_due_date) WHERE active;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rentledger_templates`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rentledger_directory",
			Version: "20260301000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rentledger_entities (
    kind        TEXT NOT NULL,
    id          TEXT NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    role        TEXT NOT NULL DEFAULT '',
    building_id TEXT NOT NULL DEFAULT '',
    owner_id    TEXT NOT NULL DEFAULT '',
    project_id  TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (kind, id)
);

CREATE TABLE IF NOT EXISTS rentledger_categories (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL DEFAULT ''
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rentledger_entities; DROP TABLE IF EXISTS rentledger_categories`)
				return err
			},
		},
	)
}

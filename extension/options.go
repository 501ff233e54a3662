package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/rentledger"
	"github.com/xraph/rentledger/plugin"
	"github.com/xraph/rentledger/store"
)

// Option configures the rentledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine. It takes precedence over
// WithGroveDB.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB hands the extension a grove database. The store backend is
// chosen by Config.Driver.
func WithGroveDB(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		e.config.Driver = driver
	}
}

// WithLedgerOption passes a rentledger.Option through to the underlying engine.
func WithLedgerOption(opt rentledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, rentledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithTolerance sets the balance comparison tolerance, e.g. "0.01".
func WithTolerance(eps string) Option {
	return func(e *Extension) { e.config.Tolerance = eps }
}

// WithAgingBounds sets the aging bucket bounds in days.
func WithAgingBounds(bounds ...int) Option {
	return func(e *Extension) { e.config.AgingBounds = bounds }
}

// WithRecurringInterval sets how often the recurring check runs.
func WithRecurringInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.RecurringInterval = d }
}

// WithMaxCatchUp bounds the periods one template may generate per run.
func WithMaxCatchUp(n int) Option {
	return func(e *Extension) { e.config.MaxCatchUp = n }
}

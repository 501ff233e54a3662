// Package extension provides the Forge extension adapter for rentledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.rentledger" or
// "rentledger" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/rentledger"
	"github.com/xraph/rentledger/store"
	"github.com/xraph/rentledger/store/memory"
	"github.com/xraph/rentledger/store/mongo"
	"github.com/xraph/rentledger/store/postgres"
	"github.com/xraph/rentledger/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "rentledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Rental receivables and payables ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *rentledger.Ledger
	store      store.Store
	groveDB    *grove.DB
	ledgerOpts []rentledger.Option
}

// New creates a new rentledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Engine() *rentledger.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := newStore(e.config.Driver, e.groveDB)
		if err != nil {
			return err
		}
		e.store = s
	}

	opts, err := buildLedgerOpts(e.config)
	if err != nil {
		return err
	}
	e.engine = rentledger.New(e.store, append(opts, e.ledgerOpts...)...)

	return vessel.Provide(fapp.Container(), func() (*rentledger.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("rentledger: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("rentledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// newStore builds the backend named by driver around db.
func newStore(driver string, db *grove.DB) (store.Store, error) {
	if driver == "" || driver == DriverMemory {
		return memory.New(), nil
	}
	if db == nil {
		return nil, fmt.Errorf("rentledger: driver %q needs a grove database; use WithGroveDB", driver)
	}
	switch driver {
	case DriverPostgres:
		return postgres.New(db), nil
	case DriverSQLite:
		return sqlite.New(db), nil
	case DriverMongo:
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("rentledger: unknown store driver %q", driver)
	}
}

// buildLedgerOpts constructs rentledger.Option values from the resolved config.
func buildLedgerOpts(cfg Config) ([]rentledger.Option, error) {
	opts := make([]rentledger.Option, 0, 7)

	if cfg.Tolerance != "" {
		eps, err := decimal.NewFromString(cfg.Tolerance)
		if err != nil {
			return nil, fmt.Errorf("rentledger: tolerance %q: %w", cfg.Tolerance, err)
		}
		opts = append(opts, rentledger.WithTolerance(eps))
	}
	if len(cfg.AgingBounds) > 0 {
		opts = append(opts, rentledger.WithAgingBounds(slices.Clone(cfg.AgingBounds)))
	}
	if cfg.CollationLocale != "" {
		tag, err := language.Parse(cfg.CollationLocale)
		if err != nil {
			return nil, fmt.Errorf("rentledger: collation locale %q: %w", cfg.CollationLocale, err)
		}
		opts = append(opts, rentledger.WithCollationLocale(tag))
	}
	if cfg.RecurringInterval > 0 {
		opts = append(opts, rentledger.WithRecurringInterval(cfg.RecurringInterval))
	}
	if cfg.MaxCatchUp > 0 {
		opts = append(opts, rentledger.WithMaxCatchUp(cfg.MaxCatchUp))
	}
	if cfg.ParallelReports {
		opts = append(opts, rentledger.WithParallelReports())
	}
	if cfg.DisableMigrate {
		opts = append(opts, rentledger.WithSkipMigrate())
	}

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("rentledger: configuration is required but not found in config files; " +
				"ensure 'extensions.rentledger' or 'rentledger' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("rentledger: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("driver", e.config.Driver),
		forge.F("tolerance", e.config.Tolerance),
		forge.F("aging_bounds", e.config.AgingBounds),
		forge.F("recurring_interval", e.config.RecurringInterval),
		forge.F("max_catch_up", e.config.MaxCatchUp),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.rentledger", "rentledger"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("rentledger: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("rentledger: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.Tolerance == "" {
		cfg.Tolerance = defaults.Tolerance
	}
	if len(cfg.AgingBounds) == 0 {
		cfg.AgingBounds = defaults.AgingBounds
	}
	if cfg.CollationLocale == "" {
		cfg.CollationLocale = defaults.CollationLocale
	}
	if cfg.RecurringInterval == 0 {
		cfg.RecurringInterval = defaults.RecurringInterval
	}
	if cfg.MaxCatchUp == 0 {
		cfg.MaxCatchUp = defaults.MaxCatchUp
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps and
// programmatic bool flags override when true.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.ParallelReports {
		yamlConfig.ParallelReports = true
	}

	if yamlConfig.Driver == "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.Tolerance == "" {
		yamlConfig.Tolerance = programmaticConfig.Tolerance
	}
	if len(yamlConfig.AgingBounds) == 0 {
		yamlConfig.AgingBounds = programmaticConfig.AgingBounds
	}
	if yamlConfig.CollationLocale == "" {
		yamlConfig.CollationLocale = programmaticConfig.CollationLocale
	}
	if yamlConfig.RecurringInterval == 0 {
		yamlConfig.RecurringInterval = programmaticConfig.RecurringInterval
	}
	if yamlConfig.MaxCatchUp == 0 {
		yamlConfig.MaxCatchUp = programmaticConfig.MaxCatchUp
	}

	return mergeWithDefaults(yamlConfig)
}

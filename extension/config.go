package extension

import "time"

// Store driver names accepted in Config.Driver.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config holds the rentledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.rentledger" or "rentledger" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Driver selects the store backend built around the grove.DB passed with
	// WithGroveDB: "postgres", "sqlite" or "mongo" (default: "memory").
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// Tolerance is the balance comparison tolerance in major currency units
	// (default: "0.01").
	Tolerance string `json:"tolerance" mapstructure:"tolerance" yaml:"tolerance"`

	// AgingBounds are the inclusive upper day bounds of the aging buckets
	// (default: 30, 60, 90).
	AgingBounds []int `json:"aging_bounds" mapstructure:"aging_bounds" yaml:"aging_bounds"`

	// CollationLocale is the BCP 47 tag used to sort report groups (default: "en").
	CollationLocale string `json:"collation_locale" mapstructure:"collation_locale" yaml:"collation_locale"`

	// RecurringInterval is how often the recurring invoice check runs.
	// Zero disables the background worker (default: 1h).
	RecurringInterval time.Duration `json:"recurring_interval" mapstructure:"recurring_interval" yaml:"recurring_interval"`

	// MaxCatchUp bounds the periods one template may generate per run (default: 12).
	MaxCatchUp int `json:"max_catch_up" mapstructure:"max_catch_up" yaml:"max_catch_up"`

	// ParallelReports builds report subtrees concurrently.
	ParallelReports bool `json:"parallel_reports" mapstructure:"parallel_reports" yaml:"parallel_reports"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:            DriverMemory,
		Tolerance:         "0.01",
		AgingBounds:       []int{30, 60, 90},
		CollationLocale:   "en",
		RecurringInterval: time.Hour,
		MaxCatchUp:        12,
	}
}

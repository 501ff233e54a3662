package extension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rentledger/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{MaxCatchUp: 3})

	assert.Equal(t, DriverMemory, cfg.Driver)
	assert.Equal(t, "0.01", cfg.Tolerance)
	assert.Equal(t, []int{30, 60, 90}, cfg.AgingBounds)
	assert.Equal(t, time.Hour, cfg.RecurringInterval)
	assert.Equal(t, 3, cfg.MaxCatchUp)
}

func TestMergeConfigurationsPrefersFile(t *testing.T) {
	file := Config{Tolerance: "0.05", AgingBounds: []int{15, 45}}
	prog := Config{Tolerance: "0.5", MaxCatchUp: 2, DisableMigrate: true, Driver: DriverSQLite}

	cfg := mergeConfigurations(file, prog)
	assert.Equal(t, "0.05", cfg.Tolerance)
	assert.Equal(t, []int{15, 45}, cfg.AgingBounds)
	assert.Equal(t, 2, cfg.MaxCatchUp)
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.True(t, cfg.DisableMigrate)
	assert.Equal(t, "en", cfg.CollationLocale)
}

func TestBuildLedgerOpts(t *testing.T) {
	opts, err := buildLedgerOpts(DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, opts, 5)

	_, err = buildLedgerOpts(Config{Tolerance: "a cent"})
	assert.Error(t, err)

	_, err = buildLedgerOpts(Config{CollationLocale: "not a locale!"})
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	s, err := newStore("", nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	_, err = newStore(DriverPostgres, nil)
	assert.ErrorContains(t, err, "WithGroveDB")

	_, err = newStore("cassandra", nil)
	assert.Error(t, err)
}

package rentledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/xraph/rentledger/aggregate"
	"github.com/xraph/rentledger/aging"
	"github.com/xraph/rentledger/balance"
	"github.com/xraph/rentledger/category"
	"github.com/xraph/rentledger/directory"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/numbering"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/plugin"
	"github.com/xraph/rentledger/schedule"
	"github.com/xraph/rentledger/store"
)

// DefaultMaxCatchUp bounds how many missed periods one template may generate
// in a single recurring run.
const DefaultMaxCatchUp = 12

// Ledger is the receivables and payables engine. It resolves balances from
// payment history, allocates collections, generates recurring invoices and
// builds aging and hierarchy reports over a store.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	resolver *balance.Resolver
	aging    *aging.Classifier
	numberer schedule.Numberer
	clock    func() time.Time
	locks    *keyedMutex
	runMu    sync.Mutex

	// Background workers
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Configuration
	tolerance         decimal.Decimal
	agingBounds       []int
	collation         language.Tag
	recurringInterval time.Duration
	maxCatchUp        int
	parallelReports   bool
	skipMigrate       bool
	optErr            error
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:       s,
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		clock:       time.Now,
		locks:       newKeyedMutex(),
		stopChan:    make(chan struct{}),
		tolerance:   balance.DefaultTolerance,
		agingBounds: aging.DefaultBounds,
		collation:   language.English,
		maxCatchUp:  DefaultMaxCatchUp,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.resolver = balance.NewResolver(l.tolerance)
	classifier, err := aging.NewClassifier(l.agingBounds)
	if err != nil {
		l.optErr = fmt.Errorf("aging bounds: %w", err)
		classifier = aging.MustClassifier(nil)
	}
	l.aging = classifier
	if l.numberer == nil {
		l.numberer = numbering.MustNew(0)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithTolerance sets the rounding tolerance, in major currency units, used
// when comparing balances. Defaults to 0.01.
func WithTolerance(eps decimal.Decimal) Option {
	return func(l *Ledger) {
		l.tolerance = eps
	}
}

// WithAgingBounds sets the inclusive upper day bound of each aging bucket
// except the last, which is open-ended. Invalid bounds make Start fail.
func WithAgingBounds(bounds []int) Option {
	return func(l *Ledger) {
		l.agingBounds = bounds
	}
}

// WithCollationLocale sets the locale used to sort report groups by name.
func WithCollationLocale(tag language.Tag) Option {
	return func(l *Ledger) {
		l.collation = tag
	}
}

// WithClock replaces time.Now. Tests use it to pin "today".
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithRecurringInterval runs the recurring check in the background every d
// once the ledger is started. Zero leaves scheduling to the host.
func WithRecurringInterval(d time.Duration) Option {
	return func(l *Ledger) {
		l.recurringInterval = d
	}
}

// WithMaxCatchUp bounds the periods one template may generate per run.
func WithMaxCatchUp(n int) Option {
	return func(l *Ledger) {
		l.maxCatchUp = n
	}
}

// WithNumberer replaces the snowflake invoice numberer.
func WithNumberer(n schedule.Numberer) Option {
	return func(l *Ledger) {
		l.numberer = n
	}
}

// WithParallelReports builds report subtrees concurrently.
func WithParallelReports() Option {
	return func(l *Ledger) {
		l.parallelReports = true
	}
}

// WithSkipMigrate leaves schema management to the host; Start does not
// call Store.Migrate.
func WithSkipMigrate() Option {
	return func(l *Ledger) {
		l.skipMigrate = true
	}
}

// Start migrates the store, initializes plugins and starts the recurring
// worker when an interval is configured.
func (l *Ledger) Start(ctx context.Context) error {
	if l.optErr != nil {
		return l.optErr
	}

	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return err
		}
	}

	// Initialize plugins
	l.plugins.EmitInit(ctx, l)

	if l.recurringInterval > 0 {
		l.wg.Add(1)
		go l.recurringWorker(context.WithoutCancel(ctx))
	}

	l.logger.Info("rentledger started",
		"tolerance", l.tolerance.String(),
		"aging_buckets", len(l.aging.Buckets()),
		"recurring_interval", l.recurringInterval,
		"max_catch_up", l.maxCatchUp,
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()

	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Resolver returns the balance resolver configured with the ledger tolerance.
func (l *Ledger) Resolver() *balance.Resolver { return l.resolver }

// recurringWorker runs the recurring check on every tick.
func (l *Ledger) recurringWorker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.recurringInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return

		case <-ticker.C:
			res, err := l.RunRecurring(ctx)
			if err != nil {
				l.logger.Error("recurring run failed",
					"error", err,
				)
			}
			if res != nil && (len(res.Generated) > 0 || res.Advanced > 0) {
				l.logger.Debug("recurring run",
					"generated", len(res.Generated),
					"advanced", res.Advanced,
					"failed", res.Failed,
				)
			}
		}
	}
}

// ──────────────────────────────────────────────────
// Snapshots
// ──────────────────────────────────────────────────

// snapshot is everything a read operation needs, loaded once so every
// record in one response is resolved against the same state.
type snapshot struct {
	today    time.Time
	invoices []*invoice.Invoice
	payments []*payment.Payment
	index    *directory.Index
}

func (l *Ledger) today() time.Time { return l.clock() }

func (l *Ledger) loadSnapshot(ctx context.Context, includeReversed bool) (*snapshot, error) {
	invoices, err := l.store.ListInvoices(ctx, invoice.ListOpts{})
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	payments, err := l.store.ListPayments(ctx, payment.ListOpts{IncludeReversed: includeReversed})
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	ix, err := directory.Load(ctx, l.store)
	if err != nil {
		return nil, err
	}
	return &snapshot{today: l.today(), invoices: invoices, payments: payments, index: ix}, nil
}

// records annotates every invoice of s with its balance and aging.
func (l *Ledger) records(s *snapshot) []*aggregate.Record {
	balances := l.resolver.ResolveAll(s.invoices, s.payments, s.today)
	out := make([]*aggregate.Record, 0, len(s.invoices))
	for _, inv := range s.invoices {
		b := balances[inv.ID.String()]
		out = append(out, &aggregate.Record{
			Invoice: inv,
			Balance: b,
			Aging:   l.aging.Classify(b.Remaining, b.Status, inv.DueDate, s.today),
		})
	}
	return out
}

// record resolves a single invoice against its own payments.
func (l *Ledger) record(inv *invoice.Invoice, payments []*payment.Payment, today time.Time) *aggregate.Record {
	b := l.resolver.Resolve(inv, payments, today)
	return &aggregate.Record{
		Invoice: inv,
		Balance: b,
		Aging:   l.aging.Classify(b.Remaining, b.Status, inv.DueDate, today),
	}
}

// categories loads the host category snapshot.
func (l *Ledger) categories(ctx context.Context) (*category.Resolver, error) {
	cats, err := l.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return category.NewResolver(cats), nil
}

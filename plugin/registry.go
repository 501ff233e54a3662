package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/recurring"
)

// DefaultTimeout bounds a single plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration, so emitting an
// event never type-asserts.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onInvoiceCreated     []OnInvoiceCreated
	onInvoiceDeleted     []OnInvoiceDeleted
	onInvoicePaid        []OnInvoicePaid
	onPaymentsApplied    []OnPaymentsApplied
	onPaymentsReversed   []OnPaymentsReversed
	onAllocationRejected []OnAllocationRejected
	onTemplateMemorized  []OnTemplateMemorized
	onInvoiceGenerated   []OnInvoiceGenerated
	onTemplateAdvanced   []OnTemplateAdvanced
	onScheduleChecked    []OnScheduleChecked
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnInvoiceCreated); ok {
		r.onInvoiceCreated = append(r.onInvoiceCreated, v)
	}
	if v, ok := p.(OnInvoiceDeleted); ok {
		r.onInvoiceDeleted = append(r.onInvoiceDeleted, v)
	}
	if v, ok := p.(OnInvoicePaid); ok {
		r.onInvoicePaid = append(r.onInvoicePaid, v)
	}
	if v, ok := p.(OnPaymentsApplied); ok {
		r.onPaymentsApplied = append(r.onPaymentsApplied, v)
	}
	if v, ok := p.(OnPaymentsReversed); ok {
		r.onPaymentsReversed = append(r.onPaymentsReversed, v)
	}
	if v, ok := p.(OnAllocationRejected); ok {
		r.onAllocationRejected = append(r.onAllocationRejected, v)
	}
	if v, ok := p.(OnTemplateMemorized); ok {
		r.onTemplateMemorized = append(r.onTemplateMemorized, v)
	}
	if v, ok := p.(OnInvoiceGenerated); ok {
		r.onInvoiceGenerated = append(r.onInvoiceGenerated, v)
	}
	if v, ok := p.(OnTemplateAdvanced); ok {
		r.onTemplateAdvanced = append(r.onTemplateAdvanced, v)
	}
	if v, ok := p.(OnScheduleChecked); ok {
		r.onScheduleChecked = append(r.onScheduleChecked, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnInvoiceCreated", reflect.TypeFor[OnInvoiceCreated]()},
	{"OnInvoiceDeleted", reflect.TypeFor[OnInvoiceDeleted]()},
	{"OnInvoicePaid", reflect.TypeFor[OnInvoicePaid]()},
	{"OnPaymentsApplied", reflect.TypeFor[OnPaymentsApplied]()},
	{"OnPaymentsReversed", reflect.TypeFor[OnPaymentsReversed]()},
	{"OnAllocationRejected", reflect.TypeFor[OnAllocationRejected]()},
	{"OnTemplateMemorized", reflect.TypeFor[OnTemplateMemorized]()},
	{"OnInvoiceGenerated", reflect.TypeFor[OnInvoiceGenerated]()},
	{"OnTemplateAdvanced", reflect.TypeFor[OnTemplateAdvanced]()},
	{"OnScheduleChecked", reflect.TypeFor[OnScheduleChecked]()},
}

// implementedInterfaces lists the hooks p implements, for logging.
func implementedInterfaces(p Plugin) []string {
	var out []string
	t := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if t.Implements(h.typ) {
			out = append(out, h.name)
		}
	}
	return out
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for every hook in list. Failures are logged, never returned:
// a plugin cannot undo a committed ledger mutation.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, list []T, fn func(T) error) {
	for _, p := range list {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return fn(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

func snapshot[T any](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *list
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger any) {
	emit(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, ledger)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitInvoiceCreated emits an invoice created event.
func (r *Registry) EmitInvoiceCreated(ctx context.Context, inv *invoice.Invoice) {
	emit(ctx, r, "OnInvoiceCreated", snapshot(r, &r.onInvoiceCreated), func(p OnInvoiceCreated) error {
		return p.OnInvoiceCreated(ctx, inv)
	})
}

// EmitInvoiceDeleted emits an invoice deleted event.
func (r *Registry) EmitInvoiceDeleted(ctx context.Context, inv *invoice.Invoice) {
	emit(ctx, r, "OnInvoiceDeleted", snapshot(r, &r.onInvoiceDeleted), func(p OnInvoiceDeleted) error {
		return p.OnInvoiceDeleted(ctx, inv)
	})
}

// EmitInvoicePaid emits an invoice paid event.
func (r *Registry) EmitInvoicePaid(ctx context.Context, inv *invoice.Invoice) {
	emit(ctx, r, "OnInvoicePaid", snapshot(r, &r.onInvoicePaid), func(p OnInvoicePaid) error {
		return p.OnInvoicePaid(ctx, inv)
	})
}

// EmitPaymentsApplied emits a payments applied event.
func (r *Registry) EmitPaymentsApplied(ctx context.Context, batchID id.BatchID, payments []*payment.Payment) {
	emit(ctx, r, "OnPaymentsApplied", snapshot(r, &r.onPaymentsApplied), func(p OnPaymentsApplied) error {
		return p.OnPaymentsApplied(ctx, batchID, payments)
	})
}

// EmitPaymentsReversed emits a payments reversed event.
func (r *Registry) EmitPaymentsReversed(ctx context.Context, payments []*payment.Payment) {
	emit(ctx, r, "OnPaymentsReversed", snapshot(r, &r.onPaymentsReversed), func(p OnPaymentsReversed) error {
		return p.OnPaymentsReversed(ctx, payments)
	})
}

// EmitAllocationRejected emits an allocation rejected event.
func (r *Registry) EmitAllocationRejected(ctx context.Context, invoiceIDs []id.InvoiceID, reason error) {
	emit(ctx, r, "OnAllocationRejected", snapshot(r, &r.onAllocationRejected), func(p OnAllocationRejected) error {
		return p.OnAllocationRejected(ctx, invoiceIDs, reason)
	})
}

// EmitTemplateMemorized emits a template memorized event.
func (r *Registry) EmitTemplateMemorized(ctx context.Context, t *recurring.Template) {
	emit(ctx, r, "OnTemplateMemorized", snapshot(r, &r.onTemplateMemorized), func(p OnTemplateMemorized) error {
		return p.OnTemplateMemorized(ctx, t)
	})
}

// EmitInvoiceGenerated emits an invoice generated event.
func (r *Registry) EmitInvoiceGenerated(ctx context.Context, inv *invoice.Invoice, t *recurring.Template) {
	emit(ctx, r, "OnInvoiceGenerated", snapshot(r, &r.onInvoiceGenerated), func(p OnInvoiceGenerated) error {
		return p.OnInvoiceGenerated(ctx, inv, t)
	})
}

// EmitTemplateAdvanced emits a template advanced event.
func (r *Registry) EmitTemplateAdvanced(ctx context.Context, t *recurring.Template, previousDue time.Time) {
	emit(ctx, r, "OnTemplateAdvanced", snapshot(r, &r.onTemplateAdvanced), func(p OnTemplateAdvanced) error {
		return p.OnTemplateAdvanced(ctx, t, previousDue)
	})
}

// EmitScheduleChecked emits a schedule checked event.
func (r *Registry) EmitScheduleChecked(ctx context.Context, generated, advanced, failed int, elapsed time.Duration) {
	emit(ctx, r, "OnScheduleChecked", snapshot(r, &r.onScheduleChecked), func(p OnScheduleChecked) error {
		return p.OnScheduleChecked(ctx, generated, advanced, failed, elapsed)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}

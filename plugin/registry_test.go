package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/payment"
)

type appliedPlugin struct {
	name  string
	calls atomic.Int32
	err   error
}

func (p *appliedPlugin) Name() string { return p.name }

func (p *appliedPlugin) OnPaymentsApplied(_ context.Context, _ id.BatchID, _ []*payment.Payment) error {
	p.calls.Add(1)
	return p.err
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnScheduleChecked(ctx context.Context, _, _, _ int, _ time.Duration) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

func quietRegistry() *Registry {
	return NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := quietRegistry()
	if err := r.Register(&appliedPlugin{name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&appliedPlugin{name: "a"}); err == nil {
		t.Error("duplicate registration: want error")
	}
	if r.Count() != 1 {
		t.Errorf("Count: got %d, want 1", r.Count())
	}
	if r.Get("a") == nil || r.Get("b") != nil {
		t.Error("Get returned the wrong plugin")
	}
}

func TestEmitDispatchesAndSwallowsErrors(t *testing.T) {
	r := quietRegistry()
	ok := &appliedPlugin{name: "ok"}
	failing := &appliedPlugin{name: "failing", err: errors.New("boom")}
	_ = r.Register(failing)
	_ = r.Register(ok)

	r.EmitPaymentsApplied(context.Background(), id.NewBatchID(), nil)

	if ok.calls.Load() != 1 || failing.calls.Load() != 1 {
		t.Errorf("calls: ok=%d failing=%d, want 1 each", ok.calls.Load(), failing.calls.Load())
	}
}

func TestEmitTimesOut(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)
	_ = r.Register(slowPlugin{})

	start := time.Now()
	r.EmitScheduleChecked(context.Background(), 0, 0, 0, 0)
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("emit took %s, want it bounded by the timeout", elapsed)
	}
}

func TestImplementedInterfaces(t *testing.T) {
	got := implementedInterfaces(&appliedPlugin{name: "a"})
	if len(got) != 1 || got[0] != "OnPaymentsApplied" {
		t.Errorf("got %v, want [OnPaymentsApplied]", got)
	}
}

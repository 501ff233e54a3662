package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/types"
)

type fakeCounter struct{ n float64 }

func (c *fakeCounter) Inc()          { c.n++ }
func (c *fakeCounter) Add(v float64) { c.n += v }

type fakeHistogram struct{ samples []float64 }

func (h *fakeHistogram) Observe(v float64) { h.samples = append(h.samples, v) }

type fakeFactory struct {
	counters   map[string]*fakeCounter
	histograms map[string]*fakeHistogram
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		counters:   make(map[string]*fakeCounter),
		histograms: make(map[string]*fakeHistogram),
	}
}

func (f *fakeFactory) Counter(name string) Counter {
	c := &fakeCounter{}
	f.counters[name] = c
	return c
}

func (f *fakeFactory) Histogram(name string) Histogram {
	h := &fakeHistogram{}
	f.histograms[name] = h
	return h
}

func TestPaymentsAppliedMetrics(t *testing.T) {
	f := newFakeFactory()
	m := NewMetricsExtension(f)

	err := m.OnPaymentsApplied(context.Background(), id.NewBatchID(), []*payment.Payment{
		{Amount: types.USD(10050)},
		{Amount: types.USD(2000)},
	})
	require.NoError(t, err)

	assert.InDelta(t, 2, f.counters["rentledger.payments.applied"].n, 0)
	assert.Equal(t, []float64{2}, f.histograms["rentledger.allocation.batch.size"].samples)
	assert.Equal(t, []float64{100.5, 20}, f.histograms["rentledger.allocation.amount"].samples)
}

func TestScheduleCheckedMetrics(t *testing.T) {
	f := newFakeFactory()
	m := NewMetricsExtension(f)

	require.NoError(t, m.OnScheduleChecked(context.Background(), 3, 1, 0, 40*time.Millisecond))
	require.NoError(t, m.OnScheduleChecked(context.Background(), 0, 0, 2, 10*time.Millisecond))

	assert.InDelta(t, 2, f.counters["rentledger.schedule.failures"].n, 0)
	assert.Equal(t, []float64{40, 10}, f.histograms["rentledger.schedule.latency_ms"].samples)
}

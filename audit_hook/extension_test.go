package audithook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/types"
)

func capture() (*[]*AuditEvent, Recorder) {
	var events []*AuditEvent
	return &events, RecorderFunc(func(_ context.Context, evt *AuditEvent) error {
		events = append(events, evt)
		return nil
	})
}

func TestPaymentsAppliedEvent(t *testing.T) {
	events, rec := capture()
	ext := New(rec)
	batch := id.NewBatchID()

	err := ext.OnPaymentsApplied(context.Background(), batch, []*payment.Payment{
		{Amount: types.USD(10000)},
		{Amount: types.USD(2500)},
	})
	require.NoError(t, err)
	require.Len(t, *events, 1)

	evt := (*events)[0]
	assert.Equal(t, ActionPaymentsApplied, evt.Action)
	assert.Equal(t, batch.String(), evt.ResourceID)
	assert.Equal(t, 2, evt.Metadata["payments"])
	assert.Equal(t, "$125.00", evt.Metadata["total"])
}

func TestAllocationRejectedCarriesReason(t *testing.T) {
	events, rec := capture()
	ext := New(rec)
	invID := id.NewInvoiceID()

	require.NoError(t, ext.OnAllocationRejected(context.Background(), []id.InvoiceID{invID}, errors.New("over cap")))
	require.Len(t, *events, 1)
	assert.Equal(t, OutcomeFailure, (*events)[0].Outcome)
	assert.Equal(t, "over cap", (*events)[0].Reason)
	assert.Equal(t, invID.String(), (*events)[0].ResourceID)
}

func TestDisabledActionsAreSkipped(t *testing.T) {
	events, rec := capture()
	ext := New(rec, WithDisabledActions(ActionInvoiceCreated))

	inv := &invoice.Invoice{ID: id.NewInvoiceID(), Number: "INV-1", Amount: types.USD(100)}
	require.NoError(t, ext.OnInvoiceCreated(context.Background(), inv))
	require.NoError(t, ext.OnInvoicePaid(context.Background(), inv))

	require.Len(t, *events, 1)
	assert.Equal(t, ActionInvoicePaid, (*events)[0].Action)
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := New(RecorderFunc(func(context.Context, *AuditEvent) error {
		return errors.New("backend down")
	}))
	inv := &invoice.Invoice{ID: id.NewInvoiceID(), Amount: types.USD(100)}
	assert.NoError(t, ext.OnInvoiceDeleted(context.Background(), inv))
}

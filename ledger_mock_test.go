package rentledger_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/xraph/rentledger"
	"github.com/xraph/rentledger/allocation"
	"github.com/xraph/rentledger/id"
	"github.com/xraph/rentledger/invoice"
	"github.com/xraph/rentledger/payment"
	"github.com/xraph/rentledger/recurring"
	"github.com/xraph/rentledger/store"
	"github.com/xraph/rentledger/types"
)

var errStoreDown = errors.New("store down")

func newMockLedger(t *testing.T) (*rentledger.Ledger, *store.MockStore, *recorder) {
	t.Helper()
	ctrl := gomock.NewController(t)
	s := store.NewMockStore(ctrl)
	events := &recorder{}
	l := rentledger.New(s,
		rentledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		rentledger.WithClock(func() time.Time { return today }),
		rentledger.WithPlugin(events),
	)
	return l, s, events
}

func storedInvoice(cents int64) *invoice.Invoice {
	return &invoice.Invoice{
		ID:         id.NewInvoiceID(),
		Number:     "INV-1",
		Direction:  invoice.Receivable,
		Type:       invoice.TypeRental,
		Amount:     types.USD(cents),
		PaidAmount: types.USD(0),
		IssueDate:  dueIn(-1),
		DueDate:    dueIn(-1),
		PropertyID: "p1",
		ContactID:  "t1",
	}
}

func TestStartPropagatesMigrateFailure(t *testing.T) {
	l, s, _ := newMockLedger(t)
	s.EXPECT().Migrate(gomock.Any()).Return(errStoreDown)

	err := l.Start(context.Background())
	assert.ErrorIs(t, err, errStoreDown)
}

func TestAllocateSplitCommitFailureFiresNoHooks(t *testing.T) {
	l, s, events := newMockLedger(t)
	inv := storedInvoice(10000)

	s.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	s.EXPECT().ListPayments(gomock.Any(), payment.ListOpts{InvoiceID: inv.ID}).Return(nil, nil)
	s.EXPECT().ListCategories(gomock.Any()).Return(testCategories, nil)
	s.EXPECT().CreatePayments(gomock.Any(), gomock.Len(1)).Return(errStoreDown)

	_, err := l.AllocateSplit(context.Background(), inv.ID, allocation.SplitRequest{Rent: types.USD(10000)})
	require.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, events.applied)
	assert.Empty(t, events.paid)
}

func TestAllocateSplitSurvivesCacheRefreshFailure(t *testing.T) {
	l, s, events := newMockLedger(t)
	inv := storedInvoice(10000)

	s.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	s.EXPECT().ListPayments(gomock.Any(), gomock.Any()).Return(nil, nil)
	s.EXPECT().ListCategories(gomock.Any()).Return(testCategories, nil)
	s.EXPECT().CreatePayments(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, payments []*payment.Payment) error {
			require.Len(t, payments, 1)
			assert.Equal(t, "cat-rent", payments[0].CategoryID)
			assert.Equal(t, types.USD(10000), payments[0].Amount)
			return nil
		})
	s.EXPECT().SetPaidAmount(gomock.Any(), inv.ID, types.USD(10000)).Return(errStoreDown)

	plan, err := l.AllocateSplit(context.Background(), inv.ID, allocation.SplitRequest{Rent: types.USD(10000)})
	require.NoError(t, err)
	assert.Equal(t, []id.BatchID{plan.BatchID}, events.applied)
	assert.Equal(t, []string{"INV-1"}, events.paid)
}

func TestAllocateSplitCategoryLoadFailure(t *testing.T) {
	l, s, events := newMockLedger(t)
	inv := storedInvoice(10000)

	s.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	s.EXPECT().ListPayments(gomock.Any(), gomock.Any()).Return(nil, nil)
	s.EXPECT().ListCategories(gomock.Any()).Return(nil, errStoreDown)

	_, err := l.AllocateSplit(context.Background(), inv.ID, allocation.SplitRequest{Rent: types.USD(100)})
	require.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, events.rejected, "a store failure is not a rejection")
}

func TestRunRecurringReportsConflicts(t *testing.T) {
	l, s, events := newMockLedger(t)
	tpl := &recurring.Template{
		ID:          id.NewTemplateID(),
		Direction:   invoice.Receivable,
		Type:        invoice.TypeRental,
		Amount:      types.USD(100000),
		PropertyID:  "p1",
		ContactID:   "t1",
		DayOfMonth:  1,
		NextDueDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Frequency:   recurring.FrequencyMonthly,
		Active:      true,
	}

	s.EXPECT().ListTemplates(gomock.Any(), recurring.ListOpts{
		ActiveOnly: true,
		DueBefore:  time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
	}).Return([]*recurring.Template{tpl}, nil)
	s.EXPECT().ListInvoices(gomock.Any(), invoice.ListOpts{}).Return(nil, nil)
	s.EXPECT().AdvanceTemplate(gomock.Any(), gomock.Not(gomock.Nil()), gomock.Any(), tpl.NextDueDate).
		Return(rentledger.ErrConflict)

	res, err := l.RunRecurring(context.Background())
	require.ErrorIs(t, err, rentledger.ErrConflict)
	assert.True(t, rentledger.IsRetryable(err))
	require.NotNil(t, res)
	assert.Empty(t, res.Generated)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, events.generated)
}

func TestReverseBatchUnknown(t *testing.T) {
	l, s, _ := newMockLedger(t)
	batch := id.NewBatchID()
	s.EXPECT().ListPayments(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := l.ReverseBatch(context.Background(), batch)
	assert.ErrorIs(t, err, rentledger.ErrBatchNotFound)
}

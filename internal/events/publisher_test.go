package events

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/wishlist-tracker/internal/database"
	"github.com/maltedev/wishlist-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeTx runs the callback directly and records whether it "committed".
type fakeTx struct {
	committed bool
}

func (f *fakeTx) Transaction(ctx context.Context, fn func(pgx.Tx) error) error {
	if err := fn(nil); err != nil {
		return err
	}
	f.committed = true
	return nil
}

type MockOutbox struct {
	mock.Mock
}

func (m *MockOutbox) EnqueueItemEventTx(ctx context.Context, tx pgx.Tx, event database.ItemEvent) (*database.OutboxEvent, error) {
	args := m.Called(ctx, tx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.OutboxEvent), args.Error(1)
}

func newTestPublisher(tx *fakeTx, outbox *MockOutbox, apply applyFunc) *Publisher {
	return &Publisher{
		db:     tx,
		outbox: outbox,
		apply:  apply,
		logger: slog.Default(),
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

func priceWrite(previous *float64, price float64, withHistory bool) *models.PriceCheckWrite {
	at := time.Date(2026, 2, 16, 9, 0, 0, 0, time.UTC)
	w := &models.PriceCheckWrite{
		ItemID:        "item-1",
		PreviousPrice: previous,
		Availability:  models.AvailabilityHistoryRecord{ItemID: "item-1", IsAvailable: true, CheckedAt: at},
		ItemUpdate:    models.ItemPriceUpdate{CurrentPrice: price, Currency: "USD", IsAvailable: true, LastCheckedAt: at},
	}
	if withHistory {
		w.PriceHistory = &models.PriceHistoryRecord{ItemID: "item-1", Price: price, Currency: "USD", CheckedAt: at}
	}
	return w
}

func TestPublisher_RecordPriceCheck(t *testing.T) {
	ctx := context.Background()
	noopApply := func(context.Context, pgx.Tx, *models.PriceCheckWrite) error { return nil }

	t.Run("price change enqueues event", func(t *testing.T) {
		tx := &fakeTx{}
		outbox := new(MockOutbox)
		outbox.On("EnqueueItemEventTx", ctx, mock.Anything, mock.MatchedBy(func(e database.ItemEvent) bool {
			payload, ok := e.Payload.(PriceChangedPayload)
			if !ok {
				return false
			}
			return e.EventType == "PRICE_CHANGED" &&
				e.ItemID == "item-1" &&
				payload.ItemID == "item-1" &&
				payload.PreviousPrice == 100 &&
				payload.Price == 80 &&
				payload.PriceChange == -20 &&
				payload.Direction == models.PriceDirectionDown &&
				payload.EventID != ""
		})).Return(&database.OutboxEvent{ID: uuid.New()}, nil)

		err := newTestPublisher(tx, outbox, noopApply).RecordPriceCheck(ctx, priceWrite(floatPtr(100), 80, true))

		require.NoError(t, err)
		assert.True(t, tx.committed)
		outbox.AssertExpectations(t)
	})

	t.Run("first price writes no event", func(t *testing.T) {
		tx := &fakeTx{}
		outbox := new(MockOutbox)

		err := newTestPublisher(tx, outbox, noopApply).RecordPriceCheck(ctx, priceWrite(nil, 50, true))

		require.NoError(t, err)
		assert.True(t, tx.committed)
		outbox.AssertNotCalled(t, "EnqueueItemEventTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unchanged price writes no event", func(t *testing.T) {
		tx := &fakeTx{}
		outbox := new(MockOutbox)
		applied := false
		apply := func(_ context.Context, _ pgx.Tx, w *models.PriceCheckWrite) error {
			applied = true
			return nil
		}

		err := newTestPublisher(tx, outbox, apply).RecordPriceCheck(ctx, priceWrite(floatPtr(50), 50, false))

		require.NoError(t, err)
		assert.True(t, applied)
		outbox.AssertNotCalled(t, "EnqueueItemEventTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("apply failure skips outbox and is returned as is", func(t *testing.T) {
		tx := &fakeTx{}
		outbox := new(MockOutbox)
		storeErr := errors.New("unique violation")
		apply := func(context.Context, pgx.Tx, *models.PriceCheckWrite) error { return storeErr }

		err := newTestPublisher(tx, outbox, apply).RecordPriceCheck(ctx, priceWrite(floatPtr(100), 80, true))

		require.Error(t, err)
		assert.Equal(t, storeErr, err)
		assert.False(t, tx.committed)
		outbox.AssertNotCalled(t, "EnqueueItemEventTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("outbox failure aborts transaction", func(t *testing.T) {
		tx := &fakeTx{}
		outbox := new(MockOutbox)
		outbox.On("EnqueueItemEventTx", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))

		err := newTestPublisher(tx, outbox, noopApply).RecordPriceCheck(ctx, priceWrite(floatPtr(10), 12, true))

		require.Error(t, err)
		assert.False(t, tx.committed)
	})
}

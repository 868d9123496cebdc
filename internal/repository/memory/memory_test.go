package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactor_RollbackRestoresStock(t *testing.T) {
	ctx := context.Background()
	products := NewProductRepo()
	orders := NewOrderRepo()
	tx := NewTransactor()

	p, err := products.Create(ctx, domain.NewProduct("A", decimal.NewFromInt(1), 5))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := products.TryReserveStock(ctx, p.ID, 3); err != nil {
			return err
		}
		order := domain.NewOrder("o1", "u1", []domain.OrderItem{{ProductID: p.ID, Quantity: 3, UnitPrice: p.Price}}, time.Now())
		if err := orders.Create(ctx, order); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Stock)

	_, err = orders.GetByID(ctx, "o1")
	assert.ErrorIs(t, err, e.ErrOrderNotFound)
}

func TestTransactor_CommitPublishesStagedWrites(t *testing.T) {
	ctx := context.Background()
	orders := NewOrderRepo()
	outbox := NewOutboxRepo()
	tx := NewTransactor()

	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		order := domain.NewOrder("o1", "u1", nil, time.Now())
		if err := orders.Create(ctx, order); err != nil {
			return err
		}

		// До фиксации заказ не виден
		if _, err := orders.GetByID(ctx, "o1"); !errors.Is(err, e.ErrOrderNotFound) {
			return errors.New("order visible before commit")
		}

		_, err := outbox.Create(ctx, &usecase.OutboxEvent{EventID: "ev1", OrderID: "o1"})
		return err
	})
	require.NoError(t, err)

	_, err = orders.GetByID(ctx, "o1")
	require.NoError(t, err)

	events := outbox.Events()
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].ID)
	assert.Equal(t, usecase.Pending, events[0].Status)
}

func TestTransactor_ExpiredContextRollsBack(t *testing.T) {
	products := NewProductRepo()
	p, err := products.Create(context.Background(), domain.NewProduct("A", decimal.NewFromInt(1), 2))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	err = NewTransactor().WithinTx(ctx, func(ctx context.Context) error {
		if _, err := products.TryReserveStock(ctx, p.ID, 1); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	got, err := products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Stock)
}

func TestProductRepo_TryReserveStock(t *testing.T) {
	ctx := context.Background()
	products := NewProductRepo()

	p, err := products.Create(ctx, domain.NewProduct("A", decimal.NewFromInt(1), 2))
	require.NoError(t, err)

	_, err = products.TryReserveStock(ctx, p.ID, 1)
	require.ErrorIs(t, err, e.ErrUnitOfWorkNotFound)

	err = NewTransactor().WithinTx(ctx, func(ctx context.Context) error {
		_, err := products.TryReserveStock(ctx, p.ID, 3)
		return err
	})
	require.ErrorIs(t, err, e.ErrInsufficientStock)

	err = NewTransactor().WithinTx(ctx, func(ctx context.Context) error {
		_, err := products.TryReserveStock(ctx, 404, 1)
		return err
	})
	require.ErrorIs(t, err, e.ErrProductNotFound)

	require.NoError(t, products.Archive(ctx, p.ID))
	err = NewTransactor().WithinTx(ctx, func(ctx context.Context) error {
		_, err := products.TryReserveStock(ctx, p.ID, 1)
		return err
	})
	require.ErrorIs(t, err, e.ErrProductUnavailable)
}

func TestProductRepo_RestockBounds(t *testing.T) {
	ctx := context.Background()
	products := NewProductRepo()

	p, err := products.Create(ctx, domain.NewProduct("A", decimal.NewFromInt(1), 10))
	require.NoError(t, err)

	_, err = products.Restock(ctx, p.ID, math.MaxInt64)
	require.ErrorIs(t, err, e.ErrInvalidQuantity)

	_, err = products.Restock(ctx, p.ID, domain.MaxStock-9)
	require.ErrorIs(t, err, e.ErrInvalidQuantity)

	got, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Stock)

	got, err = products.Restock(ctx, p.ID, domain.MaxStock-10)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxStock, got.Stock)
}

// Вторая транзакция ждёт исхода первой и после её отката получает остаток.
func TestProductRepo_ReservationWaitsForOpenTx(t *testing.T) {
	ctx := context.Background()
	products := NewProductRepo()
	tx := NewTransactor()

	p, err := products.Create(ctx, domain.NewProduct("A", decimal.NewFromInt(1), 1))
	require.NoError(t, err)

	reserved := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- tx.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := products.TryReserveStock(ctx, p.ID, 1); err != nil {
				return err
			}
			close(reserved)
			<-release
			return errors.New("abort")
		})
	}()
	<-reserved

	secondDone := make(chan error, 1)
	go func() {
		secondDone <- tx.WithinTx(ctx, func(ctx context.Context) error {
			_, err := products.TryReserveStock(ctx, p.ID, 1)
			return err
		})
	}()

	select {
	case err := <-secondDone:
		t.Fatalf("reservation finished while the other tx was open: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.Error(t, <-firstDone)
	require.NoError(t, <-secondDone)

	got, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Stock)
}

func TestProductRepo_ReservationLockTimeout(t *testing.T) {
	ctx := context.Background()
	products := NewProductRepo()
	tx := NewTransactor()

	p, err := products.Create(ctx, domain.NewProduct("A", decimal.NewFromInt(1), 5))
	require.NoError(t, err)

	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := products.TryReserveStock(ctx, p.ID, 1); err != nil {
			return err
		}

		waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := tx.WithinTx(waitCtx, func(ctx context.Context) error {
			_, err := products.TryReserveStock(ctx, p.ID, 1)
			return err
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)

		_, err = products.Restock(waitCtx, p.ID, 1)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		return nil
	})
	require.NoError(t, err)

	got, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Stock)
}

func TestOrderRepo_UpdateStatusCAS(t *testing.T) {
	ctx := context.Background()
	orders := NewOrderRepo()

	require.NoError(t, NewTransactor().WithinTx(ctx, func(ctx context.Context) error {
		return orders.Create(ctx, domain.NewOrder("o1", "u1", nil, time.Now()))
	}))

	require.NoError(t, orders.UpdateStatus(ctx, "o1", domain.OrderStatusPending, domain.OrderStatusPaid))
	assert.ErrorIs(t, orders.UpdateStatus(ctx, "o1", domain.OrderStatusPending, domain.OrderStatusCancelled), e.ErrInvalidStatusTransition)
	assert.ErrorIs(t, orders.UpdateStatus(ctx, "o2", domain.OrderStatusPending, domain.OrderStatusPaid), e.ErrOrderNotFound)

	got, err := orders.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, got.Status)
}

func TestOutboxRepo_Claiming(t *testing.T) {
	ctx := context.Background()
	outbox := NewOutboxRepo()

	require.NoError(t, NewTransactor().WithinTx(ctx, func(ctx context.Context) error {
		for i := 0; i < 3; i++ {
			if _, err := outbox.Create(ctx, &usecase.OutboxEvent{OrderID: "o"}); err != nil {
				return err
			}
		}
		return nil
	}))

	batch, err := outbox.GetAndMarkAsProcessing(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	rest, err := outbox.GetAndMarkAsProcessing(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)

	require.NoError(t, outbox.MarkAsProcessed(ctx, batch[0].ID))
	require.NoError(t, outbox.Release(ctx, batch[1].ID))

	again, err := outbox.GetAndMarkAsProcessing(ctx, 10)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, batch[1].ID, again[0].ID)

	assert.ErrorIs(t, outbox.MarkAsProcessed(ctx, 100), e.ErrEventNotFound)
}

func TestCartRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	carts := NewCartRepo()

	cart := domain.NewCart("u1")
	cart.AddItem(2, 1, decimal.NewFromInt(3))
	cart.AddItem(1, 2, decimal.NewFromInt(5))
	require.NoError(t, carts.Save(ctx, cart))

	// Изменение исходной корзины не затрагивает сохранённую
	cart.Clear()

	got, err := carts.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
	assert.True(t, got.Total().Equal(decimal.NewFromInt(13)))

	require.NoError(t, carts.Delete(ctx, "u1"))
	got, err = carts.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

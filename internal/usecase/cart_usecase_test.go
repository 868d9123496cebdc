package usecase_test

import (
	"context"
	"math"
	"testing"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartUseCase_AddItem(t *testing.T) {
	en := newEnv(t)
	ctx := context.Background()

	p := en.addProduct(t, "A", "4.00", 10)

	cart, err := en.cartUC.AddItem(ctx, "u1", p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Len())

	// Повторное добавление увеличивает количество, цена остаётся первой
	_, err = en.catalog.UpdatePrice(ctx, p.ID, decimal.NewFromInt(9))
	require.NoError(t, err)

	cart, err = en.cartUC.AddItem(ctx, "u1", p.ID, 0)
	require.NoError(t, err)

	item, ok := cart.Item(p.ID)
	require.True(t, ok)
	assert.Equal(t, int64(3), item.Quantity)
	assert.True(t, item.UnitPrice.Equal(decimal.NewFromInt(4)))
	assert.True(t, cart.Total().Equal(decimal.NewFromInt(12)))

	stored, err := en.cartUC.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, stored.Total().Equal(decimal.NewFromInt(12)))

	// Корзина не резервирует остаток
	assert.Equal(t, int64(10), en.stock(t, p.ID))
}

func TestCartUseCase_AddItemErrors(t *testing.T) {
	en := newEnv(t)
	ctx := context.Background()

	_, err := en.cartUC.AddItem(ctx, "", 1, 1)
	assert.ErrorIs(t, err, e.ErrUserIDRequired)

	_, err = en.cartUC.AddItem(ctx, "u1", 0, 1)
	assert.ErrorIs(t, err, e.ErrInvalidID)

	_, err = en.cartUC.AddItem(ctx, "u1", 42, 1)
	assert.ErrorIs(t, err, e.ErrProductNotFound)

	p := en.addProduct(t, "A", "1.00", 1)
	require.NoError(t, en.catalog.ArchiveProduct(ctx, p.ID))
	_, err = en.cartUC.AddItem(ctx, "u1", p.ID, 1)
	assert.ErrorIs(t, err, e.ErrProductUnavailable)
}

func TestCartUseCase_QuantityBounds(t *testing.T) {
	en := newEnv(t)
	ctx := context.Background()

	p := en.addProduct(t, "A", "1.00", 10)

	_, err := en.cartUC.AddItem(ctx, "u1", p.ID, math.MaxInt64)
	assert.ErrorIs(t, err, e.ErrInvalidQuantity)

	_, err = en.cartUC.AddItem(ctx, "u1", p.ID, domain.MaxQuantity)
	require.NoError(t, err)

	// Переполнение суммы отклоняется, корзина не меняется
	_, err = en.cartUC.AddItem(ctx, "u1", p.ID, 1)
	assert.ErrorIs(t, err, e.ErrInvalidQuantity)

	_, err = en.cartUC.SetQuantity(ctx, "u1", p.ID, domain.MaxQuantity+1)
	assert.ErrorIs(t, err, e.ErrInvalidQuantity)

	stored, err := en.cartUC.GetCart(ctx, "u1")
	require.NoError(t, err)
	item, ok := stored.Item(p.ID)
	require.True(t, ok)
	assert.Equal(t, domain.MaxQuantity, item.Quantity)

	// Отрицательное количество при добавлении считается одной единицей
	cart, err := en.cartUC.AddItem(ctx, "u2", p.ID, -1)
	require.NoError(t, err)
	item, _ = cart.Item(p.ID)
	assert.Equal(t, int64(1), item.Quantity)
}

func TestCartUseCase_CartFull(t *testing.T) {
	en := newEnv(t)
	ctx := context.Background()

	items := make([]domain.CartItem, 0, domain.MaxCartItems)
	for i := 1; i <= domain.MaxCartItems; i++ {
		items = append(items, domain.CartItem{ProductID: int64(1000 + i), Quantity: 1, UnitPrice: decimal.NewFromInt(1)})
	}
	require.NoError(t, en.carts.Save(ctx, domain.RestoreCart("u1", items)))

	p := en.addProduct(t, "A", "1.00", 10)
	_, err := en.cartUC.AddItem(ctx, "u1", p.ID, 1)
	assert.ErrorIs(t, err, e.ErrCartFull)
}

func TestCartUseCase_SetQuantityAndRemove(t *testing.T) {
	en := newEnv(t)
	ctx := context.Background()

	a := en.addProduct(t, "A", "1.00", 10)
	b := en.addProduct(t, "B", "2.00", 10)

	_, err := en.cartUC.AddItem(ctx, "u1", a.ID, 1)
	require.NoError(t, err)
	_, err = en.cartUC.AddItem(ctx, "u1", b.ID, 1)
	require.NoError(t, err)

	cart, err := en.cartUC.SetQuantity(ctx, "u1", a.ID, 5)
	require.NoError(t, err)
	item, _ := cart.Item(a.ID)
	assert.Equal(t, int64(5), item.Quantity)

	cart, err = en.cartUC.SetQuantity(ctx, "u1", b.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Len())

	_, err = en.cartUC.SetQuantity(ctx, "u1", b.ID, 3)
	assert.ErrorIs(t, err, e.ErrCartItemNotFound)

	_, err = en.cartUC.RemoveItem(ctx, "u1", 777)
	assert.ErrorIs(t, err, e.ErrCartItemNotFound)

	cart, err = en.cartUC.RemoveItem(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	stored, err := en.cartUC.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, stored.IsEmpty())
}

func TestCartUseCase_Clear(t *testing.T) {
	en := newEnv(t)
	ctx := context.Background()

	p := en.addProduct(t, "A", "1.00", 10)
	_, err := en.cartUC.AddItem(ctx, "u1", p.ID, 1)
	require.NoError(t, err)

	require.NoError(t, en.cartUC.Clear(ctx, "u1"))

	cart, err := en.cartUC.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartUseCase_Checkout(t *testing.T) {
	en := newEnv(t)
	ctx := context.Background()

	p := en.addProduct(t, "A", "2.50", 3)
	_, err := en.cartUC.AddItem(ctx, "u1", p.ID, 2)
	require.NoError(t, err)

	order, err := en.cartUC.Checkout(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", order.UserID)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(5)))

	cart, err := en.cartUC.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, int64(1), en.stock(t, p.ID))
}

func TestCartUseCase_CheckoutFailureKeepsCart(t *testing.T) {
	en := newEnv(t)
	ctx := context.Background()

	p := en.addProduct(t, "A", "2.50", 1)
	_, err := en.cartUC.AddItem(ctx, "u1", p.ID, 2)
	require.NoError(t, err)

	_, err = en.cartUC.Checkout(ctx, "u1")
	requireCommitError(t, err, domain.CommitErrInsufficientStock, p.ID)

	cart, err := en.cartUC.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Len())

	_, err = en.cartUC.Checkout(ctx, "empty-user")
	requireCommitError(t, err, domain.CommitErrEmptyCart, 0)
}

package converter

import (
	"testing"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyConversion(t *testing.T) {
	assert.Equal(t, int64(1999), DecimalToCents(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(500), DecimalToCents(decimal.NewFromInt(5)))
	assert.Equal(t, int64(0), DecimalToCents(decimal.Zero))
	assert.True(t, CentsToDecimal(1999).Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, "0.05", CentsToDecimal(5).StringFixed(2))
}

func TestOrderConverter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	order := domain.NewOrder("o1", "u1", []domain.OrderItem{
		{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		{ProductID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}, now)

	conv := OrderConverterImpl{}
	model, items := conv.ToModel(order)
	assert.Equal(t, int64(2500), model.TotalCents)
	assert.Equal(t, "pending", model.Status)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1000), items[0].UnitPriceCents)

	back := conv.ToEntity(model, items)
	assert.True(t, back.Total.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, domain.OrderStatusPending, back.Status)
	assert.Len(t, back.Items, 2)
}

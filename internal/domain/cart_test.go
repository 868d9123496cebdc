package domain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCartAddItemMergesSameProduct(t *testing.T) {
	c := NewCart("u1")
	c.AddItem(1, 2, price("10"))
	c.AddItem(1, 3, price("12"))

	require.Equal(t, 1, c.Len())
	item, ok := c.Item(1)
	require.True(t, ok)
	assert.Equal(t, int64(5), item.Quantity)
	assert.True(t, item.UnitPrice.Equal(price("10")), "captured price is kept")
}

func TestCartAddItemClampsQuantity(t *testing.T) {
	c := NewCart("u1")
	c.AddItem(1, 0, price("3"))
	c.AddItem(2, -4, price("3"))

	item, _ := c.Item(1)
	assert.Equal(t, int64(1), item.Quantity)
	item, _ = c.Item(2)
	assert.Equal(t, int64(1), item.Quantity)
}

func TestCartSetQuantityBelowOneRemoves(t *testing.T) {
	c := NewCart("u1")
	c.AddItem(1, 2, price("10"))

	assert.True(t, c.SetQuantity(1, 0))
	assert.True(t, c.IsEmpty())

	assert.False(t, c.SetQuantity(42, 3), "unknown product is a no-op")
	assert.True(t, c.IsEmpty())
}

func TestCartRemoveAndClear(t *testing.T) {
	c := NewCart("u1")
	c.AddItem(1, 1, price("1"))
	c.AddItem(2, 1, price("2"))

	assert.True(t, c.RemoveItem(1))
	assert.False(t, c.RemoveItem(1))
	assert.True(t, c.Total().Equal(price("2")))

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
}

func TestCartTotalExample(t *testing.T) {
	c := NewCart("u1")
	c.AddItem(1, 2, price("10"))
	c.AddItem(2, 1, price("5"))

	assert.True(t, c.Total().Equal(price("25")))
}

func TestCartItemsSortedCopy(t *testing.T) {
	c := NewCart("u1")
	c.AddItem(3, 1, price("1"))
	c.AddItem(1, 1, price("1"))
	c.AddItem(2, 1, price("1"))

	items := c.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{items[0].ProductID, items[1].ProductID, items[2].ProductID})

	items[0].Quantity = 100
	item, _ := c.Item(1)
	assert.Equal(t, int64(1), item.Quantity)
}

func TestRestoreCartClampsAndMergesDuplicates(t *testing.T) {
	c := RestoreCart("u1", []CartItem{
		{ProductID: 1, Quantity: 2, UnitPrice: price("1.50")},
		{ProductID: 1, Quantity: 1, UnitPrice: price("1.50")},
		{ProductID: 2, Quantity: 1, UnitPrice: price("0.99")},
		{ProductID: 3, Quantity: -5, UnitPrice: price("2.00")},
	})

	assert.Equal(t, 3, c.Len())
	item, ok := c.Item(3)
	require.True(t, ok)
	assert.Equal(t, int64(1), item.Quantity)
	item, _ = c.Item(1)
	assert.Equal(t, int64(3), item.Quantity)
	assert.True(t, c.Total().Equal(price("7.49")))
}

func TestCartQuantitySaturates(t *testing.T) {
	c := NewCart("u1")
	c.AddItem(1, math.MaxInt64, price("1"))
	c.AddItem(1, math.MaxInt64, price("1"))

	item, _ := c.Item(1)
	assert.Equal(t, MaxQuantity, item.Quantity)

	c.AddItem(2, MaxQuantity-1, price("1"))
	c.AddItem(2, 5, price("1"))
	item, _ = c.Item(2)
	assert.Equal(t, MaxQuantity, item.Quantity)

	assert.True(t, c.SetQuantity(2, math.MaxInt64))
	item, _ = c.Item(2)
	assert.Equal(t, MaxQuantity, item.Quantity)

	assert.True(t, c.Total().Equal(decimal.NewFromInt(2*MaxQuantity)))
}

// Итог корзины всегда совпадает с пересчётом по позициям.
func TestCartTotalNeverDrifts(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := NewCart("u1")
	prices := map[int64]decimal.Decimal{}

	for step := 0; step < 2000; step++ {
		id := int64(rng.Intn(8) + 1)
		switch rng.Intn(3) {
		case 0:
			p := decimal.New(int64(rng.Intn(10000)), -2)
			if _, ok := prices[id]; !ok {
				prices[id] = p
			}
			c.AddItem(id, int64(rng.Intn(5)-1), p)
		case 1:
			c.SetQuantity(id, int64(rng.Intn(6)-2))
		case 2:
			c.RemoveItem(id)
		}

		expected := decimal.Zero
		for _, item := range c.Items() {
			require.GreaterOrEqual(t, item.Quantity, int64(1))
			expected = expected.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
		}
		require.True(t, c.Total().Equal(expected), "step %d", step)
	}
}

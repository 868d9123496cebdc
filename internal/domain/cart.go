package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CartItem — позиция корзины. UnitPrice фиксируется в момент добавления.
type CartItem struct {
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Subtotal возвращает Quantity × UnitPrice.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// Cart — корзина одного пользователя. Позиции уникальны по ProductID,
// итог не хранится и всегда пересчитывается из позиций.
type Cart struct {
	UserID string
	items  map[int64]CartItem
}

func NewCart(userID string) *Cart {
	return &Cart{
		UserID: userID,
		items:  make(map[int64]CartItem),
	}
}

// RestoreCart собирает корзину из сохранённых позиций по правилам AddItem,
// дубликаты по ProductID складываются.
func RestoreCart(userID string, items []CartItem) *Cart {
	c := NewCart(userID)
	for _, item := range items {
		c.AddItem(item.ProductID, item.Quantity, item.UnitPrice)
	}
	return c
}

// AddItem добавляет товар. Количество < 1 приводится к 1, сумма ограничена MaxQuantity.
// Для уже лежащего в корзине товара увеличивается количество, цена остаётся прежней.
func (c *Cart) AddItem(productID int64, quantity int64, unitPrice decimal.Decimal) {
	quantity = clampQuantity(quantity)

	if item, ok := c.items[productID]; ok {
		if quantity > MaxQuantity-item.Quantity {
			item.Quantity = MaxQuantity
		} else {
			item.Quantity += quantity
		}
		c.items[productID] = item
		return
	}

	c.items[productID] = CartItem{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
}

// RemoveItem удаляет позицию. Возвращает false, если товара в корзине не было.
func (c *Cart) RemoveItem(productID int64) bool {
	if _, ok := c.items[productID]; !ok {
		return false
	}
	delete(c.items, productID)
	return true
}

// SetQuantity задаёт количество. Значение < 1 удаляет позицию, больше MaxQuantity урезается.
// Возвращает false, если товара в корзине не было.
func (c *Cart) SetQuantity(productID int64, quantity int64) bool {
	item, ok := c.items[productID]
	if !ok {
		return false
	}

	if quantity < 1 {
		delete(c.items, productID)
		return true
	}

	item.Quantity = clampQuantity(quantity)
	c.items[productID] = item
	return true
}

func clampQuantity(quantity int64) int64 {
	switch {
	case quantity < 1:
		return 1
	case quantity > MaxQuantity:
		return MaxQuantity
	default:
		return quantity
	}
}

func (c *Cart) Clear() {
	c.items = make(map[int64]CartItem)
}

// Total считает Σ quantity × unitPrice по текущим позициям.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

func (c *Cart) Len() int {
	return len(c.items)
}

// Item возвращает позицию по товару.
func (c *Cart) Item(productID int64) (CartItem, bool) {
	item, ok := c.items[productID]
	return item, ok
}

// Items возвращает копию позиций, отсортированную по ProductID.
func (c *Cart) Items() []CartItem {
	items := make([]CartItem, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductID < items[j].ProductID
	})
	return items
}

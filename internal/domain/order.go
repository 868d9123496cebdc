package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusPaid: true, OrderStatusCancelled: true},
	OrderStatusPaid:      {OrderStatusFulfilled: true, OrderStatusCancelled: true},
	OrderStatusFulfilled: {},
	OrderStatusCancelled: {},
}

// CanTransition проверяет допустимость перехода статуса заказа.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusCancelled
}

func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Order описывает зафиксированный заказ. Total вычисляется при фиксации и больше не меняется.
type Order struct {
	ID        string
	UserID    string
	Status    OrderStatus
	Total     decimal.Decimal
	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem — снимок позиции заказа на момент фиксации.
type OrderItem struct {
	OrderID   string
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// NewOrder создаёт заказ в статусе pending, итог считается по позициям.
func NewOrder(id, userID string, items []OrderItem, now time.Time) *Order {
	total := decimal.Zero
	for i := range items {
		items[i].OrderID = id
		total = total.Add(items[i].Subtotal())
	}

	return &Order{
		ID:        id,
		UserID:    userID,
		Status:    OrderStatusPending,
		Total:     total,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

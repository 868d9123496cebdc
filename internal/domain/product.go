package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Границы, при которых остатки, количества и суммы заказа в копейках помещаются в int64.
const (
	MaxStock     int64 = 1_000_000_000
	MaxQuantity  int64 = 1_000_000
	MaxCartItems       = 500
)

// MaxPrice — максимальная цена единицы товара, 10 млн рублей.
var MaxPrice = decimal.NewFromInt(10_000_000)

// Product описывает товар каталога
type Product struct {
	ID         int64
	Name       string
	Price      decimal.Decimal // Цена за единицу, в БД хранится в копейках
	Stock      int64
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	IsArchived bool
}

func NewProduct(name string, price decimal.Decimal, stock int64) *Product {
	return &Product{
		Name:  name,
		Price: price,
		Stock: stock,
	}
}

// Available сообщает, можно ли продавать товар.
func (p *Product) Available() bool {
	return !p.IsArchived
}

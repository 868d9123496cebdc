package usecase

import (
	"context"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// Transactor выполняет fn в одной транзакции: либо фиксируются все изменения, либо ни одно.
// Вложенный вызов присоединяется к уже открытой транзакции.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetProductsInfo(ctx context.Context, ids []int64) ([]ProductInfo, error)
	// TryReserveStock атомарно уменьшает остаток на quantity, если его хватает.
	// Работает только внутри транзакции, откат транзакции возвращает остаток.
	// Возвращает состояние товара после списания.
	TryReserveStock(ctx context.Context, id int64, quantity int64) (*domain.Product, error)
	Restock(ctx context.Context, id int64, quantity int64) (*domain.Product, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*domain.Product, error)
	Archive(ctx context.Context, id int64) error
}

type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями. Работает только внутри транзакции.
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	// UpdateStatus меняет статус, только если текущий равен from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	// Release возвращает событие в очередь после неудачной публикации.
	Release(ctx context.Context, id int64) error
}

type CartRepository interface {
	// Get возвращает корзину пользователя, для нового пользователя — пустую.
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

type CacheRepository interface {
	GetProducts(ctx context.Context, ids []int64) (map[int64]ProductInfo, error)
	SetProducts(ctx context.Context, products []ProductInfo) error
	DeleteProducts(ctx context.Context, ids []int64) error
}

type ReceiptRepository interface {
	Upload(ctx context.Context, receipt *Receipt) (string, error)
	Delete(ctx context.Context, key string) error
}

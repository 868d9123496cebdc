package usecase

import (
	"context"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/shopspring/decimal"
)

type CatalogUC interface {
	CreateProduct(ctx context.Context, req *CreateProductReq) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error)
	Restock(ctx context.Context, id int64, quantity int64) (*domain.Product, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*domain.Product, error)
	ArchiveProduct(ctx context.Context, id int64) error
}

type CartUC interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, productID int64, quantity int64) (*domain.Cart, error)
	SetQuantity(ctx context.Context, userID string, productID int64, quantity int64) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID string, productID int64) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
	Checkout(ctx context.Context, userID string) (*domain.Order, error)
}

type OrderUC interface {
	Commit(ctx context.Context, cart *domain.Cart, userID string) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	ChangeStatus(ctx context.Context, id string, to domain.OrderStatus) (*domain.Order, error)
	Pay(ctx context.Context, id string) (*domain.Order, error)
	Fulfill(ctx context.Context, id string) (*domain.Order, error)
	Cancel(ctx context.Context, id string) (*domain.Order, error)
}

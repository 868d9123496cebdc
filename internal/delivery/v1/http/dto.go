package http

import (
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
)

type CreateProductRequest struct {
	Name  string `json:"name" validate:"required"`
	Price string `json:"price" validate:"required"`
	Stock int64  `json:"stock" validate:"gte=0,max=1000000000"`
}

type RestockRequest struct {
	Quantity int64 `json:"quantity" validate:"gt=0,max=1000000000"`
}

type UpdatePriceRequest struct {
	Price string `json:"price" validate:"required"`
}

// AddCartItemRequest — quantity меньше единицы означает одну единицу.
type AddCartItemRequest struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
	Quantity  int64 `json:"quantity" validate:"max=1000000"`
}

// SetQuantityRequest — quantity меньше единицы удаляет позицию.
type SetQuantityRequest struct {
	Quantity int64 `json:"quantity" validate:"max=1000000"`
}

type ProductResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Stock     int64  `json:"stock"`
	Available bool   `json:"available"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
	NotFound []int64           `json:"notFound"`
}

type CartItemResponse struct {
	ProductID int64  `json:"productId"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Subtotal  string `json:"subtotal"`
}

type CartResponse struct {
	UserID string             `json:"userId"`
	Items  []CartItemResponse `json:"items"`
	Total  string             `json:"total"`
}

type OrderItemResponse struct {
	ProductID int64  `json:"productId"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

type OrderResponse struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Status    string              `json:"status"`
	Total     string              `json:"total"`
	Items     []OrderItemResponse `json:"items"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

func NewProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price.StringFixed(2),
		Stock:     p.Stock,
		Available: p.Available(),
	}
}

func NewProductsResponse(res *usecase.GetProductsRes) ProductsResponse {
	out := ProductsResponse{
		Products: make([]ProductResponse, 0, len(res.Products)),
		NotFound: res.NotFoundProducts,
	}
	if out.NotFound == nil {
		out.NotFound = []int64{}
	}

	for _, p := range res.Products {
		out.Products = append(out.Products, ProductResponse{
			ID:        p.ID,
			Name:      p.Name,
			Price:     p.Price.StringFixed(2),
			Stock:     p.Stock,
			Available: p.Available,
		})
	}
	return out
}

func NewCartResponse(c *domain.Cart) CartResponse {
	items := c.Items()
	out := CartResponse{
		UserID: c.UserID,
		Items:  make([]CartItemResponse, 0, len(items)),
		Total:  c.Total().StringFixed(2),
	}

	for _, item := range items {
		out.Items = append(out.Items, CartItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Subtotal:  item.Subtotal().StringFixed(2),
		})
	}
	return out
}

func NewOrderResponse(o *domain.Order) OrderResponse {
	out := OrderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    string(o.Status),
		Total:     o.Total.StringFixed(2),
		Items:     make([]OrderItemResponse, 0, len(o.Items)),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}

	for _, item := range o.Items {
		out.Items = append(out.Items, OrderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}
	return out
}

func NewOrdersResponse(orders []*domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrderResponse(o))
	}
	return out
}

package usecase

import (
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// CATALOG USECASE

// CreateProductReq — запрос на добавление товара в каталог.
type CreateProductReq struct {
	Name  string
	Price decimal.Decimal
	Stock int64
}

// GetProductsReq запрос информации о товарах по их идентификаторам.
type GetProductsReq struct {
	IDs []int64
}

// GetProductsRes — ответ с данными запрошенных товаров.
type GetProductsRes struct {
	Products         []ProductInfo
	NotFoundProducts []int64
}

// ProductInfo — DTO с информацией о товаре для внешнего использования.
type ProductInfo struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Stock     int64
	Available bool
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

type OutboxEventType string

const (
	OrderCreated       OutboxEventType = "OrderCreated"
	OrderStatusChanged OutboxEventType = "OrderStatusChanged"
)

// OutboxEvent — событие, записанное в той же транзакции, что и изменение заказа.
// Payload содержит готовый к публикации JSON-конверт.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	OrderID     string
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// INFRASTRUCTURE

type WriteRawMessageReq struct {
	Key     string
	Payload []byte
}

// Receipt — квитанция заказа для архива.
type Receipt struct {
	Key         string
	Data        []byte
	ContentType string
}

// MAPPERS

func NewProductInfo(product *domain.Product) ProductInfo {
	return ProductInfo{
		ID:        product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Stock:     product.Stock,
		Available: product.Available(),
	}
}

func NewGetProductsRes(pr []ProductInfo, notFoundProducts []int64) *GetProductsRes {
	return &GetProductsRes{
		Products:         pr,
		NotFoundProducts: notFoundProducts,
	}
}

func NewGetProductsReq(ids []int64) *GetProductsReq {
	return &GetProductsReq{ids}
}

func NewCreateProductReq(name string, price decimal.Decimal, stock int64) *CreateProductReq {
	return &CreateProductReq{
		Name:  name,
		Price: price,
		Stock: stock,
	}
}

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     key,
		Payload: payload,
	}
}

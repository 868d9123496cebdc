package converter

import (
	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/shopspring/decimal"
)

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
type ProductConverter interface {
	ToModel(entity *domain.Product) *ProductModel
	ToEntity(model *ProductModel) *domain.Product
}

// OrderConverter преобразует заказ с позициями между domain и моделями PostgreSQL.
type OrderConverter interface {
	ToModel(entity *domain.Order) (*OrderModel, []OrderItemModel)
	ToEntity(model *OrderModel, items []OrderItemModel) *domain.Order
}

// OutboxEventConverter преобразует сущности OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) *OutboxEventModel
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent
}

// CentsToDecimal — копейки в денежную сумму.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// DecimalToCents — денежная сумма в копейки. Дробь меньше копейки отбрасывается.
func DecimalToCents(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}

type ProductConverterImpl struct{}

func (ProductConverterImpl) ToModel(entity *domain.Product) *ProductModel {
	if entity == nil {
		return nil
	}
	return &ProductModel{
		ID:         entity.ID,
		Name:       entity.Name,
		PriceCents: DecimalToCents(entity.Price),
		Stock:      entity.Stock,
		CreatedAt:  entity.CreatedAt,
		UpdatedAt:  entity.UpdatedAt,
		IsArchived: entity.IsArchived,
	}
}

func (ProductConverterImpl) ToEntity(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}
	return &domain.Product{
		ID:         model.ID,
		Name:       model.Name,
		Price:      CentsToDecimal(model.PriceCents),
		Stock:      model.Stock,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
		IsArchived: model.IsArchived,
	}
}

type OrderConverterImpl struct{}

func (OrderConverterImpl) ToModel(entity *domain.Order) (*OrderModel, []OrderItemModel) {
	items := make([]OrderItemModel, 0, len(entity.Items))
	for _, item := range entity.Items {
		items = append(items, OrderItemModel{
			OrderID:        entity.ID,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: DecimalToCents(item.UnitPrice),
		})
	}

	return &OrderModel{
		ID:         entity.ID,
		UserID:     entity.UserID,
		Status:     string(entity.Status),
		TotalCents: DecimalToCents(entity.Total),
		CreatedAt:  entity.CreatedAt,
		UpdatedAt:  entity.UpdatedAt,
	}, items
}

func (OrderConverterImpl) ToEntity(model *OrderModel, items []OrderItemModel) *domain.Order {
	order := &domain.Order{
		ID:        model.ID,
		UserID:    model.UserID,
		Status:    domain.OrderStatus(model.Status),
		Total:     CentsToDecimal(model.TotalCents),
		Items:     make([]domain.OrderItem, 0, len(items)),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	for _, item := range items {
		order.Items = append(order.Items, domain.OrderItem{
			OrderID:   item.OrderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: CentsToDecimal(item.UnitPriceCents),
		})
	}
	return order
}

type OutboxEventConverterImpl struct{}

func (OutboxEventConverterImpl) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	if entity == nil {
		return nil
	}
	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   string(entity.EventType),
		OrderID:     entity.OrderID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (c OutboxEventConverterImpl) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	if model == nil {
		return nil
	}
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   usecase.OutboxEventType(model.EventType),
		OrderID:     model.OrderID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c OutboxEventConverterImpl) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	res := make([]*usecase.OutboxEvent, 0, len(models))
	for _, m := range models {
		res = append(res, c.ToEntity(m))
	}
	return res
}

package converter

import (
	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/shopspring/decimal"
)

type ProductInfoConverter interface {
	ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel
	ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo
	ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel
}

type ProductInfoConverterImpl struct{}

func (ProductInfoConverterImpl) ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel {
	if entity == nil {
		return nil
	}
	return &ProductInfoRedisModel{
		ID:         entity.ID,
		Name:       entity.Name,
		PriceCents: toCents(entity.Price),
		Stock:      entity.Stock,
		Available:  entity.Available,
	}
}

func (ProductInfoConverterImpl) ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo {
	if model == nil {
		return nil
	}
	return &usecase.ProductInfo{
		ID:        model.ID,
		Name:      model.Name,
		Price:     fromCents(model.PriceCents),
		Stock:     model.Stock,
		Available: model.Available,
	}
}

func (c ProductInfoConverterImpl) ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel {
	res := make([]ProductInfoRedisModel, 0, len(entities))
	for i := range entities {
		res = append(res, *c.ToRedisModel(&entities[i]))
	}
	return res
}

func CartItemToRedisModel(item domain.CartItem) CartItemRedisModel {
	return CartItemRedisModel{
		Quantity:       item.Quantity,
		UnitPriceCents: toCents(item.UnitPrice),
	}
}

func CartItemFromRedisModel(productID int64, model CartItemRedisModel) domain.CartItem {
	return domain.CartItem{
		ProductID: productID,
		Quantity:  model.Quantity,
		UnitPrice: fromCents(model.UnitPriceCents),
	}
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

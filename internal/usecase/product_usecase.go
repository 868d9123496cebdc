package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// ProductUseCase реализует бизнес-логику управления каталогом товаров.
type ProductUseCase struct {
	productRepo ProductRepository
	cacheRepo   CacheRepository
	logger      logger.Logger
}

func NewProductUC(
	productRepo ProductRepository,
	cacheRepo CacheRepository,
	logger logger.Logger,
) *ProductUseCase {
	return &ProductUseCase{
		productRepo: productRepo,
		cacheRepo:   cacheRepo,
		logger:      logger,
	}
}

// CreateProduct добавляет новый товар в каталог.
func (p *ProductUseCase) CreateProduct(ctx context.Context, req *CreateProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.CreateProduct"

	if err := p.validateProduct(req); err != nil {
		return nil, e.Wrap(op, err)
	}

	product, err := p.productRepo.Create(ctx, domain.NewProduct(strings.TrimSpace(req.Name), req.Price, req.Stock))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return product, nil
}

func (p *ProductUseCase) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	const op = "ProductUseCase.GetProduct"

	if id <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidID)
	}

	product, err := p.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return product, nil
}

// GetProductsInfo возвращает информацию о продуктах по их идентификаторам.
// Сначала ищет в кэше, недостающее догружает из хранилища и кэширует в фоне.
func (p *ProductUseCase) GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error) {
	const op = "ProductUseCase.GetProductsInfo"

	// Валидация
	if len(req.IDs) == 0 {
		return nil, e.Wrap(op, e.ErrNoProducts)
	}

	// Поиск продуктов в кэше
	cacheProductsMap, err := p.cacheRepo.GetProducts(ctx, req.IDs)
	var nonCacheable []int64
	if err != nil {
		p.logger.Warnf("Failed to read products from cache: %v", e.Wrap(op, err))
		cacheProductsMap = nil
		nonCacheable = append(nonCacheable, req.IDs...)
	} else {
		for _, productID := range req.IDs {
			if _, ok := cacheProductsMap[productID]; !ok {
				nonCacheable = append(nonCacheable, productID)
			}
		}
	}

	// Получение продуктов из хранилища
	var productsInfoFromDB []ProductInfo
	if len(nonCacheable) > 0 {
		productsInfoFromDB, err = p.productRepo.GetProductsInfo(ctx, nonCacheable)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		if len(productsInfoFromDB) > 0 {
			toCache := append([]ProductInfo(nil), productsInfoFromDB...)
			// Фоновое добавление продуктов в кэш
			go func() {
				bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
				defer cancel()

				if err := p.cacheRepo.SetProducts(bgCtx, toCache); err != nil {
					p.logger.Warnf("Failed to cache products in background: %v", e.Wrap(op, err))
				}
			}()
		}
	}

	dbProductsMap := make(map[int64]ProductInfo, len(productsInfoFromDB))
	for _, productInfo := range productsInfoFromDB {
		dbProductsMap[productInfo.ID] = productInfo
	}

	// Формирование результата в порядке запроса
	result := make([]ProductInfo, 0, len(req.IDs))
	notFoundProducts := make([]int64, 0)
	for _, id := range req.IDs {
		if pr, ok := cacheProductsMap[id]; ok {
			result = append(result, pr)
		} else if pr, ok := dbProductsMap[id]; ok {
			result = append(result, pr)
		} else {
			notFoundProducts = append(notFoundProducts, id)
		}
	}

	return NewGetProductsRes(result, notFoundProducts), nil
}

// Restock пополняет остаток товара.
func (p *ProductUseCase) Restock(ctx context.Context, id int64, quantity int64) (*domain.Product, error) {
	const op = "ProductUseCase.Restock"

	if id <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidID)
	}
	if quantity <= 0 || quantity > domain.MaxStock {
		return nil, e.Wrap(op, e.ErrInvalidQuantity)
	}

	product, err := p.productRepo.Restock(ctx, id, quantity)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	p.invalidate(ctx, op, id)

	return product, nil
}

// UpdatePrice меняет цену товара. Уже зафиксированные заказы не затрагиваются.
func (p *ProductUseCase) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*domain.Product, error) {
	const op = "ProductUseCase.UpdatePrice"

	if id <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidID)
	}
	if err := validatePrice(price); err != nil {
		return nil, e.Wrap(op, err)
	}

	product, err := p.productRepo.UpdatePrice(ctx, id, price)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	p.invalidate(ctx, op, id)

	return product, nil
}

// ArchiveProduct снимает товар с продажи. Строка остаётся, на неё ссылаются позиции заказов.
func (p *ProductUseCase) ArchiveProduct(ctx context.Context, id int64) error {
	const op = "ProductUseCase.ArchiveProduct"

	if id <= 0 {
		return e.Wrap(op, e.ErrInvalidID)
	}

	if err := p.productRepo.Archive(ctx, id); err != nil {
		return e.Wrap(op, err)
	}
	p.invalidate(ctx, op, id)

	return nil
}

// invalidate удаляет из кэша устаревшие данные товара.
func (p *ProductUseCase) invalidate(ctx context.Context, op string, ids ...int64) {
	if err := p.cacheRepo.DeleteProducts(ctx, ids); err != nil {
		p.logger.Warnf("Failed to delete products from cache: %v", e.Wrap(op, err))
	}
}

// validateProduct проверяет корректность входных данных запроса на добавление продукта.
func (p *ProductUseCase) validateProduct(req *CreateProductReq) error {
	if strings.TrimSpace(req.Name) == "" {
		return e.ErrProductNameRequired
	}

	if err := validatePrice(req.Price); err != nil {
		return err
	}

	if req.Stock < 0 || req.Stock > domain.MaxStock {
		return e.ErrInvalidStock
	}

	return nil
}

// validatePrice: цена неотрицательна и не точнее копейки.
func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() || price.GreaterThan(domain.MaxPrice) {
		return e.ErrInvalidPrice
	}

	if !price.Equal(price.Truncate(2)) {
		return e.ErrPricePrecision
	}

	return nil
}

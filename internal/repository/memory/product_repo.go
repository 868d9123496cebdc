package memory

import (
	"context"
	"sync"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/shopspring/decimal"
)

// productSlot — товар со своей блокировкой: резервирования разных товаров не мешают друг другу.
// rowLock держится до конца транзакции, как блокировка строки в PostgreSQL, mu защищает поля.
type productSlot struct {
	rowLock chan struct{}
	mu      sync.Mutex
	product domain.Product
}

func newProductSlot(p domain.Product) *productSlot {
	return &productSlot{rowLock: make(chan struct{}, 1), product: p}
}

// lockRow ждёт блокировку строки или отмены ctx.
func (s *productSlot) lockRow(ctx context.Context) error {
	select {
	case s.rowLock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *productSlot) unlockRow() {
	<-s.rowLock
}

type ProductRepo struct {
	mu       sync.RWMutex
	products map[int64]*productSlot
	nextID   int64
}

func NewProductRepo() *ProductRepo {
	return &ProductRepo{products: make(map[int64]*productSlot)}
}

func (r *ProductRepo) slot(id int64) (*productSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.products[id]
	if !ok {
		return nil, e.ErrProductNotFound
	}
	return s, nil
}

func (r *ProductRepo) Create(_ context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	p := *product
	p.ID = r.nextID
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = nil
	r.products[p.ID] = newProductSlot(p)

	return &p, nil
}

func (r *ProductRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	s, err := r.slot(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.product
	return &p, nil
}

func (r *ProductRepo) GetProductsInfo(ctx context.Context, ids []int64) ([]usecase.ProductInfo, error) {
	res := make([]usecase.ProductInfo, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		p, err := r.GetByID(ctx, id)
		if err != nil {
			continue
		}
		res = append(res, usecase.NewProductInfo(p))
	}
	return res, nil
}

// TryReserveStock списывает остаток и регистрирует компенсацию в транзакции.
// Блокировка товара снимается только при фиксации или откате, поэтому конкурирующая
// транзакция ждёт исхода, а не видит чужое незафиксированное списание.
func (r *ProductRepo) TryReserveStock(ctx context.Context, id int64, quantity int64) (*domain.Product, error) {
	u, err := uowFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s, err := r.slot(id)
	if err != nil {
		return nil, err
	}

	if err := u.lockSlot(ctx, s); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.product.IsArchived {
		return nil, e.ErrProductUnavailable
	}
	if s.product.Stock < quantity {
		return nil, e.ErrInsufficientStock
	}

	s.product.Stock -= quantity
	u.addUndo(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.product.Stock += quantity
	})

	p := s.product
	return &p, nil
}

// Restock пополняет остаток. Итог больше domain.MaxStock отклоняется с ErrInvalidQuantity.
func (r *ProductRepo) Restock(ctx context.Context, id int64, quantity int64) (*domain.Product, error) {
	return r.update(ctx, id, func(p *domain.Product) error {
		if quantity <= 0 || quantity > domain.MaxStock-p.Stock {
			return e.ErrInvalidQuantity
		}
		p.Stock += quantity
		return nil
	})
}

func (r *ProductRepo) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*domain.Product, error) {
	return r.update(ctx, id, func(p *domain.Product) error {
		p.Price = price
		return nil
	})
}

func (r *ProductRepo) Archive(ctx context.Context, id int64) error {
	_, err := r.update(ctx, id, func(p *domain.Product) error {
		p.IsArchived = true
		return nil
	})
	return err
}

func (r *ProductRepo) update(ctx context.Context, id int64, fn func(p *domain.Product) error) (*domain.Product, error) {
	s, err := r.slot(id)
	if err != nil {
		return nil, err
	}

	// Изменение ждёт открытые резервирования этого товара
	if u, err := uowFromCtx(ctx); err == nil {
		if err := u.lockSlot(ctx, s); err != nil {
			return nil, err
		}
	} else {
		if err := s.lockRow(ctx); err != nil {
			return nil, err
		}
		defer s.unlockRow()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(&s.product); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	s.product.UpdatedAt = &now

	p := s.product
	return &p, nil
}

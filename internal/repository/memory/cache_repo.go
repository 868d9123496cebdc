package memory

import (
	"context"
	"sync"

	"github.com/DRSN-tech/checkout-backend/internal/usecase"
)

type CacheRepo struct {
	mu       sync.RWMutex
	products map[int64]usecase.ProductInfo
}

func NewCacheRepo() *CacheRepo {
	return &CacheRepo{products: make(map[int64]usecase.ProductInfo)}
}

func (r *CacheRepo) GetProducts(_ context.Context, ids []int64) (map[int64]usecase.ProductInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make(map[int64]usecase.ProductInfo, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			res[id] = p
		}
	}
	return res, nil
}

func (r *CacheRepo) SetProducts(_ context.Context, products []usecase.ProductInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range products {
		r.products[p.ID] = p
	}
	return nil
}

func (r *CacheRepo) DeleteProducts(_ context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		delete(r.products, id)
	}
	return nil
}

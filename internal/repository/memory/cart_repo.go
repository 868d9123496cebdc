package memory

import (
	"context"
	"sync"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
)

type CartRepo struct {
	mu    sync.RWMutex
	carts map[string][]domain.CartItem
}

func NewCartRepo() *CartRepo {
	return &CartRepo{carts: make(map[string][]domain.CartItem)}
}

func (r *CartRepo) Get(_ context.Context, userID string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return domain.RestoreCart(userID, r.carts[userID]), nil
}

func (r *CartRepo) Save(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cart.IsEmpty() {
		delete(r.carts, cart.UserID)
		return nil
	}
	r.carts[cart.UserID] = cart.Items()
	return nil
}

func (r *CartRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}

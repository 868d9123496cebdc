package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
)

type OrderRepo struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	byUser map[string][]string
}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{
		orders: make(map[string]*domain.Order),
		byUser: make(map[string][]string),
	}
}

// Create откладывает вставку до фиксации транзакции.
func (r *OrderRepo) Create(ctx context.Context, order *domain.Order) error {
	u, err := uowFromCtx(ctx)
	if err != nil {
		return err
	}

	stored := cloneOrder(order)
	u.addOnCommit(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.orders[stored.ID] = stored
		r.byUser[stored.UserID] = append(r.byUser[stored.UserID], stored.ID)
	})

	return nil
}

func (r *OrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, e.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *OrderRepo) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	res := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		res = append(res, cloneOrder(r.orders[id]))
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

// UpdateStatus — compare-and-swap по статусу. Внутри транзакции откат возвращает прежний статус.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return e.ErrOrderNotFound
	}
	if order.Status != from {
		return e.ErrInvalidStatusTransition
	}

	prevUpdatedAt := order.UpdatedAt
	order.Status = to
	order.UpdatedAt = time.Now().UTC()

	if u, err := uowFromCtx(ctx); err == nil {
		u.addUndo(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			order.Status = from
			order.UpdatedAt = prevUpdatedAt
		})
	}

	return nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	return &c
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
)

type OutboxRepo struct {
	mu     sync.Mutex
	events []*usecase.OutboxEvent
	nextID int64
}

func NewOutboxRepo() *OutboxRepo {
	return &OutboxRepo{}
}

// Create откладывает запись события до фиксации транзакции.
func (r *OutboxRepo) Create(ctx context.Context, event *usecase.OutboxEvent) (*usecase.OutboxEvent, error) {
	u, err := uowFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	stored := *event
	stored.Status = usecase.Pending
	u.addOnCommit(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.nextID++
		stored.ID = r.nextID
		r.events = append(r.events, &stored)
	})

	return &stored, nil
}

func (r *OutboxRepo) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*usecase.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]*usecase.OutboxEvent, 0, limit)
	for _, ev := range r.events {
		if len(res) >= limit {
			break
		}
		if ev.Status != usecase.Pending {
			continue
		}
		ev.Status = usecase.Processing
		c := *ev
		res = append(res, &c)
	}
	return res, nil
}

func (r *OutboxRepo) MarkAsProcessed(_ context.Context, id int64) error {
	return r.setStatus(id, usecase.Processed)
}

func (r *OutboxRepo) Release(_ context.Context, id int64) error {
	return r.setStatus(id, usecase.Pending)
}

// Events возвращает копию всех событий в порядке записи.
func (r *OutboxRepo) Events() []usecase.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]usecase.OutboxEvent, 0, len(r.events))
	for _, ev := range r.events {
		res = append(res, *ev)
	}
	return res
}

func (r *OutboxRepo) setStatus(id int64, status usecase.OutboxStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ev := range r.events {
		if ev.ID != id {
			continue
		}
		ev.Status = status
		if status == usecase.Processed {
			now := time.Now().UTC()
			ev.ProcessedAt = &now
		}
		return nil
	}
	return e.ErrEventNotFound
}

// Package memory — хранилище в памяти процесса для STORAGE_DRIVER=memory и тестов.
package memory

import (
	"context"
	"sync"

	"github.com/DRSN-tech/checkout-backend/pkg/e"
)

type uowKey struct{}

// unitOfWork копит компенсации и отложенные записи одной транзакции.
// Изменения остатков применяются сразу и откатываются компенсациями,
// вставки заказов и событий становятся видимыми только при фиксации.
type unitOfWork struct {
	mu       sync.Mutex
	undo     []func()
	onCommit []func()
	locked   map[*productSlot]struct{}
}

// lockSlot берёт блокировку товара до конца транзакции. Повторный вызов для того же товара ничего не делает.
func (u *unitOfWork) lockSlot(ctx context.Context, s *productSlot) error {
	u.mu.Lock()
	_, held := u.locked[s]
	u.mu.Unlock()
	if held {
		return nil
	}

	if err := s.lockRow(ctx); err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.locked == nil {
		u.locked = make(map[*productSlot]struct{})
	}
	u.locked[s] = struct{}{}
	return nil
}

// unlockAll вызывается под u.mu после применения или отката изменений.
func (u *unitOfWork) unlockAll() {
	for s := range u.locked {
		s.unlockRow()
	}
	u.locked = nil
}

func (u *unitOfWork) addUndo(f func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.undo = append(u.undo, f)
}

func (u *unitOfWork) addOnCommit(f func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onCommit = append(u.onCommit, f)
}

func (u *unitOfWork) rollback() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo, u.onCommit = nil, nil
	u.unlockAll()
}

func (u *unitOfWork) commit() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, f := range u.onCommit {
		f()
	}
	u.undo, u.onCommit = nil, nil
	u.unlockAll()
}

func uowFromCtx(ctx context.Context) (*unitOfWork, error) {
	u, ok := ctx.Value(uowKey{}).(*unitOfWork)
	if !ok || u == nil {
		return nil, e.ErrUnitOfWorkNotFound
	}
	return u, nil
}

// Transactor реализует usecase.Transactor поверх unitOfWork.
type Transactor struct{}

func NewTransactor() *Transactor {
	return &Transactor{}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, err := uowFromCtx(ctx); err == nil {
		return fn(ctx)
	}

	u := &unitOfWork{}
	err := fn(context.WithValue(ctx, uowKey{}, u))
	// Истёкший контекст означает неудачу, даже если fn успела отработать
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		u.rollback()
		return err
	}

	u.commit()
	return nil
}

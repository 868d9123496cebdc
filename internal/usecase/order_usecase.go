package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/jitter"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/google/uuid"
)

const retryJitterFactor = 0.2

// OrderUseCase фиксирует корзины в заказы и ведёт их жизненный цикл.
type OrderUseCase struct {
	productRepo ProductRepository
	orderRepo   OrderRepository
	outboxRepo  OutboxRepository
	cacheRepo   CacheRepository
	transactor  Transactor
	receipts    ReceiptArchive
	cfg         *cfg.CheckoutCfg
	logger      logger.Logger
	now         func() time.Time
}

func NewOrderUC(
	productRepo ProductRepository,
	orderRepo OrderRepository,
	outboxRepo OutboxRepository,
	cacheRepo CacheRepository,
	transactor Transactor,
	receipts ReceiptArchive,
	cfg *cfg.CheckoutCfg,
	logger logger.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		outboxRepo:  outboxRepo,
		cacheRepo:   cacheRepo,
		transactor:  transactor,
		receipts:    receipts,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Commit превращает корзину в заказ.
// Все позиции резервируются одной транзакцией: при любой ошибке остатки не меняются и заказ не создаётся.
// Ошибка всегда имеет тип *domain.CommitError.
func (o *OrderUseCase) Commit(ctx context.Context, cart *domain.Cart, userID string) (*domain.Order, error) {
	const op = "OrderUseCase.Commit"

	if cart == nil || cart.IsEmpty() {
		return nil, e.Wrap(op, domain.NewCommitError(domain.CommitErrEmptyCart, 0, nil))
	}
	if strings.TrimSpace(userID) == "" {
		return nil, e.Wrap(op, domain.NewCommitError(domain.CommitErrTransactionFailed, 0, e.ErrUserIDRequired))
	}

	// Позиции отсортированы по id товара, блокировки берутся в одном порядке
	lines := cart.Items()

	var (
		order *domain.Order
		err   error
	)
	for attempt := 0; ; attempt++ {
		order, err = o.commitOnce(ctx, userID, lines)
		if err == nil {
			break
		}

		if !errors.Is(err, e.ErrTxConflict) || attempt >= o.cfg.MaxRetries {
			return nil, e.Wrap(op, toCommitError(err))
		}

		backoff := jitter.ExponentialBackoff(o.cfg.RetryBase, o.cfg.RetryMax, attempt, retryJitterFactor)
		o.logger.Warnf("Commit conflict, retrying. user_id: %s, attempt: %d, backoff: %s", userID, attempt+1, backoff)
		if err := jitter.Sleep(ctx, backoff); err != nil {
			return nil, e.Wrap(op, domain.NewCommitError(domain.CommitErrTransactionFailed, 0, err))
		}
	}

	// Остатки изменились, кэш каталога устарел
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	if err := o.cacheRepo.DeleteProducts(ctx, ids); err != nil {
		o.logger.Warnf("Failed to delete products from cache: %v", e.Wrap(op, err))
	}

	if o.receipts != nil {
		o.receipts.ArchiveReceipt(order)
	}

	o.logger.Infof("Order committed. order_id: %s, user_id: %s, total: %s", order.ID, userID, order.Total.StringFixed(2))

	return order, nil
}

// commitOnce — одна попытка фиксации под таймаутом.
func (o *OrderUseCase) commitOnce(ctx context.Context, userID string, lines []domain.CartItem) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.CommitTimeout)
	defer cancel()

	var order *domain.Order
	err := o.transactor.WithinTx(ctx, func(ctx context.Context) error {
		items := make([]domain.OrderItem, 0, len(lines))
		for _, line := range lines {
			product, err := o.productRepo.TryReserveStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return reservationError(line.ProductID, err)
			}

			// Цена берётся из каталога на момент фиксации
			items = append(items, domain.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
			})
		}

		now := o.now().UTC()
		order = domain.NewOrder(uuid.NewString(), userID, items, now)
		if err := o.orderRepo.Create(ctx, order); err != nil {
			return err
		}

		event, err := NewOrderCreatedEvent(order, now)
		if err != nil {
			return err
		}
		if _, err := o.outboxRepo.Create(ctx, event); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// reservationError переводит ошибку резервирования в ошибку фиксации по конкретному товару.
func reservationError(productID int64, err error) error {
	switch {
	case errors.Is(err, e.ErrInsufficientStock):
		return domain.NewCommitError(domain.CommitErrInsufficientStock, productID, nil)
	case errors.Is(err, e.ErrProductNotFound), errors.Is(err, e.ErrProductUnavailable):
		return domain.NewCommitError(domain.CommitErrProductUnavailable, productID, nil)
	default:
		return err
	}
}

func toCommitError(err error) *domain.CommitError {
	var commitErr *domain.CommitError
	if errors.As(err, &commitErr) {
		return commitErr
	}
	return domain.NewCommitError(domain.CommitErrTransactionFailed, 0, err)
}

func (o *OrderUseCase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	const op = "OrderUseCase.GetOrder"

	if _, err := uuid.Parse(id); err != nil {
		return nil, e.Wrap(op, e.ErrInvalidID)
	}

	order, err := o.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return order, nil
}

// ListOrders возвращает заказы пользователя, новые первыми.
func (o *OrderUseCase) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	const op = "OrderUseCase.ListOrders"

	if strings.TrimSpace(userID) == "" {
		return nil, e.Wrap(op, e.ErrUserIDRequired)
	}

	orders, err := o.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return orders, nil
}

// ChangeStatus переводит заказ в статус to и пишет событие в outbox.
// Повторный перевод в текущий статус ничего не меняет: внешние события доставляются не менее одного раза.
// Отмена не возвращает товар на склад.
func (o *OrderUseCase) ChangeStatus(ctx context.Context, id string, to domain.OrderStatus) (*domain.Order, error) {
	const op = "OrderUseCase.ChangeStatus"

	if _, err := uuid.Parse(id); err != nil {
		return nil, e.Wrap(op, e.ErrInvalidID)
	}
	if !to.Valid() {
		return nil, e.Wrap(op, e.ErrInvalidStatusTransition)
	}

	var order *domain.Order
	err := o.transactor.WithinTx(ctx, func(ctx context.Context) error {
		current, err := o.orderRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if current.Status == to {
			order = current
			return nil
		}
		if !domain.CanTransition(current.Status, to) {
			return e.ErrInvalidStatusTransition
		}

		if err := o.orderRepo.UpdateStatus(ctx, id, current.Status, to); err != nil {
			return err
		}

		now := o.now().UTC()
		event, err := NewOrderStatusChangedEvent(id, current.Status, to, now)
		if err != nil {
			return err
		}
		if _, err := o.outboxRepo.Create(ctx, event); err != nil {
			return err
		}

		o.logger.Infof("Order status changed. order_id: %s, from: %s, to: %s", id, current.Status, to)

		current.Status = to
		current.UpdatedAt = now
		order = current
		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return order, nil
}

func (o *OrderUseCase) Pay(ctx context.Context, id string) (*domain.Order, error) {
	return o.ChangeStatus(ctx, id, domain.OrderStatusPaid)
}

func (o *OrderUseCase) Fulfill(ctx context.Context, id string) (*domain.Order, error) {
	return o.ChangeStatus(ctx, id, domain.OrderStatusFulfilled)
}

func (o *OrderUseCase) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	return o.ChangeStatus(ctx, id, domain.OrderStatusCancelled)
}

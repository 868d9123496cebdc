package usecase

import (
	"context"
	"strings"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
)

// CartUseCase управляет корзинами пользователей.
type CartUseCase struct {
	cartRepo    CartRepository
	productRepo ProductRepository
	orderUC     OrderUC
	logger      logger.Logger
}

func NewCartUC(
	cartRepo CartRepository,
	productRepo ProductRepository,
	orderUC OrderUC,
	logger logger.Logger,
) *CartUseCase {
	return &CartUseCase{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		orderUC:     orderUC,
		logger:      logger,
	}
}

func (c *CartUseCase) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	const op = "CartUseCase.GetCart"

	if err := validateUserID(userID); err != nil {
		return nil, e.Wrap(op, err)
	}

	cart, err := c.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return cart, nil
}

// AddItem кладёт товар в корзину по текущей цене каталога.
// Остаток здесь не проверяется и не резервируется, это делает фиксация заказа.
func (c *CartUseCase) AddItem(ctx context.Context, userID string, productID int64, quantity int64) (*domain.Cart, error) {
	const op = "CartUseCase.AddItem"

	if err := validateUserID(userID); err != nil {
		return nil, e.Wrap(op, err)
	}
	if productID <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidID)
	}

	product, err := c.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !product.Available() {
		return nil, e.Wrap(op, e.ErrProductUnavailable)
	}

	cart, err := c.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := checkAddQuantity(cart, productID, quantity); err != nil {
		return nil, e.Wrap(op, err)
	}
	cart.AddItem(productID, quantity, product.Price)

	if err := c.cartRepo.Save(ctx, cart); err != nil {
		return nil, e.Wrap(op, err)
	}

	return cart, nil
}

// SetQuantity задаёт количество позиции, значение меньше 1 удаляет её.
func (c *CartUseCase) SetQuantity(ctx context.Context, userID string, productID int64, quantity int64) (*domain.Cart, error) {
	const op = "CartUseCase.SetQuantity"

	if quantity > domain.MaxQuantity {
		return nil, e.Wrap(op, e.ErrInvalidQuantity)
	}

	return c.mutate(ctx, op, userID, func(cart *domain.Cart) bool {
		return cart.SetQuantity(productID, quantity)
	})
}

func (c *CartUseCase) RemoveItem(ctx context.Context, userID string, productID int64) (*domain.Cart, error) {
	const op = "CartUseCase.RemoveItem"

	return c.mutate(ctx, op, userID, func(cart *domain.Cart) bool {
		return cart.RemoveItem(productID)
	})
}

func (c *CartUseCase) Clear(ctx context.Context, userID string) error {
	const op = "CartUseCase.Clear"

	if err := validateUserID(userID); err != nil {
		return e.Wrap(op, err)
	}

	if err := c.cartRepo.Delete(ctx, userID); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// Checkout фиксирует корзину пользователя. Корзина очищается только после успешной фиксации.
func (c *CartUseCase) Checkout(ctx context.Context, userID string) (*domain.Order, error) {
	const op = "CartUseCase.Checkout"

	if err := validateUserID(userID); err != nil {
		return nil, e.Wrap(op, err)
	}

	cart, err := c.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	order, err := c.orderUC.Commit(ctx, cart, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// Заказ уже зафиксирован, ошибка очистки корзины не отменяет его
	if err := c.cartRepo.Delete(ctx, userID); err != nil {
		c.logger.Warnf("Failed to clear cart after checkout. user_id: %s, order_id: %s, error: %v", userID, order.ID, e.Wrap(op, err))
	}

	return order, nil
}

func (c *CartUseCase) mutate(ctx context.Context, op, userID string, fn func(cart *domain.Cart) bool) (*domain.Cart, error) {
	if err := validateUserID(userID); err != nil {
		return nil, e.Wrap(op, err)
	}

	cart, err := c.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if !fn(cart) {
		return nil, e.Wrap(op, e.ErrCartItemNotFound)
	}

	if err := c.cartRepo.Save(ctx, cart); err != nil {
		return nil, e.Wrap(op, err)
	}

	return cart, nil
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return e.ErrUserIDRequired
	}
	return nil
}

// checkAddQuantity не даёт количеству позиции выйти за MaxQuantity, а корзине за MaxCartItems.
// Количество < 1 считается одной единицей.
func checkAddQuantity(cart *domain.Cart, productID int64, quantity int64) error {
	if quantity < 1 {
		quantity = 1
	}
	if quantity > domain.MaxQuantity {
		return e.ErrInvalidQuantity
	}

	item, ok := cart.Item(productID)
	if !ok {
		if cart.Len() >= domain.MaxCartItems {
			return e.ErrCartFull
		}
		return nil
	}
	if quantity > domain.MaxQuantity-item.Quantity {
		return e.ErrInvalidQuantity
	}
	return nil
}

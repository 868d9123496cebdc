package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")
	ErrTxConflict          = fmt.Errorf("transaction conflict")
	ErrUnitOfWorkNotFound  = fmt.Errorf("unit of work not found")

	// Ошибки оформления заказа
	ErrEmptyCart          = fmt.Errorf("cart is empty")
	ErrProductUnavailable = fmt.Errorf("product unavailable")
	ErrInsufficientStock  = fmt.Errorf("insufficient stock")
	ErrTransactionFailed  = fmt.Errorf("transaction failed")

	// 400 Bad Request
	ErrStatusBadRequest    = fmt.Errorf("bad request")
	ErrProductNameRequired = fmt.Errorf("product name is required")
	ErrInvalidPrice        = fmt.Errorf("invalid price")
	ErrPricePrecision      = fmt.Errorf("price must have at most 2 decimal places")
	ErrInvalidStock        = fmt.Errorf("stock must not be negative")
	ErrInvalidQuantity     = fmt.Errorf("quantity must be positive")
	ErrInvalidID           = fmt.Errorf("invalid id")
	ErrNoProducts          = fmt.Errorf("no products requested")
	ErrMissingFields       = fmt.Errorf("missing required fields")
	ErrCartFull            = fmt.Errorf("too many items in cart")

	// 401 Unauthorized
	ErrUserIDRequired = fmt.Errorf("user id is required")

	// 404 Not Found
	ErrProductNotFound  = fmt.Errorf("product not found")
	ErrOrderNotFound    = fmt.Errorf("order not found")
	ErrCartItemNotFound = fmt.Errorf("cart item not found")
	ErrEventNotFound    = fmt.Errorf("outbox event not found")

	// 409 Conflict
	ErrInvalidStatusTransition = fmt.Errorf("invalid order status transition")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")

	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

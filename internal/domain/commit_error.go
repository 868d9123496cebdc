package domain

import (
	"fmt"

	"github.com/DRSN-tech/checkout-backend/pkg/e"
)

type CommitErrorKind string

const (
	CommitErrEmptyCart          CommitErrorKind = "EmptyCart"
	CommitErrProductUnavailable CommitErrorKind = "ProductUnavailable"
	CommitErrInsufficientStock  CommitErrorKind = "InsufficientStock"
	CommitErrTransactionFailed  CommitErrorKind = "TransactionFailed"
)

// CommitError — структурированная ошибка фиксации заказа.
// ProductID заполняется для ProductUnavailable и InsufficientStock.
type CommitError struct {
	Kind      CommitErrorKind
	ProductID int64
	Err       error
}

func NewCommitError(kind CommitErrorKind, productID int64, cause error) *CommitError {
	return &CommitError{Kind: kind, ProductID: productID, Err: cause}
}

func (c *CommitError) Error() string {
	msg := string(c.Kind)
	if c.ProductID != 0 {
		msg = fmt.Sprintf("%s: product %d", msg, c.ProductID)
	}
	if c.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, c.Err)
	}
	return msg
}

// Unwrap отдаёт сентинел-ошибку вида и исходную причину.
func (c *CommitError) Unwrap() []error {
	errs := []error{c.sentinel()}
	if c.Err != nil {
		errs = append(errs, c.Err)
	}
	return errs
}

// Retryable — повтор имеет смысл только для инфраструктурных сбоев.
func (c *CommitError) Retryable() bool {
	return c.Kind == CommitErrTransactionFailed
}

func (c *CommitError) sentinel() error {
	switch c.Kind {
	case CommitErrEmptyCart:
		return e.ErrEmptyCart
	case CommitErrProductUnavailable:
		return e.ErrProductUnavailable
	case CommitErrInsufficientStock:
		return e.ErrInsufficientStock
	default:
		return e.ErrTransactionFailed
	}
}

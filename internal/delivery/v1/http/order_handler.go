package http

import (
	"context"
	"net/http"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	orders usecase.OrderUC
	logger logger.Logger
}

func NewOrderHandler(orders usecase.OrderUC, logger logger.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

func (o *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := o.orders.ListOrders(r.Context(), userIDFromCtx(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewOrdersResponse(orders))
}

func (o *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := o.ownOrder(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewOrderResponse(order))
}

func (o *OrderHandler) pay(w http.ResponseWriter, r *http.Request) {
	o.transition(w, r, o.orders.Pay)
}

func (o *OrderHandler) fulfill(w http.ResponseWriter, r *http.Request) {
	o.transition(w, r, o.orders.Fulfill)
}

func (o *OrderHandler) cancel(w http.ResponseWriter, r *http.Request) {
	o.transition(w, r, o.orders.Cancel)
}

func (o *OrderHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (*domain.Order, error)) {
	order, err := o.ownOrder(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	updated, err := fn(r.Context(), order.ID)
	if err != nil {
		o.logger.Warnf("Order transition failed. order_id: %s: %s", order.ID, err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewOrderResponse(updated))
}

// ownOrder загружает заказ текущего пользователя. Чужие заказы выглядят как несуществующие.
func (o *OrderHandler) ownOrder(r *http.Request) (*domain.Order, error) {
	order, err := o.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if order.UserID != userIDFromCtx(r.Context()) {
		return nil, e.ErrOrderNotFound
	}
	return order, nil
}

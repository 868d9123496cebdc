package http

import (
	"net/http"

	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
)

// CartHandler работает с корзиной пользователя из заголовка X-User-ID.
type CartHandler struct {
	carts  usecase.CartUC
	logger logger.Logger
}

func NewCartHandler(carts usecase.CartUC, logger logger.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

func (c *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := c.carts.GetCart(r.Context(), userIDFromCtx(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewCartResponse(cart))
}

func (c *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	cart, err := c.carts.AddItem(r.Context(), userIDFromCtx(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewCartResponse(cart))
}

func (c *CartHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := int64Param(r, "productID")
	if err != nil {
		WriteError(w, err)
		return
	}

	var req SetQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	cart, err := c.carts.SetQuantity(r.Context(), userIDFromCtx(r.Context()), productID, req.Quantity)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewCartResponse(cart))
}

func (c *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	productID, err := int64Param(r, "productID")
	if err != nil {
		WriteError(w, err)
		return
	}

	cart, err := c.carts.RemoveItem(r.Context(), userIDFromCtx(r.Context()), productID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewCartResponse(cart))
}

func (c *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := c.carts.Clear(r.Context(), userIDFromCtx(r.Context())); err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// checkout фиксирует корзину в заказ. При ошибке тело содержит kind и productId.
func (c *CartHandler) checkout(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromCtx(r.Context())

	order, err := c.carts.Checkout(r.Context(), userID)
	if err != nil {
		c.logger.Warnf("Checkout failed. user_id: %s: %s", userID, err.Error())
		WriteError(w, err)
		return
	}

	c.logger.Infof("Order committed. order_id: %s, user_id: %s, total: %s", order.ID, userID, order.Total.StringFixed(2))
	WriteSuccess(w, http.StatusCreated, NewOrderResponse(order))
}

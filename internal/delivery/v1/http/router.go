package http

import (
	"net/http"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 30 * time.Second

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(catalog usecase.CatalogUC, carts usecase.CartUC, orders usecase.OrderUC) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.RealIP)
	r.router.Use(RequestLogger(r.logger))
	r.router.Use(middleware.Recoverer)
	r.router.Use(middleware.Timeout(requestTimeout))

	r.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.router.Route("/api/v1", func(v1 chi.Router) {
		registerProductRoutes(v1, NewProductHandler(catalog, r.logger))

		v1.Group(func(user chi.Router) {
			user.Use(RequireUser)
			registerCartRoutes(user, NewCartHandler(carts, r.logger))
			registerOrderRoutes(user, NewOrderHandler(orders, r.logger))
		})
	})
}

func registerProductRoutes(router chi.Router, h *ProductHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Get("/", h.getProducts)
		pr.Post("/", h.createProduct)
		pr.Get("/{id}", h.getProduct)
		pr.Post("/{id}/restock", h.restock)
		pr.Patch("/{id}/price", h.updatePrice)
		pr.Delete("/{id}", h.archiveProduct)
	})
}

func registerCartRoutes(router chi.Router, h *CartHandler) {
	router.Route("/cart", func(cr chi.Router) {
		cr.Get("/", h.getCart)
		cr.Delete("/", h.clear)
		cr.Post("/items", h.addItem)
		cr.Put("/items/{productID}", h.setQuantity)
		cr.Delete("/items/{productID}", h.removeItem)
		cr.Post("/checkout", h.checkout)
	})
}

func registerOrderRoutes(router chi.Router, h *OrderHandler) {
	router.Route("/orders", func(or chi.Router) {
		or.Get("/", h.listOrders)
		or.Get("/{id}", h.getOrder)
		or.Post("/{id}/pay", h.pay)
		or.Post("/{id}/fulfill", h.fulfill)
		or.Post("/{id}/cancel", h.cancel)
	})
}

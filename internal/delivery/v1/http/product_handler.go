package http

import (
	"net/http"

	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
)

type ProductHandler struct {
	catalog usecase.CatalogUC
	logger  logger.Logger
}

func NewProductHandler(catalog usecase.CatalogUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: logger}
}

// createProduct
//
//	POST /products {"name": "Milk", "price": "0.99", "stock": 10}
func (p *ProductHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		p.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		WriteError(w, err)
		return
	}

	product, err := p.catalog.CreateProduct(r.Context(), usecase.NewCreateProductReq(req.Name, price, req.Stock))
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, NewProductResponse(product))
}

// getProducts
//
//	GET /products?ids=1,2,3
func (p *ProductHandler) getProducts(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := p.catalog.GetProductsInfo(r.Context(), usecase.NewGetProductsReq(ids))
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductsResponse(res))
}

func (p *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	product, err := p.catalog.GetProduct(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductResponse(product))
}

func (p *ProductHandler) restock(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	var req RestockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	product, err := p.catalog.Restock(r.Context(), id, req.Quantity)
	if err != nil {
		p.logger.Warnf("Restock failed. product_id: %d: %s", id, err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductResponse(product))
}

func (p *ProductHandler) updatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	var req UpdatePriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		WriteError(w, err)
		return
	}

	product, err := p.catalog.UpdatePrice(r.Context(), id, price)
	if err != nil {
		p.logger.Warnf("Price update failed. product_id: %d: %s", id, err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductResponse(product))
}

func (p *ProductHandler) archiveProduct(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := p.catalog.ArchiveProduct(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

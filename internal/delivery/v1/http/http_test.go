package http

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/internal/repository/memory"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := logger.NewDiscardLogger()
	products := memory.NewProductRepo()
	cache := memory.NewCacheRepo()

	catalog := usecase.NewProductUC(products, cache, log)
	orders := usecase.NewOrderUC(products, memory.NewOrderRepo(), memory.NewOutboxRepo(), cache, memory.NewTransactor(), nil, &cfg.CheckoutCfg{
		CommitTimeout: 2 * time.Second,
		MaxRetries:    3,
		RetryBase:     time.Millisecond,
		RetryMax:      5 * time.Millisecond,
	}, log)
	carts := usecase.NewCartUC(memory.NewCartRepo(), products, orders, log)

	mux := chi.NewRouter()
	NewRouter(mux, log).Init(catalog, carts, orders)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, userID string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createProduct(t *testing.T, srv *httptest.Server, name, price string, stock int64) ProductResponse {
	t.Helper()

	var p ProductResponse
	code := do(t, srv, http.MethodPost, "/api/v1/products", "", CreateProductRequest{Name: name, Price: price, Stock: stock}, &p)
	require.Equal(t, http.StatusCreated, code)
	return p
}

func TestProducts(t *testing.T) {
	srv := newTestServer(t)

	p := createProduct(t, srv, "Milk", "19.9", 3)
	assert.Equal(t, "19.90", p.Price)
	assert.True(t, p.Available)

	var errResp ErrorResponse
	code := do(t, srv, http.MethodPost, "/api/v1/products", "", map[string]any{"name": "", "price": "1"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)

	code = do(t, srv, http.MethodPost, "/api/v1/products", "", CreateProductRequest{Name: "A", Price: "1.005"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)

	code = do(t, srv, http.MethodPost, "/api/v1/products", "", CreateProductRequest{Name: "A", Price: "-1"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)

	var restocked ProductResponse
	code = do(t, srv, http.MethodPost, "/api/v1/products/1/restock", "", RestockRequest{Quantity: 2}, &restocked)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(5), restocked.Stock)

	var repriced ProductResponse
	code = do(t, srv, http.MethodPatch, "/api/v1/products/1/price", "", UpdatePriceRequest{Price: "0.5"}, &repriced)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0.50", repriced.Price)

	var list ProductsResponse
	code = do(t, srv, http.MethodGet, "/api/v1/products?ids=1,42", "", nil, &list)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, list.Products, 1)
	assert.Equal(t, []int64{42}, list.NotFound)

	code = do(t, srv, http.MethodGet, "/api/v1/products/42", "", nil, &errResp)
	assert.Equal(t, http.StatusNotFound, code)

	code = do(t, srv, http.MethodGet, "/api/v1/products/abc", "", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)

	code = do(t, srv, http.MethodDelete, "/api/v1/products/1", "", nil, nil)
	assert.Equal(t, http.StatusNoContent, code)

	var archived ProductResponse
	do(t, srv, http.MethodGet, "/api/v1/products/1", "", nil, &archived)
	assert.False(t, archived.Available)
}

func TestCartRequiresUser(t *testing.T) {
	srv := newTestServer(t)

	var errResp ErrorResponse
	code := do(t, srv, http.MethodGet, "/api/v1/cart", "", nil, &errResp)
	assert.Equal(t, http.StatusUnauthorized, code)

	code = do(t, srv, http.MethodGet, "/api/v1/orders", "", nil, &errResp)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCartQuantityBounds(t *testing.T) {
	srv := newTestServer(t)

	a := createProduct(t, srv, "A", "1.00", 5)
	path := "/api/v1/cart/items/" + strconv.FormatInt(a.ID, 10)

	// Отрицательное количество при добавлении означает одну единицу
	var cart CartResponse
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/v1/cart/items", "u1", AddCartItemRequest{ProductID: a.ID, Quantity: -1}, &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(1), cart.Items[0].Quantity)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/v1/cart/items", "u1", AddCartItemRequest{ProductID: a.ID, Quantity: 2_000_000}, &errResp))
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/v1/cart/items", "u1", AddCartItemRequest{ProductID: a.ID, Quantity: math.MaxInt64}, &errResp))
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPut, path, "u1", SetQuantityRequest{Quantity: 2_000_000}, &errResp))

	// Отрицательное количество при изменении удаляет позицию
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, path, "u1", SetQuantityRequest{Quantity: -1}, &cart))
	assert.Empty(t, cart.Items)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/v1/products/"+strconv.FormatInt(a.ID, 10)+"/restock", "", RestockRequest{Quantity: math.MaxInt64}, &errResp))
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/v1/products", "", CreateProductRequest{Name: "B", Price: "1", Stock: math.MaxInt64}, &errResp))
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/v1/products", "", CreateProductRequest{Name: "B", Price: "10000000.01"}, &errResp))

	var p ProductResponse
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/v1/products/"+strconv.FormatInt(a.ID, 10), "", nil, &p))
	assert.Equal(t, int64(5), p.Stock)
}

func TestCheckoutFlow(t *testing.T) {
	srv := newTestServer(t)

	a := createProduct(t, srv, "A", "10.00", 5)
	b := createProduct(t, srv, "B", "5.00", 1)

	var cart CartResponse
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/v1/cart/items", "u1", AddCartItemRequest{ProductID: a.ID, Quantity: 2}, &cart))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/v1/cart/items", "u1", AddCartItemRequest{ProductID: b.ID, Quantity: 1}, &cart))
	assert.Equal(t, "25.00", cart.Total)
	assert.Len(t, cart.Items, 2)

	var order OrderResponse
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/v1/cart/checkout", "u1", nil, &order))
	assert.Equal(t, "25.00", order.Total)
	assert.Equal(t, "pending", order.Status)

	do(t, srv, http.MethodGet, "/api/v1/cart", "u1", nil, &cart)
	assert.Empty(t, cart.Items)

	var got OrderResponse
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/v1/orders/"+order.ID, "u1", nil, &got))
	assert.Equal(t, order.ID, got.ID)

	// Чужой заказ не виден
	var errResp ErrorResponse
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/v1/orders/"+order.ID, "u2", nil, &errResp))

	var orders []OrderResponse
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/v1/orders", "u1", nil, &orders))
	assert.Len(t, orders, 1)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/v1/orders/"+order.ID+"/pay", "u1", nil, &got))
	assert.Equal(t, "paid", got.Status)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/v1/orders/"+order.ID+"/fulfill", "u1", nil, &got))
	assert.Equal(t, "fulfilled", got.Status)

	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/api/v1/orders/"+order.ID+"/cancel", "u1", nil, &errResp))
}

func TestCheckoutErrors(t *testing.T) {
	srv := newTestServer(t)

	var errResp ErrorResponse
	code := do(t, srv, http.MethodPost, "/api/v1/cart/checkout", "u1", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "EmptyCart", errResp.Kind)

	p := createProduct(t, srv, "A", "1.00", 1)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/v1/cart/items", "u1", AddCartItemRequest{ProductID: p.ID, Quantity: 2}, nil))

	errResp = ErrorResponse{}
	code = do(t, srv, http.MethodPost, "/api/v1/cart/checkout", "u1", nil, &errResp)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "InsufficientStock", errResp.Kind)
	assert.Equal(t, p.ID, errResp.ProductID)

	var cart CartResponse
	do(t, srv, http.MethodGet, "/api/v1/cart", "u1", nil, &cart)
	assert.Len(t, cart.Items, 1)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPut, "/api/v1/cart/items/999", "u1", SetQuantityRequest{Quantity: 1}, &errResp))
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/v1/cart/items", "u1", map[string]any{"productId": 0}, &errResp))
}

func TestConcurrentCheckoutLastUnit(t *testing.T) {
	srv := newTestServer(t)
	p := createProduct(t, srv, "Last", "3.00", 1)

	const buyers = 8
	var (
		mu    sync.Mutex
		codes = map[int]int{}
		g     errgroup.Group
	)
	for i := 0; i < buyers; i++ {
		user := "buyer-" + string(rune('a'+i))
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/v1/cart/items", user, AddCartItemRequest{ProductID: p.ID, Quantity: 1}, nil))

		g.Go(func() error {
			code := do(t, srv, http.MethodPost, "/api/v1/cart/checkout", user, nil, nil)
			mu.Lock()
			codes[code]++
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, codes[http.StatusCreated])
	assert.Equal(t, buyers-1, codes[http.StatusConflict])

	var got ProductResponse
	do(t, srv, http.MethodGet, "/api/v1/products/1", "", nil, &got)
	assert.Equal(t, int64(0), got.Stock)
}

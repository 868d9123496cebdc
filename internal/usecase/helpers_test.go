package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/repository/memory"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type env struct {
	products *memory.ProductRepo
	orders   *memory.OrderRepo
	outbox   *memory.OutboxRepo
	carts    *memory.CartRepo
	cache    *memory.CacheRepo

	catalog *usecase.ProductUseCase
	orderUC *usecase.OrderUseCase
	cartUC  *usecase.CartUseCase
}

func testCheckoutCfg() *cfg.CheckoutCfg {
	return &cfg.CheckoutCfg{
		CommitTimeout: 2 * time.Second,
		MaxRetries:    3,
		RetryBase:     time.Millisecond,
		RetryMax:      5 * time.Millisecond,
	}
}

type envOption func(*envDeps)

type envDeps struct {
	productRepo usecase.ProductRepository
	transactor  usecase.Transactor
}

func withTransactor(tx usecase.Transactor) envOption {
	return func(d *envDeps) { d.transactor = tx }
}

func withProductRepo(repo usecase.ProductRepository) envOption {
	return func(d *envDeps) { d.productRepo = repo }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()

	log := logger.NewDiscardLogger()
	en := &env{
		products: memory.NewProductRepo(),
		orders:   memory.NewOrderRepo(),
		outbox:   memory.NewOutboxRepo(),
		carts:    memory.NewCartRepo(),
		cache:    memory.NewCacheRepo(),
	}

	deps := &envDeps{productRepo: en.products, transactor: memory.NewTransactor()}
	for _, opt := range opts {
		opt(deps)
	}

	en.catalog = usecase.NewProductUC(en.products, en.cache, log)
	en.orderUC = usecase.NewOrderUC(deps.productRepo, en.orders, en.outbox, en.cache, deps.transactor, nil, testCheckoutCfg(), log)
	en.cartUC = usecase.NewCartUC(en.carts, en.products, en.orderUC, log)

	return en
}

func (en *env) addProduct(t *testing.T, name string, price string, stock int64) *domain.Product {
	t.Helper()

	p, err := en.catalog.CreateProduct(context.Background(), usecase.NewCreateProductReq(name, decimal.RequireFromString(price), stock))
	require.NoError(t, err)
	return p
}

func (en *env) stock(t *testing.T, id int64) int64 {
	t.Helper()

	p, err := en.products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func requireCommitError(t *testing.T, err error, kind domain.CommitErrorKind, productID int64) {
	t.Helper()

	var commitErr *domain.CommitError
	require.ErrorAs(t, err, &commitErr)
	require.Equal(t, kind, commitErr.Kind)
	require.Equal(t, productID, commitErr.ProductID)
}

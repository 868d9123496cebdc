package minio

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReceiptRepo struct {
	mu       sync.Mutex
	failures int
	uploads  map[string][]byte
	calls    int
}

func (f *fakeReceiptRepo) Upload(_ context.Context, receipt *usecase.Receipt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("connection refused")
	}
	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
	}
	f.uploads[receipt.Key] = receipt.Data
	return receipt.Key, nil
}

func (f *fakeReceiptRepo) Delete(context.Context, string) error { return nil }

func testOrder() *domain.Order {
	return domain.NewOrder("o1", "u1", []domain.OrderItem{
		{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
	}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
}

func TestNewReceipt(t *testing.T) {
	receipt, err := NewReceipt(testOrder())
	require.NoError(t, err)
	assert.Equal(t, "receipts/u1/o1.json", receipt.Key)
	assert.Equal(t, "application/json", receipt.ContentType)

	var doc ReceiptDocument
	require.NoError(t, json.Unmarshal(receipt.Data, &doc))
	assert.Equal(t, "20.00", doc.Total)
	assert.Equal(t, "pending", doc.Status)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "10.00", doc.Items[0].UnitPrice)
}

func TestReceiptArchive_Uploads(t *testing.T) {
	repo := &fakeReceiptRepo{}
	archive := NewReceiptArchive(repo, 2, logger.NewDiscardLogger(), context.Background())

	archive.ArchiveReceipt(testOrder())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, archive.Wait(ctx))

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Contains(t, repo.uploads, "receipts/u1/o1.json")
}

func TestReceiptArchive_StopsOnShutdown(t *testing.T) {
	repo := &fakeReceiptRepo{failures: 100}
	shutdownCtx, shutdown := context.WithCancel(context.Background())
	archive := NewReceiptArchive(repo, 1, logger.NewDiscardLogger(), shutdownCtx)

	archive.ArchiveReceipt(testOrder())
	time.Sleep(20 * time.Millisecond)
	shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, archive.Wait(ctx))

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Empty(t, repo.uploads)
}

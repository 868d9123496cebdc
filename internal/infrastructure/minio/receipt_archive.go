package minio

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/jitter"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
)

const (
	uploadAttempts = 3
	uploadTimeout  = 30 * time.Second
)

// ReceiptDocument — содержимое квитанции в архиве.
type ReceiptDocument struct {
	OrderID   string                     `json:"order_id"`
	UserID    string                     `json:"user_id"`
	Status    string                     `json:"status"`
	Total     string                     `json:"total"`
	Items     []usecase.OrderItemPayload `json:"items"`
	CreatedAt time.Time                  `json:"created_at"`
}

// ReceiptArchive в фоне складывает квитанции зафиксированных заказов в MinIO.
// Число одновременных загрузок ограничено, сбой загрузки заказ не отменяет.
type ReceiptArchive struct {
	repo        usecase.ReceiptRepository
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup
	sem         chan struct{}
}

func NewReceiptArchive(repo usecase.ReceiptRepository, uploadLimit int, logger logger.Logger, shutdownCtx context.Context) *ReceiptArchive {
	if uploadLimit <= 0 {
		uploadLimit = 1
	}

	return &ReceiptArchive{
		repo:        repo,
		logger:      logger,
		shutdownCtx: shutdownCtx,
		sem:         make(chan struct{}, uploadLimit),
	}
}

// ArchiveReceipt запускает фоновую загрузку квитанции.
func (a *ReceiptArchive) ArchiveReceipt(order *domain.Order) {
	receipt, err := NewReceipt(order)
	if err != nil {
		a.logger.Warnf("Failed to build receipt. order_id: %s: %v", order.ID, err)
		return
	}

	a.wg.Add(1)
	go a.upload(receipt)
}

func (a *ReceiptArchive) upload(receipt *usecase.Receipt) {
	defer a.wg.Done()
	const op = "ReceiptArchive.upload"

	select {
	case a.sem <- struct{}{}:
		defer func() { <-a.sem }()
	case <-a.shutdownCtx.Done():
		a.logger.Warnf("%s: receipt upload skipped by shutdown, key=%s", op, receipt.Key)
		return
	}

	ctx, cancel := context.WithTimeout(a.shutdownCtx, uploadTimeout)
	defer cancel()

	for attempt := 0; attempt < uploadAttempts; attempt++ {
		_, err := a.repo.Upload(ctx, receipt)
		if err == nil {
			a.logger.Debugf("%s: receipt archived, key=%s", op, receipt.Key)
			return
		}
		a.logger.Warnf("%s: upload attempt %d failed, key=%s: %v", op, attempt+1, receipt.Key, err)

		if attempt < uploadAttempts-1 {
			if err := jitter.Sleep(ctx, jitter.ExponentialBackoff(time.Second, 10*time.Second, attempt, 0.5)); err != nil {
				a.logger.Warnf("%s: upload interrupted by shutdown, key=%s", op, receipt.Key)
				return
			}
		}
	}
}

// Wait ожидает завершения фоновых загрузок с учётом таймаута завершения приложения.
func (a *ReceiptArchive) Wait(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("receipt archive timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}

// NewReceipt собирает JSON-квитанцию. Ключ объекта: receipts/{user_id}/{order_id}.json.
func NewReceipt(order *domain.Order) (*usecase.Receipt, error) {
	items := make([]usecase.OrderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, usecase.OrderItemPayload{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}

	data, err := json.Marshal(ReceiptDocument{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    string(order.Status),
		Total:     order.Total.StringFixed(2),
		Items:     items,
		CreatedAt: order.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	return &usecase.Receipt{
		Key:         fmt.Sprintf("receipts/%s/%s.json", order.UserID, order.ID),
		Data:        data,
		ContentType: "application/json",
	}, nil
}

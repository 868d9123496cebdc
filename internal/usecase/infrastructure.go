package usecase

import (
	"context"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
)

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

// ReceiptArchive асинхронно сохраняет квитанции зафиксированных заказов.
type ReceiptArchive interface {
	ArchiveReceipt(order *domain.Order)
}

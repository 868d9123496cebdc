package usecase

import (
	"encoding/json"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/google/uuid"
)

// EventEnvelope — формат сообщений в Kafka.
type EventEnvelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	OrderID    string          `json:"order_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type OrderItemPayload struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderID string             `json:"order_id"`
	UserID  string             `json:"user_id"`
	Status  string             `json:"status"`
	Total   string             `json:"total"`
	Items   []OrderItemPayload `json:"items"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// Внешние события (платёжный шлюз, служба доставки).
const (
	ExternalPaymentSucceeded = "PaymentSucceeded"
	ExternalPaymentRefunded  = "PaymentRefunded"
	ExternalOrderFulfilled   = "OrderFulfilled"
	ExternalOrderCancelled   = "OrderCancelled"
)

// StatusForExternalEvent сопоставляет внешнее событие целевому статусу заказа.
func StatusForExternalEvent(eventType string) (domain.OrderStatus, bool) {
	switch eventType {
	case ExternalPaymentSucceeded:
		return domain.OrderStatusPaid, true
	case ExternalOrderFulfilled:
		return domain.OrderStatusFulfilled, true
	case ExternalPaymentRefunded, ExternalOrderCancelled:
		return domain.OrderStatusCancelled, true
	default:
		return "", false
	}
}

func NewOrderCreatedEvent(order *domain.Order, now time.Time) (*OutboxEvent, error) {
	items := make([]OrderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemPayload{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}

	return newOutboxEvent(OrderCreated, order.ID, now, OrderCreatedPayload{
		OrderID: order.ID,
		UserID:  order.UserID,
		Status:  string(order.Status),
		Total:   order.Total.StringFixed(2),
		Items:   items,
	})
}

func NewOrderStatusChangedEvent(orderID string, from, to domain.OrderStatus, now time.Time) (*OutboxEvent, error) {
	return newOutboxEvent(OrderStatusChanged, orderID, now, OrderStatusChangedPayload{
		OrderID: orderID,
		From:    string(from),
		To:      string(to),
	})
}

func newOutboxEvent(eventType OutboxEventType, orderID string, now time.Time, payload any) (*OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	eventID := uuid.NewString()
	envelope, err := json.Marshal(EventEnvelope{
		EventID:    eventID,
		EventType:  string(eventType),
		OccurredAt: now,
		OrderID:    orderID,
		Payload:    body,
	})
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		EventID:   eventID,
		EventType: eventType,
		OrderID:   orderID,
		Payload:   envelope,
		Status:    Pending,
		CreatedAt: now,
	}, nil
}

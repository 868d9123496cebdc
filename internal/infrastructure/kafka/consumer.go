package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/jitter"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/segmentio/kafka-go"
)

const (
	handleAttempts  = 5
	handleRetryBase = 100 * time.Millisecond
	handleRetryMax  = 3 * time.Second
)

// MessageReader — часть kafka.Reader, которой пользуется консьюмер.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type StatusChanger interface {
	ChangeStatus(ctx context.Context, id string, to domain.OrderStatus) (*domain.Order, error)
}

// StatusConsumer применяет внешние события оплаты и доставки к заказам.
// Offset фиксируется только после обработки, поэтому доставка at-least-once;
// повтор безопасен, т.к. переход в текущий статус ничего не меняет.
type StatusConsumer struct {
	reader MessageReader
	orders StatusChanger
	logger logger.Logger
}

func NewStatusConsumer(cfg *cfg.KafkaCfg, orders StatusChanger, logger logger.Logger) *StatusConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.ConsumerGroup,
		Topic:          cfg.ExternalTopic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})

	return NewStatusConsumerWithReader(reader, orders, logger)
}

func NewStatusConsumerWithReader(reader MessageReader, orders StatusChanger, logger logger.Logger) *StatusConsumer {
	return &StatusConsumer{
		reader: reader,
		orders: orders,
		logger: logger,
	}
}

// Run читает сообщения до отмены ctx.
func (c *StatusConsumer) Run(ctx context.Context) error {
	c.logger.Infof("Status consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Infof("Status consumer stopped")
				return nil
			}
			c.logger.Warnf("Failed to fetch message: %v", err)
			if err := jitter.Sleep(ctx, jitter.Duration(time.Second, jitter.DefaultJitter)); err != nil {
				return nil
			}
			continue
		}

		if err := c.handleWithRetry(ctx, msg); err != nil {
			// При остановке offset не фиксируем: после перезапуска группа прочитает сообщение снова
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Errorf(err, "External event dropped after retries. offset: %d", msg.Offset)
		}

		if err := c.reader.CommitMessages(context.WithoutCancel(ctx), msg); err != nil {
			c.logger.Warnf("Failed to commit offset. offset: %d: %v", msg.Offset, err)
		}
	}
}

func (c *StatusConsumer) Close() error {
	return c.reader.Close()
}

func (c *StatusConsumer) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	var err error
	for attempt := 0; attempt < handleAttempts; attempt++ {
		if err = c.Handle(ctx, msg.Value); err == nil || !isTransient(err) {
			return nil
		}

		c.logger.Warnf("Failed to handle external event. attempt: %d: %v", attempt+1, err)
		if sleepErr := jitter.Sleep(ctx, jitter.ExponentialBackoff(handleRetryBase, handleRetryMax, attempt, jitter.DefaultJitter)); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

// Handle разбирает конверт и переводит заказ в статус, соответствующий событию.
// Неизвестные и неприменимые события пропускаются без ошибки.
func (c *StatusConsumer) Handle(ctx context.Context, value []byte) error {
	var envelope usecase.EventEnvelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		c.logger.Warnf("Malformed external event skipped: %v", err)
		return nil
	}

	to, ok := usecase.StatusForExternalEvent(envelope.EventType)
	if !ok {
		c.logger.Debugf("External event ignored. event_type: %s", envelope.EventType)
		return nil
	}

	if _, err := c.orders.ChangeStatus(ctx, envelope.OrderID, to); err != nil {
		if !isTransient(err) {
			c.logger.Warnf("External event skipped. event_type: %s, order_id: %s: %v", envelope.EventType, envelope.OrderID, err)
			return nil
		}
		return e.Wrap("change status", err)
	}

	c.logger.Infof("Order status changed by external event. order_id: %s, status: %s, event_type: %s", envelope.OrderID, to, envelope.EventType)
	return nil
}

func isTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, e.ErrInvalidStatusTransition),
		errors.Is(err, e.ErrOrderNotFound),
		errors.Is(err, e.ErrInvalidID):
		return false
	default:
		return true
	}
}

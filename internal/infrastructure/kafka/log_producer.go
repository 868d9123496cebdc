package kafka

import (
	"context"

	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
)

// LogProducer пишет события в лог вместо брокера. Используется при STORAGE_DRIVER=memory.
type LogProducer struct {
	logger logger.Logger
}

func NewLogProducer(logger logger.Logger) *LogProducer {
	return &LogProducer{logger: logger}
}

func (p *LogProducer) WriteRawMessage(_ context.Context, req *usecase.WriteRawMessageReq) error {
	p.logger.Infof("Event published to log. key: %s, payload: %s", req.Key, req.Payload)
	return nil
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"order-service/internal/config"
	"order-service/internal/domain"
	"order-service/internal/pkg/breaker"
	"order-service/internal/pkg/retry"
)

//go:generate mockgen -source internal/application/handler/handler.go -destination=internal/application/handler/handler_mock_test.go -package=handler

var (
	ErrBadJSON     = errors.New("bad json")
	ErrCreate      = errors.New("create failed")
	ErrCircuitOpen = errors.New("circuit breaker open")
)

type Service interface {
	Create(ctx context.Context, req *domain.CreateOrder) (*domain.Order, error)
}

type Handler struct {
	service     Service
	breaker     *breaker.Breaker
	logger      *zap.Logger
	retryPolicy config.Retry
}

func NewHandler(service Service, brk *breaker.Breaker, retryPolicy config.Retry, logger *zap.Logger) *Handler {
	return &Handler{
		service:     service,
		breaker:     brk,
		logger:      logger,
		retryPolicy: retryPolicy,
	}
}

// Handle processes a single message. The consumer commits the offset
// itself after Handle returns nil.
func (h *Handler) Handle(ctx context.Context, message kafkago.Message) error {
	if err := h.breaker.Allow(); err != nil {
		h.logger.Warn("circuit breaker is open",
			zap.Error(err),
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}

	var req domain.CreateOrder
	if err := json.Unmarshal(message.Value, &req); err != nil {
		h.logger.Error("bad json format",
			zap.Error(err),
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		h.breaker.Failure()
		return ErrBadJSON
	}
	if req.TrackNumber == "" {
		h.logger.Error("missing track_number",
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		h.breaker.Failure()
		return ErrBadJSON
	}

	var order *domain.Order
	if err := retry.Do(ctx, h.retryPolicy, func() error {
		var err error
		order, err = h.service.Create(ctx, &req)
		return err
	}); err != nil {
		h.logger.Error("create failed after retries",
			zap.String("track_number", req.TrackNumber),
			zap.Error(err),
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		h.breaker.Failure()
		return ErrCreate
	}

	h.breaker.Success()
	h.logger.Info("successfully created order",
		zap.String("order_uid", order.OrderUID),
		zap.Int("partition", message.Partition),
		zap.Int64("offset", message.Offset),
		zap.Int("value_bytes", len(message.Value)),
	)
	return nil
}

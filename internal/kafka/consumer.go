package kafka

import (
	"context"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"order-service/internal/observability"
	"order-service/internal/pkg/pool"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg kafkago.Message) error
}

type Reader interface {
	Config() kafkago.ReaderConfig
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer pulls create-order messages off a topic and hands them to a
// MessageHandler through a worker pool. The fetch loop waits for each
// message's outcome before fetching the next one, so offsets are committed
// in fetch order and only after a successful handle: a commit never covers
// an earlier message that failed or is still in flight.
type Consumer struct {
	handler MessageHandler
	reader  Reader
	logger  *zap.Logger
	metrics observability.Metrics

	workers *pool.Pool
}

func NewReader(brokers []string, topic, group string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     group,
		StartOffset: kafkago.LastOffset,
		MaxWait:     500 * time.Millisecond,
	})
}

func NewConsumer(handler MessageHandler, reader Reader, workers int, logger *zap.Logger, metrics observability.Metrics) *Consumer {
	if workers < 1 {
		workers = 1
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	return &Consumer{
		handler: handler,
		reader:  reader,
		logger:  logger,
		metrics: metrics,
		workers: pool.New(workers),
	}
}

// Run fetches until ctx is cancelled. Fetch errors other than a context end
// are transient (rebalance, coordinator moves) and retried after a short
// backoff. A failed message is logged and left uncommitted.
func (c *Consumer) Run(ctx context.Context) error {
	rc := c.reader.Config()
	c.logger.Info("Starting Kafka consumer",
		zap.Strings("brokers", rc.Brokers),
		zap.String("group", rc.GroupID),
		zap.String("topic", rc.Topic),
	)

	defer func() {
		c.workers.Close()
		c.workers.Wait()
		_ = c.reader.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			c.logger.Warn("Kafka fetch error, backing off", zap.Error(err))
			sleepWithContext(ctx, 500*time.Millisecond)
			continue
		}

		m := msg
		done := make(chan error, 1)
		c.workers.Submit(func() {
			t0 := time.Now()
			err := c.handler.Handle(ctx, m)
			c.metrics.ObserveKafka(float64(time.Since(t0))/float64(time.Millisecond), err == nil)
			done <- err
		})

		var procErr error
		select {
		case procErr = <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		if procErr != nil {
			c.logger.Error("Kafka handler error, offset not committed",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(procErr),
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("Kafka commit error",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

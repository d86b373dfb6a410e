package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"order-service/internal/config"
	"order-service/internal/domain"
)

func main() {
	count := flag.Int("count", 1, "number of orders to produce")
	delay := flag.Duration("delay", time.Second, "delay between messages")
	flag.Parse()

	cfg := config.Load()
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
		log.Fatal("KAFKA_BROKERS and KAFKA_TOPIC must be set")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
	defer writer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sent := 0
	for i := 0; i < *count; i++ {
		payload, err := json.Marshal(sampleOrder())
		if err != nil {
			log.Printf("marshal order: %v", err)
			continue
		}

		if err := writer.WriteMessages(ctx, kafka.Message{
			Value: payload,
			Time:  time.Now(),
		}); err != nil {
			log.Printf("write message: %v", err)
		} else {
			sent++
		}

		select {
		case <-time.After(*delay):
		case <-ctx.Done():
			log.Printf("stopped early, sent %d orders", sent)
			return
		}
	}
	log.Printf("done, sent %d orders", sent)
}

func sampleOrder() domain.CreateOrder {
	return domain.CreateOrder{
		TrackNumber:       "TN123456789",
		Entry:             "warehouse",
		Locale:            "en_US",
		InternalSignature: "sig12345",
		CustomerID:        uuid.NewString(),
		DeliveryService:   "DHL",
		ShardKey:          "sk123",
		SmID:              1,
		OofShard:          "shard1",
		Delivery: domain.Delivery{
			Name:    "John Doe",
			Phone:   "555-1234",
			Zip:     "12345",
			City:    "Sample City",
			Address: "1234 Sample Street",
			Region:  "Sample Region",
			Email:   "john.doe@example.com",
		},
		Payment: domain.Payment{
			Transaction:  "tx12345",
			RequestID:    "rq12345",
			Currency:     "USD",
			Provider:     "Visa",
			Amount:       100,
			PaymentDT:    1637924400,
			Bank:         "Sample Bank",
			DeliveryCost: 5,
			GoodsTotal:   95,
			CustomFee:    0,
		},
		Items: []domain.Item{{
			ChrtID:      123456789,
			TrackNumber: "TN123456789",
			Price:       100,
			RID:         "RID12345",
			Name:        "Sample Item",
			Sale:        10,
			Size:        "M",
			TotalPrice:  90,
			NmID:        987654321,
			Brand:       "Sample Brand",
			Status:      1,
		}},
	}
}

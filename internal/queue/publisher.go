// Package queue publishes storefront events to RabbitMQ. Publishing is best
// effort: failures are returned and logged, the purchase itself already went
// through.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"travel-storefront/internal/config"
	"travel-storefront/internal/model"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PurchaseCompletedEvent struct {
	EventID         string                `json:"event_id"`
	OccurredAt      time.Time             `json:"occurred_at"`
	PaymentMethodID int64                 `json:"metodo_pago"`
	Items           []model.PurchasedItem `json:"items"`
	Total           decimal.Decimal       `json:"total"`
}

func NewPurchaseCompletedEvent(entry model.PurchaseHistoryEntry) PurchaseCompletedEvent {
	total := decimal.Zero
	for _, item := range entry.Items {
		if item.Quantity > 0 {
			total = total.Add(item.Price.Decimal().Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	return PurchaseCompletedEvent{
		EventID:         uuid.NewString(),
		OccurredAt:      entry.Date,
		PaymentMethodID: entry.PaymentMethodID,
		Items:           entry.Items,
		Total:           total,
	}
}

type Publisher interface {
	PublishPurchaseCompleted(ctx context.Context, event PurchaseCompletedEvent) error
}

// NewPublisher returns a RabbitMQ publisher, or a no-op one when no broker
// is configured.
func NewPublisher(cfg config.RabbitMQ, log *zap.Logger) Publisher {
	if cfg.URL == "" {
		return noopPublisher{}
	}
	return &amqpPublisher{
		url:   cfg.URL,
		queue: cfg.Queue,
		log:   log,
	}
}

type noopPublisher struct{}

func (noopPublisher) PublishPurchaseCompleted(context.Context, PurchaseCompletedEvent) error {
	return nil
}

type amqpPublisher struct {
	url   string
	queue string
	log   *zap.Logger
}

func (p *amqpPublisher) PublishPurchaseCompleted(ctx context.Context, event PurchaseCompletedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq: dial failed", zap.Error(err))
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		p.log.Warn("rabbitmq: queue declare failed", zap.String("queue", p.queue), zap.Error(err))
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn("rabbitmq: publish failed", zap.String("queue", p.queue), zap.Error(err))
		return fmt.Errorf("rabbitmq publish: %w", err)
	}

	return nil
}

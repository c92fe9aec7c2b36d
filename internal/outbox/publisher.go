package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/ticket-checkin/internal/adapters/crdb"
	"github.com/robertarktes/ticket-checkin/internal/observability"
)

type Claimer interface {
	ClaimOutbox(ctx context.Context, limit int, fn func([]crdb.OutboxRecord) []uuid.UUID) error
}

type MessagePublisher interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

const batchSize = 50

type Publisher struct {
	repo      Claimer
	rabbitPub MessagePublisher
	logger    observability.Logger
	interval  time.Duration
}

func NewPublisher(repo Claimer, rabbitPub MessagePublisher, logger observability.Logger, interval time.Duration) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger, interval: interval}
}

func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("outbox publisher started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.PublishBatch(ctx); err != nil {
				p.logger.Error("outbox batch failed: ", err)
			}
		}
	}
}

// PublishBatch publishes one batch. Records whose publish fails stay NEW and
// are retried on the next tick; consumers dedupe on MessageId.
func (p *Publisher) PublishBatch(ctx context.Context) error {
	return p.repo.ClaimOutbox(ctx, batchSize, func(records []crdb.OutboxRecord) []uuid.UUID {
		published := make([]uuid.UUID, 0, len(records))
		var oldest time.Time
		for _, rec := range records {
			msg := amqp.Publishing{
				MessageId:    rec.DedupeKey,
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    rec.CreatedAt,
				Body:         rec.Payload,
			}
			if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
				observability.RabbitPublishRetries.Inc()
				p.logger.WithField("outbox_id", rec.ID).Warn("publish failed: ", err)
				continue
			}
			published = append(published, rec.ID)
			if oldest.IsZero() || rec.CreatedAt.Before(oldest) {
				oldest = rec.CreatedAt
			}
		}
		if !oldest.IsZero() {
			observability.OutboxLag.Set(time.Since(oldest).Seconds())
		}
		return published
	})
}

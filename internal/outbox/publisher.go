package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/utsavplanner/bookings-and-payments/internal/adapters/crdb"
	"github.com/utsavplanner/bookings-and-payments/internal/adapters/rabbit"
	"github.com/utsavplanner/bookings-and-payments/internal/observability"
)

type Publisher struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
	clock     func() time.Time
}

func NewPublisher(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger, clock: time.Now}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *Publisher) drain(ctx context.Context) {
	records, err := p.repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		p.logger.WithField("error", err.Error()).Error("outbox poll failed")
		return
	}
	observability.OutboxLag.Set(float64(len(records)))

	for _, rec := range records {
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Body:        rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
			observability.RabbitPublishRetries.Inc()
			p.logger.WithField("error", err.Error()).WithField("event_type", rec.EventType).Error("outbox publish failed")
			continue
		}
		if err := p.repo.MarkPublished(ctx, rec.ID, p.clock(), rec.DedupeKey); err != nil {
			p.logger.WithField("error", err.Error()).WithField("outbox_id", rec.ID.String()).Error("outbox mark published failed")
		}
	}
}

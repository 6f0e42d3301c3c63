package publisher

import (
	"context"
	"time"

	"github.com/fjod/go_storefront/internal/repository"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type OutboxStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*repository.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller relays committed outbox events to Kafka.
type OutboxPoller struct {
	tick      time.Duration
	timeout   time.Duration
	batchSize int
	repo      OutboxStore
	writer    MessageWriter
	log       zerolog.Logger
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

func NewOutboxPoller(repo OutboxStore, writer MessageWriter, tick time.Duration, batchSize int, log zerolog.Logger) *OutboxPoller {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxPoller{
		tick:      tick,
		timeout:   5 * time.Second,
		batchSize: batchSize,
		repo:      repo,
		writer:    writer,
		log:       log.With().Str("component", "outbox").Logger(),
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublishedEvents publishes one batch in id order. A failed publish
// ends the batch so that later events for the same order are not sent first.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to fetch outbox events")
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.Error().Err(err).Int64("event_id", event.ID).Str("event_type", event.EventType).Msg("failed to publish event")
			return published
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to mark event as processed")
			return published
		}
		published++
	}
	return published
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
		Time: event.CreatedAt,
	}
	return p.writer.WriteMessages(ctx, msg)
}

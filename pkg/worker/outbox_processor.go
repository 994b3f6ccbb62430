package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/uroflux/intake-api/internal/model"
	"github.com/uroflux/intake-api/internal/repository"
	"github.com/uroflux/intake-api/pkg/messaging"
	"github.com/uroflux/intake-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	Channel      string
	BatchSize    int
	PollInterval time.Duration
	// RetainProcessed is how long published events stay in the table before
	// cleanup.
	RetainProcessed time.Duration
}

// OutboxProcessor drains pending exam lifecycle events from the outbox table
// and publishes them to the broker.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *OutboxProcessor {
	if config.Channel == "" {
		config.Channel = "exam-events"
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger.With().Str("component", "outbox-processor").Logger(),
		metrics: m,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info().Dur("poll_interval", p.config.PollInterval).Msg("outbox processor started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("outbox processor shutting down")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error().Err(err).Msg("failed to process outbox batch")
			}
			if p.config.RetainProcessed > 0 {
				p.cleanup(ctx)
			}
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	events, err := p.repo.GetPendingEvents(ctx, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	for _, evt := range events {
		msg := messaging.Message{Type: evt.EventType, Payload: evt.Payload}
		if err := p.broker.Publish(ctx, p.config.Channel, msg); err != nil {
			p.metrics.OutboxEventsFailed.Inc()
			p.logger.Error().Err(err).Str("event_id", evt.ID.String()).Msg("failed to publish event")

			errMsg := err.Error()
			if updErr := p.repo.UpdateStatus(ctx, evt.ID, model.OutboxStatusFailed, &errMsg); updErr != nil {
				p.logger.Error().Err(updErr).Str("event_id", evt.ID.String()).Msg("failed to mark event failed")
			}
			continue
		}

		if err := p.repo.UpdateStatus(ctx, evt.ID, model.OutboxStatusProcessed, nil); err != nil {
			p.logger.Error().Err(err).Str("event_id", evt.ID.String()).Msg("failed to mark event processed")
			continue
		}

		p.metrics.OutboxEventsProcessed.Inc()
		p.metrics.OutboxPublishLatency.WithLabelValues(evt.EventType).
			Observe(time.Since(evt.CreatedAt).Seconds())
	}

	if len(events) > 0 {
		p.logger.Debug().Int("count", len(events)).Msg("outbox batch drained")
	}
	return nil
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	deleted, err := p.repo.DeleteProcessedBefore(ctx, time.Now().Add(-p.config.RetainProcessed))
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to clean up processed events")
		return
	}
	if deleted > 0 {
		p.logger.Debug().Int64("deleted", deleted).Msg("cleaned up processed events")
	}
}

package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/logger"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/messaging"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/metrics"
)

// publishAttempts is the number of tries per event within one poll.
const publishAttempts = 3

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// RetryAttempts is the number of polls an event may fail before it is
	// marked FAILED for good.
	RetryAttempts int
	RetryDelay    time.Duration
}

// OutboxProcessor relays pending outbox events to the broker.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.MessageBroker
	breaker *circuitbreaker.CircuitBreaker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.MessageBroker,
	breaker *circuitbreaker.CircuitBreaker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay < 0 {
		panic("RetryDelay must not be negative")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		breaker: breaker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch publishes one batch of pending events in creation order. An
// open breaker ends the batch early and leaves the rest pending.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.GetPendingEvents(ctx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

	for i, event := range events {
		err := p.processEvent(ctx, event)
		if err == nil {
			continue
		}
		if circuitbreaker.IsOpen(err) {
			p.logger.Warn("Broker circuit open, deferring remaining events",
				"remaining", len(events)-i)
			return nil
		}
		p.logger.Error(err, "Failed to process event",
			"event_id", event.ID.String(),
			"event_type", event.EventType)
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	msg := messaging.Message{
		ID:         event.ID.String(),
		Type:       event.EventType,
		Payload:    event.Payload,
		OccurredAt: event.CreatedAt,
	}

	err := retry(ctx, publishAttempts, p.config.RetryDelay, func() error {
		return p.breaker.Execute(func() error {
			return p.broker.Publish(ctx, event.Channel, msg)
		})
	})
	if circuitbreaker.IsOpen(err) {
		return err
	}

	if err != nil {
		p.metrics.BrokerPublishes.WithLabelValues(event.Channel, "error").Inc()
		p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		final := event.RetryCount+1 >= p.config.RetryAttempts
		if final {
			p.metrics.OutboxEventsFailed.Inc()
		}
		if updateErr := p.repo.MarkFailed(ctx, event.ID, err.Error(), final); updateErr != nil {
			p.logger.Error(updateErr, "Failed to update event status", "event_id", event.ID.String())
		}
		return err
	}

	p.metrics.BrokerPublishes.WithLabelValues(event.Channel, "success").Inc()
	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
		return err
	}

	return nil
}

// retry calls fn up to attempts times. It gives up early when ctx ends or the
// breaker rejects the call.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || circuitbreaker.IsOpen(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
	}
	return err
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository/mocks"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/logger"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/messaging"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/metrics"
)

type fakeBroker struct {
	mu        sync.Mutex
	published []messaging.Message
	channels  []string
	fail      error
	calls     int
}

func (b *fakeBroker) Publish(_ context.Context, channel string, msg messaging.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.fail != nil {
		return b.fail
	}
	b.published = append(b.published, msg)
	b.channels = append(b.channels, channel)
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string, messaging.Handler) error { return nil }
func (b *fakeBroker) Close() error                                               { return nil }

func newProcessor(repo *mocks.OutboxRepository, broker messaging.MessageBroker, threshold uint32) (*OutboxProcessor, *metrics.Metrics) {
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:             "broker",
		Timeout:          time.Minute,
		FailureThreshold: threshold,
	})
	p := NewOutboxProcessor(repo, broker, cb, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    0,
	}, logger.Nop(), m)
	return p, m
}

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var metric dto.Metric
	require.NoError(t, (<-ch).Write(&metric))
	return metric.GetCounter().GetValue()
}

func pendingEvent(retries int) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:         uuid.New(),
		EventType:  model.EventAppointmentCreated,
		Channel:    "appointments",
		Payload:    json.RawMessage(`{"appointmentId":"x"}`),
		Status:     model.OutboxStatusPending,
		RetryCount: retries,
		CreatedAt:  time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestProcessBatchPublishesAndMarksProcessed(t *testing.T) {
	repo := new(mocks.OutboxRepository)
	broker := &fakeBroker{}
	p, m := newProcessor(repo, broker, 5)

	event := pendingEvent(0)
	repo.On("GetPendingEvents", mock.Anything, 10).Return([]*model.OutboxEvent{event}, nil)
	repo.On("MarkProcessed", mock.Anything, event.ID).Return(nil)

	require.NoError(t, p.ProcessBatch(context.Background()))

	require.Len(t, broker.published, 1)
	assert.Equal(t, "appointments", broker.channels[0])
	assert.Equal(t, event.ID.String(), broker.published[0].ID)
	assert.Equal(t, model.EventAppointmentCreated, broker.published[0].Type)
	assert.JSONEq(t, string(event.Payload), string(broker.published[0].Payload))
	assert.Equal(t, event.CreatedAt, broker.published[0].OccurredAt)
	assert.Equal(t, float64(1), counterValue(t, m.OutboxEventsProcessed))
	repo.AssertExpectations(t)
}

func TestProcessBatchKeepsFailedEventPending(t *testing.T) {
	repo := new(mocks.OutboxRepository)
	broker := &fakeBroker{fail: errors.New("redis unavailable")}
	p, m := newProcessor(repo, broker, 50)

	event := pendingEvent(0)
	repo.On("GetPendingEvents", mock.Anything, 10).Return([]*model.OutboxEvent{event}, nil)
	repo.On("MarkFailed", mock.Anything, event.ID, "redis unavailable", false).Return(nil)

	require.NoError(t, p.ProcessBatch(context.Background()))

	assert.Equal(t, publishAttempts, broker.calls)
	assert.Equal(t, float64(0), counterValue(t, m.OutboxEventsFailed))
	repo.AssertExpectations(t)
}

func TestProcessBatchGivesUpAfterRetryAttempts(t *testing.T) {
	repo := new(mocks.OutboxRepository)
	broker := &fakeBroker{fail: errors.New("redis unavailable")}
	p, m := newProcessor(repo, broker, 50)

	event := pendingEvent(2)
	repo.On("GetPendingEvents", mock.Anything, 10).Return([]*model.OutboxEvent{event}, nil)
	repo.On("MarkFailed", mock.Anything, event.ID, "redis unavailable", true).Return(nil)

	require.NoError(t, p.ProcessBatch(context.Background()))

	assert.Equal(t, float64(1), counterValue(t, m.OutboxEventsFailed))
	repo.AssertExpectations(t)
}

func TestProcessBatchStopsWhenBreakerOpens(t *testing.T) {
	repo := new(mocks.OutboxRepository)
	broker := &fakeBroker{fail: errors.New("redis unavailable")}
	p, _ := newProcessor(repo, broker, 2)

	first, second := pendingEvent(0), pendingEvent(0)
	repo.On("GetPendingEvents", mock.Anything, 10).Return([]*model.OutboxEvent{first, second}, nil)

	require.NoError(t, p.ProcessBatch(context.Background()))

	// Two failures trip the breaker; the third attempt is rejected without
	// touching the broker and both events stay pending untouched.
	assert.Equal(t, 2, broker.calls)
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessBatchRepositoryError(t *testing.T) {
	repo := new(mocks.OutboxRepository)
	p, _ := newProcessor(repo, &fakeBroker{}, 5)
	repo.On("GetPendingEvents", mock.Anything, 10).Return(nil, errors.New("db down"))

	err := p.ProcessBatch(context.Background())
	assert.ErrorContains(t, err, "failed to get pending events")
}

func TestNewOutboxProcessorRejectsInvalidConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewOutboxProcessor(new(mocks.OutboxRepository), &fakeBroker{}, nil, OutboxProcessorConfig{}, logger.Nop(), nil)
	})
}

package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository/mocks"
)

func TestEmitWritesOutboxEvent(t *testing.T) {
	repo := new(mocks.OutboxRepository)
	svc := NewEventService(repo, "appointments")

	repo.On("Create", mock.Anything, mock.MatchedBy(func(e *model.OutboxEvent) bool {
		var payload map[string]string
		_ = json.Unmarshal(e.Payload, &payload)
		return e.EventType == model.EventAppointmentCreated &&
			e.Channel == "appointments" &&
			payload["hello"] == "world"
	})).Return(nil)

	require.NoError(t, svc.Emit(context.Background(), model.EventAppointmentCreated, map[string]string{"hello": "world"}))
	repo.AssertExpectations(t)
}

func TestEmitWrapsRepositoryError(t *testing.T) {
	repo := new(mocks.OutboxRepository)
	svc := NewEventService(repo, "appointments")
	boom := errors.New("boom")
	repo.On("Create", mock.Anything, mock.Anything).Return(boom)

	err := svc.Emit(context.Background(), "x", 1)
	assert.ErrorIs(t, err, boom)
}

func TestEmitRejectsUnmarshalablePayload(t *testing.T) {
	svc := NewEventService(new(mocks.OutboxRepository), "appointments")
	assert.Error(t, svc.Emit(context.Background(), "x", make(chan int)))
}

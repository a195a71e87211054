package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanBroker struct {
	mu        sync.Mutex
	published []interface{}
	ch        chan []byte
}

func (b *chanBroker) Publish(_ context.Context, _ string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, message)
	return nil
}

func (b *chanBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return b.ch, nil
}

func (b *chanBroker) Close() error { return nil }

func TestAdapterSubscribeDecodesAndSkipsBadMessages(t *testing.T) {
	broker := &chanBroker{ch: make(chan []byte, 3)}
	adapter := NewBrokerAdapter(broker)

	received := make(chan Message, 2)
	err := adapter.Subscribe(context.Background(), "appointments", func(_ context.Context, msg Message) error {
		received <- msg
		if msg.ID == "1" {
			return errors.New("handler failure is logged only")
		}
		return nil
	})
	require.NoError(t, err)

	first, _ := json.Marshal(Message{ID: "1", Type: "appointment.created", Payload: json.RawMessage(`{}`)})
	second, _ := json.Marshal(Message{ID: "2", Type: "appointment.canceled", Payload: json.RawMessage(`{}`)})
	broker.ch <- first
	broker.ch <- []byte("not json")
	broker.ch <- second
	close(broker.ch)

	var ids []string
	for i := 0; i < 2; i++ {
		select {
		case msg := <-received:
			ids = append(ids, msg.ID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for message")
		}
	}
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestAdapterPublishForwardsEnvelope(t *testing.T) {
	broker := &chanBroker{}
	adapter := NewBrokerAdapter(broker)

	msg := Message{ID: "x", Type: "appointment.updated"}
	require.NoError(t, adapter.Publish(context.Background(), "appointments", msg))
	assert.Equal(t, []interface{}{msg}, broker.published)
}

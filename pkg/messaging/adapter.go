package messaging

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

type BrokerAdapter struct {
	broker Broker
}

func NewBrokerAdapter(broker Broker) MessageBroker {
	return &BrokerAdapter{broker: broker}
}

func (a *BrokerAdapter) Publish(ctx context.Context, channel string, msg Message) error {
	return a.broker.Publish(ctx, channel, msg)
}

func (a *BrokerAdapter) Close() error {
	return a.broker.Close()
}

// Subscribe decodes each raw message and hands it to handler until ctx is done.
// Decode and handler failures are logged and the message is dropped.
func (a *BrokerAdapter) Subscribe(ctx context.Context, channel string, handler Handler) error {
	msgChan, err := a.broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	go func() {
		for raw := range msgChan {
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("dropping undecodable message")
				continue
			}
			if err := handler(ctx, msg); err != nil {
				log.Error().Err(err).
					Str("channel", channel).
					Str("message_id", msg.ID).
					Str("type", msg.Type).
					Msg("message handler failed")
			}
		}
	}()

	return nil
}

package broadcast

import (
	"context"
	"fmt"

	"deskhub/pkg/kafka"
	"deskhub/pkg/logger"
	"deskhub/pkg/model"
)

// Relay feeds booking change events consumed from Kafka into a local hub.
// It lets a separate process serve WebSocket subscribers without sharing
// memory with the booking service.
type Relay struct {
	hub *Hub
	log *logger.Logger
}

func NewRelay(hub *Hub, log *logger.Logger) *Relay {
	return &Relay{
		hub: hub,
		log: log,
	}
}

// Handle is a kafka.MessageHandler. Unknown event types are skipped, not
// failed: they would loop through retries and the DLQ for no benefit.
func (r *Relay) Handle(ctx context.Context, msg kafka.Message) error {
	if eventType := msg.GetEventType(); eventType != EventTypeBookingChanged {
		r.log.Debug("Skipping message with unexpected event type",
			"event_type", eventType,
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}

	var event model.BookingChanged
	if err := msg.DecodeValue(&event); err != nil {
		return fmt.Errorf("failed to decode booking change event: %w", err)
	}

	if err := r.hub.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event to hub: %w", err)
	}

	r.log.Debug("Relayed booking change event",
		"event_id", event.EventID,
		"resource_id", event.ResourceID,
	)
	return nil
}

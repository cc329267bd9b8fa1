package broadcast

import (
	"context"
	"errors"

	"deskhub/pkg/kafka"
	"deskhub/pkg/model"
)

const (
	// EventTypeBookingChanged is the event-type header carried on every
	// broadcast message.
	EventTypeBookingChanged = "booking.changed"

	// TopicBookingEvents is the Kafka topic booking change events are
	// published to, with its dead letter companion.
	TopicBookingEvents    = "booking-events"
	TopicBookingEventsDLQ = "booking-events-dlq"
)

// Publisher is one fan-out target for booking change events.
type Publisher interface {
	Publish(ctx context.Context, event model.BookingChanged) error
}

// KafkaPublisher pushes events onto the booking events topic, keyed by
// resource so events for one resource stay ordered within a partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

func NewKafkaPublisher(producer *kafka.Producer, source string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		source:   source,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event model.BookingChanged) error {
	msg := kafka.NewMessage().
		WithKey(event.ResourceID).
		WithValue(event).
		WithEventID(event.EventID).
		WithEventType(EventTypeBookingChanged).
		WithSource(p.source).
		Build()

	return p.producer.Publish(ctx, msg)
}

// Fanout publishes to every target and reports the combined error. A failing
// target does not stop delivery to the others.
type Fanout struct {
	targets []Publisher
}

func NewFanout(targets ...Publisher) *Fanout {
	return &Fanout{targets: targets}
}

func (f *Fanout) Publish(ctx context.Context, event model.BookingChanged) error {
	var errs []error
	for _, target := range f.targets {
		if err := target.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

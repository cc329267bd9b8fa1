package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"deskhub/pkg/kafka"
	"deskhub/pkg/model"
)

func bookingChangedMessage(t *testing.T, event model.BookingChanged) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return kafka.Message{
		Key:   event.ResourceID,
		Value: payload,
		Headers: map[string]string{
			kafka.HeaderEventID:   event.EventID,
			kafka.HeaderEventType: EventTypeBookingChanged,
		},
		Topic: TopicBookingEvents,
	}
}

func TestRelay_PublishesDecodedEvent(t *testing.T) {
	hub := NewHub(4, testLogger())
	defer hub.Close()
	sub := hub.Subscribe()

	relay := NewRelay(hub, testLogger())
	want := testEvent("ev-relay-1")

	if err := relay.Handle(context.Background(), bookingChangedMessage(t, want)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case got := <-sub.Events():
		if got.EventID != want.EventID {
			t.Errorf("expected event %s, got %s", want.EventID, got.EventID)
		}
		if got.ResourceID != want.ResourceID {
			t.Errorf("expected resource %s, got %s", want.ResourceID, got.ResourceID)
		}
		if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
			t.Errorf("interval mismatch: got [%v, %v)", got.Start, got.End)
		}
	case <-time.After(time.Second):
		t.Fatal("event was not relayed to the hub")
	}
}

func TestRelay_SkipsUnknownEventTypes(t *testing.T) {
	hub := NewHub(4, testLogger())
	defer hub.Close()
	sub := hub.Subscribe()

	relay := NewRelay(hub, testLogger())

	msg := bookingChangedMessage(t, testEvent("ev-other"))
	msg.Headers[kafka.HeaderEventType] = "resource.created"

	if err := relay.Handle(context.Background(), msg); err != nil {
		t.Fatalf("unknown event types must be skipped, not failed: %v", err)
	}

	select {
	case event := <-sub.Events():
		t.Errorf("unexpected relayed event %s", event.EventID)
	default:
	}
}

func TestRelay_FailsOnMalformedPayload(t *testing.T) {
	hub := NewHub(4, testLogger())
	defer hub.Close()

	relay := NewRelay(hub, testLogger())

	msg := bookingChangedMessage(t, testEvent("ev-bad"))
	msg.Value = []byte("{not json")

	if err := relay.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected decode error for malformed payload")
	}
}

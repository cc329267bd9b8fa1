package model

import "time"

// BookingChanged is the lightweight notification fanned out after every
// successful booking mutation (create, cancel, update). The broadcaster does
// no central filtering: every subscriber receives every event and decides
// relevance by comparing these fields against its own filter key. BookingID
// is set for cancellations so clients can drop the booking from local state.
type BookingChanged struct {
	EventID    string    `json:"event_id"`
	ResourceID string    `json:"resource_id"`
	BookingID  string    `json:"booking_id,omitempty"`
	Date       string    `json:"date"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// NewBookingChanged builds an event from a booking's identifying fields.
// Date is the UTC calendar day of the interval start.
func NewBookingChanged(eventID string, b *Booking) BookingChanged {
	return BookingChanged{
		EventID:    eventID,
		ResourceID: b.ResourceID,
		BookingID:  b.ID,
		Date:       b.StartTime.UTC().Format("2006-01-02"),
		Start:      b.StartTime,
		End:        b.EndTime,
	}
}

package model

import (
	"time"
)

// Booking is the authoritative reservation record. For a fixed resource no
// two bookings' [StartTime, EndTime) intervals may intersect; the booking
// service enforces this at commit time.
type Booking struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID      string    `json:"user_id" bson:"user_id" validate:"required,min=1,max=100"`
	ResourceID  string    `json:"resource_id" bson:"resource_id" validate:"required,mongodb"`
	BookingType string    `json:"booking_type" bson:"booking_type" validate:"required,oneof=desk meeting_room vr_headset ai_server"`
	StartTime   time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type BookingUpdate struct {
	ResourceID  string     `json:"resource_id,omitempty" validate:"omitempty,mongodb"`
	BookingType string     `json:"booking_type,omitempty" validate:"omitempty,oneof=desk meeting_room vr_headset ai_server"`
	StartTime   *time.Time `json:"start_time,omitempty" validate:"omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty" validate:"omitempty"`
}

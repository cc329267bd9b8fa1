package model

import "time"

// Timeslot is a pre-generated bookable window shown to members. The Booked
// flag mirrors the presence of a committed booking over the same interval;
// it is a derived cache, never a second source of truth. Intervals are
// half-open [StartTime, EndTime) in UTC.
type Timeslot struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ResourceID string    `json:"resource_id" bson:"resource_id" validate:"required,mongodb"`
	StartTime  time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime    time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Booked     bool      `json:"booked" bson:"booked"`
}

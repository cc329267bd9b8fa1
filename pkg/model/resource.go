package model

import "time"

// Resource types form a fixed enumeration; booking_type on a Booking uses
// the same values.
const (
	ResourceTypeDesk        = "desk"
	ResourceTypeMeetingRoom = "meeting_room"
	ResourceTypeVRHeadset   = "vr_headset"
	ResourceTypeAIServer    = "ai_server"
)

// ResourceTypes lists every bookable resource category, in display order.
var ResourceTypes = []string{
	ResourceTypeDesk,
	ResourceTypeMeetingRoom,
	ResourceTypeVRHeadset,
	ResourceTypeAIServer,
}

type Resource struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Type      string    `json:"resource_type" bson:"resource_type" validate:"required,oneof=desk meeting_room vr_headset ai_server"`
	Capacity  int       `json:"capacity" bson:"capacity" validate:"required,min=1,max=500"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

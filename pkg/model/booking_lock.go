package model

import "time"

// BookingLock is an advisory lock document keyed by resource and slot start.
// Holding it serializes the overlap check and commit for one slot; the TTL
// index on ExpiresAt reaps locks abandoned by a crashed process.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

package model

import "time"

// Overlaps reports whether the half-open intervals [s1, e1) and [s2, e2)
// intersect. Abutting intervals (e1 == s2) do not overlap, so back-to-back
// bookings are allowed. This is the single overlap predicate used everywhere
// a candidate interval is checked.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// Covers reports whether the instant t falls within [start, end).
func Covers(start, end, t time.Time) bool {
	return !start.After(t) && end.After(t)
}

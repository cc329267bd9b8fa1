package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "deskhub"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Slot grid: weekday 2-hour windows between opening and closing hour,
	// materialized over a rolling horizon.
	DefaultSlotHorizonDays   = 60
	DefaultSlotWidth         = 2 * time.Hour
	DefaultOpeningHour       = 8
	DefaultClosingHour       = 18
	DefaultOperatingTimezone = "Europe/Stockholm"

	DefaultBookingLockTTL   = 10 * time.Second
	DefaultSubscriberBuffer = 16

	DefaultAssistantBaseURL  = "https://api.openai.com/v1"
	DefaultAssistantModel    = "gpt-4.1"
	DefaultAssistantTimeout  = 8 * time.Second
	DefaultAssistantFallback = "The assistant is unavailable right now. Your booking request is unaffected; please check your existing bookings for overlaps."

	DefaultPaginationLimit = 100
)

package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSlotHorizonDays   = "SLOT_HORIZON_DAYS"
	EnvSlotWidth         = "SLOT_WIDTH"
	EnvOpeningHour       = "OPENING_HOUR"
	EnvClosingHour       = "CLOSING_HOUR"
	EnvOperatingTimezone = "OPERATING_TIMEZONE"

	EnvBookingLockTTL   = "BOOKING_LOCK_TTL"
	EnvSubscriberBuffer = "SUBSCRIBER_BUFFER"

	EnvAssistantBaseURL  = "ASSISTANT_BASE_URL"
	EnvAssistantAPIKey   = "OPENAI_API_KEY"
	EnvAssistantModel    = "ASSISTANT_MODEL"
	EnvAssistantTimeout  = "ASSISTANT_TIMEOUT"
	EnvAssistantFallback = "ASSISTANT_FALLBACK"
)

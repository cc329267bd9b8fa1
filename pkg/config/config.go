package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"deskhub/pkg/client"
	"deskhub/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	SlotHorizonDays   int
	SlotWidth         time.Duration
	OpeningHour       int
	ClosingHour       int
	OperatingTimezone string

	BookingLockTTL   time.Duration
	SubscriberBuffer int

	AssistantBaseURL  string
	AssistantAPIKey   string
	AssistantModel    string
	AssistantTimeout  time.Duration
	AssistantFallback string

	Log    *logger.Logger
	Client *client.Client

	location *time.Location
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		SlotHorizonDays:   getEnvNum(EnvSlotHorizonDays, DefaultSlotHorizonDays),
		SlotWidth:         getEnvDuration(EnvSlotWidth, DefaultSlotWidth),
		OpeningHour:       getEnvNum(EnvOpeningHour, DefaultOpeningHour),
		ClosingHour:       getEnvNum(EnvClosingHour, DefaultClosingHour),
		OperatingTimezone: getEnvStr(EnvOperatingTimezone, DefaultOperatingTimezone),

		BookingLockTTL:   getEnvDuration(EnvBookingLockTTL, DefaultBookingLockTTL),
		SubscriberBuffer: getEnvNum(EnvSubscriberBuffer, DefaultSubscriberBuffer),

		AssistantBaseURL:  getEnvStr(EnvAssistantBaseURL, DefaultAssistantBaseURL),
		AssistantAPIKey:   getEnvStr(EnvAssistantAPIKey, ""),
		AssistantModel:    getEnvStr(EnvAssistantModel, DefaultAssistantModel),
		AssistantTimeout:  getEnvDuration(EnvAssistantTimeout, DefaultAssistantTimeout),
		AssistantFallback: getEnvStr(EnvAssistantFallback, DefaultAssistantFallback),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// Location returns the operating timezone used for the slot grid and the
// no-retroactive-bookings check. Validate has already verified it loads.
func (cfg *Config) Location() *time.Location {
	if cfg.location == nil {
		loc, err := time.LoadLocation(cfg.OperatingTimezone)
		if err != nil {
			loc = time.UTC
		}
		cfg.location = loc
	}
	return cfg.location
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	for name, d := range map[string]time.Duration{
		"RateLimitWindow": cfg.RateLimitWindow,
		"RequestTimeout":  cfg.RequestTimeout,
		"IdempotencyTTL":  cfg.IdempotencyTTL,
		"ReadTimeout":     cfg.ReadTimeout,
		"WriteTimeout":    cfg.WriteTimeout,
		"IdleTimeout":     cfg.IdleTimeout,
		"ShutdownTimeout": cfg.ShutdownTimeout,
		"BookingLockTTL":  cfg.BookingLockTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.SubscriberBuffer <= 0 {
		errs = append(errs, fmt.Sprintf("SubscriberBuffer must be positive, got: %d", cfg.SubscriberBuffer))
	}

	if cfg.SlotHorizonDays <= 0 {
		errs = append(errs, fmt.Sprintf("SlotHorizonDays must be positive, got: %d", cfg.SlotHorizonDays))
	}
	if cfg.SlotWidth < time.Minute {
		errs = append(errs, fmt.Sprintf("SlotWidth must be at least one minute, got: %s", cfg.SlotWidth))
	}
	if cfg.OpeningHour < 0 || cfg.OpeningHour > 23 {
		errs = append(errs, fmt.Sprintf("OpeningHour must be between 0 and 23, got: %d", cfg.OpeningHour))
	}
	if cfg.ClosingHour < 1 || cfg.ClosingHour > 24 {
		errs = append(errs, fmt.Sprintf("ClosingHour must be between 1 and 24, got: %d", cfg.ClosingHour))
	}
	if cfg.ClosingHour <= cfg.OpeningHour {
		errs = append(errs, fmt.Sprintf("ClosingHour (%d) must be after OpeningHour (%d)", cfg.ClosingHour, cfg.OpeningHour))
	}
	if _, err := time.LoadLocation(cfg.OperatingTimezone); err != nil {
		errs = append(errs, fmt.Sprintf("OperatingTimezone is not a valid IANA zone: %s", cfg.OperatingTimezone))
	}

	if cfg.AssistantTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("AssistantTimeout must be positive, got: %s", cfg.AssistantTimeout))
	}
	if cfg.AssistantFallback == "" {
		errs = append(errs, "AssistantFallback cannot be empty")
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"slot_horizon_days", cfg.SlotHorizonDays,
		"slot_width", cfg.SlotWidth,
		"opening_hour", cfg.OpeningHour,
		"closing_hour", cfg.ClosingHour,
		"operating_timezone", cfg.OperatingTimezone,
		"booking_lock_ttl", cfg.BookingLockTTL,
		"subscriber_buffer", cfg.SubscriberBuffer,
		"assistant_base_url", cfg.AssistantBaseURL,
		"assistant_key_set", cfg.AssistantAPIKey != "",
		"assistant_model", cfg.AssistantModel,
		"assistant_timeout", cfg.AssistantTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}

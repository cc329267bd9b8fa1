package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deskhub/internal/broadcast"
	"deskhub/pkg/kafka"
	kafka_config "deskhub/pkg/kafka/config"
	kafka_middleware "deskhub/pkg/kafka/middleware"
	"deskhub/pkg/logger"
	"deskhub/pkg/middleware"
)

const (
	ServiceName     = "notifier"
	ConsumerGroupID = "deskhub-notifier"
)

func main() {
	log := logger.New(logger.Config{
		Level:   logger.INFO,
		Format:  logger.JSON,
		Service: ServiceName,
	})

	port := os.Getenv("NOTIFIER_PORT")
	if port == "" {
		port = "8090"
	}

	bufferSize := 16
	hub := broadcast.NewHub(bufferSize, log)
	relay := broadcast.NewRelay(hub, log)

	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(log.Info)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		broadcast.TopicBookingEvents,
		ConsumerGroupID,
		broadcast.TopicBookingEventsDLQ,
		relay.Handle,
	)
	if err != nil {
		log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware())

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Start(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Consumer stopped", "error", err)
		}
	}()

	recovery := middleware.Recovery(log)
	logging := middleware.RequestLogging(log)
	chain := func(h http.Handler) http.Handler {
		return recovery(logging(h))
	}

	mux := http.NewServeMux()
	mux.Handle("/health", chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})))
	mux.Handle("/ws/bookings", chain(broadcast.NewWebSocketHandler(hub, log)))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		log.Info("Starting notifier server", "address", server.Addr, "topic", broadcast.TopicBookingEvents)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notifier")
	stopConsumer()
	if err := consumer.Close(); err != nil {
		log.Error("Failed to close consumer", "error", err)
	}
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
	}
	log.Info("Notifier stopped")
}

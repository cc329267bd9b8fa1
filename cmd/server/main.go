package main

import (
	"context"
	"time"

	advisoryhandler "deskhub/internal/advisory/handler"
	advisoryservice "deskhub/internal/advisory/service"
	"deskhub/internal/api"
	availabilityhandler "deskhub/internal/availability/handler"
	availabilityservice "deskhub/internal/availability/service"
	bookinghandler "deskhub/internal/bookings/handler"
	bookingrepository "deskhub/internal/bookings/repository"
	bookingservice "deskhub/internal/bookings/service"
	bookingvalidator "deskhub/internal/bookings/validator"
	"deskhub/internal/broadcast"
	resourcehandler "deskhub/internal/resources/handler"
	resourcerepository "deskhub/internal/resources/repository"
	resourceservice "deskhub/internal/resources/service"
	resourcevalidator "deskhub/internal/resources/validator"
	timeslothandler "deskhub/internal/timeslots/handler"
	timeslotrepository "deskhub/internal/timeslots/repository"
	timeslotservice "deskhub/internal/timeslots/service"
	"deskhub/pkg/app"
	"deskhub/pkg/client"
	"deskhub/pkg/config"
	"deskhub/pkg/kafka"
	kafka_config "deskhub/pkg/kafka/config"
	kafka_middleware "deskhub/pkg/kafka/middleware"
)

const ServiceName = "server"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting DeskHub server")
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	producer := initProducer(cfg)
	defer func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}()

	hub := broadcast.NewHub(cfg.SubscriberBuffer, cfg.Log)
	defer hub.Close()

	services := initServices(cfg, hub, producer)

	apiRouter := api.NewRouter(
		resourcehandler.NewResourceHandler(services.resources, cfg.Log),
		timeslothandler.NewTimeslotHandler(services.timeslots, cfg.Log),
		bookinghandler.NewBookingHandler(services.bookings, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(services.availability, cfg.Log),
		advisoryhandler.NewAdvisoryHandler(services.advisory, cfg.Log),
	)
	wsHandler := broadcast.NewWebSocketHandler(hub, cfg.Log)

	// Fill the slot grid for the rolling horizon without delaying startup.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if count, err := services.timeslots.GenerateAll(ctx); err != nil {
			cfg.Log.Error("Startup timeslot generation failed", "error", err)
		} else if count > 0 {
			cfg.Log.Info("Startup timeslot generation completed", "generated", count)
		}
	}()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(apiRouter, wsHandler)
	serverApp.Run()
}

type services struct {
	resources    resourceservice.ResourceService
	timeslots    timeslotservice.TimeslotService
	bookings     bookingservice.BookingService
	availability availabilityservice.AvailabilityService
	advisory     advisoryservice.AdvisoryService
}

func initServices(cfg *config.Config, hub *broadcast.Hub, producer *kafka.Producer) *services {
	bookingRepo := bookingrepository.NewMongoBookingRepository(cfg)
	lockRepo := bookingrepository.NewBookingLockRepository(cfg)
	resourceRepo := resourcerepository.NewMongoResourceRepository(cfg)
	timeslotRepo := timeslotrepository.NewMongoTimeslotRepository(cfg)

	resources := resourceservice.NewResourceService(
		resourceRepo,
		resourcevalidator.NewResourceValidator(cfg.Log),
		bookingRepo,
		cfg,
	)
	timeslots := timeslotservice.NewTimeslotService(timeslotRepo, resources, cfg)
	resources.SetSlotGenerator(timeslots)

	publisher := broadcast.NewFanout(
		hub,
		broadcast.NewKafkaPublisher(producer, ServiceName),
	)

	bookings := bookingservice.NewBookingService(
		bookingRepo,
		lockRepo,
		resources,
		timeslots,
		publisher,
		bookingvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)

	availability := availabilityservice.NewAvailabilityService(bookingRepo, resources, cfg)

	assistantClient := client.NewHttpClient(cfg.AssistantBaseURL, cfg.AssistantTimeout)
	advisory := advisoryservice.NewAdvisoryService(bookings, assistantClient, cfg)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return &services{
		resources:    resources,
		timeslots:    timeslots,
		bookings:     bookings,
		availability: availability,
		advisory:     advisory,
	}
}

func initProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, broadcast.TopicBookingEvents, broadcast.TopicBookingEventsDLQ)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	producer.Use(kafka_middleware.MetricsProducerMiddleware())
	producer.Use(kafka_middleware.LoggingProducerMiddleware())

	return producer
}

package main

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"medassist/internal/assistant/handler"
	"medassist/internal/assistant/repository"
	"medassist/internal/assistant/service"
	"medassist/internal/booking"
	"medassist/internal/dashboard"
	"medassist/internal/directory"
	"medassist/internal/events"
	"medassist/pkg/app"
	"medassist/pkg/client"
	"medassist/pkg/config"
	mongodb "medassist/pkg/db/mongo"
	"medassist/pkg/kafka"
	kafka_config "medassist/pkg/kafka/config"
	kafkamiddleware "medassist/pkg/kafka/middleware"
	"medassist/pkg/logger"
	"medassist/pkg/metrics"
)

const serviceName = "assistant"

func main() {
	cfg := config.Load(serviceName)
	log := cfg.Log
	log.Info("Starting clinic assistant service")

	clinicMetrics := metrics.NewClinicMetrics(nil)
	clinic := client.NewClient(cfg.APIBaseURL, cfg.APITimeout, log)

	doctors := service.InstrumentDoctors(clinic.DoctorClient, clinicMetrics)
	appointments := service.InstrumentAppointments(clinic.AppointmentClient, clinicMetrics)
	sender := service.InstrumentSender(clinic.ChatClient, clinicMetrics)

	dir := initDirectory(cfg, doctors, clinicMetrics, log)
	application := app.NewApplication(cfg)

	sessions := initSessionRepository(cfg, application, log)
	notifier := initNotifier(cfg, application, clinicMetrics, log)

	bookingService := service.NewBookingService(service.BookingServiceConfig{
		Repository: sessions,
		Directory:  dir,
		Gateway:    appointments,
		Validator:  booking.NewValidator(cfg.Location, time.Now),
		Notifier:   notifier,
		Metrics:    clinicMetrics,
		Log:        log,
	})
	chatService := service.NewChatService(sender, clinicMetrics, log)
	directoryService := service.NewDirectoryService(dir, doctors, log)
	availabilityService := service.NewAvailabilityService(clinic.ChatClient)
	summaries := dashboard.NewBuilder(doctors, appointments, cfg.Location, log)

	refresher, err := directory.NewRefresher(dir, cfg.DirectoryRefreshSchedule, cfg.APITimeout, log)
	if err != nil {
		log.Fatal("Failed to schedule directory refresh", "error", err)
	}
	application.AddWorker(refresher)

	sweeper, err := service.NewSweeper(cfg.SessionSweepSchedule, cfg.SessionTTL, bookingService, chatService, application.IdempotencyStore(), log)
	if err != nil {
		log.Fatal("Failed to schedule session sweep", "error", err)
	}
	application.AddWorker(sweeper)

	application.SetApp(
		handler.NewHealthHandler(sessions, dir, log),
		handler.NewDoctorHandler(directoryService, availabilityService, clinicMetrics, log),
		handler.NewBookingHandler(bookingService, clinicMetrics, log),
		handler.NewChatHandler(chatService, clinicMetrics, log),
		handler.NewAppointmentHandler(appointments, summaries, clinicMetrics, log),
	)
	application.Run()
}

// initDirectory loads the doctor list once before serving. A backend that is
// down at startup is not fatal; the scheduled refresh retries.
func initDirectory(cfg *config.Config, source directory.Source, m *metrics.ClinicMetrics, log *logger.Logger) *directory.Directory {
	dir := directory.New(source, log, m)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout)
	defer cancel()
	if _, err := dir.Load(ctx); err != nil {
		log.Warn("Initial directory load failed, serving an empty directory until the next refresh", "error", err)
	}
	return dir
}

func initSessionRepository(cfg *config.Config, application *app.Application, log *logger.Logger) repository.SessionRepository {
	if cfg.SessionStore != config.SessionStoreMongo {
		log.Info("Booking sessions kept in memory")
		return repository.NewMemorySessionRepository()
	}

	client := connectMongoDB(cfg, log)
	application.OnShutdown(func(ctx context.Context) error {
		return client.Disconnect(ctx)
	})

	repo := repository.NewMongoSessionRepository(client, cfg.MongoDatabaseName)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
	defer cancel()
	if err := repo.EnsureIndexes(ctx, cfg.SessionTTL); err != nil {
		log.Fatal("Failed to prepare booking session collection", "error", err)
	}

	log.Info("Booking sessions stored in MongoDB",
		"database", cfg.MongoDatabaseName,
		"collection", repository.CollectionName,
	)
	return repo
}

func connectMongoDB(cfg *config.Config, log *logger.Logger) *mongo.Client {
	client, err := mongodb.Connect(context.Background(), cfg.MongoURI, cfg.MongoConnTimeout, log)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	return client
}

func initNotifier(cfg *config.Config, application *app.Application, m *metrics.ClinicMetrics, log *logger.Logger) booking.Notifier {
	if !cfg.EventsEnabled {
		log.Info("Booking events disabled")
		return nil
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, log)
	if err != nil {
		log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafkamiddleware.LoggingProducerMiddleware(log))
	producer.Use(kafkamiddleware.MetricsProducerMiddleware(m))
	application.OnShutdown(func(context.Context) error {
		return producer.Close()
	})

	log.Info("Booking events enabled", "topic", producer.Topic())
	return events.NewBookingNotifier(producer, log)
}

package main

import (
	"classbook/internal/bootstrap"
	packagesservice "classbook/internal/packages/service"
	"classbook/internal/reconciler"
	"classbook/pkg/app"
	"classbook/pkg/config"
	"classbook/pkg/kafka"
	kafka_middleware "classbook/pkg/kafka/middleware"
)

const ServiceName = "reconciler"

// The reconciler serves no API; it runs the sweep, the package expiry job and,
// with Kafka enabled, the deferred promotion consumer. /health and /ready stay
// up for the orchestrator.
func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Reconciler service")
	core := bootstrap.NewCore(cfg, ServiceName)

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(core.Close)

	serverApp.AddWorker(reconciler.New(
		core.Bookings,
		core.Schedules,
		core.UserPackages,
		core.Leases,
		core.Promoter,
		core.Publisher,
		core.Clock,
		cfg,
	))
	serverApp.AddWorker(packagesservice.NewExpiryJob(core.UserPackages, core.Clock, cfg.ExpiryCron, cfg.Log))

	if cfg.KafkaEnabled {
		serverApp.AddWorker(newDeferredPromotionWorker(cfg, core))
	}

	serverApp.SetApp()
	serverApp.Run()
}

func newDeferredPromotionWorker(cfg *config.Config, core *bootstrap.Core) *reconciler.ConsumerWorker {
	consumer, err := kafka.NewConsumer(
		core.KafkaConfig,
		cfg.BookingEventsTopic,
		cfg.ReconcilerGroupID,
		cfg.BookingEventsDLQTopic,
		reconciler.DeferredPromotionHandler(core.Promoter, cfg.Log),
		cfg.Log.Component("kafka-consumer"),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if core.KafkaConfig.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(core.KafkaMetrics.ConsumerMiddleware())
	}

	cfg.Log.Info("Deferred promotion consumer ready", "topic", cfg.BookingEventsTopic, "group_id", cfg.ReconcilerGroupID)
	return reconciler.NewConsumerWorker("deferred-promotion-consumer", consumer)
}

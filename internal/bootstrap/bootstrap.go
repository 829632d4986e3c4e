// Package bootstrap wires the Mongo-backed repositories, the lease
// coordinator and the outbound adapters shared by the service binaries.
package bootstrap

import (
	"classbook/internal/bookings/repository"
	bookingsservice "classbook/internal/bookings/service"
	"classbook/internal/events"
	packagesrepo "classbook/internal/packages/repository"
	"classbook/internal/payments"
	schedulesrepo "classbook/internal/schedules/repository"
	"classbook/pkg/clock"
	"classbook/pkg/config"
	"classbook/pkg/kafka"
	kafka_config "classbook/pkg/kafka/config"
	kafka_middleware "classbook/pkg/kafka/middleware"
	"classbook/pkg/lease"
)

// Core holds what both the API and the reconciler need. Cleanup functions
// registered on it run at shutdown.
type Core struct {
	Clock        clock.Clock
	Bookings     repository.BookingRepository
	Schedules    schedulesrepo.ScheduleRepository
	Packages     packagesrepo.PackageRepository
	UserPackages packagesrepo.UserPackageRepository
	Leases       *lease.Coordinator
	Publisher    events.Publisher
	Promoter     *bookingsservice.Promoter
	KafkaConfig  *kafka_config.Config
	KafkaMetrics *kafka_middleware.Metrics

	closers []func()
}

// NewCore expects cfg.SetMongo to have been called.
func NewCore(cfg *config.Config, source string) *Core {
	clk := clock.New()
	c := &Core{
		Clock:        clk,
		Bookings:     repository.NewMongoBookingRepository(cfg),
		Schedules:    schedulesrepo.NewMongoScheduleRepository(cfg),
		Packages:     packagesrepo.NewMongoPackageRepository(cfg),
		UserPackages: packagesrepo.NewMongoUserPackageRepository(cfg),
		Leases:       lease.NewCoordinator(repository.NewMongoLockStore(cfg, clk), clk, cfg.Log.Component("lease")),
		Publisher:    events.NopPublisher{},
	}

	if cfg.KafkaEnabled {
		c.setKafka(cfg, source)
	} else {
		cfg.Log.Info("Kafka disabled, booking events are not published")
	}

	c.Promoter = bookingsservice.NewPromoter(c.Bookings, c.Schedules, c.Leases, c.Publisher, clk, cfg)
	return c
}

func (c *Core) setKafka(cfg *config.Config, source string) {
	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	c.KafkaConfig = kcfg
	c.KafkaMetrics = kafka_middleware.NewMetrics()

	producer, err := kafka.NewProducer(kcfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic, cfg.Log.Component("kafka-producer"))
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kcfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(c.KafkaMetrics.ProducerMiddleware())
	}

	c.Publisher = events.NewKafkaPublisher(producer, source)
	c.OnClose(func() {
		c.KafkaMetrics.LogSnapshot(cfg.Log)
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})
	cfg.Log.Info("Kafka publisher ready", "topic", cfg.BookingEventsTopic, "brokers", kcfg.Brokers)
}

func (c *Core) OnClose(fn func()) {
	c.closers = append(c.closers, fn)
}

// Close runs the registered cleanups in reverse order.
func (c *Core) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// PaymentGateway picks the provider named by PAYMENT_PROVIDER.
func PaymentGateway(cfg *config.Config) payments.Gateway {
	if cfg.PaymentProvider == config.PaymentProviderMidtrans {
		cfg.Log.Info("Using Midtrans payment gateway", "production", cfg.MidtransProduction)
		return payments.NewMidtransGateway(cfg.MidtransServerKey, cfg.MidtransProduction, cfg.Log.Component("midtrans"))
	}
	cfg.Log.Warn("Using mock payment gateway", "decline", cfg.MockPaymentDecline)
	return payments.NewMockGateway(cfg.MockPaymentDecline)
}

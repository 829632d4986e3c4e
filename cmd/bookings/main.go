package main

import (
	bookingshandler "classbook/internal/bookings/handler"
	bookingsservice "classbook/internal/bookings/service"
	bookingsvalidator "classbook/internal/bookings/validator"
	"classbook/internal/bootstrap"
	packageshandler "classbook/internal/packages/handler"
	packagesservice "classbook/internal/packages/service"
	packagesvalidator "classbook/internal/packages/validator"
	scheduleshandler "classbook/internal/schedules/handler"
	schedulesservice "classbook/internal/schedules/service"
	schedulesvalidator "classbook/internal/schedules/validator"
	"classbook/pkg/app"
	"classbook/pkg/config"
	"classbook/pkg/contracts"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Bookings service")
	core := bootstrap.NewCore(cfg, ServiceName)

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(core.Close)
	serverApp.SetApp(initHandlers(cfg, core)...)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, core *bootstrap.Core) []contracts.Handler {
	bookingService := bookingsservice.NewBookingService(
		core.Bookings,
		core.Schedules,
		core.UserPackages,
		core.Leases,
		core.Promoter,
		core.Publisher,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		core.Clock,
		cfg,
	)

	scheduleService := schedulesservice.NewScheduleService(
		core.Schedules,
		core.Bookings,
		schedulesvalidator.NewScheduleValidator(cfg.Log),
		core.Clock,
		cfg,
	)

	packageService := packagesservice.NewPackageService(
		core.Packages,
		core.UserPackages,
		bootstrap.PaymentGateway(cfg),
		core.Publisher,
		packagesvalidator.NewPackageValidator(cfg.Log),
		core.Clock,
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return []contracts.Handler{
		bookingshandler.NewBookingHandler(bookingService, cfg.Log),
		scheduleshandler.NewScheduleHandler(scheduleService, cfg.Log),
		packageshandler.NewPackageHandler(packageService, cfg.Log),
	}
}

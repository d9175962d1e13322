package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/airline/config"
	"github.com/Domenick1991/airline/internal/auth"
	"github.com/Domenick1991/airline/internal/bootstrap"
	"github.com/Domenick1991/airline/internal/cache"
	"github.com/Domenick1991/airline/internal/kafka"
	"github.com/Domenick1991/airline/internal/notification"
	"github.com/Domenick1991/airline/internal/repository"
	"github.com/Domenick1991/airline/internal/service/airplanes"
	"github.com/Domenick1991/airline/internal/service/flights"
	"github.com/Domenick1991/airline/internal/service/orders"
	"github.com/Domenick1991/airline/internal/service/routes"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Notification.Timezone)
	if err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	checks := map[string]bootstrap.HealthCheck{"postgres": pool.Ping}

	var store cache.Store
	switch cfg.Cache.Driver {
	case "memory":
		store = cache.NewMemoryStore()
	default:
		redisStore := cache.NewRedisStore(cfg.Redis)
		defer redisStore.Close()
		store = redisStore
		checks["redis"] = redisStore.Ping
	}
	listing := cache.NewListingCache(store, cfg.Cache.Prefix, logger)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()
	checks["kafka"] = producer.CheckConnection

	dispatcher := notification.NewDispatcher(
		notification.NewFormatter(cfg.Notification.DepartureChangedText, cfg.Notification.ReminderText, loc),
		cfg.Notification.TelegramChatID,
		loc,
		notification.WithPublisher(producer, cfg.Kafka.NotificationsTopic),
		notification.WithLogger(logger),
	)

	flightRepo := repository.NewFlightRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	engine := orders.NewEngine(flightRepo)

	flightService := flights.NewFlightService(flightRepo, listing, time.Duration(cfg.Cache.FlightsTTLSeconds)*time.Second,
		flights.WithNotifier(dispatcher),
		flights.WithLogger(logger),
		flights.WithSideEffectTimeout(time.Duration(cfg.Notification.PublishTimeoutSeconds)*time.Second),
	)
	orderService := orders.NewOrderService(orderRepo, engine,
		orders.WithInvalidator(listing),
		orders.WithLogger(logger),
	)

	handler := bootstrap.NewRouter(cfg, auth.NewAuthenticator(cfg.Auth.JWTSecret), bootstrap.Services{
		Flights:      flightService,
		Availability: engine,
		Orders:       orderService,
		Routes:       routes.NewRouteService(repository.NewRouteRepository(pool)),
		Airplanes:    airplanes.NewAirplaneService(repository.NewAirplaneRepository(pool)),
	}, checks, logger)

	return bootstrap.Run(ctx, cfg, handler, logger)
}

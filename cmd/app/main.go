package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flighter/api"
	"github.com/Domenick1991/flighter/internal/bootstrap"
	"github.com/Domenick1991/flighter/internal/cache"
	"github.com/Domenick1991/flighter/internal/issuer"
	"github.com/Domenick1991/flighter/internal/kafka"
	"github.com/Domenick1991/flighter/internal/logger"
	"github.com/Domenick1991/flighter/internal/payment"
	"github.com/Domenick1991/flighter/internal/ratelimit"
	"github.com/Domenick1991/flighter/internal/repository"
	"github.com/Domenick1991/flighter/internal/service/booking"
	"github.com/Domenick1991/flighter/internal/service/destinations"
	"github.com/Domenick1991/flighter/internal/service/flights"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "flighter: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := bootstrap.LoadConfig("flighter", os.Args[1:])
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log, "flighter")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	warnings, err := cfg.Check()
	if err != nil {
		log.Error("refusing to start", zap.Error(err))
		return err
	}
	for _, w := range warnings {
		log.Error("unsafe configuration", zap.String("warning", w), zap.String("env", cfg.App.Env))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := repository.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		log.Info("database schema ensured")
	}

	redisClient := cache.NewClient(cfg.Redis)
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close()

	tokens := issuer.New(cfg.Booking.LookupSecret)
	if tokens.UsingDevelopmentSecret() {
		log.Warn("booking lookup tokens are signed with the development secret")
	}
	gateway := payment.NewSimulatedGateway(cfg.Booking.ForcePaymentSuccess)
	bookingRepo := repository.NewBookingRepository(pool)

	bookingService := booking.NewBookingService(
		bookingRepo,
		gateway,
		tokens,
		producer,
		log,
		booking.WithBookingTopic(cfg.Kafka.BookingTopic),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	lookupService := booking.NewLookupService(bookingRepo, tokens, cfg.Booking.EmailLookupLimit)
	flightService := flights.NewFlightService(
		repository.NewFlightRepository(pool),
		cache.NewRedisCache(redisClient, cfg.Flights.CacheTTL()),
		log,
	)
	destinationService := destinations.NewDestinationService(repository.NewAirportRepository(pool))

	if err := api.RegisterValidators(); err != nil {
		return err
	}

	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
		Enabled:        cfg.RateLimit.Enabled,
		WindowDuration: time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		Requests:       cfg.RateLimit.LookupRequests,
	})

	router := bootstrap.NewRouter(cfg, bootstrap.Handlers{
		Bookings: api.NewBookingHandler(
			bookingService,
			lookupService,
			api.NewAdminKey(cfg.Booking.AdminKey, cfg.Booking.AdminKeyBcrypt),
			log,
		),
		Flights:      api.NewFlightHandler(flightService, log),
		Destinations: api.NewDestinationHandler(destinationService, log),
		LookupLimit:  ratelimit.Middleware(limiter, "booking_lookup", log),
	}, log)

	servers := bootstrap.NewServers(cfg, router, bootstrap.AllReady(
		bootstrap.Dependency{Name: "postgres", Check: pool.Ping},
		bootstrap.Dependency{Name: "kafka", Check: producer.CheckConnection},
	), log)

	if err := servers.Run(ctx, cfg.GRPC.Address); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

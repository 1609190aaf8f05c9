package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flighter/internal/bootstrap"
	"github.com/Domenick1991/flighter/internal/email"
	"github.com/Domenick1991/flighter/internal/issuer"
	"github.com/Domenick1991/flighter/internal/kafka"
	"github.com/Domenick1991/flighter/internal/logger"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "flighter-worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := bootstrap.LoadConfig("flighter-worker", os.Args[1:])
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log, "flighter-worker")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if _, err := cfg.Check(); err != nil {
		log.Error("refusing to start", zap.Error(err))
		return err
	}
	if cfg.Kafka.NotificationsTopic == "" {
		return errors.New("kafka.notifications_topic is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, log)
	defer consumer.Close()

	sender := email.NewSender(cfg.App.PublicURL, issuer.New(cfg.Booking.LookupSecret), log)

	log.Info("worker started", zap.String("topic", cfg.Kafka.NotificationsTopic))
	err = consumer.Consume(ctx, newHandler(sender, log))
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consumer stopped: %w", err)
	}
	log.Info("worker stopped")
	return nil
}

type notifier interface {
	Send(ctx context.Context, event kafka.BookingEvent) error
}

// newHandler emails confirmations for booking_confirmed events. Delivery
// failures are logged and the event is dropped.
func newHandler(sender notifier, log *zap.Logger) kafka.EventHandler {
	return func(ctx context.Context, event kafka.BookingEvent) error {
		if event.Type != kafka.EventBookingConfirmed {
			return nil
		}
		if err := sender.Send(ctx, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("send confirmation email failed",
				zap.String("booking_reference", event.BookingReference),
				zap.Error(err),
			)
		}
		return nil
	}
}

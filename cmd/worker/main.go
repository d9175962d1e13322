package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/airline/config"
	"github.com/Domenick1991/airline/internal/bootstrap"
	"github.com/Domenick1991/airline/internal/kafka"
	"github.com/Domenick1991/airline/internal/notification"
	"github.com/Domenick1991/airline/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
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
		logger.Error("worker stopped", slog.Any("error", err))
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
	reminderAt, err := notification.ParseDailyAt(cfg.Worker.ReminderAt)
	if err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	var sink notification.Sink = notification.NewLogSink(logger)
	if cfg.Notification.TelegramBotToken != "" {
		sink = notification.NewTelegramSink(cfg.Notification.TelegramAPIURL, cfg.Notification.TelegramBotToken,
			time.Duration(cfg.Notification.SendTimeoutSeconds)*time.Second)
	} else {
		logger.Warn("telegram bot token is not set, notifications go to the log")
	}

	dispatcher := notification.NewDispatcher(
		notification.NewFormatter(cfg.Notification.DepartureChangedText, cfg.Notification.ReminderText, loc),
		cfg.Notification.TelegramChatID,
		loc,
		notification.WithSink(sink, time.Duration(cfg.Notification.SendTimeoutSeconds)*time.Second),
		notification.WithTickets(repository.NewOrderRepository(pool)),
		notification.WithLogger(logger),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			job, err := kafka.DecodeNotificationJob(msg)
			if err != nil {
				logger.Error("decode notification job", slog.Any("error", err), slog.Int64("offset", msg.Offset))
				return nil
			}
			// A failed send is not redelivered; the offset is committed either way.
			if err := dispatcher.Deliver(ctx, job); err != nil {
				logger.Error("deliver notification", slog.String("job_id", job.ID), slog.Any("error", err))
			}
			return nil
		})
	})

	g.Go(func() error {
		return dispatcher.RunReminders(ctx, reminderAt)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

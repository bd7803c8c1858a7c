package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"coursehub/internal/cache"
	"coursehub/internal/config"
	"coursehub/internal/database"
	"coursehub/internal/log"
	"coursehub/internal/mail"
	"coursehub/internal/queue"
	"coursehub/internal/repository"
	"coursehub/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Worker.LogLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect postgres")
		os.Exit(1)
	}
	defer db.Close()

	processor := tasks.NewProcessor(
		mail.NewSMTPSender(cfg.Mail.SMTP),
		repository.NewNotificationRepository(db),
		logger,
	)

	switch cfg.Mail.Transport {
	case config.TransportAMQP:
		client, err := queue.NewAMQPClient(cfg.Mail.AMQPURL, cfg.Mail.Queue, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to connect rabbitmq")
			os.Exit(1)
		}
		defer client.Close()
		err = client.Consume(ctx, cfg.Worker.Consumer, processor)
		exitOnError(ctx, err, logger)
	default:
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Error().Err(err).Msg("redis connection failed")
			os.Exit(1)
		}
		defer client.Close()

		consumer := queue.NewConsumer(
			client,
			cfg.Mail.Stream,
			cfg.Worker.Group,
			cfg.Worker.Consumer,
			cfg.Worker.ClaimInterval,
			logger,
			processor,
		)
		exitOnError(ctx, consumer.Start(ctx), logger)
	}

	logger.Info().Msg("worker stopped")
}

func exitOnError(ctx context.Context, err error, logger zerolog.Logger) {
	if err == nil || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return
	}
	logger.Error().Err(err).Msg("consumer stopped unexpectedly")
	os.Exit(1)
}

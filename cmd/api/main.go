package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"coursehub/internal/cache"
	"coursehub/internal/config"
	"coursehub/internal/database"
	"coursehub/internal/handlers"
	"coursehub/internal/jobs"
	"coursehub/internal/log"
	"coursehub/internal/mail"
	"coursehub/internal/queue"
	"coursehub/internal/server"
	"coursehub/internal/storage"
)

type app struct {
	logger    zerolog.Logger
	db        *pgxpool.Pool
	redis     *redis.Client
	amqp      *queue.AMQPClient
	scheduler *jobs.Scheduler
	http      *server.HTTPServer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	a := &app{logger: log.New(cfg.Environment, "")}
	ctx := context.Background()

	a.db, err = database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		a.fatal(err, "failed to connect postgres")
	}
	if err := database.Migrate(ctx, a.db); err != nil {
		a.fatal(err, "failed to migrate schema")
	}

	a.redis, err = cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		a.fatal(err, "failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		a.fatal(err, "failed to init object store")
	}
	if err := objectStore.EnsureBuckets(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("ensure buckets failed")
	}

	var publisher queue.Publisher
	switch cfg.Mail.Transport {
	case config.TransportAMQP:
		a.amqp, err = queue.NewAMQPClient(cfg.Mail.AMQPURL, cfg.Mail.Queue, a.logger)
		if err != nil {
			a.fatal(err, "failed to connect rabbitmq")
		}
		publisher = a.amqp
	default:
		publisher = queue.NewStreamPublisher(a.redis, cfg.Mail.Stream)
	}

	services := handlers.NewServices(cfg, a.logger, a.db, a.redis, objectStore, mail.NewQueueDispatcher(publisher))
	handlerSet := handlers.NewHandlerSet(a.logger, cfg, services, map[string]handlers.Check{
		"database": a.db.Ping,
		"cache":    func(ctx context.Context) error { return a.redis.Ping(ctx).Err() },
	})
	a.http = server.NewHTTPServer(cfg, a.logger, handlerSet)

	a.scheduler = jobs.NewScheduler(publisher, a.logger)
	if err := a.scheduler.Start(); err != nil {
		a.logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := a.http.Start(); err != nil {
			a.fatal(err, "http server failed")
		}
	}()

	a.waitForShutdown()
}

// fatal logs err, releases whatever was started and exits with status 1.
func (a *app) fatal(err error, msg string) {
	a.logger.Error().Err(err).Msg(msg)
	a.shutdown()
	os.Exit(1)
}

func (a *app) waitForShutdown() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	a.logger.Info().Msg("shutdown signal received")

	a.shutdown()
	a.logger.Info().Msg("server exited cleanly")
}

func (a *app) shutdown() {
	if a.http != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.http.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}

	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.amqp != nil {
		a.amqp.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis close error")
		}
	}
}

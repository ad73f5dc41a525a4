package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/app"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/auth"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/clock"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/config"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/notify"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/storage/postgres"
	transporthttp "github.com/dxaginfo/fan-meet-greet-manager-2025/internal/transport/http"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.WithError(err).Fatal("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.WithError(err).Fatal("apply migrations")
	}

	notifier := buildNotifier(cfg, logger)

	catalogRepo := postgres.NewCatalogRepository(pool)
	catalogSvc := app.NewCatalogService(catalogRepo, clock.NewSystem(), app.WithReservationTTL(cfg.ReservationTTL))
	ticketRepo := postgres.NewTicketRepository(pool)
	ledgerSvc := app.NewLedgerService(ticketRepo, catalogSvc, notifier, clock.NewSystem(), logger,
		app.WithIdempotencyRetention(cfg.IdempotencyRetention))
	eventRepo := postgres.NewEventRepository(pool)
	eventSvc := app.NewEventService(eventRepo, clock.NewSystem())

	handler := transporthttp.NewRouter(transporthttp.Services{
		Events:       eventSvc,
		Availability: catalogSvc,
		Ledger:       ledgerSvc,
	}, auth.NewJWTVerifier(cfg.JWTSecret), cfg.CORSOrigins, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	group.Go(func() error {
		logger.WithField("port", cfg.Port).Info("api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		runSweeper(groupCtx, cfg.SweepInterval, logger, "release expired reservations", catalogSvc.ReleaseExpired)
		return nil
	})
	group.Go(func() error {
		runSweeper(groupCtx, cfg.SweepInterval, logger, "purge idempotency log", ledgerSvc.PurgeIdempotencyLog)
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("server error")
	}
	logger.Info("server stopped")
}

// runSweeper runs a maintenance job on a fixed interval until ctx ends.
func runSweeper(ctx context.Context, interval time.Duration, logger logrus.FieldLogger, name string, job func(context.Context) (int, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := job(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.WithError(err).WithField("job", name).Error("sweep failed")
				}
				continue
			}
			if n > 0 {
				logger.WithField("job", name).WithField("count", n).Info("sweep done")
			}
		}
	}
}

// buildNotifier wires the realtime channel. Without a Redis address the
// service still runs; notifications are dropped.
func buildNotifier(cfg config.Config, logger logrus.FieldLogger) app.Notifier {
	if cfg.RedisAddress == "" {
		logger.Warn("REDIS_ADDRESS not set, notifications disabled")
		return notify.Nop{}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, notify.WatermillLogger(logger))
	if err != nil {
		logger.WithError(err).Fatal("create redis publisher")
	}
	return notify.NewPublisher(pub, logger)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evently/evently/internal/config"
	"github.com/evently/evently/internal/metrics"
	"github.com/evently/evently/internal/postgres"
	"github.com/evently/evently/internal/rabbit"
	"github.com/evently/evently/internal/redis"
	postgresrepo "github.com/evently/evently/internal/repository/postgres"
	redisrepo "github.com/evently/evently/internal/repository/redis"
	"github.com/evently/evently/internal/service"
	"github.com/evently/evently/internal/service/reservation"
	httpgin "github.com/evently/evently/internal/transport/http/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	store      *postgresrepo.Store
	pubsub     *redisrepo.CapacityPubSub
	notifier   *rabbit.Notifier
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redis.New(context.Background(), redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	notifier, err := rabbit.NewNotifier(rabbit.Config{URL: cfg.Rabbit.URL})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rabbitmq: %w", err)
	}

	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisrepo.NewCapacityPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(
		rdb, "rl", int(cfg.Booking.RateLimit), cfg.Booking.RateWindow,
	)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)

	services := service.NewServices(store, cache, pubsub, limiter, notifier, logger, service.Config{
		Reservation: reservation.Config{
			MaxQuantity: cfg.Booking.MaxQuantity,
		},
	})

	router := httpgin.NewRouter(services, idempotencyStore, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pubsub:   pubsub,
		notifier: notifier,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Feed the remaining-capacity gauge from capacity-changed events. The
	// subscriber reads the counters itself, so the message stays a bare
	// notification.
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, eventID uuid.UUID) {
			counts, err := a.store.Events().Counts(ctx, eventID)
			if err != nil {
				a.logger.Warn("failed to refresh capacity gauge", "event_id", eventID, "error", err)
				return
			}
			metrics.RemainingCapacity.
				WithLabelValues(eventID.String()).
				Set(float64(counts.RemainingCapacity))
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.httpServer.Shutdown(ctx); err != nil {
			return err
		}

		return a.notifier.Close()
	})

	return g.Wait()
}

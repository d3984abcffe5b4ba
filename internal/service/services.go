package service

import (
	"log/slog"

	"github.com/evently/evently/internal/rabbit"
	postgres "github.com/evently/evently/internal/repository/postgres"
	redis "github.com/evently/evently/internal/repository/redis"
	"github.com/evently/evently/internal/service/admin"
	"github.com/evently/evently/internal/service/checkin"
	"github.com/evently/evently/internal/service/query"
	"github.com/evently/evently/internal/service/reservation"
)

type Services struct {
	Reservation *reservation.Service
	Checkin     *checkin.Service
	Query       *query.Service
	Admin       *admin.Service
}

type Config struct {
	Reservation reservation.Config
	Query       query.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.CapacityPubSub,
	limiter *redis.SlidingWindowLimiter,
	notifier *rabbit.Notifier,
	logger *slog.Logger,
	cfg Config,
) *Services {
	return &Services{
		Reservation: reservation.New(store, notifier, limiter, cache, pubsub, logger, cfg.Reservation),
		Checkin:     checkin.New(store),
		Query:       query.New(store, cache, cfg.Query),
		Admin:       admin.New(store, cache, logger),
	}
}

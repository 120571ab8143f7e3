// Package bootstrap wires the shared runtime used by the bot and the admin tool.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/hackbot/internal/discord"
	"github.com/angelmondragon/hackbot/internal/registrations"
	"github.com/angelmondragon/hackbot/internal/roster"
	"github.com/angelmondragon/hackbot/internal/teams"
	"github.com/angelmondragon/hackbot/pkg/config"
	"github.com/angelmondragon/hackbot/pkg/db"
	"github.com/angelmondragon/hackbot/pkg/logger"
	"github.com/angelmondragon/hackbot/pkg/metrics"
	"github.com/angelmondragon/hackbot/pkg/migrate"
	"github.com/angelmondragon/hackbot/pkg/outbound"
	"github.com/angelmondragon/hackbot/pkg/pubsub"
	"github.com/angelmondragon/hackbot/pkg/ratelimit"
	"github.com/angelmondragon/hackbot/pkg/redis"
)

// Params configures Build. Audit may be nil when no audit channel mirror is wanted.
type Params struct {
	Config *config.Config
	Logger *logger.Logger
	Audit  *discord.AuditWriter
}

// Runtime holds every long-lived client and service of a process.
type Runtime struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            *db.Client
	Redis         *redis.Client
	PubSub        *pubsub.Client
	Registry      *prometheus.Registry
	Metrics       *metrics.RegistrationMetrics
	Outbound      *outbound.Executor
	Resolver      *roster.Resolver
	Bot           *discord.Bot
	Teams         teams.Service
	Registrations registrations.Service

	closers []func() error
}

// Build connects the stores and constructs the services. The gateway session is
// created but not opened.
func Build(ctx context.Context, params Params) (rt *Runtime, err error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	cfg := params.Config
	logg := params.Logger

	rt = &Runtime{Config: cfg, Logger: logg}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	rt.DB, err = db.New(ctx, cfg.DB, logg)
	if err != nil {
		return rt, fmt.Errorf("bootstrap database: %w", err)
	}
	rt.closers = append(rt.closers, rt.DB.Close)

	if err = migrate.MaybeRunDev(ctx, cfg, logg, rt.DB); err != nil {
		return rt, fmt.Errorf("dev migrations: %w", err)
	}

	if cfg.Redis.Enabled() {
		rt.Redis, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return rt, fmt.Errorf("bootstrap redis: %w", err)
		}
		rt.closers = append(rt.closers, rt.Redis.Close)
	}

	limiter, err := newLimiter(cfg.Registration, rt.Redis)
	if err != nil {
		return rt, err
	}

	rt.Resolver, err = roster.New(cfg.Registration.Teams, cfg.Registration.FuzzyThreshold)
	if err != nil {
		return rt, fmt.Errorf("build team resolver: %w", err)
	}

	rt.Registry = prometheus.NewRegistry()
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rt.Metrics = metrics.NewRegistrationMetrics(rt.Registry)

	rt.Outbound = outbound.New(cfg.Outbound,
		outbound.WithClassifier(discord.Retryable),
		outbound.WithRecorder(rt.Metrics),
		outbound.WithLogger(logg),
	)

	rt.Bot, err = discord.New(cfg.Discord, rt.Outbound, params.Audit, logg)
	if err != nil {
		return rt, fmt.Errorf("bootstrap discord: %w", err)
	}
	rt.closers = append(rt.closers, rt.Bot.Close)

	teamRepo := teams.NewRepository(rt.DB.DB())
	rt.Teams, err = teams.NewService(teamRepo, rt.Resolver, logg)
	if err != nil {
		return rt, fmt.Errorf("build team service: %w", err)
	}

	deps := registrations.Deps{
		Tx:       rt.DB,
		Repo:     registrations.NewRepository(rt.DB.DB()),
		Teams:    teamRepo,
		Limiter:  limiter,
		Resolver: rt.Resolver,
		Notifier: rt.Bot.Notifier(),
		Access:   rt.Bot.Access(),
		Voice:    rt.Bot.Access(),
		Metrics:  rt.Metrics,
		Logger:   logg,
	}
	if cfg.PubSub.Enabled() {
		rt.PubSub, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return rt, fmt.Errorf("bootstrap pubsub: %w", err)
		}
		rt.closers = append(rt.closers, rt.PubSub.Close)

		events, perr := pubsub.NewEventPublisher(rt.PubSub.EventsPublisher())
		if perr != nil {
			err = fmt.Errorf("build event publisher: %w", perr)
			return rt, err
		}
		deps.Events = events
	}

	rt.Registrations, err = registrations.NewService(deps)
	if err != nil {
		return rt, fmt.Errorf("build registration service: %w", err)
	}
	return rt, nil
}

// Close releases clients in reverse order of creation.
func (rt *Runtime) Close() error {
	var errs error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errs
}

func newLimiter(cfg config.RegistrationConfig, client *redis.Client) (ratelimit.Limiter, error) {
	if !cfg.UsesRedisLimiter() {
		return ratelimit.NewMemoryLimiter(cfg.Cooldown), nil
	}
	if client == nil {
		return nil, fmt.Errorf("%s=%s needs redis to be configured", config.EnvRegistrationLimiter, config.LimiterRedis)
	}
	return ratelimit.NewRedisLimiter(client, cfg.Cooldown)
}

package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/hackbot/api/controllers"
	"github.com/angelmondragon/hackbot/api/middleware"
	"github.com/angelmondragon/hackbot/internal/registrations"
	"github.com/angelmondragon/hackbot/internal/teams"
	"github.com/angelmondragon/hackbot/pkg/config"
	"github.com/angelmondragon/hackbot/pkg/logger"
	pkgredis "github.com/angelmondragon/hackbot/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps collects what the admin api needs. Redis and Idempotency may be nil when
// redis is not configured.
type Deps struct {
	DB            pinger
	Redis         pinger
	Idempotency   pkgredis.IdempotencyStore
	Gatherer      prometheus.Gatherer
	Registrations registrations.Service
	Teams         teams.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/teams", controllers.TeamList(deps.Teams, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Admin, logg))
		r.Use(middleware.RequireModerator(logg))

		// route-level so the idempotency rules see the full route pattern
		idem := middleware.Idempotency(deps.Idempotency, logg)
		r.Route("/registrations", func(r chi.Router) {
			r.Get("/", controllers.RegistrationStats(deps.Registrations, logg))
			r.With(idem).Post("/{userId}/approve", controllers.RegistrationApprove(deps.Registrations, logg))
			r.With(idem).Post("/{userId}/reject", controllers.RegistrationReject(deps.Registrations, logg))
		})
	})

	return r
}

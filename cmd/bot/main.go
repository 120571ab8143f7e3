package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/hackbot/api/routes"
	"github.com/angelmondragon/hackbot/internal/bootstrap"
	"github.com/angelmondragon/hackbot/internal/discord"
	"github.com/angelmondragon/hackbot/pkg/config"
	"github.com/angelmondragon/hackbot/pkg/env"
	"github.com/angelmondragon/hackbot/pkg/instance"
	"github.com/angelmondragon/hackbot/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always runs.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: "bot"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return resourceFailed(ctx, logg, "config", err)
	}

	audit := discord.NewAuditWriter()
	logg = logger.New(logger.Options{
		ServiceName: "bot",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Mirror:      audit,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})

	rt, err := bootstrap.Build(ctx, bootstrap.Params{Config: cfg, Logger: logg, Audit: audit})
	if err != nil {
		return resourceFailed(ctx, logg, "runtime", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logg.Error(context.Background(), "error closing runtime", err)
		}
	}()

	if seeded, err := rt.Teams.Seed(ctx); err != nil {
		logg.WarnErr(ctx, "team seed failed", err)
	} else if seeded > 0 {
		logg.Info(logg.WithField(ctx, "seeded", seeded), "teams seeded from roster")
	}

	router, err := rt.Bot.NewRouter(discord.RouterDeps{
		Registrations: rt.Registrations,
		Teams:         rt.Teams,
		DB:            rt.DB,
	})
	if err != nil {
		return resourceFailed(ctx, logg, "interaction router", err)
	}

	go audit.Run(ctx)

	if err := rt.Bot.Open(ctx, router); err != nil {
		return resourceFailed(ctx, logg, "discord session", err)
	}

	deps := routes.Deps{
		DB:            rt.DB,
		Gatherer:      rt.Registry,
		Registrations: rt.Registrations,
		Teams:         rt.Teams,
	}
	if rt.Redis != nil {
		deps.Redis = rt.Redis
		deps.Idempotency = rt.Redis
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info(logg.WithField(ctx, "addr", addr), "starting admin api")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "admin api stopped unexpectedly", err)
			stop()
		}
	}()

	logg.Info(ctx, "bot running")
	<-ctx.Done()
	logg.Info(context.Background(), "bot shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "admin api shutdown failed", err)
		return 1
	}
	return 0
}

func resourceFailed(ctx context.Context, logg *logger.Logger, resource string, err error) int {
	logg.Error(logg.WithField(ctx, "resource", resource), "failed to initialize "+resource, err)
	return 1
}

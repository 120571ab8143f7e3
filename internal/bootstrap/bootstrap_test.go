package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/hackbot/pkg/config"
	"github.com/angelmondragon/hackbot/pkg/logger"
	"github.com/angelmondragon/hackbot/pkg/ratelimit"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		DB: config.DBConfig{
			Driver: config.DriverSQLite,
			DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		},
		Discord: config.DiscordConfig{Token: "test-token", GuildID: "guild-1"},
		Registration: config.RegistrationConfig{
			LimiterBackend: config.LimiterMemory,
			FuzzyThreshold: 0.6,
			Teams:          []string{"Phoenix", "Code Crusaders"},
		},
		Outbound: config.OutboundConfig{RequestsPerSecond: 5, Burst: 1},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test-bootstrap", Output: io.Discard})
}

func TestNewLimiterSelectsBackend(t *testing.T) {
	limiter, err := newLimiter(config.RegistrationConfig{LimiterBackend: config.LimiterMemory}, nil)
	require.NoError(t, err)
	require.IsType(t, &ratelimit.MemoryLimiter{}, limiter)

	_, err = newLimiter(config.RegistrationConfig{LimiterBackend: config.LimiterRedis}, nil)
	require.Error(t, err)
}

func TestBuildWiresServicesWithoutRedis(t *testing.T) {
	rt, err := Build(context.Background(), Params{Config: testConfig(t), Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close()) })

	require.Nil(t, rt.Redis)
	require.Nil(t, rt.PubSub)
	require.NotNil(t, rt.Registrations)
	require.Equal(t, []string{"Phoenix", "Code Crusaders"}, rt.Teams.Roster())
	require.NoError(t, rt.DB.Ping(context.Background()))
}

func TestBuildFailsOnRedisLimiterWithoutRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Registration.LimiterBackend = config.LimiterRedis

	rt, err := Build(context.Background(), Params{Config: cfg, Logger: testLogger()})
	require.Error(t, err)
	require.Nil(t, rt)
}

func TestBuildRequiresConfig(t *testing.T) {
	_, err := Build(context.Background(), Params{Logger: testLogger()})
	require.Error(t, err)
}

func TestCloseRunsEveryCloserAndCombinesErrors(t *testing.T) {
	var order []string
	errRedis := errors.New("redis close failed")
	errDB := errors.New("db close failed")
	rt := &Runtime{closers: []func() error{
		func() error { order = append(order, "db"); return errDB },
		func() error { order = append(order, "pubsub"); return nil },
		func() error { order = append(order, "redis"); return errRedis },
	}}

	err := rt.Close()
	require.Equal(t, []string{"redis", "pubsub", "db"}, order)
	require.ErrorIs(t, err, errRedis)
	require.ErrorIs(t, err, errDB)
	require.Len(t, multierr.Errors(err), 2)
	require.NoError(t, rt.Close())
}

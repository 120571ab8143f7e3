package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Discord      DiscordConfig
	Registration RegistrationConfig
	Outbound     OutboundConfig
	Admin        AdminConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Registration.loadRoster(); err != nil {
		return nil, err
	}
	if err := cfg.Registration.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HACKBOT_APP_ENV" required:"true"`
	Port         string `envconfig:"HACKBOT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"HACKBOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HACKBOT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HACKBOT_DB_DSN"`
	Driver string `envconfig:"HACKBOT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HACKBOT_DB_HOST"`
	LegacyPort     int    `envconfig:"HACKBOT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HACKBOT_DB_USER"`
	LegacyPassword string `envconfig:"HACKBOT_DB_PASSWORD"`
	LegacyName     string `envconfig:"HACKBOT_DB_NAME"`
	LegacySSLMode  string `envconfig:"HACKBOT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HACKBOT_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"HACKBOT_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"HACKBOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HACKBOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	QueryTimeout    time.Duration `envconfig:"HACKBOT_DB_QUERY_TIMEOUT" default:"5s"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"HACKBOT_REDIS_URL"`
	Address      string        `envconfig:"HACKBOT_REDIS_ADDR"`
	Password     string        `envconfig:"HACKBOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"HACKBOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HACKBOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HACKBOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HACKBOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HACKBOT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"HACKBOT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type DiscordConfig struct {
	Token              string `envconfig:"HACKBOT_DISCORD_TOKEN" required:"true"`
	GuildID            string `envconfig:"HACKBOT_DISCORD_GUILD_ID" required:"true"`
	ApplicationID      string `envconfig:"HACKBOT_DISCORD_APPLICATION_ID"`
	ModLogChannel      string `envconfig:"HACKBOT_DISCORD_MOD_LOG_CHANNEL" default:"mod-log"`
	AuditChannel       string `envconfig:"HACKBOT_DISCORD_AUDIT_CHANNEL" default:"bot-audit"`
	ModeratorRole      string `envconfig:"HACKBOT_DISCORD_MODERATOR_ROLE" default:"Moderator"`
	ParticipantRoleID  string `envconfig:"HACKBOT_DISCORD_PARTICIPANT_ROLE_ID"`
	TeamRolePrefix     string `envconfig:"HACKBOT_DISCORD_TEAM_ROLE_PREFIX" default:"Team-"`
	VoiceChannelPrefix string `envconfig:"HACKBOT_DISCORD_VOICE_CHANNEL_PREFIX" default:"🔊 "`
	WelcomeDM          bool   `envconfig:"HACKBOT_DISCORD_WELCOME_DM" default:"true"`
}

type RegistrationConfig struct {
	Cooldown       time.Duration `envconfig:"HACKBOT_REGISTRATION_COOLDOWN" default:"60s"`
	LimiterBackend string        `envconfig:"HACKBOT_REGISTRATION_LIMITER" default:"memory"`
	FuzzyThreshold float64       `envconfig:"HACKBOT_REGISTRATION_FUZZY_THRESHOLD" default:"0.6"`
	Teams          []string      `envconfig:"HACKBOT_REGISTRATION_TEAMS"`
	TeamsFile      string        `envconfig:"HACKBOT_REGISTRATION_TEAMS_FILE"`
}

// UsesRedisLimiter reports whether the cooldown map should live in redis.
func (r RegistrationConfig) UsesRedisLimiter() bool {
	return strings.EqualFold(strings.TrimSpace(r.LimiterBackend), LimiterRedis)
}

func (r *RegistrationConfig) loadRoster() error {
	entries := append([]string{}, r.Teams...)
	if r.TeamsFile != "" {
		raw, err := os.ReadFile(r.TeamsFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", EnvRegistrationTeamsFile, err)
		}
		entries = append(entries, strings.Split(string(raw), "\n")...)
	}

	r.Teams = r.Teams[:0]
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		r.Teams = append(r.Teams, entry)
	}
	return nil
}

func (r RegistrationConfig) validate() error {
	if len(r.Teams) == 0 {
		return fmt.Errorf("either %s or %s is required", EnvRegistrationTeams, EnvRegistrationTeamsFile)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("%s must not be negative", EnvRegistrationCooldown)
	}
	if r.FuzzyThreshold <= 0 || r.FuzzyThreshold > 1 {
		return fmt.Errorf("%s must be in (0, 1]", EnvRegistrationThreshold)
	}
	switch strings.ToLower(strings.TrimSpace(r.LimiterBackend)) {
	case LimiterMemory, LimiterRedis:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvRegistrationLimiter, LimiterMemory, LimiterRedis)
	}
	return nil
}

type OutboundConfig struct {
	RequestsPerSecond float64       `envconfig:"HACKBOT_OUTBOUND_RPS" default:"2.5"`
	Burst             int           `envconfig:"HACKBOT_OUTBOUND_BURST" default:"3"`
	MaxRetries        uint          `envconfig:"HACKBOT_OUTBOUND_MAX_RETRIES" default:"4"`
	MaxElapsed        time.Duration `envconfig:"HACKBOT_OUTBOUND_MAX_ELAPSED" default:"15s"`
	CallTimeout       time.Duration `envconfig:"HACKBOT_OUTBOUND_CALL_TIMEOUT" default:"10s"`
}

type AdminConfig struct {
	JWTSecret         string `envconfig:"HACKBOT_ADMIN_JWT_SECRET"`
	JWTIssuer         string `envconfig:"HACKBOT_ADMIN_JWT_ISSUER" default:"hackbot"`
	ExpirationMinutes int    `envconfig:"HACKBOT_ADMIN_JWT_EXPIRATION_MINUTES" default:"720"`
}

// Enabled reports whether the moderation endpoints of the admin api can authenticate callers.
func (a AdminConfig) Enabled() bool {
	return strings.TrimSpace(a.JWTSecret) != ""
}

type GCPConfig struct {
	ProjectID string `envconfig:"HACKBOT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	EventsTopic string `envconfig:"HACKBOT_PUBSUB_EVENTS_TOPIC"`
}

// Enabled reports whether lifecycle events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.EventsTopic) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HACKBOT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:hackbot.db?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

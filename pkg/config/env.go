package config

const EnvPrefix = "HACKBOT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

const (
	EnvAppEnv = "HACKBOT_APP_ENV"
	EnvPort   = "HACKBOT_APP_PORT"

	EnvDBDSN    = "HACKBOT_DB_DSN"
	EnvDBDriver = "HACKBOT_DB_DRIVER"
	EnvDBHost   = "HACKBOT_DB_HOST"
	EnvDBUser   = "HACKBOT_DB_USER"
	EnvDBName   = "HACKBOT_DB_NAME"

	EnvRedisURL = "HACKBOT_REDIS_URL"

	EnvDiscordToken   = "HACKBOT_DISCORD_TOKEN"
	EnvDiscordGuildID = "HACKBOT_DISCORD_GUILD_ID"

	EnvRegistrationCooldown  = "HACKBOT_REGISTRATION_COOLDOWN"
	EnvRegistrationLimiter   = "HACKBOT_REGISTRATION_LIMITER"
	EnvRegistrationThreshold = "HACKBOT_REGISTRATION_FUZZY_THRESHOLD"
	EnvRegistrationTeams     = "HACKBOT_REGISTRATION_TEAMS"
	EnvRegistrationTeamsFile = "HACKBOT_REGISTRATION_TEAMS_FILE"

	EnvAdminJWTSecret    = "HACKBOT_ADMIN_JWT_SECRET"
	EnvPubSubEventsTopic = "HACKBOT_PUBSUB_EVENTS_TOPIC"
	EnvGCPProjectID      = "HACKBOT_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

const (
	EnvAPIBaseURL = "API_BASE_URL"
	EnvAPITimeout = "API_TIMEOUT"

	EnvPort           = "PORT"
	EnvLogLevel       = "LOG_LEVEL"
	EnvClinicTimeZone = "CLINIC_TIME_ZONE"

	EnvSessionStore = "SESSION_STORE"
	EnvSessionTTL   = "SESSION_TTL"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvDirectoryRefreshSchedule = "DIRECTORY_REFRESH_SCHEDULE"
	EnvSessionSweepSchedule     = "SESSION_SWEEP_SCHEDULE"

	EnvEventsEnabled = "EVENTS_ENABLED"
	EnvEventsTopic   = "EVENTS_TOPIC"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)

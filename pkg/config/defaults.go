package config

import "time"

const (
	DefaultAPIBaseURL = "http://localhost:8000/api"
	DefaultAPITimeout = 30 * time.Second

	DefaultPort           = "8090"
	DefaultLogLevel       = "info"
	DefaultClinicTimeZone = "Local"

	SessionStoreMemory = "memory"
	SessionStoreMongo  = "mongo"

	DefaultSessionStore = SessionStoreMemory
	DefaultSessionTTL   = 2 * time.Hour

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "medassist"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultDirectoryRefreshSchedule = "@every 5m"
	DefaultSessionSweepSchedule     = "@every 10m"

	DefaultEventsEnabled = false
	DefaultEventsTopic   = "clinic.appointments"

	// The server-side budget has to outlive a full backend call.
	DefaultRequestTimeout = 35 * time.Second
	DefaultMaxRequestSize = 64 * 1024
	DefaultIdempotencyTTL = 24 * time.Hour

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = time.Minute

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 40 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

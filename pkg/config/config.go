package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"medassist/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	APIBaseURL string
	APITimeout time.Duration

	Port           string
	LogLevel       string
	ClinicTimeZone string
	Location       *time.Location

	SessionStore string
	SessionTTL   time.Duration

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	DirectoryRefreshSchedule string
	SessionSweepSchedule     string

	EventsEnabled bool
	EventsTopic   string

	RequestTimeout time.Duration
	MaxRequestSize int
	IdempotencyTTL time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log *logger.Logger
}

// Load reads .env (when present) and the process environment, validates the
// result and exits on invalid configuration.
func Load(serviceName string) *Config {
	envErr := loadDotEnv()

	cfg := FromEnv()
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})

	if envErr != nil {
		cfg.Log.Warn("Could not read .env file", "error", envErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from the environment without validating it or
// attaching a logger.
func FromEnv() *Config {
	return &Config{
		APIBaseURL: strings.TrimRight(getEnvStr(EnvAPIBaseURL, DefaultAPIBaseURL), "/"),
		APITimeout: getEnvDuration(EnvAPITimeout, DefaultAPITimeout),

		Port:           getEnvStr(EnvPort, DefaultPort),
		LogLevel:       getEnvStr(EnvLogLevel, DefaultLogLevel),
		ClinicTimeZone: getEnvStr(EnvClinicTimeZone, DefaultClinicTimeZone),

		SessionStore: strings.ToLower(getEnvStr(EnvSessionStore, DefaultSessionStore)),
		SessionTTL:   getEnvDuration(EnvSessionTTL, DefaultSessionTTL),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		DirectoryRefreshSchedule: getEnvStr(EnvDirectoryRefreshSchedule, DefaultDirectoryRefreshSchedule),
		SessionSweepSchedule:     getEnvStr(EnvSessionSweepSchedule, DefaultSessionSweepSchedule),

		EventsEnabled: getEnvBool(EnvEventsEnabled, DefaultEventsEnabled),
		EventsTopic:   getEnvStr(EnvEventsTopic, DefaultEventsTopic),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),
	}
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Validate checks every setting and reports all problems at once. It also
// resolves ClinicTimeZone into Location.
func (cfg *Config) Validate() error {
	var errors []string

	if u, err := url.Parse(cfg.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("APIBaseURL must be an absolute http(s) URL, got: %s", cfg.APIBaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("APIBaseURL scheme must be http or https, got: %s", u.Scheme))
	}
	if cfg.APITimeout <= 0 {
		errors = append(errors, fmt.Sprintf("APITimeout must be positive, got: %s", cfg.APITimeout))
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.LogLevel {
	case logger.DEBUG, logger.INFO, logger.WARN, logger.ERROR:
	default:
		errors = append(errors, fmt.Sprintf("LogLevel must be one of [debug, info, warn, error], got: %s", cfg.LogLevel))
	}

	if loc, err := time.LoadLocation(cfg.ClinicTimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("ClinicTimeZone is not a known time zone: %s", cfg.ClinicTimeZone))
	} else {
		cfg.Location = loc
	}

	switch cfg.SessionStore {
	case SessionStoreMemory:
	case SessionStoreMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty when SessionStore is mongo")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty when SessionStore is mongo")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	default:
		errors = append(errors, fmt.Sprintf("SessionStore must be one of [memory, mongo], got: %s", cfg.SessionStore))
	}
	if cfg.SessionTTL <= 0 {
		errors = append(errors, fmt.Sprintf("SessionTTL must be positive, got: %s", cfg.SessionTTL))
	}

	if _, err := cron.ParseStandard(cfg.DirectoryRefreshSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("DirectoryRefreshSchedule is not a valid cron spec: %q (%v)", cfg.DirectoryRefreshSchedule, err))
	}
	if _, err := cron.ParseStandard(cfg.SessionSweepSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("SessionSweepSchedule is not a valid cron spec: %q (%v)", cfg.SessionSweepSchedule, err))
	}

	if cfg.EventsEnabled && cfg.EventsTopic == "" {
		errors = append(errors, "EventsTopic cannot be empty when events are enabled")
	}

	if cfg.RequestTimeout <= cfg.APITimeout {
		errors = append(errors, fmt.Sprintf("RequestTimeout (%s) must exceed APITimeout (%s)", cfg.RequestTimeout, cfg.APITimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= cfg.APITimeout {
		errors = append(errors, fmt.Sprintf("WriteTimeout (%s) must exceed APITimeout (%s)", cfg.WriteTimeout, cfg.APITimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"api_base_url", cfg.APIBaseURL,
		"api_timeout", cfg.APITimeout,
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"clinic_time_zone", cfg.ClinicTimeZone,
		"session_store", cfg.SessionStore,
		"session_ttl", cfg.SessionTTL,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"directory_refresh_schedule", cfg.DirectoryRefreshSchedule,
		"session_sweep_schedule", cfg.SessionSweepSchedule,
		"events_enabled", cfg.EventsEnabled,
		"events_topic", cfg.EventsTopic,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

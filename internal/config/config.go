package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Business     BusinessHoursConfig
	SLAPolicy    SLAPolicy
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr                     string
	Password                 string
	DB                       int
	AnalyticsCacheTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// BusinessHoursConfig defines the working window used for SLA math.
type BusinessHoursConfig struct {
	Timezone     string
	DayStartHour int
	DayEndHour   int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	business := BusinessHoursConfig{
		Timezone:     getEnv("BUSINESS_TIMEZONE", "UTC"),
		DayStartHour: getEnvAsInt("BUSINESS_DAY_START_HOUR", 8),
		DayEndHour:   getEnvAsInt("BUSINESS_DAY_END_HOUR", 17),
	}
	if err := business.Validate(); err != nil {
		return nil, err
	}

	policy := DefaultSLAPolicy()
	if path := os.Getenv("SLA_POLICY_FILE"); path != "" {
		loaded, err := LoadSLAPolicy(path)
		if err != nil {
			return nil, err
		}
		policy = *loaded
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "logistics-ticketing"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:                     os.Getenv("REDIS_ADDR"),
			Password:                 os.Getenv("REDIS_PASSWORD"),
			DB:                       redisDB,
			AnalyticsCacheTTLSeconds: getEnvAsInt("REDIS_ANALYTICS_CACHE_TTL_SECONDS", 300),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Business:  business,
		SLAPolicy: policy,
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AnalyticsCacheTTL returns how long analytics results stay cached.
func (r RedisConfig) AnalyticsCacheTTL() time.Duration {
	if r.AnalyticsCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.AnalyticsCacheTTLSeconds) * time.Second
}

// Validate checks the business window and timezone.
func (b BusinessHoursConfig) Validate() error {
	if b.DayStartHour < 0 || b.DayEndHour > 24 || b.DayStartHour >= b.DayEndHour {
		return fmt.Errorf("invalid business hours %d-%d", b.DayStartHour, b.DayEndHour)
	}
	if _, err := time.LoadLocation(b.Timezone); err != nil {
		return fmt.Errorf("invalid BUSINESS_TIMEZONE: %w", err)
	}
	return nil
}

// Location resolves the configured timezone, falling back to UTC.
func (b BusinessHoursConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
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
	Events       EventsConfig
	Notification NotificationConfig
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
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	// ConnectAttempts bounds startup retries while the database comes up.
	ConnectAttempts int
	ApplicationName string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	PoolSize       int
	TimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	RequireSpecialChar    bool
	AdminIDs              []string
}

// EventsConfig selects and tunes event transports.
type EventsConfig struct {
	ServiceID             string
	KafkaBrokers          []string
	KafkaClientID         string
	KafkaMaxAttempts      int
	RedisStreams          bool
	RedisStreamMaxLen     int64
	Shards                int
	BufferSize            int
	PublishTimeoutSeconds int
}

// NotificationConfig holds stub notification settings.
type NotificationConfig struct {
	EmailFrom string
	Workers   int
	QueueSize int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	env := getEnv("APP_ENV", "development")
	appName := getEnv("APP_NAME", "user-service")
	cfg := &Config{
		App: AppConfig{
			Name:                  appName,
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8081"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:   getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
			ApplicationName: appName,
		},
		Redis: RedisConfig{
			Addr:           os.Getenv("REDIS_ADDR"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			PoolSize:       getEnvAsInt("REDIS_POOL_SIZE", 10),
			TimeoutSeconds: getEnvAsInt("REDIS_TIMEOUT_SECONDS", 3),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: env == "development",
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			RequireSpecialChar:    getEnvAsBool("AUTH_REQUIRE_SPECIAL_CHAR", false),
			AdminIDs:              getEnvAsList("AUTH_ADMIN_IDS"),
		},
		Events: EventsConfig{
			ServiceID:             getEnv("EVENTS_SERVICE_ID", "user-service"),
			KafkaBrokers:          getEnvAsList("EVENTS_KAFKA_BROKERS"),
			KafkaClientID:         getEnv("EVENTS_KAFKA_CLIENT_ID", "user-service"),
			KafkaMaxAttempts:      getEnvAsInt("EVENTS_KAFKA_MAX_ATTEMPTS", 3),
			RedisStreams:          getEnvAsBool("EVENTS_REDIS_STREAMS", false),
			RedisStreamMaxLen:     int64(getEnvAsInt("EVENTS_REDIS_STREAM_MAXLEN", 100000)),
			Shards:                getEnvAsInt("EVENTS_SHARDS", 4),
			BufferSize:            getEnvAsInt("EVENTS_BUFFER_SIZE", 256),
			PublishTimeoutSeconds: getEnvAsInt("EVENTS_PUBLISH_TIMEOUT_SECONDS", 5),
		},
		Notification: NotificationConfig{
			EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "noreply@booking.example.com"),
			Workers:   getEnvAsInt("NOTIFY_WORKERS", 2),
			QueueSize: getEnvAsInt("NOTIFY_QUEUE_SIZE", 128),
		},
	}

	if env == "production" && cfg.Auth.JWTSecret == "dev-secret" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must be set in production")
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

// Timeout returns the dial, read and write timeout for Redis commands.
func (r RedisConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// PublishTimeout returns the per-message delivery timeout.
func (e EventsConfig) PublishTimeout() time.Duration {
	if e.PublishTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(e.PublishTimeoutSeconds) * time.Second
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

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

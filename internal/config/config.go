package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mode values for APP_MODE.
const (
	ModeProduction = "PRODUCTION"
	ModeDemo       = "DEMO"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Mode                  string
	Host                  string
	Port                  string
	Version               string
	PublicURL             string
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
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Encoding    string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// EmailConfig configures outbound mail. An empty SMTPHost logs mail instead of sending it.
type EmailConfig struct {
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	From               string
	FromName           string
	AdminEmail         string
	SendTimeoutSeconds int
}

// RateLimitConfig bounds ticket creation per principal.
type RateLimitConfig struct {
	Enabled          bool
	TicketsPerMinute int
	TicketsPerHour   int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	mode := strings.ToUpper(getEnv("APP_MODE", ModeProduction))
	if mode != ModeProduction && mode != ModeDemo {
		return nil, fmt.Errorf("invalid APP_MODE %q", mode)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Mode:                  mode,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			PublicURL:             getEnv("APP_PUBLIC_URL", "http://localhost:3000"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: strings.ToLower(getEnv("LOG_ENCODING", "json")),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Email: EmailConfig{
			SMTPHost:           os.Getenv("SMTP_HOST"),
			SMTPPort:           getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:           os.Getenv("SMTP_USER"),
			SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
			From:               getEnv("EMAIL_FROM", "noreply@example.com"),
			FromName:           getEnv("EMAIL_FROM_NAME", "Support Desk"),
			AdminEmail:         os.Getenv("ADMIN_EMAIL"),
			SendTimeoutSeconds: getEnvAsInt("EMAIL_SEND_TIMEOUT_SECONDS", 10),
		},
		RateLimit: RateLimitConfig{
			Enabled:          getEnvAsBool("RATE_LIMIT_ENABLED", true),
			TicketsPerMinute: getEnvAsInt("RATE_LIMIT_TICKETS_PER_MINUTE", 5),
			TicketsPerHour:   getEnvAsInt("RATE_LIMIT_TICKETS_PER_HOUR", 60),
		},
	}

	cfg.Logger.Development = cfg.App.Env != "production"

	if cfg.App.Mode == ModeDemo && cfg.Email.AdminEmail == "" {
		return nil, fmt.Errorf("ADMIN_EMAIL is required when APP_MODE=%s", ModeDemo)
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

// IsDemo reports whether outbound mail is rerouted to the admin mailbox.
func (a AppConfig) IsDemo() bool {
	return a.Mode == ModeDemo
}

// SendTimeout bounds a single notification delivery.
func (e EmailConfig) SendTimeout() time.Duration {
	if e.SendTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.SendTimeoutSeconds) * time.Second
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

package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewCountryRulesHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIKeyEnabled bool
	APIKeyHeader  string
	APIKey        string

	RateLimitEnabled   bool
	RateLimitPerMinute int
	RateLimitBurst     int

	IDPrefix          string
	IDSequencePadding int

	IdempotencyTTL time.Duration

	Workflow WorkflowConfig
	Webhook  WebhookConfig
}

// WorkflowConfig selects and configures the process starter.
type WorkflowConfig struct {
	Mode         string // demo | zeebe
	GatewayURL   string
	AuthToken    string
	ProcessID    string
	StartTimeout time.Duration
}

// WebhookConfig configures outbound case-created notifications.
type WebhookConfig struct {
	Enabled    bool
	URL        string
	Secret     string
	Timeout    time.Duration
	RetryCount int
}

const (
	WorkflowModeDemo  = "demo"
	WorkflowModeZeebe = "zeebe"
)

func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("skipping .env: %v", err)
	}

	cfg := Config{
		AppName:     getenv("APP_NAME", "fnol"),
		AppVersion:  getenv("APP_VERSION", "dev"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		DBType:            getenv("DB_TYPE", "postgres"),
		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            getenv("DB_PORT", "5432"),
		DBName:            getenv("DB_NAME", "fnol"),
		DBUser:            getenv("DB_USER", "fnol"),
		DBPassword:        getenv("DB_PASSWORD", ""),
		DBSSLMode:         getenv("DB_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DB_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DB_MAX_OPEN_CONN", 25)),
		DBConnMaxLifetime: int(getenvInt64("DB_CONN_MAX_LIFETIME", 1800)),
		DBConnMaxIdleTime: int(getenvInt64("DB_CONN_MAX_IDLE_TIME", 300)),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       int(getenvInt64("REDIS_DB", 0)),

		APIKeyEnabled: getenvBool("API_KEY_ENABLED", false),
		APIKeyHeader:  getenv("API_KEY_HEADER", "X-API-Key"),
		APIKey:        getenv("API_KEY", ""),

		RateLimitEnabled:   getenvBool("RATE_LIMIT_ENABLED", false),
		RateLimitPerMinute: int(getenvInt64("RATE_LIMIT_PER_MINUTE", 30)),
		RateLimitBurst:     int(getenvInt64("RATE_LIMIT_BURST", 10)),

		IDPrefix:          getenv("FNOL_ID_PREFIX", "FNOL"),
		IDSequencePadding: int(getenvInt64("FNOL_ID_SEQUENCE_PADDING", 6)),

		IdempotencyTTL: getenvDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		Workflow: WorkflowConfig{
			Mode:         normalizeWorkflowMode(getenv("WORKFLOW_MODE", WorkflowModeDemo)),
			GatewayURL:   getenv("ZEEBE_GATEWAY_URL", "http://localhost:8088"),
			AuthToken:    getenv("ZEEBE_AUTH_TOKEN", ""),
			ProcessID:    getenv("WORKFLOW_PROCESS_ID", "gcc-motor-fnol-process"),
			StartTimeout: getenvDuration("WORKFLOW_START_TIMEOUT", 10*time.Second),
		},
		Webhook: WebhookConfig{
			Enabled:    getenvBool("WEBHOOK_ENABLED", false),
			URL:        getenv("WEBHOOK_URL", ""),
			Secret:     getenv("WEBHOOK_SECRET", ""),
			Timeout:    getenvDuration("WEBHOOK_TIMEOUT", 5*time.Second),
			RetryCount: int(getenvInt64("WEBHOOK_RETRY_COUNT", 3)),
		},
	}

	if cfg.IDSequencePadding < 4 || cfg.IDSequencePadding > 10 {
		cfg.IDSequencePadding = 6
	}

	return cfg
}

func normalizeWorkflowMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case WorkflowModeZeebe, "self-managed", "saas":
		return WorkflowModeZeebe
	default:
		return WorkflowModeDemo
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string   `env:"PORT" envDefault:"8080"`
	Env             string   `env:"ENV" envDefault:"dev"`
	CORSAllowOrigin []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	DatabaseURL     string   `env:"DATABASE_URL"`
	DB              DBPool   `envPrefix:"DB_"`

	ObjectStoreType string `env:"OBJECT_STORE" envDefault:"local"`
	LocalStoreDir   string `env:"LOCAL_STORE_DIR" envDefault:"./data"`
	AWSRegion       string `env:"AWS_REGION"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3Prefix        string `env:"S3_PREFIX"`
	SSEKMSKeyID     string `env:"SSE_KMS_KEY_ID"`
	// S3Endpoint and static keys target S3-compatible stores such as MinIO.
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`

	SessionStoreType string        `env:"SESSION_STORE" envDefault:"file"`
	SessionDir       string        `env:"SESSION_DIR" envDefault:"./data/sessions"`
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	JWTSecret        string        `env:"JWT_SECRET"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	AMQPURL            string        `env:"AMQP_URL"`
	NotificationsQueue string        `env:"NOTIFICATIONS_QUEUE" envDefault:"dashboard.notifications"`
	FeedEmbedded       bool          `env:"FEED_EMBEDDED" envDefault:"true"`
	FeedRetry          time.Duration `env:"FEED_RETRY" envDefault:"5s"`

	PagesAPI         string        `env:"PAGES_API" envDefault:"mock"`
	MockLatency      time.Duration `env:"MOCK_LATENCY" envDefault:"300ms"`
	UploadMode       string        `env:"UPLOAD_MODE" envDefault:"simulated"`
	UploadChunkDelay time.Duration `env:"UPLOAD_CHUNK_DELAY" envDefault:"100ms"`
	ResourceTimeout  time.Duration `env:"RESOURCE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	StateIdleTTL     time.Duration `env:"STATE_IDLE_TTL" envDefault:"30m"`
}

// DBPool overrides the database pool defaults. Zero values keep the default.
type DBPool struct {
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME"`
	PingTimeout     time.Duration `env:"PING_TIMEOUT"`
	ConnectAttempts int           `env:"CONNECT_ATTEMPTS" envDefault:"5"`
	ConnectBackoff  time.Duration `env:"CONNECT_BACKOFF" envDefault:"2s"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg = Normalize(cfg)

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	if cfg.Env == "production" && strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required in production")
	}
	return cfg, nil
}

// Normalize canonicalizes enum-like fields. Callers building Config by hand should run it too.
func Normalize(cfg Config) Config {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.SessionStoreType = normalizeSessionStore(cfg.SessionStoreType)
	cfg.UploadMode = normalizeUploadMode(cfg.UploadMode)
	cfg.PagesAPI = normalizePagesAPI(cfg.PagesAPI)
	cfg.CORSAllowOrigin = splitAndTrim(strings.Join(cfg.CORSAllowOrigin, ","))
	return cfg
}

func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		// Missing files are expected outside local dev.
		_ = godotenv.Load(path)
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeSessionStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "redis":
		return "redis"
	default:
		return "file"
	}
}

func normalizeUploadMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "stream", "real":
		return "stream"
	default:
		return "simulated"
	}
}

func normalizePagesAPI(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "stub", "real":
		return "stub"
	default:
		return "mock"
	}
}

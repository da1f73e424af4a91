package envconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/contentshare/authcore"
	"github.com/contentshare/authcore/storage"
)

// Refresh store backends selectable with REFRESH_BACKEND.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Server is everything cmd/authcore-server needs.
type Server struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogFormat       string
	LogLevel        string

	DatabaseURL    string
	RedisURL       string
	RefreshBackend string
	// JanitorInterval is how often expired refresh rows are purged when the
	// postgres backend is used.
	JanitorInterval time.Duration

	Auth authcore.Config

	S3Enabled bool
	S3        storage.Config

	KafkaBrokers []string
	KafkaTopic   string
}

// LoadServer reads the environment. Token lifetimes are in milliseconds.
func LoadServer() (Server, error) {
	auth := authcore.DefaultConfig()
	auth.JWT.Secret = GetEnv("JWT_SECRET", "")
	auth.JWT.AccessTTL = GetEnvAsDuration("JWT_ACCESS_TTL_MS", time.Millisecond, auth.JWT.AccessTTL)
	auth.JWT.RefreshTTL = GetEnvAsDuration("JWT_REFRESH_TTL_MS", time.Millisecond, auth.JWT.RefreshTTL)
	auth.Refresh.SerializeRotation = GetEnvAsBool("REFRESH_SERIALIZE_ROTATION", auth.Refresh.SerializeRotation)
	auth.Audit.Enabled = GetEnvAsBool("AUDIT_ENABLED", true)
	auth.Audit.BufferSize = GetEnvAsInt("AUDIT_BUFFER_SIZE", auth.Audit.BufferSize)
	auth.Metrics.EnableLatencyHistograms = GetEnvAsBool("METRICS_LATENCY", true)

	cfg := Server{
		HTTPAddr:        GetEnv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: GetEnvAsDuration("SHUTDOWN_TIMEOUT", time.Second, 15*time.Second),
		LogFormat:       strings.ToLower(GetEnv("LOG_FORMAT", "json")),
		LogLevel:        strings.ToLower(GetEnv("LOG_LEVEL", "info")),
		DatabaseURL:     GetEnv("DATABASE_URL", ""),
		RedisURL:        GetEnv("REDIS_URL", "redis://localhost:6379/0"),
		RefreshBackend:  strings.ToLower(GetEnv("REFRESH_BACKEND", BackendRedis)),
		JanitorInterval: GetEnvAsDuration("REFRESH_JANITOR_INTERVAL", time.Second, 10*time.Minute),
		Auth:            auth,
		S3Enabled:       GetEnvAsBool("S3_ENABLED", false),
		S3: storage.Config{
			Bucket:        GetEnv("S3_BUCKET", ""),
			Region:        GetEnv("S3_REGION", "us-east-1"),
			Endpoint:      GetEnv("S3_ENDPOINT", ""),
			AccessKey:     GetEnv("S3_ACCESS_KEY", ""),
			SecretKey:     GetEnv("S3_SECRET_KEY", ""),
			PublicBaseURL: GetEnv("S3_PUBLIC_BASE_URL", ""),
			UsePathStyle:  GetEnvAsBool("S3_PATH_STYLE", true),
			MaxBytes:      int64(GetEnvAsInt("S3_MAX_BYTES", storage.DefaultMaxBytes)),
		},
		KafkaBrokers: GetEnvAsList("KAFKA_BROKERS", nil),
		KafkaTopic:   GetEnv("KAFKA_AUDIT_TOPIC", "authcore.audit"),
	}

	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	switch c.RefreshBackend {
	case BackendRedis, BackendMemory:
	case BackendPostgres:
		if c.JanitorInterval <= 0 {
			return fmt.Errorf("REFRESH_JANITOR_INTERVAL must be > 0")
		}
	default:
		return fmt.Errorf("REFRESH_BACKEND %q: want %s, %s or %s", c.RefreshBackend, BackendRedis, BackendPostgres, BackendMemory)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.S3Enabled && (c.S3.Bucket == "" || c.S3.PublicBaseURL == "") {
		return fmt.Errorf("S3_BUCKET and S3_PUBLIC_BASE_URL are required when S3_ENABLED")
	}
	return nil
}

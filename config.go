package authcore

import (
	"fmt"
	"time"

	"github.com/contentshare/authcore/jwt"
)

// Config is the engine configuration. It is copied at Build and never read
// again afterwards.
type Config struct {
	JWT     JWTConfig
	Refresh RefreshConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

// JWTConfig holds the signing material and token lifetimes.
type JWTConfig struct {
	// Secret is the base64-encoded HS256 key. It must decode to at least
	// jwt.MinSecretBytes bytes.
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	GrantType  string
}

// RefreshConfig controls rotation against stores without atomic swap.
type RefreshConfig struct {
	// SerializeRotation takes a per-account lock around lookup, cross-check
	// and replace when the store cannot swap atomically. Without it two
	// concurrent reissues of the same token may both succeed.
	SerializeRotation bool
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the reference deployment settings with an empty
// secret; callers must set JWT.Secret.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			GrantType:  jwt.DefaultGrantType,
		},
		Refresh: RefreshConfig{
			SerializeRotation: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate checks c and returns an error wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	if _, err := c.signingKey(); err != nil {
		return err
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("%w: JWT.AccessTTL must be > 0", ErrInvalidConfig)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("%w: JWT.RefreshTTL must be > 0", ErrInvalidConfig)
	}
	if c.JWT.AccessTTL > c.JWT.RefreshTTL {
		return fmt.Errorf("%w: JWT.AccessTTL must not exceed JWT.RefreshTTL", ErrInvalidConfig)
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: Audit.BufferSize must be > 0 when audit is enabled", ErrInvalidConfig)
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return fmt.Errorf("%w: Metrics.EnableLatencyHistograms requires Metrics.Enabled", ErrInvalidConfig)
	}
	return nil
}

func (c Config) signingKey() ([]byte, error) {
	key, err := jwt.DecodeSecret(c.JWT.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: JWT.Secret: %v", ErrInvalidConfig, err)
	}
	if len(key) < jwt.MinSecretBytes {
		return nil, fmt.Errorf("%w: JWT.Secret must decode to at least %d bytes", ErrInvalidConfig, jwt.MinSecretBytes)
	}
	return key, nil
}

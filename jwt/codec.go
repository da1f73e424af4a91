package jwt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultGrantType labels every issued pair.
const DefaultGrantType = "Bearer"

// MinSecretBytes is the smallest HS256 key accepted by NewCodec.
const MinSecretBytes = 32

var (
	// ErrInvalidToken is returned by ParseClaims for any token whose signature,
	// structure or algorithm cannot be verified.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidAuthority is returned by Issue when an authority name contains
	// the separator.
	ErrInvalidAuthority = errors.New("authority name contains separator")
	// ErrInvalidTTL is returned by Issue for non-positive TTLs or an access TTL
	// longer than the refresh TTL.
	ErrInvalidTTL = errors.New("invalid token ttl")
)

// Config holds the immutable signing material.
type Config struct {
	Secret    []byte
	GrantType string
}

// TokenPair is the result of one issuance event.
type TokenPair struct {
	GrantType    string `json:"grantType"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Codec issues and verifies HS256 token pairs. It is safe for concurrent use;
// the key is copied at construction and never changes afterwards.
type Codec struct {
	key       []byte
	grantType string
	parser    *jwt.Parser
}

// DecodeSecret decodes a standard base64 signing secret.
func DecodeSecret(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, errors.New("signing secret is empty")
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}
	return key, nil
}

// NewCodec validates cfg and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < MinSecretBytes {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", MinSecretBytes)
	}
	grant := strings.TrimSpace(cfg.GrantType)
	if grant == "" {
		grant = DefaultGrantType
	}

	key := make([]byte, len(cfg.Secret))
	copy(key, cfg.Secret)

	return &Codec{
		key:       key,
		grantType: grant,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// GrantType returns the label stamped on issued pairs.
func (c *Codec) GrantType() string {
	return c.grantType
}

// Issue mints an access token {sub, auth, exp, jti} and a refresh token
// {sub, exp, jti, typ}, both expiring relative to now.
func (c *Codec) Issue(subject string, authorities []string, now time.Time, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	if subject == "" {
		return TokenPair{}, errors.New("token subject is empty")
	}
	if accessTTL <= 0 || refreshTTL <= 0 || accessTTL > refreshTTL {
		return TokenPair{}, ErrInvalidTTL
	}
	for _, a := range authorities {
		if strings.Contains(a, AuthoritySeparator) {
			return TokenPair{}, fmt.Errorf("%w: %q", ErrInvalidAuthority, a)
		}
	}

	access, err := c.sign(&Claims{
		Subject:     subject,
		Authorities: strings.Join(authorities, AuthoritySeparator),
		ExpiresAt:   now.Add(accessTTL).UnixMilli(),
		ID:          uuid.NewString(),
	})
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := c.sign(&Claims{
		Subject:   subject,
		ExpiresAt: now.Add(refreshTTL).UnixMilli(),
		ID:        uuid.NewString(),
		Type:      TypeRefresh,
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		GrantType:    c.grantType,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// ParseClaims verifies the signature and returns the claims. Expiry is not
// checked here: an expired token with a good signature still yields claims.
func (c *Codec) ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, err := c.parser.ParseWithClaims(token, claims, c.keyFunc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Validate reports whether the signature verifies and now < exp.
func (c *Codec) Validate(token string, now time.Time) bool {
	claims, err := c.ParseClaims(token)
	if err != nil {
		return false
	}
	if claims.ExpiresAt == 0 {
		return false
	}
	return now.UnixMilli() < claims.ExpiresAt
}

func (c *Codec) sign(claims *Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %v", t.Header["alg"])
	}
	return c.key, nil
}

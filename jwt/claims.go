package jwt

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthoritySeparator joins authority names inside the "auth" claim. Names
// containing it are rejected at issue time.
const AuthoritySeparator = ","

// TypeRefresh marks refresh tokens in the "typ" claim. Access tokens omit it.
const TypeRefresh = "refresh"

// Claims is the decoded payload of an access or refresh token.
//
// ExpiresAt is kept in epoch milliseconds on the wire, so the registered
// claims helpers from golang-jwt are not used.
type Claims struct {
	Subject     string `json:"sub,omitempty"`
	Authorities string `json:"auth,omitempty"`
	ExpiresAt   int64  `json:"exp"`
	ID          string `json:"jti,omitempty"`
	Type        string `json:"typ,omitempty"`
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c *Claims) IsRefresh() bool {
	return c != nil && c.Type == TypeRefresh
}

// AuthorityList splits the "auth" claim. An empty claim yields nil.
func (c *Claims) AuthorityList() []string {
	if c == nil || c.Authorities == "" {
		return nil
	}
	return strings.Split(c.Authorities, AuthoritySeparator)
}

// Expiry returns the exp claim as a time value.
func (c *Claims) Expiry() time.Time {
	return time.UnixMilli(c.ExpiresAt)
}

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return &jwt.NumericDate{Time: time.UnixMilli(c.ExpiresAt)}, nil
}

func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error)  { return nil, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *Claims) GetIssuer() (string, error)              { return "", nil }
func (c *Claims) GetSubject() (string, error)             { return c.Subject, nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

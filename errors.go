package authcore

import (
	"errors"

	"github.com/contentshare/authcore/refresh"
)

var (
	// ErrCredentialInvalid covers both an unknown identifier and a wrong secret.
	ErrCredentialInvalid = errors.New("invalid credentials")
	// ErrTokenInvalid covers bad signatures, malformed or unsupported tokens and
	// expired tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenNotFound means the account has no live refresh record.
	ErrTokenNotFound = errors.New("refresh token not found")
	// ErrTokenMismatch means the presented refresh token is not the stored one.
	// The stored record has been revoked by the time it is returned.
	ErrTokenMismatch = errors.New("refresh token mismatch")

	// ErrStoreUnavailable wraps infrastructure failures.
	ErrStoreUnavailable = refresh.ErrUnavailable
	// ErrEngineNotReady is returned by methods on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid config")
)

// ErrorKind classifies every error returned by Engine methods.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindCredentialInvalid
	KindTokenInvalid
	KindTokenNotFound
	KindTokenMismatch
	KindInfrastructure
)

var kindNames = [...]string{
	KindNone:              "none",
	KindCredentialInvalid: "credential_invalid",
	KindTokenInvalid:      "token_invalid",
	KindTokenNotFound:     "token_not_found",
	KindTokenMismatch:     "token_mismatch",
	KindInfrastructure:    "infrastructure",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KindOf maps err onto its kind. Any non-nil error outside the four
// authentication kinds is infrastructure.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCredentialInvalid):
		return KindCredentialInvalid
	case errors.Is(err, ErrTokenInvalid):
		return KindTokenInvalid
	case errors.Is(err, ErrTokenNotFound):
		return KindTokenNotFound
	case errors.Is(err, ErrTokenMismatch):
		return KindTokenMismatch
	default:
		return KindInfrastructure
	}
}

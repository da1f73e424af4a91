package refresh

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL matches the refresh token lifetime of the reference deployment.
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrNotFound means no live record exists for the account.
	ErrNotFound = errors.New("refresh record not found")
	// ErrMismatch means the stored token differs from the presented one. Swap
	// deletes the record before returning it.
	ErrMismatch = errors.New("refresh record mismatch")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("refresh store unavailable")
)

// Store is the single-slot-per-account record store. Each operation is atomic
// for its key.
type Store interface {
	// Put writes token for accountID, replacing any prior record and resetting
	// its TTL.
	Put(ctx context.Context, accountID, token string) error
	// Get returns the stored token or ErrNotFound.
	Get(ctx context.Context, accountID string) (string, error)
	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, accountID string) error
}

// Swapper is implemented by stores that can cross-check and replace a record
// atomically.
//
// Swap replaces the record with next only when it currently equals presented.
// It returns ErrNotFound when no record exists and ErrMismatch, after deleting
// the record, when the values differ.
type Swapper interface {
	Swap(ctx context.Context, accountID, presented, next string) error
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

package refresh

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/contentshare/authcore/internal/dbx"
)

const (
	upsertTokenQuery = `INSERT INTO refresh_tokens (account_id, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE
		SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at`
	selectTokenQuery = `SELECT token FROM refresh_tokens
		WHERE account_id = $1 AND expires_at > $2`
	lockTokenQuery = `SELECT token FROM refresh_tokens
		WHERE account_id = $1 AND expires_at > $2
		FOR UPDATE`
	deleteTokenQuery  = `DELETE FROM refresh_tokens WHERE account_id = $1`
	replaceTokenQuery = `UPDATE refresh_tokens SET token = $2, expires_at = $3
		WHERE account_id = $1`
	purgeExpiredQuery = `DELETE FROM refresh_tokens WHERE expires_at <= $1`
)

// PostgresStore keeps records in the refresh_tokens table created by the
// migrations package. Expiry is enforced on read; PurgeExpired reclaims rows.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewPostgresStore returns a store writing records with the given TTL.
func NewPostgresStore(db *sql.DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{
		db:  db,
		ttl: normalizeTTL(ttl),
		now: time.Now,
	}
}

func (s *PostgresStore) Put(ctx context.Context, accountID, token string) error {
	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx, upsertTokenQuery, accountID, token, now.Add(s.ttl)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, accountID string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, selectTokenQuery, accountID, s.now().UTC()).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return token, nil
}

func (s *PostgresStore) Delete(ctx context.Context, accountID string) error {
	if _, err := s.db.ExecContext(ctx, deleteTokenQuery, accountID); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Swap locks the account row for the duration of the check. A mismatch still
// commits so the revocation sticks.
func (s *PostgresStore) Swap(ctx context.Context, accountID, presented, next string) error {
	now := s.now().UTC()
	var outcome error

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var current string
		if err := tx.QueryRowContext(ctx, lockTokenQuery, accountID, now).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				outcome = ErrNotFound
				return nil
			}
			return err
		}

		if current != presented {
			if _, err := tx.ExecContext(ctx, deleteTokenQuery, accountID); err != nil {
				return err
			}
			outcome = ErrMismatch
			return nil
		}

		_, err := tx.ExecContext(ctx, replaceTokenQuery, accountID, next, now.Add(s.ttl))
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return outcome
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, purgeExpiredQuery, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

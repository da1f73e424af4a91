package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/contentshare/authcore/internal/dbx"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// Repository persists members.
type Repository interface {
	Create(ctx context.Context, m *Member) (int64, error)
	FindByLoginID(ctx context.Context, loginID string) (*Member, error)
	ExistsByLoginID(ctx context.Context, loginID string) (bool, error)
	Update(ctx context.Context, m *Member) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *Member) (int64, error) {
	query := `INSERT INTO members (login_id, password_hash, username, gender, age, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		m.LoginID, m.PasswordHash, m.Username, string(m.Gender), m.Age, m.Role,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrDuplicateLoginID
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return m.ID, nil
}

func (r *PostgresRepository) FindByLoginID(ctx context.Context, loginID string) (*Member, error) {
	query := `SELECT id, login_id, password_hash, username, gender, age, role, created_at, updated_at
		FROM members
		WHERE login_id = $1`

	m := &Member{}
	var gender string
	err := r.db.QueryRowContext(ctx, query, loginID).Scan(
		&m.ID, &m.LoginID, &m.PasswordHash, &m.Username, &gender, &m.Age, &m.Role, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	m.Gender = Gender(gender)
	return m, nil
}

func (r *PostgresRepository) ExistsByLoginID(ctx context.Context, loginID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM members WHERE login_id = $1)`, loginID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Update(ctx context.Context, m *Member) error {
	query := `UPDATE members
		SET password_hash = $2, username = $3, gender = $4, age = $5, updated_at = now()
		WHERE login_id = $1`

	res, err := r.db.ExecContext(ctx, query, m.LoginID, m.PasswordHash, m.Username, string(m.Gender), m.Age)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

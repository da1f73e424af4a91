package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/contentshare/authcore/internal/dbx"
	"github.com/contentshare/authcore/member"
)

const (
	insertCommentQuery = `INSERT INTO comments (post_id, member_id, content)
		SELECT $1, m.id, $3 FROM members m WHERE m.login_id = $2
		RETURNING id, created_at`
	listCommentsQuery = `SELECT c.id, c.post_id, m.login_id, c.content, c.created_at
		FROM comments c
		JOIN members m ON m.id = c.member_id
		WHERE c.post_id = $1
		ORDER BY c.created_at, c.id`
)

// Repository persists comments.
type Repository interface {
	Create(ctx context.Context, c *Comment) error
	ListByPost(ctx context.Context, postID int64) ([]Comment, error)
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts c and fills its ID and CreatedAt. An unknown author yields
// member.ErrNotFound.
func (r *PostgresRepository) Create(ctx context.Context, c *Comment) error {
	err := r.db.QueryRowContext(ctx, insertCommentQuery, c.PostID, c.AuthorLoginID, c.Content).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return member.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByPost(ctx context.Context, postID int64) ([]Comment, error) {
	rows, err := r.db.QueryContext(ctx, listCommentsQuery, postID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorLoginID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

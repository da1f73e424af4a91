package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/contentshare/authcore/internal/dbx"
	"github.com/contentshare/authcore/member"
)

const (
	insertPostQuery = `INSERT INTO posts (uuid, title, content, member_id)
		SELECT $1, $2, $3, m.id FROM members m WHERE m.login_id = $4
		RETURNING id, created_at, updated_at`
	insertImageQuery = `INSERT INTO post_images (post_id, object_key, url, filename)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	selectPostQuery = `SELECT p.id, p.uuid, p.title, p.content, m.login_id, m.username, p.created_at, p.updated_at
		FROM posts p
		JOIN members m ON m.id = p.member_id
		WHERE p.uuid = $1`
	selectImagesQuery = `SELECT id, object_key, url, filename
		FROM post_images
		WHERE post_id = $1
		ORDER BY id`
	resolveIDQuery  = `SELECT id FROM posts WHERE uuid = $1`
	countPostsQuery = `SELECT COUNT(*) FROM posts`
	listPostsQuery  = `SELECT p.uuid, p.title, m.username,
			COALESCE((SELECT i.url FROM post_images i WHERE i.post_id = p.id ORDER BY i.id LIMIT 1), ''),
			p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)
		FROM posts p
		JOIN members m ON m.id = p.member_id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1 OFFSET $2`
	countByAuthorQuery = `SELECT COUNT(*) FROM posts p
		JOIN members m ON m.id = p.member_id
		WHERE m.login_id = $1`
	listByAuthorQuery = `SELECT p.uuid, p.title, m.username,
			COALESCE((SELECT i.url FROM post_images i WHERE i.post_id = p.id ORDER BY i.id LIMIT 1), ''),
			p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)
		FROM posts p
		JOIN members m ON m.id = p.member_id
		WHERE m.login_id = $1
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3`
	updateTextQuery = `UPDATE posts SET title = $2, content = $3, updated_at = now()
		WHERE id = $1`
	deleteImageQuery = `DELETE FROM post_images WHERE post_id = $1 AND id = $2
		RETURNING object_key, url, filename`
	deleteAllImagesQuery = `DELETE FROM post_images WHERE post_id = $1
		RETURNING id, object_key, url, filename`
	deletePostQuery = `DELETE FROM posts WHERE id = $1`
)

// Repository persists posts and their image links.
type Repository interface {
	// Create inserts p and its images in one transaction.
	Create(ctx context.Context, p *Post) error
	FindByUUID(ctx context.Context, postUUID string) (*Post, error)
	ResolveID(ctx context.Context, postUUID string) (int64, error)
	List(ctx context.Context, limit, offset int) ([]Summary, int64, error)
	ListByAuthor(ctx context.Context, loginID string, limit, offset int) ([]Summary, int64, error)
	// Update rewrites the text, unlinks removeIDs and links add in one
	// transaction. It returns the unlinked images.
	Update(ctx context.Context, p *Post, removeIDs []int64, add []Image) ([]Image, error)
	// Delete removes the post with its comments and returns its images.
	Delete(ctx context.Context, postID int64) ([]Image, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create fills p.ID, the timestamps and the image ids. An unknown author
// yields member.ErrNotFound.
func (r *PostgresRepository) Create(ctx context.Context, p *Post) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := tx.QueryRowContext(ctx, insertPostQuery, p.UUID, p.Title, p.Content, p.AuthorLoginID).
			Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return member.ErrNotFound
			}
			return err
		}
		return insertImages(ctx, tx, p.ID, p.Images)
	})
	return wrapDB(err)
}

func (r *PostgresRepository) FindByUUID(ctx context.Context, postUUID string) (*Post, error) {
	p := &Post{}
	err := r.db.QueryRowContext(ctx, selectPostQuery, postUUID).Scan(
		&p.ID, &p.UUID, &p.Title, &p.Content, &p.AuthorLoginID, &p.AuthorName, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, selectImagesQuery, p.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.Key, &img.URL, &img.Filename); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p.Images = append(p.Images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ResolveID(ctx context.Context, postUUID string) (int64, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, resolveIDQuery, postUUID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]Summary, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, countPostsQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	items, err := r.summaries(ctx, listPostsQuery, limit, offset)
	return items, total, err
}

func (r *PostgresRepository) ListByAuthor(ctx context.Context, loginID string, limit, offset int) ([]Summary, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, countByAuthorQuery, loginID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	items, err := r.summaries(ctx, listByAuthorQuery, loginID, limit, offset)
	return items, total, err
}

func (r *PostgresRepository) summaries(ctx context.Context, query string, args ...any) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.UUID, &s.Title, &s.Writer, &s.ThumbnailURL, &s.CreatedAt, &s.ModifiedAt, &s.CommentCount); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Update ignores removeIDs that do not belong to p.
func (r *PostgresRepository) Update(ctx context.Context, p *Post, removeIDs []int64, add []Image) ([]Image, error) {
	var removed []Image
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, updateTextQuery, p.ID, p.Title, p.Content)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}

		for _, id := range removeIDs {
			img := Image{ID: id}
			err := tx.QueryRowContext(ctx, deleteImageQuery, p.ID, id).Scan(&img.Key, &img.URL, &img.Filename)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return err
			}
			removed = append(removed, img)
		}
		return insertImages(ctx, tx, p.ID, add)
	})
	if err != nil {
		return nil, wrapDB(err)
	}
	return removed, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, postID int64) ([]Image, error) {
	var images []Image
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx, deleteAllImagesQuery, postID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var img Image
			if err := rows.Scan(&img.ID, &img.Key, &img.URL, &img.Filename); err != nil {
				rows.Close()
				return err
			}
			images = append(images, img)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, deletePostQuery, postID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, wrapDB(err)
	}
	return images, nil
}

func insertImages(ctx context.Context, tx dbx.DBTX, postID int64, images []Image) error {
	for i := range images {
		if err := tx.QueryRowContext(ctx, insertImageQuery, postID, images[i].Key, images[i].URL, images[i].Filename).
			Scan(&images[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// wrapDB passes domain errors through and tags everything else.
func wrapDB(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, member.ErrNotFound) {
		return err
	}
	return fmt.Errorf("db error: %w", err)
}

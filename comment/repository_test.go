package comment

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentshare/authcore/member"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreateFillsIDAndTimestamp(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+comments\s*\(post_id,\s*member_id,\s*content\)\s+SELECT.*WHERE\s+m\.login_id\s*=\s*\$2`).
		WithArgs(int64(3), "alice01", "looks tasty").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))

	c := &Comment{PostID: 3, AuthorLoginID: "alice01", Content: "looks tasty"}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, int64(11), c.ID)
	assert.Equal(t, now, c.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUnknownAuthor(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+comments`).WillReturnError(sql.ErrNoRows)
	err := repo.Create(context.Background(), &Comment{PostID: 3, AuthorLoginID: "ghost01", Content: "hi"})
	assert.ErrorIs(t, err, member.ErrNotFound)

	mock.ExpectQuery(`INSERT\s+INTO\s+comments`).WillReturnError(errors.New("db down"))
	err = repo.Create(context.Background(), &Comment{PostID: 3, AuthorLoginID: "alice01", Content: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")
}

func TestListByPostOrdersOldestFirst(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	t1 := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	mock.ExpectQuery(`(?s)^SELECT\s+c\.id,.*WHERE\s+c\.post_id\s*=\s*\$1\s+ORDER\s+BY\s+c\.created_at,\s*c\.id$`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "login_id", "content", "created_at"}).
			AddRow(int64(1), int64(3), "alice01", "first", t1).
			AddRow(int64(2), int64(3), "bob0001", "second", t2))

	got, err := repo.ListByPost(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "bob0001", got[1].AuthorLoginID)
	require.NoError(t, mock.ExpectationsWereMet())
}

package post

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

var summaryColumns = []string{"uuid", "title", "username", "thumbnail", "created_at", "updated_at", "comment_count"}

func TestCreateInsertsPostAndImagesInTx(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+posts\s*\(uuid,\s*title,\s*content,\s*member_id\)\s+SELECT.*m\.login_id\s*=\s*\$4`).
		WithArgs("p-1", "Pasta", "Boil water", "alice01").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(5), now, now))
	mock.ExpectQuery(`INSERT\s+INTO\s+post_images`).
		WithArgs(int64(5), "images/alice01/2026/10/17/a.png", "https://cdn/a.png", "a.png").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	p := &Post{UUID: "p-1", Title: "Pasta", Content: "Boil water", AuthorLoginID: "alice01", Images: []Image{
		{Key: "images/alice01/2026/10/17/a.png", URL: "https://cdn/a.png", Filename: "a.png"},
	}}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, int64(5), p.ID)
	assert.Equal(t, int64(9), p.Images[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUnknownAuthorRollsBack(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT\s+INTO\s+posts`).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &Post{UUID: "p-1", Title: "t", Content: "c", AuthorLoginID: "ghost01"})
	assert.ErrorIs(t, err, member.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUUIDLoadsImages(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^SELECT\s+p\.id,.*WHERE\s+p\.uuid\s*=\s*\$1$`).WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "uuid", "title", "content", "login_id", "username", "created_at", "updated_at"}).
			AddRow(int64(5), "p-1", "Pasta", "Boil water", "alice01", "Alice", now, now))
	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*object_key,.*FROM\s+post_images`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "object_key", "url", "filename"}).
			AddRow(int64(9), "images/alice01/2026/10/17/a.png", "https://cdn/a.png", "a.png"))

	p, err := repo.FindByUUID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "alice01", p.AuthorLoginID)
	assert.Equal(t, "Alice", p.AuthorName)
	require.Len(t, p.Images, 1)
	assert.Equal(t, "images/alice01/2026/10/17/a.png", p.Images[0].Key)

	mock.ExpectQuery(`(?s)^SELECT\s+p\.id,`).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByUUID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT id FROM posts WHERE uuid`).WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	id, err := repo.ResolveID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	mock.ExpectQuery(`SELECT id FROM posts WHERE uuid`).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	_, err = repo.ResolveID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListReturnsTotalAndSummaries(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM posts$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(21)))
	mock.ExpectQuery(`(?s)ORDER\s+BY\s+p\.created_at\s+DESC,\s*p\.id\s+DESC\s+LIMIT\s+\$1\s+OFFSET\s+\$2$`).
		WithArgs(20, 20).
		WillReturnRows(sqlmock.NewRows(summaryColumns).AddRow("p-21", "Oldest", "Alice", "", now, now, 2))

	items, total, err := repo.List(context.Background(), 20, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(21), total)
	require.Len(t, items, 1)
	assert.Equal(t, "p-21", items[0].UUID)
	assert.Equal(t, 2, items[0].CommentCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByAuthorFiltersOnLoginID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM posts p.*WHERE\s+m\.login_id\s*=\s*\$1$`).WithArgs("alice01").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`(?s)WHERE\s+m\.login_id\s*=\s*\$1\s+ORDER\s+BY.*LIMIT\s+\$2\s+OFFSET\s+\$3$`).
		WithArgs("alice01", 20, 0).
		WillReturnRows(sqlmock.NewRows(summaryColumns).AddRow("p-1", "Pasta", "Alice", "https://cdn/a.png", now, now, 0))

	items, total, err := repo.ListByAuthor(context.Background(), "alice01", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "https://cdn/a.png", items[0].ThumbnailURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUnlinksOnlyOwnImages(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE\s+posts\s+SET\s+title`).WithArgs(int64(5), "New", "Body").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`DELETE\s+FROM\s+post_images\s+WHERE\s+post_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2`).WithArgs(int64(5), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"object_key", "url", "filename"}).AddRow("images/alice01/2026/10/17/a.png", "https://cdn/a.png", "a.png"))
	mock.ExpectQuery(`DELETE\s+FROM\s+post_images\s+WHERE\s+post_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2`).WithArgs(int64(5), int64(77)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT\s+INTO\s+post_images`).WithArgs(int64(5), "images/alice01/2026/10/17/b.png", "https://cdn/b.png", "b.png").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectCommit()

	add := []Image{{Key: "images/alice01/2026/10/17/b.png", URL: "https://cdn/b.png", Filename: "b.png"}}
	removed, err := repo.Update(context.Background(), &Post{ID: 5, Title: "New", Content: "Body"}, []int64{9, 77}, add)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, int64(9), removed[0].ID)
	assert.Equal(t, int64(10), add[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRollsBackOnFailure(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE\s+posts`).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), &Post{ID: 5, Title: "t", Content: "c"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReturnsImages(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)DELETE\s+FROM\s+post_images\s+WHERE\s+post_id\s*=\s*\$1\s+RETURNING`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "object_key", "url", "filename"}).
			AddRow(int64(9), "images/alice01/2026/10/17/a.png", "https://cdn/a.png", "a.png"))
	mock.ExpectExec(`DELETE FROM posts WHERE id = \$1`).WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	images, err := repo.Delete(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "images/alice01/2026/10/17/a.png", images[0].Key)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingPost(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE\s+FROM\s+post_images`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "object_key", "url", "filename"}))
	mock.ExpectExec(`DELETE FROM posts`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

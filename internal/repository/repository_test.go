package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"blogapi/internal/models"
	"blogapi/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestPage_Normalize(t *testing.T) {
	assert.Equal(t, Page{Limit: DefaultPageSize}, Page{}.Normalize())
	assert.Equal(t, Page{Limit: MaxPageSize, Offset: 5}, Page{Limit: 5000, Offset: 5}.Normalize())
	assert.Equal(t, Page{Limit: 30}, Page{Limit: 30, Offset: -1}.Normalize())
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.True(t, isUniqueConstraintError(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueConstraintError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueConstraintError(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueConstraintError(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: users.email")))
	assert.False(t, isUniqueConstraintError(errors.New("connection refused")))
	assert.False(t, isUniqueConstraintError(nil))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, wrapError(nil))

	hookErr := models.NewFieldValidationError("nextpost", "bad")
	assert.Same(t, hookErr, wrapError(hookErr))

	err := wrapError(errors.New("driver exploded"))
	assert.True(t, models.IsCode(err, models.CodeInternal))
	assert.True(t, models.IsCode(notFoundOr(gorm.ErrRecordNotFound, models.NewNotFoundMessage("gone")), models.CodeNotFound))
}

func TestTransactor(t *testing.T) {
	db := testutil.NewTestDB(t)
	tx := NewTransactor(db)
	users := NewUserRepository(db)
	ctx := context.Background()

	t.Run("rolls back on error", func(t *testing.T) {
		err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
			require.NoError(t, users.Create(ctx, &models.User{Username: "ghost", Email: "ghost@example.com", Password: "x"}))
			return errors.New("boom")
		})
		assert.EqualError(t, err, "boom")

		u, err := users.GetByEmail(ctx, "ghost@example.com")
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("nested calls join the outer transaction", func(t *testing.T) {
		err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return tx.WithinTransaction(ctx, func(ctx context.Context) error {
				return users.Create(ctx, &models.User{Username: "kept", Email: "kept@example.com", Password: "x"})
			})
		})
		require.NoError(t, err)

		u, err := users.GetByEmail(ctx, "kept@example.com")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "kept", u.Username)
	})
}

func TestUserRepository_GetByPubID_Postgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE pub_id = $1 ORDER BY "users"."id" LIMIT $2`)).
		WithArgs("abc", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pub_id", "username"}).AddRow(3, "abc", "writer"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE pub_id = $1 ORDER BY "users"."id" LIMIT $2`)).
		WithArgs("missing", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	user, err := repo.GetByPubID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "writer", user.Username)

	_, err = repo.GetByPubID(ctx, "missing")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
	assert.Equal(t, "No user found with provided pub id.", appErr.Message)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Postgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "dislikes_count"=$1,"likes_count"=$2,"score"=$3 WHERE id = $4`)).
		WithArgs(1, 3, 2, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts`)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveCounts(ctx, 7, models.ReactionCounts{Likes: 3, Dislikes: 1}))
	require.NoError(t, repo.RefreshSearchVector(ctx, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"testing"

	"blogapi/internal/models"
	"blogapi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Username: "alice2", Email: "alice@example.com", Password: "x"})
		assert.True(t, models.IsCode(err, models.CodeConflict))
	})

	t.Run("lookups", func(t *testing.T) {
		byPub, err := repo.GetByPubID(ctx, alice.PubID)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, byPub.ID)

		_, err = repo.GetByPubID(ctx, "nope")
		assert.True(t, models.IsCode(err, models.CodeNotFound))

		_, err = repo.GetByID(ctx, 9999)
		assert.True(t, models.IsCode(err, models.CodeNotFound))

		byEmail, err := repo.GetByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, alice.ID, byEmail.ID)

		none, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, none)

		collision, err := repo.FindByUsernameOrEmail(ctx, "ALICE", "other@example.com")
		require.NoError(t, err)
		require.NotNil(t, collision)
		assert.Equal(t, alice.ID, collision.ID)

		collision, err = repo.FindByUsernameOrEmail(ctx, "carol", "carol@example.com")
		require.NoError(t, err)
		assert.Nil(t, collision)
	})

	t.Run("username taken", func(t *testing.T) {
		taken, err := repo.UsernameTaken(ctx, "Alice", 0)
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = repo.UsernameTaken(ctx, "alice", alice.ID)
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("update fields", func(t *testing.T) {
		require.NoError(t, repo.UpdateFields(ctx, alice.ID, map[string]any{"name": "Alice Liddell"}))
		got, err := repo.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice Liddell", got.Name)

		err = repo.UpdateFields(ctx, 9999, map[string]any{"name": "x"})
		assert.True(t, models.IsCode(err, models.CodeNotFound))
		assert.NoError(t, repo.UpdateFields(ctx, alice.ID, nil))
	})

	t.Run("recount posts ignores inactive posts", func(t *testing.T) {
		testutil.CreatePost(t, db, alice, "The first post in a long series of posts")
		gone := testutil.CreatePost(t, db, alice, "The second post in a long series of posts")
		require.NoError(t, db.Model(gone).UpdateColumn("is_active", false).Error)

		count, err := repo.RecountPosts(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		got, err := repo.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.PostCount)
	})
}

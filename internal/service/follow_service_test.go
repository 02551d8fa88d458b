package service

import (
	"context"
	"testing"
	"time"

	"blogapi/internal/models"
	"blogapi/internal/notifications"
	"blogapi/internal/repository"
	"blogapi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refNames(refs []*models.UserRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Username)
	}
	return out
}

func TestFollowService_ToggleAlternates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	res, err := f.follows.Toggle(ctx, bob.ID, alice.PubID)
	require.NoError(t, err)
	assert.True(t, res.Followed)
	assert.Equal(t, "alice followed successfully.", res.Message)

	res, err = f.follows.Toggle(ctx, bob.ID, alice.PubID)
	require.NoError(t, err)
	assert.False(t, res.Followed)
	assert.Equal(t, "alice unfollowed successfully.", res.Message)

	res, err = f.follows.Toggle(ctx, bob.ID, alice.PubID)
	require.NoError(t, err)
	assert.True(t, res.Followed)

	var edges int64
	require.NoError(t, f.db.Model(&models.UserFollowing{}).Count(&edges).Error)
	assert.Equal(t, int64(1), edges)

	events := f.notifier.sent()
	require.Len(t, events, 2, "only follows notify")
	assert.Equal(t, alice.ID, events[0].userID)
	assert.Equal(t, notifications.EventUserFollowed, events[0].event.Type)
	payload, ok := events[0].event.Payload.(notifications.FollowPayload)
	require.True(t, ok)
	assert.Equal(t, "bob", payload.Follower.Username)
}

func TestFollowService_ToggleErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	gone := f.user(t, "gone")
	require.NoError(t, f.db.Model(gone).UpdateColumn("is_active", false).Error)

	_, err := f.follows.Toggle(ctx, alice.ID, alice.PubID)
	assertAppError(t, err, models.CodeValidation, "pub_id")

	_, err = f.follows.Toggle(ctx, alice.ID, "missing")
	assertAppError(t, err, models.CodeNotFound, "")
	assert.Equal(t, "No user found with provided pub id.", err.Error())

	_, err = f.follows.Toggle(ctx, alice.ID, gone.PubID)
	assertAppError(t, err, models.CodeNotFound, "")

	_, err = f.follows.Toggle(ctx, gone.ID, bob.PubID)
	assertAppError(t, err, models.CodeUnauthorized, "")
}

func TestFollowService_Listings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	carol := f.user(t, "carol")
	dave := f.user(t, "dave")

	_, err := f.follows.Toggle(ctx, carol.ID, alice.PubID)
	require.NoError(t, err)
	_, err = f.follows.Toggle(ctx, dave.ID, alice.PubID)
	require.NoError(t, err)
	_, err = f.follows.Toggle(ctx, carol.ID, dave.PubID)
	require.NoError(t, err)

	var older models.UserFollowing
	require.NoError(t, f.db.Where("user_id = ? AND following_user_id = ?", carol.ID, alice.ID).First(&older).Error)
	testutil.Age(t, f.db, &models.UserFollowing{}, older.ID, time.Hour)

	followers, err := f.follows.Followers(ctx, alice.ID, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"dave", "carol"}, refNames(followers))

	following, err := f.follows.Following(ctx, carol.ID, repository.Page{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "dave"}, refNames(following))

	first, err := f.follows.Followers(ctx, alice.ID, repository.Page{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"dave"}, refNames(first))
}

func TestFollowService_FeedForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	followed := f.post(t, alice, "alice writes about gardens in the early spring")
	f.post(t, carol, "carol writes about rivers in the late autumn")
	deleted := f.post(t, alice, "alice deleted this post about winter storms")
	require.NoError(t, f.db.Model(deleted).UpdateColumn("is_active", false).Error)

	_, err := f.follows.Toggle(ctx, bob.ID, alice.PubID)
	require.NoError(t, err)

	feed, err := f.follows.FeedForUser(ctx, bob.ID, repository.Page{})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, followed.Slug, feed[0].Slug)
}

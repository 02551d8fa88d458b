package seed

import (
	"context"
	"strings"
	"testing"

	"blogapi/internal/models"
	"blogapi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinPresets(t *testing.T) {
	presets, err := LoadPresets("")
	require.NoError(t, err)
	require.NotEmpty(t, presets)

	small, err := FindPreset(presets, "SMALL")
	require.NoError(t, err)
	assert.Equal(t, 8, small.Users)

	lo, hi := small.tagRange()
	assert.Equal(t, 1, lo)
	assert.Equal(t, 3, hi)

	_, err = FindPreset(presets, "missing")
	assert.Error(t, err)
}

func TestParsePresets_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no users", "presets:\n  - name: empty\n    users: 0\n"},
		{"inverted tag range", "presets:\n  - name: bad\n    users: 1\n    tags_per_post: [3, 1]\n    tags: [Golang]\n"},
		{"tags without pool", "presets:\n  - name: bad\n    users: 1\n    tags_per_post: [1, 2]\n"},
		{"malformed", "presets: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePresets([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestBuildPost_PassesContentRules(t *testing.T) {
	f := NewFactory(nil, Options{RandomSeed: 42, MaxDays: 30})
	user := &models.User{ID: 7}

	for i := 0; i < 20; i++ {
		p := f.BuildPost(user)
		assert.GreaterOrEqual(t, len(strings.Fields(p.Title)), 8, p.Title)
		assert.GreaterOrEqual(t, len(p.Content), 100)
		require.NotNil(t, p.AuthorID)
		assert.Equal(t, uint(7), *p.AuthorID)
	}
}

func TestPick_SkipsIndex(t *testing.T) {
	f := NewFactory(nil, Options{RandomSeed: 1})
	picked := f.Pick(5, 10, 2)
	assert.Len(t, picked, 4)
	assert.NotContains(t, picked, 2)
}

func TestSeeder_RunSmallPreset(t *testing.T) {
	db := testutil.NewTestDB(t)
	presets, err := LoadPresets("")
	require.NoError(t, err)
	small, err := FindPreset(presets, "small")
	require.NoError(t, err)

	s := NewSeeder(db, Options{FastHash: true, RandomSeed: 7})
	summary, err := s.Run(context.Background(), small)
	require.NoError(t, err)
	assert.Equal(t, small.Users, summary.Users)
	assert.Equal(t, small.Posts, summary.Posts)
	assert.Positive(t, summary.Tags)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	require.Len(t, posts, small.Posts)
	for _, p := range posts {
		assert.Equal(t, p.LikesCount-p.DislikesCount, p.Score, p.Slug)
		var likes int64
		require.NoError(t, db.Model(&models.PostReaction{}).
			Where("post_id = ? AND value = ?", p.ID, models.ReactionLike).Count(&likes).Error)
		assert.Equal(t, int(likes), p.LikesCount, p.Slug)
	}

	var postCounts int64
	require.NoError(t, db.Model(&models.User{}).Select("COALESCE(SUM(post_count), 0)").Scan(&postCounts).Error)
	assert.Equal(t, int64(small.Posts), postCounts)

	var ownBookmarks int64
	require.NoError(t, db.Model(&models.PostBookmark{}).
		Joins("JOIN posts ON posts.id = post_bookmarks.post_id").
		Where("posts.author_id = post_bookmarks.user_id").
		Count(&ownBookmarks).Error)
	assert.Zero(t, ownBookmarks)

	var selfFollows int64
	require.NoError(t, db.Model(&models.UserFollowing{}).
		Where("user_id = following_user_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)

	require.NoError(t, s.ClearAll())
	var remaining int64
	require.NoError(t, db.Model(&models.User{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestSeeder_DryRunWritesNothing(t *testing.T) {
	db := testutil.NewTestDB(t)
	s := NewSeeder(db, Options{DryRun: true, FastHash: true, RandomSeed: 3})

	summary, err := s.Run(context.Background(), Preset{Name: "dry", Users: 3, Posts: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Users)
	assert.Equal(t, 5, summary.Posts)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}

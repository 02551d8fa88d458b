package service

import (
	"context"
	"strings"
	"testing"

	"blogapi/internal/models"
	"blogapi/internal/notifications"
	"blogapi/internal/repository"
	"blogapi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eightWordTitle = "alpha bravo charlie delta echo foxtrot golf hotel"

func createInput(author *models.User) CreatePostInput {
	return CreatePostInput{
		AuthorID: author.ID,
		Title:    eightWordTitle,
		Content:  testutil.LongContent(600),
	}
}

func viewSlugs(views []models.PostView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Slug)
	}
	return out
}

func TestPostService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	in := createInput(alice)
	in.Featured = true
	in.Tags = ptr("Golang, golang , Databases,")
	view, err := f.posts.Create(ctx, in)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(view.Slug, "alpha-bravo-charlie-delta-echo-foxtrot-golf-hotel-"))
	assert.Equal(t, 2, view.EstimatedReadingTime)
	assert.True(t, view.Featured)
	assert.Zero(t, view.LikesCount)
	assert.Zero(t, view.Score)
	assert.Equal(t, []string{"Databases", "Golang"}, view.Tags)
	require.NotNil(t, view.Author)
	assert.Equal(t, alice.PubID, view.Author.PubID)

	var author models.User
	f.reload(t, &author, alice.ID)
	assert.Equal(t, 1, author.PostCount)

	var tags int64
	require.NoError(t, f.db.Model(&models.Tag{}).Count(&tags).Error)
	assert.Equal(t, int64(2), tags)
}

func TestPostService_Create_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	in := createInput(alice)
	in.Title = "one two three four five six seven"
	_, err := f.posts.Create(ctx, in)
	assertAppError(t, err, models.CodeValidation, "title")

	in = createInput(alice)
	in.Content = "too short"
	_, err = f.posts.Create(ctx, in)
	assertAppError(t, err, models.CodeValidation, "content")

	in = createInput(alice)
	in.Tags = ptr("ok, c++")
	_, err = f.posts.Create(ctx, in)
	assertAppError(t, err, models.CodeValidation, "tags")

	_, err = f.posts.Create(ctx, createInput(&models.User{ID: 999}))
	assertAppError(t, err, models.CodeUnauthorized, "")

	var posts int64
	require.NoError(t, f.db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, posts)
}

func TestPostService_Create_Sequencing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	earlier := f.post(t, alice, "the first part of a long series on testing")
	foreign := f.post(t, bob, "a post bob wrote about something else entirely")

	in := createInput(alice)
	in.NextPostSlug = "missing"
	_, err := f.posts.Create(ctx, in)
	assertAppError(t, err, models.CodeNotFound, "")
	assert.Equal(t, "No post found with provided next post slug.", err.Error())

	in = createInput(alice)
	in.PreviousPostSlug = "missing"
	_, err = f.posts.Create(ctx, in)
	assert.Equal(t, "No post found with provided previous post slug.", err.Error())

	in = createInput(alice)
	in.NextPostSlug = foreign.Slug
	_, err = f.posts.Create(ctx, in)
	assertAppError(t, err, models.CodeValidation, "nextpost")

	in = createInput(alice)
	in.NextPostSlug = earlier.Slug
	in.PreviousPostSlug = earlier.Slug
	_, err = f.posts.Create(ctx, in)
	assertAppError(t, err, models.CodeValidation, "nextpost")

	in = createInput(alice)
	in.PreviousPostSlug = earlier.Slug
	view, err := f.posts.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, earlier.Slug, view.PreviousPost)
	assert.Empty(t, view.NextPost)
}

func TestPostService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	earlier := f.post(t, alice, "the first part of a long series on testing")

	in := createInput(alice)
	in.PreviousPostSlug = earlier.Slug
	in.Tags = ptr("Golang")
	created, err := f.posts.Create(ctx, in)
	require.NoError(t, err)

	_, err = f.posts.Update(ctx, UpdatePostInput{ActorID: bob.ID, Slug: created.Slug, Featured: ptr(true)})
	assertAppError(t, err, models.CodeForbidden, "")

	_, err = f.posts.Update(ctx, UpdatePostInput{ActorID: alice.ID, Slug: created.Slug, NextPostSlug: ptr(created.Slug)})
	assertAppError(t, err, models.CodeValidation, "nextpost")

	updated, err := f.posts.Update(ctx, UpdatePostInput{
		ActorID:          alice.ID,
		Slug:             created.Slug,
		Content:          ptr(testutil.LongContent(900)),
		Featured:         ptr(true),
		PreviousPostSlug: ptr(""),
		Tags:             ptr("Rust, Systems"),
	})
	require.NoError(t, err)
	assert.Equal(t, created.Slug, updated.Slug)
	assert.Equal(t, eightWordTitle, updated.Title)
	assert.Equal(t, 3, updated.EstimatedReadingTime)
	assert.True(t, updated.Featured)
	assert.Empty(t, updated.PreviousPost)
	assert.Equal(t, []string{"Rust", "Systems"}, updated.Tags)

	_, err = f.posts.Update(ctx, UpdatePostInput{ActorID: alice.ID, Slug: created.Slug, Content: ptr("short")})
	assertAppError(t, err, models.CodeValidation, "content")
}

func TestPostService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	first, err := f.posts.Create(ctx, createInput(alice))
	require.NoError(t, err)
	in := createInput(alice)
	in.PreviousPostSlug = first.Slug
	second, err := f.posts.Create(ctx, in)
	require.NoError(t, err)

	_, err = f.posts.Delete(ctx, bob.ID, first.Slug)
	assertAppError(t, err, models.CodeForbidden, "")

	_, err = f.posts.Delete(ctx, alice.ID, first.Slug)
	require.NoError(t, err)

	_, err = f.posts.Get(ctx, first.Slug)
	assertAppError(t, err, models.CodeNotFound, "")

	recent, err := f.posts.List(ctx, repository.ListingRecent, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{second.Slug}, viewSlugs(recent))

	remaining, err := f.posts.Get(ctx, second.Slug)
	require.NoError(t, err)
	assert.Empty(t, remaining.PreviousPost, "links to deleted posts are hidden")

	var author models.User
	f.reload(t, &author, alice.ID)
	assert.Equal(t, 1, author.PostCount)

	_, err = f.posts.Delete(ctx, alice.ID, first.Slug)
	assertAppError(t, err, models.CodeNotFound, "")
}

func TestPostService_ToggleBookmark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	post := f.post(t, alice, "a post that bob will want to read again later")

	_, err := f.posts.ToggleBookmark(ctx, alice.ID, post.Slug)
	assertAppError(t, err, models.CodeValidation, "")
	assert.Equal(t, "You can not bookmark your own post.", err.Error())

	_, err = f.posts.ToggleBookmark(ctx, bob.ID, "missing")
	assertAppError(t, err, models.CodeNotFound, "")
	assert.Equal(t, "No post found with provided slug.", err.Error())

	res, err := f.posts.ToggleBookmark(ctx, bob.ID, post.Slug)
	require.NoError(t, err)
	assert.True(t, res.Bookmarked)
	assert.Equal(t, "Post "+post.Slug+" bookmarked successfully.", res.Message)

	view, err := f.posts.Get(ctx, post.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.BookmarksCount)

	saved, err := f.posts.BookmarkedBy(ctx, bob.ID, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{post.Slug}, viewSlugs(saved))

	who, err := f.posts.Bookmarkers(ctx, post.Slug, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, refNames(who))

	res, err = f.posts.ToggleBookmark(ctx, bob.ID, post.Slug)
	require.NoError(t, err)
	assert.False(t, res.Bookmarked)
	assert.Equal(t, "Post "+post.Slug+" un-bookmarked successfully.", res.Message)

	events := f.notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, alice.ID, events[0].userID)
	assert.Equal(t, notifications.EventPostBookmarked, events[0].event.Type)
}

func TestPostService_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	golang := f.post(t, alice, "learning golang the hard way with many examples")
	f.post(t, alice, "cooking pasta the easy way with few ingredients")

	_, err := f.posts.Search(ctx, " go ", repository.Page{})
	assertAppError(t, err, models.CodeValidation, "q")

	found, err := f.posts.Search(ctx, "  GOLANG ", repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{golang.Slug}, viewSlugs(found))
}

func TestPostService_AuthorListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	mine := f.post(t, alice, "a post alice wrote about her garden this spring")
	f.post(t, bob, "a post bob wrote about his bicycle this summer")

	byAuthor, err := f.posts.ByAuthor(ctx, alice.ID, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{mine.Slug}, viewSlugs(byAuthor))

	choices, err := f.posts.NextPreviousChoices(ctx, alice.ID, repository.Page{Limit: 30})
	require.NoError(t, err)
	assert.Equal(t, []string{mine.Slug}, viewSlugs(choices))
}

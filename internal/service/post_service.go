package service

import (
	"context"
	"fmt"
	"strings"

	"blogapi/internal/cache"
	"blogapi/internal/featureflags"
	"blogapi/internal/models"
	"blogapi/internal/notifications"
	"blogapi/internal/observability"
	"blogapi/internal/repository"
	"blogapi/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// PostDeps wires a PostService.
type PostDeps struct {
	Tx          repository.Transactor
	Posts       repository.PostRepository
	Users       repository.UserRepository
	Bookmarks   repository.BookmarkRepository
	Tags        *TagService
	Flags       *featureflags.Manager
	Notifier    Notifier
	AfterCommit AfterCommit
}

// PostService owns the post aggregate: authoring, sequencing, tagging, bookmarks and listings.
type PostService struct {
	tx          repository.Transactor
	posts       repository.PostRepository
	users       repository.UserRepository
	bookmarks   repository.BookmarkRepository
	tags        *TagService
	flags       *featureflags.Manager
	notifier    Notifier
	afterCommit AfterCommit
}

func NewPostService(d PostDeps) *PostService {
	if d.AfterCommit == nil {
		d.AfterCommit = RunAsync
	}
	return &PostService{
		tx:          d.Tx,
		posts:       d.Posts,
		users:       d.Users,
		bookmarks:   d.Bookmarks,
		tags:        d.Tags,
		flags:       d.Flags,
		notifier:    d.Notifier,
		afterCommit: d.AfterCommit,
	}
}

// CreatePostInput is the post form. A nil Tags leaves the post untagged.
type CreatePostInput struct {
	AuthorID         uint
	Title            string
	Content          string
	Featured         bool
	NextPostSlug     string
	PreviousPostSlug string
	Tags             *string
}

// UpdatePostInput carries the editable fields. Nil fields are left unchanged and an empty
// sequencing slug clears the link. Titles can not change.
type UpdatePostInput struct {
	ActorID          uint
	Slug             string
	Content          *string
	Featured         *bool
	NextPostSlug     *string
	PreviousPostSlug *string
	Tags             *string
}

// BookmarkResult reports the bookmark state after a toggle.
type BookmarkResult struct {
	Success    bool   `json:"success"`
	Bookmarked bool   `json:"bookmarked"`
	Message    string `json:"message"`
}

// Create publishes a new post authored by the actor.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (view *models.PostView, err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.Create")
	defer span.Finish(&err)

	author, err := activeActor(ctx, s.users, in.AuthorID)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if err := validation.ValidateTitle(title); err != nil {
		return nil, models.NewFieldValidationError("title", err.Error())
	}
	if err := validation.ValidateContent(in.Content); err != nil {
		return nil, models.NewFieldValidationError("content", err.Error())
	}

	post := &models.Post{
		Title:    title,
		Content:  in.Content,
		Featured: in.Featured,
		AuthorID: &author.ID,
	}
	if post.NextPostID, err = s.linkedPostID(ctx, in.NextPostSlug, "next post"); err != nil {
		return nil, err
	}
	if post.PreviousPostID, err = s.linkedPostID(ctx, in.PreviousPostSlug, "previous post"); err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.posts.Create(ctx, post); err != nil {
			return err
		}
		if in.Tags != nil {
			if err := s.replaceTags(ctx, post, *in.Tags); err != nil {
				return err
			}
		}
		if _, err := s.users.RecountPosts(ctx, author.ID); err != nil {
			return err
		}
		return s.posts.RefreshSearchVector(ctx, post.ID)
	})
	if err != nil {
		return nil, err
	}
	span.AddAttributes(attribute.String("post.slug", post.Slug))

	pubID := author.PubID
	s.afterCommit(ctx, "invalidate_author_profile", func(ctx context.Context) error {
		cache.InvalidateProfile(ctx, pubID)
		return nil
	})
	return s.fresh(ctx, post.Slug)
}

// Get returns an active post by slug.
func (s *PostService) Get(ctx context.Context, slug string) (*models.PostView, error) {
	var view models.PostView
	err := cache.Aside(ctx, cache.PostSlugKey(slug), &view, cache.PostTTL, func() error {
		post, err := s.posts.GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
		view = post.View()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Update edits a post owned by the actor.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (view *models.PostView, err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.Update")
	defer span.Finish(&err)

	post, err := s.posts.GetBySlug(ctx, in.Slug)
	if err != nil {
		return nil, err
	}
	if !ownedBy(post, in.ActorID) {
		return nil, models.NewForbiddenError("You can only update your own post.")
	}

	var fields []string
	contentChanged := false
	if in.Content != nil {
		if err := validation.ValidateContent(*in.Content); err != nil {
			return nil, models.NewFieldValidationError("content", err.Error())
		}
		contentChanged = *in.Content != post.Content
		post.Content = *in.Content
		fields = append(fields, "content")
	}
	if in.Featured != nil {
		post.Featured = *in.Featured
		fields = append(fields, "featured")
	}
	if in.NextPostSlug != nil {
		if post.NextPostID, err = s.linkedPostID(ctx, *in.NextPostSlug, "next post"); err != nil {
			return nil, err
		}
		post.NextPost = nil
		fields = append(fields, "next_post_id")
	}
	if in.PreviousPostSlug != nil {
		if post.PreviousPostID, err = s.linkedPostID(ctx, *in.PreviousPostSlug, "previous post"); err != nil {
			return nil, err
		}
		post.PreviousPost = nil
		fields = append(fields, "previous_post_id")
	}

	refresh := contentChanged && s.flags.EnabledOr(featureflags.SearchVectorRefresh, in.ActorID, true)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.posts.Update(ctx, post, fields...); err != nil {
			return err
		}
		if in.Tags != nil {
			if err := s.replaceTags(ctx, post, *in.Tags); err != nil {
				return err
			}
		}
		if _, err := s.users.RecountPosts(ctx, in.ActorID); err != nil {
			return err
		}
		if refresh {
			return s.posts.RefreshSearchVector(ctx, post.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidatePost(ctx, post.Slug)
	return s.fresh(ctx, post.Slug)
}

// Delete soft deletes a post owned by the actor.
func (s *PostService) Delete(ctx context.Context, actorID uint, slug string) (string, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	if !ownedBy(post, actorID) {
		return "", models.NewForbiddenError("You can only delete your own post.")
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.posts.Deactivate(ctx, post); err != nil {
			return err
		}
		_, err := s.users.RecountPosts(ctx, actorID)
		return err
	})
	if err != nil {
		return "", err
	}

	s.invalidatePost(ctx, post.Slug)
	return fmt.Sprintf("Post %s deleted successfully.", post.Slug), nil
}

// ToggleBookmark bookmarks the post for the actor, or removes the bookmark.
func (s *PostService) ToggleBookmark(ctx context.Context, actorID uint, slug string) (*BookmarkResult, error) {
	actor, err := activeActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if ownedBy(post, actor.ID) {
		return nil, models.NewValidationError("You can not bookmark your own post.")
	}

	var bookmarked bool
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.bookmarks.Exists(ctx, actor.ID, post.ID)
		if err != nil {
			return err
		}
		if exists {
			return s.bookmarks.Remove(ctx, actor.ID, post.ID)
		}
		bookmarked = true
		return s.bookmarks.Add(ctx, actor.ID, post.ID)
	})
	if err != nil {
		return nil, err
	}

	result := &BookmarkResult{Success: true, Bookmarked: bookmarked}
	if bookmarked {
		result.Message = fmt.Sprintf("Post %s bookmarked successfully.", post.Slug)
		observability.BookmarkTogglesTotal.WithLabelValues("bookmarked").Inc()
	} else {
		result.Message = fmt.Sprintf("Post %s un-bookmarked successfully.", post.Slug)
		observability.BookmarkTogglesTotal.WithLabelValues("unbookmarked").Inc()
	}

	postSlug, actorRef, authorID := post.Slug, actor.Ref(), post.AuthorID
	s.afterCommit(ctx, "bookmark_side_effects", func(ctx context.Context) error {
		cache.InvalidatePost(ctx, postSlug)
		if !bookmarked || authorID == nil {
			return nil
		}
		return notify(ctx, s.notifier, *authorID, notifications.NewEvent(notifications.EventPostBookmarked,
			notifications.BookmarkPayload{PostSlug: postSlug, Actor: actorRef}))
	})
	return result, nil
}

// Search ranks active posts against a free text query.
func (s *PostService) Search(ctx context.Context, q string, page repository.Page) (views []models.PostView, err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.Search")
	defer span.Finish(&err)

	q, err = validation.NormalizeSearch(q)
	if err != nil {
		return nil, models.NewFieldValidationError("q", err.Error())
	}
	span.AddAttributes(attribute.String("search.query", q))
	posts, err := s.posts.Search(ctx, q, page)
	if err != nil {
		return nil, err
	}
	return models.Views(posts), nil
}

// List returns one of the named views over active posts.
func (s *PostService) List(ctx context.Context, listing repository.Listing, page repository.Page) ([]models.PostView, error) {
	posts, err := s.posts.List(ctx, listing, page)
	if err != nil {
		return nil, err
	}
	return models.Views(posts), nil
}

// ByAuthor lists the active posts written by userID, newest first.
func (s *PostService) ByAuthor(ctx context.Context, userID uint, page repository.Page) ([]models.PostView, error) {
	posts, err := s.posts.ByAuthor(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	return models.Views(posts), nil
}

// NextPreviousChoices lists the actor's posts that may be linked as next or previous post.
func (s *PostService) NextPreviousChoices(ctx context.Context, actorID uint, page repository.Page) ([]models.PostView, error) {
	return s.ByAuthor(ctx, actorID, page)
}

// BookmarkedBy lists the active posts userID has bookmarked.
func (s *PostService) BookmarkedBy(ctx context.Context, userID uint, page repository.Page) ([]models.PostView, error) {
	posts, err := s.posts.BookmarkedBy(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	return models.Views(posts), nil
}

// Bookmarkers lists the users who bookmarked the post.
func (s *PostService) Bookmarkers(ctx context.Context, slug string, page repository.Page) ([]*models.UserRef, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	users, err := s.bookmarks.Users(ctx, post.ID, page)
	if err != nil {
		return nil, err
	}
	return refs(users), nil
}

// linkedPostID resolves a sequencing slug. An empty slug means no link.
func (s *PostService) linkedPostID(ctx context.Context, slug, label string) (*uint, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	linked, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundMessage(fmt.Sprintf("No post found with provided %s slug.", label))
		}
		return nil, err
	}
	return &linked.ID, nil
}

func (s *PostService) replaceTags(ctx context.Context, post *models.Post, raw string) error {
	tags, err := s.tags.Resolve(ctx, raw)
	if err != nil {
		return err
	}
	return s.posts.ReplaceTags(ctx, post, tags)
}

// fresh reads a post past the cache, right after a write.
func (s *PostService) fresh(ctx context.Context, slug string) (*models.PostView, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	view := post.View()
	return &view, nil
}

func (s *PostService) invalidatePost(ctx context.Context, slug string) {
	s.afterCommit(ctx, "invalidate_post", func(ctx context.Context) error {
		cache.InvalidatePost(ctx, slug)
		return nil
	})
}

func ownedBy(post *models.Post, userID uint) bool {
	return post.AuthorID != nil && *post.AuthorID == userID
}

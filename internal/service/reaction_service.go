package service

import (
	"context"
	"fmt"

	"blogapi/internal/cache"
	"blogapi/internal/models"
	"blogapi/internal/notifications"
	"blogapi/internal/observability"
	"blogapi/internal/repository"
)

// ReactionService applies likes and dislikes and keeps the post counters in step.
type ReactionService struct {
	tx          repository.Transactor
	users       repository.UserRepository
	posts       repository.PostRepository
	reactions   repository.ReactionRepository
	notifier    Notifier
	afterCommit AfterCommit
}

// ReactionResult carries the recomputed counters of the post.
type ReactionResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	LikesCount    int    `json:"likes_count"`
	DislikesCount int    `json:"dislikes_count"`
	Score         int    `json:"score"`
}

func NewReactionService(
	tx repository.Transactor,
	users repository.UserRepository,
	posts repository.PostRepository,
	reactions repository.ReactionRepository,
	notifier Notifier,
	afterCommit AfterCommit,
) *ReactionService {
	if afterCommit == nil {
		afterCommit = RunAsync
	}
	return &ReactionService{
		tx:          tx,
		users:       users,
		posts:       posts,
		reactions:   reactions,
		notifier:    notifier,
		afterCommit: afterCommit,
	}
}

// Like records that the actor likes the post. Liking twice is a no-op.
func (s *ReactionService) Like(ctx context.Context, actorID uint, slug string) (*ReactionResult, error) {
	return s.react(ctx, actorID, slug, models.ReactionLike)
}

// Dislike records that the actor dislikes the post, replacing a like.
func (s *ReactionService) Dislike(ctx context.Context, actorID uint, slug string) (*ReactionResult, error) {
	return s.react(ctx, actorID, slug, models.ReactionDislike)
}

func (s *ReactionService) react(ctx context.Context, actorID uint, slug string, value models.ReactionValue) (result *ReactionResult, err error) {
	span, ctx := observability.NewSpan(ctx, "ReactionService."+value.String())
	defer span.Finish(&err)

	actor, err := activeActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	var counts models.ReactionCounts
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.reactions.Set(ctx, actor.ID, post.ID, value); err != nil {
			return err
		}
		var err error
		if counts, err = s.reactions.Counts(ctx, post.ID); err != nil {
			return err
		}
		return s.posts.SaveCounts(ctx, post.ID, counts)
	})
	if err != nil {
		return nil, err
	}
	observability.ReactionsTotal.WithLabelValues(value.String()).Inc()

	result = &ReactionResult{
		Success:       true,
		Message:       fmt.Sprintf("%s %s %s successfully.", actor.Username, value, post.Slug),
		LikesCount:    counts.Likes,
		DislikesCount: counts.Dislikes,
		Score:         counts.Score(),
	}

	eventType := notifications.EventPostLiked
	if value == models.ReactionDislike {
		eventType = notifications.EventPostDisliked
	}
	payload := notifications.ReactionPayload{
		PostSlug:      post.Slug,
		Actor:         actor.Ref(),
		LikesCount:    result.LikesCount,
		DislikesCount: result.DislikesCount,
		Score:         result.Score,
	}
	authorID := post.AuthorID
	s.afterCommit(ctx, "reaction_side_effects", func(ctx context.Context) error {
		cache.InvalidatePost(ctx, payload.PostSlug)
		if authorID == nil || *authorID == actorID {
			return nil
		}
		return notify(ctx, s.notifier, *authorID, notifications.NewEvent(eventType, payload))
	})
	return result, nil
}

// Likers lists the users who like the post.
func (s *ReactionService) Likers(ctx context.Context, slug string, page repository.Page) ([]*models.UserRef, error) {
	return s.reactors(ctx, slug, models.ReactionLike, page)
}

// Dislikers lists the users who dislike the post.
func (s *ReactionService) Dislikers(ctx context.Context, slug string, page repository.Page) ([]*models.UserRef, error) {
	return s.reactors(ctx, slug, models.ReactionDislike, page)
}

func (s *ReactionService) reactors(ctx context.Context, slug string, value models.ReactionValue, page repository.Page) ([]*models.UserRef, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	users, err := s.reactions.Users(ctx, post.ID, value, page)
	if err != nil {
		return nil, err
	}
	return refs(users), nil
}

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

// FollowService toggles follow edges and lists the follow graph.
type FollowService struct {
	tx          repository.Transactor
	users       repository.UserRepository
	follows     repository.FollowRepository
	posts       repository.PostRepository
	notifier    Notifier
	afterCommit AfterCommit
}

// FollowResult reports the state of the edge after a toggle.
type FollowResult struct {
	Success  bool   `json:"success"`
	Followed bool   `json:"followed"`
	Message  string `json:"message"`
}

// NewFollowService returns a FollowService. A nil afterCommit runs side effects asynchronously.
func NewFollowService(
	tx repository.Transactor,
	users repository.UserRepository,
	follows repository.FollowRepository,
	posts repository.PostRepository,
	notifier Notifier,
	afterCommit AfterCommit,
) *FollowService {
	if afterCommit == nil {
		afterCommit = RunAsync
	}
	return &FollowService{
		tx:          tx,
		users:       users,
		follows:     follows,
		posts:       posts,
		notifier:    notifier,
		afterCommit: afterCommit,
	}
}

// Toggle follows the target when the actor does not follow them yet, otherwise unfollows.
func (s *FollowService) Toggle(ctx context.Context, actorID uint, targetPubID string) (*FollowResult, error) {
	actor, err := activeActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.users.GetByPubID(ctx, targetPubID)
	if err != nil {
		return nil, err
	}
	if !target.IsActive {
		return nil, models.NewNotFoundMessage("No user found with provided pub id.")
	}
	if target.ID == actor.ID {
		return nil, models.NewFieldValidationError("pub_id", "You can not follow yourself.")
	}

	var followed bool
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		edge, err := s.follows.Find(ctx, actor.ID, target.ID)
		if err != nil {
			return err
		}
		if edge != nil {
			return s.follows.Delete(ctx, edge)
		}
		followed = true
		return s.follows.Create(ctx, &models.UserFollowing{UserID: actor.ID, FollowingUserID: target.ID})
	})
	if err != nil {
		return nil, err
	}

	result := &FollowResult{Success: true, Followed: followed}
	if followed {
		result.Message = fmt.Sprintf("%s followed successfully.", target.Username)
		observability.FollowTogglesTotal.WithLabelValues("followed").Inc()
	} else {
		result.Message = fmt.Sprintf("%s unfollowed successfully.", target.Username)
		observability.FollowTogglesTotal.WithLabelValues("unfollowed").Inc()
	}

	actorRef, targetID := actor.Ref(), target.ID
	pubIDs := []string{actor.PubID, target.PubID}
	s.afterCommit(ctx, "follow_side_effects", func(ctx context.Context) error {
		cache.InvalidateProfile(ctx, pubIDs...)
		if !followed {
			return nil
		}
		return notify(ctx, s.notifier, targetID,
			notifications.NewEvent(notifications.EventUserFollowed, notifications.FollowPayload{Follower: actorRef}))
	})
	return result, nil
}

// Followers lists the users following userID, most recent first.
func (s *FollowService) Followers(ctx context.Context, userID uint, page repository.Page) ([]*models.UserRef, error) {
	users, err := s.follows.Followers(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	return refs(users), nil
}

// Following lists the users userID follows, most recent first.
func (s *FollowService) Following(ctx context.Context, userID uint, page repository.Page) ([]*models.UserRef, error) {
	users, err := s.follows.Following(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	return refs(users), nil
}

// FeedForUser lists active posts by the users userID follows, newest first.
func (s *FollowService) FeedForUser(ctx context.Context, userID uint, page repository.Page) ([]models.PostView, error) {
	posts, err := s.posts.Feed(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	return models.Views(posts), nil
}

package repository

import (
	"context"
	"errors"

	"blogapi/internal/models"
	"blogapi/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines persistence operations for the follow graph.
type FollowRepository interface {
	Find(ctx context.Context, followerID, followedID uint) (*models.UserFollowing, error)
	Create(ctx context.Context, edge *models.UserFollowing) error
	Delete(ctx context.Context, edge *models.UserFollowing) error
	Followers(ctx context.Context, userID uint, page Page) ([]models.User, error)
	Following(ctx context.Context, userID uint, page Page) ([]models.User, error)
	Counts(ctx context.Context, userID uint) (followers, following int64, err error)
}

type followRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db, logger: observability.NewRepoLogger("user_followings")}
}

// Find returns the edge follower -> followed, or nil when there is none.
func (r *followRepository) Find(ctx context.Context, followerID, followedID uint) (*models.UserFollowing, error) {
	var edge models.UserFollowing
	err := conn(ctx, r.db).
		Where("user_id = ? AND following_user_id = ?", followerID, followedID).
		First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &edge, nil
}

func (r *followRepository) Create(ctx context.Context, edge *models.UserFollowing) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(edge).Error; err != nil {
		r.logger.LogError(ctx, err, "create")
		if isUniqueConstraintError(err) {
			return models.NewConflictError("You already follow this user.")
		}
		return wrapError(err)
	}
	r.logger.LogCreate(ctx, map[string]interface{}{
		"user_id":           edge.UserID,
		"following_user_id": edge.FollowingUserID,
	})
	return nil
}

func (r *followRepository) Delete(ctx context.Context, edge *models.UserFollowing) error {
	if err := conn(ctx, r.db).Delete(&models.UserFollowing{}, edge.ID).Error; err != nil {
		r.logger.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	r.logger.LogDelete(ctx, map[string]interface{}{
		"user_id":           edge.UserID,
		"following_user_id": edge.FollowingUserID,
	})
	return nil
}

// Followers lists the users following userID, most recent first.
func (r *followRepository) Followers(ctx context.Context, userID uint, page Page) ([]models.User, error) {
	return r.listUsers(ctx, "user_followings.user_id", "user_followings.following_user_id", userID, page)
}

// Following lists the users userID follows, most recent first.
func (r *followRepository) Following(ctx context.Context, userID uint, page Page) ([]models.User, error) {
	return r.listUsers(ctx, "user_followings.following_user_id", "user_followings.user_id", userID, page)
}

func (r *followRepository) listUsers(ctx context.Context, joinCol, filterCol string, userID uint, page Page) ([]models.User, error) {
	var users []models.User
	err := conn(ctx, r.db).
		Model(&models.User{}).
		Joins("JOIN user_followings ON users.id = "+joinCol).
		Where(filterCol+" = ?", userID).
		Order("user_followings.created_at DESC").
		Scopes(page.scope).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *followRepository) Counts(ctx context.Context, userID uint) (followers, following int64, err error) {
	db := conn(ctx, r.db)
	if err = db.Model(&models.UserFollowing{}).Where("following_user_id = ?", userID).Count(&followers).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	if err = db.Model(&models.UserFollowing{}).Where("user_id = ?", userID).Count(&following).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	return followers, following, nil
}

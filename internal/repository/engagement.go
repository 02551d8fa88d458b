package repository

import (
	"context"
	"errors"

	"blogapi/internal/models"
	"blogapi/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository stores the tri-state like/dislike relation between users and posts.
type ReactionRepository interface {
	Get(ctx context.Context, userID, postID uint) (*models.PostReaction, error)
	Set(ctx context.Context, userID, postID uint, value models.ReactionValue) error
	Counts(ctx context.Context, postID uint) (models.ReactionCounts, error)
	Users(ctx context.Context, postID uint, value models.ReactionValue, page Page) ([]models.User, error)
}

type reactionRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db, logger: observability.NewRepoLogger("post_reactions")}
}

// Get returns the user's reaction to the post, or nil when the user is neutral.
func (r *reactionRepository) Get(ctx context.Context, userID, postID uint) (*models.PostReaction, error) {
	var reaction models.PostReaction
	err := conn(ctx, r.db).Where("user_id = ? AND post_id = ?", userID, postID).First(&reaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &reaction, nil
}

// Set upserts the single reaction row of the pair. Setting the current value again is a no-op.
func (r *reactionRepository) Set(ctx context.Context, userID, postID uint, value models.ReactionValue) error {
	reaction := &models.PostReaction{UserID: userID, PostID: postID, Value: value}
	err := conn(ctx, r.db).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(reaction).Error
	if err != nil {
		r.logger.LogError(ctx, err, "upsert")
		return models.NewInternalError(err)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"user_id": userID, "post_id": postID, "value": value.String()})
	return nil
}

// Counts recomputes the like and dislike totals of a post from the reaction rows.
func (r *reactionRepository) Counts(ctx context.Context, postID uint) (models.ReactionCounts, error) {
	var rows []struct {
		Value models.ReactionValue
		Total int
	}
	if err := conn(ctx, r.db).
		Model(&models.PostReaction{}).
		Select("value, COUNT(*) AS total").
		Where("post_id = ?", postID).
		Group("value").
		Scan(&rows).Error; err != nil {
		return models.ReactionCounts{}, models.NewInternalError(err)
	}

	var counts models.ReactionCounts
	for _, row := range rows {
		switch row.Value {
		case models.ReactionLike:
			counts.Likes = row.Total
		case models.ReactionDislike:
			counts.Dislikes = row.Total
		}
	}
	return counts, nil
}

// Users lists who reacted to the post with value, most recent first.
func (r *reactionRepository) Users(ctx context.Context, postID uint, value models.ReactionValue, page Page) ([]models.User, error) {
	var users []models.User
	if err := conn(ctx, r.db).
		Model(&models.User{}).
		Joins("JOIN post_reactions ON post_reactions.user_id = users.id").
		Where("post_reactions.post_id = ? AND post_reactions.value = ?", postID, value).
		Order("post_reactions.updated_at DESC").
		Scopes(page.scope).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// BookmarkRepository stores which users saved which posts.
type BookmarkRepository interface {
	Exists(ctx context.Context, userID, postID uint) (bool, error)
	Add(ctx context.Context, userID, postID uint) error
	Remove(ctx context.Context, userID, postID uint) error
	Users(ctx context.Context, postID uint, page Page) ([]models.User, error)
}

type bookmarkRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewBookmarkRepository creates a new bookmark repository
func NewBookmarkRepository(db *gorm.DB) BookmarkRepository {
	return &bookmarkRepository{db: db, logger: observability.NewRepoLogger("post_bookmarks")}
}

func (r *bookmarkRepository) Exists(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.PostBookmark{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *bookmarkRepository) Add(ctx context.Context, userID, postID uint) error {
	err := conn(ctx, r.db).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PostBookmark{UserID: userID, PostID: postID}).Error
	if err != nil {
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.logger.LogCreate(ctx, map[string]interface{}{"user_id": userID, "post_id": postID})
	return nil
}

func (r *bookmarkRepository) Remove(ctx context.Context, userID, postID uint) error {
	if err := conn(ctx, r.db).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.PostBookmark{}).Error; err != nil {
		r.logger.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	r.logger.LogDelete(ctx, map[string]interface{}{"user_id": userID, "post_id": postID})
	return nil
}

// Users lists who bookmarked the post, most recent first.
func (r *bookmarkRepository) Users(ctx context.Context, postID uint, page Page) ([]models.User, error) {
	var users []models.User
	if err := conn(ctx, r.db).
		Model(&models.User{}).
		Joins("JOIN post_bookmarks ON post_bookmarks.user_id = users.id").
		Where("post_bookmarks.post_id = ?", postID).
		Order("post_bookmarks.created_at DESC").
		Scopes(page.scope).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

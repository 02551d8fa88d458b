package repository

import (
	"context"
	"errors"

	"blogapi/internal/models"
	"blogapi/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByPubID(ctx context.Context, pubID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	RecountPosts(ctx context.Context, id uint) (int, error)
}

type userRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, logger: observability.NewRepoLogger("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, models.NewNotFoundError("User", id))
	}
	return &user, nil
}

func (r *userRepository) GetByPubID(ctx context.Context, pubID string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).Where("pub_id = ?", pubID).First(&user).Error; err != nil {
		return nil, notFoundOr(err, models.NewNotFoundMessage("No user found with provided pub id."))
	}
	return &user, nil
}

// GetByEmail returns nil without error when no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// FindByUsernameOrEmail returns the account colliding with either value, or nil.
func (r *userRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	var user models.User
	err := conn(ctx, r.db).
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", username, email).
		Order("id").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.User{}).
		Where("LOWER(username) = LOWER(?) AND id <> ?", username, exceptID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := conn(ctx, r.db).Create(user).Error; err != nil {
		r.logger.LogError(ctx, err, "create")
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A user with that username or email already exists.")
		}
		return wrapError(err)
	}
	r.logger.LogCreate(ctx, map[string]interface{}{"pub_id": user.PubID})
	return nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "update")
		if isUniqueConstraintError(res.Error) {
			return models.NewConflictError("A user with that username already exists.")
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"user_id": id, "fields": len(fields)})
	return nil
}

// RecountPosts recomputes the denormalized post count from the user's active posts.
func (r *userRepository) RecountPosts(ctx context.Context, id uint) (int, error) {
	db := conn(ctx, r.db)
	var count int64
	if err := db.Model(&models.Post{}).Scopes(ActivePosts).
		Where("posts.author_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if err := db.Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("post_count", count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return int(count), nil
}

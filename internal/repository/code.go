package repository

import (
	"context"
	"time"

	"blogapi/internal/models"
	"blogapi/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CodeRecord is implemented by every emailed code model.
type CodeRecord interface {
	*models.VerificationCode | *models.PasswordResetCode
}

// CodeRepository persists one kind of emailed code.
type CodeRepository[C CodeRecord] interface {
	Create(ctx context.Context, code C) error
	Latest(ctx context.Context, userID uint) (C, error)
	ByCode(ctx context.Context, code string) (C, error)
	SaveWindow(ctx context.Context, code C) error
	ExpireAll(ctx context.Context, userID uint, now time.Time) error
}

type codeRepository[T any, C interface {
	*T
	CodeRecord
}] struct {
	db     *gorm.DB
	logger *observability.RepoLogger
	label  string
}

// NewVerificationCodeRepository returns the repository for account verification codes.
func NewVerificationCodeRepository(db *gorm.DB) CodeRepository[*models.VerificationCode] {
	return &codeRepository[models.VerificationCode, *models.VerificationCode]{
		db:     db,
		logger: observability.NewRepoLogger("verification_codes"),
		label:  "verification code",
	}
}

// NewPasswordResetCodeRepository returns the repository for password reset codes.
func NewPasswordResetCodeRepository(db *gorm.DB) CodeRepository[*models.PasswordResetCode] {
	return &codeRepository[models.PasswordResetCode, *models.PasswordResetCode]{
		db:     db,
		logger: observability.NewRepoLogger("password_reset_codes"),
		label:  "password reset code",
	}
}

func (r *codeRepository[T, C]) Create(ctx context.Context, code C) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(code).Error; err != nil {
		r.logger.LogError(ctx, err, "create")
		return wrapError(err)
	}
	r.logger.LogCreate(ctx, nil)
	return nil
}

// Latest returns the most recently issued code of the user.
func (r *codeRepository[T, C]) Latest(ctx context.Context, userID uint) (C, error) {
	var rec T
	err := conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		First(&rec).Error
	if err != nil {
		var zero C
		return zero, notFoundOr(err, models.NewNotFoundMessage("No "+r.label+" found for this user."))
	}
	return any(&rec).(C), nil
}

// ByCode looks a code up by exact value with its user loaded.
func (r *codeRepository[T, C]) ByCode(ctx context.Context, code string) (C, error) {
	var rec T
	if err := conn(ctx, r.db).Preload("User").Where("code = ?", code).First(&rec).Error; err != nil {
		var zero C
		return zero, notFoundOr(err, models.NewNotFoundMessage("Invalid "+r.label+"."))
	}
	return any(&rec).(C), nil
}

// SaveWindow persists a rotated or expired code value.
func (r *codeRepository[T, C]) SaveWindow(ctx context.Context, code C) error {
	if err := conn(ctx, r.db).Model(code).Omit(clause.Associations).
		Select("code", "expires_at", "updated_at").
		Updates(code).Error; err != nil {
		r.logger.LogError(ctx, err, "update")
		return wrapError(err)
	}
	r.logger.LogUpdate(ctx, nil)
	return nil
}

// ExpireAll makes every outstanding code of the user unusable.
func (r *codeRepository[T, C]) ExpireAll(ctx context.Context, userID uint, now time.Time) error {
	var rec T
	if err := conn(ctx, r.db).Model(&rec).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Update("expires_at", now.Add(-time.Second)).Error; err != nil {
		r.logger.LogError(ctx, err, "update")
		return models.NewInternalError(err)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"user_id": userID, "expired": "all"})
	return nil
}

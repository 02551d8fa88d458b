package repository

import (
	"context"
	"errors"
	"strings"

	"blogapi/internal/models"
	"blogapi/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository defines persistence operations for tags.
type TagRepository interface {
	Resolve(ctx context.Context, names []string) ([]models.Tag, error)
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	List(ctx context.Context, page Page) ([]models.Tag, error)
	ByPostCount(ctx context.Context, page Page) ([]models.Tag, error)
}

type tagRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db, logger: observability.NewRepoLogger("tags")}
}

// Resolve looks every name up case-insensitively, creating missing tags with the given
// spelling. The result holds each tag once.
func (r *tagRepository) Resolve(ctx context.Context, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	seen := make(map[uint]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tag, err := r.getOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[tag.ID]; dup {
			continue
		}
		seen[tag.ID] = struct{}{}
		tags = append(tags, *tag)
	}
	return tags, nil
}

func (r *tagRepository) getOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	tag, err := r.find(ctx, name)
	if err != nil || tag != nil {
		return tag, err
	}

	return r.insert(ctx, name)
}

// insert creates the tag unless one with the same name in any case already exists.
// A conflicting row is skipped rather than raised so an enclosing transaction stays usable.
func (r *tagRepository) insert(ctx context.Context, name string) (*models.Tag, error) {
	tag := &models.Tag{Name: name}
	res := conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(tag)
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "create")
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		existing, err := r.find(ctx, name)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, models.NewInternalError(errors.New("tag insert skipped without a conflicting row"))
		}
		return existing, nil
	}
	r.logger.LogCreate(ctx, map[string]interface{}{"name": tag.Name})
	return tag, nil
}

func (r *tagRepository) find(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	if err := conn(ctx, r.db).Where("LOWER(name) = LOWER(?)", name).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &tag, nil
}

func (r *tagRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	tag, err := r.find(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, models.NewNotFoundMessage("No tag found with provided name.")
	}
	return tag, nil
}

// withPostCount selects tags together with the number of active posts carrying them.
func (r *tagRepository) withPostCount(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).
		Model(&models.Tag{}).
		Select("tags.*, COUNT(posts.id) AS post_count").
		Joins("LEFT JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("LEFT JOIN posts ON posts.id = post_tags.post_id AND posts.is_active = ?", true).
		Group("tags.id")
}

func (r *tagRepository) List(ctx context.Context, page Page) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.withPostCount(ctx).
		Order("LOWER(tags.name) ASC").
		Scopes(page.scope).
		Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

func (r *tagRepository) ByPostCount(ctx context.Context, page Page) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.withPostCount(ctx).
		Order("post_count DESC").
		Order("LOWER(tags.name) ASC").
		Scopes(page.scope).
		Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

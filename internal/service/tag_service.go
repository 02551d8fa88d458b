package service

import (
	"context"

	"blogapi/internal/models"
	"blogapi/internal/repository"
	"blogapi/internal/validation"
)

// TagService parses tag lists and serves tag listings.
type TagService struct {
	tags  repository.TagRepository
	posts repository.PostRepository
}

func NewTagService(tags repository.TagRepository, posts repository.PostRepository) *TagService {
	return &TagService{tags: tags, posts: posts}
}

// Resolve turns a comma separated list into distinct stored tags, creating the missing ones.
func (s *TagService) Resolve(ctx context.Context, raw string) ([]models.Tag, error) {
	names := validation.SplitTags(raw)
	for _, name := range names {
		if err := validation.ValidateTagName(name); err != nil {
			return nil, models.NewFieldValidationError("tags", err.Error())
		}
	}
	return s.tags.Resolve(ctx, names)
}

// List returns tags alphabetically.
func (s *TagService) List(ctx context.Context, page repository.Page) ([]models.Tag, error) {
	return s.tags.List(ctx, page)
}

// ByPostCount returns tags ordered by how many active posts carry them.
func (s *TagService) ByPostCount(ctx context.Context, page repository.Page) ([]models.Tag, error) {
	return s.tags.ByPostCount(ctx, page)
}

// Posts lists the active posts tagged with name.
func (s *TagService) Posts(ctx context.Context, name string, page repository.Page) ([]models.PostView, error) {
	tag, err := s.tags.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ByTag(ctx, tag.ID, page)
	if err != nil {
		return nil, err
	}
	return models.Views(posts), nil
}

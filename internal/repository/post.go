package repository

import (
	"context"
	"strings"

	"blogapi/internal/database"
	"blogapi/internal/models"
	"blogapi/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Listing names a pre-filtered, ordered view over active posts.
type Listing string

const (
	ListingRecent         Listing = "recent"
	ListingFeatured       Listing = "featured"
	ListingMostLiked      Listing = "most_liked"
	ListingMostDisliked   Listing = "most_disliked"
	ListingOldest         Listing = "oldest"
	ListingMostBookmarked Listing = "most_bookmarked"
)

const (
	bookmarksCountColumn = "(SELECT COUNT(*) FROM post_bookmarks WHERE post_bookmarks.post_id = posts.id) AS bookmarks_count"
	searchSimilarity     = 0.1
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	Update(ctx context.Context, post *models.Post, fields ...string) error
	ReplaceTags(ctx context.Context, post *models.Post, tags []models.Tag) error
	Deactivate(ctx context.Context, post *models.Post) error
	SaveCounts(ctx context.Context, postID uint, counts models.ReactionCounts) error
	RefreshSearchVector(ctx context.Context, postID uint) error
	List(ctx context.Context, listing Listing, page Page) ([]*models.Post, error)
	ByAuthor(ctx context.Context, authorID uint, page Page) ([]*models.Post, error)
	ByTag(ctx context.Context, tagID uint, page Page) ([]*models.Post, error)
	BookmarkedBy(ctx context.Context, userID uint, page Page) ([]*models.Post, error)
	Feed(ctx context.Context, userID uint, page Page) ([]*models.Post, error)
	Search(ctx context.Context, query string, page Page) ([]*models.Post, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, logger: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(post).Error; err != nil {
		r.logger.LogError(ctx, err, "create")
		return wrapError(err)
	}
	r.logger.LogCreate(ctx, map[string]interface{}{"slug": post.Slug})
	return nil
}

// detailed selects active posts with the relations and computed columns a view needs.
func (r *postRepository) detailed(ctx context.Context) *gorm.DB {
	return withRelations(r.active(ctx).Select("posts.*, " + bookmarksCountColumn))
}

func (r *postRepository) active(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).Model(&models.Post{}).Scopes(ActivePosts)
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("NextPost", ActivePosts).
		Preload("PreviousPost", ActivePosts).
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tags.name")
		})
}

// GetBySlug returns the active post with that slug.
func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	if err := r.detailed(ctx).Where("posts.slug = ?", slug).First(&post).Error; err != nil {
		return nil, notFoundOr(err, models.NewNotFoundMessage("No post found with provided slug."))
	}
	return &post, nil
}

// Update writes the named columns. Derived columns refreshed by model hooks are always written.
func (r *postRepository) Update(ctx context.Context, post *models.Post, fields ...string) error {
	cols := append([]string{"estimated_reading_time", "updated_at"}, fields...)
	if err := conn(ctx, r.db).
		Model(post).
		Select(cols).
		Omit(clause.Associations).
		Updates(post).Error; err != nil {
		r.logger.LogError(ctx, err, "update")
		return wrapError(err)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"slug": post.Slug, "fields": strings.Join(fields, ",")})
	return nil
}

// ReplaceTags makes tags the complete tag set of post.
func (r *postRepository) ReplaceTags(ctx context.Context, post *models.Post, tags []models.Tag) error {
	if err := conn(ctx, r.db).Model(post).Association("Tags").Replace(tags); err != nil {
		r.logger.LogError(ctx, err, "update")
		return models.NewInternalError(err)
	}
	post.Tags = tags
	return nil
}

// Deactivate soft deletes post. Associations are left in place.
func (r *postRepository) Deactivate(ctx context.Context, post *models.Post) error {
	if err := conn(ctx, r.db).Model(post).UpdateColumn("is_active", false).Error; err != nil {
		r.logger.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	post.IsActive = false
	r.logger.LogDelete(ctx, map[string]interface{}{"slug": post.Slug, "soft": true})
	return nil
}

// SaveCounts stores recomputed engagement counters without touching any other column.
func (r *postRepository) SaveCounts(ctx context.Context, postID uint, counts models.ReactionCounts) error {
	if err := conn(ctx, r.db).Model(&models.Post{}).Where("id = ?", postID).UpdateColumns(map[string]any{
		"likes_count":    counts.Likes,
		"dislikes_count": counts.Dislikes,
		"score":          counts.Score(),
	}).Error; err != nil {
		r.logger.LogError(ctx, err, "update")
		return models.NewInternalError(err)
	}
	return nil
}

// RefreshSearchVector rebuilds the weighted full-text vector. Only Postgres keeps one.
func (r *postRepository) RefreshSearchVector(ctx context.Context, postID uint) error {
	if !database.IsPostgres(r.db) {
		return nil
	}
	err := conn(ctx, r.db).Exec(`UPDATE posts
SET search_vector = setweight(to_tsvector('english', coalesce(title, '')), 'A')
    || setweight(to_tsvector('english', coalesce(content, '')), 'B')
WHERE id = ?`, postID).Error
	if err != nil {
		r.logger.LogError(ctx, err, "update")
		return models.NewInternalError(err)
	}
	return nil
}

// List returns one of the named views.
func (r *postRepository) List(ctx context.Context, listing Listing, page Page) ([]*models.Post, error) {
	q := r.detailed(ctx)
	switch listing {
	case ListingFeatured:
		q = q.Where("posts.featured = ?", true).Order("posts.created_at DESC").Order("posts.id DESC")
	case ListingMostLiked:
		q = q.Order("posts.score DESC").Order("posts.created_at DESC").Order("posts.id DESC")
	case ListingMostDisliked:
		q = q.Order("posts.score ASC").Order("posts.created_at DESC").Order("posts.id DESC")
	case ListingOldest:
		q = q.Order("posts.created_at ASC").Order("posts.id ASC")
	case ListingMostBookmarked:
		q = q.Order("bookmarks_count DESC").Order("posts.created_at DESC").Order("posts.id DESC")
	default:
		q = q.Order("posts.created_at DESC").Order("posts.id DESC")
	}
	return r.find(q, page)
}

func (r *postRepository) ByAuthor(ctx context.Context, authorID uint, page Page) ([]*models.Post, error) {
	q := r.detailed(ctx).
		Where("posts.author_id = ?", authorID).
		Order("posts.created_at DESC").Order("posts.id DESC")
	return r.find(q, page)
}

func (r *postRepository) ByTag(ctx context.Context, tagID uint, page Page) ([]*models.Post, error) {
	q := r.detailed(ctx).
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Where("post_tags.tag_id = ?", tagID).
		Order("posts.created_at DESC").Order("posts.id DESC")
	return r.find(q, page)
}

// BookmarkedBy lists the active posts userID bookmarked, most recent bookmark first.
func (r *postRepository) BookmarkedBy(ctx context.Context, userID uint, page Page) ([]*models.Post, error) {
	q := r.detailed(ctx).
		Joins("JOIN post_bookmarks pb ON pb.post_id = posts.id").
		Where("pb.user_id = ?", userID).
		Order("pb.created_at DESC").Order("posts.id DESC")
	return r.find(q, page)
}

// Feed lists active posts written by the users userID follows.
func (r *postRepository) Feed(ctx context.Context, userID uint, page Page) ([]*models.Post, error) {
	followed := conn(ctx, r.db).
		Model(&models.UserFollowing{}).
		Select("following_user_id").
		Where("user_id = ?", userID)
	q := r.detailed(ctx).
		Where("posts.author_id IN (?)", followed).
		Order("posts.created_at DESC").Order("posts.id DESC")
	return r.find(q, page)
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search ranks active posts against query. Postgres combines the weighted full-text rank
// with trigram title similarity; other dialects fall back to substring matching.
func (r *postRepository) Search(ctx context.Context, query string, page Page) ([]*models.Post, error) {
	if database.IsPostgres(r.db) {
		defer observability.TrackSearch("postgres")()
		q := withRelations(r.active(ctx).
			Select("posts.*, "+bookmarksCountColumn+
				", ts_rank(posts.search_vector, plainto_tsquery('english', ?)) + similarity(posts.title, ?) AS search_rank",
				query, query)).
			Where("posts.search_vector @@ plainto_tsquery('english', ?) OR similarity(posts.title, ?) > ?",
				query, query, searchSimilarity).
			Order("search_rank DESC").Order("posts.id DESC")
		return r.find(q, page)
	}

	defer observability.TrackSearch("generic")()
	like := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	q := withRelations(r.active(ctx).
		Select("posts.*, "+bookmarksCountColumn+
			", CASE WHEN LOWER(posts.title) LIKE ? ESCAPE '\\' THEN 1 ELSE 0 END AS search_rank", like)).
		Where("LOWER(posts.title) LIKE ? ESCAPE '\\' OR LOWER(posts.content) LIKE ? ESCAPE '\\'", like, like).
		Order("search_rank DESC").Order("posts.created_at DESC").Order("posts.id DESC")
	return r.find(q, page)
}

func (r *postRepository) find(q *gorm.DB, page Page) ([]*models.Post, error) {
	var posts []*models.Post
	if err := q.Scopes(page.scope).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

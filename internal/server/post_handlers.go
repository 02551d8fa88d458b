package server

import (
	"blogapi/internal/repository"
	"blogapi/internal/service"

	"github.com/gofiber/fiber/v2"
)

// listPosts serves one of the named views over active posts.
// @Summary List posts
// @Description Active posts, newest first. Sibling routes serve the featured, most-liked,
// @Description most-disliked, oldest and most-bookmarked views.
// @Tags posts
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.PostView
// @Router /posts [get]
func (s *Server) listPosts(listing repository.Listing) fiber.Handler {
	return func(c *fiber.Ctx) error {
		posts, err := s.posts.List(c.UserContext(), listing, parsePagination(c, 10))
		return respond(c, fiber.StatusOK, posts, err)
	}
}

// SearchPosts handles GET /api/posts/search?q=...
// @Summary Search posts
// @Tags posts
// @Produce json
// @Param q query string true "Search terms"
// @Success 200 {array} models.PostView
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/search [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	posts, err := s.posts.Search(c.UserContext(), c.Query("q"), parsePagination(c, 10))
	return respond(c, fiber.StatusOK, posts, err)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,content=string,featured=bool,next_post=string,previous_post=string,tags=string} true "Post"
// @Success 201 {object} models.PostView
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Title        string  `json:"title"`
		Content      string  `json:"content"`
		Featured     bool    `json:"featured"`
		NextPost     string  `json:"next_post"`
		PreviousPost string  `json:"previous_post"`
		Tags         *string `json:"tags"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.posts.Create(c.UserContext(), service.CreatePostInput{
		AuthorID:         currentUserID(c),
		Title:            req.Title,
		Content:          req.Content,
		Featured:         req.Featured,
		NextPostSlug:     req.NextPost,
		PreviousPostSlug: req.PreviousPost,
		Tags:             req.Tags,
	})
	return respond(c, fiber.StatusCreated, post, err)
}

// GetPost handles GET /api/posts/:slug
// @Summary Post detail
// @Tags posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} models.PostView
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{slug} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.posts.Get(c.UserContext(), c.Params("slug"))
	return respond(c, fiber.StatusOK, post, err)
}

// UpdatePost handles PATCH /api/posts/:slug
// @Summary Update a post
// @Description Omitted fields are left unchanged. An empty next_post or previous_post clears the link.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Post slug"
// @Param request body object{content=string,featured=bool,next_post=string,previous_post=string,tags=string} true "Changes"
// @Success 200 {object} models.PostView
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{slug} [patch]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	var req struct {
		Content      *string `json:"content"`
		Featured     *bool   `json:"featured"`
		NextPost     *string `json:"next_post"`
		PreviousPost *string `json:"previous_post"`
		Tags         *string `json:"tags"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.posts.Update(c.UserContext(), service.UpdatePostInput{
		ActorID:          currentUserID(c),
		Slug:             c.Params("slug"),
		Content:          req.Content,
		Featured:         req.Featured,
		NextPostSlug:     req.NextPost,
		PreviousPostSlug: req.PreviousPost,
		Tags:             req.Tags,
	})
	return respond(c, fiber.StatusOK, post, err)
}

// DeletePost handles DELETE /api/posts/:slug
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Post slug"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{slug} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	msg, err := s.posts.Delete(c.UserContext(), currentUserID(c), c.Params("slug"))
	return respondMessage(c, msg, err)
}

// ToggleBookmark handles POST /api/posts/:slug/bookmark
// @Summary Bookmark or unbookmark a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Post slug"
// @Success 200 {object} service.BookmarkResult
// @Router /posts/{slug}/bookmark [post]
func (s *Server) ToggleBookmark(c *fiber.Ctx) error {
	result, err := s.posts.ToggleBookmark(c.UserContext(), currentUserID(c), c.Params("slug"))
	return respond(c, fiber.StatusOK, result, err)
}

// LikePost handles POST /api/posts/:slug/like
// @Summary Like a post
// @Description Likes the post. Repeating is a no-op. A dislike is replaced.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Post slug"
// @Success 200 {object} service.ReactionResult
// @Router /posts/{slug}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	result, err := s.reactions.Like(c.UserContext(), currentUserID(c), c.Params("slug"))
	return respond(c, fiber.StatusOK, result, err)
}

// DislikePost handles POST /api/posts/:slug/dislike
// @Summary Dislike a post
// @Description Dislikes the post. Repeating is a no-op. A like is replaced.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Post slug"
// @Success 200 {object} service.ReactionResult
// @Router /posts/{slug}/dislike [post]
func (s *Server) DislikePost(c *fiber.Ctx) error {
	result, err := s.reactions.Dislike(c.UserContext(), currentUserID(c), c.Params("slug"))
	return respond(c, fiber.StatusOK, result, err)
}

// GetPostLikers handles GET /api/posts/:slug/likes
func (s *Server) GetPostLikers(c *fiber.Ctx) error {
	users, err := s.reactions.Likers(c.UserContext(), c.Params("slug"), parsePagination(c, 10))
	return respond(c, fiber.StatusOK, users, err)
}

// GetPostDislikers handles GET /api/posts/:slug/dislikes
func (s *Server) GetPostDislikers(c *fiber.Ctx) error {
	users, err := s.reactions.Dislikers(c.UserContext(), c.Params("slug"), parsePagination(c, 10))
	return respond(c, fiber.StatusOK, users, err)
}

// GetPostBookmarkers handles GET /api/posts/:slug/bookmarks
func (s *Server) GetPostBookmarkers(c *fiber.Ctx) error {
	users, err := s.posts.Bookmarkers(c.UserContext(), c.Params("slug"), parsePagination(c, 10))
	return respond(c, fiber.StatusOK, users, err)
}

// GetTags handles GET /api/tags
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {array} models.Tag
// @Router /tags [get]
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.tags.List(c.UserContext(), parsePagination(c, choicesPageSize))
	return respond(c, fiber.StatusOK, tags, err)
}

// GetTagsByPostCount handles GET /api/tags/by-post-count
func (s *Server) GetTagsByPostCount(c *fiber.Ctx) error {
	tags, err := s.tags.ByPostCount(c.UserContext(), parsePagination(c, choicesPageSize))
	return respond(c, fiber.StatusOK, tags, err)
}

// GetTagPosts handles GET /api/tags/:name/posts
// @Summary Posts carrying a tag
// @Tags tags
// @Produce json
// @Param name path string true "Tag name"
// @Success 200 {array} models.PostView
// @Failure 404 {object} models.ErrorResponse
// @Router /tags/{name}/posts [get]
func (s *Server) GetTagPosts(c *fiber.Ctx) error {
	posts, err := s.tags.Posts(c.UserContext(), c.Params("name"), parsePagination(c, 10))
	return respond(c, fiber.StatusOK, posts, err)
}

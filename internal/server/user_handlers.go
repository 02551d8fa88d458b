package server

import (
	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/users/register
// @Summary Register an account
// @Description Create an inactive account and email a verification code
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string,password2=string,name=string} true "Registration form"
// @Success 201 {object} service.RegisterResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
		Name      string `json:"name"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.identity.Register(c.UserContext(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Password2: req.Password2,
		Name:      req.Name,
		IP:        c.IP(),
	})
	return respond(c, fiber.StatusCreated, result, err)
}

// Verify handles POST /api/users/verify
// @Summary Verify an account
// @Description Redeem a verification code. An expired code is replaced and re-sent.
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{code=string} true "Verification code"
// @Success 200 {object} service.VerifyResult
// @Failure 404 {object} models.ErrorResponse
// @Failure 410 {object} models.ErrorResponse
// @Router /users/verify [post]
func (s *Server) Verify(c *fiber.Ctx) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	result, err := s.identity.Verify(c.UserContext(), req.Code)
	return respond(c, fiber.StatusOK, result, err)
}

// ResendVerification handles POST /api/users/verify/resend
// @Summary Resend the verification code
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Credentials"
// @Success 200 {object} object{success=bool,message=string}
// @Router /users/verify/resend [post]
func (s *Server) ResendVerification(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	msg, err := s.identity.ResendVerification(c.UserContext(), req.Email, req.Password)
	return respondMessage(c, msg, err)
}

// SendPasswordReset handles POST /api/users/password-reset/send
// @Summary Email a password reset code
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Account email"
// @Success 200 {object} object{success=bool,message=string}
// @Router /users/password-reset/send [post]
func (s *Server) SendPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	msg, err := s.identity.SendPasswordReset(c.UserContext(), req.Email)
	return respondMessage(c, msg, err)
}

// ResetPassword handles POST /api/users/password-reset
// @Summary Reset a password with a code
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{code=string,password=string,password2=string} true "Reset form"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 410 {object} models.ErrorResponse
// @Router /users/password-reset [post]
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		Code      string `json:"code"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	msg, err := s.identity.ResetPassword(c.UserContext(), req.Code, req.Password, req.Password2)
	return respondMessage(c, msg, err)
}

// Login handles POST /api/users/login
// @Summary Log in
// @Description Authenticate an active account and return a bearer token
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.identity.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondError(c, err)
	}
	token, err := middleware.IssueToken(s.config.JWTSecret, user.ID, tokenTTL)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// GetMe handles GET /api/users/me
// @Summary Current user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserProfile
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	profile, err := s.identity.Profile(c.UserContext(), currentUserID(c))
	return respond(c, fiber.StatusOK, profile, err)
}

// UpdateMe handles PATCH /api/users/me
// @Summary Update the current user's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{username=string,name=string} true "Fields to change"
// @Success 200 {object} models.UserProfile
// @Failure 409 {object} models.ErrorResponse
// @Router /users/me [patch]
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	var req struct {
		Username *string `json:"username"`
		Name     *string `json:"name"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	profile, err := s.identity.UpdateProfile(c.UserContext(), currentUserID(c), service.UpdateProfileInput{
		Username: req.Username,
		Name:     req.Name,
	})
	return respond(c, fiber.StatusOK, profile, err)
}

// DeleteMe handles DELETE /api/users/me
// @Summary Deactivate the current account
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{confirm=bool} true "Confirmation"
// @Success 200 {object} object{success=bool,message=string}
// @Router /users/me [delete]
func (s *Server) DeleteMe(c *fiber.Ctx) error {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	msg, err := s.identity.Deactivate(c.UserContext(), currentUserID(c), req.Confirm)
	return respondMessage(c, msg, err)
}

// GetMyFollowers handles GET /api/users/me/followers
func (s *Server) GetMyFollowers(c *fiber.Ctx) error {
	users, err := s.follows.Followers(c.UserContext(), currentUserID(c), parsePagination(c, 10))
	return respond(c, fiber.StatusOK, users, err)
}

// GetMyFollowing handles GET /api/users/me/following
func (s *Server) GetMyFollowing(c *fiber.Ctx) error {
	users, err := s.follows.Following(c.UserContext(), currentUserID(c), parsePagination(c, 10))
	return respond(c, fiber.StatusOK, users, err)
}

// GetMyFeed handles GET /api/users/me/following/posts
// @Summary Posts by followed users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.PostView
// @Router /users/me/following/posts [get]
func (s *Server) GetMyFeed(c *fiber.Ctx) error {
	posts, err := s.follows.FeedForUser(c.UserContext(), currentUserID(c), parsePagination(c, 10))
	return respond(c, fiber.StatusOK, posts, err)
}

// GetMyBookmarks handles GET /api/users/me/bookmarks
func (s *Server) GetMyBookmarks(c *fiber.Ctx) error {
	posts, err := s.posts.BookmarkedBy(c.UserContext(), currentUserID(c), parsePagination(c, 10))
	return respond(c, fiber.StatusOK, posts, err)
}

// GetMyPosts handles GET /api/users/me/posts
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	posts, err := s.posts.ByAuthor(c.UserContext(), currentUserID(c), parsePagination(c, 10))
	return respond(c, fiber.StatusOK, posts, err)
}

// GetNextPreviousChoices handles GET /api/users/me/next-previous-posts
// The caller's posts that can be linked as next or previous in a sequence.
func (s *Server) GetNextPreviousChoices(c *fiber.Ctx) error {
	posts, err := s.posts.NextPreviousChoices(c.UserContext(), currentUserID(c), parsePagination(c, allChoicesPageSize))
	return respond(c, fiber.StatusOK, posts, err)
}

// ToggleFollow handles POST /api/users/follow
// @Summary Follow or unfollow a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{pub_id=string} true "Target user"
// @Success 200 {object} service.FollowResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/follow [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	var req struct {
		PubID string `json:"pub_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.PubID == "" {
		return models.RespondError(c, models.NewFieldValidationError("pub_id", "This field is required."))
	}
	result, err := s.follows.Toggle(c.UserContext(), currentUserID(c), req.PubID)
	return respond(c, fiber.StatusOK, result, err)
}

// GetUserProfile handles GET /api/users/:pubId
// @Summary Public profile
// @Tags users
// @Produce json
// @Param pubId path string true "Public user id"
// @Success 200 {object} models.UserProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{pubId} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	profile, err := s.identity.PublicProfile(c.UserContext(), c.Params("pubId"))
	return respond(c, fiber.StatusOK, profile, err)
}

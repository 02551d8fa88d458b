// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "blogapi/docs" // swagger docs
	"blogapi/internal/cache"
	"blogapi/internal/config"
	"blogapi/internal/database"
	"blogapi/internal/featureflags"
	"blogapi/internal/mail"
	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/notifications"
	"blogapi/internal/repository"
	"blogapi/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	// tokenTTL is the lifetime of access tokens issued at login.
	tokenTTL = 24 * time.Hour
	// bodyLimit caps request bodies; posts are plain text.
	bodyLimit = 1 * 1024 * 1024
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	mailer         mail.Mailer
	mailQueue      *asynq.Client
	mailWorker     *mail.Worker
	afterCommit    service.AfterCommit
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	identity       *service.IdentityService
	follows        *service.FollowService
	tags           *service.TagService
	posts          *service.PostService
	reactions      *service.ReactionService
}

// Option customizes a Server built by NewServerWithDeps.
type Option func(*Server)

// WithMailer replaces the mail backend chosen from configuration.
func WithMailer(m mail.Mailer) Option {
	return func(s *Server) { s.mailer = m }
}

// WithAfterCommit replaces how post-commit side effects are run.
func WithAfterCommit(fn service.AfterCommit) Option {
	return func(s *Server) { s.afterCommit = fn }
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("server requires configuration and a database")
	}
	middleware.InitMiddleware(cfg)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("blogapi"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.mailer == nil {
		server.mailer = mail.New(cfg)
		if cfg.MailQueue && redisClient != nil {
			opt := mail.RedisOpt(redisClient)
			server.mailWorker = mail.NewWorker(opt, server.mailer, cfg.MailWorkers)
			server.mailQueue = asynq.NewClient(opt)
			server.mailer = mail.NewQueuedMailer(server.mailQueue)
		}
	}
	if server.afterCommit == nil {
		server.afterCommit = service.RunAsync
	}

	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	followRepo := repository.NewFollowRepository(db)

	server.tags = service.NewTagService(repository.NewTagRepository(db), postRepo)
	server.identity = service.NewIdentityService(service.IdentityDeps{
		Tx:                tx,
		Users:             userRepo,
		VerificationCodes: repository.NewVerificationCodeRepository(db),
		ResetCodes:        repository.NewPasswordResetCodeRepository(db),
		Follows:           followRepo,
		Mailer:            server.mailer,
		FrontendURL:       cfg.FrontendURL,
		CodeTTL:           cfg.CodeTTL(),
		AfterCommit:       server.afterCommit,
	})
	server.follows = service.NewFollowService(tx, userRepo, followRepo, postRepo, server.notifier, server.afterCommit)
	server.posts = service.NewPostService(service.PostDeps{
		Tx:          tx,
		Posts:       postRepo,
		Users:       userRepo,
		Bookmarks:   repository.NewBookmarkRepository(db),
		Tags:        server.tags,
		Flags:       server.featureFlags,
		Notifier:    server.notifier,
		AfterCommit: server.afterCommit,
	})
	server.reactions = service.NewReactionService(
		tx, userRepo, postRepo, repository.NewReactionRepository(db), server.notifier, server.afterCommit)

	return server, nil
}

// NewApp builds the Fiber application with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Blog API",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				if fe.Code == fiber.StatusNotFound {
					return models.RespondWithError(c, fe.Code, models.NewNotFoundMessage(fe.Message))
				}
				return models.RespondWithError(c, fe.Code, models.NewValidationError(fe.Message))
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses keep the headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://localhost:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Message: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api.Get("/swagger/*", swagger.HandlerDefault)

	// Identity
	users := api.Group("/users")
	users.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	users.Post("/verify", s.Verify)
	users.Post("/verify/resend", middleware.RateLimit(s.redis, 3, 10*time.Minute, "verify_resend"), s.ResendVerification)
	users.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	users.Post("/password-reset/send",
		middleware.RateLimit(s.redis, 3, 10*time.Minute, "password_reset_send"), s.SendPasswordReset)
	users.Post("/password-reset", s.ResetPassword)

	// The caller's own account; specific /me routes before the generic /:pubId
	me := users.Group("/me", middleware.AuthRequired)
	me.Get("/", s.GetMe)
	me.Patch("/", s.UpdateMe)
	me.Delete("/", s.DeleteMe)
	me.Get("/followers", s.GetMyFollowers)
	me.Get("/following/posts", s.GetMyFeed)
	me.Get("/following", s.GetMyFollowing)
	me.Get("/bookmarks", s.GetMyBookmarks)
	me.Get("/posts", s.GetMyPosts)
	me.Get("/next-previous-posts", s.GetNextPreviousChoices)

	users.Post("/follow", middleware.AuthRequired, s.ToggleFollow)
	users.Get("/:pubId", s.GetUserProfile)

	// Posts; named listings before /:slug
	posts := api.Group("/posts")
	posts.Get("/", s.listPosts(repository.ListingRecent))
	posts.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.SearchPosts)
	posts.Get("/featured", s.listPosts(repository.ListingFeatured))
	posts.Get("/most-liked", s.listPosts(repository.ListingMostLiked))
	posts.Get("/most-disliked", s.listPosts(repository.ListingMostDisliked))
	posts.Get("/oldest", s.listPosts(repository.ListingOldest))
	posts.Get("/most-bookmarked", s.listPosts(repository.ListingMostBookmarked))
	posts.Post("/", middleware.AuthRequired, s.CreatePost)
	posts.Get("/:slug/likes", s.GetPostLikers)
	posts.Get("/:slug/dislikes", s.GetPostDislikers)
	posts.Get("/:slug/bookmarks", s.GetPostBookmarkers)
	posts.Post("/:slug/bookmark", middleware.AuthRequired, s.ToggleBookmark)
	posts.Post("/:slug/like", middleware.AuthRequired, s.LikePost)
	posts.Post("/:slug/dislike", middleware.AuthRequired, s.DislikePost)
	posts.Get("/:slug", s.GetPost)
	posts.Patch("/:slug", middleware.AuthRequired, s.UpdatePost)
	posts.Delete("/:slug", middleware.AuthRequired, s.DeletePost)

	// Tags
	tags := api.Group("/tags")
	tags.Get("/", s.GetTags)
	tags.Get("/by-post-count", s.GetTagsByPostCount)
	tags.Get("/:name/posts", s.GetTagPosts)

	// Engagement notifications
	api.Get("/ws", middleware.WebSocketAuthRequired, s.WebsocketHandler())
}

// Start builds the app, wires realtime fan-out when Redis is present and listens on
// the configured port until Shutdown.
func (s *Server) Start() error {
	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	s.app = s.NewApp()

	if s.mailWorker != nil {
		if err := s.mailWorker.Start(); err != nil {
			return fmt.Errorf("start mail worker: %w", err)
		}
	}
	if s.redis != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("realtime wiring stopped", "component", s.hub.Name(), "error", err)
			}
		}()
	}

	middleware.Logger.Info("listening", "port", s.config.Port, "env", s.config.Env)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, then releases the hub, database and Redis.
// Failures are logged and do not stop the remaining steps.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"http", func() error {
			if s.app == nil {
				return nil
			}
			return s.app.ShutdownWithContext(ctx)
		}},
		{s.hub.Name(), func() error { return s.hub.Shutdown(ctx) }},
		{"mail", func() error {
			if s.mailWorker != nil {
				s.mailWorker.Shutdown()
			}
			if s.mailQueue != nil {
				return s.mailQueue.Close()
			}
			return nil
		}},
		{"database", func() error {
			sqlDB, err := s.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}},
		{"redis", func() error {
			if s.redis == nil {
				return nil
			}
			return s.redis.Close()
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			middleware.Logger.Warn("shutdown step failed", "step", step.name, "error", err)
		}
	}

	middleware.Logger.Info("server stopped")
	return nil
}

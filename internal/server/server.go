// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"log"
	"strings"
	"time"

	_ "shutterhub/docs" // swagger docs
	"shutterhub/internal/bootstrap"
	"shutterhub/internal/config"
	"shutterhub/internal/database"
	"shutterhub/internal/featureflags"
	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/notifications"
	"shutterhub/internal/repository"
	"shutterhub/internal/service"
	"shutterhub/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
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
	buckets        storage.Buckets
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	dispatcher     *notifications.Dispatcher
	featureFlags   *featureflags.Manager

	authService         *service.AuthService
	userService         *service.UserService
	photoService        *service.PhotoService
	commentService      *service.CommentService
	forumService        *service.ForumService
	marketplaceService  *service.MarketplaceService
	chatService         *service.ChatService
	notificationService *service.NotificationService
	favoriteService     *service.FavoriteService
	moderationService   *service.ModerationService
	adminService        *service.AdminService
}

// NewServer connects to the database, Redis and object storage and wires every service.
func NewServer(cfg *config.Config) (*Server, error) {
	// Redis is optional; realtime, revocation and caching degrade without it.
	db, redisClient, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{
		ApplySchema: true,
		SeedCatalog: true,
	})
	if err != nil {
		return nil, err
	}

	buckets, err := NewBuckets(cfg)
	if err != nil {
		middleware.Logger.Warn("object storage unavailable, uploads disabled", "error", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, buckets)
}

// NewBuckets builds the photo, avatar and verification stores from cfg.
func NewBuckets(cfg *config.Config) (storage.Buckets, error) {
	client, err := storage.NewClient(storage.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		return storage.Buckets{}, err
	}
	return storage.NewBuckets(client, cfg.S3PublicBaseURL,
		cfg.S3BucketPhotos, cfg.S3BucketAvatars, cfg.S3BucketVerification), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis/storage itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, buckets storage.Buckets) (*Server, error) {
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		buckets:        buckets,
		promMiddleware: middleware.InitMetrics("shutterhub-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	userRepo := repository.NewUserRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	forumRepo := repository.NewForumRepository(db)
	listingRepo := repository.NewListingRepository(db)
	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	reportRepo := repository.NewReportRepository(db)
	contentRepo := repository.NewContentRepository(db)
	homepageRepo := repository.NewHomepageRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub(redisClient)
		s.hub.SetPresenceCallbacks(
			func(userID uint) { s.publishPresence(userID, true) },
			func(userID uint) { s.publishPresence(userID, false) },
		)
	}

	images := service.NewImageProcessor(cfg.ImageMaxUploadSizeMB)
	quota := service.QuotaPolicy{
		Regular:  cfg.UploadQuotaRegular,
		VIP:      cfg.UploadQuotaVIP,
		Location: cfg.QuotaLocation(),
	}

	var publisher service.UserPublisher
	var convPublisher service.ConversationPublisher
	var presence service.PresenceChecker
	if s.notifier != nil {
		publisher = s.notifier
		convPublisher = s.notifier
	}
	if s.hub != nil {
		presence = s.hub
	}

	s.userService = service.NewUserService(userRepo, buckets.Avatars, images, quota)
	s.notificationService = service.NewNotificationService(notificationRepo, publisher)
	s.authService = service.NewAuthService(userRepo, redisClient, service.AuthConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTokenTTL(),
		RefreshTTL: cfg.RefreshTokenTTL(),
	})
	s.photoService = service.NewPhotoService(service.PhotoServiceDeps{
		Photos:   photoRepo,
		Ratings:  ratingRepo,
		Users:    userRepo,
		Store:    buckets.Photos,
		Images:   images,
		Quota:    quota,
		Notifier: s.notificationService,
		Flags:    s.featureFlags,
		IsAdmin:  s.userService.IsAdmin,
	})
	s.commentService = service.NewCommentService(commentRepo, photoRepo, userRepo, s.notificationService, s.userService.IsAdmin)
	s.forumService = service.NewForumService(forumRepo, userRepo, s.notificationService, s.userService.IsAdmin)
	s.marketplaceService = service.NewMarketplaceService(service.MarketplaceServiceDeps{
		Listings:     listingRepo,
		Users:        userRepo,
		Photos:       buckets.Photos,
		Verification: buckets.Verification,
		Images:       images,
		Notifier:     s.notificationService,
		Flags:        s.featureFlags,
		IsAdmin:      s.userService.IsAdmin,
	})
	s.chatService = service.NewChatService(chatRepo, userRepo, listingRepo, s.notificationService, convPublisher, presence)
	s.favoriteService = service.NewFavoriteService(favoriteRepo, contentRepo)
	s.moderationService = service.NewModerationService(reportRepo, contentRepo, userRepo, s.notificationService)
	s.adminService = service.NewAdminService(service.AdminServiceDeps{
		Users:    userRepo,
		Photos:   photoRepo,
		Homepage: homepageRepo,
		Reports:  reportRepo,
		Stats:    statsRepo,
		Notifier: s.notificationService,
		Flags:    s.featureFlags,
	})

	if s.hub != nil {
		s.dispatcher = notifications.NewDispatcher(s.hub, s.notificationService)
	}

	return s, nil
}

const defaultGlobalRateLimit = 100

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so browser clients still receive CORS headers on 429s.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		ExposeHeaders:    "X-Request-ID, X-Trace-ID, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After",
		AllowCredentials: true,
		MaxAge:           int((24 * time.Hour).Seconds()),
	}))

	perMinute := s.config.GlobalRateLimit
	if perMinute <= 0 {
		perMinute = defaultGlobalRateLimit
	}
	app.Use(limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		// Preflights, probes and scrapes are never throttled.
		Next: func(c *fiber.Ctx) bool {
			if c.Method() == fiber.MethodOptions {
				return true
			}
			p := c.Path()
			return strings.HasPrefix(p, "/health/") || p == "/metrics"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewQuotaExceededError("Too many requests, please try again later."))
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", s.Refresh)
	auth.Post("/logout", s.SessionRequired(), s.Logout)

	// Websocket: ticket issuance is session-authenticated, the upgrade redeems the ticket.
	api.Post("/ws/ticket", s.SessionRequired(), s.IssueWSTicket)
	api.Get("/ws", s.WebSocketUpgrade(), s.WebSocketHandler())

	// Public RPCs
	api.Get("/profiles/:username", s.GetPublicProfile)
	api.Get("/roles/:userId/:role", s.HasRole)
	api.Get("/homepage/sections", s.ListHomepageSections)
	api.Get("/config/features", s.OptionalSession(), s.GetFeatureSnapshot)

	// Session-only areas get the middleware on their own prefix. A group with an empty
	// prefix would run it for every later /api route, public reads included.
	requireSession := s.SessionRequired()

	// Own profile
	me := api.Group("/me", requireSession)
	me.Get("/", s.GetMyProfile)
	me.Put("/", s.UpdateMyProfile)
	me.Post("/avatar", middleware.RateLimit(s.redis, 5, 10*time.Minute, "avatar"), s.UploadAvatar)
	me.Get("/quota", s.GetUploadQuota)

	// Gallery: public browse, optional session so owners and admins see hidden photos.
	photos := api.Group("/photos")
	photos.Get("/", s.ListPhotos)
	photos.Get("/featured", s.ListFeaturedPhotos)
	photos.Get("/:id/recommendations", s.OptionalSession(), s.GetRecommendations)
	photos.Get("/:id/comments", s.OptionalSession(), s.ListComments)
	photos.Get("/:id/rating/me", s.SessionRequired(), s.GetMyRating)
	photos.Get("/:id", s.OptionalSession(), s.GetPhoto)
	photos.Post("/", s.SessionRequired(), middleware.RateLimit(s.redis, 20, time.Hour, "upload_photo"), s.UploadPhotos)
	photos.Post("/:id/like", s.SessionRequired(), s.LikePhoto)
	photos.Delete("/:id/like", s.SessionRequired(), s.UnlikePhoto)
	photos.Put("/:id/rating", s.SessionRequired(), s.RatePhoto)
	photos.Post("/:id/comments", s.SessionRequired(), middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	photos.Put("/:id", s.SessionRequired(), s.UpdatePhoto)
	photos.Delete("/:id", s.SessionRequired(), s.DeletePhoto)

	comments := api.Group("/comments", requireSession)
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	// Forum
	forum := api.Group("/forum")
	forum.Get("/categories", s.ListForumCategories)
	forum.Get("/topics", s.ListTopics)
	forum.Get("/topics/:id/replies", s.ListReplies)
	forum.Get("/topics/:id", s.OptionalSession(), s.GetTopic)
	forum.Post("/topics", s.SessionRequired(), middleware.RateLimit(s.redis, 5, 10*time.Minute, "create_topic"), s.CreateTopic)
	forum.Put("/topics/:id", s.SessionRequired(), s.UpdateTopic)
	forum.Delete("/topics/:id", s.SessionRequired(), s.DeleteTopic)
	forum.Post("/topics/:id/replies", s.SessionRequired(), middleware.RateLimit(s.redis, 10, time.Minute, "create_reply"), s.CreateReply)
	forum.Put("/replies/:id", s.SessionRequired(), s.UpdateReply)
	forum.Delete("/replies/:id", s.SessionRequired(), s.DeleteReply)

	// Marketplace
	market := api.Group("/marketplace/listings")
	market.Get("/", s.ListListings)
	market.Get("/:id", s.OptionalSession(), s.GetListing)
	market.Post("/", s.SessionRequired(), middleware.RateLimit(s.redis, 5, time.Hour, "create_listing"), s.CreateListing)
	market.Post("/:id/sold", s.SessionRequired(), s.MarkListingSold)
	market.Put("/:id", s.SessionRequired(), s.UpdateListing)
	market.Delete("/:id", s.SessionRequired(), s.DeleteListing)

	// Direct messages
	conversations := api.Group("/conversations", requireSession)
	conversations.Get("/", s.ListConversations)
	conversations.Post("/", s.StartConversation)
	conversations.Get("/:id/messages", s.GetMessages)
	conversations.Post("/:id/messages", middleware.RateLimit(s.redis, 30, time.Minute, "send_message"), s.SendMessage)
	conversations.Post("/:id/read", s.MarkConversationRead)

	// Notifications
	notifs := api.Group("/notifications", requireSession)
	notifs.Get("/", s.ListNotifications)
	notifs.Get("/unread-count", s.GetUnreadCount)
	notifs.Get("/since", s.GetNotificationsSince)
	notifs.Post("/read-all", s.MarkAllNotificationsRead)
	notifs.Post("/:id/read", s.MarkNotificationRead)

	// Favorites
	favorites := api.Group("/favorites", requireSession)
	favorites.Get("/", s.ListFavorites)
	favorites.Post("/", s.AddFavorite)
	favorites.Delete("/:type/:id", s.RemoveFavorite)

	// Reports
	api.Post("/reports", requireSession, middleware.RateLimit(s.redis, 10, time.Hour, "create_report"), s.CreateReport)

	// Admin routes
	admin := api.Group("/admin", requireSession, s.AdminRequired())
	admin.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "ShutterHub Backend Metrics Dashboard",
	}))
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Put("/feature-flags/:name", s.SetFeatureFlag)
	admin.Get("/stats", s.GetAdminStats)

	admin.Get("/reports", s.ListReports)
	admin.Get("/reports/:id", s.GetReport)
	admin.Post("/reports/:id/actions", s.ApplyReportAction)

	admin.Get("/users", s.ListUsers)
	admin.Get("/users/:id", s.GetUserDetail)
	admin.Post("/users/:id/suspend", s.SuspendUser)
	admin.Post("/users/:id/unsuspend", s.UnsuspendUser)
	admin.Put("/users/:id/vip", s.SetUserVIP)
	admin.Put("/users/:id/verified", s.SetUserVerified)
	admin.Post("/users/:id/roles", s.GrantRole)
	admin.Delete("/users/:id/roles/:role", s.RevokeRole)

	admin.Put("/photos/:id/featured", s.SetPhotoFeatured)
	admin.Put("/photos/:id/hidden", s.SetPhotoHidden)
	admin.Post("/featured/reorder", s.ReorderFeatured)

	admin.Get("/homepage/sections", s.ListAllHomepageSections)
	admin.Post("/homepage/sections", s.CreateHomepageSection)
	admin.Post("/homepage/sections/reorder", s.ReorderHomepageSections)
	admin.Put("/homepage/sections/:id", s.UpdateHomepageSection)
	admin.Delete("/homepage/sections/:id", s.DeleteHomepageSection)

	admin.Post("/forum/categories", s.CreateForumCategory)
	admin.Put("/forum/categories/:id", s.UpdateForumCategory)
	admin.Delete("/forum/categories/:id", s.DeleteForumCategory)
	admin.Put("/forum/topics/:id/pin", s.PinTopic)
	admin.Put("/forum/topics/:id/lock", s.LockTopic)

	admin.Post("/marketplace/listings/:id/verify", s.VerifyListing)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Realtime delivery needs Redis, so the API is not ready without it.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName:   "ShutterHub API",
		BodyLimit: (s.config.ImageMaxUploadSizeMB*service.MaxBatchUpload + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if err := s.buckets.EnsureAll(ctx); err != nil {
		middleware.Logger.Warn("failed to ensure storage buckets", "error", err)
	}

	// Wire the hub to the Redis subscriber if available
	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the wiring goroutine
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Close WebSocket connections gracefully
	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down %s: %v", s.hub.Name(), err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

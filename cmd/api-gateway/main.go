package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/classroom-quest-api/api/swagger"
	"github.com/noah-isme/classroom-quest-api/internal/classifier"
	"github.com/noah-isme/classroom-quest-api/internal/handler"
	"github.com/noah-isme/classroom-quest-api/internal/middleware"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/internal/repository"
	"github.com/noah-isme/classroom-quest-api/internal/service"
	"github.com/noah-isme/classroom-quest-api/pkg/cache"
	"github.com/noah-isme/classroom-quest-api/pkg/config"
	"github.com/noah-isme/classroom-quest-api/pkg/database"
	"github.com/noah-isme/classroom-quest-api/pkg/export"
	"github.com/noah-isme/classroom-quest-api/pkg/jobs"
	"github.com/noah-isme/classroom-quest-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classroom-quest-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classroom-quest-api/pkg/middleware/requestid"
	"github.com/noah-isme/classroom-quest-api/pkg/storage"
)

// @title Classroom Quest API
// @version 1.0.0
// @description Multi-tenant classroom API: lessons, challenges, AI-verified submissions and rewards
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type backends struct {
	db    *sqlx.DB
	redis *redis.Client
	blobs repository.BlobStore
}

func (b backends) close() {
	if b.db != nil {
		_ = b.db.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func openBackends(ctx context.Context, cfg *config.Config, logr *zap.Logger) (backends, error) {
	var b backends
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return b, fmt.Errorf("connect postgres: %w", err)
		}
		b.db = db
		store := repository.NewPostgresBlobStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			b.close()
			return b, err
		}
		b.blobs = store
	case config.StoreRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return b, fmt.Errorf("connect redis: %w", err)
		}
		b.redis = client
		b.blobs = repository.NewRedisBlobStore(client, cfg.Store.RedisPrefix, cfg.Store.RedisRetries)
	case config.StoreMemory, "":
		b.blobs = repository.NewMemoryBlobStore()
	default:
		return b, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.Leaderboard.CacheEnabled && b.redis == nil {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("leaderboard cache disabled: redis unavailable", zap.Error(err))
		} else {
			b.redis = client
		}
	}
	return b, nil
}

func newClassifier(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*classifier.Client, *classifier.ThumbnailGenerator, error) {
	opts := []classifier.Option{classifier.WithRecorder(metrics), classifier.WithLogger(logr)}

	thumbStore, err := storage.NewLocalStorage(cfg.Thumbnails.StorageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("thumbnail storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Thumbnails.SignedURLSecret, cfg.Thumbnails.SignedURLTTL)
	thumbnails := classifier.NewThumbnailGenerator(cfg.Classifier, nil, thumbStore, signer, cfg.APIPrefix+"/thumbnails/")

	if cfg.Classifier.Enabled && cfg.Classifier.APIKey != "" {
		llm, err := classifier.NewGoogleGenerator(ctx, cfg.Classifier)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, classifier.WithGenerator(llm), classifier.WithThumbnails(thumbnails))
	} else {
		logr.Info("classifier disabled, using deterministic fallbacks")
	}
	return classifier.NewClient(cfg.Classifier, opts...), thumbnails, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	back, err := openBackends(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open record store", zap.Error(err))
	}
	defer back.close()

	metrics := service.NewMetricsService()
	store := repository.NewRecordStore(back.blobs)
	store.SetObserver(metrics)

	ai, thumbnails, err := newClassifier(ctx, cfg, metrics, logr)
	if err != nil {
		logr.Fatal("failed to init classifier", zap.Error(err))
	}

	cleanup := service.NewThumbnailCleanup(thumbnails, jobs.QueueConfig{Workers: 2, Logger: logr})
	cleanup.Start(ctx)
	defer cleanup.Stop()

	validate := validator.New()
	cacheRepo := repository.NewCacheRepository(back.redis, cfg.Store.RedisPrefix, logr)
	var leaderboard *service.LeaderboardCache
	if cfg.Leaderboard.CacheEnabled && back.redis != nil {
		leaderboard = service.NewLeaderboardCache(cacheRepo, metrics, cfg.Leaderboard.CacheTTL, logr)
	}

	authSvc := service.NewAuthService(store, leaderboard, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.Auth.SingleSession,
		BcryptCost:         cfg.Auth.BcryptCost,
		OverrideIdentities: cfg.Auth.OverrideIdentities,
	})
	lessonSvc := service.NewLessonService(store, ai, cleanup, thumbnails, validate, logr)
	challengeSvc := service.NewChallengeService(store, validate, logr)
	classSvc := service.NewClassService(store, validate, logr)
	verificationSvc := service.NewVerificationService(store, ai, metrics, leaderboard, validate, logr)
	growthSvc := service.NewGrowthService(store, ai, leaderboard, validate, logr)
	userSvc := service.NewUserService(store, authSvc, leaderboard, validate, logr)
	exportSvc := service.NewExportService(verificationSvc, export.NewCSVExporter(true), export.NewPDFExporter(cfg.Export.FontPath), logr)

	checks := map[string]handler.ReadinessCheck{}
	if back.db != nil {
		checks["postgres"] = back.db.PingContext
	}
	if back.redis != nil {
		checks["redis"] = cacheRepo.Ping
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		auth:       authSvc,
		logger:     logr,
		authH:      handler.NewAuthHandler(authSvc),
		lessons:    handler.NewLessonHandler(lessonSvc, verificationSvc),
		challenges: handler.NewChallengeHandler(challengeSvc, verificationSvc),
		activities: handler.NewActivityHandler(verificationSvc, exportSvc),
		classes:    handler.NewClassHandler(classSvc),
		growth:     handler.NewGrowthHandler(growthSvc),
		users:      handler.NewUserHandler(userSvc),
		metrics:    metricsHandler,
		thumbnails: handler.NewThumbnailHandler(thumbnails),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

type routeDeps struct {
	auth       middleware.SessionAuthenticator
	logger     *zap.Logger
	authH      *handler.AuthHandler
	lessons    *handler.LessonHandler
	challenges *handler.ChallengeHandler
	activities *handler.ActivityHandler
	classes    *handler.ClassHandler
	growth     *handler.GrowthHandler
	users      *handler.UserHandler
	metrics    *handler.MetricsHandler
	thumbnails *handler.ThumbnailHandler
}

func registerRoutes(api *gin.RouterGroup, d routeDeps) {
	api.Use(middleware.WithResponseMeta())

	teacher := middleware.RequireRoles(models.RoleTeacher)
	student := middleware.RequireRoles(models.RoleStudent)
	admin := middleware.RequireScopes(models.ScopeSchoolAdmin)
	system := middleware.RequireScopes(models.ScopeSystem)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(d.logger, action, resource)
	}

	api.POST("/auth/login", d.authH.Login)
	api.POST("/auth/register", middleware.OptionalJWT(d.auth), d.authH.Register)
	api.GET("/thumbnails/:token", d.thumbnails.Serve)

	secured := api.Group("")
	secured.Use(middleware.JWT(d.auth))

	secured.POST("/auth/logout", d.authH.Logout)
	secured.GET("/auth/me", d.authH.Me)

	secured.GET("/lessons", d.lessons.List)
	secured.POST("/lessons", teacher, audit("create", "lesson"), d.lessons.Create)
	secured.POST("/lessons/thumbnail", teacher, d.lessons.Thumbnail)
	secured.DELETE("/lessons/:id", teacher, audit("delete", "lesson"), d.lessons.Delete)
	secured.POST("/lessons/:id/comments", student, d.lessons.SubmitComment)

	secured.GET("/challenges", d.challenges.List)
	secured.POST("/challenges", teacher, audit("create", "challenge"), d.challenges.Create)
	secured.DELETE("/challenges/:id", teacher, audit("delete", "challenge"), d.challenges.Delete)
	secured.POST("/challenges/:id/proofs", student, d.challenges.SubmitProof)

	secured.GET("/activities", d.activities.List)
	secured.GET("/activities/export", teacher, d.activities.Export)
	secured.PATCH("/activities/:id/review", teacher, audit("review", "activity"), d.activities.Review)

	secured.GET("/classes", d.classes.List)
	secured.POST("/classes", teacher, audit("create", "class"), d.classes.Create)
	secured.POST("/classes/join", student, d.classes.Join)

	secured.GET("/me/growth", d.growth.Growth)
	secured.GET("/leaderboard", d.growth.Leaderboard)
	secured.GET("/point-reasons", d.growth.PointReasons)
	secured.POST("/students/points", teacher, audit("award", "points"), d.growth.AwardPoints)

	adminGroup := secured.Group("/admin")
	adminGroup.GET("/users", admin, d.users.List)
	adminGroup.DELETE("/users/:id", admin, audit("delete", "user"), d.users.Delete)
	adminGroup.POST("/users/bulk", admin, audit("bulk_upload", "user"), d.users.BulkUpload)
	adminGroup.POST("/school-admins", system, audit("create", "school_admin"), d.users.CreateSchoolAdmin)
	adminGroup.GET("/metrics", admin, d.metrics.Snapshot)
}

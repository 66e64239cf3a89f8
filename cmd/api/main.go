package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/paperdesk/paperdesk/api/swagger"
	"github.com/paperdesk/paperdesk/internal/handler"
	"github.com/paperdesk/paperdesk/internal/middleware"
	"github.com/paperdesk/paperdesk/internal/repository"
	"github.com/paperdesk/paperdesk/internal/service"
	"github.com/paperdesk/paperdesk/pkg/cache"
	"github.com/paperdesk/paperdesk/pkg/config"
	"github.com/paperdesk/paperdesk/pkg/database"
	"github.com/paperdesk/paperdesk/pkg/logger"
	corsmiddleware "github.com/paperdesk/paperdesk/pkg/middleware/cors"
	reqidmiddleware "github.com/paperdesk/paperdesk/pkg/middleware/requestid"
	"github.com/paperdesk/paperdesk/pkg/storage"
)

// @title PaperDesk API
// @version 1.0.0
// @description Team-scoped academic paper and reference management
// @BasePath /api
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, subtree caching disabled", "error", err)
			redisClient = nil
		}
	}

	store, err := storage.NewUploadStore(cfg.Uploads.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload directory", "error", err)
	}
	signer := storage.NewDownloadSigner(cfg.Uploads.DownloadTokenSecret, cfg.Uploads.DownloadTokenTTL)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	refCategoryRepo := repository.NewReferenceCategoryRepository(db)
	paperRepo := repository.NewPaperRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	journalRepo := repository.NewJournalRepository(db)
	authorRepo := repository.NewAuthorRepository(db)
	keywordRepo := repository.NewKeywordRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()

	// Services.
	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "paperdesk",
	})
	userService := service.NewUserService(userRepo, validate, logr)
	teamService := service.NewTeamService(teamRepo, userRepo, store, validate, logr)
	categoryService := service.NewCategoryService(categoryRepo, cacheRepo, cfg.Cache.SubtreeTTL, validate, logr)
	refCategoryService := service.NewReferenceCategoryService(refCategoryRepo, teamService, cacheRepo, cfg.Cache.SubtreeTTL, validate, logr)
	paperService := service.NewPaperService(paperRepo, authorRepo, keywordRepo, journalRepo, categoryService, teamService, store, signer, validate, logr)
	referenceService := service.NewReferenceService(referenceRepo, keywordRepo, refCategoryService, journalRepo, teamService, store, signer, validate, logr)
	journalService := service.NewJournalService(journalRepo, validate, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	teamHandler := handler.NewTeamHandler(teamService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	refCategoryHandler := handler.NewReferenceCategoryHandler(refCategoryService)
	paperHandler := handler.NewPaperHandler(paperService, store, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.PublicBaseURL)
	referenceHandler := handler.NewReferenceHandler(referenceService, store, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.PublicBaseURL)
	downloadHandler := handler.NewDownloadHandler(signer, store)
	journalHandler := handler.NewJournalHandler(journalService)
	metricsHandler := handler.NewMetricsHandler(metricsService, db.Ping)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	auth := middleware.JWT(authService)

	api.GET("/metrics/snapshot", auth, middleware.RequireSuperuser(), metricsHandler.Snapshot)
	api.GET("/files/download", downloadHandler.Redeem)

	users := api.Group("/users")
	{
		users.POST("", userHandler.Register)
		users.POST("/token", authHandler.Login)
		users.POST("/token/refresh", authHandler.Refresh)
		users.POST("/logout", auth, authHandler.Logout)
		users.POST("/change-password", auth, authHandler.ChangePassword)
		users.GET("/me", auth, authHandler.Me)
		users.GET("", auth, userHandler.List)
		users.GET("/:id", auth, userHandler.Get)
		users.PATCH("/:id", auth, userHandler.Update)
		users.DELETE("/:id", auth, userHandler.Delete)
	}

	teams := api.Group("/teams", auth)
	{
		teams.POST("", teamHandler.Create)
		teams.GET("", teamHandler.List)
		teams.GET("/:id", teamHandler.Get)
		teams.PATCH("/:id", teamHandler.Update)
		teams.DELETE("/:id", teamHandler.Delete)
		teams.GET("/:id/members", teamHandler.ListMembers)
		teams.POST("/:id/members", teamHandler.AddMember)
		teams.PATCH("/:id/members/:userID", teamHandler.UpdateMemberRole)
		teams.DELETE("/:id/members/:userID", teamHandler.RemoveMember)
	}

	categories := api.Group("/categories", auth)
	{
		categories.GET("", categoryHandler.List)
		categories.GET("/:id", categoryHandler.Get)
		categories.GET("/:id/descendants", categoryHandler.Descendants)
		categories.GET("/:id/ancestors", categoryHandler.Ancestors)
		categories.POST("", categoryHandler.Create)
		categories.PATCH("/:id", categoryHandler.Update)
		categories.DELETE("/:id", categoryHandler.Delete)
	}

	refCategories := api.Group("/reference-categories", auth)
	{
		refCategories.GET("", refCategoryHandler.List)
		refCategories.GET("/:id", refCategoryHandler.Get)
		refCategories.GET("/:id/descendants", refCategoryHandler.Descendants)
		refCategories.GET("/:id/ancestors", refCategoryHandler.Ancestors)
		refCategories.POST("", refCategoryHandler.Create)
		refCategories.PATCH("/:id", refCategoryHandler.Update)
		refCategories.DELETE("/:id", refCategoryHandler.Delete)
	}

	papers := api.Group("/papers", auth)
	{
		papers.POST("", paperHandler.Create)
		papers.GET("", paperHandler.List)
		papers.GET("/export/excel", paperHandler.Export)
		papers.GET("/download/by-title", paperHandler.DownloadByTitle)
		papers.GET("/authors", paperHandler.ListAuthors)
		papers.GET("/authors/workload/by-name", paperHandler.AuthorWorkload)
		papers.GET("/authors/collaboration-network", paperHandler.CollaborationNetwork)
		papers.GET("/authors/:author_id", paperHandler.GetAuthor)
		papers.GET("/:id", paperHandler.Get)
		papers.PATCH("/:id", paperHandler.Update)
		papers.DELETE("/:id", paperHandler.Delete)
		papers.POST("/:id/upload", paperHandler.Upload)
		papers.GET("/:id/download", paperHandler.Download)
		papers.GET("/:id/download-url", paperHandler.DownloadURL)
		papers.GET("/:id/workload", paperHandler.Workload)
	}

	references := api.Group("/references", auth)
	{
		references.POST("", referenceHandler.Create)
		references.GET("", referenceHandler.List)
		references.GET("/export/excel", referenceHandler.Export)
		references.GET("/download/by-title", referenceHandler.DownloadByTitle)
		references.GET("/:id", referenceHandler.Get)
		references.PATCH("/:id", referenceHandler.Update)
		references.DELETE("/:id", referenceHandler.Delete)
		references.POST("/:id/upload", referenceHandler.Upload)
		references.GET("/:id/download", referenceHandler.Download)
		references.GET("/:id/download-url", referenceHandler.DownloadURL)
	}

	journals := api.Group("/journals", auth)
	{
		journals.POST("", journalHandler.Create)
		journals.GET("", journalHandler.List)
		journals.GET("/search", journalHandler.Search)
		journals.GET("/grades/list", journalHandler.Grades)
		journals.GET("/:id", journalHandler.Get)
		journals.PATCH("/:id", journalHandler.Update)
		journals.DELETE("/:id", journalHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pressflow/newsroom/internal/auth"
	"github.com/pressflow/newsroom/internal/cache"
	"github.com/pressflow/newsroom/internal/config"
	"github.com/pressflow/newsroom/internal/http/handlers"
	"github.com/pressflow/newsroom/internal/http/middlewares"
	"github.com/pressflow/newsroom/internal/media"
	"github.com/pressflow/newsroom/internal/observability"
	"github.com/pressflow/newsroom/internal/repo/postgres"
)

type RouterDeps struct {
	Cfg        config.Config
	Log        *slog.Logger
	Pool       *pgxpool.Pool
	Files      media.Store
	Cache      *cache.ArticlesCache
	Prom       *observability.Prom
	PromGather prometheus.Gatherer
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(32 << 20)) // multipart uploads included

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	if deps.Cfg.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("newsroom-api"))
	}

	// health
	ping := func() error {
		if deps.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if deps.PromGather != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.PromGather, promhttp.HandlerOpts{})))
	}

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(deps.Pool, deps.Prom)
	articlesRepo := postgres.NewArticlesRepo(deps.Pool, deps.Prom)

	sessions := auth.NewManager(deps.Cfg.JWTSecret, deps.Cfg.TokenTTL)
	authmw := middlewares.NewAuthMiddleware(sessions, usersRepo, deps.Cfg.CookieName)
	loginLimiter := middlewares.NewRateLimiter(deps.Cfg.LoginRateLimit, deps.Cfg.LoginRateWindow)

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, sessions, deps.Cfg)
	usersHandler := handlers.NewUsersHandler(usersRepo)
	articlesHandler := handlers.NewArticlesHandler(articlesRepo, deps.Files, deps.Cache)

	// authentication + profile
	users := r.Group("/users")
	{
		users.POST("/register", loginLimiter.Middleware(), authHandler.Register)
		users.POST("/login", loginLimiter.Middleware(), authHandler.Login)
		users.GET("/logout", authmw.Authenticate(), authHandler.Logout)
		users.GET("/me", authmw.Authenticate(), authHandler.Me)
		users.PUT("/me", authmw.Authenticate(), usersHandler.UpdateMe)

		// user management, admin only
		admin := users.Group("", authmw.Authenticate(), authmw.RequireAdmin())
		{
			admin.POST("", usersHandler.CreateUser)
			admin.POST("/create-admin", usersHandler.CreateAdmin)
			admin.GET("", usersHandler.ListUsers)
			admin.GET("/:id", usersHandler.GetUser)
			admin.PUT("/role/:userId", usersHandler.UpdateRole)
			admin.PUT("/:id", usersHandler.UpdateUser)
			admin.DELETE("/:id", usersHandler.DeleteUser)
		}
	}

	// articles
	articles := r.Group("/articles")
	{
		articles.POST("", authmw.Authenticate(), articlesHandler.CreateArticle)
		articles.GET("", articlesHandler.ListArticles)
		articles.GET("/filter", articlesHandler.FilterByCategory)
		articles.GET("/:id", articlesHandler.GetArticleByID)
		articles.PUT("/:id", authmw.Authenticate(), articlesHandler.UpdateArticle)
		articles.DELETE("/:id", authmw.Authenticate(), articlesHandler.DeleteArticle)
		articles.POST("/:id/comments", authmw.Authenticate(), articlesHandler.AddComment)
		articles.GET("/:id/comments", articlesHandler.ListComments)
	}

	// uploaded media when the disk backend is in use
	if deps.Cfg.MediaBackend == "disk" {
		r.Static("/uploads", deps.Cfg.UploadDir)
	}

	return r
}

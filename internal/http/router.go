package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/userdeck/userdeck/internal/auth"
	"github.com/userdeck/userdeck/internal/cache"
	"github.com/userdeck/userdeck/internal/config"
	"github.com/userdeck/userdeck/internal/http/handlers"
	"github.com/userdeck/userdeck/internal/http/middlewares"
	"github.com/userdeck/userdeck/internal/observability"
	"github.com/userdeck/userdeck/internal/repo/postgres"
)

const maxRequestBody = 1 << 20 // 1 MiB

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxRequestBody))
	r.Use(otelgin.Middleware("userdeck-api"))

	prom := observability.NewProm(prometheus.DefaultRegisterer)
	r.Use(prom.GinHandleMiddleware())

	// health

	pingDB := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	pingCache := func() error {
		if rdb == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return cache.Ping(ctx, rdb)
	}

	health := handlers.NewHealthHandler(pingDB, pingCache)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// wire up repositories

	usersRepo := postgres.NewUsersRepo(pool, prom)
	refreshRepo := postgres.NewRefreshTokensRepo(pool)

	var dirCache *cache.Directory

	if rdb != nil {
		dirCache = cache.NewDirectory(rdb, 30*time.Second, prom)
	}

	jwtManager := auth.NewManager(cfg.JWT.Secret, cfg.AccessTTL(), cfg.RefreshTTL())
	authMW := middlewares.NewAuthMiddleware(jwtManager)

	// auth routes

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, refreshRepo, cfg)

	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)

	r.POST("/auth/register", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Register)
	r.POST("/auth/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	r.POST("/auth/refresh", authHandler.Refresh)
	r.POST("/auth/logout", authHandler.Logout)
	r.GET("/auth/me", authMW.RequireAuth(), authHandler.Me)

	// user directory, admins only

	var usersHandler *handlers.UsersHandler

	if dirCache != nil {
		usersHandler = handlers.NewUsersHandler(usersRepo, dirCache, refreshRepo)
	} else {
		usersHandler = handlers.NewUsersHandler(usersRepo, nil, refreshRepo)
	}

	users := r.Group("/users", authMW.RequireAuth(), authMW.RequireRole("admin"))
	users.GET("", usersHandler.List)
	users.GET("/:id", usersHandler.GetByID)
	users.PATCH("/:id", usersHandler.Update)
	users.DELETE("/:id", usersHandler.Delete)

	return r
}

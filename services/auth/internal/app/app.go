package app

import (
	"context"
	"time"

	"blockconnect/pkg/config"
	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/httpserver"
	"blockconnect/pkg/jwt"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/middleware"
	authHTTP "blockconnect/services/auth/internal/controller/http"
	"blockconnect/services/auth/internal/repo/persistent"
	"blockconnect/services/auth/internal/usecase"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	_ "blockconnect/services/auth/docs" // Swagger docs
)

const (
	loginRateLimit  = 20
	loginRateWindow = time.Minute
)

func Run(ctx context.Context, cfg *config.Config, log *logger.Logger, db *gorm.DB, redisClient *redis.Client, registry contract.Registry, store content.Store) error {
	jwtService := jwt.NewService(cfg.JWTSecret)

	// Initialize repositories
	userRepo := persistent.NewUserRepository(db)

	// Initialize use cases
	authUseCase := usecase.NewAuthUseCase(
		userRepo,
		registry,
		store,
		localstore.NewNonces(redisClient),
		jwtService,
		log,
	)

	// Initialize HTTP handlers
	authHandler := authHTTP.NewAuthHandler(authUseCase, log)

	r := httpserver.NewRouter(cfg, "auth")

	api := r.Group("/api/v1")
	{
		limited := api.Group("")
		limited.Use(middleware.RateLimitMiddleware(redisClient, loginRateLimit, loginRateWindow))
		limited.GET("/nonce/:address", authHandler.Nonce)
		limited.POST("/register", authHandler.Register)
		limited.POST("/login", authHandler.Login)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		{
			protected.GET("/me", authHandler.Me)
			protected.PUT("/profile", authHandler.UpdateProfile)
			protected.GET("/users", authHandler.ListUsernames)
			protected.GET("/users/:username", authHandler.GetUser)
		}
	}

	return httpserver.Run(ctx, cfg, log, "Auth", r)
}

package app

import (
	"context"

	"blockconnect/pkg/config"
	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/httpserver"
	"blockconnect/pkg/jwt"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/middleware"
	postHTTP "blockconnect/services/post/internal/controller/http"
	"blockconnect/services/post/internal/repo/persistent"
	"blockconnect/services/post/internal/usecase"

	"github.com/redis/go-redis/v9"

	_ "blockconnect/services/post/docs" // Swagger docs
)

func Run(ctx context.Context, cfg *config.Config, log *logger.Logger, redisClient *redis.Client, registry contract.Registry, store content.Store) error {
	jwtService := jwt.NewService(cfg.JWTSecret)

	// Initialize repositories
	postRepo := persistent.NewPostRepository(
		registry,
		store,
		localstore.NewCache(redisClient, localstore.ContentTTL),
		localstore.NewCache(redisClient, localstore.FeedTTL),
		log,
	)

	// Initialize use cases
	postUseCase := usecase.NewPostUseCase(postRepo, log)

	// Initialize HTTP handlers
	postHandler := postHTTP.NewPostHandler(postUseCase, log)

	r := httpserver.NewRouter(cfg, "post")

	api := r.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/feed", postHandler.GetFeed)
		protected.POST("/posts", postHandler.CreatePost)
		protected.GET("/posts/:id", postHandler.GetPost)
		protected.GET("/users/:username/posts", postHandler.GetUserPosts)
	}

	return httpserver.Run(ctx, cfg, log, "Post", r)
}

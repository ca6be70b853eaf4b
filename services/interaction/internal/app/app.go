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
	"blockconnect/pkg/mirror"
	"blockconnect/pkg/notify"
	"blockconnect/pkg/queue"
	interactionHTTP "blockconnect/services/interaction/internal/controller/http"
	"blockconnect/services/interaction/internal/repo/persistent"
	"blockconnect/services/interaction/internal/usecase"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	_ "blockconnect/services/interaction/docs" // Swagger docs
)

func Run(ctx context.Context, cfg *config.Config, log *logger.Logger, db *gorm.DB, redisClient *redis.Client, queueClient *queue.Client, registry contract.Registry, store content.Store) error {
	jwtService := jwt.NewService(cfg.JWTSecret)

	var publisher mirror.Publisher
	if queueClient != nil {
		publisher = queueClient
	}
	scheduler := mirror.NewScheduler(localstore.NewVersions(redisClient), publisher, log)
	notifier := notify.New(queueClient, redisClient, cfg.NotificationCap, scheduler, log)

	// Initialize repositories
	postRepo := persistent.NewPostRepository(registry, store)
	commentRepo := persistent.NewCommentRepository(db)

	// Initialize use cases
	interactionUseCase := usecase.NewInteractionUseCase(
		postRepo,
		commentRepo,
		localstore.NewSet(redisClient, localstore.LikedKey),
		notifier,
		log,
	)

	// Initialize HTTP handlers
	interactionHandler := interactionHTTP.NewInteractionHandler(interactionUseCase, log)

	r := httpserver.NewRouter(cfg, "interaction")

	api := r.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisClient, 100, time.Minute))
	{
		protected.POST("/posts/:post_id/like", interactionHandler.LikePost)
		protected.GET("/posts/:post_id/likes", interactionHandler.GetLikes)
		protected.GET("/posts/:post_id/liked", interactionHandler.IsLiked)
		protected.GET("/likes", interactionHandler.GetLikedPosts)
		protected.POST("/posts/:post_id/comments", interactionHandler.CreateComment)
		protected.GET("/posts/:post_id/comments", interactionHandler.GetComments)
	}

	return httpserver.Run(ctx, cfg, log, "Interaction", r)
}

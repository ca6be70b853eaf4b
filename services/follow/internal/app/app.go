package app

import (
	"context"

	"blockconnect/pkg/config"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/httpserver"
	"blockconnect/pkg/jwt"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/middleware"
	"blockconnect/pkg/mirror"
	"blockconnect/pkg/notify"
	"blockconnect/pkg/queue"
	followHTTP "blockconnect/services/follow/internal/controller/http"
	"blockconnect/services/follow/internal/repo/persistent"
	"blockconnect/services/follow/internal/usecase"

	"github.com/redis/go-redis/v9"

	_ "blockconnect/services/follow/docs" // Swagger docs
)

func Run(ctx context.Context, cfg *config.Config, log *logger.Logger, redisClient *redis.Client, queueClient *queue.Client, registry contract.Registry) error {
	jwtService := jwt.NewService(cfg.JWTSecret)

	var publisher mirror.Publisher
	if queueClient != nil {
		publisher = queueClient
	}
	scheduler := mirror.NewScheduler(localstore.NewVersions(redisClient), publisher, log)

	// Initialize repositories
	relationRepo := persistent.NewRelationRepository(registry)

	// Initialize use cases
	followUseCase := usecase.NewFollowUseCase(
		relationRepo,
		localstore.NewCache(redisClient, localstore.RelationTTL),
		notify.New(queueClient, redisClient, cfg.NotificationCap, scheduler, log),
		log,
	)

	// Initialize HTTP handlers
	followHandler := followHTTP.NewFollowHandler(followUseCase, log)

	r := httpserver.NewRouter(cfg, "follow")

	api := r.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.POST("/follow/:username", followHandler.RequestFollow)
		protected.POST("/follow/:username/accept", followHandler.AcceptFollow)
		protected.GET("/follow/requests", followHandler.GetPending)
		protected.GET("/users/:username/followers", followHandler.GetFollowers)
		protected.GET("/users/:username/following", followHandler.GetFollowing)
	}

	return httpserver.Run(ctx, cfg, log, "Follow", r)
}

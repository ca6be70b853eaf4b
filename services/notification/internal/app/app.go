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
	"blockconnect/pkg/mirror"
	"blockconnect/pkg/queue"
	notificationHTTP "blockconnect/services/notification/internal/controller/http"
	"blockconnect/services/notification/internal/repo/persistent"
	"blockconnect/services/notification/internal/usecase"

	"github.com/redis/go-redis/v9"

	_ "blockconnect/services/notification/docs" // Swagger docs
)

const consumerWorkers = 4

func Run(ctx context.Context, cfg *config.Config, log *logger.Logger, redisClient *redis.Client, queueClient *queue.Client, registry contract.Registry, store content.Store) error {
	jwtService := jwt.NewService(cfg.JWTSecret)
	versions := localstore.NewVersions(redisClient)

	var publisher mirror.Publisher
	if queueClient != nil {
		publisher = queueClient
	}

	// Initialize Repository
	notificationRepo := persistent.NewNotificationRepository(mirror.NewPointers(registry), store)

	// Initialize UseCase
	notificationUseCase := usecase.NewNotificationUseCase(
		notificationRepo,
		localstore.NewNotifications(redisClient, cfg.NotificationCap),
		redisClient,
		mirror.NewScheduler(versions, publisher, log),
		log,
	)

	// Initialize HTTP handlers
	notificationHandler := notificationHTTP.NewNotificationHandler(notificationUseCase, redisClient, log, jwtService)

	r := httpserver.NewRouter(cfg, "notification")

	api := r.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread", notificationHandler.GetUnreadCount)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)
		protected.POST("/notifications/refresh", notificationHandler.RefreshNotifications)
		protected.POST("/notifications/send", notificationHandler.SendNotification)
		protected.POST("/notifications/broadcast", notificationHandler.BroadcastNotification)
		protected.POST("/notifications/:id/read", notificationHandler.MarkRead)
		protected.DELETE("/notifications/:id", notificationHandler.DeleteNotification)
		protected.DELETE("/notifications/post/:post_id", notificationHandler.DeleteNotificationByPostID)
		protected.GET("/notifications/settings/:actor", notificationHandler.GetNotificationSettings)
		protected.POST("/notifications/settings/:actor", notificationHandler.EnableNotifications)
		protected.DELETE("/notifications/settings/:actor", notificationHandler.DisableNotifications)
	}
	// WebSocket endpoint - handles authentication internally via query parameter
	api.GET("/notifications/ws", notificationHandler.HandleWebSocket)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	if queueClient != nil {
		go func() {
			log.Info("Starting notification queue processor...")
			if err := queueClient.ConsumeNotificationTasks(consumerCtx, consumerWorkers, notificationUseCase.HandleTask); err != nil {
				log.Error("Notification queue consumer stopped: %v", err)
			}
		}()
	}

	return httpserver.Run(ctx, cfg, log, "Notification", r, stopConsumer)
}

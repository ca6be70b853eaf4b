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
	"blockconnect/pkg/notify"
	"blockconnect/pkg/queue"
	messageHTTP "blockconnect/services/message/internal/controller/http"
	"blockconnect/services/message/internal/repo/persistent"
	"blockconnect/services/message/internal/usecase"

	"github.com/redis/go-redis/v9"

	_ "blockconnect/services/message/docs" // Swagger docs
)

func Run(ctx context.Context, cfg *config.Config, log *logger.Logger, redisClient *redis.Client, queueClient *queue.Client, registry contract.Registry, store content.Store) error {
	jwtService := jwt.NewService(cfg.JWTSecret)
	versions := localstore.NewVersions(redisClient)

	var publisher mirror.Publisher
	if queueClient != nil {
		publisher = queueClient
	}
	scheduler := mirror.NewScheduler(versions, publisher, log)

	notifier := persistent.NewMessageNotifier(notify.New(queueClient, redisClient, cfg.NotificationCap, scheduler, log))

	// Initialize Repository
	messageRepo := persistent.NewMessageRepository(registry, store)

	// Initialize UseCase
	messageUseCase := usecase.NewMessageUseCase(
		messageRepo,
		localstore.NewMessages(redisClient, cfg.MessageCap),
		versions,
		notifier,
		scheduler,
		log,
	)

	// Initialize HTTP handlers
	messageHandler := messageHTTP.NewMessageHandler(messageUseCase, log)

	r := httpserver.NewRouter(cfg, "message")

	api := r.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.POST("/messages", messageHandler.SendMessage)
		protected.GET("/messages/conversations", messageHandler.GetConversations)
		protected.GET("/messages/unread", messageHandler.GetUnreadCount)
		protected.GET("/messages/with/:peer", messageHandler.GetConversation)
		protected.POST("/messages/with/:peer/read", messageHandler.MarkConversationRead)
		protected.POST("/messages/retry/:id", messageHandler.RetryMessage)
	}

	return httpserver.Run(ctx, cfg, log, "Message", r)
}

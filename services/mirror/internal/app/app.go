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
	syncHTTP "blockconnect/services/mirror/internal/controller/http"
	"blockconnect/services/mirror/internal/repo/persistent"
	"blockconnect/services/mirror/internal/usecase"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	_ "blockconnect/services/mirror/docs" // Swagger docs
)

// Run consumes mirror tasks with cfg.MirrorWorkers workers and serves the
// sync status API until ctx is done.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger, db *gorm.DB, redisClient *redis.Client, queueClient *queue.Client, registry contract.Registry, store content.Store) error {
	jwtService := jwt.NewService(cfg.JWTSecret)
	versions := localstore.NewVersions(redisClient)

	// Initialize repositories
	syncRepo := persistent.NewSyncRepository(db)
	source := persistent.NewListSource(
		localstore.NewNotifications(redisClient, cfg.NotificationCap),
		localstore.NewMessages(redisClient, cfg.MessageCap),
		versions,
	)

	// Initialize use cases
	mirrorUseCase := usecase.NewMirrorUseCase(
		syncRepo,
		source,
		store,
		mirror.NewPointers(registry),
		mirror.NewScheduler(versions, queueClient, log),
		localstore.NewLeases(redisClient, localstore.LeaseTTL, localstore.LeaseWait),
		log,
	)

	// Initialize HTTP handlers
	syncHandler := syncHTTP.NewSyncHandler(mirrorUseCase, log)

	r := httpserver.NewRouter(cfg, "mirror")

	api := r.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/sync", syncHandler.GetSyncStatus)
		protected.POST("/sync/:kind", syncHandler.Resync)
	}

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	go func() {
		log.Info("Starting mirror worker with %d consumers...", cfg.MirrorWorkers)
		if err := queueClient.ConsumeMirrorTasks(consumerCtx, cfg.MirrorWorkers, mirrorUseCase.Process); err != nil {
			log.Error("Mirror consumer stopped: %v", err)
		}
	}()

	return httpserver.Run(ctx, cfg, log, "Mirror", r, stopConsumer)
}

// Package message runs the direct message service.
package message

import (
	"context"

	"blockconnect/pkg/cache"
	"blockconnect/pkg/config"
	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/queue"
	"blockconnect/services/message/internal/app"
)

func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v", err)
		return err
	}
	defer redisClient.Close()

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without queue)", err)
		queueClient = nil
	} else {
		defer queueClient.Close()
	}

	registry, err := contract.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to contract: %v", err)
		return err
	}

	store, err := content.New(cfg, log)
	if err != nil {
		log.Error("Failed to set up content store: %v", err)
		return err
	}

	return app.Run(ctx, cfg, log, redisClient, queueClient, registry, store)
}

// Package auth runs the wallet login and profile service.
package auth

import (
	"context"
	"errors"

	"blockconnect/pkg/cache"
	"blockconnect/pkg/config"
	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/database"
	"blockconnect/pkg/logger"
	"blockconnect/services/auth/internal/app"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.JWTSecret == defaultJWTSecret || cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set in environment variables")
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Nonces live in redis, so unlike the other services auth cannot start without it.
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v", err)
		return err
	}
	defer redisClient.Close()

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

	return app.Run(ctx, cfg, log, db, redisClient, registry, store)
}

package main

import (
	"context"
	"os"

	"blockconnect/pkg/config"
	"blockconnect/pkg/logger"
	"blockconnect/services/interaction"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// @title           Interaction Service API
// @version         1.0
// @description     Likes and comments on BlockConnect posts
// @BasePath        /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewWithLevel(cfg.LogLevel)
	defer log.Sync()

	if err := interaction.Run(context.Background(), cfg, log); err != nil {
		log.Error("Interaction service stopped: %v", err)
		os.Exit(1)
	}
}

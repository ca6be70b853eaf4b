// Package httpserver holds the router setup and graceful shutdown shared by
// every service.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blockconnect/pkg/config"
	"blockconnect/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const ShutdownTimeout = 5 * time.Second

// NewRouter returns a gin engine with CORS, /health and the swagger UI of the
// named docs instance.
func NewRouter(cfg *config.Config, service string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": service})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.InstanceName(service)))

	return r
}

// Run serves handler on cfg.ServerPort until SIGINT/SIGTERM or ctx is done,
// then shuts down and runs cleanup in order.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger, name string, handler http.Handler, cleanup ...func()) error {
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("%s service starting on port %s", name, cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	select {
	case err, ok := <-errCh:
		if ok {
			log.Error("Failed to start server: %v", err)
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down %s service...", name)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	for _, fn := range cleanup {
		fn()
	}

	log.Info("%s service exited", name)
	return err
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quicktools/file-processor/api/handlers"
	"github.com/quicktools/file-processor/api/routes"
	"github.com/quicktools/file-processor/config"
	"github.com/quicktools/file-processor/internal/ratelimit"
	"github.com/quicktools/file-processor/internal/service/jobs"
	"github.com/quicktools/file-processor/pkg/logger"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/app.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	serverCfg := config.GetServerConfig()

	jobService, err := jobs.GetService(log)
	if err != nil {
		log.Fatal("Failed to create job service", logger.Error(err))
	}

	limiter := ratelimit.NewLimiter(serverCfg.RateLimitWindow, serverCfg.RateLimitMax)

	h := handlers.NewHandlers(jobService, log, serverCfg.SyncMaxBytes)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h, limiter)

	srv := &http.Server{
		Addr:    ":" + serverCfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("Server starting", logger.String("port", serverCfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}

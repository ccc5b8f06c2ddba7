package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devscore/integrity/dependency"
	"github.com/devscore/integrity/infrastructure/config"
	"go.uber.org/zap"
)

func main() {
	cfg := config.GetConfig()

	container, err := dependency.NewContainer(cfg)
	if err != nil {
		log.Fatal(fmt.Errorf("error initializing dependencies: %w", err))
	}
	defer func() {
		_ = container.Logger.Log.Sync()
	}()

	container.Logger.Info("Starting integrity service")

	router := container.SetupRouter()

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		container.Logger.Info("Server starting",
			zap.String("port", cfg.Server.InternalPort),
			zap.String("mode", cfg.Server.RunMode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	container.Logger.Info("Server started successfully",
		zap.String("port", cfg.Server.ExternalPort),
		zap.String("domain", cfg.Server.Domain),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		container.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := container.Shutdown(); err != nil {
		container.Logger.Error("Dependency shutdown failed", zap.Error(err))
	}

	container.Logger.Info("Server exited successfully")
}

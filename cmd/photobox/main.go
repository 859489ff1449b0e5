package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photobox/internal/database"
	"photobox/internal/logging"
	"photobox/internal/server"
	"photobox/internal/storage"
	"photobox/internal/token"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := logging.Setup(env("PHOTOBOX_LOG_LEVEL", "info"))

	port := env("PHOTOBOX_PORT", "8080")
	dbPath := env("PHOTOBOX_DB_PATH", "photobox.db")

	accessSecret := os.Getenv("PHOTOBOX_JWT_SECRET")
	refreshSecret := os.Getenv("PHOTOBOX_REFRESH_SECRET")
	if accessSecret == "" || refreshSecret == "" {
		logger.Error("PHOTOBOX_JWT_SECRET and PHOTOBOX_REFRESH_SECRET must be set")
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var blobs storage.Store
	switch storageType := env("PHOTOBOX_STORAGE_TYPE", "local"); storageType {
	case "local":
		mediaPath := env("PHOTOBOX_MEDIA_PATH", "media")
		blobs, err = storage.NewLocal(mediaPath)
		if err != nil {
			logger.Error("init local storage", "path", mediaPath, "error", err)
			os.Exit(1)
		}
		logger.Info("storage configured", "type", "local", "path", mediaPath)
	case "s3":
		cfg := storage.S3Config{
			Endpoint:     os.Getenv("S3_ENDPOINT"),
			Bucket:       os.Getenv("S3_BUCKET"),
			Region:       env("S3_REGION", "us-east-1"),
			AccessKey:    os.Getenv("S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("S3_SECRET_KEY"),
			UsePathStyle: os.Getenv("S3_FORCE_PATH_STYLE") == "true",
		}
		if cfg.Bucket == "" {
			logger.Error("S3_BUCKET must be set for s3 storage")
			os.Exit(1)
		}
		blobs = storage.NewS3(cfg)
		logger.Info("storage configured", "type", "s3", "bucket", cfg.Bucket)
	default:
		logger.Error("unknown storage type", "type", storageType)
		os.Exit(1)
	}

	tokens := token.NewService(accessSecret, refreshSecret)
	srv := server.New(db, tokens, blobs, server.Config{
		CORSOrigin: os.Getenv("PHOTOBOX_CORS_ORIGIN"),
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Start(ctx)

	// Drop stale rate-limit windows so the map does not grow unbounded.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: srv.Router(),
		// Uploads run to 200MB, so read/write deadlines stay generous.
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("photobox running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	srv.Stop()
}

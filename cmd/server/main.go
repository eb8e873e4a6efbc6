// cmd/server/main.go
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

	"github.com/gin-gonic/gin"

	"github.com/homedar/homedar-backend/internal/config"
	"github.com/homedar/homedar-backend/internal/database"
	"github.com/homedar/homedar-backend/internal/geo"
	"github.com/homedar/homedar-backend/internal/jobs"
	"github.com/homedar/homedar-backend/internal/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(db, cfg)

	// Background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	lock := jobs.NewGormLock(db)
	backfill := jobs.NewGeoBackfillJob(db, geo.NewClient(cfg.Geo), lock,
		time.Duration(cfg.Jobs.BackfillLockTTL)*time.Minute)
	cleanup := jobs.NewCleanupJob(db, lock,
		time.Duration(cfg.Jobs.BackfillLockTTL)*time.Minute,
		time.Duration(cfg.Jobs.ViewRetentionDays)*24*time.Hour)
	scheduler := jobs.NewScheduler(backfill, cleanup,
		time.Duration(cfg.Jobs.BackfillInterval)*time.Minute,
		time.Duration(cfg.Jobs.CleanupInterval)*time.Hour)
	scheduler.Start(jobCtx)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop background jobs first so a held lock is released cleanly
	cancelJobs()
	scheduler.Wait()

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

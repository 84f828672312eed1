package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"io.winapps.healthjournal/internal/bootstrap"
	"io.winapps.healthjournal/internal/config"
	"io.winapps.healthjournal/internal/dates"
	"io.winapps.healthjournal/internal/db"
	firebaseutil "io.winapps.healthjournal/internal/firebase"
	"io.winapps.healthjournal/internal/handlers"
	"io.winapps.healthjournal/internal/middleware"
	"io.winapps.healthjournal/internal/reminders"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := middleware.NewLogger(cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	defaultLoc, err := dates.LoadLocation(cfg.DefaultTimezone, time.Local)
	if err != nil {
		logger.Fatalw("invalid DEFAULT_TIMEZONE", "error", err)
	}

	ctx := context.Background()

	// Initialize Firebase
	var (
		firebaseApp *firebase.App
		verifier    middleware.TokenVerifier
	)
	if cfg.FirebaseEnabled {
		firebaseApp, err = firebaseutil.InitFirebase(ctx, cfg)
		if err != nil {
			logger.Fatalw("failed to initialize Firebase", "error", err)
		}
		authClient, err := firebaseutil.GetAuthClient(ctx, firebaseApp)
		if err != nil {
			logger.Fatalw("failed to initialize Firebase Auth", "error", err)
		}
		verifier = authClient
	}

	// Initialize Redis
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = db.InitRedis(cfg.Redis)
		if err != nil {
			logger.Fatalw("failed to initialize Redis", "error", err)
		}
		defer redisClient.Close()
	}

	entryStore, closeStore, err := bootstrap.OpenStore(ctx, cfg, firebaseApp, redisClient, logger)
	if err != nil {
		logger.Fatalw("failed to open entry store", "store", cfg.EntryStore, "error", err)
	}
	defer closeStore()

	// Diary reminders
	var registry *reminders.Registry
	if redisClient != nil {
		registry = reminders.NewRegistry(redisClient)
	}
	if cfg.RemindersEnabled {
		messagingClient, err := firebaseutil.GetMessagingClient(ctx, firebaseApp)
		if err != nil {
			logger.Fatalw("failed to initialize Firebase Messaging", "error", err)
		}
		reminderLoc, err := dates.LoadLocation(cfg.ReminderTimezone, time.UTC)
		if err != nil {
			logger.Fatalw("invalid REMINDER_TIMEZONE", "error", err)
		}
		scheduler := reminders.NewScheduler(registry, entryStore, messagingClient, logger)
		if err := scheduler.Start(cfg.ReminderSchedule, reminderLoc); err != nil {
			logger.Fatalw("failed to schedule reminders", "error", err)
		}
		defer scheduler.Stop()
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.RequestLoggingMiddleware(logger),
		middleware.RecoveryMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// Initialize handlers
	entryHandler := handlers.NewEntryHandler(entryStore, defaultLoc, logger)
	dashboardHandler := handlers.NewDashboardHandler(entryStore, defaultLoc, logger)

	// Define routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.PasswordGateMiddleware(cfg.AppPasswordHash), middleware.UserScopeMiddleware(verifier, logger))
	{
		entries := v1.Group("/entries")
		{
			entries.POST("/create-entry", entryHandler.CreateEntry)
			entries.POST("/list-entries", entryHandler.ListEntries)
			entries.POST("/delete-entry", entryHandler.DeleteEntry)
			entries.POST("/search-history", entryHandler.SearchHistory)
			entries.POST("/export-history", entryHandler.ExportHistory)
		}

		dash := v1.Group("/dashboard")
		{
			dash.GET("/summary", dashboardHandler.Summary)
			dash.GET("/series", dashboardHandler.Series)
			dash.GET("/ws", dashboardHandler.LiveDashboard)
		}

		if registry != nil {
			notificationsHandler := handlers.NewNotificationsHandler(registry, logger)
			v1.POST("/notifications/register-push-token", notificationsHandler.RegisterPushToken)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": cfg.EntryStore})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Infow("server starting", "port", cfg.Port, "store", cfg.EntryStore, "timezone", defaultLoc.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

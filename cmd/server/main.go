package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/corporate-actions-api/internal/actions"
	"github.com/ksred/corporate-actions-api/internal/auth"
	"github.com/ksred/corporate-actions-api/internal/batch"
	"github.com/ksred/corporate-actions-api/internal/config"
	"github.com/ksred/corporate-actions-api/internal/database"
	"github.com/ksred/corporate-actions-api/internal/ingest"
	"github.com/ksred/corporate-actions-api/internal/resolver"
	"github.com/ksred/corporate-actions-api/internal/sweeper"
	"github.com/ksred/corporate-actions-api/internal/updater"
	"github.com/ksred/corporate-actions-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the corporate actions API server with graceful
// shutdown support. It wires the ingestion pipeline, the retention sweeper and
// all query routes.
func main() {
	cfg := config.Load()

	// Initialize database
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		authService.RegisterAPICredentials(apiKey, os.Getenv("API_SECRET"))
	}

	resolverService := resolver.NewService(cfg.AlfagoBaseURL, cfg.ResolveDelay, cfg.ResolveTimeout)
	ingestService := ingest.NewService(db, resolverService)
	sweeperService := sweeper.NewService(db, cfg.RetentionDays)

	batchClient := batch.NewClient(cfg.ProwessAPIKey, cfg.SendBatchURL, cfg.GetBatchURL, cfg.StagingDir)
	runner := updater.NewRunner(
		batchClient, ingestService, sweeperService,
		cfg.BatchDir, cfg.StagingDir,
		cfg.PollInterval, cfg.PollTimeout,
	)

	// A refresh is only possible with provider credentials; without them the
	// API serves whatever is already stored.
	var refresh actions.RefreshFunc
	if cfg.ProwessAPIKey != "" {
		refresh = runner.Run
	}

	actionsService := actions.NewService(db, refresh)
	actionsHandlers := actions.NewGinHandlers(actionsService)

	// Create and start the retention sweep processor
	sweepProcessor := sweeper.NewProcessor(sweeperService, cfg.SweepInterval)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go sweepProcessor.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg.JWTSecret, authHandlers, actionsHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Query routes: Public read surface, rate limited
// - Refresh route: Protected by JWT authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	actionsHandlers *actions.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Public query routes
		ca := v1.Group("/corporate-actions")
		{
			ca.GET("", actionsHandlers.ListHandler())
			ca.GET("/upcoming", actionsHandlers.UpcomingHandler())
			ca.GET("/today", actionsHandlers.TodayHandler())
			ca.GET("/dividends", actionsHandlers.DividendsHandler())
			ca.GET("/bonus", actionsHandlers.BonusHandler())
			ca.GET("/company/:company_name", actionsHandlers.CompanyHandler())
			ca.GET("/stats", actionsHandlers.StatsHandler())
		}

		// Ingestion trigger, protected
		refresh := v1.Group("/corporate-actions")
		refresh.Use(middleware.JWTAuth(jwtSecret))
		{
			refresh.POST("/refresh", actionsHandlers.RefreshHandler())
		}
	}
}

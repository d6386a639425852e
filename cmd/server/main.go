package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/nrm-api/internal/auth"
	"github.com/ksred/nrm-api/internal/batch"
	"github.com/ksred/nrm-api/internal/clearing"
	"github.com/ksred/nrm-api/internal/config"
	"github.com/ksred/nrm-api/internal/database"
	"github.com/ksred/nrm-api/internal/nrm"
	"github.com/ksred/nrm-api/internal/offers"
	"github.com/ksred/nrm-api/pkg/middleware"

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

// main initializes and runs the reserve clearing API server with
// graceful shutdown support. It sets up all required services, the
// database connection, and the API routes.
func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.Auth.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	authService.RegisterAPICredentials(cfg.Auth.APIKey, cfg.Auth.APISecret)

	offerService := offers.NewService(db, cfg.RegionMap())
	offerHandlers := offers.NewGinHandlers(offerService)

	clearingService := clearing.NewService(db, offerService)
	clearingHandlers := clearing.NewGinHandlers(clearingService)

	nrmService := nrm.NewService(db, offerService)
	nrmHandlers := nrm.NewGinHandlers(nrmService)

	batchService := batch.NewService(db, offerService, cfg.Batch.Workers)
	batchHandlers := batch.NewGinHandlers(batchService)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(cfg, router, authHandlers, offerHandlers, clearingHandlers, nrmHandlers, batchHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
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
// - Offer routes: Protected by JWT authentication
// - Internal routes: Clearing operations, protected by internal network
// authentication
func setupRoutes(
	cfg *config.Config,
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	offerHandlers *offers.GinHandlers,
	clearingHandlers *clearing.GinHandlers,
	nrmHandlers *nrm.GinHandlers,
	batchHandlers *batch.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Offer routes
		offerGroup := v1.Group("/offers")
		offerGroup.Use(middleware.JWTAuth(cfg.Auth.JWTSecret))
		{
			offerGroup.POST("", offerHandlers.UploadOffersHandler())
			offerGroup.GET("", offerHandlers.ListOffersHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(cfg.Auth.JWTSecret))
		{
			internal.POST("/clearing", clearingHandlers.ClearHandler())
			internal.GET("/clearing/runs/:run_id", clearingHandlers.GetRunStatusHandler())
			internal.POST("/nrm", nrmHandlers.ClearNRMHandler())
			internal.GET("/nrm/runs/:run_id", nrmHandlers.GetRunStatusHandler())
			internal.POST("/batch", batchHandlers.ClearAllHandler())
			internal.GET("/batch/runs/:batch_id", batchHandlers.GetBatchStatusHandler())
		}
	}
}

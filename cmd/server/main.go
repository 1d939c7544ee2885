package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storynest/internal/config"
	"storynest/internal/database"
	"storynest/internal/handlers"
	"storynest/internal/repository"
	"storynest/internal/security"
	"storynest/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	bookRepo := repository.NewBookRepository(db)
	readerRepo := repository.NewReaderRepository(db)
	checkpointRepo := repository.NewCheckpointRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Initialize services
	emailService, err := service.NewEmailService(cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	bookService := service.NewBookService(bookRepo)
	checkpointService := service.NewCheckpointService(checkpointRepo, readerRepo, bookService)
	attemptService := service.NewAttemptService(attemptRepo, bookService, cfg.SessionGap)
	completionService := service.NewCompletionService(completionRepo, checkpointRepo, readerRepo, bookService, emailService)

	// Initialize handlers
	verifier := security.NewTokenVerifier(cfg.TokenSecret)
	limiter := security.NewRateLimiter(120, time.Minute)
	middleware := handlers.NewMiddleware(verifier, limiter)

	bookHandler := handlers.NewBookHandler(bookService)
	checkpointHandler := handlers.NewCheckpointHandler(checkpointService)
	attemptHandler := handlers.NewAttemptHandler(attemptService, completionService)
	reportHandler := handlers.NewReportHandler(attemptService, completionService)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo)
	readerHandler := handlers.NewReaderHandler(readerRepo)

	// Setup routes
	mux := http.NewServeMux()

	// Catalog routes
	mux.HandleFunc("GET /api/books", middleware.RequireReader(bookHandler.List))
	mux.HandleFunc("GET /api/books/{book}", middleware.RequireReader(bookHandler.Get))
	mux.HandleFunc("GET /api/books/{book}/content", middleware.RequireReader(bookHandler.Content))

	// Checkpoint routes
	mux.HandleFunc("GET /api/books/{book}/checkpoint", middleware.RequireReader(checkpointHandler.Get))
	mux.HandleFunc("PUT /api/books/{book}/checkpoint", middleware.RequireReader(middleware.RateLimit(checkpointHandler.Save)))
	mux.HandleFunc("POST /api/books/{book}/checkpoint/reset", middleware.RequireReader(middleware.RateLimit(checkpointHandler.Reset)))

	// Quiz routes
	mux.HandleFunc("POST /api/books/{book}/attempts", middleware.RequireReader(middleware.RateLimit(attemptHandler.Record)))
	mux.HandleFunc("GET /api/books/{book}/attempts", middleware.RequireReader(attemptHandler.List))
	mux.HandleFunc("POST /api/books/{book}/complete", middleware.RequireReader(middleware.RateLimit(attemptHandler.Complete)))

	// Reader routes
	mux.HandleFunc("GET /api/readers/me", middleware.RequireReader(readerHandler.Me))

	// Report routes
	mux.HandleFunc("GET /api/books/{book}/sessions", middleware.RequireReader(reportHandler.Sessions))
	mux.HandleFunc("GET /api/books/{book}/sessions/latest", middleware.RequireReader(reportHandler.LatestSession))
	mux.HandleFunc("GET /api/readers/me/average", middleware.RequireReader(reportHandler.Average))
	mux.HandleFunc("GET /api/readers/me/awards", middleware.RequireReader(reportHandler.Awards))

	// Preference routes
	mux.HandleFunc("GET /api/readers/me/settings", middleware.RequireReader(settingsHandler.List))
	mux.HandleFunc("PUT /api/readers/me/settings/{key}", middleware.RequireReader(middleware.RateLimit(settingsHandler.Set)))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

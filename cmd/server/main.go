package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attendance-tracker-api/internal/api"
	"github.com/attendance-tracker-api/internal/config"
	"github.com/attendance-tracker-api/internal/database"
	"github.com/attendance-tracker-api/internal/identity"
	"github.com/attendance-tracker-api/internal/models"
	"github.com/attendance-tracker-api/internal/repository"
	"github.com/attendance-tracker-api/internal/service"
	"github.com/attendance-tracker-api/internal/session"
	"github.com/attendance-tracker-api/pkg/logger"
)

func main() {
	// Load configuration first so .env can set the log level and format
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "json")
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting attendance tracker server...")

	loc, err := cfg.Attendance.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load time zone")
	}

	// Initialize storage
	var (
		repos  *repository.Repositories
		health api.HealthChecker
	)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if err := db.RunMigrations(cfg.Storage.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
		repos = repository.NewPostgres(db)
		health = db
	default:
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			log.Fatal().Err(err).Msg("Failed to create data directory")
		}
		repos = repository.NewCSV(cfg.Storage.DataDir, log)
	}
	log.Info().
		Str("backend", cfg.Storage.Backend).
		Str("mode", cfg.Attendance.Mode).
		Bool("dedup", cfg.Attendance.Dedup).
		Str("timezone", loc.String()).
		Msg("Storage initialized")

	// Initialize services
	services := service.NewServices(repos, service.Options{
		Dedup:    cfg.Attendance.Dedup,
		Location: loc,
	}, log)

	// The shared table exists from startup in global mode
	if !cfg.Attendance.MultiUser() {
		if err := services.Attendance.Open(context.Background(), models.GlobalScope); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize attendance table")
		}
	}

	// Sessions
	sessions := session.NewManager(identity.NewEmailResolver(), cfg.Attendance.SessionTTL, log)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sessions.StartSweeper(sweepCtx, time.Minute)

	// Initialize router
	router := api.NewRouter(services, sessions, health, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	stopSweep()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

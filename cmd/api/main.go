package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gradschool/internal/app"
	"gradschool/internal/auth"
	"gradschool/internal/config"
	"gradschool/internal/database"
	"gradschool/internal/handlers"
	"gradschool/internal/logger"
	"gradschool/internal/metrics"
	"gradschool/internal/middleware"
	"gradschool/internal/models"
	"gradschool/internal/scheduler"
	"gradschool/migrations"
)

// @title Graduate School Defense API
// @version 1.0
// @description Defense request workflow, AA payment verification and honorarium records

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Setup(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}()
	slog.Info("Database connection established")

	startup, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	applied, err := database.NewMigrationExecutor(db.DB).RunMigrations(startup, migrations.FS)
	if err != nil {
		cancel()
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed", "applied", len(applied))

	m := metrics.New(true)
	services, err := app.New(cfg, db.DB, m)
	if err != nil {
		cancel()
		slog.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}

	if cfg.Rates.SeedOnStart {
		if _, err := services.Rates.SeedIfEmpty(startup, cfg.Rates.SeedFile); err != nil {
			cancel()
			slog.Error("Failed to seed payment rates", "error", err)
			os.Exit(1)
		}
	}
	cancel()

	sched := scheduler.NewScheduler(services.Sync, &cfg.Scheduler)
	if err := sched.Start(); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	authMw := middleware.NewAuthMiddleware(auth.NewService(&cfg.JWT))
	defenseHandler := handlers.NewDefenseHandler(services.Workflow, services.Honoraria, services.Sync)
	aaHandler := handlers.NewAAHandler(services.AA)
	rateHandler := handlers.NewRateHandler(services.Rates, services.Report)

	protected := func(h http.HandlerFunc, roles ...models.UserRole) http.Handler {
		var next http.Handler = h
		if len(roles) > 0 {
			next = middleware.RequireRole(roles...)(next)
		}
		return authMw.Authenticate(next)
	}

	base := handlers.APIBasePath
	mux := http.NewServeMux()

	// Defense requests
	mux.Handle("POST "+base+"/defense-requests",
		protected(defenseHandler.Submit, models.UserRoleStudent, models.UserRoleAdmin))
	mux.Handle("GET "+base+"/defense-requests/{id}", protected(defenseHandler.Get))
	mux.Handle("GET "+base+"/defense-requests/{id}/history", protected(defenseHandler.History))
	mux.Handle("POST "+base+"/defense-requests/{id}/advance",
		protected(defenseHandler.Advance, models.UserRoleAdviser, models.UserRoleCoordinator, models.UserRoleAdmin))
	mux.Handle("POST "+base+"/defense-requests/{id}/reject",
		protected(defenseHandler.Reject, models.UserRoleAdviser, models.UserRoleCoordinator, models.UserRoleAdmin))
	mux.Handle("POST "+base+"/defense-requests/{id}/resubmit",
		protected(defenseHandler.Resubmit, models.UserRoleStudent, models.UserRoleAdmin))
	mux.Handle("PUT "+base+"/defense-requests/{id}/committee",
		protected(defenseHandler.AssignCommittee, models.UserRoleCoordinator, models.UserRoleAdmin))
	mux.Handle("PUT "+base+"/defense-requests/{id}/schedule",
		protected(defenseHandler.Reschedule, models.UserRoleCoordinator, models.UserRoleAdmin))
	mux.Handle("GET "+base+"/defense-requests/{id}/honoraria", protected(defenseHandler.Honoraria))
	mux.Handle("POST "+base+"/defense-requests/{id}/sync",
		protected(defenseHandler.Sync, models.UserRoleAdmin))

	// AA payment verification
	mux.Handle("GET "+base+"/defense-requests/{id}/aa-verification",
		protected(aaHandler.Get, models.UserRoleAA, models.UserRoleAdmin))
	mux.Handle("PUT "+base+"/defense-requests/{id}/aa-verification",
		protected(aaHandler.UpdateStatus, models.UserRoleAA, models.UserRoleAdmin))

	// Rates and reports
	mux.Handle("GET "+base+"/rates", protected(rateHandler.List))
	mux.Handle("GET "+base+"/rates/resolve", protected(rateHandler.Resolve))
	mux.Handle("GET "+base+"/reports/honoraria.xlsx",
		protected(rateHandler.ExportReport, models.UserRoleAA, models.UserRoleAdmin))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			slog.Warn("Health check failed", "error", err)
			handlers.JSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		handlers.JSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.Handle("GET /metrics", m.Handler())

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      middleware.LoggingMiddleware(mux),
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	sched.Stop(ctx)

	slog.Info("Server stopped")
}

// Package app wires repositories and services for the API server and the admin CLI.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	"gradschool/internal/config"
	"gradschool/internal/metrics"
	"gradschool/internal/notify"
	"gradschool/internal/rates"
	"gradschool/internal/report"
	"gradschool/internal/repository"
	"gradschool/internal/service"
)

// App holds the wired services
type App struct {
	Metrics    *metrics.Metrics
	Users      *repository.UserRepository
	Workflow   *service.WorkflowService
	AA         *service.AAService
	Honoraria  *service.HonorariumService
	Sync       *service.SyncService
	Rates      *service.RateService
	Report     *report.Generator
	Dispatcher notify.Dispatcher
}

// New builds every service on db. The dispatcher is SMTP when a host is
// configured and logging otherwise.
func New(cfg *config.Config, db *sql.DB, m *metrics.Metrics) (*App, error) {
	panel, err := cfg.Workflow.PanelPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to compile panel policy: %w", err)
	}

	var dispatcher notify.Dispatcher
	if cfg.Email.Enabled() {
		dispatcher = notify.NewSMTPDispatcher(&cfg.Email)
		slog.Info("SMTP notifications enabled", "host", cfg.Email.SMTPHost)
	} else {
		dispatcher = notify.NewLogDispatcher()
		slog.Warn("SMTP_HOST not set - notifications are only logged")
	}

	requests := repository.NewDefenseRequestRepository(db)
	history := repository.NewHistoryRepository(db)
	users := repository.NewUserRepository(db)
	aa := repository.NewAAVerificationRepository(db)
	rateRepo := repository.NewPaymentRateRepository(db)
	honoraria := repository.NewHonorariumRepository(db)
	panelists := repository.NewPanelistRepository(db)
	projection := repository.NewProjectionRepository(db)

	resolver := rates.NewResolver(rateRepo, projection)
	honorarium := service.NewHonorariumService(resolver, requests, honoraria, panelists, m)
	notifier := service.NewNotifier(dispatcher, users, cfg.Email.AARecipients, m)
	sync := service.NewSyncService(db, requests, honoraria, panelists, aa, projection, m)

	return &App{
		Metrics:    m,
		Users:      users,
		Workflow:   service.NewWorkflowService(db, requests, history, users, aa, resolver, honorarium, panel, notifier, sync, m),
		AA:         service.NewAAService(db, requests, aa, honorarium, notifier, sync, m),
		Honoraria:  honorarium,
		Sync:       sync,
		Rates:      service.NewRateService(db, rateRepo, resolver),
		Report:     report.NewGenerator(projection),
		Dispatcher: dispatcher,
	}, nil
}

package app

import (
	"database/sql"
	"testing"

	_ "github.com/lib/pq"

	"gradschool/internal/config"
	"gradschool/internal/notify"
	"gradschool/internal/policy"
)

func testConfig() *config.Config {
	return &config.Config{
		Workflow: config.WorkflowConfig{
			EnforcePanelPolicy: true,
			MasteralPanelRule:  policy.DefaultMasteralRule,
			DoctoratePanelRule: policy.DefaultDoctorateRule,
		},
	}
}

func TestNewUsesLogDispatcherWithoutSMTP(t *testing.T) {
	// sql.Open does not connect, so no database is needed here
	db, err := sql.Open("postgres", "host=127.0.0.1 port=1 sslmode=disable")
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer db.Close()

	a, err := New(testConfig(), db, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := a.Dispatcher.(*notify.LogDispatcher); !ok {
		t.Errorf("expected LogDispatcher, got %T", a.Dispatcher)
	}
	if a.Workflow == nil || a.AA == nil || a.Sync == nil || a.Rates == nil || a.Report == nil {
		t.Error("expected every service to be wired")
	}

	cfg := testConfig()
	cfg.Email.SMTPHost = "smtp.example.edu"
	a, err = New(cfg, db, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := a.Dispatcher.(*notify.SMTPDispatcher); !ok {
		t.Errorf("expected SMTPDispatcher, got %T", a.Dispatcher)
	}
}

func TestNewRejectsInvalidPanelRule(t *testing.T) {
	cfg := testConfig()
	cfg.Workflow.MasteralPanelRule = "seats > 3"

	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatal("expected error for invalid panel rule")
	}
}

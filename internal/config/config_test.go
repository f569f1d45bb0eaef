package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SCHEDULER_SYNC_SWEEP_CRON", "")
	t.Setenv("WORKFLOW_ENFORCE_PANEL_POLICY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scheduler.SyncSweepCron != "*/15 * * * *" {
		t.Errorf("Expected default sweep cron, got %q", cfg.Scheduler.SyncSweepCron)
	}
	if !cfg.Workflow.EnforcePanelPolicy {
		t.Error("Panel policy should be enforced by default")
	}
	if cfg.JWT.Expiration != 24*time.Hour {
		t.Errorf("Expected 24h token expiration, got %s", cfg.JWT.Expiration)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("Expected error without JWT_SECRET")
	}
}

func TestTypedHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "forty-two")
	t.Setenv("TEST_BOOL", "false")
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_SLICE", " aa@example.edu, ,finance@example.edu ")

	if got := getIntEnv("TEST_INT", 1); got != 42 {
		t.Errorf("getIntEnv = %d, want 42", got)
	}
	if got := getIntEnv("TEST_BAD_INT", 7); got != 7 {
		t.Errorf("getIntEnv with invalid value = %d, want default 7", got)
	}
	if got := getBoolEnv("TEST_BOOL", true); got {
		t.Error("getBoolEnv = true, want false")
	}
	if got := getDurationEnv("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("getDurationEnv = %s, want 90s", got)
	}
	got := getSliceEnv("TEST_SLICE", nil)
	if len(got) != 2 || got[0] != "aa@example.edu" || got[1] != "finance@example.edu" {
		t.Errorf("getSliceEnv = %v", got)
	}
}

func TestValidateRejectsBadPanelRule(t *testing.T) {
	cfg := &Config{
		JWT:       JWTConfig{Secret: "s"},
		Scheduler: SchedulerConfig{SyncSweepBatch: 10},
		Workflow: WorkflowConfig{
			EnforcePanelPolicy: true,
			MasteralPanelRule:  "committee_size >= ",
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected invalid panel rule to fail validation")
	}

	cfg.Workflow.MasteralPanelRule = "has_chair && panel_members >= 2"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

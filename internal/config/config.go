package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gradschool/internal/models"
	"gradschool/internal/policy"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Email     EmailConfig
	App       AppConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Workflow  WorkflowConfig
	Rates     RatesConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string
	Port         string
	TimeoutRead  time.Duration
	TimeoutWrite time.Duration
	TimeoutIdle  time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig holds bearer token configuration
type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

// EmailConfig holds notification mail configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	// AARecipients receive finance notices (honoraria ready, schedule notices)
	AARecipients []string
	PortalURL    string
}

// Enabled reports whether an SMTP server is configured
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != ""
}

// AppConfig holds general application configuration
type AppConfig struct {
	Env     string
	Name    string
	Version string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig holds the sync sweeper configuration
type SchedulerConfig struct {
	SyncSweepCron   string // e.g. "*/15 * * * *"
	EnableSyncSweep bool
	SyncSweepBatch  int
}

// WorkflowConfig holds defense workflow policy
type WorkflowConfig struct {
	EnforcePanelPolicy bool
	MasteralPanelRule  string
	DoctoratePanelRule string
}

// PanelPolicy compiles the configured panel rules
func (w WorkflowConfig) PanelPolicy() (*policy.PanelPolicy, error) {
	return policy.NewPanelPolicy(w.EnforcePanelPolicy, map[models.ProgramLevel]string{
		models.LevelMasteral:  w.MasteralPanelRule,
		models.LevelDoctorate: w.DoctoratePanelRule,
	})
}

// RatesConfig holds payment rate seeding configuration
type RatesConfig struct {
	// SeedFile overrides the embedded default rate table when set
	SeedFile string
	// SeedOnStart loads the rate table into an empty payment_rates table at startup
	SeedOnStart bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// godotenv doesn't override already-set variables, so order matters
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnv("SERVER_PORT", "8080"),
			TimeoutRead:  getDurationEnv("SERVER_TIMEOUT_READ", 15*time.Second),
			TimeoutWrite: getDurationEnv("SERVER_TIMEOUT_WRITE", 30*time.Second),
			TimeoutIdle:  getDurationEnv("SERVER_TIMEOUT_IDLE", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "gradschool"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "gradschool_db"),
			SSLMode:         getEnv("DB_SSLMODE", "prefer"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			Issuer:     getEnv("JWT_ISSUER", "gradschool"),
			Expiration: getDurationEnv("JWT_EXPIRATION", 24*time.Hour),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:     getEnv("SMTP_FROM", "gradschool@example.edu"),
			AARecipients: getSliceEnv("EMAIL_AA_RECIPIENTS", nil),
			PortalURL:    getEnv("PORTAL_URL", "http://localhost:3000"),
		},
		App: AppConfig{
			Env:     getEnv("APP_ENV", "development"),
			Name:    getEnv("APP_NAME", "Graduate School"),
			Version: getEnv("APP_VERSION", "1.0.0"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Scheduler: SchedulerConfig{
			SyncSweepCron:   getEnv("SCHEDULER_SYNC_SWEEP_CRON", "*/15 * * * *"),
			EnableSyncSweep: getBoolEnv("SCHEDULER_ENABLE_SYNC_SWEEP", true),
			SyncSweepBatch:  getIntEnv("SCHEDULER_SYNC_SWEEP_BATCH", 50),
		},
		Workflow: WorkflowConfig{
			EnforcePanelPolicy: getBoolEnv("WORKFLOW_ENFORCE_PANEL_POLICY", true),
			MasteralPanelRule:  getEnv("WORKFLOW_MASTERAL_PANEL_RULE", policy.DefaultMasteralRule),
			DoctoratePanelRule: getEnv("WORKFLOW_DOCTORATE_PANEL_RULE", policy.DefaultDoctorateRule),
		},
		Rates: RatesConfig{
			SeedFile:    getEnv("RATES_SEED_FILE", ""),
			SeedOnStart: getBoolEnv("RATES_SEED_ON_START", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Database.Password == "" && c.App.Env == "production" {
		return fmt.Errorf("DB_PASSWORD is required in production")
	}
	if c.Scheduler.SyncSweepBatch <= 0 {
		return fmt.Errorf("SCHEDULER_SYNC_SWEEP_BATCH must be positive")
	}
	if _, err := c.Workflow.PanelPolicy(); err != nil {
		return fmt.Errorf("invalid workflow panel policy: %w", err)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, v := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

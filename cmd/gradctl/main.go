package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gradschool/internal/app"
	"gradschool/internal/config"
	"gradschool/internal/database"
	"gradschool/internal/logger"
)

var Version = "dev"

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:          "gradctl",
		Short:        "gradctl - Graduate School defense records administration",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(ratesCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is the loaded configuration plus an open database
type env struct {
	cfg *config.Config
	db  *database.Database
}

func (e *env) Close() {
	_ = e.db.Close()
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger.Setup(logger.Config{Level: level, Format: "text", Output: os.Stderr})

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, db: db}, nil
}

// withApp opens the database, wires the services and runs fn
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	a, err := app.New(e.cfg, e.db.DB, nil)
	if err != nil {
		return err
	}
	return fn(context.Background(), a)
}

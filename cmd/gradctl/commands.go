package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"gradschool/internal/app"
	"gradschool/internal/auth"
	"gradschool/internal/config"
	"gradschool/internal/database"
	"gradschool/internal/models"
	"gradschool/migrations"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			applied, err := database.NewMigrationExecutor(e.db.DB).RunMigrations(cmd.Context(), migrations.FS)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println("Database is up to date")
			}
			for _, name := range applied {
				fmt.Printf("Applied %s\n", name)
			}
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [defense-request-id]",
		Short: "Re-run the student record sync for a completed defense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid defense request id %q", args[0])
			}

			return withApp(func(ctx context.Context, a *app.App) error {
				result, err := a.Sync.SyncDefenseRequest(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sync completed defenses whose student records are missing or out of date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				result, err := a.Sync.SweepPending(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Printf("Attempted %d, synced %d, failed %d\n", result.Attempted, result.Synced, result.Failed)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum defenses to sync")
	return cmd
}

func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Manage the honorarium rate table",
	}

	importCmd := &cobra.Command{
		Use:   "import [file.yaml]",
		Short: "Upsert payment rates from a YAML rate file",
		Long: `Upsert payment rates from a YAML rate file.

Each entry lists the peso amount per committee seat for one level and defense type:
  - level: Masteral
    defense_type: Proposal
    amounts:
      Adviser: 3000
      Panel Chair: 2500`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open rate file: %w", err)
			}
			defer f.Close()

			return withApp(func(ctx context.Context, a *app.App) error {
				n, err := a.Rates.Import(ctx, f)
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d rates\n", n)
				return nil
			})
		},
	}

	var program, defenseType string
	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the rates that apply to a program and defense type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				res, err := a.Rates.Resolve(ctx, program, defenseType)
				if err != nil {
					return err
				}
				fmt.Printf("%s (%s), %s\n", res.Program, res.Level, res.DefenseType)
				for _, rate := range res.Rates {
					fmt.Printf("  %-15s %12s\n", rate.Role, rate.Amount)
				}
				fmt.Printf("  %-15s %12s (%s)\n", "Total", res.Total(), res.Total().Words())
				return nil
			})
		},
	}
	resolveCmd.Flags().StringVar(&program, "program", "", "program name")
	resolveCmd.Flags().StringVar(&defenseType, "type", "", "defense type (Proposal, Pre-final, Final)")
	_ = resolveCmd.MarkFlagRequired("program")
	_ = resolveCmd.MarkFlagRequired("type")

	cmd.AddCommand(importCmd, resolveCmd)
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Honorarium reports",
	}

	var program, out string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the honorarium report as an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()

			return withApp(func(ctx context.Context, a *app.App) error {
				n, err := a.Report.Export(ctx, program, f)
				if err != nil {
					return err
				}
				fmt.Printf("Wrote %d rows to %s\n", n, out)
				return nil
			})
		},
	}
	exportCmd.Flags().StringVar(&program, "program", "", "limit to one program")
	exportCmd.Flags().StringVarP(&out, "out", "o", "honoraria.xlsx", "output file")

	cmd.AddCommand(exportCmd)
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		userID int64
		role   string
		email  string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			userRole := models.UserRole(role)
			if !userRole.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			token, err := auth.NewService(&cfg.JWT).GenerateToken(userID, email, userRole)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "user id")
	cmd.Flags().StringVar(&role, "role", "", "student, adviser, coordinator, aa or admin")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

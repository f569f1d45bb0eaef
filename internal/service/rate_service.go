package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gradschool/internal/database"
	"gradschool/internal/models"
	"gradschool/internal/rates"
	"gradschool/internal/repository"
)

// RateService exposes the honorarium rate table
type RateService struct {
	db       *sql.DB
	rates    *repository.PaymentRateRepository
	resolver *rates.Resolver
}

// NewRateService creates a new rate service
func NewRateService(db *sql.DB, repo *repository.PaymentRateRepository, resolver *rates.Resolver) *RateService {
	return &RateService{db: db, rates: repo, resolver: resolver}
}

// List returns every configured rate
func (s *RateService) List(ctx context.Context) ([]models.PaymentRate, error) {
	return s.rates.List(ctx)
}

// Resolve returns the rates that apply to a program and defense type
func (s *RateService) Resolve(ctx context.Context, program, defenseType string) (*rates.Resolution, error) {
	return s.resolver.Resolve(ctx, program, defenseType)
}

// Import upserts all rates of a YAML rate file in one transaction
func (s *RateService) Import(ctx context.Context, r io.Reader) (int, error) {
	parsed, err := rates.LoadSeed(r)
	if err != nil {
		return 0, err
	}
	return s.store(ctx, parsed)
}

func (s *RateService) store(ctx context.Context, list []models.PaymentRate) (int, error) {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.rates.WithTx(tx)
		for i := range list {
			if err := repo.Upsert(ctx, &list[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// SeedIfEmpty loads seedFile, or the built-in table when seedFile is empty, into an
// empty rate table. An existing table is never touched.
func (s *RateService) SeedIfEmpty(ctx context.Context, seedFile string) (int, error) {
	n, err := s.rates.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	list := rates.DefaultRates()
	if seedFile != "" {
		f, err := os.Open(seedFile)
		if err != nil {
			return 0, fmt.Errorf("failed to open rate seed file: %w", err)
		}
		defer f.Close()

		list, err = rates.LoadSeed(f)
		if err != nil {
			return 0, err
		}
	}

	stored, err := s.store(ctx, list)
	if err != nil {
		return 0, err
	}
	slog.Info("Payment rates seeded", "rates", stored, "source", seedSource(seedFile))
	return stored, nil
}

func seedSource(seedFile string) string {
	if seedFile == "" {
		return "embedded"
	}
	return seedFile
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gradschool/internal/models"
)

// PaymentRateRepository reads and seeds the honorarium rate table
type PaymentRateRepository struct {
	db DBTX
}

// NewPaymentRateRepository creates a new payment rate repository
func NewPaymentRateRepository(db DBTX) *PaymentRateRepository {
	return &PaymentRateRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *PaymentRateRepository) WithTx(tx *sql.Tx) *PaymentRateRepository {
	return &PaymentRateRepository{db: tx}
}

// RatesFor returns every rate row for a level and defense type
func (r *PaymentRateRepository) RatesFor(ctx context.Context, level models.ProgramLevel, defenseType models.DefenseType) ([]models.PaymentRate, error) {
	query := `
		SELECT id, program_level, defense_type, role, amount
		FROM payment_rates
		WHERE program_level = $1 AND defense_type = $2
	`
	rows, err := r.db.QueryContext(ctx, query, level, defenseType)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment rates: %w", err)
	}
	defer closeRows(rows)
	return scanRates(rows)
}

// List returns the whole rate table
func (r *PaymentRateRepository) List(ctx context.Context) ([]models.PaymentRate, error) {
	query := `
		SELECT id, program_level, defense_type, role, amount
		FROM payment_rates
		ORDER BY program_level, defense_type, role
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment rates: %w", err)
	}
	defer closeRows(rows)
	return scanRates(rows)
}

func scanRates(rows *sql.Rows) ([]models.PaymentRate, error) {
	var rates []models.PaymentRate
	for rows.Next() {
		var rate models.PaymentRate
		if err := rows.Scan(&rate.ID, &rate.ProgramLevel, &rate.DefenseType, &rate.Role, &rate.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan payment rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

// Upsert inserts a rate or replaces the amount of an existing one
func (r *PaymentRateRepository) Upsert(ctx context.Context, rate *models.PaymentRate) error {
	query := `
		INSERT INTO payment_rates (program_level, defense_type, role, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (program_level, defense_type, role)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, rate.ProgramLevel, rate.DefenseType, rate.Role, rate.Amount, time.Now()).Scan(&rate.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert payment rate: %w", err)
	}
	return nil
}

// Count returns the number of rate rows
func (r *PaymentRateRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payment_rates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count payment rates: %w", err)
	}
	return n, nil
}

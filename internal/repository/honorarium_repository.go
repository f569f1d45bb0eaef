package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gradschool/internal/models"
)

// HonorariumRepository handles honorarium payment rows
type HonorariumRepository struct {
	db DBTX
}

// NewHonorariumRepository creates a new honorarium repository
func NewHonorariumRepository(db DBTX) *HonorariumRepository {
	return &HonorariumRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *HonorariumRepository) WithTx(tx *sql.Tx) *HonorariumRepository {
	return &HonorariumRepository{db: tx}
}

// Create inserts one payment per role slot. It reports false when the slot
// already has a payment, leaving the existing row untouched.
func (r *HonorariumRepository) Create(ctx context.Context, p *models.HonorariumPayment) (bool, error) {
	query := `
		INSERT INTO honorarium_payments (defense_request_id, panelist_id, panelist_name, role, amount, payment_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (defense_request_id, role) DO NOTHING
		RETURNING id
	`
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		p.DefenseRequestID,
		p.PanelistID,
		p.PanelistName,
		p.Role,
		p.Amount,
		p.PaymentDate,
		now,
	).Scan(&p.ID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create honorarium payment: %w", err)
	}

	p.CreatedAt = now
	return true, nil
}

// ListByDefenseRequest returns the payments of a request in committee seat order
func (r *HonorariumRepository) ListByDefenseRequest(ctx context.Context, defenseRequestID int64) ([]models.HonorariumPayment, error) {
	query := `
		SELECT id, defense_request_id, panelist_id, panelist_name, role, amount, payment_date, created_at
		FROM honorarium_payments
		WHERE defense_request_id = $1
		ORDER BY CASE role
			WHEN 'Adviser' THEN 0
			WHEN 'Panel Chair' THEN 1
			WHEN 'Panel Member 1' THEN 2
			WHEN 'Panel Member 2' THEN 3
			WHEN 'Panel Member 3' THEN 4
			WHEN 'Panel Member 4' THEN 5
			ELSE 6
		END, id
	`
	rows, err := r.db.QueryContext(ctx, query, defenseRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list honorarium payments: %w", err)
	}
	defer closeRows(rows)

	var payments []models.HonorariumPayment
	for rows.Next() {
		var p models.HonorariumPayment
		if err := rows.Scan(&p.ID, &p.DefenseRequestID, &p.PanelistID, &p.PanelistName, &p.Role, &p.Amount, &p.PaymentDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan honorarium payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Count returns the number of payments of a request
func (r *HonorariumRepository) Count(ctx context.Context, defenseRequestID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM honorarium_payments WHERE defense_request_id = $1`, defenseRequestID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count honorarium payments: %w", err)
	}
	return n, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gradschool/internal/models"
)

// AAVerificationRepository handles AA payment verification rows
type AAVerificationRepository struct {
	db DBTX
}

// NewAAVerificationRepository creates a new AA verification repository
func NewAAVerificationRepository(db DBTX) *AAVerificationRepository {
	return &AAVerificationRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *AAVerificationRepository) WithTx(tx *sql.Tx) *AAVerificationRepository {
	return &AAVerificationRepository{db: tx}
}

// EnsureExists creates the pending verification row for a request if it is missing
func (r *AAVerificationRepository) EnsureExists(ctx context.Context, defenseRequestID int64) error {
	query := `
		INSERT INTO aa_payment_verifications (defense_request_id, status)
		VALUES ($1, 'pending')
		ON CONFLICT (defense_request_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, defenseRequestID); err != nil {
		return fmt.Errorf("failed to ensure AA verification: %w", err)
	}
	return nil
}

const aaVerificationColumns = `id, defense_request_id, status, updated_by_user_id, created_at, updated_at`

func scanAAVerification(row *sql.Row) (*models.AAVerification, error) {
	v := &models.AAVerification{}
	err := row.Scan(&v.ID, &v.DefenseRequestID, &v.Status, &v.UpdatedByUserID, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetByDefenseRequest retrieves the verification of a request
func (r *AAVerificationRepository) GetByDefenseRequest(ctx context.Context, defenseRequestID int64) (*models.AAVerification, error) {
	query := `SELECT ` + aaVerificationColumns + ` FROM aa_payment_verifications WHERE defense_request_id = $1`
	v, err := scanAAVerification(r.db.QueryRowContext(ctx, query, defenseRequestID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get AA verification: %w", err)
	}
	return v, err
}

// GetForUpdate retrieves the verification of a request and locks it
func (r *AAVerificationRepository) GetForUpdate(ctx context.Context, defenseRequestID int64) (*models.AAVerification, error) {
	query := `SELECT ` + aaVerificationColumns + ` FROM aa_payment_verifications WHERE defense_request_id = $1 FOR UPDATE`
	v, err := scanAAVerification(r.db.QueryRowContext(ctx, query, defenseRequestID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to lock AA verification: %w", err)
	}
	return v, err
}

// UpdateStatus writes a new status. The caller holds the row lock.
func (r *AAVerificationRepository) UpdateStatus(ctx context.Context, v *models.AAVerification) error {
	query := `
		UPDATE aa_payment_verifications
		SET status = $1, updated_by_user_id = $2, updated_at = $3
		WHERE id = $4
	`
	now := time.Now()
	if _, err := r.db.ExecContext(ctx, query, v.Status, v.UpdatedByUserID, now, v.ID); err != nil {
		return fmt.Errorf("failed to update AA verification: %w", err)
	}
	v.UpdatedAt = now
	return nil
}

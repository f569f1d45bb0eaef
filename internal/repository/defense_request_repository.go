package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gradschool/internal/models"
)

const defenseRequestColumns = `
	id, student_name, school_id, student_email, program, thesis_title,
	workflow_state, adviser_status, coordinator_status, defense_type, defense_mode,
	scheduled_date, COALESCE(scheduled_time, ''), adviser_name, adviser_user_id, coordinator_user_id,
	defense_chairperson, defense_panelist1, defense_panelist2, defense_panelist3, defense_panelist4,
	amount, payment_date, or_number, revision_reason, created_at, updated_at`

// DefenseRequestRepository handles defense request database operations
type DefenseRequestRepository struct {
	db DBTX
}

// NewDefenseRequestRepository creates a new defense request repository
func NewDefenseRequestRepository(db DBTX) *DefenseRequestRepository {
	return &DefenseRequestRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *DefenseRequestRepository) WithTx(tx *sql.Tx) *DefenseRequestRepository {
	return &DefenseRequestRepository{db: tx}
}

func scanDefenseRequest(row interface{ Scan(...any) error }) (*models.DefenseRequest, error) {
	req := &models.DefenseRequest{}
	err := row.Scan(
		&req.ID,
		&req.StudentName,
		&req.SchoolID,
		&req.StudentEmail,
		&req.Program,
		&req.ThesisTitle,
		&req.WorkflowState,
		&req.AdviserStatus,
		&req.CoordinatorStatus,
		&req.DefenseType,
		&req.DefenseMode,
		&req.ScheduledDate,
		&req.ScheduledTime,
		&req.AdviserName,
		&req.AdviserUserID,
		&req.CoordinatorUserID,
		&req.DefenseChairperson,
		&req.DefensePanelist1,
		&req.DefensePanelist2,
		&req.DefensePanelist3,
		&req.DefensePanelist4,
		&req.Amount,
		&req.PaymentDate,
		&req.ORNumber,
		&req.RevisionReason,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Create inserts a new defense request
func (r *DefenseRequestRepository) Create(ctx context.Context, req *models.DefenseRequest) error {
	query := `
		INSERT INTO defense_requests (
			student_name, school_id, student_email, program, thesis_title,
			workflow_state, adviser_status, coordinator_status, defense_type, defense_mode,
			scheduled_date, scheduled_time, adviser_name, adviser_user_id,
			defense_chairperson, defense_panelist1, defense_panelist2, defense_panelist3, defense_panelist4,
			amount, payment_date, or_number, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $23)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		req.StudentName,
		req.SchoolID,
		req.StudentEmail,
		req.Program,
		req.ThesisTitle,
		req.WorkflowState,
		req.AdviserStatus,
		req.CoordinatorStatus,
		req.DefenseType,
		req.DefenseMode,
		req.ScheduledDate,
		nullString(req.ScheduledTime),
		req.AdviserName,
		req.AdviserUserID,
		req.DefenseChairperson,
		req.DefensePanelist1,
		req.DefensePanelist2,
		req.DefensePanelist3,
		req.DefensePanelist4,
		req.Amount,
		req.PaymentDate,
		req.ORNumber,
		now,
	).Scan(&req.ID)
	if err != nil {
		return fmt.Errorf("failed to create defense request: %w", err)
	}

	req.CreatedAt = now
	req.UpdatedAt = now
	return nil
}

// GetByID retrieves a defense request by ID
func (r *DefenseRequestRepository) GetByID(ctx context.Context, id int64) (*models.DefenseRequest, error) {
	query := `SELECT ` + defenseRequestColumns + ` FROM defense_requests WHERE id = $1`

	req, err := scanDefenseRequest(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get defense request: %w", err)
	}
	return req, nil
}

// GetForUpdate retrieves a defense request and locks its row until the transaction ends
func (r *DefenseRequestRepository) GetForUpdate(ctx context.Context, id int64) (*models.DefenseRequest, error) {
	query := `SELECT ` + defenseRequestColumns + ` FROM defense_requests WHERE id = $1 FOR UPDATE`

	req, err := scanDefenseRequest(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock defense request: %w", err)
	}
	return req, nil
}

// UpdateWorkflow persists the fields a transition or an amendment can change
func (r *DefenseRequestRepository) UpdateWorkflow(ctx context.Context, req *models.DefenseRequest) error {
	query := `
		UPDATE defense_requests
		SET workflow_state = $1, adviser_status = $2, coordinator_status = $3,
		    coordinator_user_id = $4, scheduled_date = $5, scheduled_time = $6,
		    defense_mode = $7, revision_reason = $8,
		    program = $9, thesis_title = $10, defense_type = $11,
		    defense_chairperson = $12, defense_panelist1 = $13, defense_panelist2 = $14,
		    defense_panelist3 = $15, defense_panelist4 = $16, amount = $17,
		    updated_at = $18
		WHERE id = $19
	`

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		req.WorkflowState,
		req.AdviserStatus,
		req.CoordinatorStatus,
		req.CoordinatorUserID,
		req.ScheduledDate,
		nullString(req.ScheduledTime),
		req.DefenseMode,
		req.RevisionReason,
		req.Program,
		req.ThesisTitle,
		req.DefenseType,
		req.DefenseChairperson,
		req.DefensePanelist1,
		req.DefensePanelist2,
		req.DefensePanelist3,
		req.DefensePanelist4,
		req.Amount,
		now,
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update defense request workflow: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	req.UpdatedAt = now
	return nil
}

// UpdateAmount stores the cached honorarium total
func (r *DefenseRequestRepository) UpdateAmount(ctx context.Context, id int64, amount models.Centavos) error {
	query := `UPDATE defense_requests SET amount = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, amount, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update defense request amount: %w", err)
	}
	return nil
}

// ListAwaitingSync returns completed requests with honoraria whose projection is
// missing or carries an AA status older than the current verification
func (r *DefenseRequestRepository) ListAwaitingSync(ctx context.Context, limit int) ([]int64, error) {
	query := `
		SELECT dr.id
		FROM defense_requests dr
		WHERE dr.workflow_state = 'completed'
		  AND EXISTS (SELECT 1 FROM honorarium_payments hp WHERE hp.defense_request_id = dr.id)
		  AND (
		    NOT EXISTS (SELECT 1 FROM student_records sr WHERE sr.defense_request_id = dr.id)
		    OR EXISTS (
		      SELECT 1
		      FROM payment_records pr
		      JOIN aa_payment_verifications aa ON aa.defense_request_id = pr.defense_request_id
		      WHERE pr.defense_request_id = dr.id
		        AND pr.defense_status IS DISTINCT FROM aa.status
		    )
		  )
		ORDER BY dr.updated_at
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list defense requests awaiting sync: %w", err)
	}
	defer closeRows(rows)

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan defense request id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

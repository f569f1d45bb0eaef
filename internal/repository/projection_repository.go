package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gradschool/internal/models"
)

// ProjectionRepository writes and reads the normalized reporting tables.
// All writes are upserts on natural keys so a sync can be repeated safely.
type ProjectionRepository struct {
	db DBTX
}

// NewProjectionRepository creates a new projection repository
func NewProjectionRepository(db DBTX) *ProjectionRepository {
	return &ProjectionRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ProjectionRepository) WithTx(tx *sql.Tx) *ProjectionRepository {
	return &ProjectionRepository{db: tx}
}

// UpsertProgram finds or creates the program record by name. The category and
// level of an existing record are kept; rec is filled with the stored values.
func (r *ProjectionRepository) UpsertProgram(ctx context.Context, rec *models.ProgramRecord) error {
	query := `
		INSERT INTO program_records (name, category, program_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (name) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id, category, program_level, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, rec.Name, rec.Category, rec.Level, time.Now()).
		Scan(&rec.ID, &rec.Category, &rec.Level, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert program record: %w", err)
	}
	return nil
}

// SetProgramLevel overrides the stored level of a program, creating the record if needed
func (r *ProjectionRepository) SetProgramLevel(ctx context.Context, name string, level models.ProgramLevel) error {
	query := `
		INSERT INTO program_records (name, category, program_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (name) DO UPDATE
		SET category = EXCLUDED.category, program_level = EXCLUDED.program_level, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, name, level.Category(), level, time.Now()); err != nil {
		return fmt.Errorf("failed to set program level: %w", err)
	}
	return nil
}

// ProgramLevel returns the stored level of a program, if a record exists
func (r *ProjectionRepository) ProgramLevel(ctx context.Context, program string) (models.ProgramLevel, bool, error) {
	var level models.ProgramLevel
	err := r.db.QueryRowContext(ctx, `SELECT program_level FROM program_records WHERE name = $1`, program).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get program level: %w", err)
	}
	return level, true, nil
}

// UpsertStudent creates or refreshes the student record of a defense request
func (r *ProjectionRepository) UpsertStudent(ctx context.Context, rec *models.StudentRecord) error {
	query := `
		INSERT INTO student_records (
			student_id, defense_request_id, program_record_id, name, thesis_title,
			defense_date, defense_type, or_number, payment_date, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (defense_request_id) DO UPDATE SET
			student_id = EXCLUDED.student_id,
			program_record_id = EXCLUDED.program_record_id,
			name = EXCLUDED.name,
			thesis_title = EXCLUDED.thesis_title,
			defense_date = EXCLUDED.defense_date,
			defense_type = EXCLUDED.defense_type,
			or_number = EXCLUDED.or_number,
			payment_date = EXCLUDED.payment_date,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.StudentID,
		rec.DefenseRequestID,
		rec.ProgramRecordID,
		rec.Name,
		rec.ThesisTitle,
		rec.DefenseDate,
		rec.DefenseType,
		rec.ORNumber,
		rec.PaymentDate,
		time.Now(),
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert student record: %w", err)
	}
	return nil
}

// UpsertPanelist finds or creates a panelist record scoped to a program. Names
// match case-insensitively and the first spelling stored is kept.
func (r *ProjectionRepository) UpsertPanelist(ctx context.Context, rec *models.PanelistRecord) error {
	query := `
		INSERT INTO panelist_records (program_record_id, name, source_panelist_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (program_record_id, LOWER(name)) DO UPDATE SET
			source_panelist_id = COALESCE(EXCLUDED.source_panelist_id, panelist_records.source_panelist_id),
			updated_at = EXCLUDED.updated_at
		RETURNING id, name, source_panelist_id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, rec.ProgramRecordID, rec.Name, rec.SourcePanelistID, time.Now()).
		Scan(&rec.ID, &rec.Name, &rec.SourcePanelistID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert panelist record: %w", err)
	}
	return nil
}

// UpsertAssignment links a panelist record to a student record with the role held
func (r *ProjectionRepository) UpsertAssignment(ctx context.Context, a models.PanelistAssignment) error {
	query := `
		INSERT INTO panelist_student_records (panelist_record_id, student_record_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (panelist_record_id, student_record_id) DO UPDATE SET
			role = EXCLUDED.role,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, a.PanelistRecordID, a.StudentRecordID, a.Role, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert panelist assignment: %w", err)
	}
	return nil
}

// UpsertPayment creates or refreshes the payment of one panelist for one defense
func (r *ProjectionRepository) UpsertPayment(ctx context.Context, rec *models.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (
			student_record_id, panelist_record_id, defense_request_id,
			amount, payment_date, defense_status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (student_record_id, panelist_record_id, defense_request_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			payment_date = EXCLUDED.payment_date,
			defense_status = EXCLUDED.defense_status,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.StudentRecordID,
		rec.PanelistRecordID,
		rec.DefenseRequestID,
		rec.Amount,
		rec.PaymentDate,
		rec.DefenseStatus,
		time.Now(),
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert payment record: %w", err)
	}
	return nil
}

// ProjectionCounts is the number of projection rows linked to one defense request
type ProjectionCounts struct {
	Students    int
	Panelists   int
	Assignments int
	Payments    int
}

// CountsFor returns the projection row counts of a defense request
func (r *ProjectionRepository) CountsFor(ctx context.Context, defenseRequestID int64) (ProjectionCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM student_records WHERE defense_request_id = $1),
			(SELECT COUNT(DISTINCT pr.panelist_record_id) FROM payment_records pr WHERE pr.defense_request_id = $1),
			(SELECT COUNT(*) FROM panelist_student_records psr
				JOIN student_records sr ON sr.id = psr.student_record_id
				WHERE sr.defense_request_id = $1),
			(SELECT COUNT(*) FROM payment_records WHERE defense_request_id = $1)
	`
	var c ProjectionCounts
	if err := r.db.QueryRowContext(ctx, query, defenseRequestID).Scan(&c.Students, &c.Panelists, &c.Assignments, &c.Payments); err != nil {
		return c, fmt.Errorf("failed to count projection rows: %w", err)
	}
	return c, nil
}

// ListPayments returns the payment records of a defense request
func (r *ProjectionRepository) ListPayments(ctx context.Context, defenseRequestID int64) ([]models.PaymentRecord, error) {
	query := `
		SELECT id, student_record_id, panelist_record_id, defense_request_id, amount, payment_date, defense_status, created_at, updated_at
		FROM payment_records
		WHERE defense_request_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, defenseRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment records: %w", err)
	}
	defer closeRows(rows)

	var records []models.PaymentRecord
	for rows.Next() {
		var p models.PaymentRecord
		if err := rows.Scan(&p.ID, &p.StudentRecordID, &p.PanelistRecordID, &p.DefenseRequestID,
			&p.Amount, &p.PaymentDate, &p.DefenseStatus, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment record: %w", err)
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

// HonorariumReport returns the flattened report rows, optionally limited to one program
func (r *ProjectionRepository) HonorariumReport(ctx context.Context, program string) ([]models.HonorariumReportRow, error) {
	query := `
		SELECT prg.name, prg.category, sr.student_id, sr.name, sr.defense_type, sr.defense_date,
		       pnl.name, COALESCE(psr.role, ''), pay.amount, pay.payment_date, sr.or_number
		FROM payment_records pay
		JOIN student_records sr ON sr.id = pay.student_record_id
		JOIN program_records prg ON prg.id = sr.program_record_id
		JOIN panelist_records pnl ON pnl.id = pay.panelist_record_id
		LEFT JOIN panelist_student_records psr
		       ON psr.panelist_record_id = pay.panelist_record_id AND psr.student_record_id = pay.student_record_id
		WHERE ($1 = '' OR prg.name = $1)
		ORDER BY prg.name, sr.name, sr.defense_request_id, pay.id
	`
	rows, err := r.db.QueryContext(ctx, query, program)
	if err != nil {
		return nil, fmt.Errorf("failed to query honorarium report: %w", err)
	}
	defer closeRows(rows)

	var report []models.HonorariumReportRow
	for rows.Next() {
		var row models.HonorariumReportRow
		if err := rows.Scan(
			&row.Program,
			&row.Category,
			&row.StudentID,
			&row.StudentName,
			&row.DefenseType,
			&row.DefenseDate,
			&row.Panelist,
			&row.Role,
			&row.Amount,
			&row.PaymentDate,
			&row.ORNumber,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		report = append(report, row)
	}
	return report, rows.Err()
}

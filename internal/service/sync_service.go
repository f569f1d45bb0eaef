package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"gradschool/internal/database"
	"gradschool/internal/metrics"
	"gradschool/internal/models"
	"gradschool/internal/rates"
	"gradschool/internal/repository"
)

// SyncResult summarizes one sync run
type SyncResult struct {
	RunID            uuid.UUID     `json:"run_id"`
	DefenseRequestID int64         `json:"defense_request_id"`
	ProgramRecordID  int64         `json:"program_record_id"`
	StudentRecordID  int64         `json:"student_record_id"`
	Panelists        int           `json:"panelists"`
	Payments         int           `json:"payments"`
	Orphans          []string      `json:"orphans,omitempty"`
	Duration         time.Duration `json:"duration"`
}

// SweepResult summarizes one retry sweep
type SweepResult struct {
	Attempted int `json:"attempted"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
}

// SyncService projects completed defenses into the reporting tables
type SyncService struct {
	db         *sql.DB
	requests   *repository.DefenseRequestRepository
	honoraria  *repository.HonorariumRepository
	panelists  *repository.PanelistRepository
	aa         *repository.AAVerificationRepository
	projection *repository.ProjectionRepository
	metrics    *metrics.Metrics
}

// NewSyncService creates a new sync service
func NewSyncService(
	db *sql.DB,
	requests *repository.DefenseRequestRepository,
	honoraria *repository.HonorariumRepository,
	panelists *repository.PanelistRepository,
	aa *repository.AAVerificationRepository,
	projection *repository.ProjectionRepository,
	m *metrics.Metrics,
) *SyncService {
	return &SyncService{
		db:         db,
		requests:   requests,
		honoraria:  honoraria,
		panelists:  panelists,
		aa:         aa,
		projection: projection,
		metrics:    m,
	}
}

// payee is one person paid for one defense, whatever number of seats they hold
type payee struct {
	name       string
	panelistID *int64
	role       models.CommitteeRole
	amount     models.Centavos
	date       time.Time
}

// groupPayees merges honoraria of the same person. The first seat (in committee
// order) gives the role and payment date; amounts are summed.
func groupPayees(honoraria []models.HonorariumPayment) []*payee {
	var order []*payee
	byName := make(map[string]*payee)

	for _, h := range honoraria {
		name := strings.TrimSpace(h.PanelistName)
		key := strings.ToLower(name)
		if p, ok := byName[key]; ok {
			p.amount += h.Amount
			if p.panelistID == nil && h.PanelistID != nil {
				p.panelistID = h.PanelistID
			}
			continue
		}
		p := &payee{name: name, panelistID: h.PanelistID, role: h.Role, amount: h.Amount, date: h.PaymentDate}
		byName[key] = p
		order = append(order, p)
	}

	return order
}

// SyncDefenseRequest upserts the program, student, panelist, assignment and payment
// records of a completed defense in one transaction. Running it again refreshes the
// same rows; it never creates duplicates.
func (s *SyncService) SyncDefenseRequest(ctx context.Context, id int64) (*SyncResult, error) {
	start := time.Now()
	result := &SyncResult{RunID: uuid.New(), DefenseRequestID: id}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		req, err := s.requests.WithTx(tx).GetForUpdate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if req.WorkflowState != models.StateCompleted {
			return ErrSyncNotReady
		}

		honoraria, err := s.honoraria.WithTx(tx).ListByDefenseRequest(ctx, id)
		if err != nil {
			return err
		}
		if len(honoraria) == 0 {
			return ErrSyncNotReady
		}

		projection := s.projection.WithTx(tx)

		level := rates.ProgramLevelFor(req.Program)
		program := &models.ProgramRecord{Name: req.Program, Category: level.Category(), Level: level}
		if err := projection.UpsertProgram(ctx, program); err != nil {
			return err
		}
		result.ProgramRecordID = program.ID

		student := &models.StudentRecord{
			StudentID:        req.SchoolID,
			DefenseRequestID: req.ID,
			ProgramRecordID:  program.ID,
			Name:             req.StudentName,
			ThesisTitle:      req.ThesisTitle,
			DefenseDate:      req.ScheduledDate,
			DefenseType:      req.DefenseType,
			ORNumber:         req.ORNumber,
			PaymentDate:      req.PaymentDate,
		}
		if err := projection.UpsertStudent(ctx, student); err != nil {
			return err
		}
		result.StudentRecordID = student.ID

		status := string(models.StateCompleted)
		if v, err := s.aa.WithTx(tx).GetByDefenseRequest(ctx, id); err == nil {
			status = string(v.Status)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		panelists := s.panelists.WithTx(tx)
		for _, p := range groupPayees(honoraria) {
			sourceID, orphan, err := s.checkOrphan(ctx, panelists, req.ID, p)
			if err != nil {
				return err
			}
			if orphan {
				result.Orphans = append(result.Orphans, p.name)
			}

			rec := &models.PanelistRecord{ProgramRecordID: program.ID, Name: p.name, SourcePanelistID: sourceID}
			if err := projection.UpsertPanelist(ctx, rec); err != nil {
				return err
			}

			assignment := models.PanelistAssignment{PanelistRecordID: rec.ID, StudentRecordID: student.ID, Role: p.role}
			if err := projection.UpsertAssignment(ctx, assignment); err != nil {
				return err
			}

			payment := &models.PaymentRecord{
				StudentRecordID:  student.ID,
				PanelistRecordID: rec.ID,
				DefenseRequestID: req.ID,
				Amount:           p.amount,
				PaymentDate:      p.date,
				DefenseStatus:    status,
			}
			if err := projection.UpsertPayment(ctx, payment); err != nil {
				return err
			}

			result.Panelists++
			result.Payments++
		}

		return nil
	})

	result.Duration = time.Since(start)

	switch {
	case err == nil:
		s.metrics.SyncRun("ok", result.Duration)
		slog.Info("Student records synced",
			"run_id", result.RunID.String(),
			"defense_request_id", id,
			"student_record_id", result.StudentRecordID,
			"payments", result.Payments,
			"orphans", len(result.Orphans),
			"duration", result.Duration.String(),
		)
		return result, nil
	case errors.Is(err, ErrSyncNotReady), errors.Is(err, ErrNotFound):
		s.metrics.SyncRun("not_ready", result.Duration)
		return nil, err
	default:
		s.metrics.SyncRun("error", result.Duration)
		return nil, &SyncTransactionError{DefenseRequestID: id, Err: err}
	}
}

// checkOrphan verifies that the payee is still in the panelist directory. Orphans
// are reported and synced under their snapshot name without a source id.
func (s *SyncService) checkOrphan(ctx context.Context, panelists *repository.PanelistRepository, defenseRequestID int64, p *payee) (*int64, bool, error) {
	if p.panelistID == nil {
		slog.Warn("Orphan panelist: honorarium has no directory entry",
			"defense_request_id", defenseRequestID,
			"name", p.name,
		)
		s.metrics.OrphanPanelist()
		return nil, true, nil
	}

	exists, err := panelists.Exists(ctx, *p.panelistID)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		slog.Warn("Orphan panelist: directory entry was removed",
			"defense_request_id", defenseRequestID,
			"panelist_id", *p.panelistID,
			"name", p.name,
		)
		s.metrics.OrphanPanelist()
		return nil, true, nil
	}

	return p.panelistID, false, nil
}

// SyncIfReady runs the sync after a committed transition. A request that is not
// ready yet is skipped; failures are logged and left for the sweeper.
func (s *SyncService) SyncIfReady(ctx context.Context, id int64) {
	if s == nil {
		return
	}
	_, err := s.SyncDefenseRequest(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncNotReady):
		slog.Debug("Skipping student record sync", "defense_request_id", id, "reason", err.Error())
	default:
		slog.Error("Student record sync failed", "defense_request_id", id, "error", err)
	}
}

// SweepPending retries the sync for completed requests that have honoraria but
// no student record, or whose payment records lag behind the AA status
func (s *SyncService) SweepPending(ctx context.Context, limit int) (SweepResult, error) {
	var result SweepResult

	ids, err := s.requests.ListAwaitingSync(ctx, limit)
	if err != nil {
		return result, err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Attempted++
		if _, err := s.SyncDefenseRequest(ctx, id); err != nil {
			result.Failed++
			slog.Error("Sweep sync failed", "defense_request_id", id, "error", err)
			continue
		}
		result.Synced++
	}

	if result.Attempted > 0 {
		slog.Info("Sync sweep finished", "attempted", result.Attempted, "synced", result.Synced, "failed", result.Failed)
	}
	return result, nil
}

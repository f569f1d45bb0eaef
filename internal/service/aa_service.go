package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"gradschool/internal/database"
	"gradschool/internal/metrics"
	"gradschool/internal/models"
	"gradschool/internal/notify"
	"gradschool/internal/repository"
	"gradschool/internal/workflow"
)

// AAResult is the outcome of an AA verification update
type AAResult struct {
	Verification *models.AAVerification     `json:"verification"`
	Noop         bool                       `json:"noop"`
	Honoraria    []models.HonorariumPayment `json:"honoraria,omitempty"`
}

// AAService handles the administrative assistant's payment verification
type AAService struct {
	db        *sql.DB
	requests  *repository.DefenseRequestRepository
	aa        *repository.AAVerificationRepository
	honoraria *HonorariumService
	notifier  *Notifier
	sync      *SyncService
	metrics   *metrics.Metrics
}

// NewAAService creates a new AA verification service
func NewAAService(
	db *sql.DB,
	requests *repository.DefenseRequestRepository,
	aa *repository.AAVerificationRepository,
	honoraria *HonorariumService,
	notifier *Notifier,
	sync *SyncService,
	m *metrics.Metrics,
) *AAService {
	return &AAService{
		db:        db,
		requests:  requests,
		aa:        aa,
		honoraria: honoraria,
		notifier:  notifier,
		sync:      sync,
		metrics:   m,
	}
}

// Get returns the verification of a defense request
func (s *AAService) Get(ctx context.Context, defenseRequestID int64) (*models.AAVerification, error) {
	v, err := s.aa.GetByDefenseRequest(ctx, defenseRequestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

// UpdateStatus changes the AA verification status of a defense request.
//
// The verification row is locked and compared with the requested status. Repeating
// the stored status changes nothing. The first move into ready_for_finance creates
// the honorarium payments in the same transaction, so a missing rate leaves the
// status unchanged.
func (s *AAService) UpdateStatus(ctx context.Context, defenseRequestID int64, status models.AAStatus, actor Actor) (*AAResult, error) {
	if !actor.is(models.UserRoleAA, models.UserRoleAdmin) {
		return nil, ErrForbidden
	}

	var (
		out    workflow.AAOutcome
		req    *models.DefenseRequest
		result = &AAResult{}
	)

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		req, err = s.requests.WithTx(tx).GetByID(ctx, defenseRequestID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		aa := s.aa.WithTx(tx)
		if err := aa.EnsureExists(ctx, defenseRequestID); err != nil {
			return err
		}
		v, err := aa.GetForUpdate(ctx, defenseRequestID)
		if err != nil {
			return err
		}

		out, err = workflow.ApplyAAStatus(v.Status, status)
		if err != nil {
			return err
		}
		result.Verification = v
		if out.Noop {
			result.Noop = true
			return nil
		}

		if out.Has(workflow.EffectMaterializeHonoraria) {
			payments, err := s.honoraria.Materialize(ctx, tx, req)
			if err != nil {
				return err
			}
			result.Honoraria = payments
		}

		v.Status = out.To
		v.UpdatedByUserID = actor.userID()
		return aa.UpdateStatus(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	if result.Noop {
		slog.Debug("AA status unchanged", "defense_request_id", defenseRequestID, "status", string(status))
		return result, nil
	}

	s.metrics.AAStatusChanged(string(out.To))
	slog.Info("AA verification status changed",
		"defense_request_id", defenseRequestID,
		"from", string(out.From),
		"to", string(out.To),
		"honoraria", len(result.Honoraria),
	)

	s.notifier.Emit(ctx, *req, out.Effects, func(e *notify.Event) {
		e.AAStatus = out.To
		e.Honoraria = result.Honoraria
	})
	if out.Has(workflow.EffectSyncRecords) {
		s.sync.SyncIfReady(ctx, defenseRequestID)
	}

	return result, nil
}

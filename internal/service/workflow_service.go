package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gradschool/internal/database"
	"gradschool/internal/metrics"
	"gradschool/internal/models"
	"gradschool/internal/notify"
	"gradschool/internal/rates"
	"gradschool/internal/repository"
	"gradschool/internal/workflow"
)

// SubmitInput is a new defense request as filed by the student
type SubmitInput struct {
	StudentName        string
	SchoolID           string
	StudentEmail       string
	Program            string
	ThesisTitle        string
	DefenseType        string
	DefenseMode        string
	AdviserName        string
	AdviserUserID      *int64
	DefenseChairperson string
	DefensePanelists   []string
	PaymentDate        *time.Time
	ORNumber           string
}

// AdvanceInput names the target state and, when scheduling, the schedule
type AdvanceInput struct {
	To       models.WorkflowState
	Schedule workflow.ScheduleInput
}

// CommitteeInput replaces the chairperson and panel members of a request
type CommitteeInput struct {
	Chairperson string
	Panelists   []string
}

// RevisionInput carries the student's amendments on resubmission. Blank fields
// and a nil Committee keep the current values.
type RevisionInput struct {
	Program     string
	ThesisTitle string
	DefenseType string
	DefenseMode string
	Committee   *CommitteeInput
}

// WorkflowService drives defense requests through the approval workflow
type WorkflowService struct {
	db        *sql.DB
	requests  *repository.DefenseRequestRepository
	history   *repository.HistoryRepository
	users     *repository.UserRepository
	aa        *repository.AAVerificationRepository
	resolver  *rates.Resolver
	honoraria *HonorariumService
	panel     workflow.PanelChecker
	notifier  *Notifier
	sync      *SyncService
	metrics   *metrics.Metrics
}

// NewWorkflowService creates a new workflow service
func NewWorkflowService(
	db *sql.DB,
	requests *repository.DefenseRequestRepository,
	history *repository.HistoryRepository,
	users *repository.UserRepository,
	aa *repository.AAVerificationRepository,
	resolver *rates.Resolver,
	honoraria *HonorariumService,
	panel workflow.PanelChecker,
	notifier *Notifier,
	sync *SyncService,
	m *metrics.Metrics,
) *WorkflowService {
	return &WorkflowService{
		db:        db,
		requests:  requests,
		history:   history,
		users:     users,
		aa:        aa,
		resolver:  resolver,
		honoraria: honoraria,
		panel:     panel,
		notifier:  notifier,
		sync:      sync,
		metrics:   m,
	}
}

// Submit files a new defense request. When the adviser is a known user the
// request is routed to adviser review right away.
func (s *WorkflowService) Submit(ctx context.Context, in SubmitInput, actor Actor) (*models.DefenseRequest, error) {
	defenseType, err := rates.NormalizeDefenseType(in.DefenseType)
	if err != nil {
		return nil, err
	}

	req := &models.DefenseRequest{
		StudentName:        strings.TrimSpace(in.StudentName),
		SchoolID:           strings.TrimSpace(in.SchoolID),
		StudentEmail:       strings.TrimSpace(in.StudentEmail),
		Program:            strings.TrimSpace(in.Program),
		ThesisTitle:        strings.TrimSpace(in.ThesisTitle),
		WorkflowState:      models.StatePending,
		AdviserStatus:      models.ApprovalPending,
		CoordinatorStatus:  models.ApprovalPending,
		DefenseType:        defenseType,
		DefenseMode:        strings.TrimSpace(in.DefenseMode),
		AdviserName:        strings.TrimSpace(in.AdviserName),
		AdviserUserID:      in.AdviserUserID,
		PaymentDate:        in.PaymentDate,
		ORNumber:           strings.TrimSpace(in.ORNumber),
	}
	if err := workflow.SetCommittee(req, in.DefenseChairperson, in.DefensePanelists); err != nil {
		return nil, err
	}
	s.estimate(ctx, req)

	effects := []workflow.Effect{{Kind: workflow.EffectNotify, Event: models.EventSubmitted, Recipient: workflow.RecipientStudent}}
	var transitions [][2]models.WorkflowState

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		requests := s.requests.WithTx(tx)
		history := s.history.WithTx(tx)

		if err := requests.Create(ctx, req); err != nil {
			return err
		}
		if err := s.aa.WithTx(tx).EnsureExists(ctx, req.ID); err != nil {
			return err
		}
		if err := history.Append(ctx, &models.HistoryEntry{
			DefenseRequestID: req.ID,
			ToState:          models.StatePending,
			ActorUserID:      actor.userID(),
		}); err != nil {
			return err
		}

		if req.AdviserUserID == nil {
			return nil
		}

		out, err := workflow.Advance(*req, models.StateAdviserReview, workflow.Env{})
		if err != nil {
			return err
		}
		*req = out.Request
		if err := requests.UpdateWorkflow(ctx, req); err != nil {
			return err
		}
		if err := history.Append(ctx, &models.HistoryEntry{
			DefenseRequestID: req.ID,
			FromState:        out.From,
			ToState:          out.To,
			ActorUserID:      actor.userID(),
		}); err != nil {
			return err
		}
		effects = append(effects, out.Effects...)
		transitions = append(transitions, [2]models.WorkflowState{out.From, out.To})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, t := range transitions {
		s.metrics.Transition(string(t[0]), string(t[1]))
	}
	slog.Info("Defense request submitted", "defense_request_id", req.ID, "state", string(req.WorkflowState))
	s.notifier.Emit(ctx, *req, effects, nil)

	return req, nil
}

// estimate refreshes the cached honorarium total. A request whose rates cannot be
// resolved yet keeps a zero estimate.
func (s *WorkflowService) estimate(ctx context.Context, req *models.DefenseRequest) {
	if s.honoraria == nil {
		return
	}
	total, err := s.honoraria.Estimate(ctx, req)
	if err != nil {
		slog.Warn("Could not estimate honorarium total",
			"defense_request_id", req.ID,
			"program", req.Program,
			"defense_type", string(req.DefenseType),
			"error", err,
		)
	}
	req.Amount = total
}

// Get returns a defense request
func (s *WorkflowService) Get(ctx context.Context, id int64) (*models.DefenseRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return req, err
}

// History returns the recorded transitions of a request, oldest first
func (s *WorkflowService) History(ctx context.Context, id int64) ([]models.HistoryEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.history.ListByDefenseRequest(ctx, id)
}

// authorize checks that the actor may move req to target
func authorize(actor Actor, req *models.DefenseRequest, target models.WorkflowState) error {
	if actor.is(models.UserRoleAdmin) {
		return nil
	}

	isAdviser := actor.is(models.UserRoleAdviser) && req.AdviserUserID != nil && *req.AdviserUserID == actor.UserID
	isCoordinator := actor.is(models.UserRoleCoordinator) &&
		(req.CoordinatorUserID == nil || *req.CoordinatorUserID == actor.UserID)

	var ok bool
	switch target {
	case models.StateAdviserReview:
		ok = actor.is(models.UserRoleStudent, models.UserRoleCoordinator) || isAdviser
	case models.StateCoordinatorReview:
		ok = isAdviser
	case models.StateScheduled, models.StateCompleted:
		ok = isCoordinator
	case models.StateRevision:
		ok = isAdviser || isCoordinator
	case models.StatePending:
		ok = actor.is(models.UserRoleStudent)
	}

	if !ok {
		return fmt.Errorf("%w: %s cannot move request %d to %s", ErrForbidden, actor.Role, req.ID, target)
	}
	return nil
}

// transition locks the request, applies fn and records the result in one transaction.
// Notifications and the record sync run after commit.
func (s *WorkflowService) transition(ctx context.Context, id int64, actor Actor, reason string,
	fn func(ctx context.Context, req *models.DefenseRequest) (workflow.Outcome, error),
) (*models.DefenseRequest, error) {
	var out workflow.Outcome

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		requests := s.requests.WithTx(tx)

		req, err := requests.GetForUpdate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		out, err = fn(ctx, req)
		if err != nil {
			return err
		}

		if err := requests.UpdateWorkflow(ctx, &out.Request); err != nil {
			return err
		}
		return s.history.WithTx(tx).Append(ctx, &models.HistoryEntry{
			DefenseRequestID: id,
			FromState:        out.From,
			ToState:          out.To,
			ActorUserID:      actor.userID(),
			Reason:           reason,
		})
	})
	if err != nil {
		return nil, err
	}

	if out.From != out.To {
		s.metrics.Transition(string(out.From), string(out.To))
	}
	slog.Info("Defense request transitioned",
		"defense_request_id", id,
		"from", string(out.From),
		"to", string(out.To),
		"actor_user_id", actor.UserID,
	)

	s.notifier.Emit(ctx, out.Request, out.Effects, func(e *notify.Event) { e.Reason = reason })
	if out.Has(workflow.EffectSyncRecords) {
		s.sync.SyncIfReady(ctx, id)
	}

	req := out.Request
	return &req, nil
}

// Advance moves a request one step forward
func (s *WorkflowService) Advance(ctx context.Context, id int64, in AdvanceInput, actor Actor) (*models.DefenseRequest, error) {
	return s.transition(ctx, id, actor, "", func(ctx context.Context, req *models.DefenseRequest) (workflow.Outcome, error) {
		if err := authorize(actor, req, in.To); err != nil {
			return workflow.Outcome{}, err
		}

		env := workflow.Env{Panel: s.panel}

		switch in.To {
		case models.StateCoordinatorReview:
			if req.AdviserUserID != nil {
				coordinator, err := s.users.CoordinatorForAdviser(ctx, *req.AdviserUserID)
				if err != nil {
					return workflow.Outcome{}, err
				}
				env.CoordinatorID = coordinator
			}
		case models.StateScheduled:
			workflow.ApplySchedule(req, in.Schedule)
			level, err := s.resolver.Level(ctx, req.Program)
			if err != nil {
				return workflow.Outcome{}, err
			}
			env.Level = level
		}

		return workflow.Advance(*req, in.To, env)
	})
}

// Reject returns a request under review to the student for revision
func (s *WorkflowService) Reject(ctx context.Context, id int64, reason string, actor Actor) (*models.DefenseRequest, error) {
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, id, actor, reason, func(_ context.Context, req *models.DefenseRequest) (workflow.Outcome, error) {
		if err := authorize(actor, req, models.StateRevision); err != nil {
			return workflow.Outcome{}, err
		}
		return workflow.Reject(*req, reason)
	})
}

// Resubmit puts a revised request back into the workflow with the student's amendments
func (s *WorkflowService) Resubmit(ctx context.Context, id int64, in RevisionInput, actor Actor) (*models.DefenseRequest, error) {
	return s.transition(ctx, id, actor, "", func(ctx context.Context, req *models.DefenseRequest) (workflow.Outcome, error) {
		if err := authorize(actor, req, models.StatePending); err != nil {
			return workflow.Outcome{}, err
		}
		out, err := workflow.Resubmit(*req)
		if err != nil {
			return workflow.Outcome{}, err
		}
		if err := s.amend(ctx, &out.Request, in); err != nil {
			return workflow.Outcome{}, err
		}
		return out, nil
	})
}

func (s *WorkflowService) amend(ctx context.Context, req *models.DefenseRequest, in RevisionInput) error {
	if v := strings.TrimSpace(in.DefenseType); v != "" {
		defenseType, err := rates.NormalizeDefenseType(v)
		if err != nil {
			return err
		}
		req.DefenseType = defenseType
	}
	if v := strings.TrimSpace(in.Program); v != "" {
		req.Program = v
	}
	if v := strings.TrimSpace(in.ThesisTitle); v != "" {
		req.ThesisTitle = v
	}
	if v := strings.TrimSpace(in.DefenseMode); v != "" {
		req.DefenseMode = v
	}
	if in.Committee != nil {
		if err := workflow.SetCommittee(req, in.Committee.Chairperson, in.Committee.Panelists); err != nil {
			return err
		}
	}

	s.estimate(ctx, req)
	return nil
}

// AssignCommittee lets the coordinator replace the committee of a request under
// coordinator review before scheduling it
func (s *WorkflowService) AssignCommittee(ctx context.Context, id int64, in CommitteeInput, actor Actor) (*models.DefenseRequest, error) {
	return s.transition(ctx, id, actor, "", func(ctx context.Context, req *models.DefenseRequest) (workflow.Outcome, error) {
		// Same people who may schedule the defense
		if err := authorize(actor, req, models.StateScheduled); err != nil {
			return workflow.Outcome{}, err
		}
		out, err := workflow.AssignCommittee(*req, in.Chairperson, in.Panelists)
		if err != nil {
			return workflow.Outcome{}, err
		}
		s.estimate(ctx, &out.Request)
		return out, nil
	})
}

// Reschedule changes the date, time or mode of a scheduled defense
func (s *WorkflowService) Reschedule(ctx context.Context, id int64, in workflow.ScheduleInput, actor Actor) (*models.DefenseRequest, error) {
	return s.transition(ctx, id, actor, "", func(_ context.Context, req *models.DefenseRequest) (workflow.Outcome, error) {
		if err := authorize(actor, req, models.StateScheduled); err != nil {
			return workflow.Outcome{}, err
		}
		return workflow.Reschedule(*req, in)
	})
}

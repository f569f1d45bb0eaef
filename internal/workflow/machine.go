// Package workflow holds the defense request state machines.
//
// Transitions are pure functions: they validate a move, return the mutated request
// and the list of side effects the caller has to execute. Nothing here touches storage.
package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gradschool/internal/models"
)

var (
	ErrIllegalTransition = errors.New("illegal workflow transition")
	ErrMissingAdviser    = errors.New("defense request has no resolved adviser")
	ErrMissingChair      = errors.New("defense request has no chairperson")
	ErrPanelPolicy       = errors.New("committee does not satisfy the panel policy")
	ErrMissingSchedule   = errors.New("defense request has no scheduled date")
	ErrMissingReason     = errors.New("a reason is required to return a request for revision")
)

// UnresolvedCoordinatorError blocks endorsement when the adviser has no linked coordinator
type UnresolvedCoordinatorError struct {
	AdviserID   *int64
	AdviserName string
	Program     string
}

func (e *UnresolvedCoordinatorError) Error() string {
	id := "unlinked"
	if e.AdviserID != nil {
		id = fmt.Sprintf("%d", *e.AdviserID)
	}
	return fmt.Sprintf("adviser %q (user %s) in program %q has no linked coordinator", e.AdviserName, id, e.Program)
}

// PanelChecker validates committee composition before scheduling
type PanelChecker interface {
	Check(level models.ProgramLevel, panelMembers int, hasChair bool) error
}

// Env carries everything a transition needs that is resolved outside the machine
type Env struct {
	// CoordinatorID is the coordinator linked to the request's adviser, if any
	CoordinatorID *int64
	Level         models.ProgramLevel
	Panel         PanelChecker
}

// Recipient names who an effect's notification goes to
type Recipient string

const (
	RecipientStudent     Recipient = "student"
	RecipientAdviser     Recipient = "adviser"
	RecipientCoordinator Recipient = "coordinator"
	RecipientAA          Recipient = "aa"
)

// EffectKind is the kind of side effect produced by a transition
type EffectKind int

const (
	EffectNotify EffectKind = iota
	EffectMaterializeHonoraria
	EffectSyncRecords
)

func (k EffectKind) String() string {
	switch k {
	case EffectNotify:
		return "notify"
	case EffectMaterializeHonoraria:
		return "materialize_honoraria"
	case EffectSyncRecords:
		return "sync_records"
	default:
		return "unknown"
	}
}

// Effect is one command the caller executes after (or within) the transition
type Effect struct {
	Kind      EffectKind
	Event     models.EventType
	Recipient Recipient
}

func notify(event models.EventType, to ...Recipient) []Effect {
	effects := make([]Effect, 0, len(to))
	for _, r := range to {
		effects = append(effects, Effect{Kind: EffectNotify, Event: event, Recipient: r})
	}
	return effects
}

// Outcome is the result of a workflow transition
type Outcome struct {
	From    models.WorkflowState
	To      models.WorkflowState
	Request models.DefenseRequest
	Effects []Effect
}

// Has reports whether the outcome contains an effect of the given kind
func (o Outcome) Has(kind EffectKind) bool {
	for _, e := range o.Effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

var forward = map[models.WorkflowState]models.WorkflowState{
	models.StatePending:           models.StateAdviserReview,
	models.StateAdviserReview:     models.StateCoordinatorReview,
	models.StateCoordinatorReview: models.StateScheduled,
	models.StateScheduled:         models.StateCompleted,
}

// Next returns the only state a request may advance to from s
func Next(s models.WorkflowState) (models.WorkflowState, bool) {
	next, ok := forward[s]
	return next, ok
}

// Advance moves the request exactly one step forward to target
func Advance(req models.DefenseRequest, target models.WorkflowState, env Env) (Outcome, error) {
	from := req.WorkflowState
	next, ok := Next(from)
	if !ok || next != target {
		return Outcome{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, target)
	}

	out := Outcome{From: from, To: target}

	switch target {
	case models.StateAdviserReview:
		req.AdviserStatus = models.ApprovalPending
		out.Effects = notify(models.EventSentToAdviser, RecipientAdviser, RecipientStudent)

	case models.StateCoordinatorReview:
		if req.AdviserUserID == nil {
			return Outcome{}, ErrMissingAdviser
		}
		if env.CoordinatorID == nil {
			return Outcome{}, &UnresolvedCoordinatorError{
				AdviserID:   req.AdviserUserID,
				AdviserName: req.AdviserName,
				Program:     req.Program,
			}
		}
		coordinator := *env.CoordinatorID
		req.CoordinatorUserID = &coordinator
		req.AdviserStatus = models.ApprovalApproved
		req.CoordinatorStatus = models.ApprovalPending
		out.Effects = notify(models.EventEndorsedCoordinator, RecipientCoordinator, RecipientStudent)

	case models.StateScheduled:
		if !req.HasChairperson() {
			return Outcome{}, ErrMissingChair
		}
		if env.Panel != nil {
			if err := env.Panel.Check(env.Level, req.PanelMembers(), req.HasChairperson()); err != nil {
				return Outcome{}, fmt.Errorf("%w: %w", ErrPanelPolicy, err)
			}
		}
		req.CoordinatorStatus = models.ApprovalApproved
		out.Effects = notify(models.EventScheduled, RecipientStudent, RecipientAdviser, RecipientAA)

	case models.StateCompleted:
		if req.ScheduledDate == nil {
			return Outcome{}, ErrMissingSchedule
		}
		out.Effects = append(notify(models.EventCompleted, RecipientStudent, RecipientAA),
			Effect{Kind: EffectSyncRecords})
	}

	req.WorkflowState = target
	req.RevisionReason = ""
	out.Request = req
	return out, nil
}

// Reject returns a request under adviser or coordinator review to the student
func Reject(req models.DefenseRequest, reason string) (Outcome, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Outcome{}, ErrMissingReason
	}

	from := req.WorkflowState
	switch from {
	case models.StateAdviserReview:
		req.AdviserStatus = models.ApprovalRejected
	case models.StateCoordinatorReview:
		req.CoordinatorStatus = models.ApprovalRejected
	default:
		return Outcome{}, fmt.Errorf("%w: cannot reject in %s", ErrIllegalTransition, from)
	}

	req.WorkflowState = models.StateRevision
	req.RevisionReason = reason

	return Outcome{
		From:    from,
		To:      models.StateRevision,
		Request: req,
		Effects: notify(models.EventReturnedForRevision, RecipientStudent),
	}, nil
}

// Resubmit puts a revised request back at the start of the workflow
func Resubmit(req models.DefenseRequest) (Outcome, error) {
	if req.WorkflowState != models.StateRevision {
		return Outcome{}, fmt.Errorf("%w: cannot resubmit from %s", ErrIllegalTransition, req.WorkflowState)
	}

	from := req.WorkflowState
	req.WorkflowState = models.StatePending
	req.AdviserStatus = models.ApprovalPending
	req.CoordinatorStatus = models.ApprovalPending
	req.CoordinatorUserID = nil

	return Outcome{
		From:    from,
		To:      models.StatePending,
		Request: req,
		Effects: notify(models.EventResubmitted, RecipientAdviser),
	}, nil
}

// SetCommittee replaces the chairperson and panel members of req. Blank names are
// dropped and the remaining panelists fill the slots in order.
func SetCommittee(req *models.DefenseRequest, chair string, panelists []string) error {
	names := make([]string, 0, len(panelists))
	for _, name := range panelists {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) > 4 {
		return fmt.Errorf("%w: at most four panel members", ErrIllegalTransition)
	}

	req.DefenseChairperson = strings.TrimSpace(chair)
	slots := []*string{&req.DefensePanelist1, &req.DefensePanelist2, &req.DefensePanelist3, &req.DefensePanelist4}
	for i, slot := range slots {
		*slot = ""
		if i < len(names) {
			*slot = names[i]
		}
	}
	return nil
}

// AssignCommittee replaces the committee of a request under coordinator review.
// The request keeps its state.
func AssignCommittee(req models.DefenseRequest, chair string, panelists []string) (Outcome, error) {
	if req.WorkflowState != models.StateCoordinatorReview {
		return Outcome{}, fmt.Errorf("%w: cannot assign the committee in %s", ErrIllegalTransition, req.WorkflowState)
	}
	if err := SetCommittee(&req, chair, panelists); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		From:    req.WorkflowState,
		To:      req.WorkflowState,
		Request: req,
		Effects: notify(models.EventCommitteeAssigned, RecipientStudent, RecipientAdviser),
	}, nil
}

// Reschedule changes the date, time or mode of a scheduled defense. A request
// that was scheduled without a date gets one here.
func Reschedule(req models.DefenseRequest, in ScheduleInput) (Outcome, error) {
	if req.WorkflowState != models.StateScheduled {
		return Outcome{}, fmt.Errorf("%w: cannot reschedule in %s", ErrIllegalTransition, req.WorkflowState)
	}
	ApplySchedule(&req, in)
	if req.ScheduledDate == nil {
		return Outcome{}, ErrMissingSchedule
	}

	return Outcome{
		From:    req.WorkflowState,
		To:      req.WorkflowState,
		Request: req,
		Effects: notify(models.EventScheduled, RecipientStudent, RecipientAdviser, RecipientAA),
	}, nil
}

// ScheduleInput is what the coordinator supplies when scheduling a defense
type ScheduleInput struct {
	Date time.Time
	Time string
	Mode string
}

// ApplySchedule copies the schedule onto the request before it enters the scheduled state
func ApplySchedule(req *models.DefenseRequest, in ScheduleInput) {
	if !in.Date.IsZero() {
		d := in.Date
		req.ScheduledDate = &d
	}
	if in.Time != "" {
		req.ScheduledTime = in.Time
	}
	if in.Mode != "" {
		req.DefenseMode = in.Mode
	}
}

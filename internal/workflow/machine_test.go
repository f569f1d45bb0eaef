package workflow

import (
	"errors"
	"testing"
	"time"

	"gradschool/internal/models"
	"gradschool/internal/policy"
)

func int64Ptr(v int64) *int64 { return &v }

func newRequest() models.DefenseRequest {
	return models.DefenseRequest{
		ID:                 7,
		StudentName:        "Juan Dela Cruz",
		SchoolID:           "2020-00123",
		Program:            "Master in IT",
		WorkflowState:      models.StatePending,
		AdviserStatus:      models.ApprovalPending,
		CoordinatorStatus:  models.ApprovalPending,
		DefenseType:        models.DefensePreFinal,
		AdviserName:        "Dr. Reyes",
		AdviserUserID:      int64Ptr(11),
		DefenseChairperson: "Dr. Santos",
		DefensePanelist1:   "Dr. Cruz",
		DefensePanelist2:   "Dr. Lim",
		DefensePanelist3:   "Dr. Tan",
	}
}

func TestNext(t *testing.T) {
	chain := []models.WorkflowState{
		models.StatePending,
		models.StateAdviserReview,
		models.StateCoordinatorReview,
		models.StateScheduled,
		models.StateCompleted,
	}
	for i := 0; i < len(chain)-1; i++ {
		next, ok := Next(chain[i])
		if !ok || next != chain[i+1] {
			t.Errorf("Next(%s) = %s, %v; want %s", chain[i], next, ok, chain[i+1])
		}
	}
	if _, ok := Next(models.StateCompleted); ok {
		t.Error("completed should be terminal")
	}
	if _, ok := Next(models.StateRevision); ok {
		t.Error("revision should only leave through resubmit")
	}
}

func TestAdvanceRejectsSkips(t *testing.T) {
	req := newRequest()

	_, err := Advance(req, models.StateCoordinatorReview, Env{CoordinatorID: int64Ptr(3)})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("Expected ErrIllegalTransition, got %v", err)
	}

	req.WorkflowState = models.StateCompleted
	if _, err := Advance(req, models.StateCompleted, Env{}); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition from terminal state, got %v", err)
	}
}

func TestAdvanceHappyPath(t *testing.T) {
	req := newRequest()
	env := Env{CoordinatorID: int64Ptr(3), Level: models.LevelMasteral, Panel: policy.DefaultPanelPolicy()}

	out, err := Advance(req, models.StateAdviserReview, env)
	if err != nil {
		t.Fatalf("pending -> adviser-review: %v", err)
	}
	if !out.Has(EffectNotify) || out.Has(EffectSyncRecords) {
		t.Errorf("Unexpected effects: %+v", out.Effects)
	}
	req = out.Request

	out, err = Advance(req, models.StateCoordinatorReview, env)
	if err != nil {
		t.Fatalf("adviser-review -> coordinator-review: %v", err)
	}
	req = out.Request
	if req.AdviserStatus != models.ApprovalApproved {
		t.Errorf("Expected adviser Approved, got %s", req.AdviserStatus)
	}
	if req.CoordinatorUserID == nil || *req.CoordinatorUserID != 3 {
		t.Errorf("Expected coordinator 3, got %v", req.CoordinatorUserID)
	}

	out, err = Advance(req, models.StateScheduled, env)
	if err != nil {
		t.Fatalf("coordinator-review -> scheduled: %v", err)
	}
	req = out.Request
	if req.CoordinatorStatus != models.ApprovalApproved {
		t.Errorf("Expected coordinator Approved, got %s", req.CoordinatorStatus)
	}

	if _, err := Advance(req, models.StateCompleted, env); !errors.Is(err, ErrMissingSchedule) {
		t.Fatalf("Expected ErrMissingSchedule, got %v", err)
	}

	ApplySchedule(&req, ScheduleInput{Date: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), Time: "09:00", Mode: "Online"})
	out, err = Advance(req, models.StateCompleted, env)
	if err != nil {
		t.Fatalf("scheduled -> completed: %v", err)
	}
	if out.Request.WorkflowState != models.StateCompleted {
		t.Errorf("Expected completed, got %s", out.Request.WorkflowState)
	}
	if !out.Has(EffectSyncRecords) {
		t.Error("Completion should emit a sync effect")
	}
	if out.Request.DefenseMode != "Online" || out.Request.ScheduledTime != "09:00" {
		t.Errorf("Schedule not applied: %+v", out.Request)
	}
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	req := newRequest()
	if _, err := Advance(req, models.StateAdviserReview, Env{}); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if req.WorkflowState != models.StatePending {
		t.Errorf("Input request was mutated: %s", req.WorkflowState)
	}
}

func TestUnresolvedCoordinator(t *testing.T) {
	req := newRequest()
	req.WorkflowState = models.StateAdviserReview

	_, err := Advance(req, models.StateCoordinatorReview, Env{})
	var unresolved *UnresolvedCoordinatorError
	if !errors.As(err, &unresolved) {
		t.Fatalf("Expected UnresolvedCoordinatorError, got %v", err)
	}
	if unresolved.AdviserName != "Dr. Reyes" || unresolved.Program != "Master in IT" {
		t.Errorf("Unexpected error context: %+v", unresolved)
	}
	if unresolved.AdviserID == nil || *unresolved.AdviserID != 11 {
		t.Errorf("Expected adviser id 11, got %v", unresolved.AdviserID)
	}

	req.AdviserUserID = nil
	if _, err := Advance(req, models.StateCoordinatorReview, Env{CoordinatorID: int64Ptr(3)}); !errors.Is(err, ErrMissingAdviser) {
		t.Errorf("Expected ErrMissingAdviser, got %v", err)
	}
}

func TestSchedulingRequiresPanel(t *testing.T) {
	req := newRequest()
	req.WorkflowState = models.StateCoordinatorReview

	req.DefenseChairperson = " "
	if _, err := Advance(req, models.StateScheduled, Env{}); !errors.Is(err, ErrMissingChair) {
		t.Fatalf("Expected ErrMissingChair, got %v", err)
	}

	req.DefenseChairperson = "Dr. Santos"
	req.DefensePanelist3 = ""
	env := Env{Level: models.LevelMasteral, Panel: policy.DefaultPanelPolicy()}
	_, err := Advance(req, models.StateScheduled, env)
	if !errors.Is(err, ErrPanelPolicy) {
		t.Fatalf("Expected ErrPanelPolicy, got %v", err)
	}
	var v *policy.Violation
	if !errors.As(err, &v) || v.CommitteeSize != 3 {
		t.Errorf("Expected wrapped Violation with committee size 3, got %v", err)
	}

	disabled, _ := policy.NewPanelPolicy(false, nil)
	env.Panel = disabled
	if _, err := Advance(req, models.StateScheduled, env); err != nil {
		t.Errorf("Disabled policy should allow scheduling, got %v", err)
	}
}

func TestRejectAndResubmit(t *testing.T) {
	req := newRequest()

	if _, err := Reject(req, "incomplete"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("Expected ErrIllegalTransition rejecting pending, got %v", err)
	}

	req.WorkflowState = models.StateCoordinatorReview
	if _, err := Reject(req, "   "); !errors.Is(err, ErrMissingReason) {
		t.Fatalf("Expected ErrMissingReason, got %v", err)
	}

	out, err := Reject(req, "missing signatures")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if out.Request.WorkflowState != models.StateRevision || out.Request.CoordinatorStatus != models.ApprovalRejected {
		t.Errorf("Unexpected rejected request: %+v", out.Request)
	}
	if out.Request.RevisionReason != "missing signatures" {
		t.Errorf("Expected reason to be kept, got %q", out.Request.RevisionReason)
	}

	if _, err := Advance(out.Request, models.StateAdviserReview, Env{}); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("revision must not advance directly, got %v", err)
	}

	back, err := Resubmit(out.Request)
	if err != nil {
		t.Fatalf("Resubmit failed: %v", err)
	}
	if back.Request.WorkflowState != models.StatePending ||
		back.Request.AdviserStatus != models.ApprovalPending ||
		back.Request.CoordinatorStatus != models.ApprovalPending {
		t.Errorf("Resubmit did not reset statuses: %+v", back.Request)
	}

	if _, err := Resubmit(back.Request); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition resubmitting pending, got %v", err)
	}
}

func TestSetCommittee(t *testing.T) {
	req := newRequest()

	if err := SetCommittee(&req, " Dr. Uy ", []string{"", "Dr. Go", "  ", "Dr. Ong"}); err != nil {
		t.Fatalf("SetCommittee failed: %v", err)
	}
	if req.DefenseChairperson != "Dr. Uy" {
		t.Errorf("Expected trimmed chair, got %q", req.DefenseChairperson)
	}
	got := []string{req.DefensePanelist1, req.DefensePanelist2, req.DefensePanelist3, req.DefensePanelist4}
	want := []string{"Dr. Go", "Dr. Ong", "", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Slot %d: expected %q, got %q", i+1, want[i], got[i])
		}
	}

	before := req
	err := SetCommittee(&req, "Dr. Uy", []string{"1", "2", "3", "4", "5"})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("Expected ErrIllegalTransition for five panelists, got %v", err)
	}
	if req != before {
		t.Error("A rejected committee must leave the request unchanged")
	}
}

func TestAssignCommittee(t *testing.T) {
	req := newRequest()

	if _, err := AssignCommittee(req, "Dr. Uy", nil); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("Expected ErrIllegalTransition outside coordinator review, got %v", err)
	}

	req.WorkflowState = models.StateCoordinatorReview
	out, err := AssignCommittee(req, "Dr. Uy", []string{"Dr. Go"})
	if err != nil {
		t.Fatalf("AssignCommittee failed: %v", err)
	}
	if out.From != models.StateCoordinatorReview || out.To != models.StateCoordinatorReview {
		t.Errorf("Expected the state to stay put, got %s -> %s", out.From, out.To)
	}
	if out.Request.DefenseChairperson != "Dr. Uy" || out.Request.PanelMembers() != 1 {
		t.Errorf("Unexpected committee: %+v", out.Request.Committee())
	}
	if req.DefensePanelist2 != "Dr. Lim" {
		t.Error("Input request was mutated")
	}
	if len(out.Effects) != 2 || out.Effects[0].Event != models.EventCommitteeAssigned {
		t.Errorf("Unexpected effects: %+v", out.Effects)
	}
}

func TestReschedule(t *testing.T) {
	req := newRequest()
	req.WorkflowState = models.StateCoordinatorReview
	date := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)

	if _, err := Reschedule(req, ScheduleInput{Date: date}); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("Expected ErrIllegalTransition before scheduling, got %v", err)
	}

	req.WorkflowState = models.StateScheduled
	if _, err := Reschedule(req, ScheduleInput{Time: "10:00"}); !errors.Is(err, ErrMissingSchedule) {
		t.Fatalf("Expected ErrMissingSchedule without any date, got %v", err)
	}

	out, err := Reschedule(req, ScheduleInput{Date: date, Mode: "Online"})
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if out.Request.ScheduledDate == nil || !out.Request.ScheduledDate.Equal(date) || out.Request.DefenseMode != "Online" {
		t.Errorf("Schedule not applied: %+v", out.Request)
	}
	if out.To != models.StateScheduled || out.Has(EffectSyncRecords) {
		t.Errorf("Unexpected outcome: %+v", out)
	}

	// A time-only change keeps the stored date
	again, err := Reschedule(out.Request, ScheduleInput{Time: "14:00"})
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if !again.Request.ScheduledDate.Equal(date) || again.Request.ScheduledTime != "14:00" {
		t.Errorf("Unexpected schedule: %v %q", again.Request.ScheduledDate, again.Request.ScheduledTime)
	}
}

func TestApplyAAStatus(t *testing.T) {
	tests := []struct {
		name        string
		prev, next  models.AAStatus
		wantErr     bool
		noop        bool
		materialize bool
	}{
		{"first arrival", models.AAPending, models.AAReadyForFinance, false, false, true},
		{"repeat ready", models.AAReadyForFinance, models.AAReadyForFinance, false, true, false},
		{"past ready", models.AAReadyForFinance, models.AAInProgress, false, false, false},
		{"skip over ready", models.AAPending, models.AAPaid, false, false, true},
		{"paid to completed", models.AAPaid, models.AACompleted, false, false, false},
		{"backwards", models.AAInProgress, models.AAReadyForFinance, true, false, false},
		{"unknown", models.AAPending, "approved", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ApplyAAStatus(tt.prev, tt.next)
			if tt.wantErr {
				if !errors.Is(err, ErrIllegalTransition) {
					t.Fatalf("Expected ErrIllegalTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if out.Noop != tt.noop {
				t.Errorf("Noop = %v, want %v", out.Noop, tt.noop)
			}
			if got := out.Has(EffectMaterializeHonoraria); got != tt.materialize {
				t.Errorf("materialize = %v, want %v", got, tt.materialize)
			}
			if tt.noop && len(out.Effects) != 0 {
				t.Errorf("No-op must not produce effects, got %+v", out.Effects)
			}
		})
	}
}

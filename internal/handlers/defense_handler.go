package handlers

import (
	"context"
	"net/http"
	"time"

	"gradschool/internal/models"
	"gradschool/internal/service"
	"gradschool/internal/workflow"
)

// WorkflowService is the workflow surface used by DefenseHandler
type WorkflowService interface {
	Submit(ctx context.Context, in service.SubmitInput, actor service.Actor) (*models.DefenseRequest, error)
	Get(ctx context.Context, id int64) (*models.DefenseRequest, error)
	History(ctx context.Context, id int64) ([]models.HistoryEntry, error)
	Advance(ctx context.Context, id int64, in service.AdvanceInput, actor service.Actor) (*models.DefenseRequest, error)
	Reject(ctx context.Context, id int64, reason string, actor service.Actor) (*models.DefenseRequest, error)
	Resubmit(ctx context.Context, id int64, in service.RevisionInput, actor service.Actor) (*models.DefenseRequest, error)
	AssignCommittee(ctx context.Context, id int64, in service.CommitteeInput, actor service.Actor) (*models.DefenseRequest, error)
	Reschedule(ctx context.Context, id int64, in workflow.ScheduleInput, actor service.Actor) (*models.DefenseRequest, error)
}

// HonorariumLister lists the materialized honoraria of a defense
type HonorariumLister interface {
	List(ctx context.Context, defenseRequestID int64) ([]models.HonorariumPayment, error)
}

// Syncer runs the student record sync on demand
type Syncer interface {
	SyncDefenseRequest(ctx context.Context, id int64) (*service.SyncResult, error)
}

// DefenseHandler handles defense request HTTP requests
type DefenseHandler struct {
	workflow  WorkflowService
	honoraria HonorariumLister
	sync      Syncer
}

// NewDefenseHandler creates a new defense request handler
func NewDefenseHandler(workflow WorkflowService, honoraria HonorariumLister, sync Syncer) *DefenseHandler {
	return &DefenseHandler{workflow: workflow, honoraria: honoraria, sync: sync}
}

// SubmitDefenseRequest is the body of a new defense request
type SubmitDefenseRequest struct {
	StudentName        string   `json:"student_name" validate:"required,max=255"`
	SchoolID           string   `json:"school_id" validate:"required,max=64"`
	StudentEmail       string   `json:"student_email" validate:"omitempty,email"`
	Program            string   `json:"program" validate:"required,max=255"`
	ThesisTitle        string   `json:"thesis_title" validate:"required"`
	DefenseType        string   `json:"defense_type" validate:"required,max=32"`
	DefenseMode        string   `json:"defense_mode" validate:"max=32"`
	AdviserName        string   `json:"adviser_name" validate:"max=255"`
	AdviserUserID      *int64   `json:"adviser_user_id" validate:"omitempty,gt=0"`
	DefenseChairperson string   `json:"defense_chairperson" validate:"max=255"`
	DefensePanelists   []string `json:"defense_panelists" validate:"max=4,dive,max=255"`
	PaymentDate        string   `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	ORNumber           string   `json:"or_number" validate:"max=64"`
}

// AdvanceDefenseRequest moves a request to its next state
type AdvanceDefenseRequest struct {
	ToState       string `json:"to_state" validate:"required,oneof=adviser-review coordinator-review scheduled completed"`
	ScheduledDate string `json:"scheduled_date" validate:"omitempty,datetime=2006-01-02"`
	ScheduledTime string `json:"scheduled_time" validate:"max=16"`
	DefenseMode   string `json:"defense_mode" validate:"max=32"`
}

// RejectDefenseRequest returns a request for revision
type RejectDefenseRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// CommitteeRequest replaces the defense committee
type CommitteeRequest struct {
	DefenseChairperson string   `json:"defense_chairperson" validate:"required,max=255"`
	DefensePanelists   []string `json:"defense_panelists" validate:"max=4,dive,max=255"`
}

// ResubmitDefenseRequest carries the student's amendments. Omitted fields keep their value.
type ResubmitDefenseRequest struct {
	Program     string            `json:"program" validate:"max=255"`
	ThesisTitle string            `json:"thesis_title"`
	DefenseType string            `json:"defense_type" validate:"max=32"`
	DefenseMode string            `json:"defense_mode" validate:"max=32"`
	Committee   *CommitteeRequest `json:"committee"`
}

// RescheduleDefenseRequest moves a scheduled defense
type RescheduleDefenseRequest struct {
	ScheduledDate string `json:"scheduled_date" validate:"omitempty,datetime=2006-01-02"`
	ScheduledTime string `json:"scheduled_time" validate:"max=16"`
	DefenseMode   string `json:"defense_mode" validate:"max=32"`
}

// parseDate parses an optional YYYY-MM-DD value already checked by the validator
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// Submit files a new defense request
// @Summary Submit defense request
// @Description File a defense request; it is routed to the adviser when the adviser is a portal user
// @Tags Defense Requests
// @Security BearerAuth
// @Param request body SubmitDefenseRequest true "Defense request"
// @Success 201 {object} models.DefenseRequest
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 422 {object} map[string]string "Unknown defense type"
// @Router /defense-requests [post]
func (h *DefenseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		ErrorResponse(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var body SubmitDefenseRequest
	if err := decodeAndValidate(r, &body); err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.workflow.Submit(r.Context(), service.SubmitInput{
		StudentName:        body.StudentName,
		SchoolID:           body.SchoolID,
		StudentEmail:       body.StudentEmail,
		Program:            body.Program,
		ThesisTitle:        body.ThesisTitle,
		DefenseType:        body.DefenseType,
		DefenseMode:        body.DefenseMode,
		AdviserName:        body.AdviserName,
		AdviserUserID:      body.AdviserUserID,
		DefenseChairperson: body.DefenseChairperson,
		DefensePanelists:   body.DefensePanelists,
		PaymentDate:        parseDate(body.PaymentDate),
		ORNumber:           body.ORNumber,
	}, act)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	JSONResponse(w, http.StatusCreated, req)
}

// Get returns a defense request
// @Summary Get defense request
// @Tags Defense Requests
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Success 200 {object} models.DefenseRequest
// @Failure 404 {object} map[string]string "Not found"
// @Router /defense-requests/{id} [get]
func (h *DefenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.workflow.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, req)
}

// History returns the transition history of a defense request
// @Summary Get defense request history
// @Tags Defense Requests
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Success 200 {array} models.HistoryEntry
// @Router /defense-requests/{id}/history [get]
func (h *DefenseHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	history, err := h.workflow.History(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, history)
}

// Advance moves a defense request one step forward
// @Summary Advance defense request
// @Description Move to the next workflow state; scheduling takes the defense date, time and mode
// @Tags Defense Requests
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Param request body AdvanceDefenseRequest true "Target state"
// @Success 200 {object} models.DefenseRequest
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Router /defense-requests/{id}/advance [post]
func (h *DefenseHandler) Advance(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		ErrorResponse(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var body AdvanceDefenseRequest
	if err := decodeAndValidate(r, &body); err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	in := service.AdvanceInput{
		To: models.WorkflowState(body.ToState),
		Schedule: workflow.ScheduleInput{
			Time: body.ScheduledTime,
			Mode: body.DefenseMode,
		},
	}
	if d := parseDate(body.ScheduledDate); d != nil {
		in.Schedule.Date = *d
	}

	req, err := h.workflow.Advance(r.Context(), id, in, act)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, req)
}

// Reject returns a defense request to the student for revision
// @Summary Reject defense request
// @Tags Defense Requests
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Param request body RejectDefenseRequest true "Reason"
// @Success 200 {object} models.DefenseRequest
// @Failure 409 {object} map[string]string "Not under review"
// @Router /defense-requests/{id}/reject [post]
func (h *DefenseHandler) Reject(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		ErrorResponse(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var body RejectDefenseRequest
	if err := decodeAndValidate(r, &body); err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.workflow.Reject(r.Context(), id, body.Reason, act)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, req)
}

// Resubmit puts a revised defense request back into the workflow
// @Summary Resubmit defense request
// @Description The body is optional; it amends the thesis details or the committee before resubmitting
// @Tags Defense Requests
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Param request body ResubmitDefenseRequest false "Amendments"
// @Success 200 {object} models.DefenseRequest
// @Failure 409 {object} map[string]string "Not in revision"
// @Router /defense-requests/{id}/resubmit [post]
func (h *DefenseHandler) Resubmit(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		ErrorResponse(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var body ResubmitDefenseRequest
	if r.ContentLength != 0 {
		if err := decodeAndValidate(r, &body); err != nil {
			ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	in := service.RevisionInput{
		Program:     body.Program,
		ThesisTitle: body.ThesisTitle,
		DefenseType: body.DefenseType,
		DefenseMode: body.DefenseMode,
	}
	if body.Committee != nil {
		in.Committee = &service.CommitteeInput{
			Chairperson: body.Committee.DefenseChairperson,
			Panelists:   body.Committee.DefensePanelists,
		}
	}

	req, err := h.workflow.Resubmit(r.Context(), id, in, act)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, req)
}

// AssignCommittee replaces the committee of a request under coordinator review
// @Summary Assign defense committee
// @Tags Defense Requests
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Param request body CommitteeRequest true "Committee"
// @Success 200 {object} models.DefenseRequest
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Not under coordinator review"
// @Router /defense-requests/{id}/committee [put]
func (h *DefenseHandler) AssignCommittee(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		ErrorResponse(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var body CommitteeRequest
	if err := decodeAndValidate(r, &body); err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.workflow.AssignCommittee(r.Context(), id, service.CommitteeInput{
		Chairperson: body.DefenseChairperson,
		Panelists:   body.DefensePanelists,
	}, act)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, req)
}

// Reschedule changes the date, time or mode of a scheduled defense
// @Summary Reschedule defense
// @Tags Defense Requests
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Param request body RescheduleDefenseRequest true "Schedule"
// @Success 200 {object} models.DefenseRequest
// @Failure 409 {object} map[string]string "Not scheduled or no date"
// @Router /defense-requests/{id}/schedule [put]
func (h *DefenseHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		ErrorResponse(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var body RescheduleDefenseRequest
	if err := decodeAndValidate(r, &body); err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	in := workflow.ScheduleInput{Time: body.ScheduledTime, Mode: body.DefenseMode}
	if d := parseDate(body.ScheduledDate); d != nil {
		in.Date = *d
	}

	req, err := h.workflow.Reschedule(r.Context(), id, in, act)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, req)
}

// Honoraria lists the honorarium payments of a defense request
// @Summary List honoraria
// @Tags Honoraria
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Success 200 {array} models.HonorariumPayment
// @Router /defense-requests/{id}/honoraria [get]
func (h *DefenseHandler) Honoraria(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	payments, err := h.honoraria.List(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, payments)
}

// Sync re-runs the student record sync of a completed defense
// @Summary Sync student records
// @Tags Sync
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Success 200 {object} service.SyncResult
// @Failure 409 {object} map[string]string "Not completed or no honoraria yet"
// @Failure 503 {object} map[string]string "Sync rolled back, retry later"
// @Router /defense-requests/{id}/sync [post]
func (h *DefenseHandler) Sync(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.sync.SyncDefenseRequest(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, result)
}

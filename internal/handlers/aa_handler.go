package handlers

import (
	"context"
	"net/http"

	"gradschool/internal/models"
	"gradschool/internal/service"
)

// AAService is the payment verification surface used by AAHandler
type AAService interface {
	Get(ctx context.Context, defenseRequestID int64) (*models.AAVerification, error)
	UpdateStatus(ctx context.Context, defenseRequestID int64, status models.AAStatus, actor service.Actor) (*service.AAResult, error)
}

// AAHandler handles AA payment verification HTTP requests
type AAHandler struct {
	aa AAService
}

// NewAAHandler creates a new AA handler
func NewAAHandler(aa AAService) *AAHandler {
	return &AAHandler{aa: aa}
}

// UpdateAAStatusRequest sets the AA verification status
type UpdateAAStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending ready_for_finance in_progress paid completed"`
}

// Get returns the AA verification of a defense request
// @Summary Get AA verification
// @Tags AA Verification
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Success 200 {object} models.AAVerification
// @Router /defense-requests/{id}/aa-verification [get]
func (h *AAHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := h.aa.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, v)
}

// UpdateStatus changes the AA verification status
// @Summary Update AA verification status
// @Description The first move to ready_for_finance materializes the honoraria; repeating the current status is a no-op
// @Tags AA Verification
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Param request body UpdateAAStatusRequest true "Status"
// @Success 200 {object} service.AAResult
// @Failure 409 {object} map[string]string "Status cannot move back"
// @Failure 422 {object} map[string]string "No payment rate"
// @Router /defense-requests/{id}/aa-verification [put]
func (h *AAHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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

	var body UpdateAAStatusRequest
	if err := decodeAndValidate(r, &body); err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.aa.UpdateStatus(r.Context(), id, models.AAStatus(body.Status), act)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, result)
}

package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gradschool/internal/models"
	"gradschool/internal/rates"
)

// RateService is the rate table surface used by RateHandler
type RateService interface {
	List(ctx context.Context) ([]models.PaymentRate, error)
	Resolve(ctx context.Context, program, defenseType string) (*rates.Resolution, error)
}

// ReportExporter writes the honorarium workbook
type ReportExporter interface {
	Export(ctx context.Context, program string, w io.Writer) (int, error)
}

// RateHandler serves the rate table and the honorarium report
type RateHandler struct {
	rates  RateService
	report ReportExporter
}

// NewRateHandler creates a new rate handler
func NewRateHandler(rates RateService, report ReportExporter) *RateHandler {
	return &RateHandler{rates: rates, report: report}
}

// List returns all payment rates
// @Summary List payment rates
// @Tags Rates
// @Security BearerAuth
// @Success 200 {array} models.PaymentRate
// @Router /rates [get]
func (h *RateHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.rates.List(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, list)
}

// ResolveResponse is the rate set of one program and defense type
type ResolveResponse struct {
	Program     string               `json:"program"`
	Level       models.ProgramLevel  `json:"program_level"`
	DefenseType models.DefenseType   `json:"defense_type"`
	Rates       []models.PaymentRate `json:"rates"`
	Total       models.Centavos      `json:"total"`
	TotalWords  string               `json:"total_words"`
}

// Resolve returns the rates that apply to a program and defense type
// @Summary Resolve payment rates
// @Tags Rates
// @Security BearerAuth
// @Param program query string true "Program name"
// @Param defense_type query string true "Defense type"
// @Success 200 {object} ResolveResponse
// @Failure 422 {object} map[string]string "No rate"
// @Router /rates/resolve [get]
func (h *RateHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	program := strings.TrimSpace(r.URL.Query().Get("program"))
	defenseType := strings.TrimSpace(r.URL.Query().Get("defense_type"))
	if program == "" || defenseType == "" {
		ErrorResponse(w, http.StatusBadRequest, "program and defense_type are required")
		return
	}

	res, err := h.rates.Resolve(r.Context(), program, defenseType)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	JSONResponse(w, http.StatusOK, ResolveResponse{
		Program:     program,
		Level:       res.Level,
		DefenseType: res.DefenseType,
		Rates:       res.Rates,
		Total:       res.Total(),
		TotalWords:  res.Total().Words(),
	})
}

// ExportReport streams the honorarium report as XLSX
// @Summary Export honorarium report
// @Tags Reports
// @Security BearerAuth
// @Param program query string false "Limit to one program"
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /reports/honoraria.xlsx [get]
func (h *RateHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	program := strings.TrimSpace(r.URL.Query().Get("program"))

	var buf bytes.Buffer
	if _, err := h.report.Export(r.Context(), program, &buf); err != nil {
		respondServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("honoraria-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

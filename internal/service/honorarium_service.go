package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gradschool/internal/metrics"
	"gradschool/internal/models"
	"gradschool/internal/rates"
	"gradschool/internal/repository"
)

// HonorariumService materializes the honorarium payments of a defense
type HonorariumService struct {
	resolver  *rates.Resolver
	requests  *repository.DefenseRequestRepository
	honoraria *repository.HonorariumRepository
	panelists *repository.PanelistRepository
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewHonorariumService creates a new honorarium service
func NewHonorariumService(
	resolver *rates.Resolver,
	requests *repository.DefenseRequestRepository,
	honoraria *repository.HonorariumRepository,
	panelists *repository.PanelistRepository,
	m *metrics.Metrics,
) *HonorariumService {
	return &HonorariumService{
		resolver:  resolver,
		requests:  requests,
		honoraria: honoraria,
		panelists: panelists,
		metrics:   m,
		now:       time.Now,
	}
}

// planHonoraria builds one payment per occupied committee seat. Every seat must
// have a rate; a missing one fails the whole plan, and so does a committee with no seats.
func planHonoraria(req *models.DefenseRequest, res *rates.Resolution, paymentDate time.Time) ([]models.HonorariumPayment, error) {
	seats := req.Committee()
	if len(seats) == 0 {
		return nil, fmt.Errorf("%w: defense request %d", ErrEmptyCommittee, req.ID)
	}
	payments := make([]models.HonorariumPayment, 0, len(seats))

	for _, seat := range seats {
		rate, ok := res.RateFor(seat.Role)
		if !ok {
			return nil, &rates.RateNotFoundError{Level: res.Level, DefenseType: res.DefenseType, Role: seat.Role}
		}
		payments = append(payments, models.HonorariumPayment{
			DefenseRequestID: req.ID,
			PanelistName:     seat.Name,
			Role:             seat.Role,
			Amount:           rate.Amount,
			PaymentDate:      paymentDate,
		})
	}

	return payments, nil
}

// Materialize creates the honorarium payments of req inside tx. Seats that already
// have a payment are left untouched. Names that cannot be resolved to the panelist
// directory are stored without a panelist id.
func (s *HonorariumService) Materialize(ctx context.Context, tx *sql.Tx, req *models.DefenseRequest) ([]models.HonorariumPayment, error) {
	res, err := s.resolver.Resolve(ctx, req.Program, string(req.DefenseType))
	if err != nil {
		return nil, err
	}

	paymentDate := s.now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	planned, err := planHonoraria(req, res, paymentDate)
	if err != nil {
		return nil, err
	}

	panelists := s.panelists.WithTx(tx)
	honoraria := s.honoraria.WithTx(tx)

	created := 0
	for i := range planned {
		p := &planned[i]

		panelist, err := panelists.FindByName(ctx, p.PanelistName)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			slog.Warn("Committee member not found in panelist directory",
				"defense_request_id", req.ID,
				"role", string(p.Role),
				"name", p.PanelistName,
			)
			s.metrics.UnresolvedPanelist()
		case err != nil:
			return nil, err
		default:
			id := panelist.ID
			p.PanelistID = &id
		}

		ok, err := honoraria.Create(ctx, p)
		if err != nil {
			return nil, err
		}
		if ok {
			created++
		}
	}

	stored, err := honoraria.ListByDefenseRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	var total models.Centavos
	for _, p := range stored {
		total += p.Amount
	}
	if err := s.requests.WithTx(tx).UpdateAmount(ctx, req.ID, total); err != nil {
		return nil, err
	}
	req.Amount = total

	s.metrics.HonorariaCreated(created)
	slog.Info("Honoraria materialized",
		"defense_request_id", req.ID,
		"level", string(res.Level),
		"defense_type", string(res.DefenseType),
		"created", created,
		"total", total.String(),
	)

	return stored, nil
}

// Estimate returns the honorarium total the committee of req would receive
func (s *HonorariumService) Estimate(ctx context.Context, req *models.DefenseRequest) (models.Centavos, error) {
	res, err := s.resolver.Resolve(ctx, req.Program, string(req.DefenseType))
	if err != nil {
		return 0, err
	}
	planned, err := planHonoraria(req, res, s.now())
	if err != nil {
		return 0, err
	}

	var total models.Centavos
	for _, p := range planned {
		total += p.Amount
	}
	return total, nil
}

// List returns the honoraria of a defense request
func (s *HonorariumService) List(ctx context.Context, defenseRequestID int64) ([]models.HonorariumPayment, error) {
	if _, err := s.requests.GetByID(ctx, defenseRequestID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	payments, err := s.honoraria.ListByDefenseRequest(ctx, defenseRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list honoraria: %w", err)
	}
	return payments, nil
}

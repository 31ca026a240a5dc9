package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/servicelab/portal/internal/db"
	"github.com/servicelab/portal/internal/logging"
	"github.com/servicelab/portal/internal/models"
	"github.com/servicelab/portal/internal/payments"
	"github.com/servicelab/portal/internal/validate"
)

// ErrPaymentsDisabled is returned when an estimate payment is requested
// but no Stripe credentials are configured.
var ErrPaymentsDisabled = errors.New("payments are not configured")

type EstimateStore interface {
	Create(ctx context.Context, estimate *models.CostEstimate) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CostEstimate, error)
	ListByRepair(ctx context.Context, repairID uuid.UUID) ([]*models.CostEstimate, error)
	Decide(ctx context.Context, id uuid.UUID, status models.EstimateStatus) error
	SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error
	MarkPaidBySession(ctx context.Context, sessionID string, paidAt time.Time) (*models.CostEstimate, error)
}

type EstimateService struct {
	store   EstimateStore
	repairs RepairStore
	stripe  *payments.Client
}

func NewEstimateService(store EstimateStore, repairs RepairStore, stripe *payments.Client) *EstimateService {
	return &EstimateService{
		store:   store,
		repairs: repairs,
		stripe:  stripe,
	}
}

type CreateEstimateRequest struct {
	Description string `json:"description"`
	PartsCents  int    `json:"parts_cents"`
	LaborCents  int    `json:"labor_cents"`
	Currency    string `json:"currency"`
}

// CreateEstimate is the admin operation attaching a quote to a repair.
func (s *EstimateService) CreateEstimate(ctx context.Context, repairID uuid.UUID, req CreateEstimateRequest) (*models.CostEstimate, error) {
	if _, err := s.repairs.GetByID(ctx, repairID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if req.PartsCents < 0 || req.LaborCents < 0 {
		return nil, fmt.Errorf("%w: amounts must not be negative", ErrValidation)
	}
	description, err := validate.RequireString(req.Description, "description")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "pln"
	}

	estimate := &models.CostEstimate{
		RepairID:    repairID,
		Description: description,
		PartsCents:  req.PartsCents,
		LaborCents:  req.LaborCents,
		TotalCents:  req.PartsCents + req.LaborCents,
		Currency:    currency,
		Status:      models.EstimatePending,
	}
	if err := s.store.Create(ctx, estimate); err != nil {
		return nil, err
	}
	return estimate, nil
}

// ListEstimates returns the estimates of a repair the user owns.
func (s *EstimateService) ListEstimates(ctx context.Context, userID string, repairID uuid.UUID) ([]*models.CostEstimate, error) {
	if _, err := s.repairs.GetByIDAndUser(ctx, repairID, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.store.ListByRepair(ctx, repairID)
}

// Decide accepts or rejects a pending estimate on behalf of the repair
// owner. Only pending estimates can be decided.
func (s *EstimateService) Decide(ctx context.Context, userID string, estimateID uuid.UUID, accept bool) (*models.CostEstimate, error) {
	estimate, err := s.ownedEstimate(ctx, userID, estimateID)
	if err != nil {
		return nil, err
	}

	status := models.EstimateRejected
	if accept {
		status = models.EstimateAccepted
	}
	if err := s.store.Decide(ctx, estimate.ID, status); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: estimate already decided", ErrValidation)
		}
		return nil, err
	}
	return s.store.GetByID(ctx, estimate.ID)
}

// Pay creates a Stripe checkout session for an accepted estimate and
// returns the session URL.
func (s *EstimateService) Pay(ctx context.Context, userID, userEmail string, estimateID uuid.UUID) (string, error) {
	if s.stripe == nil {
		return "", ErrPaymentsDisabled
	}

	estimate, err := s.ownedEstimate(ctx, userID, estimateID)
	if err != nil {
		return "", err
	}
	if estimate.Status != models.EstimateAccepted {
		return "", fmt.Errorf("%w: only accepted estimates can be paid", ErrValidation)
	}
	if estimate.PaidAt.Unix() > 0 {
		return "", fmt.Errorf("%w: estimate already paid", ErrValidation)
	}

	session, err := s.stripe.CreateEstimateCheckout(ctx, payments.CheckoutParams{
		EstimateID:    estimate.ID,
		RepairID:      estimate.RepairID,
		Description:   estimate.Description,
		AmountCents:   int64(estimate.TotalCents),
		Currency:      estimate.Currency,
		CustomerEmail: userEmail,
	})
	if err != nil {
		return "", err
	}

	if err := s.store.SetCheckoutSession(ctx, estimate.ID, session.ID); err != nil {
		return "", err
	}
	return session.URL, nil
}

// MarkPaid applies a completed checkout session to its estimate. Called
// from the Stripe webhook.
func (s *EstimateService) MarkPaid(ctx context.Context, sessionID string) error {
	logger := logging.FromContext(ctx)

	estimate, err := s.store.MarkPaidBySession(ctx, sessionID, time.Now().UTC())
	if errors.Is(err, db.ErrNotFound) {
		logger.Warn("checkout session completed for unknown estimate", "session_id", sessionID)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("estimate paid", "estimate_id", estimate.ID, "repair_id", estimate.RepairID)
	return nil
}

func (s *EstimateService) ownedEstimate(ctx context.Context, userID string, estimateID uuid.UUID) (*models.CostEstimate, error) {
	estimate, err := s.store.GetByID(ctx, estimateID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if _, err := s.repairs.GetByIDAndUser(ctx, estimate.RepairID, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return estimate, nil
}

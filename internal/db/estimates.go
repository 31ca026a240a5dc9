package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicelab/portal/internal/models"
)

type EstimateStore struct {
	pool *pgxpool.Pool
}

func NewEstimateStore(pool *pgxpool.Pool) *EstimateStore {
	return &EstimateStore{pool: pool}
}

const estimateColumns = `id, repair_id, description, parts_cents, labor_cents, total_cents,
	currency, status, COALESCE(stripe_checkout_session_id, ''),
	COALESCE(accepted_at, 'epoch'::timestamptz), COALESCE(paid_at, 'epoch'::timestamptz),
	created_at`

func (s *EstimateStore) Create(ctx context.Context, estimate *models.CostEstimate) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO cost_estimates (repair_id, description, parts_cents, labor_cents,
			total_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		estimate.RepairID, estimate.Description, estimate.PartsCents, estimate.LaborCents,
		estimate.TotalCents, estimate.Currency, estimate.Status)
	if err := row.Scan(&estimate.ID, &estimate.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert cost estimate: %w", err)
	}
	return nil
}

func (s *EstimateStore) GetByID(ctx context.Context, id uuid.UUID) (*models.CostEstimate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+estimateColumns+` FROM cost_estimates WHERE id = $1`, id)
	return scanEstimate(row)
}

func (s *EstimateStore) ListByRepair(ctx context.Context, repairID uuid.UUID) ([]*models.CostEstimate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+estimateColumns+` FROM cost_estimates WHERE repair_id = $1 ORDER BY created_at DESC`,
		repairID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cost estimates: %w", err)
	}
	defer rows.Close()

	var estimates []*models.CostEstimate
	for rows.Next() {
		estimate, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, estimate)
	}
	return estimates, rows.Err()
}

// Decide moves a pending estimate to accepted or rejected. A decision on
// an estimate that is no longer pending reports ErrNotFound so a repeated
// decision cannot flip an earlier one.
func (s *EstimateStore) Decide(ctx context.Context, id uuid.UUID, status models.EstimateStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cost_estimates
		SET status = $2,
		    accepted_at = CASE WHEN $2 = 'accepted' THEN now() ELSE accepted_at END
		WHERE id = $1 AND status = 'pending'`,
		id, status)
	if err != nil {
		return fmt.Errorf("failed to decide cost estimate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EstimateStore) SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cost_estimates SET stripe_checkout_session_id = $2 WHERE id = $1`,
		id, sessionID)
	if err != nil {
		return fmt.Errorf("failed to store checkout session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EstimateStore) MarkPaidBySession(ctx context.Context, sessionID string, paidAt time.Time) (*models.CostEstimate, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE cost_estimates SET paid_at = $2
		WHERE stripe_checkout_session_id = $1
		RETURNING `+estimateColumns,
		sessionID, paidAt)
	return scanEstimate(row)
}

func scanEstimate(row rowScanner) (*models.CostEstimate, error) {
	estimate := &models.CostEstimate{}
	err := row.Scan(&estimate.ID, &estimate.RepairID, &estimate.Description,
		&estimate.PartsCents, &estimate.LaborCents, &estimate.TotalCents,
		&estimate.Currency, &estimate.Status, &estimate.StripeCheckoutSessionID,
		&estimate.AcceptedAt, &estimate.PaidAt, &estimate.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cost estimate: %w", err)
	}
	return estimate, nil
}

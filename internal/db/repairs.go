package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicelab/portal/internal/models"
)

type RepairStore struct {
	pool *pgxpool.Pool
}

func NewRepairStore(pool *pgxpool.Pool) *RepairStore {
	return &RepairStore{pool: pool}
}

const repairColumns = `id, user_id, order_id, device_type, device_brand, device_model,
	description, contact_email, COALESCE(contact_phone, ''), shipping_method,
	COALESCE(pickup_point_id, ''), status, created_at, updated_at`

func (s *RepairStore) Create(ctx context.Context, repair *models.Repair) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO repairs (user_id, order_id, device_type, device_brand, device_model,
			description, contact_email, contact_phone, shipping_method, pickup_point_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		repair.UserID, repair.OrderID, repair.DeviceType, repair.DeviceBrand,
		repair.DeviceModel, repair.Description, repair.ContactEmail,
		nullable(repair.ContactPhone), repair.ShippingMethod,
		nullable(repair.PickupPointID), repair.Status)
	if err := row.Scan(&repair.ID, &repair.CreatedAt, &repair.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert repair: %w", err)
	}
	return nil
}

func (s *RepairStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Repair, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+repairColumns+` FROM repairs WHERE id = $1`, id)
	return scanRepair(row)
}

func (s *RepairStore) GetByIDAndUser(ctx context.Context, id uuid.UUID, userID string) (*models.Repair, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+repairColumns+` FROM repairs WHERE id = $1 AND user_id = $2`, id, userID)
	return scanRepair(row)
}

func (s *RepairStore) ListByUser(ctx context.Context, userID string) ([]*models.Repair, error) {
	return s.list(ctx, `SELECT `+repairColumns+` FROM repairs WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListAll backs the admin view.
func (s *RepairStore) ListAll(ctx context.Context) ([]*models.Repair, error) {
	return s.list(ctx, `SELECT `+repairColumns+` FROM repairs ORDER BY created_at DESC`)
}

func (s *RepairStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RepairStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE repairs SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update repair status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RepairStore) list(ctx context.Context, query string, args ...any) ([]*models.Repair, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list repairs: %w", err)
	}
	defer rows.Close()

	var repairs []*models.Repair
	for rows.Next() {
		repair, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		repairs = append(repairs, repair)
	}
	return repairs, rows.Err()
}

func scanRepair(row rowScanner) (*models.Repair, error) {
	repair := &models.Repair{}
	err := row.Scan(&repair.ID, &repair.UserID, &repair.OrderID, &repair.DeviceType,
		&repair.DeviceBrand, &repair.DeviceModel, &repair.Description,
		&repair.ContactEmail, &repair.ContactPhone, &repair.ShippingMethod,
		&repair.PickupPointID, &repair.Status, &repair.CreatedAt, &repair.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan repair: %w", err)
	}
	return repair, nil
}

package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicelab/portal/internal/models"
)

type ShipmentStore struct {
	pool *pgxpool.Pool
}

func NewShipmentStore(pool *pgxpool.Pool) *ShipmentStore {
	return &ShipmentStore{pool: pool}
}

const shipmentColumns = `id, order_id, user_id, carrier, service_code, type, status,
	tracking_number, carrier_shipment_id, receiver_name, receiver_email, receiver_phone,
	pickup_point_id, address_line1, address_line2, address_post_code, address_city,
	label_storage_path, created_at, updated_at`

// Create inserts the shipment. The shipments table carries a unique
// constraint on (order_id, carrier); a concurrent insert for the same
// order loses the race and the surviving row is returned instead, so
// callers always get exactly one shipment per order and carrier.
func (s *ShipmentStore) Create(ctx context.Context, shipment *models.Shipment) (*models.Shipment, bool, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO shipments (
			order_id, user_id, carrier, service_code, type, status,
			tracking_number, carrier_shipment_id, receiver_name, receiver_email,
			receiver_phone, pickup_point_id, address_line1, address_line2,
			address_post_code, address_city
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (order_id, carrier) DO NOTHING
		RETURNING id, created_at, updated_at`,
		shipment.OrderID, shipment.UserID, shipment.Carrier, shipment.ServiceCode,
		shipment.Type, shipment.Status, shipment.TrackingNumber, shipment.CarrierShipmentID,
		shipment.ReceiverName, shipment.ReceiverEmail, shipment.ReceiverPhone,
		nullable(shipment.PickupPointID), nullable(shipment.AddressLine1),
		nullable(shipment.AddressLine2), nullable(shipment.AddressPostCode),
		nullable(shipment.AddressCity),
	)

	err := row.Scan(&shipment.ID, &shipment.CreatedAt, &shipment.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := s.GetByOrderAndCarrier(ctx, shipment.OrderID, shipment.Carrier)
		if getErr != nil {
			return nil, false, fmt.Errorf("failed to fetch conflicting shipment: %w", getErr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert shipment: %w", err)
	}
	return shipment, true, nil
}

func (s *ShipmentStore) GetByOrderAndCarrier(ctx context.Context, orderID, carrier string) (*models.Shipment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE order_id = $1 AND carrier = $2`,
		orderID, carrier)
	return scanShipment(row)
}

func (s *ShipmentStore) GetByIDAndUser(ctx context.Context, id uuid.UUID, userID string) (*models.Shipment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE id = $1 AND user_id = $2`,
		id, userID)
	return scanShipment(row)
}

func (s *ShipmentStore) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE tracking_number = $1`,
		trackingNumber)
	return scanShipment(row)
}

func (s *ShipmentStore) ListByUser(ctx context.Context, userID string) ([]*models.Shipment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}
	defer rows.Close()

	var shipments []*models.Shipment
	for rows.Next() {
		shipment, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, shipment)
	}
	return shipments, rows.Err()
}

func (s *ShipmentStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ShipmentStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE shipments SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("failed to update shipment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ShipmentStore) UpdateLabelPath(ctx context.Context, id uuid.UUID, path string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE shipments SET label_storage_path = $2, updated_at = now() WHERE id = $1`,
		id, path)
	if err != nil {
		return fmt.Errorf("failed to update label path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendEvent records a tracking event and keeps the shipment's current
// status in step with it.
func (s *ShipmentStore) AppendEvent(ctx context.Context, event *models.ShipmentEvent) error {
	payloadJSON, err := json.Marshal(event.RawPayload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO shipment_events (shipment_id, status, message, location, occurred_at, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		event.ShipmentID, event.Status, event.Message, nullable(event.Location),
		event.OccurredAt, payloadJSON)
	if err := row.Scan(&event.ID, &event.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert shipment event: %w", err)
	}

	return s.UpdateStatus(ctx, event.ShipmentID, event.Status)
}

func (s *ShipmentStore) ListEvents(ctx context.Context, shipmentID uuid.UUID) ([]*models.ShipmentEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, shipment_id, status, message, COALESCE(location, ''), occurred_at, created_at
		FROM shipment_events WHERE shipment_id = $1 ORDER BY created_at ASC`,
		shipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipment events: %w", err)
	}
	defer rows.Close()

	var events []*models.ShipmentEvent
	for rows.Next() {
		event := &models.ShipmentEvent{}
		if err := rows.Scan(&event.ID, &event.ShipmentID, &event.Status, &event.Message,
			&event.Location, &event.OccurredAt, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shipment event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row rowScanner) (*models.Shipment, error) {
	shipment := &models.Shipment{}
	var pickupPointID, line1, line2, postCode, city, labelPath *string

	err := row.Scan(&shipment.ID, &shipment.OrderID, &shipment.UserID, &shipment.Carrier,
		&shipment.ServiceCode, &shipment.Type, &shipment.Status, &shipment.TrackingNumber,
		&shipment.CarrierShipmentID, &shipment.ReceiverName, &shipment.ReceiverEmail,
		&shipment.ReceiverPhone, &pickupPointID, &line1, &line2, &postCode, &city,
		&labelPath, &shipment.CreatedAt, &shipment.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan shipment: %w", err)
	}

	shipment.PickupPointID = deref(pickupPointID)
	shipment.AddressLine1 = deref(line1)
	shipment.AddressLine2 = deref(line2)
	shipment.AddressPostCode = deref(postCode)
	shipment.AddressCity = deref(city)
	shipment.LabelStoragePath = deref(labelPath)
	return shipment, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

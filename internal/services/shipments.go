// Package services holds the portal's business flows, between the HTTP
// handlers and the stores/carrier adapters.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/servicelab/portal/internal/config"
	"github.com/servicelab/portal/internal/db"
	"github.com/servicelab/portal/internal/inpost"
	"github.com/servicelab/portal/internal/logging"
	"github.com/servicelab/portal/internal/models"
	"github.com/servicelab/portal/internal/storage"
	"github.com/servicelab/portal/internal/validate"
)

// ErrValidation wraps request validation failures so handlers can map
// them to 400 responses.
var ErrValidation = errors.New("validation failed")

var ErrNotFound = errors.New("not found")

// ShipmentStore is the subset of db.ShipmentStore the service needs.
type ShipmentStore interface {
	Create(ctx context.Context, shipment *models.Shipment) (*models.Shipment, bool, error)
	GetByOrderAndCarrier(ctx context.Context, orderID, carrier string) (*models.Shipment, error)
	GetByIDAndUser(ctx context.Context, id uuid.UUID, userID string) (*models.Shipment, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Shipment, error)
	UpdateLabelPath(ctx context.Context, id uuid.UUID, path string) error
	AppendEvent(ctx context.Context, event *models.ShipmentEvent) error
}

type ShipmentService struct {
	store   ShipmentStore
	gateway inpost.Gateway
	labels  storage.Store
	cfg     *config.Config
}

func NewShipmentService(store ShipmentStore, gateway inpost.Gateway, labels storage.Store, cfg *config.Config) *ShipmentService {
	return &ShipmentService{
		store:   store,
		gateway: gateway,
		labels:  labels,
		cfg:     cfg,
	}
}

// CreateShipmentRequest is the decoded and not-yet-sanitized request body
// for shipment creation.
type CreateShipmentRequest struct {
	OrderID       string          `json:"order_id"`
	ServiceCode   string          `json:"service_code"`
	Type          string          `json:"type"`
	Receiver      ReceiverRequest `json:"receiver"`
	PickupPointID string          `json:"pickup_point_id"`
	Address       *AddressRequest `json:"address"`
	Replace       bool            `json:"replace"`
}

type ReceiverRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// AddressRequest is the courier delivery address. Country defaults to the
// configured sender country when omitted.
type AddressRequest struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// CreateShipmentResult reports the stored shipment and whether an earlier
// booking was reused instead of creating a new one.
type CreateShipmentResult struct {
	Shipment *models.Shipment
	Reused   bool
}

// CreateShipment books a carrier shipment for an order, exactly once per
// (order, carrier). A repeated request returns the existing shipment with
// Reused set unless the caller asked to replace it.
func (s *ShipmentService) CreateShipment(ctx context.Context, userID string, req CreateShipmentRequest) (*CreateShipmentResult, error) {
	logger := logging.FromContext(ctx)

	sanitized, err := s.validateCreate(req)
	if err != nil {
		return nil, err
	}

	if !req.Replace {
		existing, err := s.store.GetByOrderAndCarrier(ctx, sanitized.OrderID, inpost.CarrierName)
		if err == nil {
			return &CreateShipmentResult{Shipment: existing, Reused: true}, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("failed to check for existing shipment: %w", err)
		}
	}

	payload := s.buildPayload(sanitized)
	booking, err := s.gateway.CreateShipment(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("carrier booking failed: %w", err)
	}

	shipment := &models.Shipment{
		OrderID:           sanitized.OrderID,
		UserID:            userID,
		Carrier:           inpost.CarrierName,
		ServiceCode:       sanitized.ServiceCode,
		Type:              models.ShipmentType(sanitized.Type),
		Status:            models.ShipmentStatus(booking.Status),
		TrackingNumber:    booking.TrackingNumber,
		CarrierShipmentID: booking.ID,
		ReceiverName:      sanitized.Receiver.Name,
		ReceiverEmail:     sanitized.Receiver.Email,
		ReceiverPhone:     sanitized.Receiver.Phone,
		PickupPointID:     sanitized.PickupPointID,
	}
	if sanitized.Address != nil {
		shipment.AddressLine1 = sanitized.Address.Line1
		shipment.AddressLine2 = sanitized.Address.Line2
		shipment.AddressPostCode = sanitized.Address.PostalCode
		shipment.AddressCity = sanitized.Address.City
	}
	if shipment.Status == "" {
		shipment.Status = models.ShipmentCreated
	}

	stored, inserted, err := s.store.Create(ctx, shipment)
	if err != nil {
		return nil, fmt.Errorf("failed to store shipment: %w", err)
	}
	if !inserted {
		// Lost a concurrent race for the same order. The carrier booking we
		// just made is orphaned; keep the surviving row.
		logger.Warn("concurrent shipment creation detected, reusing existing row",
			"order_id", sanitized.OrderID, "orphaned_carrier_id", booking.ID)
		return &CreateShipmentResult{Shipment: stored, Reused: true}, nil
	}

	logger.Info("shipment created",
		"shipment_id", stored.ID, "order_id", stored.OrderID,
		"tracking_number", stored.TrackingNumber, "type", stored.Type)
	return &CreateShipmentResult{Shipment: stored, Reused: false}, nil
}

func (s *ShipmentService) validateCreate(req CreateShipmentRequest) (CreateShipmentRequest, error) {
	out := req

	var err error
	if out.OrderID, err = validate.RequireString(req.OrderID, "order_id"); err != nil {
		return out, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if out.ServiceCode, err = validate.RequireString(req.ServiceCode, "service_code"); err != nil {
		return out, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if out.Receiver.Name, err = validate.RequireString(req.Receiver.Name, "receiver.name"); err != nil {
		return out, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if out.Receiver.Phone, err = validate.RequireString(req.Receiver.Phone, "receiver.phone"); err != nil {
		return out, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if out.Receiver.Email, err = validate.RequireString(req.Receiver.Email, "receiver.email"); err != nil {
		return out, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	switch req.Type {
	case inpost.TypeLocker:
		if out.PickupPointID, err = validate.RequireString(req.PickupPointID, "pickup_point_id"); err != nil {
			return out, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	case inpost.TypeCourier:
		if req.Address == nil {
			return out, fmt.Errorf("%w: %w", ErrValidation, &validate.FieldError{Field: "address"})
		}
		addr := *req.Address
		if addr.Line1, err = validate.RequireString(addr.Line1, "address.line1"); err != nil {
			return out, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		if addr.PostalCode, err = validate.RequireString(addr.PostalCode, "address.postal_code"); err != nil {
			return out, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		if addr.City, err = validate.RequireString(addr.City, "address.city"); err != nil {
			return out, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		addr.Line2 = validate.OptionalString(addr.Line2, validate.DefaultMaxLength)
		addr.Country = validate.OptionalString(addr.Country, validate.DefaultMaxLength)
		out.Address = &addr
	default:
		return out, fmt.Errorf("%w: type must be %q or %q", ErrValidation, inpost.TypeLocker, inpost.TypeCourier)
	}

	return out, nil
}

func (s *ShipmentService) buildPayload(req CreateShipmentRequest) inpost.ShipmentPayload {
	payload := inpost.ShipmentPayload{
		Service: req.ServiceCode,
		Receiver: inpost.Party{
			Name:  req.Receiver.Name,
			Phone: req.Receiver.Phone,
			Email: req.Receiver.Email,
		},
		Sender: inpost.Party{
			Name:  s.cfg.SenderName,
			Phone: s.cfg.SenderPhone,
			Email: s.cfg.SenderEmail,
			Address: &inpost.Address{
				Line1:       s.cfg.SenderAddressLine1,
				Line2:       s.cfg.SenderAddressLine2,
				PostCode:    s.cfg.SenderPostalCode,
				City:        s.cfg.SenderCity,
				CountryCode: s.cfg.SenderCountry,
			},
		},
		Parcels: []inpost.Parcel{
			{
				WeightKg: s.cfg.DefaultWeightKg,
				Dimensions: inpost.Dimensions{
					Length: s.cfg.DefaultLengthCm,
					Width:  s.cfg.DefaultWidthCm,
					Height: s.cfg.DefaultHeightCm,
				},
			},
		},
	}

	if req.Type == inpost.TypeLocker {
		payload.CustomAttributes = &inpost.CustomAttributes{TargetPoint: req.PickupPointID}
	} else if req.Address != nil {
		country := req.Address.Country
		if country == "" {
			country = s.cfg.SenderCountry
		}
		payload.Address = &inpost.Address{
			Line1:       req.Address.Line1,
			Line2:       req.Address.Line2,
			PostCode:    req.Address.PostalCode,
			City:        req.Address.City,
			CountryCode: country,
		}
	}
	return payload
}

func (s *ShipmentService) GetShipment(ctx context.Context, userID string, id uuid.UUID) (*models.Shipment, error) {
	shipment, err := s.store.GetByIDAndUser(ctx, id, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

func (s *ShipmentService) ListShipments(ctx context.Context, userID string) ([]*models.Shipment, error) {
	return s.store.ListByUser(ctx, userID)
}

// Label returns the shipment's label PDF. The first successful fetch is
// persisted to object storage; later calls serve the stored copy without
// touching the carrier.
func (s *ShipmentService) Label(ctx context.Context, userID string, id uuid.UUID) ([]byte, error) {
	logger := logging.FromContext(ctx)

	shipment, err := s.GetShipment(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if shipment.LabelStoragePath != "" {
		body, err := s.labels.Download(ctx, shipment.LabelStoragePath)
		if err == nil {
			return body, nil
		}
		logger.Warn("stored label unavailable, refetching from carrier",
			"shipment_id", id, "error", err)
	}

	if shipment.CarrierShipmentID == "" {
		return nil, fmt.Errorf("%w: shipment has no carrier shipment id", ErrValidation)
	}

	body, err := s.gateway.GetLabel(ctx, shipment.CarrierShipmentID, "pdf")
	if err != nil {
		return nil, fmt.Errorf("carrier label fetch failed: %w", err)
	}

	path := storage.LabelPath(shipment.ID.String())
	if err := s.labels.Upload(ctx, path, body, "application/pdf"); err != nil {
		logger.Warn("failed to persist label, serving uncached", "shipment_id", id, "error", err)
		return body, nil
	}
	if err := s.store.UpdateLabelPath(ctx, shipment.ID, path); err != nil {
		logger.Warn("failed to record label path", "shipment_id", id, "error", err)
	}
	return body, nil
}

// Track queries the carrier and, when the tracking number belongs to one
// of our shipments, records an event with the full carrier payload on
// every call. Numbers we do not know still return tracking data.
func (s *ShipmentService) Track(ctx context.Context, trackingNumber string) (*inpost.TrackingInfo, error) {
	logger := logging.FromContext(ctx)

	number := validate.SanitizeText(trackingNumber, validate.QueryMaxLength)
	if number == "" {
		return nil, fmt.Errorf("%w: %w", ErrValidation, &validate.FieldError{Field: "tracking_number"})
	}

	info, err := s.gateway.Track(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("carrier tracking failed: %w", err)
	}

	shipment, err := s.store.GetByTrackingNumber(ctx, number)
	if errors.Is(err, db.ErrNotFound) {
		return &info, nil
	}
	if err != nil {
		return nil, err
	}

	status := models.ShipmentStatus(info.Status)
	if status == "" {
		status = shipment.Status
	}
	event := &models.ShipmentEvent{
		ShipmentID: shipment.ID,
		Status:     status,
		Message:    latestMessage(info),
		OccurredAt: latestTimestamp(info),
		RawPayload: trackingPayload(info),
	}
	if err := s.store.AppendEvent(ctx, event); err != nil {
		logger.Warn("failed to record tracking event", "shipment_id", shipment.ID, "error", err)
	}
	return &info, nil
}

// trackingPayload round-trips the carrier response through JSON so the
// event row carries it verbatim.
func trackingPayload(info inpost.TrackingInfo) map[string]any {
	payload := map[string]any{}
	if raw, err := json.Marshal(info); err == nil {
		_ = json.Unmarshal(raw, &payload)
	}
	return payload
}

// WebhookEvent is the decoded carrier webhook body. The carrier has sent
// both tracking_number and tracking across API versions.
type WebhookEvent struct {
	TrackingNumber string         `json:"tracking_number"`
	Tracking       string         `json:"tracking"`
	Status         string         `json:"status"`
	Message        string         `json:"message"`
	Location       string         `json:"location"`
	OccurredAt     time.Time      `json:"occurred_at"`
	Raw            map[string]any `json:"-"`
}

func (e WebhookEvent) trackingNumber() string {
	if e.TrackingNumber != "" {
		return e.TrackingNumber
	}
	return e.Tracking
}

// HandleWebhookEvent applies a carrier status push to the matching
// shipment. Events for unknown tracking numbers are acknowledged and
// dropped; events are applied in arrival order.
func (s *ShipmentService) HandleWebhookEvent(ctx context.Context, event WebhookEvent) error {
	logger := logging.FromContext(ctx)

	number := strings.TrimSpace(event.trackingNumber())
	if number == "" {
		logger.Warn("carrier webhook without tracking number, dropping")
		return nil
	}

	shipment, err := s.store.GetByTrackingNumber(ctx, number)
	if errors.Is(err, db.ErrNotFound) {
		logger.Info("carrier webhook for unknown tracking number", "tracking_number", number)
		return nil
	}
	if err != nil {
		return err
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	status := models.ShipmentStatus(event.Status)
	if status == "" {
		status = shipment.Status
	}

	if err := s.store.AppendEvent(ctx, &models.ShipmentEvent{
		ShipmentID: shipment.ID,
		Status:     status,
		Message:    event.Message,
		Location:   event.Location,
		OccurredAt: occurredAt,
		RawPayload: event.Raw,
	}); err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	logger.Info("carrier webhook applied",
		"shipment_id", shipment.ID, "tracking_number", number, "status", status)
	return nil
}

func latestMessage(info inpost.TrackingInfo) string {
	if len(info.History) == 0 {
		return ""
	}
	return info.History[len(info.History)-1].Description
}

func latestTimestamp(info inpost.TrackingInfo) time.Time {
	if len(info.History) == 0 {
		return time.Now().UTC()
	}
	return info.History[len(info.History)-1].Timestamp
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/servicelab/portal/internal/db"
	"github.com/servicelab/portal/internal/email"
	"github.com/servicelab/portal/internal/logging"
	"github.com/servicelab/portal/internal/models"
	"github.com/servicelab/portal/internal/validate"
)

type RepairStore interface {
	Create(ctx context.Context, repair *models.Repair) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Repair, error)
	GetByIDAndUser(ctx context.Context, id uuid.UUID, userID string) (*models.Repair, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Repair, error)
	ListAll(ctx context.Context) ([]*models.Repair, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RepairStatus) error
}

type RepairService struct {
	store     RepairStore
	mailer    email.Provider
	portalURL string
}

func NewRepairService(store RepairStore, mailer email.Provider, portalURL string) *RepairService {
	return &RepairService{
		store:     store,
		mailer:    mailer,
		portalURL: portalURL,
	}
}

type CreateRepairRequest struct {
	OrderID        string `json:"order_id"`
	DeviceType     string `json:"device_type"`
	DeviceBrand    string `json:"device_brand"`
	DeviceModel    string `json:"device_model"`
	Description    string `json:"description"`
	ContactEmail   string `json:"contact_email"`
	ContactPhone   string `json:"contact_phone"`
	ShippingMethod string `json:"shipping_method"`
	PickupPointID  string `json:"pickup_point_id"`
}

var validDeviceTypes = map[models.DeviceType]bool{
	models.DeviceLaptop: true,
	models.DevicePC:     true,
	models.DeviceOther:  true,
}

var validRepairStatuses = map[models.RepairStatus]bool{
	models.RepairPending:         true,
	models.RepairReceived:        true,
	models.RepairDiagnosing:      true,
	models.RepairWaitingEstimate: true,
	models.RepairInRepair:        true,
	models.RepairCompleted:       true,
	models.RepairShipped:         true,
	models.RepairDelivered:       true,
}

// CreateRepair registers a repair request and sends the confirmation
// email. Email failures are logged, never returned: the repair row is
// the source of truth.
func (s *RepairService) CreateRepair(ctx context.Context, userID string, req CreateRepairRequest) (*models.Repair, error) {
	logger := logging.FromContext(ctx)

	deviceType := models.DeviceType(req.DeviceType)
	if !validDeviceTypes[deviceType] {
		return nil, fmt.Errorf("%w: device_type must be laptop, pc or other", ErrValidation)
	}

	repair := &models.Repair{
		UserID:     userID,
		DeviceType: deviceType,
		Status:     models.RepairPending,
	}

	var err error
	if repair.OrderID, err = validate.RequireString(req.OrderID, "order_id"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if repair.DeviceBrand, err = validate.RequireString(req.DeviceBrand, "device_brand"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if repair.DeviceModel, err = validate.RequireString(req.DeviceModel, "device_model"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if repair.Description, err = validate.RequireString(req.Description, "description"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if repair.ContactEmail, err = validate.RequireString(req.ContactEmail, "contact_email"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if repair.ShippingMethod, err = validate.RequireString(req.ShippingMethod, "shipping_method"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	repair.ContactPhone = validate.OptionalString(req.ContactPhone, validate.DefaultMaxLength)
	repair.PickupPointID = validate.OptionalString(req.PickupPointID, validate.DefaultMaxLength)

	if err := s.store.Create(ctx, repair); err != nil {
		return nil, fmt.Errorf("failed to create repair: %w", err)
	}

	if err := email.SendRepairConfirmation(ctx, s.mailer, &email.RepairInfo{
		RepairID:      repair.ID.String(),
		OrderID:       repair.OrderID,
		CustomerEmail: repair.ContactEmail,
		DeviceBrand:   repair.DeviceBrand,
		DeviceModel:   repair.DeviceModel,
		Description:   repair.Description,
		PortalURL:     s.portalURL,
	}); err != nil {
		logger.Warn("failed to send repair confirmation email",
			"repair_id", repair.ID, "error", err)
	}

	logger.Info("repair created", "repair_id", repair.ID, "order_id", repair.OrderID)
	return repair, nil
}

func (s *RepairService) GetRepair(ctx context.Context, userID string, id uuid.UUID) (*models.Repair, error) {
	repair, err := s.store.GetByIDAndUser(ctx, id, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return repair, nil
}

func (s *RepairService) ListRepairs(ctx context.Context, userID string) ([]*models.Repair, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *RepairService) ListAllRepairs(ctx context.Context) ([]*models.Repair, error) {
	return s.store.ListAll(ctx)
}

// UpdateStatus is the admin transition between repair states. Moving a
// repair to shipped notifies the customer; trackingNumber is optional and
// only feeds that email.
func (s *RepairService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RepairStatus, trackingNumber string) (*models.Repair, error) {
	if !validRepairStatuses[status] {
		return nil, fmt.Errorf("%w: unknown repair status %q", ErrValidation, status)
	}

	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	repair, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if status == models.RepairShipped {
		if err := email.SendRepairShippedBack(ctx, s.mailer, &email.RepairInfo{
			RepairID:       repair.ID.String(),
			OrderID:        repair.OrderID,
			CustomerEmail:  repair.ContactEmail,
			DeviceBrand:    repair.DeviceBrand,
			DeviceModel:    repair.DeviceModel,
			TrackingNumber: validate.OptionalString(trackingNumber, validate.DefaultMaxLength),
			PortalURL:      s.portalURL,
		}); err != nil {
			logging.FromContext(ctx).Warn("failed to send shipped-back email",
				"repair_id", repair.ID, "error", err)
		}
	}
	return repair, nil
}

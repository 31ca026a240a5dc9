package models

import (
	"time"

	"github.com/google/uuid"
)

type ShipmentStatus string

const (
	ShipmentCreated        ShipmentStatus = "created"
	ShipmentConfirmed      ShipmentStatus = "confirmed"
	ShipmentDispatched     ShipmentStatus = "dispatched"
	ShipmentInTransit      ShipmentStatus = "in_transit"
	ShipmentOutForDelivery ShipmentStatus = "out_for_delivery"
	ShipmentDelivered      ShipmentStatus = "delivered"
	ShipmentReturned       ShipmentStatus = "returned"
	ShipmentError          ShipmentStatus = "error"
)

type ShipmentType string

const (
	ShipmentTypeLocker  ShipmentType = "locker"
	ShipmentTypeCourier ShipmentType = "courier"
)

type Shipment struct {
	ID                uuid.UUID      `json:"id"`
	OrderID           string         `json:"order_id"`
	UserID            string         `json:"user_id"`
	Carrier           string         `json:"carrier"`
	ServiceCode       string         `json:"service_code"`
	Type              ShipmentType   `json:"type"`
	Status            ShipmentStatus `json:"status"`
	TrackingNumber    string         `json:"tracking_number"`
	CarrierShipmentID string         `json:"carrier_shipment_id"`
	ReceiverName      string         `json:"receiver_name"`
	ReceiverEmail     string         `json:"receiver_email"`
	ReceiverPhone     string         `json:"receiver_phone"`
	PickupPointID     string         `json:"pickup_point_id,omitempty"`
	AddressLine1      string         `json:"address_line1,omitempty"`
	AddressLine2      string         `json:"address_line2,omitempty"`
	AddressPostCode   string         `json:"address_post_code,omitempty"`
	AddressCity       string         `json:"address_city,omitempty"`
	LabelStoragePath  string         `json:"-"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type ShipmentEvent struct {
	ID         uuid.UUID      `json:"id"`
	ShipmentID uuid.UUID      `json:"shipment_id"`
	Status     ShipmentStatus `json:"status"`
	Message    string         `json:"message"`
	Location   string         `json:"location,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	RawPayload map[string]any `json:"-"`
	CreatedAt  time.Time      `json:"created_at"`
}

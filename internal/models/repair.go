package models

import (
	"time"

	"github.com/google/uuid"
)

type RepairStatus string

const (
	RepairPending         RepairStatus = "pending"
	RepairReceived        RepairStatus = "received"
	RepairDiagnosing      RepairStatus = "diagnosing"
	RepairWaitingEstimate RepairStatus = "waiting_estimate"
	RepairInRepair        RepairStatus = "in_repair"
	RepairCompleted       RepairStatus = "completed"
	RepairShipped         RepairStatus = "shipped"
	RepairDelivered       RepairStatus = "delivered"
)

type DeviceType string

const (
	DeviceLaptop DeviceType = "laptop"
	DevicePC     DeviceType = "pc"
	DeviceOther  DeviceType = "other"
)

type Repair struct {
	ID             uuid.UUID    `json:"id"`
	UserID         string       `json:"user_id"`
	OrderID        string       `json:"order_id"`
	DeviceType     DeviceType   `json:"device_type"`
	DeviceBrand    string       `json:"device_brand"`
	DeviceModel    string       `json:"device_model"`
	Description    string       `json:"description"`
	ContactEmail   string       `json:"contact_email"`
	ContactPhone   string       `json:"contact_phone"`
	ShippingMethod string       `json:"shipping_method"`
	PickupPointID  string       `json:"pickup_point_id,omitempty"`
	Status         RepairStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

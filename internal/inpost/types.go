package inpost

import "time"

const (
	// CarrierName is the value stored on shipment rows created through this
	// integration.
	CarrierName = "inpost"

	TypeLocker  = "locker"
	TypeCourier = "courier"
	TypePartner = "partner"
)

// ShippingMethod is a carrier-offered service option. Methods are fetched
// fresh (or from fixtures) on every listing call and never persisted.
type ShippingMethod struct {
	Code     string  `json:"code" yaml:"code"`
	Name     string  `json:"name" yaml:"name"`
	Type     string  `json:"type" yaml:"type"`
	PricePLN float64 `json:"price_pln" yaml:"price_pln"`
	ETA      string  `json:"eta" yaml:"eta"`
	Featured bool    `json:"featured,omitempty" yaml:"featured"`
}

// PickupPoint is a locker or partner counter, normalized from whichever
// response shape the carrier API version produced.
type PickupPoint struct {
	PointID     string  `json:"point_id" yaml:"point_id"`
	Name        string  `json:"name" yaml:"name"`
	Address     string  `json:"address" yaml:"address"`
	Lat         float64 `json:"lat" yaml:"lat"`
	Lng         float64 `json:"lng" yaml:"lng"`
	Type        string  `json:"type" yaml:"type"`
	Hours       string  `json:"hours,omitempty" yaml:"hours"`
	Description string  `json:"description,omitempty" yaml:"description"`
	ImageURL    string  `json:"image_url,omitempty" yaml:"image_url"`
}

// PointQuery holds sanitized point-search parameters. Lat and Lng are only
// sent to the carrier when both are present.
type PointQuery struct {
	Query string
	Lat   *float64
	Lng   *float64
	Type  string
}

type TrackingEvent struct {
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type TrackingInfo struct {
	TrackingNumber string          `json:"tracking_number"`
	Status         string          `json:"status"`
	History        []TrackingEvent `json:"history"`
}

// CreateShipmentResult is the normalized carrier booking response.
type CreateShipmentResult struct {
	ID             string `json:"id"`
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
	LabelURL       string `json:"label_url,omitempty"`
}

// ShipmentPayload is the carrier-specific booking request body.
type ShipmentPayload struct {
	Service          string            `json:"service"`
	Receiver         Party             `json:"receiver"`
	Sender           Party             `json:"sender"`
	Parcels          []Parcel          `json:"parcels"`
	CustomAttributes *CustomAttributes `json:"custom_attributes,omitempty"`
	Address          *Address          `json:"address,omitempty"`
}

type Party struct {
	Name    string   `json:"name"`
	Phone   string   `json:"phone"`
	Email   string   `json:"email"`
	Address *Address `json:"address,omitempty"`
}

type Address struct {
	Line1       string `json:"line1"`
	Line2       string `json:"line2"`
	PostCode    string `json:"post_code"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
}

type Parcel struct {
	WeightKg   float64    `json:"weight"`
	Dimensions Dimensions `json:"dimensions"`
}

type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CustomAttributes carries the target locker for locker-type shipments.
type CustomAttributes struct {
	TargetPoint string `json:"target_point"`
}

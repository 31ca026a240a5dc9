package inpost

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

const (
	mockShipmentID = "mock-shipment-id"
	mockLabelBody  = "Mock label"
)

type fixtures struct {
	Methods  []ShippingMethod `yaml:"methods"`
	Points   []PickupPoint    `yaml:"points"`
	Tracking struct {
		TrackingNumber string `yaml:"tracking_number"`
		Status         string `yaml:"status"`
		Description    string `yaml:"description"`
	} `yaml:"tracking"`
}

// MockGateway serves canned fixtures so integration tests and environments
// without carrier credentials behave deterministically.
type MockGateway struct {
	fx  fixtures
	now func() time.Time
}

func NewMockGateway() (*MockGateway, error) {
	var fx fixtures
	if err := yaml.Unmarshal(fixturesYAML, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse carrier fixtures: %w", err)
	}
	return &MockGateway{fx: fx, now: time.Now}, nil
}

func (g *MockGateway) ListMethods(ctx context.Context) ([]ShippingMethod, error) {
	_ = ctx
	return SortMethods(g.fx.Methods), nil
}

// SearchPoints filters fixtures by type only. A locker filter keeps lockers,
// any other non-empty filter keeps everything that is not a locker.
func (g *MockGateway) SearchPoints(ctx context.Context, query PointQuery) ([]PickupPoint, error) {
	_ = ctx
	if query.Type == "" {
		return append([]PickupPoint(nil), g.fx.Points...), nil
	}

	var points []PickupPoint
	for _, point := range g.fx.Points {
		if query.Type == TypeLocker && point.Type != TypeLocker {
			continue
		}
		if query.Type != TypeLocker && point.Type == TypeLocker {
			continue
		}
		points = append(points, point)
	}
	return points, nil
}

func (g *MockGateway) CreateShipment(ctx context.Context, payload ShipmentPayload) (CreateShipmentResult, error) {
	_ = ctx
	_ = payload
	return CreateShipmentResult{
		ID:             mockShipmentID,
		TrackingNumber: g.fx.Tracking.TrackingNumber,
		Status:         "created",
	}, nil
}

func (g *MockGateway) GetLabel(ctx context.Context, shipmentID, format string) ([]byte, error) {
	_ = ctx
	_ = shipmentID
	_ = format
	return []byte(mockLabelBody), nil
}

func (g *MockGateway) Track(ctx context.Context, trackingNumber string) (TrackingInfo, error) {
	_ = ctx
	_ = trackingNumber
	return TrackingInfo{
		TrackingNumber: g.fx.Tracking.TrackingNumber,
		Status:         g.fx.Tracking.Status,
		History: []TrackingEvent{
			{
				Status:      g.fx.Tracking.Status,
				Description: g.fx.Tracking.Description,
				Timestamp:   g.now(),
			},
		},
	}, nil
}

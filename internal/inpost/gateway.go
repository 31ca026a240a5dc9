// Package inpost integrates with the InPost parcel carrier: method
// listing, pickup-point search, shipment creation, label retrieval and
// tracking.
package inpost

import (
	"context"
	"sort"
)

// Gateway is the carrier strategy. The live and mock implementations are
// selected once at construction so call sites never branch on a mock flag.
type Gateway interface {
	ListMethods(ctx context.Context) ([]ShippingMethod, error)
	SearchPoints(ctx context.Context, query PointQuery) ([]PickupPoint, error)
	CreateShipment(ctx context.Context, payload ShipmentPayload) (CreateShipmentResult, error)
	GetLabel(ctx context.Context, shipmentID, format string) ([]byte, error)
	Track(ctx context.Context, trackingNumber string) (TrackingInfo, error)
}

// SortMethods orders featured methods first, otherwise preserving carrier
// order.
func SortMethods(methods []ShippingMethod) []ShippingMethod {
	ordered := make([]ShippingMethod, len(methods))
	copy(ordered, methods)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Featured && !ordered[j].Featured
	})
	return ordered
}

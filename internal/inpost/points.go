package inpost

import (
	"encoding/json"
	"fmt"
)

// ParsePointsResponse decodes a carrier point-search response. Depending on
// the API version the payload is either a bare array or an object with an
// "items" array.
func ParsePointsResponse(body []byte) ([]PickupPoint, error) {
	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		var wrapped struct {
			Items []map[string]any `json:"items"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode points response: %w", err)
		}
		raw = wrapped.Items
	}

	points := make([]PickupPoint, 0, len(raw))
	for _, item := range raw {
		points = append(points, NormalizePoint(item))
	}
	return points, nil
}

// NormalizePoint maps a heterogeneous carrier point record onto the
// canonical shape. Field resolution order, per known API versions:
//
//	id:      point_id, name, id
//	address: address.line1, address.street, address.address, address as string
//	lat/lng: location.latitude/longitude, lat/lng, latitude/longitude
//	type:    "locker" and "parcel_locker" are lockers, anything else partner
func NormalizePoint(raw map[string]any) PickupPoint {
	id := firstString(raw, "point_id", "name", "id")
	name := firstString(raw, "name", "point_id", "id")

	var address string
	switch v := raw["address"].(type) {
	case string:
		address = v
	case map[string]any:
		address = firstString(v, "line1", "street", "address")
	}

	var lat, lng float64
	if location, ok := raw["location"].(map[string]any); ok {
		lat = numberValue(location["latitude"])
		lng = numberValue(location["longitude"])
	}
	if lat == 0 {
		lat = firstNumber(raw, "lat", "latitude")
	}
	if lng == 0 {
		lng = firstNumber(raw, "lng", "longitude")
	}

	pointType := TypePartner
	if t, _ := raw["type"].(string); t == TypeLocker || t == "parcel_locker" {
		pointType = TypeLocker
	}

	return PickupPoint{
		PointID:     id,
		Name:        name,
		Address:     address,
		Lat:         lat,
		Lng:         lng,
		Type:        pointType,
		Hours:       firstString(raw, "opening_hours", "hours"),
		Description: firstString(raw, "description"),
		ImageURL:    firstString(raw, "image_url"),
	}
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := raw[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

func firstNumber(raw map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if value := numberValue(raw[key]); value != 0 {
			return value
		}
	}
	return 0
}

func numberValue(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case json.Number:
		parsed, _ := v.Float64()
		return parsed
	}
	return 0
}

package inpost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/servicelab/portal/internal/cache"
)

const methodsCacheTTL = 5 * time.Minute

// LiveGateway talks to the real carrier API through the retrying client.
// It does not retry beyond what the client already provides; non-OK carrier
// responses surface as errors carrying the raw body text.
type LiveGateway struct {
	client   *Client
	cache    cache.Provider
	fallback *MockGateway
	logger   *slog.Logger
}

func NewLiveGateway(client *Client, cacheProvider cache.Provider, logger *slog.Logger) (*LiveGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("carrier client is required")
	}

	fallback, err := NewMockGateway()
	if err != nil {
		return nil, err
	}

	return &LiveGateway{
		client:   client,
		cache:    cacheProvider,
		fallback: fallback,
		logger:   logger,
	}, nil
}

// ListMethods fetches the carrier service catalog, cached for a few
// minutes. When the carrier call fails the fixture list is served so the
// shipping selector stays usable.
func (g *LiveGateway) ListMethods(ctx context.Context) ([]ShippingMethod, error) {
	cacheKey := cache.MethodsKey(CarrierName)

	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, cacheKey); err == nil {
			var methods []ShippingMethod
			if err := json.Unmarshal([]byte(cached), &methods); err == nil {
				return methods, nil
			}
		}
	}

	resp, err := g.client.Request(ctx, http.MethodGet, "/services", nil, nil)
	if err != nil {
		g.logger.Warn("carrier method listing failed, serving fixtures", "error", err)
		return g.fallback.ListMethods(ctx)
	}
	if !resp.OK() {
		g.logger.Warn("carrier method listing rejected, serving fixtures", "status", resp.StatusCode)
		return g.fallback.ListMethods(ctx)
	}

	var methods []ShippingMethod
	if err := json.Unmarshal(resp.Body, &methods); err != nil {
		g.logger.Warn("carrier method listing unreadable, serving fixtures", "error", err)
		return g.fallback.ListMethods(ctx)
	}

	ordered := SortMethods(methods)
	if g.cache != nil {
		if encoded, err := json.Marshal(ordered); err == nil {
			if err := g.cache.Set(ctx, cacheKey, string(encoded), methodsCacheTTL); err != nil {
				g.logger.Warn("failed to cache shipping methods", "error", err)
			}
		}
	}
	return ordered, nil
}

func (g *LiveGateway) SearchPoints(ctx context.Context, query PointQuery) ([]PickupPoint, error) {
	params := url.Values{}
	if query.Query != "" {
		params.Set("q", query.Query)
	}
	if query.Lat != nil && query.Lng != nil {
		params.Set("latitude", strconv.FormatFloat(*query.Lat, 'f', -1, 64))
		params.Set("longitude", strconv.FormatFloat(*query.Lng, 'f', -1, 64))
	}
	if query.Type != "" {
		params.Set("type", query.Type)
	}

	resp, err := g.client.Request(ctx, http.MethodGet, "/points?"+params.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("inpost points error: %s", resp.Body)
	}

	return ParsePointsResponse(resp.Body)
}

func (g *LiveGateway) CreateShipment(ctx context.Context, payload ShipmentPayload) (CreateShipmentResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return CreateShipmentResult{}, fmt.Errorf("encode shipment payload: %w", err)
	}

	resp, err := g.client.Request(ctx, http.MethodPost, "/shipments", body, nil)
	if err != nil {
		return CreateShipmentResult{}, err
	}
	if !resp.OK() {
		return CreateShipmentResult{}, fmt.Errorf("inpost shipment error: %s", resp.Body)
	}

	var result CreateShipmentResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return CreateShipmentResult{}, fmt.Errorf("decode shipment response: %w", err)
	}
	return result, nil
}

func (g *LiveGateway) GetLabel(ctx context.Context, shipmentID, format string) ([]byte, error) {
	if format == "" {
		format = "pdf"
	}

	header := http.Header{}
	header.Set("Accept", "application/pdf")

	path := fmt.Sprintf("/shipments/%s/label?format=%s", url.PathEscape(shipmentID), url.QueryEscape(format))
	resp, err := g.client.Request(ctx, http.MethodGet, path, nil, header)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("inpost label error: %s", resp.Body)
	}
	return resp.Body, nil
}

func (g *LiveGateway) Track(ctx context.Context, trackingNumber string) (TrackingInfo, error) {
	resp, err := g.client.Request(ctx, http.MethodGet, "/tracking/"+url.PathEscape(trackingNumber), nil, nil)
	if err != nil {
		return TrackingInfo{}, err
	}
	if !resp.OK() {
		return TrackingInfo{}, fmt.Errorf("inpost tracking error: %s", resp.Body)
	}

	var info TrackingInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return TrackingInfo{}, fmt.Errorf("decode tracking response: %w", err)
	}
	return info, nil
}

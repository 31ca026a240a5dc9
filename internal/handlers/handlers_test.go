package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/servicelab/portal/internal/auth"
	"github.com/servicelab/portal/internal/config"
	"github.com/servicelab/portal/internal/db"
	"github.com/servicelab/portal/internal/inpost"
	"github.com/servicelab/portal/internal/models"
	"github.com/servicelab/portal/internal/ratelimit"
	"github.com/servicelab/portal/internal/services"
	"github.com/servicelab/portal/internal/storage"
)

const (
	testJWTSecret     = "handler-test-secret"
	testWebhookSecret = "webhook-test-secret"
)

type memShipmentStore struct {
	shipments map[uuid.UUID]*models.Shipment
	events    int
}

func newMemShipmentStore() *memShipmentStore {
	return &memShipmentStore{shipments: make(map[uuid.UUID]*models.Shipment)}
}

func (m *memShipmentStore) add(shipment *models.Shipment) *models.Shipment {
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	m.shipments[shipment.ID] = shipment
	return shipment
}

func (m *memShipmentStore) Create(_ context.Context, shipment *models.Shipment) (*models.Shipment, bool, error) {
	for _, existing := range m.shipments {
		if existing.OrderID == shipment.OrderID && existing.Carrier == shipment.Carrier {
			return existing, false, nil
		}
	}
	return m.add(shipment), true, nil
}

func (m *memShipmentStore) GetByOrderAndCarrier(_ context.Context, orderID, carrier string) (*models.Shipment, error) {
	for _, shipment := range m.shipments {
		if shipment.OrderID == orderID && shipment.Carrier == carrier {
			return shipment, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memShipmentStore) GetByIDAndUser(_ context.Context, id uuid.UUID, userID string) (*models.Shipment, error) {
	if shipment, ok := m.shipments[id]; ok && shipment.UserID == userID {
		return shipment, nil
	}
	return nil, db.ErrNotFound
}

func (m *memShipmentStore) GetByTrackingNumber(_ context.Context, trackingNumber string) (*models.Shipment, error) {
	for _, shipment := range m.shipments {
		if shipment.TrackingNumber == trackingNumber {
			return shipment, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memShipmentStore) ListByUser(_ context.Context, userID string) ([]*models.Shipment, error) {
	var out []*models.Shipment
	for _, shipment := range m.shipments {
		if shipment.UserID == userID {
			out = append(out, shipment)
		}
	}
	return out, nil
}

func (m *memShipmentStore) UpdateLabelPath(_ context.Context, id uuid.UUID, path string) error {
	if shipment, ok := m.shipments[id]; ok {
		shipment.LabelStoragePath = path
		return nil
	}
	return db.ErrNotFound
}

func (m *memShipmentStore) AppendEvent(_ context.Context, event *models.ShipmentEvent) error {
	m.events++
	if shipment, ok := m.shipments[event.ShipmentID]; ok {
		shipment.Status = event.Status
	}
	return nil
}

type memRepairStore struct{}

func (memRepairStore) Create(_ context.Context, repair *models.Repair) error {
	repair.ID = uuid.New()
	return nil
}
func (memRepairStore) GetByID(context.Context, uuid.UUID) (*models.Repair, error) {
	return nil, db.ErrNotFound
}
func (memRepairStore) GetByIDAndUser(context.Context, uuid.UUID, string) (*models.Repair, error) {
	return nil, db.ErrNotFound
}
func (memRepairStore) ListByUser(context.Context, string) ([]*models.Repair, error) { return nil, nil }
func (memRepairStore) ListAll(context.Context) ([]*models.Repair, error)           { return nil, nil }
func (memRepairStore) UpdateStatus(context.Context, uuid.UUID, models.RepairStatus) error {
	return db.ErrNotFound
}

type memEstimateStore struct{}

func (memEstimateStore) Create(context.Context, *models.CostEstimate) error { return nil }
func (memEstimateStore) GetByID(context.Context, uuid.UUID) (*models.CostEstimate, error) {
	return nil, db.ErrNotFound
}
func (memEstimateStore) ListByRepair(context.Context, uuid.UUID) ([]*models.CostEstimate, error) {
	return nil, nil
}
func (memEstimateStore) Decide(context.Context, uuid.UUID, models.EstimateStatus) error {
	return db.ErrNotFound
}
func (memEstimateStore) SetCheckoutSession(context.Context, uuid.UUID, string) error {
	return db.ErrNotFound
}
func (memEstimateStore) MarkPaidBySession(context.Context, string, time.Time) (*models.CostEstimate, error) {
	return nil, db.ErrNotFound
}

type testEnv struct {
	handlers *Handlers
	router   *mux.Router
	store    *memShipmentStore
}

func newTestEnv(t *testing.T, rateLimit int) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AuthJWTSecret:       testJWTSecret,
		InpostWebhookSecret: testWebhookSecret,
		SenderName:          "ServiceLab",
		SenderCountry:       "PL",
		DefaultWeightKg:     1,
		DefaultLengthCm:     10,
		DefaultWidthCm:      10,
		DefaultHeightCm:     10,
	}

	gateway, err := inpost.NewMockGateway()
	if err != nil {
		t.Fatalf("NewMockGateway() error: %v", err)
	}

	limiter, err := ratelimit.NewLimiter(ratelimit.Config{
		Provider: "memory",
		Limit:    rateLimit,
		Window:   time.Minute,
	})
	if err != nil {
		t.Fatalf("NewLimiter() error: %v", err)
	}
	t.Cleanup(func() { _ = limiter.Close() })

	store := newMemShipmentStore()
	shipments := services.NewShipmentService(store, gateway, storage.NewMemoryStore(), cfg)
	repairs := services.NewRepairService(memRepairStore{}, nil, "")
	estimates := services.NewEstimateService(memEstimateStore{}, memRepairStore{}, nil)

	h, err := New(Dependencies{
		Config:    cfg,
		Gateway:   gateway,
		Limiter:   limiter,
		Verifier:  auth.NewVerifier(testJWTSecret),
		Shipments: shipments,
		Repairs:   repairs,
		Estimates: estimates,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/api/shipping/methods", h.ShippingMethods).Methods("GET")
	router.HandleFunc("/webhooks/inpost", h.InpostWebhook).Methods("POST")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.RequireUser)
	api.HandleFunc("/shipments", h.CreateShipment).Methods("POST")
	api.HandleFunc("/shipments/{id}/label", h.ShipmentLabel).Methods("GET")

	return &testEnv{handlers: h, router: router, store: store}
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return "Bearer " + token
}

func signBody(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestInpostWebhookSignature(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)
	shipment := env.store.add(&models.Shipment{
		OrderID:        "order-1",
		UserID:         "user-1",
		Carrier:        "inpost",
		TrackingNumber: "INPOST123456789",
		Status:         models.ShipmentCreated,
	})

	body := `{"tracking_number":"INPOST123456789","status":"in_transit"}`

	r := httptest.NewRequest(http.MethodPost, "/webhooks/inpost", strings.NewReader(body))
	r.Header.Set("x-inpost-signature", signBody(body, testWebhookSecret))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body)
	}
	var resp map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || !resp["ok"] {
		t.Fatalf("body = %s, want {\"ok\":true}", w.Body)
	}
	if shipment.Status != models.ShipmentInTransit {
		t.Fatalf("shipment status = %q, want in_transit", shipment.Status)
	}

	// Tampered signature is rejected before processing.
	r = httptest.NewRequest(http.MethodPost, "/webhooks/inpost", strings.NewReader(body))
	r.Header.Set("x-inpost-signature", signBody(body+"x", testWebhookSecret))
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("tampered signature status = %d, want 401", w.Code)
	}

	// Malformed JSON with a valid signature is a server-side failure.
	bad := `{"tracking_number":`
	r = httptest.NewRequest(http.MethodPost, "/webhooks/inpost", strings.NewReader(bad))
	r.Header.Set("x-inpost-signature", signBody(bad, testWebhookSecret))
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("malformed body status = %d, want 500", w.Code)
	}
}

func TestShippingMethodsRateLimited(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 3)

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/api/shipping/methods", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/api/shipping/methods", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}

	// A different client still gets through.
	r = httptest.NewRequest(http.MethodGet, "/api/shipping/methods", nil)
	r.Header.Set("X-Forwarded-For", "198.51.100.9")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("other client status = %d, want 200", w.Code)
	}
}

func TestCreateShipmentEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)
	body := `{
		"order_id": "order-9",
		"service_code": "inpost_locker_standard",
		"type": "locker",
		"receiver": {
			"name": "Jan Kowalski",
			"phone": "+48123456789",
			"email": "jan@example.com"
		},
		"pickup_point_id": "WAW01A"
	}`

	r := httptest.NewRequest(http.MethodPost, "/api/shipments", strings.NewReader(body))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", w.Code)
	}

	r = httptest.NewRequest(http.MethodPost, "/api/shipments", strings.NewReader(body))
	r.Header.Set("Authorization", bearerToken(t, "user-1"))
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body)
	}

	r = httptest.NewRequest(http.MethodPost, "/api/shipments", strings.NewReader(body))
	r.Header.Set("Authorization", bearerToken(t, "user-1"))
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("repeated status = %d, want 200, body %s", w.Code, w.Body)
	}
	var resp struct {
		Reused bool `json:"reused"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || !resp.Reused {
		t.Fatalf("body = %s, want reused:true", w.Body)
	}
}

func TestShipmentLabelRequiresCarrierID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)
	shipment := env.store.add(&models.Shipment{
		OrderID: "order-7",
		UserID:  "user-1",
		Carrier: "inpost",
		Status:  models.ShipmentCreated,
	})

	r := httptest.NewRequest(http.MethodGet, "/api/shipments/"+shipment.ID.String()+"/label", nil)
	r.Header.Set("Authorization", bearerToken(t, "user-1"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body)
	}
}

func TestShipmentLabelServesPDF(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)
	shipment := env.store.add(&models.Shipment{
		OrderID:           "order-8",
		UserID:            "user-1",
		Carrier:           "inpost",
		CarrierShipmentID: "mock-shipment-id",
		Status:            models.ShipmentCreated,
	})

	r := httptest.NewRequest(http.MethodGet, "/api/shipments/"+shipment.ID.String()+"/label", nil)
	r.Header.Set("Authorization", bearerToken(t, "user-1"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body)
	}
	if got := w.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("Content-Type = %q", got)
	}
	wantDisposition := `inline; filename="label-` + shipment.ID.String() + `.pdf"`
	if got := w.Header().Get("Content-Disposition"); got != wantDisposition {
		t.Fatalf("Content-Disposition = %q, want %q", got, wantDisposition)
	}
	if w.Body.String() != "Mock label" {
		t.Fatalf("label body = %q", w.Body.String())
	}
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/servicelab/portal/internal/config"
	"github.com/servicelab/portal/internal/db"
	"github.com/servicelab/portal/internal/inpost"
	"github.com/servicelab/portal/internal/models"
	"github.com/servicelab/portal/internal/storage"
)

type fakeShipmentStore struct {
	byOrder    map[string]*models.Shipment
	byTracking map[string]*models.Shipment
	events     []*models.ShipmentEvent
	labelPaths map[uuid.UUID]string
}

func newFakeShipmentStore() *fakeShipmentStore {
	return &fakeShipmentStore{
		byOrder:    make(map[string]*models.Shipment),
		byTracking: make(map[string]*models.Shipment),
		labelPaths: make(map[uuid.UUID]string),
	}
}

func (f *fakeShipmentStore) Create(_ context.Context, shipment *models.Shipment) (*models.Shipment, bool, error) {
	key := shipment.OrderID + "/" + shipment.Carrier
	if existing, ok := f.byOrder[key]; ok {
		return existing, false, nil
	}
	shipment.ID = uuid.New()
	f.byOrder[key] = shipment
	if shipment.TrackingNumber != "" {
		f.byTracking[shipment.TrackingNumber] = shipment
	}
	return shipment, true, nil
}

func (f *fakeShipmentStore) GetByOrderAndCarrier(_ context.Context, orderID, carrier string) (*models.Shipment, error) {
	if shipment, ok := f.byOrder[orderID+"/"+carrier]; ok {
		return shipment, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeShipmentStore) GetByIDAndUser(_ context.Context, id uuid.UUID, userID string) (*models.Shipment, error) {
	for _, shipment := range f.byOrder {
		if shipment.ID == id && shipment.UserID == userID {
			return shipment, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeShipmentStore) GetByTrackingNumber(_ context.Context, trackingNumber string) (*models.Shipment, error) {
	if shipment, ok := f.byTracking[trackingNumber]; ok {
		return shipment, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeShipmentStore) ListByUser(_ context.Context, userID string) ([]*models.Shipment, error) {
	var shipments []*models.Shipment
	for _, shipment := range f.byOrder {
		if shipment.UserID == userID {
			shipments = append(shipments, shipment)
		}
	}
	return shipments, nil
}

func (f *fakeShipmentStore) UpdateLabelPath(_ context.Context, id uuid.UUID, path string) error {
	f.labelPaths[id] = path
	for _, shipment := range f.byOrder {
		if shipment.ID == id {
			shipment.LabelStoragePath = path
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeShipmentStore) AppendEvent(_ context.Context, event *models.ShipmentEvent) error {
	f.events = append(f.events, event)
	for _, shipment := range f.byOrder {
		if shipment.ID == event.ShipmentID {
			shipment.Status = event.Status
		}
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		SenderName:      "ServiceLab",
		SenderCountry:   "PL",
		DefaultWeightKg: 1,
		DefaultLengthCm: 10,
		DefaultWidthCm:  10,
		DefaultHeightCm: 10,
	}
}

func newShipmentService(t *testing.T, store ShipmentStore) *ShipmentService {
	t.Helper()

	gateway, err := inpost.NewMockGateway()
	if err != nil {
		t.Fatalf("NewMockGateway() error: %v", err)
	}
	return NewShipmentService(store, gateway, storage.NewMemoryStore(), testConfig())
}

func lockerRequest(orderID string) CreateShipmentRequest {
	return CreateShipmentRequest{
		OrderID:     orderID,
		ServiceCode: "inpost_locker_standard",
		Type:        "locker",
		Receiver: ReceiverRequest{
			Name:  "Jan Kowalski",
			Phone: "+48123456789",
			Email: "jan@example.com",
		},
		PickupPointID: "WAW01A",
	}
}

func TestCreateShipmentIsIdempotentPerOrder(t *testing.T) {
	t.Parallel()

	store := newFakeShipmentStore()
	svc := newShipmentService(t, store)
	ctx := context.Background()

	first, err := svc.CreateShipment(ctx, "user-1", lockerRequest("order-1"))
	if err != nil {
		t.Fatalf("CreateShipment() error: %v", err)
	}
	if first.Reused {
		t.Fatal("first creation must not be reused")
	}
	if first.Shipment.TrackingNumber != "INPOST123456789" {
		t.Fatalf("tracking number = %q", first.Shipment.TrackingNumber)
	}

	second, err := svc.CreateShipment(ctx, "user-1", lockerRequest("order-1"))
	if err != nil {
		t.Fatalf("repeated CreateShipment() error: %v", err)
	}
	if !second.Reused {
		t.Fatal("repeated creation must reuse the existing shipment")
	}
	if second.Shipment.ID != first.Shipment.ID {
		t.Fatalf("reused shipment id = %v, want %v", second.Shipment.ID, first.Shipment.ID)
	}
}

func TestCreateShipmentValidation(t *testing.T) {
	t.Parallel()

	store := newFakeShipmentStore()
	svc := newShipmentService(t, store)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateShipmentRequest)
	}{
		{
			name:   "locker without pickup point",
			mutate: func(r *CreateShipmentRequest) { r.PickupPointID = "" },
		},
		{
			name: "courier without address",
			mutate: func(r *CreateShipmentRequest) {
				r.Type = "courier"
				r.Address = nil
			},
		},
		{
			name: "courier without postal code",
			mutate: func(r *CreateShipmentRequest) {
				r.Type = "courier"
				r.Address = &AddressRequest{Line1: "ul. Prosta 5", City: "Warszawa"}
			},
		},
		{
			name:   "unknown type",
			mutate: func(r *CreateShipmentRequest) { r.Type = "drone" },
		},
		{
			name:   "missing order id",
			mutate: func(r *CreateShipmentRequest) { r.OrderID = "  " },
		},
		{
			name:   "missing receiver phone",
			mutate: func(r *CreateShipmentRequest) { r.Receiver.Phone = "" },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := lockerRequest("order-x")
			tt.mutate(&req)

			if _, err := svc.CreateShipment(ctx, "user-1", req); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateShipmentSanitizesReceiverFields(t *testing.T) {
	t.Parallel()

	store := newFakeShipmentStore()
	svc := newShipmentService(t, store)

	req := lockerRequest("order-2")
	req.Receiver.Name = "  Jan <script>Kowalski  "

	result, err := svc.CreateShipment(context.Background(), "user-1", req)
	if err != nil {
		t.Fatalf("CreateShipment() error: %v", err)
	}
	if got := result.Shipment.ReceiverName; got != "Jan scriptKowalski" {
		t.Fatalf("receiver name = %q", got)
	}
}

func TestLabelIsFetchedOnceAndServedFromStorage(t *testing.T) {
	t.Parallel()

	store := newFakeShipmentStore()
	svc := newShipmentService(t, store)
	ctx := context.Background()

	created, err := svc.CreateShipment(ctx, "user-1", lockerRequest("order-3"))
	if err != nil {
		t.Fatalf("CreateShipment() error: %v", err)
	}
	id := created.Shipment.ID

	first, err := svc.Label(ctx, "user-1", id)
	if err != nil {
		t.Fatalf("Label() error: %v", err)
	}
	if string(first) != "Mock label" {
		t.Fatalf("label body = %q", first)
	}
	if store.labelPaths[id] != storage.LabelPath(id.String()) {
		t.Fatalf("label path = %q", store.labelPaths[id])
	}

	second, err := svc.Label(ctx, "user-1", id)
	if err != nil {
		t.Fatalf("second Label() error: %v", err)
	}
	if string(second) != string(first) {
		t.Fatalf("cached label differs from first fetch")
	}
}

type failingLabelStore struct{}

func (failingLabelStore) Upload(context.Context, string, []byte, string) error {
	return errors.New("storage unavailable")
}

func (failingLabelStore) Download(context.Context, string) ([]byte, error) {
	return nil, errors.New("read timeout")
}

func TestLabelFallsBackToCarrierWhenStorageFails(t *testing.T) {
	t.Parallel()

	store := newFakeShipmentStore()
	gateway, err := inpost.NewMockGateway()
	if err != nil {
		t.Fatalf("NewMockGateway() error: %v", err)
	}
	svc := NewShipmentService(store, gateway, failingLabelStore{}, testConfig())
	ctx := context.Background()

	created, err := svc.CreateShipment(ctx, "user-1", lockerRequest("order-10"))
	if err != nil {
		t.Fatalf("CreateShipment() error: %v", err)
	}
	created.Shipment.LabelStoragePath = storage.LabelPath(created.Shipment.ID.String())

	body, err := svc.Label(ctx, "user-1", created.Shipment.ID)
	if err != nil {
		t.Fatalf("Label() must refetch on storage failures, got: %v", err)
	}
	if string(body) != "Mock label" {
		t.Fatalf("label body = %q", body)
	}
}

func TestLabelScopedToOwner(t *testing.T) {
	t.Parallel()

	store := newFakeShipmentStore()
	svc := newShipmentService(t, store)
	ctx := context.Background()

	created, err := svc.CreateShipment(ctx, "user-1", lockerRequest("order-4"))
	if err != nil {
		t.Fatalf("CreateShipment() error: %v", err)
	}

	if _, err := svc.Label(ctx, "someone-else", created.Shipment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
}

func TestTrackRecordsEventForKnownShipment(t *testing.T) {
	t.Parallel()

	store := newFakeShipmentStore()
	svc := newShipmentService(t, store)
	ctx := context.Background()

	if _, err := svc.CreateShipment(ctx, "user-1", lockerRequest("order-5")); err != nil {
		t.Fatalf("CreateShipment() error: %v", err)
	}

	// Carrier status matches the stored one; the poll is still recorded.
	info, err := svc.Track(ctx, "INPOST123456789")
	if err != nil {
		t.Fatalf("Track() error: %v", err)
	}
	if info.Status != "created" {
		t.Fatalf("tracking status = %q", info.Status)
	}
	if len(store.events) != 1 {
		t.Fatalf("events recorded = %d, want 1", len(store.events))
	}
	if store.events[0].Status != models.ShipmentCreated {
		t.Fatalf("event status = %q", store.events[0].Status)
	}
	if got := store.events[0].RawPayload["tracking_number"]; got != "INPOST123456789" {
		t.Fatalf("event raw payload tracking_number = %v, want the carrier response", got)
	}
	if _, ok := store.events[0].RawPayload["history"]; !ok {
		t.Fatal("event raw payload is missing the carrier history")
	}

	if _, err := svc.Track(ctx, "INPOST123456789"); err != nil {
		t.Fatalf("second Track() error: %v", err)
	}
	if len(store.events) != 2 {
		t.Fatalf("events recorded = %d, want one per matched poll", len(store.events))
	}
}

func TestBuildPayloadCourierCountry(t *testing.T) {
	t.Parallel()

	svc := newShipmentService(t, newFakeShipmentStore())
	req := lockerRequest("order-11")
	req.Type = "courier"
	req.PickupPointID = ""
	req.Address = &AddressRequest{
		Line1:      "ul. Prosta 5",
		PostalCode: "00-001",
		City:       "Warszawa",
		Country:    "DE",
	}

	payload := svc.buildPayload(req)
	if payload.Address == nil || payload.Address.CountryCode != "DE" {
		t.Fatalf("payload country = %+v, want DE", payload.Address)
	}

	req.Address.Country = ""
	payload = svc.buildPayload(req)
	if payload.Address.CountryCode != "PL" {
		t.Fatalf("payload country = %q, want sender default PL", payload.Address.CountryCode)
	}
}

func TestHandleWebhookEvent(t *testing.T) {
	t.Parallel()

	store := newFakeShipmentStore()
	svc := newShipmentService(t, store)
	ctx := context.Background()

	created, err := svc.CreateShipment(ctx, "user-1", lockerRequest("order-6"))
	if err != nil {
		t.Fatalf("CreateShipment() error: %v", err)
	}

	err = svc.HandleWebhookEvent(ctx, WebhookEvent{
		Tracking: "INPOST123456789",
		Status:   "in_transit",
		Message:  "Parcel left the sorting facility",
		Raw:      map[string]any{"status": "in_transit"},
	})
	if err != nil {
		t.Fatalf("HandleWebhookEvent() error: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("events recorded = %d, want 1", len(store.events))
	}
	if created.Shipment.Status != models.ShipmentInTransit {
		t.Fatalf("shipment status = %q", created.Shipment.Status)
	}

	// Unknown tracking numbers are acknowledged without an event.
	if err := svc.HandleWebhookEvent(ctx, WebhookEvent{TrackingNumber: "UNKNOWN42"}); err != nil {
		t.Fatalf("HandleWebhookEvent(unknown) error: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("unknown tracking number must not record an event")
	}
}

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"parcel-delivery-service/internal/logger"
	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/repository/memory"
	"parcel-delivery-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokens map[string]string

func (t tokens) Verify(_ context.Context, token string) (*service.VerifiedIdentity, error) {
	email, ok := t[token]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return &service.VerifiedIdentity{Email: email}, nil
}

type inlineTx struct{}

func (inlineTx) Run(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type provider struct{}

func (provider) CreatePaymentIntent(context.Context, int64, string) (string, error) {
	return "pi_secret", nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testApp struct {
	store  *memory.Store
	engine *gin.Engine
}

func newTestApp(t *testing.T, store Pinger) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := memory.NewStore()
	s.AddUser("admin@x.com", model.RoleAdmin)
	s.AddUser("a@x.com", model.RoleUser)
	s.AddUser("b@x.com", model.RoleUser)

	log := logger.Discard()
	verifier := tokens{"admin": "admin@x.com", "alice": "a@x.com", "bob": "b@x.com", "r1": "r1@x.com"}
	coord := service.NewCoordinator(s.ParcelRepo(), s.RiderRepo(), s.UserRepo(), s.PaymentRepo(), inlineTx{}, service.NopPublisher, log)

	engine := New(Deps{
		Guard:       service.NewAccessGuard(verifier, s.UserRepo()),
		Parcels:     service.NewParcelService(s.ParcelRepo()),
		Payments:    service.NewPaymentService(provider{}, s.PaymentRepo(), coord, "usd"),
		Users:       service.NewUserService(s.UserRepo()),
		Riders:      service.NewRiderService(s.RiderRepo()),
		Tracking:    service.NewTrackingService(s.TrackingRepo()),
		Coordinator: coord,
		Store:       store,
		Log:         log,
		CORSOrigins: []string{"*"},
	})
	return &testApp{store: s, engine: engine}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func TestLivenessAndHealth(t *testing.T) {
	app := newTestApp(t, pinger{})
	w := app.do(t, "GET", "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "running")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusOK, app.do(t, "GET", "/healthz", "", nil).Code)

	down := newTestApp(t, pinger{err: errors.New("no primary")})
	assert.Equal(t, http.StatusServiceUnavailable, down.do(t, "GET", "/healthz", "", nil).Code)
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	app := newTestApp(t, nil)
	rider := app.store.AddRider("r1@x.com", model.RiderPending)
	parcel := app.store.AddParcel("a@x.com", model.DeliveryNotCollected, model.PaymentPaid)

	requests := []struct {
		method, path string
		body         any
	}{
		{"GET", "/parcels/admin", nil},
		{"PATCH", "/parcels/assign-rider", map[string]string{"parcelId": parcel.ID.Hex(), "riderId": rider.ID.Hex()}},
		{"PATCH", "/riders/assign-rider", map[string]string{"parcelId": parcel.ID.Hex(), "riderId": rider.ID.Hex()}},
		{"GET", "/all-payments", nil},
		{"GET", "/user/search?email=a", nil},
		{"PATCH", "/user/update-role", map[string]string{"email": "a@x.com", "role": "admin"}},
		{"GET", "/riders/pending", nil},
		{"GET", "/riders/active", nil},
		{"PATCH", "/riders/approve/" + rider.ID.Hex(), nil},
		{"PATCH", "/riders/deactivate/" + rider.ID.Hex(), nil},
		{"DELETE", "/riders/" + rider.ID.Hex(), nil},
	}

	before := app.store.Writes
	for _, rq := range requests {
		w := app.do(t, rq.method, rq.path, "alice", rq.body)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s", rq.method, rq.path)
	}
	assert.Equal(t, before, app.store.Writes)
	assert.Equal(t, model.RoleUser, app.store.Identities["a@x.com"].Role)
	assert.Equal(t, model.RiderPending, app.store.Riders[rider.ID].Status)
}

func TestAuthenticatedRoutesRequireHeader(t *testing.T) {
	app := newTestApp(t, nil)
	paths := []struct{ method, path string }{
		{"GET", "/parcels"},
		{"GET", "/parcels/abc"},
		{"POST", "/parcels"},
		{"DELETE", "/parcels/abc"},
		{"POST", "/create-payment-intent"},
		{"POST", "/save-payment"},
		{"GET", "/my-payments/a@x.com"},
		{"POST", "/tracking"},
		{"GET", "/user/role"},
		{"POST", "/riders"},
		{"GET", "/parcels/admin"},
	}
	for _, p := range paths {
		w := app.do(t, p.method, p.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}

	req := httptest.NewRequest("GET", "/parcels", http.NoBody)
	req.Header.Set("Authorization", "alice")
	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, http.StatusForbidden, app.do(t, "GET", "/parcels", "forged", nil).Code)
}

func TestPublicRoutes(t *testing.T) {
	app := newTestApp(t, nil)
	app.store.AddRider("r1@x.com", model.RiderActive)

	w := app.do(t, "GET", "/riders?district=DHAKA", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var riders []model.Rider
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &riders))
	assert.Len(t, riders, 1)

	w = app.do(t, "POST", "/users", "", map[string]string{"email": "new@x.com", "name": "New"})
	assert.Equal(t, http.StatusCreated, w.Code)
	w = app.do(t, "POST", "/users", "", map[string]string{"email": "new@x.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"user already exists","inserted":false,"updated":true}`, w.Body.String())
	assert.Equal(t, model.RoleUser, app.store.Identities["new@x.com"].Role)
}

func TestMyPaymentsOwnerCheck(t *testing.T) {
	app := newTestApp(t, nil)
	parcel := app.store.AddParcel("b@x.com", model.DeliveryNotCollected, model.PaymentUnpaid)

	w := app.do(t, "POST", "/save-payment", "bob", map[string]any{
		"transactionId": "pi_1", "amount": 20, "parcelId": parcel.ID.Hex(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assert.Equal(t, http.StatusForbidden, app.do(t, "GET", "/my-payments/b@x.com", "alice", nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, "GET", "/my-payments/nobody@x.com", "alice", nil).Code)

	w = app.do(t, "GET", "/my-payments/b@x.com", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payments []model.Payment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payments))
	require.Len(t, payments, 1)
	assert.Equal(t, "pi_1", payments[0].TransactionID)
	assert.Equal(t, model.PaymentPaid, app.store.Parcels[parcel.ID].PaymentStatus)
}

func TestParcelListingIsScopedToOwner(t *testing.T) {
	app := newTestApp(t, nil)
	app.store.AddParcel("a@x.com", model.DeliveryNotCollected, model.PaymentUnpaid)
	app.store.AddParcel("b@x.com", model.DeliveryNotCollected, model.PaymentUnpaid)
	app.store.AddParcel("b@x.com", model.DeliveryInTransit, model.PaymentPaid)

	w := app.do(t, "GET", "/parcels?email=b@x.com", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []model.Parcel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "a@x.com", mine[0].CreatedBy)

	w = app.do(t, "GET", "/parcels", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []model.Parcel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 3)
}

func TestParcelValidation(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(t, "POST", "/parcels", "alice", map[string]any{"title": "x", "type": "crate"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Details, "sender_name is required")
	assert.Contains(t, body.Details, "type must be one of [document non-document]")

	w = app.do(t, "PATCH", "/parcels/assign-rider", "admin", map[string]string{"parcelId": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNotFound, app.do(t, "GET", "/parcels/65f000000000000000000000", "alice", nil).Code)
}

func TestRiderOnboardingAndAssignment(t *testing.T) {
	app := newTestApp(t, nil)
	app.store.AddUser("r1@x.com", model.RoleUser)
	parcel := app.store.AddParcel("a@x.com", model.DeliveryNotCollected, model.PaymentPaid)

	w := app.do(t, "POST", "/riders", "r1", map[string]string{"email": "r1@x.com", "district": "Dhaka"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var applied struct {
		InsertedID string      `json:"insertedId"`
		Rider      model.Rider `json:"rider"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &applied))
	assert.Equal(t, model.RiderPending, applied.Rider.Status)
	riderID := applied.InsertedID

	w = app.do(t, "PATCH", "/riders/approve/"+riderID, "admin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.RoleRider, app.store.Identities["r1@x.com"].Role)

	w = app.do(t, "GET", "/user/role", "r1", nil)
	assert.JSONEq(t, `{"role":"rider"}`, w.Body.String())

	w = app.do(t, "PATCH", "/riders/assign-rider", "admin", map[string]string{"parcelId": parcel.ID.Hex(), "riderId": riderID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p := app.store.Parcels[parcel.ID]
	assert.Equal(t, model.DeliveryInTransit, p.DeliveryStatus)
	require.NotNil(t, p.AssignedRider)
	assert.Equal(t, riderID, p.AssignedRider.Hex())
	assert.NotNil(t, p.AssignedAt)
	assert.Equal(t, model.WorkInDelivery, app.store.Riders[*p.AssignedRider].WorkStatus)

	w = app.do(t, "GET", "/parcels/assigned", "r1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var assigned []model.Parcel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &assigned))
	assert.Len(t, assigned, 1)

	w = app.do(t, "PATCH", "/parcels/"+parcel.ID.Hex()+"/deliver", "r1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.DeliveryDelivered, app.store.Parcels[parcel.ID].DeliveryStatus)
	assert.Equal(t, model.WorkIdle, app.store.Riders[*p.AssignedRider].WorkStatus)

	w = app.do(t, "PATCH", "/riders/deactivate/"+riderID, "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.RoleUser, app.store.Identities["r1@x.com"].Role)
	assert.Equal(t, model.RiderPending, app.store.Riders[*p.AssignedRider].Status)
}

func TestTrackingRoutes(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(t, "POST", "/tracking", "alice", map[string]string{"trackingId": "PCL-1", "status": "picked_up"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(t, "GET", "/tracking/PCL-1", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []model.TrackingEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "picked_up", events[0].Status)
}

func TestPaymentIntent(t *testing.T) {
	app := newTestApp(t, nil)
	w := app.do(t, "POST", "/create-payment-intent", "alice", map[string]any{"amount": 12.5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"clientSecret":"pi_secret"}`, w.Body.String())

	w = app.do(t, "POST", "/create-payment-intent", "alice", map[string]any{"amount": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallersWithoutIdentityRecordAreForbidden(t *testing.T) {
	app := newTestApp(t, nil)
	parcel := app.store.AddParcel("a@x.com", model.DeliveryNotCollected, model.PaymentUnpaid)

	requests := []struct {
		method, path string
		body         any
	}{
		{"GET", "/parcels", nil},
		{"POST", "/parcels", map[string]any{
			"title": "box", "type": "document",
			"sender_name": "R", "sender_district": "Dhaka",
			"receiver_name": "A", "receiver_district": "Khulna",
		}},
		{"POST", "/riders", map[string]string{"district": "Dhaka"}},
		{"POST", "/save-payment", map[string]any{"transactionId": "pi_x", "amount": 5, "parcelId": parcel.ID.Hex()}},
		{"POST", "/tracking", map[string]string{"trackingId": "PCL-1", "status": "picked_up"}},
		{"POST", "/create-payment-intent", map[string]any{"amount": 5}},
		{"GET", "/my-payments/r1@x.com", nil},
	}

	before := app.store.Writes
	for _, rq := range requests {
		w := app.do(t, rq.method, rq.path, "r1", rq.body)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s", rq.method, rq.path)
	}
	assert.Equal(t, before, app.store.Writes)
	assert.Empty(t, app.store.Riders)
	assert.Empty(t, app.store.Payments)
	assert.Empty(t, app.store.Tracking)

	assert.Equal(t, http.StatusNotFound, app.do(t, "GET", "/user/role", "r1", nil).Code)
}

func TestRiderRolePairing(t *testing.T) {
	app := newTestApp(t, nil)

	// The admin files an application for an email that never logged in.
	w := app.do(t, "POST", "/riders", "admin", map[string]string{"email": "r1@x.com", "district": "Dhaka"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var applied struct {
		InsertedID string `json:"insertedId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &applied))

	w = app.do(t, "PATCH", "/riders/approve/"+applied.InsertedID, "admin", nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	for _, r := range app.store.Riders {
		assert.Equal(t, model.RiderPending, r.Status)
	}

	w = app.do(t, "PATCH", "/user/update-role", "admin", map[string]string{"email": "a@x.com", "role": "rider"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, model.RoleUser, app.store.Identities["a@x.com"].Role)

	app.store.AddUser("r1@x.com", model.RoleUser)
	w = app.do(t, "PATCH", "/riders/approve/"+applied.InsertedID, "admin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.RoleRider, app.store.Identities["r1@x.com"].Role)

	w = app.do(t, "PATCH", "/user/update-role", "admin", map[string]string{"email": "r1@x.com", "role": "user"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, model.RoleRider, app.store.Identities["r1@x.com"].Role)
}

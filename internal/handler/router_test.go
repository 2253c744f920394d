package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/handler"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/cache"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestV1_UnavailableWithoutBackend(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/me/modules", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

// ============================================================
// Full flow against a fake PostgREST
// ============================================================

const testJWTSecret = "test-jwt-secret-test-jwt-secret-0123"

type testEnv struct {
	router http.Handler
	db     *fakePostgREST
	auth   *service.AuthService
}

func ts(d time.Duration) string {
	return time.Now().Add(d).UTC().Format(time.RFC3339)
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newFakePostgREST()
	db.seed("configurations", `[
		{"key":"tiempo_cancelacion","value":"60","active":true},
		{"key":"tiempo_minimo_reserva","value":"120","active":true}
	]`)
	db.seed("profiles", `[
		{"user_id":"u-admin","role_id":"admin"},
		{"user_id":"u-recep","role_id":"recepcion"}
	]`)
	db.seed("role_permissions", `[
		{"role_id":"admin","permission_code":"citas"},
		{"role_id":"admin","permission_code":"configuracion"},
		{"role_id":"admin","permission_code":"inventario"},
		{"role_id":"recepcion","permission_code":"citas"}
	]`)
	db.seed("modules", `[
		{"id":"m1","code":"citas","name":"Agenda","sort_order":1,"active":true},
		{"id":"m2","code":"citas_calendario","name":"Calendario","parent_id":"m1","sort_order":1,"active":true},
		{"id":"m3","code":"inventario","name":"Inventario","sort_order":2,"active":true},
		{"id":"m4","code":"configuracion","name":"Configuración","sort_order":3,"active":true}
	]`)
	db.seed("appointments", fmt.Sprintf(`[
		{"id":"a-far","client_id":"c1","employee_id":"e1","service_id":"s1","appointment_datetime":%q,"status":"confirmada"},
		{"id":"a-near","client_id":"c1","employee_id":"e1","service_id":"s1","appointment_datetime":%q,"status":"reservada"},
		{"id":"a-gone","client_id":"c2","employee_id":"e1","service_id":"s1","appointment_datetime":%q,"status":"cancelada"}
	]`, ts(3*time.Hour), ts(30*time.Minute), ts(5*time.Hour)))
	db.seed("inventory", `[
		{"product_id":"p1","location_id":"l1","quantity":5,"min_stock":2}
	]`)

	srv := httptest.NewServer(db)
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	client := supabase.NewClient(
		&http.Client{Timeout: 2 * time.Second},
		srv.URL, "anon", "service",
		resilience.NewCircuitBreaker("supabase", logger),
		resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxConcurrency: 8},
		logger,
	)

	permCache := cache.New[[]string](time.Minute)
	t.Cleanup(permCache.Close)

	auth := service.NewAuthService(testJWTSecret, logger)
	router := handler.NewRouter(handler.Services{
		Appointments: service.NewAppointmentService(client, client, nil, metrics, logger),
		Permissions:  service.NewPermissionService(client, permCache, metrics, logger),
		Inventory:    service.NewInventoryService(client, nil, metrics, logger),
		Auth:         auth,
		Backend:      client,
	}, metrics, logger)

	return &testEnv{router: router, db: db, auth: auth}
}

func (e *testEnv) do(t *testing.T, user, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		token, err := e.auth.SignAccessToken(user, user+"@salon.mx", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAuthRequired(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "", http.MethodGet, "/v1/me/modules", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/me/modules", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz_PingsBackend(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "", http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[domain.HealthStatus](t, rec)
	assert.Equal(t, "healthy", health.Status)
	assert.Len(t, health.Services, 2)
}

func TestMyModules(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "u-recep", http.MethodGet, "/v1/me/modules", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[domain.ModulesResponse](t, rec)
	assert.Equal(t, []string{"citas"}, resp.Permissions)
	require.Len(t, resp.Modules, 1)
	assert.Equal(t, "citas", resp.Modules[0].Code)
	assert.Empty(t, resp.Modules[0].Children, "parent grant does not include children")

	rec = env.do(t, "u-nobody", http.MethodGet, "/v1/me/modules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[domain.ModulesResponse](t, rec).Modules)
}

func TestMyPermission(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "u-recep", http.MethodGet, "/v1/me/permissions/inventario", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["granted"])
}

func TestPermissionGuard(t *testing.T) {
	env := setupEnv(t)

	assert.Equal(t, http.StatusForbidden, env.do(t, "u-recep", http.MethodGet, "/v1/inventory", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, "u-recep", http.MethodGet, "/v1/settings/time-windows", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, "u-nobody", http.MethodGet, "/v1/appointments", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, "u-recep", http.MethodGet, "/v1/appointments", nil).Code)
}

func TestTimeWindowsEndpoint(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "u-admin", http.MethodGet, "/v1/settings/time-windows", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	tw := decode[domain.TimeWindowSettings](t, rec)
	assert.Equal(t, 60, tw.Cancellation.Minutes)
	assert.Equal(t, "1 hora", tw.Cancellation.LeadTime)
	assert.Equal(t, "2 horas", tw.Reservation.LeadTime)
}

func TestCancellationFlow(t *testing.T) {
	env := setupEnv(t)

	t.Run("check reports too close", func(t *testing.T) {
		rec := env.do(t, "u-recep", http.MethodGet, "/v1/appointments/a-near/cancellation", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		d := decode[domain.Decision](t, rec)
		assert.False(t, d.Allowed)
		assert.Equal(t, domain.ReasonTooClose, d.Reason)
	})

	t.Run("too close is 422 with decision", func(t *testing.T) {
		rec := env.do(t, "u-recep", http.MethodPost, "/v1/appointments/a-near/cancel", nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.Contains(t, body["error"], "1 hora")
		assert.NotNil(t, body["decision"])
	})

	t.Run("allowed cancel updates the row", func(t *testing.T) {
		rec := env.do(t, "u-recep", http.MethodPost, "/v1/appointments/a-far/cancel", domain.CancelRequest{Reason: "viaje"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[domain.CancelResponse](t, rec)
		assert.True(t, resp.Success)
		assert.Equal(t, domain.StatusCancelled, resp.Data.Status)
		assert.Equal(t, "viaje", resp.Data.CancellationReason)
	})

	t.Run("second cancel is 409", func(t *testing.T) {
		rec := env.do(t, "u-recep", http.MethodPost, "/v1/appointments/a-far/cancel", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown appointment is 404", func(t *testing.T) {
		rec := env.do(t, "u-recep", http.MethodGet, "/v1/appointments/nope/cancellation", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReservationFlow(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "u-recep", http.MethodPost, "/v1/reservations/check", map[string]any{
		"appointment_datetime": ts(90 * time.Minute),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[domain.Decision](t, rec).Allowed)

	rec = env.do(t, "u-recep", http.MethodPost, "/v1/reservations", map[string]any{
		"client_id":            "c9",
		"employee_id":          "e1",
		"service_id":           "s1",
		"appointment_datetime": ts(90 * time.Minute),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, "u-recep", http.MethodPost, "/v1/reservations", map[string]any{
		"client_id":            "c9",
		"employee_id":          "e1",
		"service_id":           "s1",
		"appointment_datetime": ts(4 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, env.db.rows("appointments"), 4)

	rec = env.do(t, "u-recep", http.MethodPost, "/v1/reservations", map[string]any{
		"client_id":            "c9",
		"employee_id":          "e1",
		"service_id":           "s1",
		"appointment_datetime": ts(-time.Hour),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, "u-recep", http.MethodPost, "/v1/reservations", map[string]any{"unexpected": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransitionEndpoints(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "u-recep", http.MethodPost, "/v1/appointments/a-near/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, "u-recep", http.MethodPost, "/v1/appointments/a-gone/confirm", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, "u-recep", http.MethodPost, "/v1/appointments/a-near/lost", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryFlow(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "u-admin", http.MethodPost, "/v1/inventory/p1/l1/adjust", domain.AdjustStockRequest{Delta: -3, Reason: "venta"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[domain.InventoryItem](t, rec).Quantity)
	assert.Len(t, env.db.rows("stock_movements"), 1)

	rec = env.do(t, "u-admin", http.MethodPost, "/v1/inventory/p1/l1/adjust", domain.AdjustStockRequest{Delta: -3})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, "u-admin", http.MethodPut, "/v1/inventory/p2/l1", domain.SetStockRequest{Quantity: 8})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, "u-admin", http.MethodGet, "/v1/inventory/totals?location_id=l1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	totals := decode[domain.InventoryTotals](t, rec)
	assert.Equal(t, 2, totals.Products)
	assert.Equal(t, 10, totals.Units)
	assert.Equal(t, 1, totals.LowStockItems)

	rec = env.do(t, "u-admin", http.MethodGet, "/v1/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[domain.ListResponse[domain.InventoryItem]](t, rec).Total)
}

func TestPolicyMetricsEndpoint(t *testing.T) {
	env := setupEnv(t)

	env.do(t, "u-recep", http.MethodGet, "/v1/appointments/a-near/cancellation", nil)
	env.do(t, "u-recep", http.MethodGet, "/v1/appointments/a-far/cancellation", nil)

	rec := env.do(t, "u-recep", http.MethodGet, "/v1/metrics/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[domain.PolicyMetrics](t, rec)
	assert.Equal(t, int64(2), snap.CancelChecks)
	assert.Equal(t, int64(1), snap.CancelDenied)
}

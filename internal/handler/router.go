package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether the data backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the use cases exposed over HTTP. Any of them may be nil
// when the backend is not configured; their routes then answer 503.
type Services struct {
	Appointments *service.AppointmentService
	Permissions  *service.PermissionService
	Inventory    *service.InventoryService
	Auth         *service.AuthService
	Backend      Pinger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(observability.MetricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Backend, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if svc.Auth == nil || svc.Permissions == nil || svc.Appointments == nil || svc.Inventory == nil {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "api unavailable: Supabase not configured")
			}))
			return
		}

		r.Use(JWTAuthMiddleware(svc.Auth, logger))

		// =============================================
		// 1. Usuario y permisos
		// =============================================
		r.Get("/me/modules", myModulesHandler(svc.Permissions, logger))
		r.Get("/me/permissions/{code}", myPermissionHandler(svc.Permissions, logger))

		// =============================================
		// 2. Configuración de ventanas de tiempo
		// =============================================
		r.With(RequirePermission(svc.Permissions, domain.PermSettings, logger)).
			Get("/settings/time-windows", timeWindowsHandler(svc.Appointments, logger))

		// =============================================
		// 3. Citas
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(RequirePermission(svc.Permissions, domain.PermAppointments, logger))

			r.Get("/appointments", listAppointmentsHandler(svc.Appointments, logger))
			r.Get("/appointments/{id}", getAppointmentHandler(svc.Appointments, logger))
			r.Get("/appointments/{id}/cancellation", checkCancellationHandler(svc.Appointments, logger))
			r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(svc.Appointments, logger))
			r.Post("/appointments/{id}/confirm", transitionHandler(svc.Appointments.Confirm, "Cita confirmada", logger))
			r.Post("/appointments/{id}/finish", transitionHandler(svc.Appointments.Finish, "Cita finalizada", logger))
			r.Post("/appointments/{id}/lost", transitionHandler(svc.Appointments.MarkLost, "Cita marcada como perdida", logger))

			r.Post("/reservations/check", checkReservationHandler(svc.Appointments, logger))
			r.Post("/reservations", reserveHandler(svc.Appointments, logger))
		})

		// =============================================
		// 4. Inventario
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(RequirePermission(svc.Permissions, domain.PermInventory, logger))

			r.Get("/inventory", listInventoryHandler(svc.Inventory, logger))
			r.Get("/inventory/totals", inventoryTotalsHandler(svc.Inventory, logger))
			r.Put("/inventory/{productId}/{locationId}", setStockHandler(svc.Inventory, logger))
			r.Post("/inventory/{productId}/{locationId}/adjust", adjustStockHandler(svc.Inventory, logger))
		})

		// =============================================
		// 5. Métricas
		// =============================================
		r.Get("/metrics/policy", policyMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Probes
// ============================================================

func healthzHandler(backend Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "agenda-bfa", Status: "healthy", LastChecked: now},
		}

		if backend != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			start := time.Now()
			err := backend.Ping(ctx)
			status := "healthy"
			if err != nil {
				logger.Warn("health check: supabase unreachable", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "supabase", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func policyMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetPolicySnapshot())
	}
}

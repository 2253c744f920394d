package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Appointments Handlers
// ============================================================

func listAppointmentsHandler(svc *service.AppointmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/appointments")
		defer span.End()

		q := r.URL.Query()
		filter := domain.AppointmentFilter{
			ClientID:   q.Get("client_id"),
			EmployeeID: q.Get("employee_id"),
			Status:     domain.AppointmentStatus(q.Get("status")),
			Limit:      parseLimit(r),
		}
		var err error
		if filter.From, err = parseTimeParam(r, "from"); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if filter.To, err = parseTimeParam(r, "to"); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		appts, err := svc.List(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if appts == nil {
			appts = []domain.Appointment{}
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Appointment]{Data: appts, Total: len(appts)})
	}
}

func getAppointmentHandler(svc *service.AppointmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/appointments/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("appointment.id", id))
		appt, err := svc.Get(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

// checkCancellationHandler lets the dashboard grey out the cancel button
// before the user tries.
func checkCancellationHandler(svc *service.AppointmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/appointments/{id}/cancellation")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("appointment.id", id))
		_, d, err := svc.CheckCancellation(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func cancelAppointmentHandler(svc *service.AppointmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/appointments/{id}/cancel")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("appointment.id", id))

		// The body is optional; an empty one means no reason given.
		var req domain.CancelRequest
		if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		appt, d, err := svc.Cancel(ctx, id, req.Reason)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.CancelResponse{
			Success:  true,
			Message:  "Cita cancelada correctamente",
			Decision: d,
			Data:     appt,
		})
	}
}

// transitionHandler serves the confirm/finish/lost endpoints, which differ
// only in the service method they call.
func transitionHandler(fn func(context.Context, string) (*domain.Appointment, error), message string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()

		appt, err := fn(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": message,
			"data":    appt,
		})
	}
}

// ============================================================
// Reservations Handlers
// ============================================================

func checkReservationHandler(svc *service.AppointmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reservations/check")
		defer span.End()

		var req domain.ReservationCheckRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		d, err := svc.CheckReservation(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func reserveHandler(svc *service.AppointmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reservations")
		defer span.End()

		var req domain.ReservationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		appt, d, err := svc.Reserve(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"success":  true,
			"message":  "Reserva creada",
			"decision": d,
			"data":     appt,
		})
	}
}

// ============================================================
// Settings Handlers
// ============================================================

func timeWindowsHandler(svc *service.AppointmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/settings/time-windows")
		defer span.End()

		tw, err := svc.TimeWindows(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tw)
	}
}

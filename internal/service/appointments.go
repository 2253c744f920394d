package service

import (
	"context"
	"strings"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/policy"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var apptTracer = otel.Tracer("service/appointments")

// cancellableStatuses are the states a cancellation may start from.
var cancellableStatuses = []domain.AppointmentStatus{domain.StatusReserved, domain.StatusConfirmed}

// AppointmentService guards appointment mutations with the time-window policy.
type AppointmentService struct {
	store   port.AppointmentStore
	configs port.ConfigStore
	clock   policy.Clock
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAppointmentService creates the service. A nil clock uses the system clock.
func NewAppointmentService(store port.AppointmentStore, configs port.ConfigStore, clock policy.Clock, metrics *observability.Metrics, logger *zap.Logger) *AppointmentService {
	if clock == nil {
		clock = policy.SystemClock
	}
	return &AppointmentService{
		store:   store,
		configs: configs,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// ============================================================
// Time-window configuration
// ============================================================

// window reads a lead-time row and resolves it. It never fails: fetch errors
// and bad values degrade to the default and are logged and counted.
func (s *AppointmentService) window(ctx context.Context, key string) domain.TimeWindowConfig {
	entry, err := s.configs.GetConfig(ctx, key)
	if err != nil {
		err = &domain.ErrConfigUnavailable{Key: key, Err: err}
	}

	resolve := policy.ResolveReservation
	if key == domain.ConfigKeyCancellationLead {
		resolve = policy.ResolveCancellation
	}
	cfg, reason := resolve(entry, err)

	// A cancelled sibling fetch is not a configuration problem.
	if reason != policy.FallbackNone && ctx.Err() == nil {
		s.metrics.IncrConfigFallback(key, string(reason))
		fields := []zap.Field{
			zap.String("key", key),
			zap.String("reason", string(reason)),
			zap.Int("default_minutes", cfg.Minutes),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		if entry != nil {
			fields = append(fields, zap.String("value", entry.Value))
		}
		s.logger.Warn("time window degraded to default", fields...)
	}
	return cfg
}

// TimeWindows returns both resolved windows for the settings screen.
func (s *AppointmentService) TimeWindows(ctx context.Context) (*domain.TimeWindowSettings, error) {
	ctx, span := apptTracer.Start(ctx, "AppointmentService.TimeWindows")
	defer span.End()

	var cancelCfg, reserveCfg domain.TimeWindowConfig
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cancelCfg = s.window(gCtx, domain.ConfigKeyCancellationLead)
		return nil
	})
	g.Go(func() error {
		reserveCfg = s.window(gCtx, domain.ConfigKeyReservationLead)
		return nil
	})
	_ = g.Wait()

	return &domain.TimeWindowSettings{
		Cancellation: domain.TimeWindowView{
			Key:              domain.ConfigKeyCancellationLead,
			TimeWindowConfig: cancelCfg,
			LeadTime:         policy.FormatLeadTime(cancelCfg.Minutes),
		},
		Reservation: domain.TimeWindowView{
			Key:              domain.ConfigKeyReservationLead,
			TimeWindowConfig: reserveCfg,
			LeadTime:         policy.FormatLeadTime(reserveCfg.Minutes),
		},
	}, nil
}

// ============================================================
// Queries
// ============================================================

func (s *AppointmentService) Get(ctx context.Context, id string) (*domain.Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "AppointmentService.Get")
	defer span.End()

	return s.store.GetAppointment(ctx, id)
}

func (s *AppointmentService) List(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "AppointmentService.List")
	defer span.End()

	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return nil, &domain.ErrValidation{Field: "to", Message: "must be after from"}
	}
	if filter.Status != "" && !knownStatus(filter.Status) {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown status"}
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 200
	}
	return s.store.ListAppointments(ctx, filter)
}

// ============================================================
// Cancellation
// ============================================================

// CheckCancellation evaluates whether the appointment may be cancelled now.
// The appointment and the configuration are fetched concurrently.
func (s *AppointmentService) CheckCancellation(ctx context.Context, id string) (*domain.Appointment, *domain.Decision, error) {
	ctx, span := apptTracer.Start(ctx, "AppointmentService.CheckCancellation")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id))

	var (
		appt *domain.Appointment
		cfg  domain.TimeWindowConfig
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.store.GetAppointment(gCtx, id)
		if err != nil {
			return err
		}
		appt = a
		return nil
	})
	g.Go(func() error {
		cfg = s.window(gCtx, domain.ConfigKeyCancellationLead)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	d := policy.EvaluateCancellation(appt, cfg, s.clock())
	s.metrics.RecordDecision("cancel", d.Reason)
	span.SetAttributes(
		attribute.String("decision.reason", string(d.Reason)),
		attribute.Bool("decision.degraded", d.Degraded),
	)
	return appt, &d, nil
}

// Cancel cancels the appointment if the policy allows it. The update is
// conditional on the status so a concurrent change surfaces as ErrConflict.
func (s *AppointmentService) Cancel(ctx context.Context, id, reason string) (*domain.Appointment, *domain.Decision, error) {
	ctx, span := apptTracer.Start(ctx, "AppointmentService.Cancel")
	defer span.End()

	appt, d, err := s.CheckCancellation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !d.Allowed {
		return nil, d, decisionError("cancel", appt, d)
	}

	now := s.clock().UTC()
	updates := map[string]any{
		"status":       domain.StatusCancelled,
		"cancelled_at": now,
		"updated_at":   now,
	}
	if r := strings.TrimSpace(reason); r != "" {
		updates["cancellation_reason"] = r
	}

	updated, err := s.store.UpdateAppointmentStatus(ctx, id, cancellableStatuses, updates)
	if err != nil {
		s.logger.Error("failed to cancel appointment", zap.String("appointment_id", id), zap.Error(err))
		return nil, d, err
	}
	if updated == nil {
		return nil, d, &domain.ErrConflict{Message: "La cita cambió de estado mientras se cancelaba"}
	}

	s.logger.Info("appointment cancelled",
		zap.String("appointment_id", id),
		zap.Float64("minutes_until", d.MinutesUntil),
		zap.Bool("degraded", d.Degraded),
	)
	return updated, d, nil
}

// ============================================================
// Reservation
// ============================================================

// CheckReservation evaluates whether a new appointment may be booked at candidate.
func (s *AppointmentService) CheckReservation(ctx context.Context, req *domain.ReservationCheckRequest) (*domain.Decision, error) {
	ctx, span := apptTracer.Start(ctx, "AppointmentService.CheckReservation")
	defer span.End()

	if req.AppointmentDatetime.IsZero() {
		return nil, &domain.ErrValidation{Field: "appointment_datetime", Message: "required"}
	}

	cfg := s.window(ctx, domain.ConfigKeyReservationLead)
	d := policy.EvaluateReservation(req.AppointmentDatetime, cfg, s.clock())
	s.metrics.RecordDecision("reserve", d.Reason)
	return &d, nil
}

// Reserve books a new appointment in status reservada. Slot collisions are
// rejected by the database and surface as ErrConflict.
func (s *AppointmentService) Reserve(ctx context.Context, req *domain.ReservationRequest) (*domain.Appointment, *domain.Decision, error) {
	ctx, span := apptTracer.Start(ctx, "AppointmentService.Reserve")
	defer span.End()

	if err := validateReservation(req); err != nil {
		return nil, nil, err
	}

	d, err := s.CheckReservation(ctx, &domain.ReservationCheckRequest{AppointmentDatetime: req.AppointmentDatetime})
	if err != nil {
		return nil, nil, err
	}
	if !d.Allowed {
		return nil, d, decisionError("reserve", nil, d)
	}

	appt := &domain.Appointment{
		ID:                  uuid.New().String(),
		ClientID:            req.ClientID,
		EmployeeID:          req.EmployeeID,
		ServiceID:           req.ServiceID,
		AppointmentDatetime: req.AppointmentDatetime,
		Status:              domain.StatusReserved,
		Notes:               strings.TrimSpace(req.Notes),
	}

	created, err := s.store.CreateAppointment(ctx, appt)
	if err != nil {
		s.logger.Error("failed to create reservation",
			zap.String("client_id", req.ClientID),
			zap.Time("appointment_datetime", req.AppointmentDatetime),
			zap.Error(err),
		)
		return nil, d, err
	}

	s.logger.Info("reservation created",
		zap.String("appointment_id", created.ID),
		zap.String("client_id", created.ClientID),
		zap.Bool("degraded", d.Degraded),
	)
	return created, d, nil
}

func validateReservation(req *domain.ReservationRequest) error {
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)

	switch {
	case req.ClientID == "":
		return &domain.ErrValidation{Field: "client_id", Message: "required"}
	case req.EmployeeID == "":
		return &domain.ErrValidation{Field: "employee_id", Message: "required"}
	case req.ServiceID == "":
		return &domain.ErrValidation{Field: "service_id", Message: "required"}
	case req.AppointmentDatetime.IsZero():
		return &domain.ErrValidation{Field: "appointment_datetime", Message: "required"}
	}
	return nil
}

// ============================================================
// Lifecycle transitions
// ============================================================

// Confirm moves a reservada appointment to confirmada.
func (s *AppointmentService) Confirm(ctx context.Context, id string) (*domain.Appointment, error) {
	return s.transition(ctx, id, domain.StatusConfirmed)
}

// Finish marks a confirmada appointment as finalizada.
func (s *AppointmentService) Finish(ctx context.Context, id string) (*domain.Appointment, error) {
	return s.transition(ctx, id, domain.StatusFinished)
}

// MarkLost records a no-show. Only allowed once the start time has passed.
func (s *AppointmentService) MarkLost(ctx context.Context, id string) (*domain.Appointment, error) {
	return s.transition(ctx, id, domain.StatusLost)
}

func (s *AppointmentService) transition(ctx context.Context, id string, to domain.AppointmentStatus) (*domain.Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "AppointmentService.Transition")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id), attribute.String("status.to", string(to)))

	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.CanTransitionTo(to) {
		return nil, &domain.ErrInvalidTransition{From: appt.Status, To: to}
	}
	now := s.clock()
	if to == domain.StatusLost && policy.MinutesUntil(appt.AppointmentDatetime, now) > 0 {
		return nil, &domain.ErrValidation{Field: "status", Message: "la cita aún no ha ocurrido"}
	}

	updated, err := s.store.UpdateAppointmentStatus(ctx, id, []domain.AppointmentStatus{appt.Status}, map[string]any{
		"status":     to,
		"updated_at": now.UTC(),
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, &domain.ErrConflict{Message: "La cita cambió de estado, recarga e intenta de nuevo"}
	}

	s.logger.Info("appointment status changed",
		zap.String("appointment_id", id),
		zap.String("from", string(appt.Status)),
		zap.String("to", string(to)),
	)
	return updated, nil
}

// decisionError maps a negative decision to the typed error the handler reports.
func decisionError(action string, appt *domain.Appointment, d *domain.Decision) error {
	switch d.Reason {
	case domain.ReasonAlreadyCancelled:
		return &domain.ErrAppointmentAlreadyCancelled{ID: appt.ID}
	case domain.ReasonAlreadyOccurred, domain.ReasonInPast:
		return &domain.ErrAppointmentInPast{Message: d.Message}
	case domain.ReasonNotCancellable:
		return &domain.ErrInvalidTransition{From: appt.Status, To: domain.StatusCancelled}
	}
	return &domain.ErrWindowClosed{Action: action, Decision: d}
}

func knownStatus(s domain.AppointmentStatus) bool {
	switch s {
	case domain.StatusReserved, domain.StatusConfirmed, domain.StatusCancelled, domain.StatusFinished, domain.StatusLost:
		return true
	}
	return false
}

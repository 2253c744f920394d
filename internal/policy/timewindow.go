// Package policy decides whether an appointment may be cancelled or a new
// one reserved, given a configured lead time and the current instant.
//
// Every function here is pure: the caller supplies "now", so results never
// depend on the wall clock and can be recomputed freely.
package policy

import (
	"fmt"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
)

// Default lead times used when configuration is missing or unreadable.
const (
	DefaultCancellationMinutes = 60
	DefaultReservationMinutes  = 120
)

// Clock returns the current time. Services hold one so tests can pin it.
type Clock func() time.Time

// SystemClock is the production clock.
func SystemClock() time.Time { return time.Now() }

// MinutesUntil returns the minutes between now and t. Negative when t is past.
func MinutesUntil(t, now time.Time) float64 {
	return t.Sub(now).Minutes()
}

// CanCancel reports whether an appointment at appointmentTime may be cancelled.
// A disabled rule always allows. Otherwise more than leadMinutes must remain.
func CanCancel(appointmentTime, now time.Time, leadMinutes int, active bool) bool {
	if !active {
		return true
	}
	return MinutesUntil(appointmentTime, now) > float64(leadMinutes)
}

// CanReserve reports whether candidateTime may be reserved. Same rule as CanCancel.
func CanReserve(candidateTime, now time.Time, leadMinutes int, active bool) bool {
	if !active {
		return true
	}
	return MinutesUntil(candidateTime, now) > float64(leadMinutes)
}

// EvaluateCancellation applies the cancellation rule to an existing appointment.
// Status and past-time checks run before the window so the caller gets the
// specific reason.
func EvaluateCancellation(appt *domain.Appointment, cfg domain.TimeWindowConfig, now time.Time) domain.Decision {
	until := MinutesUntil(appt.AppointmentDatetime, now)
	d := domain.Decision{
		LeadMinutes:  cfg.Minutes,
		LeadTime:     FormatLeadTime(cfg.Minutes),
		MinutesUntil: until,
		RuleActive:   cfg.Active,
		Degraded:     cfg.Degraded,
	}

	switch {
	case appt.Status == domain.StatusCancelled:
		d.Reason = domain.ReasonAlreadyCancelled
		d.Message = "Esta cita ya fue cancelada."
	case appt.Status.IsTerminal():
		d.Reason = domain.ReasonNotCancellable
		d.Message = fmt.Sprintf("Una cita %s no puede cancelarse.", appt.Status)
	case until <= 0:
		d.Reason = domain.ReasonAlreadyOccurred
		d.Message = "Esta cita ya ocurrió y no puede cancelarse."
	case !cfg.Active:
		d.Allowed = true
		d.Reason = domain.ReasonRuleInactive
	case CanCancel(appt.AppointmentDatetime, now, cfg.Minutes, cfg.Active):
		d.Allowed = true
		d.Reason = domain.ReasonAllowed
	default:
		d.Reason = domain.ReasonTooClose
		d.Message = fmt.Sprintf("Las citas solo pueden cancelarse con más de %s de anticipación.", d.LeadTime)
	}
	return d
}

// EvaluateReservation applies the minimum-notice rule to a prospective time.
func EvaluateReservation(candidate time.Time, cfg domain.TimeWindowConfig, now time.Time) domain.Decision {
	until := MinutesUntil(candidate, now)
	d := domain.Decision{
		LeadMinutes:  cfg.Minutes,
		LeadTime:     FormatLeadTime(cfg.Minutes),
		MinutesUntil: until,
		RuleActive:   cfg.Active,
		Degraded:     cfg.Degraded,
	}

	switch {
	case until <= 0:
		d.Reason = domain.ReasonInPast
		d.Message = "No es posible reservar en una fecha u hora pasada."
	case !cfg.Active:
		d.Allowed = true
		d.Reason = domain.ReasonRuleInactive
	case CanReserve(candidate, now, cfg.Minutes, cfg.Active):
		d.Allowed = true
		d.Reason = domain.ReasonAllowed
	default:
		d.Reason = domain.ReasonTooClose
		d.Message = fmt.Sprintf("Las reservas deben hacerse con más de %s de anticipación.", d.LeadTime)
	}
	return d
}

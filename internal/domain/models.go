// Package domain defines the core business entities for the agenda BFA.
// These models are independent of Supabase and represent the canonical
// data structures shared by the policy, service and handler layers.
package domain

import "time"

// ============================================================
// Appointments
// ============================================================

// AppointmentStatus is the lifecycle state of an appointment.
// Transitions are driven by the service layer; the database owns the row.
type AppointmentStatus string

const (
	StatusReserved  AppointmentStatus = "reservada"
	StatusConfirmed AppointmentStatus = "confirmada"
	StatusCancelled AppointmentStatus = "cancelada"
	StatusFinished  AppointmentStatus = "finalizada"
	StatusLost      AppointmentStatus = "perdida"
)

// IsTerminal reports whether no further transition is possible.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusFinished, StatusLost:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case StatusReserved:
		return next == StatusConfirmed || next == StatusCancelled || next == StatusLost
	case StatusConfirmed:
		return next == StatusFinished || next == StatusCancelled || next == StatusLost
	}
	return false
}

// Appointment is a salon appointment row.
type Appointment struct {
	ID                  string            `json:"id"`
	ClientID            string            `json:"client_id"`
	EmployeeID          string            `json:"employee_id"`
	ServiceID           string            `json:"service_id"`
	AppointmentDatetime time.Time         `json:"appointment_datetime"`
	Status              AppointmentStatus `json:"status"`
	Notes               string            `json:"notes,omitempty"`
	CancelledAt         *time.Time        `json:"cancelled_at,omitempty"`
	CancellationReason  string            `json:"cancellation_reason,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           *time.Time        `json:"updated_at,omitempty"`
}

// AppointmentFilter narrows GET /v1/appointments.
type AppointmentFilter struct {
	ClientID   string
	EmployeeID string
	Status     AppointmentStatus
	From       *time.Time
	To         *time.Time
	Limit      int
}

// ReservationRequest is the body of POST /v1/reservations.
type ReservationRequest struct {
	ClientID            string    `json:"client_id"`
	EmployeeID          string    `json:"employee_id"`
	ServiceID           string    `json:"service_id"`
	AppointmentDatetime time.Time `json:"appointment_datetime"`
	Notes               string    `json:"notes,omitempty"`
}

// ReservationCheckRequest is the body of POST /v1/reservations/check.
type ReservationCheckRequest struct {
	AppointmentDatetime time.Time `json:"appointment_datetime"`
}

// CancelRequest is the body of POST /v1/appointments/{id}/cancel.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelResponse follows the {success, message, data} envelope the dashboard expects.
type CancelResponse struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	Decision *Decision    `json:"decision,omitempty"`
	Data     *Appointment `json:"data,omitempty"`
}

package domain

import "fmt"

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates the row changed underneath us or already exists.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrConfigUnavailable indicates the configuration row could not be read.
// Callers degrade to the default lead time instead of surfacing it.
type ErrConfigUnavailable struct {
	Key string
	Err error
}

func (e *ErrConfigUnavailable) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("configuration unavailable: %s", e.Key)
	}
	return fmt.Sprintf("configuration unavailable: %s: %v", e.Key, e.Err)
}

func (e *ErrConfigUnavailable) Unwrap() error {
	return e.Err
}

// ErrAppointmentAlreadyCancelled is returned when cancelling a cancelled appointment.
type ErrAppointmentAlreadyCancelled struct {
	ID string
}

func (e *ErrAppointmentAlreadyCancelled) Error() string {
	return "Esta cita ya fue cancelada"
}

// ErrAppointmentInPast is returned when acting on a time that already passed.
type ErrAppointmentInPast struct {
	Message string
}

func (e *ErrAppointmentInPast) Error() string {
	return e.Message
}

// ErrWindowClosed indicates the lead-time rule rejected the action.
type ErrWindowClosed struct {
	Action   string
	Decision *Decision
}

func (e *ErrWindowClosed) Error() string {
	if e.Decision != nil && e.Decision.Message != "" {
		return e.Decision.Message
	}
	return fmt.Sprintf("time window closed for %s", e.Action)
}

// ErrInvalidTransition indicates a status change the lifecycle does not allow.
type ErrInvalidTransition struct {
	From AppointmentStatus
	To   AppointmentStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot move appointment from '%s' to '%s'", e.From, e.To)
}

// ErrInsufficientStock indicates an adjustment would make stock negative.
type ErrInsufficientStock struct {
	Available int
	Requested int
}

func (e *ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock: available=%d requested=%d", e.Available, e.Requested)
}

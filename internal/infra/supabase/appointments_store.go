package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
)

// ============================================================
// Appointments store: get, list, create, conditional status update
// ============================================================

const appointmentsTable = "appointments"

func (c *Client) GetAppointment(ctx context.Context, id string) (*domain.Appointment, error) {
	q := url.Values{
		"select": {"*"},
		"id":     {eq(id)},
		"limit":  {"1"},
	}

	var rows []domain.Appointment
	if err := c.get(ctx, appointmentsTable, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "appointment", ID: id}
	}
	return &rows[0], nil
}

func (c *Client) ListAppointments(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error) {
	q := url.Values{
		"select": {"*"},
		"order":  {"appointment_datetime.asc"},
	}
	if filter.ClientID != "" {
		q.Set("client_id", eq(filter.ClientID))
	}
	if filter.EmployeeID != "" {
		q.Set("employee_id", eq(filter.EmployeeID))
	}
	if filter.Status != "" {
		q.Set("status", eq(string(filter.Status)))
	}
	if filter.From != nil {
		q.Add("appointment_datetime", "gte."+timestamp(*filter.From))
	}
	if filter.To != nil {
		q.Add("appointment_datetime", "lt."+timestamp(*filter.To))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	rows := []domain.Appointment{}
	if err := c.get(ctx, appointmentsTable, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) CreateAppointment(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	row := map[string]any{
		"id":                   appt.ID,
		"client_id":            appt.ClientID,
		"employee_id":          appt.EmployeeID,
		"service_id":           appt.ServiceID,
		"appointment_datetime": timestamp(appt.AppointmentDatetime),
		"status":               appt.Status,
	}
	if appt.Notes != "" {
		row["notes"] = appt.Notes
	}

	var rows []domain.Appointment
	if err := c.write(ctx, http.MethodPost, appointmentsTable, nil, row, "", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no result from appointments insert")
	}
	return &rows[0], nil
}

// UpdateAppointmentStatus patches the row only while its status is one of from.
// The status filter makes the database arbitrate concurrent cancellations.
func (c *Client) UpdateAppointmentStatus(ctx context.Context, id string, from []domain.AppointmentStatus, updates map[string]any) (*domain.Appointment, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	q := url.Values{"id": {eq(id)}}
	if len(statuses) > 0 {
		q.Set("status", in(statuses...))
	}

	var rows []domain.Appointment
	if err := c.write(ctx, http.MethodPatch, appointmentsTable, q, updates, "", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

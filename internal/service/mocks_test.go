package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
)

// --- Mocks ---

type mockConfigStore struct {
	entries map[string]*domain.ConfigEntry
	err     error
}

func (m *mockConfigStore) GetConfig(_ context.Context, key string) (*domain.ConfigEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries[key], nil
}

func configs(cancelValue, reserveValue string, active bool) *mockConfigStore {
	return &mockConfigStore{entries: map[string]*domain.ConfigEntry{
		domain.ConfigKeyCancellationLead: {Key: domain.ConfigKeyCancellationLead, Value: cancelValue, Active: active},
		domain.ConfigKeyReservationLead:  {Key: domain.ConfigKeyReservationLead, Value: reserveValue, Active: active},
	}}
}

type mockAppointmentStore struct {
	mu       sync.Mutex
	appts    map[string]*domain.Appointment
	created  []*domain.Appointment
	updates  []map[string]any
	getErr   error
	createFn func(*domain.Appointment) (*domain.Appointment, error)
	// lostRace makes every conditional update match no rows.
	lostRace bool
}

func newAppointmentStore(appts ...*domain.Appointment) *mockAppointmentStore {
	m := &mockAppointmentStore{appts: make(map[string]*domain.Appointment)}
	for _, a := range appts {
		m.appts[a.ID] = a
	}
	return m
}

func (m *mockAppointmentStore) GetAppointment(_ context.Context, id string) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.appts[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "appointment", ID: id}
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentStore) ListAppointments(_ context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Appointment{}
	for _, a := range m.appts {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAppointmentStore) CreateAppointment(_ context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(appt)
	}
	m.created = append(m.created, appt)
	m.appts[appt.ID] = appt
	return appt, nil
}

func (m *mockAppointmentStore) UpdateAppointmentStatus(_ context.Context, id string, from []domain.AppointmentStatus, updates map[string]any) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, updates)
	a, ok := m.appts[id]
	if !ok || m.lostRace {
		return nil, nil
	}
	matched := false
	for _, s := range from {
		if a.Status == s {
			matched = true
		}
	}
	if !matched {
		return nil, nil
	}
	if s, ok := updates["status"].(domain.AppointmentStatus); ok {
		a.Status = s
	}
	if r, ok := updates["cancellation_reason"].(string); ok {
		a.CancellationReason = r
	}
	if t, ok := updates["cancelled_at"].(time.Time); ok {
		a.CancelledAt = &t
	}
	cp := *a
	return &cp, nil
}

type mockPermissionStore struct {
	mu         sync.Mutex
	profiles   map[string]*domain.Profile
	codes      map[string][]string
	modules    []domain.Module
	codesCalls int
	codesErr   error
}

func (m *mockPermissionStore) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return p, nil
}

func (m *mockPermissionStore) ListPermissionCodes(_ context.Context, roleID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codesCalls++
	if m.codesErr != nil {
		return nil, m.codesErr
	}
	return m.codes[roleID], nil
}

func (m *mockPermissionStore) ListModules(_ context.Context) ([]domain.Module, error) {
	return m.modules, nil
}

type mockInventoryStore struct {
	mu        sync.Mutex
	items     map[string]*domain.InventoryItem
	movements []*domain.StockMovement
	// casFailures makes the next N compare-and-set calls report a lost race.
	casFailures int
	casCalls    int
	movementErr error
	upserted    []*domain.InventoryItem
}

func newInventoryStore(items ...*domain.InventoryItem) *mockInventoryStore {
	m := &mockInventoryStore{items: make(map[string]*domain.InventoryItem)}
	for _, it := range items {
		m.items[it.ProductID+"/"+it.LocationID] = it
	}
	return m
}

func (m *mockInventoryStore) GetInventoryItem(_ context.Context, productID, locationID string) (*domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[productID+"/"+locationID]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (m *mockInventoryStore) ListInventory(_ context.Context, locationID string) ([]domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.InventoryItem{}
	for _, it := range m.items {
		if locationID == "" || it.LocationID == locationID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *mockInventoryStore) UpsertInventoryItem(_ context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.ProductID+"/"+item.LocationID] = &cp
	m.upserted = append(m.upserted, &cp)
	return &cp, nil
}

func (m *mockInventoryStore) InsertInventoryItem(_ context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := item.ProductID + "/" + item.LocationID
	if _, ok := m.items[key]; ok {
		return nil, &domain.ErrConflict{Message: "duplicate"}
	}
	cp := *item
	m.items[key] = &cp
	return &cp, nil
}

func (m *mockInventoryStore) CompareAndSetQuantity(_ context.Context, productID, locationID string, expected, quantity int, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	if m.casFailures > 0 {
		m.casFailures--
		return false, nil
	}
	it, ok := m.items[productID+"/"+locationID]
	if !ok || it.Quantity != expected {
		return false, nil
	}
	it.Quantity = quantity
	it.UpdatedAt = &at
	return true, nil
}

func (m *mockInventoryStore) InsertStockMovement(_ context.Context, mv *domain.StockMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.movementErr != nil {
		return m.movementErr
	}
	m.movements = append(m.movements, mv)
	return nil
}

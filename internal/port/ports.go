// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// ConfigStore reads the generic key/value configurations table.
// A missing key returns (nil, nil).
type ConfigStore interface {
	GetConfig(ctx context.Context, key string) (*domain.ConfigEntry, error)
}

// AppointmentStore defines the data operations on appointments.
type AppointmentStore interface {
	GetAppointment(ctx context.Context, id string) (*domain.Appointment, error)
	ListAppointments(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error)
	CreateAppointment(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error)

	// UpdateAppointmentStatus applies updates only while the row is in one of
	// the from statuses. It returns nil, nil when no row matched.
	UpdateAppointmentStatus(ctx context.Context, id string, from []domain.AppointmentStatus, updates map[string]any) (*domain.Appointment, error)
}

// PermissionStore reads roles, permission codes and the module catalog.
type PermissionStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	ListPermissionCodes(ctx context.Context, roleID string) ([]string, error)
	ListModules(ctx context.Context) ([]domain.Module, error)
}

// InventoryStore defines the data operations on stock rows.
type InventoryStore interface {
	GetInventoryItem(ctx context.Context, productID, locationID string) (*domain.InventoryItem, error)
	ListInventory(ctx context.Context, locationID string) ([]domain.InventoryItem, error)
	UpsertInventoryItem(ctx context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error)

	// InsertInventoryItem creates the row and fails with ErrConflict if it exists.
	InsertInventoryItem(ctx context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error)

	// CompareAndSetQuantity writes quantity only if the row still holds expected.
	// It returns false when another writer got there first.
	CompareAndSetQuantity(ctx context.Context, productID, locationID string, expected, quantity int, at time.Time) (bool, error)
	InsertStockMovement(ctx context.Context, mv *domain.StockMovement) error
}

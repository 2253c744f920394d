package service

import (
	"context"
	"errors"
	"strings"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/policy"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var invTracer = otel.Tracer("service/inventory")

// maxAdjustAttempts bounds the read-modify-write loop of AdjustStock.
const maxAdjustAttempts = 3

// maxStockDelta caps the magnitude of a single adjustment.
const maxStockDelta = 1_000_000

// InventoryService manages stock levels per product and location.
type InventoryService struct {
	store   port.InventoryStore
	clock   policy.Clock
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewInventoryService creates the inventory service. A nil clock uses the
// system clock.
func NewInventoryService(store port.InventoryStore, clock policy.Clock, metrics *observability.Metrics, logger *zap.Logger) *InventoryService {
	if clock == nil {
		clock = policy.SystemClock
	}
	return &InventoryService{store: store, clock: clock, metrics: metrics, logger: logger}
}

func (s *InventoryService) List(ctx context.Context, locationID string) ([]domain.InventoryItem, error) {
	ctx, span := invTracer.Start(ctx, "InventoryService.List")
	defer span.End()

	return s.store.ListInventory(ctx, locationID)
}

// Totals summarises stock for one location, or every location when empty.
func (s *InventoryService) Totals(ctx context.Context, locationID string) (*domain.InventoryTotals, error) {
	ctx, span := invTracer.Start(ctx, "InventoryService.Totals")
	defer span.End()

	items, err := s.store.ListInventory(ctx, locationID)
	if err != nil {
		return nil, err
	}
	t := ComputeTotals(items)
	t.LocationID = locationID
	return &t, nil
}

// ComputeTotals sums units and value. Products are counted once even when
// stocked at several locations. Items without product data add units only.
func ComputeTotals(items []domain.InventoryItem) domain.InventoryTotals {
	var t domain.InventoryTotals
	products := make(map[string]struct{})
	for _, it := range items {
		products[it.ProductID] = struct{}{}
		t.Units += it.Quantity
		if it.Quantity <= it.MinStock {
			t.LowStockItems++
		}
		if it.Product != nil {
			t.CostValue += float64(it.Quantity) * it.Product.Cost
			t.RetailValue += float64(it.Quantity) * it.Product.Price
		}
	}
	t.Products = len(products)
	return t
}

// SetStock overwrites the quantity of a (product, location) row, creating it
// if needed. A nil MinStock keeps the stored threshold.
func (s *InventoryService) SetStock(ctx context.Context, productID, locationID string, req *domain.SetStockRequest) (*domain.InventoryItem, error) {
	ctx, span := invTracer.Start(ctx, "InventoryService.SetStock")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID), attribute.String("location.id", locationID))

	if err := validateStockKey(productID, locationID); err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, &domain.ErrValidation{Field: "quantity", Message: "must not be negative"}
	}

	item := &domain.InventoryItem{ProductID: productID, LocationID: locationID, Quantity: req.Quantity}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return nil, &domain.ErrValidation{Field: "min_stock", Message: "must not be negative"}
		}
		item.MinStock = *req.MinStock
	} else {
		existing, err := s.store.GetInventoryItem(ctx, productID, locationID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			item.MinStock = existing.MinStock
		}
	}

	saved, err := s.store.UpsertInventoryItem(ctx, item)
	if err != nil {
		s.logger.Error("failed to set stock",
			zap.String("product_id", productID),
			zap.String("location_id", locationID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("stock set",
		zap.String("product_id", productID),
		zap.String("location_id", locationID),
		zap.Int("quantity", saved.Quantity),
	)
	return saved, nil
}

// AdjustStock adds delta to the stored quantity. The write only lands if the
// row still holds the quantity that was read; otherwise it re-reads, up to
// maxAdjustAttempts times. Stock never goes below zero.
func (s *InventoryService) AdjustStock(ctx context.Context, productID, locationID string, req *domain.AdjustStockRequest) (*domain.InventoryItem, error) {
	ctx, span := invTracer.Start(ctx, "InventoryService.AdjustStock")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID), attribute.String("location.id", locationID))

	if err := validateStockKey(productID, locationID); err != nil {
		return nil, err
	}
	if req.Delta == 0 {
		return nil, &domain.ErrValidation{Field: "delta", Message: "must not be zero"}
	}
	if req.Delta > maxStockDelta || req.Delta < -maxStockDelta {
		return nil, &domain.ErrValidation{Field: "delta", Message: "must be between -1000000 and 1000000"}
	}

	for attempt := 1; attempt <= maxAdjustAttempts; attempt++ {
		item, done, err := s.tryAdjust(ctx, productID, locationID, req.Delta)
		if err != nil {
			var insufficient *domain.ErrInsufficientStock
			if errors.As(err, &insufficient) {
				s.metrics.IncrStockAdjustment("insufficient")
			}
			return nil, err
		}
		if done {
			s.metrics.IncrStockAdjustment("applied")
			s.recordMovement(ctx, item, req)
			return item, nil
		}
		s.logger.Debug("stock changed concurrently, retrying",
			zap.String("product_id", productID),
			zap.String("location_id", locationID),
			zap.Int("attempt", attempt),
		)
	}

	s.metrics.IncrStockAdjustment("conflict")
	return nil, &domain.ErrConflict{Message: "El inventario está siendo modificado, intenta de nuevo"}
}

// tryAdjust performs one read-check-write round. done=false means another
// writer won the race and the caller should retry.
func (s *InventoryService) tryAdjust(ctx context.Context, productID, locationID string, delta int) (*domain.InventoryItem, bool, error) {
	item, err := s.store.GetInventoryItem(ctx, productID, locationID)
	if err != nil {
		return nil, false, err
	}

	if item == nil {
		if delta < 0 {
			return nil, false, &domain.ErrInsufficientStock{Available: 0, Requested: -delta}
		}
		created, err := s.store.InsertInventoryItem(ctx, &domain.InventoryItem{
			ProductID:  productID,
			LocationID: locationID,
			Quantity:   delta,
		})
		var conflict *domain.ErrConflict
		if errors.As(err, &conflict) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return created, true, nil
	}

	next := item.Quantity + delta
	if next < 0 {
		return nil, false, &domain.ErrInsufficientStock{Available: item.Quantity, Requested: -delta}
	}

	now := s.clock().UTC()
	ok, err := s.store.CompareAndSetQuantity(ctx, productID, locationID, item.Quantity, next, now)
	if err != nil || !ok {
		return nil, false, err
	}
	item.Quantity = next
	item.UpdatedAt = &now
	return item, true, nil
}

// recordMovement writes the audit row. The stock change already landed, so a
// failure here is logged rather than returned.
func (s *InventoryService) recordMovement(ctx context.Context, item *domain.InventoryItem, req *domain.AdjustStockRequest) {
	mv := &domain.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     item.ProductID,
		LocationID:    item.LocationID,
		Delta:         req.Delta,
		Reason:        strings.TrimSpace(req.Reason),
		QuantityAfter: item.Quantity,
		CreatedAt:     s.clock().UTC(),
	}
	if err := s.store.InsertStockMovement(ctx, mv); err != nil {
		s.metrics.IncrExternalError("stock_movements")
		s.logger.Error("failed to record stock movement",
			zap.String("product_id", item.ProductID),
			zap.String("location_id", item.LocationID),
			zap.Int("delta", req.Delta),
			zap.Error(err),
		)
	}
}

func validateStockKey(productID, locationID string) error {
	if strings.TrimSpace(productID) == "" {
		return &domain.ErrValidation{Field: "product_id", Message: "required"}
	}
	if strings.TrimSpace(locationID) == "" {
		return &domain.ErrValidation{Field: "location_id", Message: "required"}
	}
	return nil
}

package supabase

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
)

// ============================================================
// Inventory store: stock rows and movements
// ============================================================

const (
	inventoryTable  = "inventory"
	inventorySelect = "product_id,location_id,quantity,min_stock,updated_at,products(id,sku,name,cost,price)"
)

func (c *Client) GetInventoryItem(ctx context.Context, productID, locationID string) (*domain.InventoryItem, error) {
	q := url.Values{
		"select":      {inventorySelect},
		"product_id":  {eq(productID)},
		"location_id": {eq(locationID)},
		"limit":       {"1"},
	}

	var rows []domain.InventoryItem
	if err := c.get(ctx, inventoryTable, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *Client) ListInventory(ctx context.Context, locationID string) ([]domain.InventoryItem, error) {
	q := url.Values{
		"select": {inventorySelect},
		"order":  {"product_id.asc"},
	}
	if locationID != "" {
		q.Set("location_id", eq(locationID))
	}

	rows := []domain.InventoryItem{}
	if err := c.get(ctx, inventoryTable, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertInventoryItem inserts or overwrites the (product, location) row.
func (c *Client) UpsertInventoryItem(ctx context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error) {
	q := url.Values{
		"on_conflict": {"product_id,location_id"},
		"select":      {inventorySelect},
	}
	row := map[string]any{
		"product_id":  item.ProductID,
		"location_id": item.LocationID,
		"quantity":    item.Quantity,
		"min_stock":   item.MinStock,
		"updated_at":  timestamp(time.Now()),
	}

	var rows []domain.InventoryItem
	if err := c.write(ctx, http.MethodPost, inventoryTable, q, row, "resolution=merge-duplicates,return=representation", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return item, nil
	}
	return &rows[0], nil
}

// InsertInventoryItem creates a new row; an existing one yields ErrConflict.
func (c *Client) InsertInventoryItem(ctx context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error) {
	q := url.Values{"select": {inventorySelect}}
	row := map[string]any{
		"product_id":  item.ProductID,
		"location_id": item.LocationID,
		"quantity":    item.Quantity,
		"min_stock":   item.MinStock,
		"updated_at":  timestamp(time.Now()),
	}

	var rows []domain.InventoryItem
	if err := c.write(ctx, http.MethodPost, inventoryTable, q, row, "", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return item, nil
	}
	return &rows[0], nil
}

// CompareAndSetQuantity patches quantity only when the stored value equals expected.
func (c *Client) CompareAndSetQuantity(ctx context.Context, productID, locationID string, expected, quantity int, at time.Time) (bool, error) {
	q := url.Values{
		"product_id":  {eq(productID)},
		"location_id": {eq(locationID)},
		"quantity":    {eq(strconv.Itoa(expected))},
		"select":      {"product_id"},
	}
	updates := map[string]any{
		"quantity":   quantity,
		"updated_at": timestamp(at),
	}

	var rows []map[string]any
	if err := c.write(ctx, http.MethodPatch, inventoryTable, q, updates, "", &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (c *Client) InsertStockMovement(ctx context.Context, mv *domain.StockMovement) error {
	row := map[string]any{
		"id":             mv.ID,
		"product_id":     mv.ProductID,
		"location_id":    mv.LocationID,
		"delta":          mv.Delta,
		"reason":         mv.Reason,
		"quantity_after": mv.QuantityAfter,
		"created_at":     timestamp(mv.CreatedAt),
	}
	return c.write(ctx, http.MethodPost, "stock_movements", nil, row, "return=minimal", nil)
}

package domain

import "time"

// Product is a sellable item.
type Product struct {
	ID    string  `json:"id"`
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Cost  float64 `json:"cost"`
	Price float64 `json:"price"`
}

// InventoryItem is the stock of one product at one location.
type InventoryItem struct {
	ProductID  string     `json:"product_id"`
	LocationID string     `json:"location_id"`
	Quantity   int        `json:"quantity"`
	MinStock   int        `json:"min_stock"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	Product    *Product   `json:"products,omitempty"`
}

// StockMovement records one adjustment.
type StockMovement struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	LocationID    string    `json:"location_id"`
	Delta         int       `json:"delta"`
	Reason        string    `json:"reason,omitempty"`
	QuantityAfter int       `json:"quantity_after"`
	CreatedAt     time.Time `json:"created_at"`
}

// SetStockRequest is the body of PUT /v1/inventory/{productId}/{locationId}.
type SetStockRequest struct {
	Quantity int  `json:"quantity"`
	MinStock *int `json:"min_stock,omitempty"`
}

// AdjustStockRequest is the body of POST /v1/inventory/{productId}/{locationId}/adjust.
type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason,omitempty"`
}

// InventoryTotals summarises stock for a location (or all locations).
type InventoryTotals struct {
	LocationID    string  `json:"location_id,omitempty"`
	Products      int     `json:"products"`
	Units         int     `json:"units"`
	CostValue     float64 `json:"cost_value"`
	RetailValue   float64 `json:"retail_value"`
	LowStockItems int     `json:"low_stock_items"`
}

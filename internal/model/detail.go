package model

import "time"

// Inventory detail stored statuses. The display status may differ when a
// live borrow record overrides it (see internal/item).
const (
	StatusInStock    = "IN_STOCK"
	StatusLowStock   = "LOW_STOCK"
	StatusOutOfStock = "OUT_OF_STOCK"
	StatusBorrowed   = "BORROWED"
)

// Detail is the per-phase payload of an item: a tagged variant over the
// phase-specific attribute sets. The phase an operation targets is derived
// from the concrete detail type, so a detail can never be filed under the
// wrong phase.
type Detail interface {
	DetailPhase() Phase
}

// InventoryDetail holds the inventory-phase attributes of an item. At most
// one non-archived row exists per item; archived rows are kept as history.
type InventoryDetail struct {
	ID             int64      `json:"id"`
	ItemID         int64      `json:"item_id"`
	Quantity       int        `json:"quantity"`
	Unit           string     `json:"unit"`
	LocationID     *int64     `json:"location_id"`
	ExpiresAt      *time.Time `json:"expires_at"`
	StockThreshold int        `json:"stock_threshold"`
	Opened         bool       `json:"opened"`
	Status         string     `json:"status"`
	Archived       bool       `json:"archived"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (d *InventoryDetail) DetailPhase() Phase { return PhaseInventory }

// ShoppingDetail holds the shopping-phase attributes of an item. The
// purchased flag is set when the item transfers to inventory so completed
// purchases stay available for price analytics.
type ShoppingDetail struct {
	ID             int64      `json:"id"`
	ItemID         int64      `json:"item_id"`
	Quantity       int        `json:"quantity"`
	Unit           string     `json:"unit"`
	EstimatedPrice float64    `json:"estimated_price"`
	ActualPrice    *float64   `json:"actual_price"`
	Purchased      bool       `json:"purchased"`
	Archived       bool       `json:"archived"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (d *ShoppingDetail) DetailPhase() Phase { return PhaseShopping }

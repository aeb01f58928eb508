package model

// InventoryEntry is an inventory listing row: the item joined with its
// current (non-archived) inventory detail.
type InventoryEntry struct {
	Item   Item            `json:"item"`
	Detail InventoryDetail `json:"detail"`
}

// ShoppingEntry is a shopping listing row: the item joined with its current
// shopping detail and the shopping-list context from the active state.
type ShoppingEntry struct {
	Item      Item           `json:"item"`
	Detail    ShoppingDetail `json:"detail"`
	ContextID *int64         `json:"context_id"`
}

package model

import "time"

// Warranty is an append-only coverage record for an item.
type Warranty struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	Provider  string    `json:"provider"`
	StartsAt  time.Time `json:"starts_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

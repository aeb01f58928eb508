package model

import "time"

// Phase is a lifecycle stage an item can occupy.
type Phase string

const (
	PhaseWishlist  Phase = "WISHLIST"
	PhaseShopping  Phase = "SHOPPING"
	PhaseInventory Phase = "INVENTORY"
	PhaseDeleted   Phase = "DELETED"
)

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseWishlist, PhaseShopping, PhaseInventory, PhaseDeleted:
		return true
	}
	return false
}

// Item holds the attributes shared across all lifecycle phases.
type Item struct {
	ID           int64     `json:"id"`
	UUID         string    `json:"uuid"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Brand        string    `json:"brand"`
	Rating       int       `json:"rating"`
	Capacity     string    `json:"capacity"`
	SerialNumber string    `json:"serial_number"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	Note         string    `json:"note"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ItemState is one row of the state ledger. Many rows may exist per item
// over time; at most one per (item, phase) is active at any instant.
type ItemState struct {
	ID            int64      `json:"id"`
	ItemID        int64      `json:"item_id"`
	Phase         Phase      `json:"phase"`
	Active        bool       `json:"active"`
	ContextID     *int64     `json:"context_id"`
	ActivatedAt   time.Time  `json:"activated_at"`
	DeactivatedAt *time.Time `json:"deactivated_at"`
	Notes         *string    `json:"notes"`
	Metadata      *string    `json:"metadata"`
}

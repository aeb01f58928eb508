package model

import "time"

// BinnedItem is a recycle-bin listing row: the item joined with its active
// DELETED state, enriched with the phase it occupied just before deletion.
type BinnedItem struct {
	Item          Item      `json:"item"`
	DeletedAt     time.Time `json:"deleted_at"`
	DeletedReason string    `json:"deleted_reason"`
	PreviousPhase *Phase    `json:"previous_phase"`
}

// BinOutcome is the per-item result of a batch move to the bin.
type BinOutcome struct {
	ItemID int64  `json:"item_id"`
	Error  string `json:"error,omitempty"`
}

// OK reports whether the move succeeded.
func (o BinOutcome) OK() bool { return o.Error == "" }

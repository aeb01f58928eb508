// Package item holds pure domain logic over the item model, independent of
// storage.
package item

import (
	"github.com/dmfalke/stash/internal/model"
)

// ResolveStatus combines an inventory detail's stored status with the
// item's borrow records into the status shown to callers. Any borrow that
// is BORROWED or OVERDUE with no recorded return date overrides the stored
// status with BORROWED. Nothing is persisted: two reads can resolve
// differently if the borrow ledger changed between them.
func ResolveStatus(stored string, borrows []model.BorrowRecord) string {
	for _, b := range borrows {
		if b.Outstanding() {
			return model.StatusBorrowed
		}
	}
	return stored
}

// ResolveEntry returns the inventory entry's display status, taking the
// active borrow for its item into account.
func ResolveEntry(e model.InventoryEntry, active *model.BorrowRecord) string {
	if active != nil && active.Outstanding() {
		return model.StatusBorrowed
	}
	return e.Detail.Status
}

// StockStatus derives the stored status from quantity and threshold. Used
// when a detail is edited so the stored status tracks the counts.
func StockStatus(quantity, threshold int) string {
	switch {
	case quantity <= 0:
		return model.StatusOutOfStock
	case threshold > 0 && quantity <= threshold:
		return model.StatusLowStock
	default:
		return model.StatusInStock
	}
}

package model

import "time"

// Borrow record statuses.
const (
	BorrowStatusBorrowed = "BORROWED"
	BorrowStatusReturned = "RETURNED"
	BorrowStatusOverdue  = "OVERDUE"
)

// BorrowRecord tracks an item lent out of the household. Records are
// append-biased: returning stamps ReturnedAt rather than deleting the row.
type BorrowRecord struct {
	ID         int64      `json:"id"`
	ItemID     int64      `json:"item_id"`
	Borrower   string     `json:"borrower"`
	Contact    string     `json:"contact"`
	Status     string     `json:"status"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      *time.Time `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at"`
	Notes      string     `json:"notes"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Outstanding reports whether the record still has the item out of the house.
func (b BorrowRecord) Outstanding() bool {
	if b.ReturnedAt != nil {
		return false
	}
	return b.Status == BorrowStatusBorrowed || b.Status == BorrowStatusOverdue
}

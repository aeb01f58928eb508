package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmfalke/stash/internal/model"
)

// BorrowStore is an append-biased record of items lent out. The lifecycle
// core only reads it, through FindActiveBorrow, to overlay a derived
// display status on inventory listings.
type BorrowStore struct {
	db *sql.DB
}

func NewBorrowStore(db *sql.DB) *BorrowStore {
	return &BorrowStore{db: db}
}

func scanBorrow(scanner interface{ Scan(...any) error }) (*model.BorrowRecord, error) {
	var b model.BorrowRecord
	var dueAt, returnedAt sql.NullTime

	err := scanner.Scan(
		&b.ID, &b.ItemID, &b.Borrower, &b.Contact, &b.Status,
		&b.BorrowedAt, &dueAt, &returnedAt, &b.Notes, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueAt.Valid {
		b.DueAt = &dueAt.Time
	}
	if returnedAt.Valid {
		b.ReturnedAt = &returnedAt.Time
	}
	return &b, nil
}

const borrowCols = `id, item_id, borrower, contact, status, borrowed_at, due_at, returned_at, notes, created_at`

func (s *BorrowStore) Create(ctx context.Context, itemID int64, borrower, contact, notes string, dueAt *time.Time) (*model.BorrowRecord, error) {
	var due sql.NullTime
	if dueAt != nil {
		due = sql.NullTime{Time: *dueAt, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO borrow_records (item_id, borrower, contact, status, borrowed_at, due_at, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		itemID, borrower, contact, model.BorrowStatusBorrowed, time.Now().UTC(), due, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert borrow: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *BorrowStore) GetByID(ctx context.Context, id int64) (*model.BorrowRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+borrowCols+` FROM borrow_records WHERE id = ?`, id)
	b, err := scanBorrow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get borrow: %w", err)
	}
	return b, nil
}

// MarkReturned stamps the return date and flips the status. The record
// stays behind as history.
func (s *BorrowStore) MarkReturned(ctx context.Context, id int64) (*model.BorrowRecord, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE borrow_records SET status = ?, returned_at = ? WHERE id = ? AND returned_at IS NULL`,
		model.BorrowStatusReturned, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark returned: %w", err)
	}
	return s.GetByID(ctx, id)
}

// MarkOverdue flips outstanding records past their due date to OVERDUE.
func (s *BorrowStore) MarkOverdue(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE borrow_records SET status = ?
		 WHERE status = ? AND returned_at IS NULL AND due_at IS NOT NULL AND due_at < ?`,
		model.BorrowStatusOverdue, model.BorrowStatusBorrowed, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *BorrowStore) ListByItem(ctx context.Context, itemID int64) ([]model.BorrowRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+borrowCols+` FROM borrow_records WHERE item_id = ? ORDER BY borrowed_at DESC, id DESC`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("list borrows: %w", err)
	}
	defer rows.Close()

	var records []model.BorrowRecord
	for rows.Next() {
		b, err := scanBorrow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan borrow: %w", err)
		}
		records = append(records, *b)
	}
	return records, rows.Err()
}

// FindActiveBorrow returns the outstanding borrow record for an item, or
// nil if the item is not currently lent out.
func (s *BorrowStore) FindActiveBorrow(ctx context.Context, itemID int64) (*model.BorrowRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+borrowCols+` FROM borrow_records
		 WHERE item_id = ? AND returned_at IS NULL AND status IN (?, ?)
		 ORDER BY borrowed_at DESC, id DESC LIMIT 1`,
		itemID, model.BorrowStatusBorrowed, model.BorrowStatusOverdue,
	)
	b, err := scanBorrow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active borrow: %w", err)
	}
	return b, nil
}

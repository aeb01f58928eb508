package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmfalke/stash/internal/model"
)

// WarrantyStore is an append-only record of warranty coverage per item.
type WarrantyStore struct {
	db *sql.DB
}

func NewWarrantyStore(db *sql.DB) *WarrantyStore {
	return &WarrantyStore{db: db}
}

func scanWarranty(scanner interface{ Scan(...any) error }) (*model.Warranty, error) {
	var w model.Warranty
	err := scanner.Scan(&w.ID, &w.ItemID, &w.Provider, &w.StartsAt, &w.ExpiresAt, &w.Notes, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

const warrantyCols = `id, item_id, provider, starts_at, expires_at, notes, created_at`

func (s *WarrantyStore) Create(ctx context.Context, itemID int64, provider string, startsAt, expiresAt time.Time, notes string) (*model.Warranty, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO warranties (item_id, provider, starts_at, expires_at, notes) VALUES (?, ?, ?, ?, ?)`,
		itemID, provider, startsAt.UTC(), expiresAt.UTC(), notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert warranty: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *WarrantyStore) GetByID(ctx context.Context, id int64) (*model.Warranty, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+warrantyCols+` FROM warranties WHERE id = ?`, id)
	w, err := scanWarranty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get warranty: %w", err)
	}
	return w, nil
}

func (s *WarrantyStore) ListByItem(ctx context.Context, itemID int64) ([]model.Warranty, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+warrantyCols+` FROM warranties WHERE item_id = ? ORDER BY expires_at DESC, id DESC`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("list warranties: %w", err)
	}
	defer rows.Close()

	var warranties []model.Warranty
	for rows.Next() {
		w, err := scanWarranty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warranty: %w", err)
		}
		warranties = append(warranties, *w)
	}
	return warranties, rows.Err()
}

// ExpiringWithin returns warranties that are still running now but expire
// inside the given window.
func (s *WarrantyStore) ExpiringWithin(ctx context.Context, window time.Duration) ([]model.Warranty, error) {
	now := time.Now().UTC()
	until := now.Add(window)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+warrantyCols+` FROM warranties WHERE expires_at > ? AND expires_at <= ? ORDER BY expires_at ASC`,
		now, until,
	)
	if err != nil {
		return nil, fmt.Errorf("list expiring warranties: %w", err)
	}
	defer rows.Close()

	var warranties []model.Warranty
	for rows.Next() {
		w, err := scanWarranty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warranty: %w", err)
		}
		warranties = append(warranties, *w)
	}
	return warranties, rows.Err()
}

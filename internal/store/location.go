package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmfalke/stash/internal/model"
)

// LocationStore owns the shared (area, container, sub-location) triples
// referenced by inventory details.
type LocationStore struct {
	db *sql.DB
}

func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

func scanLocation(scanner interface{ Scan(...any) error }) (*model.Location, error) {
	var l model.Location
	err := scanner.Scan(&l.ID, &l.Area, &l.Container, &l.SubLocation, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const locationCols = `id, area, container, sub_location, created_at`

// FindOrCreate returns the location for the given triple, creating it on
// first use. The same triple is never duplicated.
func (s *LocationStore) FindOrCreate(ctx context.Context, area, container, subLocation string) (*model.Location, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+locationCols+` FROM locations WHERE area = ? AND container = ? AND sub_location = ?`,
		area, container, subLocation,
	)
	l, err := scanLocation(row)
	if err == nil {
		return l, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("find location: %w", err)
	}

	// Races with a concurrent creator resolve through the unique
	// constraint: on conflict, re-read.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO locations (area, container, sub_location) VALUES (?, ?, ?)
		 ON CONFLICT (area, container, sub_location) DO NOTHING`,
		area, container, subLocation,
	)
	if err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return s.GetByID(ctx, id)
		}
	}

	row = s.db.QueryRowContext(ctx,
		`SELECT `+locationCols+` FROM locations WHERE area = ? AND container = ? AND sub_location = ?`,
		area, container, subLocation,
	)
	l, err = scanLocation(row)
	if err != nil {
		return nil, fmt.Errorf("reread location: %w", err)
	}
	return l, nil
}

func (s *LocationStore) GetByID(ctx context.Context, id int64) (*model.Location, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+locationCols+` FROM locations WHERE id = ?`, id)
	l, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return l, nil
}

func (s *LocationStore) List(ctx context.Context) ([]model.Location, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+locationCols+` FROM locations ORDER BY area ASC, container ASC, sub_location ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}

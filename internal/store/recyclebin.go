package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmfalke/stash/internal/model"
)

// DefaultRetention is how long binned items are kept before AutoClean
// removes them.
const DefaultRetention = 30 * 24 * time.Hour

// RecycleBinStore manages binned items on top of the lifecycle engine:
// reason tracking, age-based expiry, and batch cleanup.
type RecycleBinStore struct {
	db     *sql.DB
	engine *LifecycleEngine
}

func NewRecycleBinStore(db *sql.DB, engine *LifecycleEngine) *RecycleBinStore {
	return &RecycleBinStore{db: db, engine: engine}
}

// MoveToBin soft-deletes a single item with the given reason.
func (s *RecycleBinStore) MoveToBin(ctx context.Context, itemID int64, reason string) error {
	return s.engine.SoftDelete(ctx, itemID, reason)
}

// MoveManyToBin soft-deletes each item independently: every move is
// atomic on its own, and one item's failure never blocks the rest. The
// returned outcomes are in input order, one per id.
func (s *RecycleBinStore) MoveManyToBin(ctx context.Context, itemIDs []int64, reason string) []model.BinOutcome {
	outcomes := make([]model.BinOutcome, 0, len(itemIDs))
	for _, id := range itemIDs {
		outcome := model.BinOutcome{ItemID: id}
		if err := s.engine.SoftDelete(ctx, id, reason); err != nil {
			outcome.Error = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// ListBinned returns every item with an active DELETED state, enriched
// with the deletion reason and the phase the item occupied immediately
// before deletion (its most recently deactivated non-DELETED state).
func (s *RecycleBinStore) ListBinned(ctx context.Context) ([]model.BinnedItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColsJoined+`, st.activated_at, COALESCE(st.notes, ''),
		        (SELECT p.phase FROM item_states p
		         WHERE p.item_id = st.item_id AND p.active = 0 AND p.phase != ? AND p.deactivated_at IS NOT NULL
		         ORDER BY p.deactivated_at DESC, p.id DESC LIMIT 1)
		 FROM item_states st
		 JOIN items i ON i.id = st.item_id
		 WHERE st.phase = ? AND st.active = 1
		 ORDER BY st.activated_at DESC, i.id DESC`,
		model.PhaseDeleted, model.PhaseDeleted,
	)
	if err != nil {
		return nil, fmt.Errorf("list binned: %w", err)
	}
	defer rows.Close()

	var binned []model.BinnedItem
	for rows.Next() {
		var b model.BinnedItem
		var lat, lng sql.NullFloat64
		var prior sql.NullString

		err := rows.Scan(
			&b.Item.ID, &b.Item.UUID, &b.Item.Name, &b.Item.Category, &b.Item.Brand,
			&b.Item.Rating, &b.Item.Capacity, &b.Item.SerialNumber, &lat, &lng,
			&b.Item.Note, &b.Item.CreatedAt, &b.Item.UpdatedAt,
			&b.DeletedAt, &b.DeletedReason, &prior,
		)
		if err != nil {
			return nil, fmt.Errorf("scan binned item: %w", err)
		}

		if lat.Valid {
			b.Item.Latitude = &lat.Float64
		}
		if lng.Valid {
			b.Item.Longitude = &lng.Float64
		}
		if prior.Valid {
			phase := model.Phase(prior.String)
			b.PreviousPhase = &phase
		}
		binned = append(binned, b)
	}
	return binned, rows.Err()
}

// Restore takes an item out of the bin into targetPhase.
func (s *RecycleBinStore) Restore(ctx context.Context, itemID int64, targetPhase model.Phase) error {
	return s.engine.Restore(ctx, itemID, targetPhase)
}

// Delete permanently removes a single binned item.
func (s *RecycleBinStore) Delete(ctx context.Context, itemID int64) error {
	return s.engine.PermanentDelete(ctx, itemID)
}

// AutoClean permanently deletes binned items whose DELETED state activated
// before now minus age, and returns how many were removed. Safe to re-run:
// items already removed simply no longer match the scan.
func (s *RecycleBinStore) AutoClean(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-age)
	return s.purge(ctx, `SELECT item_id FROM item_states WHERE phase = ? AND active = 1 AND activated_at < ?`, model.PhaseDeleted, cutoff)
}

// ClearBin permanently deletes every binned item regardless of age, and
// returns how many were removed.
func (s *RecycleBinStore) ClearBin(ctx context.Context) (int, error) {
	return s.purge(ctx, `SELECT item_id FROM item_states WHERE phase = ? AND active = 1`, model.PhaseDeleted)
}

func (s *RecycleBinStore) purge(ctx context.Context, query string, args ...any) (int, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("scan bin: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan bin id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	// Each delete is its own transaction; an item removed out from under
	// us by a concurrent cleanup is not an error.
	count := 0
	for _, id := range ids {
		if err := s.engine.PermanentDelete(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return count, fmt.Errorf("purge item %d: %w", id, err)
		}
		count++
	}
	return count, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmfalke/stash/internal/model"
)

// StateStore reads the state ledger: the only source of truth for which
// phase(s) an item currently occupies. All writes to the ledger happen
// inside LifecycleEngine transactions.
type StateStore struct {
	db *sql.DB
}

func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

func scanState(scanner interface{ Scan(...any) error }) (*model.ItemState, error) {
	var st model.ItemState
	var active int
	var contextID sql.NullInt64
	var deactivatedAt sql.NullTime
	var notes, metadata sql.NullString

	err := scanner.Scan(
		&st.ID, &st.ItemID, &st.Phase, &active, &contextID,
		&st.ActivatedAt, &deactivatedAt, &notes, &metadata,
	)
	if err != nil {
		return nil, err
	}

	st.Active = active != 0
	if contextID.Valid {
		st.ContextID = &contextID.Int64
	}
	if deactivatedAt.Valid {
		st.DeactivatedAt = &deactivatedAt.Time
	}
	if notes.Valid {
		st.Notes = &notes.String
	}
	if metadata.Valid {
		st.Metadata = &metadata.String
	}
	return &st, nil
}

const stateCols = `id, item_id, phase, active, context_id, activated_at, deactivated_at, notes, metadata`

// ActiveStates returns every currently-active state record for an item.
func (s *StateStore) ActiveStates(ctx context.Context, itemID int64) ([]model.ItemState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stateCols+` FROM item_states WHERE item_id = ? AND active = 1 ORDER BY activated_at ASC, id ASC`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("active states: %w", err)
	}
	defer rows.Close()

	var states []model.ItemState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		states = append(states, *st)
	}
	return states, rows.Err()
}

// ActivePhases returns the set of phases an item is currently active in.
func (s *StateStore) ActivePhases(ctx context.Context, itemID int64) ([]model.Phase, error) {
	states, err := s.ActiveStates(ctx, itemID)
	if err != nil {
		return nil, err
	}
	phases := make([]model.Phase, 0, len(states))
	for _, st := range states {
		phases = append(phases, st.Phase)
	}
	return phases, nil
}

// IsActive reports whether the item has an active state in the given phase.
func (s *StateStore) IsActive(ctx context.Context, itemID int64, phase model.Phase) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM item_states WHERE item_id = ? AND phase = ? AND active = 1`,
		itemID, phase,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is active: %w", err)
	}
	return n > 0, nil
}

// History returns the full ledger for an item, newest first.
func (s *StateStore) History(ctx context.Context, itemID int64) ([]model.ItemState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stateCols+` FROM item_states WHERE item_id = ? ORDER BY activated_at DESC, id DESC`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("state history: %w", err)
	}
	defer rows.Close()

	var states []model.ItemState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		states = append(states, *st)
	}
	return states, rows.Err()
}

// PriorPhase returns the phase an item occupied immediately before
// deletion: the most recently deactivated non-DELETED state. Returns nil
// if the item has no such record.
func (s *StateStore) PriorPhase(ctx context.Context, itemID int64) (*model.Phase, error) {
	var phase model.Phase
	err := s.db.QueryRowContext(ctx,
		`SELECT phase FROM item_states
		 WHERE item_id = ? AND active = 0 AND phase != ? AND deactivated_at IS NOT NULL
		 ORDER BY deactivated_at DESC, id DESC LIMIT 1`,
		itemID, model.PhaseDeleted,
	).Scan(&phase)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("prior phase: %w", err)
	}
	return &phase, nil
}

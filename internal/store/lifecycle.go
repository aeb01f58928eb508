package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmfalke/stash/internal/model"
)

// LifecycleEngine owns every mutation of an item's lifecycle. Each
// operation runs as a single transaction touching the item row, the
// relevant detail table(s), and the state ledger; a failure anywhere rolls
// the whole operation back. The storage layer's transaction isolation is
// the only mutual exclusion: the engine holds no locks and never retries.
type LifecycleEngine struct {
	db *sql.DB
}

func NewLifecycleEngine(db *sql.DB) *LifecycleEngine {
	return &LifecycleEngine{db: db}
}

// CreateInPhase inserts the item, its phase detail, and an active state
// record atomically. The phase is derived from the detail's type; contextID
// (e.g. a shopping-list id) is carried on the state record when given.
// Returns the new item id.
func (e *LifecycleEngine) CreateInPhase(ctx context.Context, item *model.Item, detail model.Detail, contextID *int64) (int64, error) {
	if item == nil || detail == nil {
		return 0, fmt.Errorf("create in phase: %w: item and detail are required", ErrInvalidTransition)
	}
	phase := detail.DetailPhase()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify("create in phase: begin", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if item.UUID == "" {
		item.UUID = uuid.NewString()
	}

	var lat, lng sql.NullFloat64
	if item.Latitude != nil {
		lat = sql.NullFloat64{Float64: *item.Latitude, Valid: true}
	}
	if item.Longitude != nil {
		lng = sql.NullFloat64{Float64: *item.Longitude, Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO items (uuid, name, category, brand, rating, capacity, serial_number, latitude, longitude, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.UUID, item.Name, item.Category, item.Brand, item.Rating,
		item.Capacity, item.SerialNumber, lat, lng, item.Note,
	)
	if err != nil {
		return 0, classify("insert item", err)
	}
	itemID, err := res.LastInsertId()
	if err != nil {
		return 0, classify("insert item: last insert id", err)
	}

	if err := insertDetail(ctx, tx, itemID, detail); err != nil {
		return 0, err
	}

	if err := insertState(ctx, tx, itemID, phase, contextID, nil, now); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, classify("create in phase: commit", err)
	}
	item.ID = itemID
	return itemID, nil
}

// TransferPhase moves an item between phases atomically: it inserts the
// target detail, deactivates the source phase's active state, archives the
// source detail (kept as history, never deleted), and activates a state
// record for the target phase. A shopping detail archived by a transfer to
// inventory is additionally marked purchased.
//
// The source phase is re-validated inside the transaction, so of two
// concurrent transfers on the same item at most one can commit; the other
// fails with ErrInvalidTransition or ErrTransactionFailed.
func (e *LifecycleEngine) TransferPhase(ctx context.Context, itemID int64, from model.Phase, target model.Detail, contextID *int64) error {
	if target == nil {
		return fmt.Errorf("transfer phase: %w: target detail is required", ErrInvalidTransition)
	}
	to := target.DetailPhase()
	if from == to {
		return fmt.Errorf("transfer phase: %w: source and target phase are both %s", ErrInvalidTransition, from)
	}
	switch from {
	case model.PhaseWishlist, model.PhaseShopping, model.PhaseInventory:
	default:
		return fmt.Errorf("transfer phase: %w: cannot transfer from %s", ErrInvalidTransition, from)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("transfer phase: begin", err)
	}
	defer tx.Rollback()

	if err := requireItem(ctx, tx, itemID); err != nil {
		return err
	}

	active, err := phaseActive(ctx, tx, itemID, from)
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("transfer phase: %w: item %d is not active in %s", ErrInvalidTransition, itemID, from)
	}

	now := time.Now().UTC()

	if err := insertDetail(ctx, tx, itemID, target); err != nil {
		return err
	}

	notes := fmt.Sprintf("archived - transitioned to %s", to)
	if err := deactivatePhase(ctx, tx, itemID, from, notes, now); err != nil {
		return err
	}

	if err := archiveDetail(ctx, tx, itemID, from, to, now); err != nil {
		return err
	}

	if err := insertState(ctx, tx, itemID, to, contextID, nil, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("transfer phase: commit", err)
	}
	return nil
}

// SoftDelete moves an item to the recycle bin: every active state record,
// whatever its phase, is deactivated and a single active DELETED record
// carrying the reason is inserted. Already-binned items are left as they
// are. Detail rows are untouched so a later restore finds them intact.
func (e *LifecycleEngine) SoftDelete(ctx context.Context, itemID int64, reason string) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("soft delete: begin", err)
	}
	defer tx.Rollback()

	if err := requireItem(ctx, tx, itemID); err != nil {
		return err
	}

	binned, err := phaseActive(ctx, tx, itemID, model.PhaseDeleted)
	if err != nil {
		return err
	}
	if binned {
		return nil
	}

	now := time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		`UPDATE item_states SET active = 0, deactivated_at = ?, notes = ? WHERE item_id = ? AND active = 1`,
		now, "archived - moved to recycle bin", itemID,
	); err != nil {
		return classify("deactivate states", err)
	}

	if err := insertState(ctx, tx, itemID, model.PhaseDeleted, nil, &reason, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("soft delete: commit", err)
	}
	return nil
}

// Restore takes an item out of the recycle bin into targetPhase. The
// DELETED state is deactivated and a state record for the target phase is
// activated. Restore does not materialize detail rows: the target phase's
// current detail must still exist, which holds for any phase the item was
// in when it was deleted (soft delete never touches details). Restoring an
// item that is not in the bin is a no-op success.
func (e *LifecycleEngine) Restore(ctx context.Context, itemID int64, targetPhase model.Phase) error {
	switch targetPhase {
	case model.PhaseShopping, model.PhaseInventory:
	default:
		return fmt.Errorf("restore: %w: cannot restore into %s", ErrInvalidTransition, targetPhase)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("restore: begin", err)
	}
	defer tx.Rollback()

	if err := requireItem(ctx, tx, itemID); err != nil {
		return err
	}

	binned, err := phaseActive(ctx, tx, itemID, model.PhaseDeleted)
	if err != nil {
		return err
	}
	if !binned {
		return nil
	}

	hasDetail, err := currentDetailExists(ctx, tx, itemID, targetPhase)
	if err != nil {
		return err
	}
	if !hasDetail {
		return fmt.Errorf("restore: %w: item %d has no current %s detail", ErrInvalidTransition, itemID, targetPhase)
	}

	now := time.Now().UTC()

	notes := fmt.Sprintf("restored to %s", targetPhase)
	if err := deactivatePhase(ctx, tx, itemID, model.PhaseDeleted, notes, now); err != nil {
		return err
	}

	if err := insertState(ctx, tx, itemID, targetPhase, nil, nil, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("restore: commit", err)
	}
	return nil
}

// PermanentDelete removes the item's state records and the item row. The
// detail, borrow, and warranty rows go with it through the schema's
// ON DELETE CASCADE; the engine deliberately does not delete them itself.
func (e *LifecycleEngine) PermanentDelete(ctx context.Context, itemID int64) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("permanent delete: begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_states WHERE item_id = ?`, itemID); err != nil {
		return classify("delete states", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, itemID)
	if err != nil {
		return classify("delete item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete item: rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("permanent delete: item %d: %w", itemID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return classify("permanent delete: commit", err)
	}
	return nil
}

// --- Transaction helpers ---

func requireItem(ctx context.Context, tx *sql.Tx, itemID int64) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE id = ?`, itemID).Scan(&n); err != nil {
		return classify("check item", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

func phaseActive(ctx context.Context, tx *sql.Tx, itemID int64, phase model.Phase) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM item_states WHERE item_id = ? AND phase = ? AND active = 1`,
		itemID, phase,
	).Scan(&n)
	if err != nil {
		return false, classify("check active phase", err)
	}
	return n > 0, nil
}

func insertState(ctx context.Context, tx *sql.Tx, itemID int64, phase model.Phase, contextID *int64, notes *string, now time.Time) error {
	var cID sql.NullInt64
	if contextID != nil {
		cID = sql.NullInt64{Int64: *contextID, Valid: true}
	}
	var n sql.NullString
	if notes != nil {
		n = sql.NullString{String: *notes, Valid: true}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO item_states (item_id, phase, active, context_id, activated_at, notes) VALUES (?, ?, 1, ?, ?, ?)`,
		itemID, phase, cID, now, n,
	)
	if err != nil {
		return classify(fmt.Sprintf("activate %s state", phase), err)
	}
	return nil
}

func deactivatePhase(ctx context.Context, tx *sql.Tx, itemID int64, phase model.Phase, notes string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE item_states SET active = 0, deactivated_at = ?, notes = ? WHERE item_id = ? AND phase = ? AND active = 1`,
		now, notes, itemID, phase,
	)
	if err != nil {
		return classify(fmt.Sprintf("deactivate %s state", phase), err)
	}
	return nil
}

func insertDetail(ctx context.Context, tx *sql.Tx, itemID int64, detail model.Detail) error {
	switch d := detail.(type) {
	case *model.InventoryDetail:
		var locationID sql.NullInt64
		if d.LocationID != nil {
			locationID = sql.NullInt64{Int64: *d.LocationID, Valid: true}
		}
		var expiresAt sql.NullTime
		if d.ExpiresAt != nil {
			expiresAt = sql.NullTime{Time: *d.ExpiresAt, Valid: true}
		}
		status := d.Status
		if status == "" {
			status = model.StatusInStock
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO inventory_details (item_id, quantity, unit, location_id, expires_at, stock_threshold, opened, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			itemID, d.Quantity, d.Unit, locationID, expiresAt,
			d.StockThreshold, boolToInt(d.Opened), status,
		)
		if err != nil {
			return classify("insert inventory detail", err)
		}
		d.ItemID = itemID
		return nil

	case *model.ShoppingDetail:
		var actualPrice sql.NullFloat64
		if d.ActualPrice != nil {
			actualPrice = sql.NullFloat64{Float64: *d.ActualPrice, Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO shopping_details (item_id, quantity, unit, estimated_price, actual_price, purchased)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			itemID, d.Quantity, d.Unit, d.EstimatedPrice, actualPrice, boolToInt(d.Purchased),
		)
		if err != nil {
			return classify("insert shopping detail", err)
		}
		d.ItemID = itemID
		return nil

	default:
		return fmt.Errorf("insert detail: %w: unsupported detail type %T", ErrInvalidTransition, detail)
	}
}

// archiveDetail flags the source phase's current detail row as archived.
// The row stays behind as a historical record; a shopping detail leaving
// for inventory is also marked purchased for later price analytics.
func archiveDetail(ctx context.Context, tx *sql.Tx, itemID int64, from, to model.Phase, now time.Time) error {
	switch from {
	case model.PhaseInventory:
		_, err := tx.ExecContext(ctx,
			`UPDATE inventory_details SET archived = 1, updated_at = ? WHERE item_id = ? AND archived = 0`,
			now, itemID,
		)
		if err != nil {
			return classify("archive inventory detail", err)
		}
	case model.PhaseShopping:
		purchased := 0
		if to == model.PhaseInventory {
			purchased = 1
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE shopping_details SET archived = 1, purchased = MAX(purchased, ?), updated_at = ? WHERE item_id = ? AND archived = 0`,
			purchased, now, itemID,
		)
		if err != nil {
			return classify("archive shopping detail", err)
		}
	case model.PhaseWishlist:
		// Wishlist details belong to the wishlist subsystem and carry no
		// archived flag; nothing to do.
	}
	return nil
}

func currentDetailExists(ctx context.Context, tx *sql.Tx, itemID int64, phase model.Phase) (bool, error) {
	var table string
	switch phase {
	case model.PhaseInventory:
		table = "inventory_details"
	case model.PhaseShopping:
		table = "shopping_details"
	default:
		return false, nil
	}

	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE item_id = ? AND archived = 0`,
		itemID,
	).Scan(&n)
	if err != nil {
		return false, classify("check detail", err)
	}
	return n > 0, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmfalke/stash/internal/model"
)

// ItemStore owns the base item rows and the phase listing queries. All
// lifecycle mutations go through the LifecycleEngine; this store only
// reads items and edits phase-independent attributes.
type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var it model.Item
	var lat, lng sql.NullFloat64

	err := scanner.Scan(
		&it.ID, &it.UUID, &it.Name, &it.Category, &it.Brand, &it.Rating,
		&it.Capacity, &it.SerialNumber, &lat, &lng, &it.Note,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid {
		it.Latitude = &lat.Float64
	}
	if lng.Valid {
		it.Longitude = &lng.Float64
	}
	return &it, nil
}

const itemCols = `id, uuid, name, category, brand, rating, capacity, serial_number, latitude, longitude, note, created_at, updated_at`

func (s *ItemStore) GetByID(ctx context.Context, id int64) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (s *ItemStore) GetByUUID(ctx context.Context, uuid string) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM items WHERE uuid = ?`, uuid)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by uuid: %w", err)
	}
	return it, nil
}

// Update edits the phase-independent attributes of an item. The state
// ledger and detail rows are untouched.
func (s *ItemStore) Update(ctx context.Context, it *model.Item) error {
	var lat, lng sql.NullFloat64
	if it.Latitude != nil {
		lat = sql.NullFloat64{Float64: *it.Latitude, Valid: true}
	}
	if it.Longitude != nil {
		lng = sql.NullFloat64{Float64: *it.Longitude, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET name = ?, category = ?, brand = ?, rating = ?, capacity = ?,
		 serial_number = ?, latitude = ?, longitude = ?, note = ?, updated_at = ?
		 WHERE id = ?`,
		it.Name, it.Category, it.Brand, it.Rating, it.Capacity,
		it.SerialNumber, lat, lng, it.Note, time.Now().UTC(), it.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update item %d: %w", it.ID, ErrNotFound)
	}
	return nil
}

// --- Phase listings ---
//
// Each listing is a single SELECT joining the active state rows with the
// item and the current detail. List plus overlay resolution is two reads,
// so results are not point-in-time consistent against concurrent writes.

func scanInventoryDetail(scanner interface{ Scan(...any) error }) (*model.InventoryDetail, error) {
	var d model.InventoryDetail
	var locationID sql.NullInt64
	var expiresAt sql.NullTime
	var opened, archived int

	err := scanner.Scan(
		&d.ID, &d.ItemID, &d.Quantity, &d.Unit, &locationID, &expiresAt,
		&d.StockThreshold, &opened, &d.Status, &archived,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Opened = opened != 0
	d.Archived = archived != 0
	if locationID.Valid {
		d.LocationID = &locationID.Int64
	}
	if expiresAt.Valid {
		d.ExpiresAt = &expiresAt.Time
	}
	return &d, nil
}

const inventoryDetailCols = `id, item_id, quantity, unit, location_id, expires_at, stock_threshold, opened, status, archived, created_at, updated_at`

func scanShoppingDetail(scanner interface{ Scan(...any) error }) (*model.ShoppingDetail, error) {
	var d model.ShoppingDetail
	var actualPrice sql.NullFloat64
	var purchased, archived int

	err := scanner.Scan(
		&d.ID, &d.ItemID, &d.Quantity, &d.Unit, &d.EstimatedPrice,
		&actualPrice, &purchased, &archived, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Purchased = purchased != 0
	d.Archived = archived != 0
	if actualPrice.Valid {
		d.ActualPrice = &actualPrice.Float64
	}
	return &d, nil
}

const shoppingDetailCols = `id, item_id, quantity, unit, estimated_price, actual_price, purchased, archived, created_at, updated_at`

const itemColsJoined = `i.id, i.uuid, i.name, i.category, i.brand, i.rating, i.capacity, i.serial_number, i.latitude, i.longitude, i.note, i.created_at, i.updated_at`

const inventoryDetailColsJoined = `d.id, d.item_id, d.quantity, d.unit, d.location_id, d.expires_at, d.stock_threshold, d.opened, d.status, d.archived, d.created_at, d.updated_at`

const shoppingDetailColsJoined = `d.id, d.item_id, d.quantity, d.unit, d.estimated_price, d.actual_price, d.purchased, d.archived, d.created_at, d.updated_at`

// ListInventory returns items with an active INVENTORY state joined with
// their current inventory detail.
func (s *ItemStore) ListInventory(ctx context.Context) ([]model.InventoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColsJoined+`, `+inventoryDetailColsJoined+`
		 FROM item_states st
		 JOIN items i ON i.id = st.item_id
		 JOIN inventory_details d ON d.item_id = st.item_id AND d.archived = 0
		 WHERE st.phase = ? AND st.active = 1
		 ORDER BY i.name ASC, i.id ASC`,
		model.PhaseInventory,
	)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var entries []model.InventoryEntry
	for rows.Next() {
		var e model.InventoryEntry
		var lat, lng sql.NullFloat64
		var locationID sql.NullInt64
		var expiresAt sql.NullTime
		var opened, archived int

		err := rows.Scan(
			&e.Item.ID, &e.Item.UUID, &e.Item.Name, &e.Item.Category, &e.Item.Brand,
			&e.Item.Rating, &e.Item.Capacity, &e.Item.SerialNumber, &lat, &lng,
			&e.Item.Note, &e.Item.CreatedAt, &e.Item.UpdatedAt,
			&e.Detail.ID, &e.Detail.ItemID, &e.Detail.Quantity, &e.Detail.Unit,
			&locationID, &expiresAt, &e.Detail.StockThreshold, &opened,
			&e.Detail.Status, &archived, &e.Detail.CreatedAt, &e.Detail.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan inventory entry: %w", err)
		}

		if lat.Valid {
			e.Item.Latitude = &lat.Float64
		}
		if lng.Valid {
			e.Item.Longitude = &lng.Float64
		}
		if locationID.Valid {
			e.Detail.LocationID = &locationID.Int64
		}
		if expiresAt.Valid {
			e.Detail.ExpiresAt = &expiresAt.Time
		}
		e.Detail.Opened = opened != 0
		e.Detail.Archived = archived != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListShopping returns items with an active SHOPPING state joined with
// their current shopping detail and list context.
func (s *ItemStore) ListShopping(ctx context.Context) ([]model.ShoppingEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColsJoined+`, `+shoppingDetailColsJoined+`, st.context_id
		 FROM item_states st
		 JOIN items i ON i.id = st.item_id
		 JOIN shopping_details d ON d.item_id = st.item_id AND d.archived = 0
		 WHERE st.phase = ? AND st.active = 1
		 ORDER BY i.name ASC, i.id ASC`,
		model.PhaseShopping,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping: %w", err)
	}
	defer rows.Close()

	var entries []model.ShoppingEntry
	for rows.Next() {
		var e model.ShoppingEntry
		var lat, lng, actualPrice sql.NullFloat64
		var contextID sql.NullInt64
		var purchased, archived int

		err := rows.Scan(
			&e.Item.ID, &e.Item.UUID, &e.Item.Name, &e.Item.Category, &e.Item.Brand,
			&e.Item.Rating, &e.Item.Capacity, &e.Item.SerialNumber, &lat, &lng,
			&e.Item.Note, &e.Item.CreatedAt, &e.Item.UpdatedAt,
			&e.Detail.ID, &e.Detail.ItemID, &e.Detail.Quantity, &e.Detail.Unit,
			&e.Detail.EstimatedPrice, &actualPrice, &purchased, &archived,
			&e.Detail.CreatedAt, &e.Detail.UpdatedAt, &contextID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan shopping entry: %w", err)
		}

		if lat.Valid {
			e.Item.Latitude = &lat.Float64
		}
		if lng.Valid {
			e.Item.Longitude = &lng.Float64
		}
		if actualPrice.Valid {
			e.Detail.ActualPrice = &actualPrice.Float64
		}
		if contextID.Valid {
			e.ContextID = &contextID.Int64
		}
		e.Detail.Purchased = purchased != 0
		e.Detail.Archived = archived != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetInventoryDetail returns the current (non-archived) inventory detail
// for an item, or nil if none exists.
func (s *ItemStore) GetInventoryDetail(ctx context.Context, itemID int64) (*model.InventoryDetail, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+inventoryDetailCols+` FROM inventory_details WHERE item_id = ? AND archived = 0`,
		itemID,
	)
	d, err := scanInventoryDetail(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory detail: %w", err)
	}
	return d, nil
}

// GetShoppingDetail returns the current (non-archived) shopping detail for
// an item, or nil if none exists.
func (s *ItemStore) GetShoppingDetail(ctx context.Context, itemID int64) (*model.ShoppingDetail, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+shoppingDetailCols+` FROM shopping_details WHERE item_id = ? AND archived = 0`,
		itemID,
	)
	d, err := scanShoppingDetail(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping detail: %w", err)
	}
	return d, nil
}

// UpdateInventoryDetail edits the current inventory detail for an item.
func (s *ItemStore) UpdateInventoryDetail(ctx context.Context, d *model.InventoryDetail) error {
	var locationID sql.NullInt64
	if d.LocationID != nil {
		locationID = sql.NullInt64{Int64: *d.LocationID, Valid: true}
	}
	var expiresAt sql.NullTime
	if d.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *d.ExpiresAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE inventory_details
		 SET quantity = ?, unit = ?, location_id = ?, expires_at = ?, stock_threshold = ?, opened = ?, status = ?, updated_at = ?
		 WHERE item_id = ? AND archived = 0`,
		d.Quantity, d.Unit, locationID, expiresAt, d.StockThreshold,
		boolToInt(d.Opened), d.Status, time.Now().UTC(), d.ItemID,
	)
	if err != nil {
		return fmt.Errorf("update inventory detail: %w", err)
	}
	return nil
}

// UpdateShoppingDetail edits the current shopping detail for an item.
func (s *ItemStore) UpdateShoppingDetail(ctx context.Context, d *model.ShoppingDetail) error {
	var actualPrice sql.NullFloat64
	if d.ActualPrice != nil {
		actualPrice = sql.NullFloat64{Float64: *d.ActualPrice, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE shopping_details
		 SET quantity = ?, unit = ?, estimated_price = ?, actual_price = ?, updated_at = ?
		 WHERE item_id = ? AND archived = 0`,
		d.Quantity, d.Unit, d.EstimatedPrice, actualPrice, time.Now().UTC(), d.ItemID,
	)
	if err != nil {
		return fmt.Errorf("update shopping detail: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

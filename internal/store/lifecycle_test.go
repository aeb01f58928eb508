package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dmfalke/stash/internal/database"
	"github.com/dmfalke/stash/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createInventoryItem(t *testing.T, engine *LifecycleEngine, name string, quantity int) int64 {
	t.Helper()
	id, err := engine.CreateInPhase(context.Background(),
		&model.Item{Name: name},
		&model.InventoryDetail{Quantity: quantity, Unit: "pcs"},
		nil,
	)
	if err != nil {
		t.Fatalf("create inventory item: %v", err)
	}
	return id
}

func createShoppingItem(t *testing.T, engine *LifecycleEngine, name string, quantity int) int64 {
	t.Helper()
	id, err := engine.CreateInPhase(context.Background(),
		&model.Item{Name: name},
		&model.ShoppingDetail{Quantity: quantity, EstimatedPrice: 1.50},
		nil,
	)
	if err != nil {
		t.Fatalf("create shopping item: %v", err)
	}
	return id
}

// countActiveStates returns how many active state rows the item has in the
// given phase.
func countActiveStates(t *testing.T, db *sql.DB, itemID int64, phase model.Phase) int {
	t.Helper()
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM item_states WHERE item_id = ? AND phase = ? AND active = 1`,
		itemID, phase,
	).Scan(&n)
	if err != nil {
		t.Fatalf("count active states: %v", err)
	}
	return n
}

func TestCreateInInventory(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	items := NewItemStore(db)

	id := createInventoryItem(t, engine, "Drill", 1)
	if id == 0 {
		t.Fatal("expected non-zero item id")
	}

	it, err := items.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if it == nil {
		t.Fatal("expected item row")
	}
	if it.Name != "Drill" {
		t.Errorf("name = %q, want %q", it.Name, "Drill")
	}
	if it.UUID == "" {
		t.Error("expected a generated uuid")
	}

	detail, err := items.GetInventoryDetail(context.Background(), id)
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}
	if detail == nil {
		t.Fatal("expected inventory detail")
	}
	if detail.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", detail.Quantity)
	}
	if detail.Status != model.StatusInStock {
		t.Errorf("status = %q, want %q", detail.Status, model.StatusInStock)
	}

	if n := countActiveStates(t, db, id, model.PhaseInventory); n != 1 {
		t.Errorf("active INVENTORY states = %d, want 1", n)
	}
}

func TestCreateInShoppingWithContext(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	states := NewStateStore(db)

	listID := int64(7)
	id, err := engine.CreateInPhase(context.Background(),
		&model.Item{Name: "Milk"},
		&model.ShoppingDetail{Quantity: 2, EstimatedPrice: 1.20},
		&listID,
	)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	active, err := states.ActiveStates(context.Background(), id)
	if err != nil {
		t.Fatalf("active states: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active state, got %d", len(active))
	}
	if active[0].Phase != model.PhaseShopping {
		t.Errorf("phase = %s, want SHOPPING", active[0].Phase)
	}
	if active[0].ContextID == nil || *active[0].ContextID != listID {
		t.Errorf("context id = %v, want %d", active[0].ContextID, listID)
	}
}

func TestCreateRequiresDetail(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)

	_, err := engine.CreateInPhase(context.Background(), &model.Item{Name: "x"}, nil, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// No orphan item row may survive the failed create.
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 items, got %d", n)
	}
}

func TestTransferShoppingToInventory(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	items := NewItemStore(db)
	ctx := context.Background()

	id := createShoppingItem(t, engine, "Milk", 2)

	err := engine.TransferPhase(ctx, id, model.PhaseShopping,
		&model.InventoryDetail{Quantity: 2, Unit: "L"}, nil)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	inventory, err := items.ListInventory(ctx)
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(inventory) != 1 {
		t.Fatalf("expected 1 inventory entry, got %d", len(inventory))
	}
	if inventory[0].Item.Name != "Milk" {
		t.Errorf("name = %q, want Milk", inventory[0].Item.Name)
	}
	if inventory[0].Detail.Quantity != 2 || inventory[0].Detail.Unit != "L" {
		t.Errorf("detail = %d %q, want 2 L", inventory[0].Detail.Quantity, inventory[0].Detail.Unit)
	}

	shopping, err := items.ListShopping(ctx)
	if err != nil {
		t.Fatalf("list shopping: %v", err)
	}
	if len(shopping) != 0 {
		t.Fatalf("expected 0 shopping entries, got %d", len(shopping))
	}

	// The shopping detail survives as an archived, purchased record.
	var archived, purchased int
	err = db.QueryRow(
		`SELECT archived, purchased FROM shopping_details WHERE item_id = ?`, id,
	).Scan(&archived, &purchased)
	if err != nil {
		t.Fatalf("query shopping detail: %v", err)
	}
	if archived != 1 {
		t.Error("expected shopping detail to be archived")
	}
	if purchased != 1 {
		t.Error("expected shopping detail to be marked purchased")
	}

	// The deactivated state carries an audit note.
	var notes string
	err = db.QueryRow(
		`SELECT notes FROM item_states WHERE item_id = ? AND phase = ? AND active = 0`,
		id, model.PhaseShopping,
	).Scan(&notes)
	if err != nil {
		t.Fatalf("query deactivated state: %v", err)
	}
	if notes != "archived - transitioned to INVENTORY" {
		t.Errorf("notes = %q", notes)
	}
}

func TestTransferSourceNotActive(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)

	id := createShoppingItem(t, engine, "Eggs", 12)

	err := engine.TransferPhase(context.Background(), id, model.PhaseInventory,
		&model.ShoppingDetail{Quantity: 12}, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransferMissingItem(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)

	err := engine.TransferPhase(context.Background(), 999, model.PhaseShopping,
		&model.InventoryDetail{Quantity: 1}, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransferSamePhase(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)

	id := createShoppingItem(t, engine, "Eggs", 12)

	err := engine.TransferPhase(context.Background(), id, model.PhaseShopping,
		&model.ShoppingDetail{Quantity: 6}, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

// Two transfers racing on the same item: the engine re-checks the source
// phase inside the transaction, so only the first can commit and the item
// never ends up with two active primary phases.
func TestTransferConflict(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	ctx := context.Background()

	id := createShoppingItem(t, engine, "Milk", 2)

	if err := engine.TransferPhase(ctx, id, model.PhaseShopping,
		&model.InventoryDetail{Quantity: 2, Unit: "L"}, nil); err != nil {
		t.Fatalf("first transfer: %v", err)
	}

	err := engine.TransferPhase(ctx, id, model.PhaseShopping,
		&model.InventoryDetail{Quantity: 2, Unit: "L"}, nil)
	if !errors.Is(err, ErrInvalidTransition) && !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("expected ErrInvalidTransition or ErrTransactionFailed, got %v", err)
	}

	if n := countActiveStates(t, db, id, model.PhaseInventory); n != 1 {
		t.Errorf("active INVENTORY states = %d, want 1", n)
	}
	if n := countActiveStates(t, db, id, model.PhaseShopping); n != 0 {
		t.Errorf("active SHOPPING states = %d, want 0", n)
	}
}

func TestSoftDeleteDeactivatesAllPhases(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	states := NewStateStore(db)
	ctx := context.Background()

	id := createInventoryItem(t, engine, "Ladder", 1)

	if err := engine.SoftDelete(ctx, id, "broken"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	active, err := states.ActiveStates(ctx, id)
	if err != nil {
		t.Fatalf("active states: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly 1 active state, got %d", len(active))
	}
	if active[0].Phase != model.PhaseDeleted {
		t.Errorf("active phase = %s, want DELETED", active[0].Phase)
	}
	if active[0].Notes == nil || *active[0].Notes != "broken" {
		t.Errorf("reason = %v, want broken", active[0].Notes)
	}
}

func TestSoftDeleteIdempotent(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	ctx := context.Background()

	id := createInventoryItem(t, engine, "Ladder", 1)

	if err := engine.SoftDelete(ctx, id, "first"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := engine.SoftDelete(ctx, id, "second"); err != nil {
		t.Fatalf("repeat soft delete: %v", err)
	}

	if n := countActiveStates(t, db, id, model.PhaseDeleted); n != 1 {
		t.Errorf("active DELETED states = %d, want 1", n)
	}
}

func TestSoftDeleteMissingItem(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)

	err := engine.SoftDelete(context.Background(), 999, "gone")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Create, soft delete, restore into the same phase: the item comes back
// with its detail values intact.
func TestRestoreRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	items := NewItemStore(db)
	ctx := context.Background()

	id, err := engine.CreateInPhase(ctx,
		&model.Item{Name: "Tent", Brand: "Northpeak", Rating: 4},
		&model.InventoryDetail{Quantity: 1, Unit: "pcs", StockThreshold: 0, Opened: true},
		nil,
	)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	before, err := items.GetInventoryDetail(ctx, id)
	if err != nil || before == nil {
		t.Fatalf("get detail before: %v", err)
	}

	if err := engine.SoftDelete(ctx, id, "spring cleaning"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := engine.Restore(ctx, id, model.PhaseInventory); err != nil {
		t.Fatalf("restore: %v", err)
	}

	after, err := items.GetInventoryDetail(ctx, id)
	if err != nil || after == nil {
		t.Fatalf("get detail after: %v", err)
	}
	if after.Quantity != before.Quantity || after.Unit != before.Unit || after.Opened != before.Opened {
		t.Errorf("detail changed across round trip: before %+v after %+v", before, after)
	}

	if n := countActiveStates(t, db, id, model.PhaseInventory); n != 1 {
		t.Errorf("active INVENTORY states = %d, want 1", n)
	}
	if n := countActiveStates(t, db, id, model.PhaseDeleted); n != 0 {
		t.Errorf("active DELETED states = %d, want 0", n)
	}
}

func TestRestoreNotBinnedIsNoop(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)

	id := createInventoryItem(t, engine, "Drill", 1)

	if err := engine.Restore(context.Background(), id, model.PhaseInventory); err != nil {
		t.Fatalf("restore on live item should be a no-op, got %v", err)
	}

	if n := countActiveStates(t, db, id, model.PhaseInventory); n != 1 {
		t.Errorf("active INVENTORY states = %d, want 1", n)
	}
}

// Restoring into a phase the item never had a detail for is refused
// rather than fabricating detail values.
func TestRestoreWithoutDetail(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	ctx := context.Background()

	id := createShoppingItem(t, engine, "Milk", 2)
	if err := engine.SoftDelete(ctx, id, "dupe"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	err := engine.Restore(ctx, id, model.PhaseInventory)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// The item must still be in the bin.
	if n := countActiveStates(t, db, id, model.PhaseDeleted); n != 1 {
		t.Errorf("active DELETED states = %d, want 1", n)
	}
}

func TestRestoreInvalidTargets(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	ctx := context.Background()

	id := createInventoryItem(t, engine, "Drill", 1)
	if err := engine.SoftDelete(ctx, id, "x"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	for _, phase := range []model.Phase{model.PhaseDeleted, model.PhaseWishlist} {
		if err := engine.Restore(ctx, id, phase); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("restore into %s: expected ErrInvalidTransition, got %v", phase, err)
		}
	}
}

func TestPermanentDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	borrows := NewBorrowStore(db)
	warranties := NewWarrantyStore(db)
	ctx := context.Background()

	id := createInventoryItem(t, engine, "Bike", 1)
	if _, err := borrows.Create(ctx, id, "Sam", "", "", nil); err != nil {
		t.Fatalf("create borrow: %v", err)
	}
	w, err := warranties.Create(ctx, id, "Shop", mustTime(t, "2026-01-01"), mustTime(t, "2028-01-01"), "")
	if err != nil {
		t.Fatalf("create warranty: %v", err)
	}
	if w.ItemID != id {
		t.Fatalf("warranty item id = %d, want %d", w.ItemID, id)
	}

	if err := engine.PermanentDelete(ctx, id); err != nil {
		t.Fatalf("permanent delete: %v", err)
	}

	for _, table := range []string{"items", "item_states", "inventory_details", "borrow_records", "warranties"} {
		col := "item_id"
		if table == "items" {
			col = "id"
		}
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE `+col+` = ?`, id).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s still has %d rows for item %d", table, n, id)
		}
	}
}

func TestPermanentDeleteMissingItem(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)

	err := engine.PermanentDelete(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// After an arbitrary sequence of transitions, no (item, phase) pair may
// hold more than one active state record.
func TestActiveStateInvariant(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	ctx := context.Background()

	id := createShoppingItem(t, engine, "Milk", 2)
	if err := engine.TransferPhase(ctx, id, model.PhaseShopping, &model.InventoryDetail{Quantity: 2}, nil); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := engine.TransferPhase(ctx, id, model.PhaseInventory, &model.ShoppingDetail{Quantity: 1}, nil); err != nil {
		t.Fatalf("transfer back: %v", err)
	}
	if err := engine.SoftDelete(ctx, id, "test"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := engine.Restore(ctx, id, model.PhaseShopping); err != nil {
		t.Fatalf("restore: %v", err)
	}

	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM (
		   SELECT item_id, phase FROM item_states WHERE active = 1
		   GROUP BY item_id, phase HAVING COUNT(*) > 1
		 )`,
	).Scan(&n)
	if err != nil {
		t.Fatalf("invariant query: %v", err)
	}
	if n != 0 {
		t.Errorf("%d (item, phase) pairs with multiple active states", n)
	}
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/dmfalke/stash/internal/model"
)

func TestBorrowLifecycle(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	borrows := NewBorrowStore(db)
	ctx := context.Background()

	id := createInventoryItem(t, engine, "Ladder", 1)

	due := time.Now().UTC().Add(7 * 24 * time.Hour)
	rec, err := borrows.Create(ctx, id, "Sam", "sam@example.com", "back porch project", &due)
	if err != nil {
		t.Fatalf("create borrow: %v", err)
	}
	if rec.Status != model.BorrowStatusBorrowed {
		t.Errorf("status = %q, want BORROWED", rec.Status)
	}
	if !rec.Outstanding() {
		t.Error("new record should be outstanding")
	}

	active, err := borrows.FindActiveBorrow(ctx, id)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active == nil || active.ID != rec.ID {
		t.Fatalf("find active = %+v, want record %d", active, rec.ID)
	}

	returned, err := borrows.MarkReturned(ctx, rec.ID)
	if err != nil {
		t.Fatalf("mark returned: %v", err)
	}
	if returned.Status != model.BorrowStatusReturned {
		t.Errorf("status = %q, want RETURNED", returned.Status)
	}
	if returned.ReturnedAt == nil {
		t.Error("expected returned_at to be set")
	}

	active, err = borrows.FindActiveBorrow(ctx, id)
	if err != nil {
		t.Fatalf("find active after return: %v", err)
	}
	if active != nil {
		t.Errorf("expected no active borrow, got %+v", active)
	}
}

func TestMarkOverdue(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	borrows := NewBorrowStore(db)
	ctx := context.Background()

	id := createInventoryItem(t, engine, "Drill", 1)

	past := time.Now().UTC().Add(-48 * time.Hour)
	future := time.Now().UTC().Add(48 * time.Hour)

	late, err := borrows.Create(ctx, id, "Kim", "", "", &past)
	if err != nil {
		t.Fatalf("create late borrow: %v", err)
	}
	if _, err := borrows.MarkReturned(ctx, late.ID); err != nil {
		t.Fatalf("return late borrow: %v", err)
	}

	lateOpen, err := borrows.Create(ctx, id, "Kim", "", "", &past)
	if err != nil {
		t.Fatalf("create open late borrow: %v", err)
	}
	if _, err := borrows.Create(ctx, id, "Lee", "", "", &future); err != nil {
		t.Fatalf("create on-time borrow: %v", err)
	}

	flipped, err := borrows.MarkOverdue(ctx)
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if flipped != 1 {
		t.Errorf("flipped = %d, want 1 (only the open, past-due record)", flipped)
	}

	rec, err := borrows.GetByID(ctx, lateOpen.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != model.BorrowStatusOverdue {
		t.Errorf("status = %q, want OVERDUE", rec.Status)
	}
	if !rec.Outstanding() {
		t.Error("overdue record should still be outstanding")
	}
}

func TestListByItem(t *testing.T) {
	db := setupTestDB(t)
	engine := NewLifecycleEngine(db)
	borrows := NewBorrowStore(db)
	ctx := context.Background()

	id := createInventoryItem(t, engine, "Tent", 1)

	first, err := borrows.Create(ctx, id, "Sam", "", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := borrows.MarkReturned(ctx, first.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := borrows.Create(ctx, id, "Kim", "", "", nil); err != nil {
		t.Fatalf("create second: %v", err)
	}

	records, err := borrows.ListByItem(ctx, id)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Newest first.
	if records[0].Borrower != "Kim" {
		t.Errorf("records[0].Borrower = %q, want Kim", records[0].Borrower)
	}
}

package store

import (
	"context"
	"testing"
)

func TestFindOrCreateLocation(t *testing.T) {
	db := setupTestDB(t)
	locations := NewLocationStore(db)
	ctx := context.Background()

	first, err := locations.FindOrCreate(ctx, "Garage", "Shelf A", "Top")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected non-zero location id")
	}

	again, err := locations.FindOrCreate(ctx, "Garage", "Shelf A", "Top")
	if err != nil {
		t.Fatalf("find or create again: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("same triple produced ids %d and %d", first.ID, again.ID)
	}

	other, err := locations.FindOrCreate(ctx, "Garage", "Shelf A", "Bottom")
	if err != nil {
		t.Fatalf("find or create other: %v", err)
	}
	if other.ID == first.ID {
		t.Error("different triples must not share an id")
	}

	list, err := locations.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 locations, got %d", len(list))
	}
}

package store

import (
	"context"
	"testing"
	"time"
)

func TestBinRetentionDefault(t *testing.T) {
	db := setupTestDB(t)
	settings := NewSettingsStore(db)
	ctx := context.Background()

	// The migration seeds bin_retention_days = 30.
	retention, err := settings.BinRetention(ctx)
	if err != nil {
		t.Fatalf("bin retention: %v", err)
	}
	if retention != 30*24*time.Hour {
		t.Errorf("retention = %v, want 720h", retention)
	}
}

func TestBinRetentionOverride(t *testing.T) {
	db := setupTestDB(t)
	settings := NewSettingsStore(db)
	ctx := context.Background()

	if err := settings.Set(ctx, SettingBinRetentionDays, "7"); err != nil {
		t.Fatalf("set: %v", err)
	}
	retention, err := settings.BinRetention(ctx)
	if err != nil {
		t.Fatalf("bin retention: %v", err)
	}
	if retention != 7*24*time.Hour {
		t.Errorf("retention = %v, want 168h", retention)
	}
}

func TestBinRetentionBadValueFallsBack(t *testing.T) {
	db := setupTestDB(t)
	settings := NewSettingsStore(db)
	ctx := context.Background()

	for _, bad := range []string{"soon", "-5", "0"} {
		if err := settings.Set(ctx, SettingBinRetentionDays, bad); err != nil {
			t.Fatalf("set %q: %v", bad, err)
		}
		retention, err := settings.BinRetention(ctx)
		if err != nil {
			t.Fatalf("bin retention with %q: %v", bad, err)
		}
		if retention != DefaultRetention {
			t.Errorf("retention with %q = %v, want default %v", bad, retention, DefaultRetention)
		}
	}
}

func TestSettingsSetGetDelete(t *testing.T) {
	db := setupTestDB(t)
	settings := NewSettingsStore(db)
	ctx := context.Background()

	if err := settings.Set(ctx, SettingAccessPINHash, "hash-one"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := settings.Set(ctx, SettingAccessPINHash, "hash-two"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, err := settings.Get(ctx, SettingAccessPINHash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "hash-two" {
		t.Errorf("value = %q, want hash-two", value)
	}

	if err := settings.Delete(ctx, SettingAccessPINHash); err != nil {
		t.Fatalf("delete: %v", err)
	}
	value, err = settings.Get(ctx, SettingAccessPINHash)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if value != "" {
		t.Errorf("value after delete = %q, want empty", value)
	}

	all, err := settings.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if _, ok := all[SettingBinRetentionDays]; !ok {
		t.Error("expected seeded bin_retention_days in GetAll")
	}
}

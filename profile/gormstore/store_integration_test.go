//go:build integration
// +build integration

package gormstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goGuard/profile"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("POSTGRES_DSN_TEST"))
	if dsn == "" {
		t.Skip("POSTGRES_DSN_TEST not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := New(db).Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec(`TRUNCATE profiles`).Error; err != nil {
		t.Fatalf("truncate profiles: %v", err)
	}
	return db
}

func TestStore_CreateGet(t *testing.T) {
	store := New(setupTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 1, 22, 16, 0, 0, 0, time.UTC)

	rec := profile.Record{SubjectID: "owner-1", Role: "owner", DisplayName: "Olga", CreatedAt: now}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	got, err := store.Get(ctx, "owner-1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.Role != rec.Role || got.DisplayName != rec.DisplayName || !got.CreatedAt.Equal(now) {
		t.Fatalf("profile mismatch: %+v", got)
	}
}

func TestStore_CreateDuplicate(t *testing.T) {
	store := New(setupTestDB(t))
	ctx := context.Background()

	if err := store.Create(ctx, profile.Record{SubjectID: "t1", Role: "traveler"}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if err := store.Create(ctx, profile.Record{SubjectID: "t1", Role: "owner"}); !errors.Is(err, profile.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := New(setupTestDB(t))
	if _, err := store.Get(context.Background(), "ghost"); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

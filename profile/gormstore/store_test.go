package gormstore

import (
	"context"
	"testing"

	"github.com/MrEthical07/goGuard/profile"
)

func TestNilDatabaseIsReported(t *testing.T) {
	store := New(nil)
	if _, err := store.Get(context.Background(), "u1"); err != errDBUnavailable {
		t.Fatalf("expected errDBUnavailable, got %v", err)
	}
	if err := store.Create(context.Background(), profile.Record{SubjectID: "u1", Role: "owner"}); err != errDBUnavailable {
		t.Fatalf("expected errDBUnavailable, got %v", err)
	}
	if err := store.Migrate(context.Background()); err != errDBUnavailable {
		t.Fatalf("expected errDBUnavailable, got %v", err)
	}
}

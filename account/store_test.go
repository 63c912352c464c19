package account

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newAccountStoreTest(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewStore(rdb, "gp")
}

func TestCreateGetNormalisesEmail(t *testing.T) {
	store := newAccountStoreTest(t)
	ctx := context.Background()

	if err := store.Create(ctx, Account{Email: " Ana@Example.com ", SubjectID: "s1", PasswordHash: "h1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	acc, err := store.GetByEmail(ctx, "ana@example.COM")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acc.SubjectID != "s1" || acc.PasswordHash != "h1" || acc.Email != "ana@example.com" {
		t.Fatalf("unexpected account %+v", acc)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	store := newAccountStoreTest(t)
	ctx := context.Background()

	if err := store.Create(ctx, Account{Email: "a@x.io", SubjectID: "s1", PasswordHash: "h"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, Account{Email: "A@X.IO", SubjectID: "s2", PasswordHash: "h"}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestGetMissingAndUpdate(t *testing.T) {
	store := newAccountStoreTest(t)
	ctx := context.Background()

	if _, err := store.GetByEmail(ctx, "none@x.io"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdatePasswordHash(ctx, "none@x.io", "h"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}

	if err := store.Create(ctx, Account{Email: "b@x.io", SubjectID: "s1", PasswordHash: "old"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.UpdatePasswordHash(ctx, "b@x.io", "new"); err != nil {
		t.Fatalf("update: %v", err)
	}
	acc, _ := store.GetByEmail(ctx, "b@x.io")
	if acc.PasswordHash != "new" {
		t.Fatalf("expected updated hash, got %q", acc.PasswordHash)
	}
}

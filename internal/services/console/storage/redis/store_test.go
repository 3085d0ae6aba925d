package redis

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/louisbranch/fleetdeck/internal/services/console/storage"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := Open(ctx, Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if _, err := store.Get(ctx, "auth_token"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get before put: err = %v, want ErrNotFound", err)
	}
	if err := store.Put(ctx, "auth_token", "tok-1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, "auth_token")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "tok-1" {
		t.Fatalf("value = %q, want %q", got, "tok-1")
	}
	if raw, err := mr.Get("fleetdeck:console:auth_token"); err != nil || raw != "tok-1" {
		t.Fatalf("raw key = %q, %v", raw, err)
	}
	if mr.TTL("fleetdeck:console:auth_token") != 0 {
		t.Fatal("expected no expiry on stored value")
	}

	if err := store.Delete(ctx, "auth_token"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "auth_token"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after delete: err = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "auth_token"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestStoreUsesCustomPrefix(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := Open(ctx, Config{Addr: mr.Addr(), Prefix: "ops:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Put(ctx, "auth_token", "tok"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("ops:auth_token") {
		t.Fatal("expected prefixed key")
	}
}

func TestOpenValidatesConfig(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestOpenFailsWhenServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := Open(context.Background(), Config{Addr: addr}); err == nil {
		t.Fatal("expected ping failure")
	}
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := Open(context.Background(), Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Put(context.Background(), "", "v"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

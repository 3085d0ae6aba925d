package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/fleetdeck/internal/platform/clock"
	"github.com/louisbranch/fleetdeck/internal/services/console/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

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

	if err := store.Put(ctx, "auth_token", "tok-2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = store.Get(ctx, "auth_token")
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if got != "tok-2" {
		t.Fatalf("value = %q, want %q", got, "tok-2")
	}
}

func TestPutStampsUpdatedAtFromClock(t *testing.T) {
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	store := openTempStore(t, WithClock(clock.Fake(at)))

	if err := store.Put(context.Background(), "auth_token", "tok"); err != nil {
		t.Fatalf("put: %v", err)
	}
	var stored string
	if err := store.sqlDB.QueryRow("SELECT updated_at FROM client_storage WHERE key = ?", "auth_token").Scan(&stored); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if stored != at.Format(timeFormat) {
		t.Fatalf("updated_at = %q, want %q", stored, at.Format(timeFormat))
	}
}

func TestGetMissingKeyReturnsNotFound(t *testing.T) {
	store := openTempStore(t)
	if _, err := store.Get(context.Background(), "auth_token"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteClearsKeyAndToleratesMissing(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "auth_token", "tok"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, "auth_token"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "auth_token"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "auth_token"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestValidation(t *testing.T) {
	store := openTempStore(t)
	if err := store.Put(context.Background(), " ", "v"); err == nil {
		t.Fatal("expected error for empty key")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Get(ctx, "auth_token"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestReopenKeepsValuesAndSkipsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Put(ctx, "auth_token", "tok"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	got, err := second.Get(ctx, "auth_token")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got != "tok" {
		t.Fatalf("value = %q, want %q", got, "tok")
	}
	var count int
	if err := second.sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("schema_migrations = %d, want 1", count)
	}
}

func TestCloseNilStore(t *testing.T) {
	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
}

func openTempStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "console.db"), opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	_ "modernc.org/sqlite"
)

func TestApplyRecordsAppliedFiles(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	migrations := fstest.MapFS{
		"migrations/001_tokens.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE kv(key TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE kv;")},
		"migrations/README.md":      {Data: []byte("not a migration")},
	}

	applied, err := Apply(context.Background(), db, migrations, "migrations", Options{Now: func() time.Time { return at }})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(applied) != 1 || applied[0] != "migrations/001_tokens.sql" {
		t.Fatalf("applied = %v", applied)
	}
	if got := queryInt64(t, db, "SELECT applied_at FROM schema_migrations"); got != at.UnixMilli() {
		t.Fatalf("applied_at = %d, want %d", got, at.UnixMilli())
	}
	if !tableExists(t, db, "kv") {
		t.Fatal("expected kv table to exist")
	}
}

func TestApplyRunsEachFileOnce(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	migrations := fstest.MapFS{
		"001_create.sql": {Data: []byte("CREATE TABLE items(id TEXT PRIMARY KEY);")},
		"002_seed.sql":   {Data: []byte("INSERT INTO items(id) VALUES ('a');")},
	}

	if _, err := Apply(context.Background(), db, migrations, "", Options{}); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	applied, err := Apply(context.Background(), db, migrations, "", Options{})
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("second apply ran %v", applied)
	}
	if got := queryInt64(t, db, "SELECT COUNT(*) FROM items"); got != 1 {
		t.Fatalf("items = %d, want 1", got)
	}
	if got := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 2 {
		t.Fatalf("schema_migrations = %d, want 2", got)
	}
}

func TestApplyDoesNotRecordFailedFile(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	bad := fstest.MapFS{"001_bad.sql": {Data: []byte("CREAT TABLE things(id INT);")}}

	if _, err := Apply(context.Background(), db, bad, ".", Options{}); err == nil {
		t.Fatal("expected bad migration to fail")
	}
	if got := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 0 {
		t.Fatalf("failed migration recorded %d rows", got)
	}

	good := fstest.MapFS{"001_bad.sql": {Data: []byte("CREATE TABLE things(id INT);")}}
	applied, err := Apply(context.Background(), db, good, ".", Options{})
	if err != nil {
		t.Fatalf("apply fixed migration: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("applied = %v", applied)
	}
}

func TestApplyRequiresDependencies(t *testing.T) {
	t.Parallel()
	if _, err := Apply(context.Background(), nil, fstest.MapFS{}, "", Options{}); err == nil {
		t.Fatal("expected nil db error")
	}
	if _, err := Apply(context.Background(), openTestDB(t), nil, "", Options{}); err == nil {
		t.Fatal("expected nil fs error")
	}
}

func TestExtractUp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no markers", content: "SELECT 1;", want: "SELECT 1;"},
		{name: "up only", content: "-- +migrate Up\nSELECT 1;", want: "\nSELECT 1;"},
		{name: "up and down", content: "-- +migrate Up\nSELECT 1;\n-- +migrate Down\nSELECT 2;", want: "\nSELECT 1;\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractUp(tt.content); got != tt.want {
				t.Fatalf("ExtractUp() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAlreadyExistsError(t *testing.T) {
	t.Parallel()
	if IsAlreadyExistsError(nil) {
		t.Fatal("nil error should not match")
	}
	if !IsAlreadyExistsError(errors.New("table kv already exists")) {
		t.Fatal("expected already exists match")
	}
	if !IsAlreadyExistsError(errors.New("duplicate column name: token")) {
		t.Fatal("expected duplicate column match")
	}
	if IsAlreadyExistsError(errors.New("syntax error")) {
		t.Fatal("syntax error should not match")
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func queryInt64(t *testing.T, db *sql.DB, query string) int64 {
	t.Helper()
	var value int64
	if err := db.QueryRow(query).Scan(&value); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return value
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var found string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return true
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

// newTestDB returns an in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGet_Missing(t *testing.T) {
	db := newTestDB(t)

	value, found, err := db.Get(context.Background(), "portfolio.auth.session")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found || value != nil {
		t.Errorf("Get() = %q, %v; want nil, false", value, found)
	}
}

func TestSetThenGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Set(ctx, "k", []byte(`{"token":"a"}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := db.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || string(value) != `{"token":"a"}` {
		t.Errorf("Get() = %q, %v", value, found)
	}
}

func TestSet_Overwrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, v := range []string{"first", "second"} {
		if err := db.Set(ctx, "k", []byte(v)); err != nil {
			t.Fatalf("Set(%q) error = %v", v, err)
		}
	}

	value, _, _ := db.Get(ctx, "k")
	if string(value) != "second" {
		t.Errorf("Get() = %q, want %q", value, "second")
	}
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := db.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := db.Get(ctx, "k"); found {
		t.Error("key still present after Delete()")
	}

	// Deleting again is not an error.
	if err := db.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete() of a missing key error = %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.db")
	ctx := context.Background()

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.Set(ctx, "k", []byte("survives")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	db.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer reopened.Close()

	value, found, err := reopened.Get(ctx, "k")
	if err != nil || !found || string(value) != "survives" {
		t.Errorf("Get() after reopen = %q, %v, %v", value, found, err)
	}
}

func TestGet_CancelledContext(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := db.Get(ctx, "k"); err == nil {
		t.Error("Get() with a cancelled context should fail")
	}
}

package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Verify tables exist.
	for _, table := range []string{"collections", "units"} {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Running migrate again should not fail.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestEnsureCollection_KeepsExisting(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	first, err := d.EnsureCollection(ctx, "podcast_chunks", 384, 128)
	if err != nil {
		t.Fatalf("EnsureCollection() error: %v", err)
	}
	second, err := d.EnsureCollection(ctx, "podcast_chunks", 1536, 64)
	if err != nil {
		t.Fatalf("second EnsureCollection() error: %v", err)
	}
	if second.ID != first.ID || second.Dimension != 384 || second.NList != 128 {
		t.Errorf("existing collection was altered: %+v", second)
	}
}

func TestGetCollection_NotFound(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	_, err = d.GetCollection(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertAndEachUnit(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "sub", "index.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	c, err := d.EnsureCollection(ctx, "c", 2, 4)
	if err != nil {
		t.Fatalf("EnsureCollection() error: %v", err)
	}

	ids, err := d.InsertUnits(ctx, c.ID, []string{"a", "b", "c"}, [][]byte{{1}, {2}, {3}})
	if err != nil {
		t.Fatalf("InsertUnits() error: %v", err)
	}
	if len(ids) != 3 || !(ids[0] < ids[1] && ids[1] < ids[2]) {
		t.Fatalf("ids not increasing: %v", ids)
	}

	n, err := d.CountUnits(ctx, c.ID)
	if err != nil || n != 3 {
		t.Fatalf("CountUnits() = %d, %v; want 3", n, err)
	}

	var texts []string
	err = d.EachUnit(ctx, c.ID, func(u Unit) error {
		texts = append(texts, u.Text)
		return nil
	})
	if err != nil {
		t.Fatalf("EachUnit() error: %v", err)
	}
	if len(texts) != 3 || texts[0] != "a" || texts[2] != "c" {
		t.Errorf("EachUnit order = %v", texts)
	}
}

func TestInsertUnits_LengthMismatch(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	c, _ := d.EnsureCollection(ctx, "c", 2, 4)
	if _, err := d.InsertUnits(ctx, c.ID, []string{"a"}, nil); err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
	if n, _ := d.CountUnits(ctx, c.ID); n != 0 {
		t.Errorf("CountUnits() = %d after failed insert, want 0", n)
	}
}

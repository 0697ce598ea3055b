package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Collection is a named vector collection with a fixed dimension.
type Collection struct {
	ID        int64
	Name      string
	Dimension int
	Metric    string
	NList     int
	CreatedAt time.Time
}

// Unit is one stored text unit and its packed embedding.
type Unit struct {
	ID        int64
	Text      string
	Embedding []byte
}

// ErrNotFound is returned when a collection does not exist.
var ErrNotFound = errors.New("not found")

// GetCollection looks a collection up by name.
func (d *DB) GetCollection(ctx context.Context, name string) (*Collection, error) {
	var c Collection
	var created string
	err := d.QueryRowContext(ctx,
		`SELECT id, name, dimension, metric, nlist, CAST(created_at AS TEXT) FROM collections WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name, &c.Dimension, &c.Metric, &c.NList, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", name, err)
	}
	c.CreatedAt, _ = time.Parse(time.DateTime, created)
	return &c, nil
}

// EnsureCollection returns the named collection, creating it with the given
// dimension and nlist when absent. An existing collection is never altered.
func (d *DB) EnsureCollection(ctx context.Context, name string, dimension, nlist int) (*Collection, error) {
	_, err := d.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, nlist) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		name, dimension, nlist)
	if err != nil {
		return nil, fmt.Errorf("creating collection %q: %w", name, err)
	}
	return d.GetCollection(ctx, name)
}

// InsertUnits appends units in one transaction and returns their ids in
// input order. Either every unit is stored or none is.
func (d *DB) InsertUnits(ctx context.Context, collectionID int64, texts []string, embeddings [][]byte) ([]int64, error) {
	if len(texts) != len(embeddings) {
		return nil, fmt.Errorf("insert units: %d texts for %d embeddings", len(texts), len(embeddings))
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO units (collection_id, text, embedding) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, len(texts))
	for i := range texts {
		res, err := stmt.ExecContext(ctx, collectionID, texts[i], embeddings[i])
		if err != nil {
			return nil, fmt.Errorf("inserting unit %d: %w", i, err)
		}
		if ids[i], err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("reading unit id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing units: %w", err)
	}
	return ids, nil
}

// CountUnits returns the number of units stored in a collection.
func (d *DB) CountUnits(ctx context.Context, collectionID int64) (int, error) {
	var n int
	err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM units WHERE collection_id = ?`, collectionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting units: %w", err)
	}
	return n, nil
}

// EachUnit streams a collection's units in id order.
func (d *DB) EachUnit(ctx context.Context, collectionID int64, fn func(Unit) error) error {
	rows, err := d.QueryContext(ctx,
		`SELECT id, text, embedding FROM units WHERE collection_id = ? ORDER BY id`, collectionID)
	if err != nil {
		return fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Text, &u.Embedding); err != nil {
			return fmt.Errorf("scanning unit: %w", err)
		}
		if err := fn(u); err != nil {
			return err
		}
	}
	return rows.Err()
}

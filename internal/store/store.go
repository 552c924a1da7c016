// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avollmer/capview/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for dataset records.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			measure_label TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY,
			dataset_id INTEGER NOT NULL,
			measure REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS record_dimensions (
			record_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (record_id, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_dataset ON records(dataset_id);`,
		`CREATE INDEX IF NOT EXISTS idx_record_dimensions_value ON record_dimensions(name, value);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceDataset stores a dataset and its records, replacing any
// existing dataset with the same name.
func (s *Store) ReplaceDataset(ctx context.Context, name, measureLabel string, records []model.Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if err = s.deleteDatasetTx(ctx, tx, name); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (name, measure_label, created_at) VALUES (?, ?, ?)`,
		name, measureLabel, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	datasetID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	recStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (dataset_id, measure) VALUES (?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := recStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	dimStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO record_dimensions (record_id, name, value) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := dimStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	for _, rec := range records {
		res, err := recStmt.ExecContext(ctx, datasetID, rec.Measure)
		if err != nil {
			return 0, err
		}
		recordID, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		for dim, value := range rec.Dimensions {
			if _, err := dimStmt.ExecContext(ctx, recordID, dim, value); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return datasetID, nil
}

func (s *Store) deleteDatasetTx(ctx context.Context, tx *sql.Tx, name string) error {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM datasets WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM record_dimensions WHERE record_id IN (SELECT id FROM records WHERE dataset_id = ?)`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE dataset_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id); err != nil {
		return err
	}
	return nil
}

// ListDatasets returns all datasets with their record counts.
func (s *Store) ListDatasets(ctx context.Context) ([]model.Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.name, d.measure_label, d.created_at, COUNT(r.id)
		 FROM datasets d
		 LEFT JOIN records r ON r.dataset_id = d.id
		 GROUP BY d.id
		 ORDER BY d.name ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var datasets []model.Dataset
	for rows.Next() {
		var ds model.Dataset
		var createdAt string
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.MeasureLabel, &createdAt, &ds.Records); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		ds.CreatedAt = parsed
		datasets = append(datasets, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return datasets, nil
}

// ListDimensions returns the dimension names present in a dataset.
func (s *Store) ListDimensions(ctx context.Context, dataset string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT d.name
		 FROM record_dimensions d
		 JOIN records r ON r.id = d.record_id
		 JOIN datasets ds ON ds.id = r.dataset_id
		 WHERE ds.name = ?
		 ORDER BY d.name ASC`, dataset)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var dims []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		dims = append(dims, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dims, nil
}

// GroupTotals sums the measure per distinct value of a dimension.
// Records lacking the dimension contribute to the "" key. No ordering
// is guaranteed.
func (s *Store) GroupTotals(ctx context.Context, dataset, dimension string) ([]model.Group, error) {
	return s.groupTotals(ctx, dataset, dimension, nil)
}

// GroupTotalsForKeys is GroupTotals restricted to the given dimension
// values. It answers the drill-in filter request for an Others bucket.
func (s *Store) GroupTotalsForKeys(ctx context.Context, dataset, dimension string, keys []string) ([]model.Group, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return s.groupTotals(ctx, dataset, dimension, keys)
}

func (s *Store) groupTotals(ctx context.Context, dataset, dimension string, keys []string) ([]model.Group, error) {
	query := `SELECT COALESCE(d.value, '') AS key, SUM(r.measure), COUNT(*)
		FROM records r
		JOIN datasets ds ON ds.id = r.dataset_id
		LEFT JOIN record_dimensions d ON d.record_id = r.id AND d.name = ?
		WHERE ds.name = ?`
	args := []any{dimension, dataset}
	if keys != nil {
		placeholders := make([]string, len(keys))
		for i, k := range keys {
			placeholders[i] = "?"
			args = append(args, k)
		}
		query += fmt.Sprintf(" AND COALESCE(d.value, '') IN (%s)", strings.Join(placeholders, ","))
	}
	query += ` GROUP BY key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.Key, &g.Value, &g.Count); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

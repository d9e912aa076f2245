package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS price_records (
	outward       TEXT NOT NULL,
	borough       TEXT NOT NULL DEFAULT '',
	year          INTEGER NOT NULL,
	property_type TEXT NOT NULL,
	area_bin      TEXT NOT NULL,
	price         REAL,
	PRIMARY KEY (outward, year, property_type, area_bin)
);

CREATE TABLE IF NOT EXISTS price_imports (
	id          TEXT PRIMARY KEY,
	records     INTEGER NOT NULL,
	replaced    INTEGER NOT NULL DEFAULT 0,
	imported_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_price_records_borough ON price_records(borough);
`

// Migrate creates the price tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PriceRecords returns every stored record ordered by key.
func (s *SQLiteStore) PriceRecords(ctx context.Context) ([]PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outward, borough, year, property_type, area_bin, price FROM price_records
		 ORDER BY outward, year, property_type, area_bin`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query price records")
	}
	defer rows.Close() //nolint:errcheck

	var out []PriceRecord
	for rows.Next() {
		var (
			r     PriceRecord
			price sql.NullFloat64
		)
		if err := rows.Scan(&r.Outward, &r.Borough, &r.Year, &r.PropertyType, &r.AreaBin, &price); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan price record")
		}
		if price.Valid {
			v := price.Float64
			r.Price = &v
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: price records iterate")
}

// WritePriceRecords implements Store.
func (s *SQLiteStore) WritePriceRecords(ctx context.Context, records []PriceRecord, replace bool) (int64, error) {
	records = Dedupe(records)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM price_records`); err != nil {
			return 0, eris.Wrap(err, "sqlite: clear price records")
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO price_records (outward, borough, year, property_type, area_bin, price)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (outward, year, property_type, area_bin)
		 DO UPDATE SET borough = excluded.borough, price = excluded.price`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, r := range records {
		var price any
		if r.Price != nil {
			price = *r.Price
		}
		if _, err := stmt.ExecContext(ctx, r.Outward, r.Borough, r.Year, r.PropertyType, r.AreaBin, price); err != nil {
			return n, eris.Wrapf(err, "sqlite: upsert %s/%d", r.Outward, r.Year)
		}
		n++
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO price_imports (id, records, replaced, imported_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), n, replace, time.Now().UTC(),
	); err != nil {
		return n, eris.Wrap(err, "sqlite: log import")
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

// Imports lists past writes, newest first.
func (s *SQLiteStore) Imports(ctx context.Context, limit int) ([]Import, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, records, replaced, imported_at FROM price_imports ORDER BY imported_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list imports")
	}
	defer rows.Close() //nolint:errcheck

	var out []Import
	for rows.Next() {
		var im Import
		if err := rows.Scan(&im.ID, &im.Records, &im.Replaced, &im.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan import")
		}
		out = append(out, im)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list imports iterate")
}

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/london-map/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var priceTable = db.Table{
	Name:    "price_records",
	Columns: []string{"outward", "borough", "year", "property_type", "area_bin", "price"},
	Keys:    []string{"outward", "year", "property_type", "area_bin"},
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS price_records (
	outward       TEXT NOT NULL,
	borough       TEXT NOT NULL DEFAULT '',
	year          INTEGER NOT NULL,
	property_type TEXT NOT NULL,
	area_bin      TEXT NOT NULL,
	price         DOUBLE PRECISION,
	PRIMARY KEY (outward, year, property_type, area_bin)
);

CREATE TABLE IF NOT EXISTS price_imports (
	id          TEXT PRIMARY KEY,
	records     BIGINT NOT NULL,
	replaced    BOOLEAN NOT NULL DEFAULT false,
	imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_price_records_borough ON price_records(borough);
`

// Migrate creates the price tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// PriceRecords returns every stored record ordered by key.
func (s *PostgresStore) PriceRecords(ctx context.Context) ([]PriceRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT outward, borough, year, property_type, area_bin, price FROM price_records
		 ORDER BY outward, year, property_type, area_bin`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query price records")
	}
	defer rows.Close()

	var out []PriceRecord
	for rows.Next() {
		var r PriceRecord
		if err := rows.Scan(&r.Outward, &r.Borough, &r.Year, &r.PropertyType, &r.AreaBin, &r.Price); err != nil {
			return nil, eris.Wrap(err, "postgres: scan price record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: price records iterate")
}

// WritePriceRecords implements Store. With replace set the table is
// truncated and reloaded with COPY; otherwise records are bulk upserted.
// The truncate and the load are separate statements.
func (s *PostgresStore) WritePriceRecords(ctx context.Context, records []PriceRecord, replace bool) (int64, error) {
	records = Dedupe(records)
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Outward, r.Borough, r.Year, r.PropertyType, r.AreaBin, r.Price}
	}

	var (
		n   int64
		err error
	)
	if replace {
		if _, err := s.pool.Exec(ctx, `TRUNCATE price_records`); err != nil {
			return 0, eris.Wrap(err, "postgres: truncate price records")
		}
		n, err = priceTable.Load(ctx, s.pool, rows)
	} else {
		n, err = priceTable.Merge(ctx, s.pool, rows)
	}
	if err != nil {
		return 0, eris.Wrap(err, "postgres: write price records")
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO price_imports (id, records, replaced, imported_at) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), n, replace, time.Now().UTC(),
	); err != nil {
		return n, eris.Wrap(err, "postgres: log import")
	}
	return n, nil
}

// Imports lists past writes, newest first.
func (s *PostgresStore) Imports(ctx context.Context, limit int) ([]Import, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, records, replaced, imported_at FROM price_imports ORDER BY imported_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list imports")
	}
	defer rows.Close()

	var out []Import
	for rows.Next() {
		var im Import
		if err := rows.Scan(&im.ID, &im.Records, &im.Replaced, &im.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan import")
		}
		out = append(out, im)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list imports iterate")
}

package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Table is a keyed Postgres table written in bulk. Name may be
// schema-qualified ("london.price_records").
type Table struct {
	Name    string
	Columns []string
	// Keys form the table's unique constraint. Every other column is
	// overwritten when Merge meets an existing key.
	Keys []string
}

// Load appends rows with the COPY protocol.
func (t Table) Load(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := pool.CopyFrom(ctx, t.ident(), t.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: copy into %s", t.Name)
	}
	return n, nil
}

// Merge upserts rows by key. Rows are copied into a transaction-scoped
// staging table first, then merged with one INSERT ... ON CONFLICT.
func (t Table) Merge(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(t.Columns) == 0 || len(t.Keys) == 0 {
		return 0, eris.Errorf("db: merge into %s needs columns and keys", t.Name)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: merge begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stage := pgx.Identifier{t.stageName()}
	if _, err := tx.Exec(ctx, fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		stage.Sanitize(), t.ident().Sanitize(),
	)); err != nil {
		return 0, eris.Wrapf(err, "db: stage %s", t.Name)
	}
	if _, err := tx.CopyFrom(ctx, stage, t.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: copy into stage for %s", t.Name)
	}

	tag, err := tx.Exec(ctx, t.mergeSQL(stage.Sanitize()))
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge into %s", t.Name)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: merge commit")
	}
	return tag.RowsAffected(), nil
}

func (t Table) ident() pgx.Identifier {
	if schema, name, ok := strings.Cut(t.Name, "."); ok {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{t.Name}
}

func (t Table) stageName() string {
	return strings.ReplaceAll(t.Name, ".", "_") + "_stage"
}

func (t Table) mergeSQL(from string) string {
	cols := quote(t.Columns)
	keys := make(map[string]bool, len(t.Keys))
	for _, k := range t.Keys {
		keys[k] = true
	}
	var set []string
	for _, c := range t.Columns {
		if keys[c] {
			continue
		}
		q := pgx.Identifier{c}.Sanitize()
		set = append(set, q+" = EXCLUDED."+q)
	}

	action := "DO NOTHING"
	if len(set) > 0 {
		action = "DO UPDATE SET " + strings.Join(set, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		t.ident().Sanitize(), cols, cols, from, quote(t.Keys), action)
}

func quote(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(out, ", ")
}

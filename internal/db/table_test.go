package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var prices = Table{
	Name:    "price_records",
	Columns: []string{"outward", "year", "property_type", "area_bin", "price"},
	Keys:    []string{"outward", "year", "property_type", "area_bin"},
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestTable_LoadEmpty(t *testing.T) {
	n, err := prices.Load(context.Background(), nil, nil)
	assert.NoError(t, err)
	assert.Zero(t, n)

	n, err = prices.Merge(context.Background(), nil, nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestTable_Load(t *testing.T) {
	mock := newMock(t)
	mock.ExpectCopyFrom(pgx.Identifier{"price_records"}, prices.Columns).WillReturnResult(2)

	rows := [][]any{{"E1", 2024, "flat", "Q1", 450000.0}, {"N1", 2025, "semi", "Q2", nil}}
	n, err := prices.Load(context.Background(), mock, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_LoadSchemaQualified(t *testing.T) {
	mock := newMock(t)
	tbl := prices
	tbl.Name = "london.price_records"
	mock.ExpectCopyFrom(pgx.Identifier{"london", "price_records"}, prices.Columns).WillReturnResult(1)

	n, err := tbl.Load(context.Background(), mock, [][]any{{"E1", 2024, "flat", "Q1", 1.0}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "london_price_records_stage", tbl.stageName())
}

func TestTable_LoadError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectCopyFrom(pgx.Identifier{"price_records"}, prices.Columns).WillReturnError(fmt.Errorf("copy failed"))

	_, err := prices.Load(context.Background(), mock, [][]any{{"E1", 2024, "flat", "Q1", 1.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: copy into price_records")
}

func TestTable_Merge(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "price_records_stage" \(LIKE "price_records" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"price_records_stage"}, prices.Columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "price_records" .* FROM "price_records_stage" ON CONFLICT \("outward", "year", "property_type", "area_bin"\) DO UPDATE SET "price" = EXCLUDED."price"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := prices.Merge(context.Background(), mock, [][]any{
		{"E1", 2024, "flat", "Q1", 450000.0},
		{"N1", 2025, "semi", "Q2", 510000.0},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_MergeStageError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnError(fmt.Errorf("no such table"))
	mock.ExpectRollback()

	_, err := prices.Merge(context.Background(), mock, [][]any{{"E1", 2024, "flat", "Q1", 1.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: stage price_records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_MergeNeedsKeys(t *testing.T) {
	tbl := Table{Name: "price_records", Columns: prices.Columns}
	_, err := tbl.Merge(context.Background(), nil, [][]any{{"E1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs columns and keys")
}

func TestTable_MergeSQLKeysOnly(t *testing.T) {
	tbl := Table{Name: "outwards", Columns: []string{"outward"}, Keys: []string{"outward"}}
	assert.Equal(t,
		`INSERT INTO "outwards" ("outward") SELECT "outward" FROM "s" ON CONFLICT ("outward") DO NOTHING`,
		tbl.mergeSQL(`"s"`))
}

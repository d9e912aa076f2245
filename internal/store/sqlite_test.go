package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "prices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLite_WriteAndRead(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	n, err := s.WritePriceRecords(ctx, []PriceRecord{
		{Outward: "n1", Borough: "Islington", Year: 2024, PropertyType: "F", AreaBin: "q1", Price: price(520000)},
		{Outward: "E1", Year: 2024, PropertyType: "T", AreaBin: "Q2"},
		{Outward: "E1", Year: 2023, PropertyType: "T", AreaBin: "Q2", Price: price(610000)},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := s.PriceRecords(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, PriceRecord{Outward: "E1", Year: 2023, PropertyType: "terraced", AreaBin: "Q2", Price: price(610000)}, got[0])
	assert.Equal(t, 2024, got[1].Year)
	assert.Nil(t, got[1].Price)
	assert.Equal(t, PriceRecord{Outward: "N1", Borough: "islington", Year: 2024, PropertyType: "flat", AreaBin: "Q1", Price: price(520000)}, got[2])
}

func TestSQLite_Upsert(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	_, err := s.WritePriceRecords(ctx, []PriceRecord{
		{Outward: "E1", Year: 2024, PropertyType: "F", AreaBin: "Q1", Price: price(1)},
		{Outward: "N1", Year: 2024, PropertyType: "F", AreaBin: "Q1", Price: price(2)},
	}, false)
	require.NoError(t, err)

	_, err = s.WritePriceRecords(ctx, []PriceRecord{
		{Outward: "E1", Year: 2024, PropertyType: "F", AreaBin: "Q1", Price: price(10)},
	}, false)
	require.NoError(t, err)

	got, err := s.PriceRecords(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 10, *got[0].Price, 1e-9)
	assert.InDelta(t, 2, *got[1].Price, 1e-9)
}

func TestSQLite_Replace(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	_, err := s.WritePriceRecords(ctx, []PriceRecord{
		{Outward: "E1", Year: 2024, PropertyType: "F", AreaBin: "Q1", Price: price(1)},
	}, false)
	require.NoError(t, err)
	_, err = s.WritePriceRecords(ctx, []PriceRecord{
		{Outward: "SW1", Year: 2024, PropertyType: "D", AreaBin: "Q4", Price: price(3)},
	}, true)
	require.NoError(t, err)

	got, err := s.PriceRecords(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SW1", got[0].Outward)

	imports, err := s.Imports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, imports, 2)
	var replaced int
	for _, im := range imports {
		assert.NotEmpty(t, im.ID)
		assert.Equal(t, int64(1), im.Records)
		if im.Replaced {
			replaced++
		}
	}
	assert.Equal(t, 1, replaced)
}

func TestSQLite_Empty(t *testing.T) {
	s := newTestSQLite(t)
	got, err := s.PriceRecords(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

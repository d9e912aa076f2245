package fetcher

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamCSV(t *testing.T) {
	input := "outward, year ,price\n# comment\nE1, 2024 ,450000\nN1,2025,\n"
	headerCh := make(chan []string, 1)

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		Comment:   '#',
		TrimSpace: true,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, []string{"outward", "year", "price"}, <-headerCh)
	assert.Equal(t, [][]string{{"E1", "2024", "450000"}, {"N1", "2025", ""}}, rows)
}

func TestStreamCSV_Delimiter(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("a|b\n1|2|3\n"), CSVOptions{Delimiter: '|'})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2", "3"}}, rows)
}

func TestStreamCSV_Errors(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("a,\"b\n"), CSVOptions{})
	_, err := collectRows(t, rowCh, errCh)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rowCh, errCh = StreamCSV(ctx, strings.NewReader("a,b\n"), CSVOptions{})
	_, err = collectRows(t, rowCh, errCh)
	assert.Error(t, err)
}

type row struct {
	Outward string  `json:"outward"`
	Price   float64 `json:"price"`
}

func TestEachJSONRecord(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []row
		wantErr string
	}{
		{
			name:  "bare array",
			input: `[{"outward":"E1","price":1},{"outward":"N1","price":2}]`,
			want:  []row{{"E1", 1}, {"N1", 2}},
		},
		{
			name:  "wrapped",
			input: `{"source":"land registry","meta":{"year":2026},"records":[{"outward":"SW1","price":3}]}`,
			want:  []row{{"SW1", 3}},
		},
		{
			name:  "null rows skipped",
			input: `[null,{"outward":"E8","price":4},null]`,
			want:  []row{{"E8", 4}},
		},
		{name: "empty array", input: `[]`},
		{name: "empty file", input: ``, wantErr: "empty record file"},
		{name: "scalar", input: `42`, wantErr: "expected '[' or '{'"},
		{name: "object without records", input: `{"outward":"E1"}`, wantErr: `no "records" array`},
		{name: "records not array", input: `{"records":{}}`, wantErr: "must be an array"},
		{name: "bad row", input: `[{"outward":"E1","price":"high"}]`, wantErr: "decode record 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []row
			n, err := EachJSONRecord(context.Background(), strings.NewReader(tt.input), func(r row) error {
				got = append(got, r)
				return nil
			})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), n)
		})
	}
}

func TestEachJSONRecord_StopsOnCallbackError(t *testing.T) {
	calls := 0
	_, err := EachJSONRecord(context.Background(), strings.NewReader(`[{"outward":"E1"},{"outward":"E2"}]`), func(row) error {
		calls++
		return errors.New("full")
	})
	require.EqualError(t, err, "full")
	assert.Equal(t, 1, calls)
}

func TestEachJSONRecord_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := EachJSONRecord(ctx, strings.NewReader(`[{"outward":"E1"}]`), func(row) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestDecodePayload(t *testing.T) {
	got, err := DecodePayload[row](strings.NewReader(` {"outward":"SW1","price":3} `))
	require.NoError(t, err)
	assert.Equal(t, &row{"SW1", 3}, got)

	for input, want := range map[string]string{
		``:                         "empty payload",
		`null`:                     "not an object",
		`[1,2]`:                    "not an object",
		`{"outward":"E1"} {"x":1}`: "trailing data",
		`{"outward":`:              "decode payload",
	} {
		_, err := DecodePayload[row](strings.NewReader(input))
		require.Error(t, err, input)
		assert.Contains(t, err.Error(), want, input)
	}
}

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			r := sheet.AddRow()
			for _, cellData := range rowData {
				r.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Prices": {
			{"outward", "year", "price"},
			{"E1", "2024", "450000"},
			{"", "", ""},
			{"N1", "2025", "610000"},
		},
	})

	header, rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outward", "year", "price"}, header)
	assert.Equal(t, [][]string{{"E1", "2024", "450000"}, {"N1", "2025", "610000"}}, rows)

	header, _, err = ReadXLSX(path, XLSXOptions{SheetName: "Prices"})
	require.NoError(t, err)
	assert.Len(t, header, 3)
}

func TestReadXLSX_Errors(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})

	_, _, err := ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	assert.Error(t, err)
	_, _, err = ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("not a workbook"), 0o644))
	_, _, err = ReadXLSX(bad, XLSXOptions{})
	assert.Error(t, err)
}

func createTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractZIP(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"boroughs/London_Borough.shp": "shp",
		"boroughs/London_Borough.dbf": "dbf",
		"README.txt":                  "read me",
	})

	dest := t.TempDir()
	paths, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	shp, err := FindByExt(paths, ".SHP")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "boroughs", "London_Borough.shp"), shp)
	data, err := os.ReadFile(shp)
	require.NoError(t, err)
	assert.Equal(t, "shp", string(data))

	_, err = FindByExt(paths, ".geojson")
	assert.Error(t, err)
}

func TestExtractZIP_ZipSlip(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{"../../evil.txt": "x"})
	dest := t.TempDir()
	_, err := ExtractZIP(zipPath, dest)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dest, "..", "..", "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractZIP_NotArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))
	_, err := ExtractZIP(path, t.TempDir())
	assert.Error(t, err)
}
